package decoder

import "io"

// ReadBytes reads exactly n bytes from r. It returns io.EOF only when nothing
// was read and io.ErrUnexpectedEOF when the stream ended part way.
func ReadBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
