package p2p

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/WendelHime/rainyday/internal/decoder"
)

// DefaultMaxFrame bounds the declared length of a frame read from a stream.
// A 16 KiB block plus headers fits many times over.
const DefaultMaxFrame uint32 = 1 << 20

var ErrFrameTooLarge = errors.New("frame too large")

// FrameReader cuts a byte stream into complete frames for DecodeMessage.
type FrameReader struct {
	r        io.Reader
	maxFrame uint32
}

// NewFrameReader returns a FrameReader rejecting frames whose declared length
// exceeds maxFrame. Zero selects DefaultMaxFrame.
func NewFrameReader(r io.Reader, maxFrame uint32) *FrameReader {
	if maxFrame == 0 {
		maxFrame = DefaultMaxFrame
	}
	return &FrameReader{r: r, maxFrame: maxFrame}
}

// ReadFrame returns the next frame including its length prefix. It returns
// io.EOF when the stream ends between frames and io.ErrUnexpectedEOF when it
// ends inside one.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	prefix, err := decoder.ReadBytes(f.r, lengthPrefixLen)
	if err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(prefix)
	if length > f.maxFrame {
		return nil, fmt.Errorf("%w: declared %d bytes, limit %d", ErrFrameTooLarge, length, f.maxFrame)
	}

	body, err := decoder.ReadBytes(f.r, int(length))
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return append(prefix, body...), nil
}

// KeepAlive returns the zero-length frame peers send to hold a connection open.
func KeepAlive() []byte {
	return make([]byte, lengthPrefixLen)
}

// IsKeepAlive reports whether frame is a keep-alive.
func IsKeepAlive(frame []byte) bool {
	return len(frame) == lengthPrefixLen && binary.BigEndian.Uint32(frame) == 0
}
