package p2p

// DecodeError is the reason a handshake or peer message could not be decoded.
// The values are comparable, so callers match them with == or errors.Is.
type DecodeError uint8

const (
	// ErrTooShort means fewer bytes were supplied than the format requires.
	ErrTooShort DecodeError = iota + 1
	// ErrTooLong means more bytes were supplied than the format allows.
	ErrTooLong
	// ErrWrongLength means the 4-byte length prefix disagrees with the
	// number of bytes supplied.
	ErrWrongLength
	// ErrInvalidMessageType means the type id byte names no known message.
	ErrInvalidMessageType
	// ErrInvalidProtocol means a strictly decoded handshake did not carry
	// the "BitTorrent protocol" name.
	ErrInvalidProtocol
)

func (e DecodeError) Error() string {
	switch e {
	case ErrTooShort:
		return "p2p: too short"
	case ErrTooLong:
		return "p2p: too long"
	case ErrWrongLength:
		return "p2p: length prefix does not match frame size"
	case ErrInvalidMessageType:
		return "p2p: invalid message type"
	case ErrInvalidProtocol:
		return "p2p: invalid protocol name"
	default:
		return "p2p: decode error"
	}
}

// exactLength checks a fixed-size field against the bytes available for it.
func exactLength(b []byte, n int) error {
	switch {
	case len(b) < n:
		return ErrTooShort
	case len(b) > n:
		return ErrTooLong
	}
	return nil
}
