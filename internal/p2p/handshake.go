package p2p

import "bytes"

const (
	// Protocol is the protocol name carried in every handshake.
	Protocol = "BitTorrent protocol"
	// HandshakeLen is the size of an encoded handshake:
	// pstrlen, pstr, reserved, info hash and peer id.
	HandshakeLen = 1 + len(Protocol) + reservedLen + 20 + 20

	reservedLen = 8
)

// Handshake is the preamble each side sends once per connection before any
// framed message.
type Handshake struct {
	InfoHash [20]byte
	PeerID   [20]byte
}

// EncodeHandshake returns the 68-byte wire form of h. The reserved bytes are
// always zero.
func EncodeHandshake(h Handshake) []byte {
	buf := make([]byte, 0, HandshakeLen)
	buf = append(buf, byte(len(Protocol)))
	buf = append(buf, Protocol...)
	buf = append(buf, make([]byte, reservedLen)...)
	buf = append(buf, h.InfoHash[:]...)
	buf = append(buf, h.PeerID[:]...)
	return buf
}

// DecodeHandshake parses exactly one handshake. The protocol name is located
// through its length byte but its content is not checked.
func DecodeHandshake(b []byte) (Handshake, error) {
	return decodeHandshake(b, false)
}

// DecodeHandshakeStrict is DecodeHandshake that also requires the protocol
// name to be "BitTorrent protocol".
func DecodeHandshakeStrict(b []byte) (Handshake, error) {
	return decodeHandshake(b, true)
}

func decodeHandshake(b []byte, strict bool) (Handshake, error) {
	if err := exactLength(b, HandshakeLen); err != nil {
		return Handshake{}, err
	}

	pstrlen := int(b[0])
	// a declared name length other than 19 cannot fit the fixed frame
	if err := exactLength(b, 1+pstrlen+reservedLen+40); err != nil {
		return Handshake{}, err
	}
	if strict && !bytes.Equal(b[1:1+pstrlen], []byte(Protocol)) {
		return Handshake{}, ErrInvalidProtocol
	}

	var h Handshake
	offset := 1 + pstrlen + reservedLen
	copy(h.InfoHash[:], b[offset:offset+20])
	copy(h.PeerID[:], b[offset+20:offset+40])
	return h, nil
}
