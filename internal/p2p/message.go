package p2p

import (
	"encoding/binary"

	"github.com/WendelHime/rainyday/internal/shared/models"
)

const (
	lengthPrefixLen = 4
	// minFrameLen is a length prefix followed by a type id.
	minFrameLen = lengthPrefixLen + 1
)

// Message is one of the nine peer wire messages exchanged after the handshake.
// The set is closed: only the types in this package implement it.
type Message interface {
	ID() models.MessageID
	appendPayload(dst []byte) []byte
}

type (
	Choke         struct{}
	Unchoke       struct{}
	Interested    struct{}
	NotInterested struct{}
)

func (Choke) ID() models.MessageID         { return models.MessageIDChoke }
func (Unchoke) ID() models.MessageID       { return models.MessageIDUnchoke }
func (Interested) ID() models.MessageID    { return models.MessageIDInterested }
func (NotInterested) ID() models.MessageID { return models.MessageIDNotInterested }

func (Choke) appendPayload(dst []byte) []byte         { return dst }
func (Unchoke) appendPayload(dst []byte) []byte       { return dst }
func (Interested) appendPayload(dst []byte) []byte    { return dst }
func (NotInterested) appendPayload(dst []byte) []byte { return dst }

func (Choke) String() string         { return "Choke" }
func (Unchoke) String() string       { return "Unchoke" }
func (Interested) String() string    { return "Interested" }
func (NotInterested) String() string { return "NotInterested" }

// EncodeMessage returns the framed wire form of m: a big-endian length
// covering the id and payload, the id, then the payload.
func EncodeMessage(m Message) []byte {
	buf := make([]byte, minFrameLen, minFrameLen+payloadSizeHint(m))
	buf[lengthPrefixLen] = byte(m.ID())
	buf = m.appendPayload(buf)
	binary.BigEndian.PutUint32(buf, uint32(len(buf)-lengthPrefixLen))
	return buf
}

// DecodeMessage parses exactly one complete frame. It never retains b.
func DecodeMessage(b []byte) (Message, error) {
	if len(b) < minFrameLen {
		return nil, ErrTooShort
	}
	length := binary.BigEndian.Uint32(b)
	if uint64(len(b)) != uint64(length)+lengthPrefixLen {
		return nil, ErrWrongLength
	}

	id := models.MessageID(b[lengthPrefixLen])
	payload := b[minFrameLen:]
	switch id {
	case models.MessageIDChoke:
		return bodyless(Choke{}, payload)
	case models.MessageIDUnchoke:
		return bodyless(Unchoke{}, payload)
	case models.MessageIDInterested:
		return bodyless(Interested{}, payload)
	case models.MessageIDNotInterested:
		return bodyless(NotInterested{}, payload)
	case models.MessageIDHave:
		return decodeHave(payload)
	case models.MessageIDBitfield:
		return decodeBitfield(payload), nil
	case models.MessageIDRequest:
		return decodeRequest(payload)
	case models.MessageIDPiece:
		return decodePiece(payload)
	case models.MessageIDCancel:
		return decodeCancel(payload)
	default:
		return nil, ErrInvalidMessageType
	}
}

func bodyless(m Message, payload []byte) (Message, error) {
	if len(payload) > 0 {
		return nil, ErrTooLong
	}
	return m, nil
}

func payloadSizeHint(m Message) int {
	switch v := m.(type) {
	case Have:
		return haveLen
	case Bitfield:
		return len(v.Bitfield)
	case Request, Cancel:
		return blockRefLen
	case Piece:
		return pieceHeaderLen + len(v.Block)
	}
	return 0
}
