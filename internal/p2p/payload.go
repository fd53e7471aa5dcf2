package p2p

import (
	"encoding/binary"
	"fmt"

	"github.com/WendelHime/rainyday/internal/shared/models"
)

const (
	haveLen        = 4
	blockRefLen    = 12
	pieceHeaderLen = 8
)

// Have announces that the sender has completed and verified a piece.
type Have struct {
	Index uint32
}

func (Have) ID() models.MessageID { return models.MessageIDHave }

func (m Have) appendPayload(dst []byte) []byte {
	return binary.BigEndian.AppendUint32(dst, m.Index)
}

func (m Have) String() string { return fmt.Sprintf("Have{index:%d}", m.Index) }

func decodeHave(payload []byte) (Message, error) {
	if err := exactLength(payload, haveLen); err != nil {
		return nil, err
	}
	return Have{Index: binary.BigEndian.Uint32(payload)}, nil
}

// Bitfield carries the sender's piece bitmap. The bytes are opaque here.
// An empty bitmap decodes as nil.
type Bitfield struct {
	Bitfield []byte
}

func (Bitfield) ID() models.MessageID { return models.MessageIDBitfield }

func (m Bitfield) appendPayload(dst []byte) []byte {
	return append(dst, m.Bitfield...)
}

func (m Bitfield) String() string { return fmt.Sprintf("Bitfield{bitfield:%x}", m.Bitfield) }

func decodeBitfield(payload []byte) Message {
	return Bitfield{Bitfield: clone(payload)}
}

// Request asks for length bytes of piece index starting at begin.
type Request struct {
	Index  uint32
	Begin  uint32
	Length uint32
}

func (Request) ID() models.MessageID { return models.MessageIDRequest }

func (m Request) appendPayload(dst []byte) []byte {
	return appendBlockRef(dst, m.Index, m.Begin, m.Length)
}

func (m Request) String() string {
	return fmt.Sprintf("Request{index:%d,begin:%d,length:%d}", m.Index, m.Begin, m.Length)
}

func decodeRequest(payload []byte) (Message, error) {
	index, begin, length, err := decodeBlockRef(payload)
	if err != nil {
		return nil, err
	}
	return Request{Index: index, Begin: begin, Length: length}, nil
}

// Piece carries one block of piece data. An empty block decodes as nil.
type Piece struct {
	Index uint32
	Begin uint32
	Block []byte
}

func (Piece) ID() models.MessageID { return models.MessageIDPiece }

func (m Piece) appendPayload(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, m.Index)
	dst = binary.BigEndian.AppendUint32(dst, m.Begin)
	return append(dst, m.Block...)
}

func (m Piece) String() string {
	return fmt.Sprintf("Piece{index:%d,begin:%d,piece:%d bytes}", m.Index, m.Begin, len(m.Block))
}

func decodePiece(payload []byte) (Message, error) {
	if len(payload) < pieceHeaderLen {
		return nil, ErrTooShort
	}
	return Piece{
		Index: binary.BigEndian.Uint32(payload[0:4]),
		Begin: binary.BigEndian.Uint32(payload[4:8]),
		Block: clone(payload[pieceHeaderLen:]),
	}, nil
}

// Cancel withdraws an earlier Request with the same fields.
type Cancel struct {
	Index  uint32
	Begin  uint32
	Length uint32
}

func (Cancel) ID() models.MessageID { return models.MessageIDCancel }

func (m Cancel) appendPayload(dst []byte) []byte {
	return appendBlockRef(dst, m.Index, m.Begin, m.Length)
}

func (m Cancel) String() string {
	return fmt.Sprintf("Cancel{index:%d,begin:%d,length:%d}", m.Index, m.Begin, m.Length)
}

func decodeCancel(payload []byte) (Message, error) {
	index, begin, length, err := decodeBlockRef(payload)
	if err != nil {
		return nil, err
	}
	return Cancel{Index: index, Begin: begin, Length: length}, nil
}

func appendBlockRef(dst []byte, index, begin, length uint32) []byte {
	dst = binary.BigEndian.AppendUint32(dst, index)
	dst = binary.BigEndian.AppendUint32(dst, begin)
	return binary.BigEndian.AppendUint32(dst, length)
}

func decodeBlockRef(payload []byte) (index, begin, length uint32, err error) {
	if err = exactLength(payload, blockRefLen); err != nil {
		return 0, 0, 0, err
	}
	index = binary.BigEndian.Uint32(payload[0:4])
	begin = binary.BigEndian.Uint32(payload[4:8])
	length = binary.BigEndian.Uint32(payload[8:12])
	return index, begin, length, nil
}

// clone copies b so decoded messages never alias the caller's buffer.
// Empty input yields nil.
func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}
