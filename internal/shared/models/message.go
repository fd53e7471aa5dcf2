package models

import "strconv"

// MessageID is the one-byte type discriminant of a peer wire frame.
type MessageID uint8

const (
	MessageIDChoke MessageID = iota
	MessageIDUnchoke
	MessageIDInterested
	MessageIDNotInterested
	MessageIDHave
	MessageIDBitfield
	MessageIDRequest
	MessageIDPiece
	MessageIDCancel
)

var messageIDNames = [...]string{
	MessageIDChoke:         "choke",
	MessageIDUnchoke:       "unchoke",
	MessageIDInterested:    "interested",
	MessageIDNotInterested: "not_interested",
	MessageIDHave:          "have",
	MessageIDBitfield:      "bitfield",
	MessageIDRequest:       "request",
	MessageIDPiece:         "piece",
	MessageIDCancel:        "cancel",
}

// Known reports whether id names one of the nine peer wire messages.
func (id MessageID) Known() bool {
	return int(id) < len(messageIDNames)
}

func (id MessageID) String() string {
	if !id.Known() {
		return "unknown(" + strconv.Itoa(int(id)) + ")"
	}
	return messageIDNames[id]
}
