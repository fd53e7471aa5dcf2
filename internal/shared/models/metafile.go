package models

import "encoding/hex"

type Metafile struct {
	Announce     string     `bencode:"announce"`
	AnnounceList [][]string `bencode:"announce-list"`
	Info         Info       `bencode:"info"`
	InfoHash     Hash       `bencode:"-"`
}

type Info struct {
	Name         string `bencode:"name"`
	Length       int    `bencode:"length"`
	PieceLength  int    `bencode:"piece length"`
	Pieces       string `bencode:"pieces"`
	Private      int    `bencode:"private"`
	PiecesHashes []Hash `bencode:"-"`
	Files        []File `bencode:"files"`
}

// IsPrivate reports whether the torrent restricts peer discovery to its trackers.
func (i Info) IsPrivate() bool {
	return i.Private == 1
}

// TotalLength is the sum of every file in the torrent.
func (i Info) TotalLength() int {
	if i.Length > 0 {
		return i.Length
	}
	total := 0
	for _, file := range i.Files {
		total += file.Length
	}
	return total
}

type File struct {
	Length int      `bencode:"length"`
	Path   []string `bencode:"path"`
}

// Hash is a SHA-1 digest, as used for info hashes and piece hashes.
type Hash [20]byte

func (h Hash) String() string {
	return string(h[:])
}

func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}
