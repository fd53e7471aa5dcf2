package decoder

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"

	"github.com/WendelHime/rainyday/internal/shared/models"
	jackpal "github.com/jackpal/bencode-go"
	"github.com/zeebo/bencode"
)

var (
	ErrInvalidMetafile = errors.New("metafile is not a bencoded dictionary")
	ErrMissingInfo     = errors.New("metafile has no info dictionary")
	ErrInvalidPieces   = errors.New("pieces length is not a multiple of 20")
)

type MetafileDecoder interface {
	Decode(io.Reader) (models.Metafile, error)
}

type decoder struct{}

func NewDecoder() MetafileDecoder {
	return decoder{}
}

// serialization struct that only captures the info dictionary verbatim
type bencodeTorrent struct {
	// Info is kept as a RawMessage so the info hash is taken over the exact
	// bytes of the torrent, whatever the order of its keys
	Info bencode.RawMessage `bencode:"info"`
}

func (decoder) Decode(torrent io.Reader) (models.Metafile, error) {
	var response models.Metafile
	raw, err := io.ReadAll(torrent)
	if err != nil {
		return response, err
	}
	if len(raw) == 0 || raw[0] != 'd' {
		return response, ErrInvalidMetafile
	}

	var bt bencodeTorrent
	if err := bencode.DecodeBytes(raw, &bt); err != nil {
		return response, fmt.Errorf("failed to decode torrent: %w", err)
	}
	if len(bt.Info) == 0 || bt.Info[0] != 'd' {
		return response, ErrMissingInfo
	}
	response.InfoHash = calculateInfoHash(bt.Info)

	if err := jackpal.Unmarshal(bytes.NewReader(raw), &response); err != nil {
		return response, fmt.Errorf("failed to decode torrent info: %w", err)
	}

	response.Info.PiecesHashes, err = calculatePiecesHashes(response.Info.Pieces)
	if err != nil {
		return response, err
	}

	if response.Info.Length > 0 {
		response.Info.Files = []models.File{{Length: response.Info.Length, Path: []string{response.Info.Name}}}
	}

	return response, nil
}

func calculateInfoHash(info []byte) models.Hash {
	return sha1.Sum(info)
}

func calculatePiecesHashes(pieces string) ([]models.Hash, error) {
	if len(pieces)%len(models.Hash{}) != 0 {
		return nil, ErrInvalidPieces
	}

	piecesHashes := make([]models.Hash, 0, len(pieces)/len(models.Hash{}))
	for offset := 0; offset < len(pieces); offset += len(models.Hash{}) {
		var hash models.Hash
		copy(hash[:], pieces[offset:])
		piecesHashes = append(piecesHashes, hash)
	}

	return piecesHashes, nil
}
