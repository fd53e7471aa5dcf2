package logic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/WendelHime/rainyday/internal/config"
	"github.com/WendelHime/rainyday/internal/p2p"
	"github.com/WendelHime/rainyday/internal/shared/models"
)

var (
	ErrPrivateTorrent = errors.New("torrent is private, peers must come from its trackers")
	ErrPeerChoked     = errors.New("peer choked")
)

// ProbeReport summarises one session with a peer.
type ProbeReport struct {
	PeerID   [20]byte
	Bitfield []byte
	Have     []uint32
	Unchoked bool
	Received map[models.MessageID]int
}

// PiecesAvailable is the set of piece indexes below total that the peer
// advertised through its bitfield or have messages.
func (r ProbeReport) PiecesAvailable(total int) map[int]struct{} {
	pieces := make(map[int]struct{})
	for byteIndex, bitfieldByte := range r.Bitfield {
		for i := 0; i < 8; i++ {
			bitIndex := byteIndex*8 + i
			if bitIndex >= total {
				break
			}
			if bitfieldByte>>uint(7-i)&1 == 1 {
				pieces[bitIndex] = struct{}{}
			}
		}
	}
	for _, index := range r.Have {
		if int(index) < total {
			pieces[int(index)] = struct{}{}
		}
	}
	return pieces
}

type Prober interface {
	Probe(ctx context.Context, metafile models.Metafile, addr string) (ProbeReport, error)
}

type prober struct {
	clientID  [20]byte
	cfg       config.Config
	log       *slog.Logger
	newClient func(peerID [20]byte, opts ...p2p.ClientOption) p2p.P2PClient
}

func NewProber(cfg config.Config, logger *slog.Logger) Prober {
	return &prober{
		clientID:  generateRandomPeerID(),
		cfg:       cfg,
		log:       logger,
		newClient: p2p.NewClient,
	}
}

func generateRandomPeerID() [20]byte {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const prefix = "-RD0001-"

	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	var peerID [20]byte
	copy(peerID[:], prefix)
	for i := len(prefix); i < len(peerID); i++ {
		peerID[i] = charset[r.Intn(len(charset))]
	}

	return peerID
}

// Probe connects to addr, exchanges handshakes, declares interest and reads
// messages until the peer unchokes us, chokes us, or ctx ends.
func (p *prober) Probe(ctx context.Context, metafile models.Metafile, addr string) (ProbeReport, error) {
	report := ProbeReport{Received: make(map[models.MessageID]int)}

	if metafile.Info.IsPrivate() && p.cfg.RespectPrivateTrackers {
		return report, ErrPrivateTorrent
	}

	client := p.newClient(p.clientID, p2p.WithPedantic(p.cfg.Pedantic), p2p.WithLogger(p.log))
	p.log.Info("connecting to peer", slog.String("addr", addr))
	if err := client.Connect(addr); err != nil {
		return report, err
	}
	defer client.Disconnect()

	// unblock a pending read as soon as ctx is cancelled
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		client.SetDeadline(time.Now())
	})
	defer func() {
		if !stop() {
			<-interrupted
		}
	}()

	if deadline, ok := ctx.Deadline(); ok {
		if err := client.SetDeadline(deadline); err != nil {
			return report, err
		}
	}

	remote, err := client.Handshake(metafile.InfoHash)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		return report, err
	}
	report.PeerID = remote.PeerID

	if err := client.WriteMessage(p2p.Interested{}); err != nil {
		return report, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		msg, err := client.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return report, context.DeadlineExceeded
			}
			return report, err
		}
		report.Received[msg.ID()]++

		switch m := msg.(type) {
		case p2p.Choke:
			return report, ErrPeerChoked
		case p2p.Unchoke:
			report.Unchoked = true
			p.log.Info("peer unchoked us", slog.String("addr", addr))
			if err := client.WriteMessage(p2p.NotInterested{}); err != nil {
				return report, fmt.Errorf("withdraw interest: %w", err)
			}
			return report, nil
		case p2p.Bitfield:
			report.Bitfield = m.Bitfield
		case p2p.Have:
			report.Have = append(report.Have, m.Index)
		default:
			p.log.Debug("ignoring message while probing", slog.Any("message", msg))
		}
	}
}
