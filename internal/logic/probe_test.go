package logic

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/WendelHime/rainyday/internal/config"
	"github.com/WendelHime/rainyday/internal/decoder"
	"github.com/WendelHime/rainyday/internal/p2p"
	"github.com/WendelHime/rainyday/internal/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seederID = [20]byte{'-', 'S', 'D', '0', '0', '0', '1', '-'}

// serveSeeder accepts one connection, answers the handshake and writes the
// given messages once the client declared interest.
func serveSeeder(t *testing.T, infoHash [20]byte, messages ...p2p.Message) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if _, err := decoder.ReadBytes(conn, p2p.HandshakeLen); err != nil {
			return
		}
		if _, err := conn.Write(p2p.EncodeHandshake(p2p.Handshake{InfoHash: infoHash, PeerID: seederID})); err != nil {
			return
		}

		frames := p2p.NewFrameReader(conn, 0)
		frame, err := frames.ReadFrame()
		if err != nil {
			return
		}
		if msg, err := p2p.DecodeMessage(frame); err != nil || msg.ID() != models.MessageIDInterested {
			return
		}
		for _, msg := range messages {
			if _, err := conn.Write(p2p.EncodeMessage(msg)); err != nil {
				return
			}
		}
		// drain until the client hangs up
		io.Copy(io.Discard, conn)
	}()

	return ln.Addr().String()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProbe(t *testing.T) {
	infoHash := models.Hash(bytes.Repeat([]byte{0x42}, 20))
	meta := models.Metafile{InfoHash: infoHash}

	var tests = []struct {
		name   string
		setup  func(t *testing.T) (Prober, models.Metafile, string)
		assert func(t *testing.T, actual ProbeReport, err error)
	}{
		{
			name: "peer unchokes after bitfield and have",
			setup: func(t *testing.T) (Prober, models.Metafile, string) {
				addr := serveSeeder(t, infoHash,
					p2p.Bitfield{Bitfield: []byte{0xa0}},
					p2p.Have{Index: 3},
					p2p.Unchoke{},
				)
				return NewProber(config.Default(), testLogger()), meta, addr
			},
			assert: func(t *testing.T, actual ProbeReport, err error) {
				require.NoError(t, err)
				assert.True(t, actual.Unchoked)
				assert.Equal(t, seederID, actual.PeerID)
				assert.Equal(t, []byte{0xa0}, actual.Bitfield)
				assert.Equal(t, []uint32{3}, actual.Have)
				assert.Equal(t, map[models.MessageID]int{
					models.MessageIDBitfield: 1,
					models.MessageIDHave:     1,
					models.MessageIDUnchoke:  1,
				}, actual.Received)
				assert.Equal(t, map[int]struct{}{0: {}, 2: {}, 3: {}}, actual.PiecesAvailable(8))
			},
		},
		{
			name: "peer chokes",
			setup: func(t *testing.T) (Prober, models.Metafile, string) {
				addr := serveSeeder(t, infoHash, p2p.Choke{})
				return NewProber(config.Default(), testLogger()), meta, addr
			},
			assert: func(t *testing.T, actual ProbeReport, err error) {
				assert.ErrorIs(t, err, ErrPeerChoked)
				assert.False(t, actual.Unchoked)
			},
		},
		{
			name: "private torrent with respected trackers",
			setup: func(t *testing.T) (Prober, models.Metafile, string) {
				private := meta
				private.Info.Private = 1
				return NewProber(config.Default(), testLogger()), private, "127.0.0.1:1"
			},
			assert: func(t *testing.T, actual ProbeReport, err error) {
				assert.ErrorIs(t, err, ErrPrivateTorrent)
			},
		},
		{
			name: "private torrent when trackers are not respected",
			setup: func(t *testing.T) (Prober, models.Metafile, string) {
				private := meta
				private.Info.Private = 1
				addr := serveSeeder(t, infoHash, p2p.Unchoke{})
				return NewProber(config.Config{RespectPrivateTrackers: false}, testLogger()), private, addr
			},
			assert: func(t *testing.T, actual ProbeReport, err error) {
				assert.NoError(t, err)
				assert.True(t, actual.Unchoked)
			},
		},
		{
			name: "silent peer hits the deadline",
			setup: func(t *testing.T) (Prober, models.Metafile, string) {
				addr := serveSeeder(t, infoHash)
				return NewProber(config.Default(), testLogger()), meta, addr
			},
			assert: func(t *testing.T, actual ProbeReport, err error) {
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			prober, meta, addr := tt.setup(t)
			actual, err := prober.Probe(ctx, meta, addr)
			tt.assert(t, actual, err)
		})
	}
}

func TestProbeStopsWhenCancelled(t *testing.T) {
	infoHash := models.Hash(bytes.Repeat([]byte{0x42}, 20))
	addr := serveSeeder(t, infoHash)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		_, err := NewProber(config.Default(), testLogger()).Probe(ctx, models.Metafile{InfoHash: infoHash}, addr)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("probe kept waiting on a silent peer after cancellation")
	}
}

func TestGenerateRandomPeerID(t *testing.T) {
	id := generateRandomPeerID()
	assert.Equal(t, "-RD0001-", string(id[:8]))
	for _, b := range id[8:] {
		assert.NotZero(t, b)
	}
}
