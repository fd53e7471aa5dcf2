package p2p

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/WendelHime/rainyday/internal/decoder"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrInfoHashMismatch = errors.New("peer answered with a different info hash")
)

type P2PClient interface {
	Connect(address string) error
	Disconnect() error
	Connected() bool
	Handshake(infoHash [20]byte) (Handshake, error)
	ReadMessage() (Message, error)
	WriteMessage(msg Message) error
	SendKeepAlive() error
	SetDeadline(t time.Time) error
}

type client struct {
	peerID      [20]byte
	conn        net.Conn
	frames      *FrameReader
	pedantic    bool
	maxFrame    uint32
	dialTimeout time.Duration
	log         *slog.Logger
}

type ClientOption func(*client)

// WithPedantic makes the client reject handshakes whose protocol name is not
// "BitTorrent protocol".
func WithPedantic(pedantic bool) ClientOption {
	return func(c *client) { c.pedantic = pedantic }
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *client) { c.log = logger }
}

func WithMaxFrame(maxFrame uint32) ClientOption {
	return func(c *client) { c.maxFrame = maxFrame }
}

func WithDialTimeout(timeout time.Duration) ClientOption {
	return func(c *client) { c.dialTimeout = timeout }
}

func NewClient(peerID [20]byte, opts ...ClientOption) P2PClient {
	c := &client{
		peerID:      peerID,
		maxFrame:    DefaultMaxFrame,
		dialTimeout: 10 * time.Second,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientConn wraps an established connection.
func NewClientConn(conn net.Conn, peerID [20]byte, opts ...ClientOption) P2PClient {
	c := NewClient(peerID, opts...).(*client)
	c.attach(conn)
	return c
}

func (c *client) attach(conn net.Conn) {
	c.conn = conn
	c.frames = NewFrameReader(conn, c.maxFrame)
}

func (c *client) Connect(address string) error {
	conn, err := net.DialTimeout("tcp", address, c.dialTimeout)
	if err != nil {
		return err
	}
	c.attach(conn)
	c.log.Debug("connected to peer", slog.String("addr", address))
	return nil
}

func (c *client) Disconnect() error {
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.frames = nil
		return err
	}
	return nil
}

func (c *client) Connected() bool {
	return c.conn != nil
}

// Handshake sends our handshake for infoHash and returns the peer's.
func (c *client) Handshake(infoHash [20]byte) (Handshake, error) {
	if c.conn == nil {
		return Handshake{}, ErrNotConnected
	}

	req := Handshake{InfoHash: infoHash, PeerID: c.peerID}
	if _, err := c.conn.Write(EncodeHandshake(req)); err != nil {
		return Handshake{}, err
	}

	resp, err := decoder.ReadBytes(c.conn, HandshakeLen)
	if err != nil {
		return Handshake{}, err
	}

	decode := DecodeHandshake
	if c.pedantic {
		decode = DecodeHandshakeStrict
	}
	remote, err := decode(resp)
	if err != nil {
		return Handshake{}, fmt.Errorf("decode handshake: %w", err)
	}
	if remote.InfoHash != infoHash {
		return Handshake{}, ErrInfoHashMismatch
	}

	c.log.Debug("handshake completed", slog.String("peer_id", hex.EncodeToString(remote.PeerID[:])))
	return remote, nil
}

func (c *client) WriteMessage(msg Message) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	c.log.Debug("sending message", slog.Any("message", msg))
	_, err := c.conn.Write(EncodeMessage(msg))
	return err
}

func (c *client) SendKeepAlive() error {
	if c.conn == nil {
		return ErrNotConnected
	}
	_, err := c.conn.Write(KeepAlive())
	return err
}

func (c *client) SetDeadline(t time.Time) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.SetDeadline(t)
}

// ReadMessage returns the next message, skipping keep-alives.
func (c *client) ReadMessage() (Message, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	for {
		frame, err := c.frames.ReadFrame()
		if err != nil {
			return nil, err
		}
		if IsKeepAlive(frame) {
			c.log.Debug("received keep-alive")
			continue
		}

		msg, err := DecodeMessage(frame)
		if err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		c.log.Debug("received message", slog.Any("message", msg))
		return msg, nil
	}
}
