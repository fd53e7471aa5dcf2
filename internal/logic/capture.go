package logic

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/WendelHime/rainyday/internal/decoder"
	"github.com/WendelHime/rainyday/internal/p2p"
	"github.com/WendelHime/rainyday/internal/shared/models"
	"github.com/schollz/progressbar/v3"
)

// CaptureReport counts what a recorded peer stream contained.
type CaptureReport struct {
	Handshake  *p2p.Handshake
	Frames     int
	KeepAlives int
	Invalid    int
	Messages   map[models.MessageID]int
}

type Inspector interface {
	Inspect(capture io.Reader, size int64) (CaptureReport, error)
}

type inspector struct {
	log      *slog.Logger
	progress io.Writer
	maxFrame uint32
}

// NewInspector returns an Inspector drawing its progress bar on progress.
func NewInspector(logger *slog.Logger, progress io.Writer) Inspector {
	return &inspector{log: logger, progress: progress, maxFrame: p2p.DefaultMaxFrame}
}

// Inspect decodes every frame of a capture, optionally preceded by a
// handshake. Frames that fail to decode are counted and skipped; the stream
// stays aligned because their length prefix is intact. size may be -1 when
// unknown.
func (i *inspector) Inspect(capture io.Reader, size int64) (CaptureReport, error) {
	report := CaptureReport{Messages: make(map[models.MessageID]int)}

	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(i.progress),
		progressbar.OptionSetDescription("decoding capture"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(0),
	)
	defer bar.Finish()

	r := bufio.NewReader(io.TeeReader(capture, bar))
	handshake, err := readCaptureHandshake(r)
	if err != nil {
		return report, err
	}
	report.Handshake = handshake

	frames := p2p.NewFrameReader(r, i.maxFrame)
	for {
		frame, err := frames.ReadFrame()
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		if err != nil {
			return report, fmt.Errorf("frame %d: %w", report.Frames, err)
		}
		report.Frames++

		if p2p.IsKeepAlive(frame) {
			report.KeepAlives++
			continue
		}

		msg, err := p2p.DecodeMessage(frame)
		if err != nil {
			report.Invalid++
			i.log.Warn("failed to decode frame", slog.Int("frame", report.Frames-1), slog.Any("error", err))
			continue
		}
		report.Messages[msg.ID()]++
	}
}

// readCaptureHandshake consumes a leading handshake if the capture has one.
// A frame cannot start with the byte 19 without declaring a length far above
// any frame limit, so the first byte tells the two apart.
func readCaptureHandshake(r *bufio.Reader) (*p2p.Handshake, error) {
	first, err := r.Peek(1)
	if err != nil || first[0] != byte(len(p2p.Protocol)) {
		return nil, nil
	}

	buf, err := decoder.ReadBytes(r, p2p.HandshakeLen)
	if err != nil {
		return nil, fmt.Errorf("capture handshake: %w", err)
	}
	h, err := p2p.DecodeHandshake(buf)
	if err != nil {
		return nil, fmt.Errorf("capture handshake: %w", err)
	}
	return &h, nil
}
