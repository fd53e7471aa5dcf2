package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/WendelHime/rainyday/internal/config"
	"github.com/WendelHime/rainyday/internal/decoder"
	"github.com/WendelHime/rainyday/internal/logic"
	"github.com/WendelHime/rainyday/internal/shared/models"
)

func main() {
	var configPath string
	var peerAddr string
	var capturePath string
	var logPath string
	var timeout time.Duration
	var verbose bool
	flag.StringVar(&configPath, "config", "rainyday.toml", "Specify the configuration file")
	flag.StringVar(&peerAddr, "peer", "", "Probe the peer at host:port")
	flag.StringVar(&capturePath, "capture", "", "Decode a recorded peer wire stream")
	flag.StringVar(&logPath, "log", "log.txt", "Specify the log file")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Specify the peer probe timeout")
	flag.BoolVar(&verbose, "v", false, "Log every message sent and received")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <input_file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logOut, err := os.Create(logPath)
	if err != nil {
		panic(err)
	}
	defer logOut.Close()
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	if err := run(logger, configPath, flag.Arg(0), peerAddr, capturePath, timeout); err != nil {
		logger.Error("rainyday failed", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, torrentPath, peerAddr, capturePath string, timeout time.Duration) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	logger.Info("configuration loaded", slog.Bool("pedantic", cfg.Pedantic), slog.Bool("respect_private_trackers", cfg.RespectPrivateTrackers))

	f, err := os.Open(torrentPath)
	if err != nil {
		return err
	}
	defer f.Close()

	meta, err := decoder.NewDecoder().Decode(f)
	if err != nil {
		return err
	}
	logger.Info("torrent decoded",
		slog.String("name", meta.Info.Name),
		slog.String("info_hash", meta.InfoHash.Hex()),
		slog.Int("pieces", len(meta.Info.PiecesHashes)),
		slog.Int("length", meta.Info.TotalLength()),
		slog.Bool("private", meta.Info.IsPrivate()),
	)
	fmt.Printf("%s  %s  %d pieces\n", meta.InfoHash.Hex(), meta.Info.Name, len(meta.Info.PiecesHashes))

	if peerAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		report, err := logic.NewProber(cfg, logger).Probe(ctx, meta, peerAddr)
		if err != nil {
			return fmt.Errorf("probe %s: %w", peerAddr, err)
		}
		available := report.PiecesAvailable(len(meta.Info.PiecesHashes))
		fmt.Printf("peer %q unchoked=%t has %d/%d pieces\n", report.PeerID[:], report.Unchoked, len(available), len(meta.Info.PiecesHashes))
	}

	if capturePath != "" {
		capture, err := os.Open(capturePath)
		if err != nil {
			return err
		}
		defer capture.Close()

		size := int64(-1)
		if stat, err := capture.Stat(); err == nil {
			size = stat.Size()
		}
		report, err := logic.NewInspector(logger, os.Stderr).Inspect(capture, size)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", capturePath, err)
		}
		fmt.Printf("\n%d frames, %d keep-alives, %d invalid\n", report.Frames, report.KeepAlives, report.Invalid)
		for id := models.MessageIDChoke; id <= models.MessageIDCancel; id++ {
			if count, ok := report.Messages[id]; ok {
				fmt.Printf("  %-14s %d\n", id, count)
			}
		}
	}

	return nil
}
