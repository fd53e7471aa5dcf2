package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrUnknownKey = errors.New("unknown config key")

// Config holds the options read from the rainyday configuration file.
type Config struct {
	// Pedantic rejects handshakes whose protocol name is not
	// "BitTorrent protocol".
	Pedantic bool `toml:"pedantic"`
	// RespectPrivateTrackers refuses peers that did not come from the
	// tracker when the torrent is marked private.
	RespectPrivateTrackers bool `toml:"respect_private_trackers"`
}

func Default() Config {
	return Config{
		Pedantic:               false,
		RespectPrivateTrackers: true,
	}
}

// Load reads a TOML file. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return Config{}, fmt.Errorf("config parse failed (%s): %w: %s", path, ErrUnknownKey, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when path is empty or the
// file does not exist.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}
