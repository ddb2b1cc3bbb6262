// Package config loads the node configuration from config.toml and named
// subscription-filter presets from filters.yaml. Watch reloads the node
// configuration when the file changes on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration wraps time.Duration so TOML values can be written as "10s".
type Duration time.Duration

// UnmarshalText parses a time.ParseDuration string.
func (d *Duration) UnmarshalText(data []byte) error {
	parsed, err := time.ParseDuration(string(data))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration back to its string form.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the node configuration loaded from config.toml.
type Config struct {
	RelayURL         string   `toml:"relay_url"`          // relay to dial on startup (empty = none).
	DataDir          string   `toml:"data_dir"`           // node database directory (default ~/.murmur).
	InitialMode      string   `toml:"initial_mode"`       // "command" or "chat" (default "command").
	RequestTimeout   Duration `toml:"request_timeout"`    // relay acknowledgement timeout (default 10s).
	CommandQueueSize int      `toml:"command_queue_size"` // default 64.
	EventQueueSize   int      `toml:"event_queue_size"`   // default 256.
	DisplayQueueSize int      `toml:"display_queue_size"` // default 256.
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	out := c
	if out.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			out.DataDir = filepath.Join(home, ".murmur")
		}
	}
	if out.InitialMode == "" {
		out.InitialMode = "command"
	}
	if out.RequestTimeout == 0 {
		out.RequestTimeout = Duration(10 * time.Second)
	}
	if out.CommandQueueSize == 0 {
		out.CommandQueueSize = 64
	}
	if out.EventQueueSize == 0 {
		out.EventQueueSize = 256
	}
	if out.DisplayQueueSize == 0 {
		out.DisplayQueueSize = 256
	}
	return out
}

// Load reads and parses path, filling in defaults for unset fields. A missing
// file is not an error; it yields the default configuration.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the --config flag
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.withDefaults(), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".murmur", "config.toml")
}
