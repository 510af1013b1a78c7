// Package config loads tmuxwire settings from a TOML file, falling
// back to compiled-in defaults when no file is present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tmuxwire/tmuxwire/internal/constants"
)

// Config is the on-disk configuration. Every field is optional; the
// zero value of a field means "use the default".
type Config struct {
	// TmuxPath is the tmux binary to spawn. Empty resolves "tmux"
	// through PATH.
	TmuxPath string `toml:"tmux_path"`

	// SocketName, SocketPath, and ConfigFile pick the target server,
	// mirroring tmux -L, -S, and -f. SocketPath wins over SocketName.
	SocketName string `toml:"socket_name"`
	SocketPath string `toml:"socket_path"`
	ConfigFile string `toml:"config_file"`

	// CommandTimeoutMS bounds each command's wait for its reply, in
	// milliseconds. Zero keeps the default; negative waits forever.
	CommandTimeoutMS int `toml:"command_timeout_ms"`

	// QueueSize caps the notification queue.
	QueueSize int `toml:"queue_size"`

	// ListenAddr is the bind address for the notification stream
	// server.
	ListenAddr string `toml:"listen_addr"`

	// Verbose turns on connection diagnostics on stderr.
	Verbose bool `toml:"verbose"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		ListenAddr: constants.DefaultListenAddr,
	}
}

// CommandTimeout converts the millisecond setting to a duration,
// preserving the zero-means-default and negative-means-forever
// conventions of control.Config.
func (c Config) CommandTimeout() time.Duration {
	if c.CommandTimeoutMS < 0 {
		return -1
	}
	return time.Duration(c.CommandTimeoutMS) * time.Millisecond
}

// Load reads the configuration from path. An empty path walks the
// lookup order: $TMUXWIRE_CONFIG, then ~/.config/tmuxwire/tmuxwire.toml.
// A missing file at the default location is not an error; a path the
// caller (or the environment) named explicitly must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv(constants.EnvConfigPath)
		explicit = path != ""
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".config", "tmuxwire", "tmuxwire.toml")
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}
