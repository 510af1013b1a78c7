// Package cmd implements the tmuxwire CLI.
package cmd

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmuxwire/tmuxwire/internal/cli"
	"github.com/tmuxwire/tmuxwire/internal/config"
	"github.com/tmuxwire/tmuxwire/internal/control"
	"github.com/tmuxwire/tmuxwire/internal/engine"
)

// Command groups for help output.
const (
	GroupCore = "core"
	GroupDiag = "diag"
)

var (
	rootConfigPath string
	rootSocketName string
	rootSocketPath string
	rootTmuxConfig string
	rootTmuxPath   string
	rootTimeout    time.Duration
	rootVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   cli.Name(),
	Short: "Drive tmux through control mode",
	Long: `tmuxwire talks to a tmux server over control mode (tmux -C): one
long-lived connection carrying command replies and asynchronous
notifications on a single text stream.

Commands address a server the same way tmux does: --socket-name (-L)
for a named socket, --socket-path (-S) for an explicit path. With
neither, the default server for this user is used, starting it if
needed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = cli.Version()
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupCore, Title: "Core Commands:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootConfigPath, "config", "", "Config file (default $TMUXWIRE_CONFIG, then ~/.config/tmuxwire/tmuxwire.toml)")
	pf.StringVarP(&rootSocketName, "socket-name", "L", "", "tmux socket name (tmux -L)")
	pf.StringVarP(&rootSocketPath, "socket-path", "S", "", "tmux socket path (tmux -S)")
	pf.StringVarP(&rootTmuxConfig, "tmux-config", "f", "", "tmux configuration file (tmux -f)")
	pf.StringVar(&rootTmuxPath, "tmux", "", "tmux binary (default \"tmux\" from PATH)")
	pf.DurationVar(&rootTimeout, "timeout", 0, "Reply timeout per command (0 = default, negative = wait forever)")
	pf.BoolVarP(&rootVerbose, "verbose", "v", false, "Connection diagnostics on stderr")
}

// settings resolves the effective configuration: the config file first,
// then command-line flags on top.
func settings() (config.Config, error) {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return cfg, err
	}

	if rootTmuxPath != "" {
		cfg.TmuxPath = rootTmuxPath
	}
	if rootSocketName != "" {
		cfg.SocketName = rootSocketName
	}
	if rootSocketPath != "" {
		cfg.SocketPath = rootSocketPath
	}
	if rootTmuxConfig != "" {
		cfg.ConfigFile = rootTmuxConfig
	}
	if rootTimeout < 0 {
		cfg.CommandTimeoutMS = -1
	} else if rootTimeout > 0 {
		cfg.CommandTimeoutMS = int(rootTimeout.Milliseconds())
	}
	if rootVerbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// verboseLogger returns a stderr logger when diagnostics are on, a
// discarding one otherwise.
func verboseLogger(cfg config.Config) *log.Logger {
	if cfg.Verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// controlConfig maps the effective settings onto the control client.
func controlConfig(cfg config.Config) control.Config {
	return control.Config{
		TmuxPath:       cfg.TmuxPath,
		SocketName:     cfg.SocketName,
		SocketPath:     cfg.SocketPath,
		ConfigFile:     cfg.ConfigFile,
		CommandTimeout: cfg.CommandTimeout(),
		QueueSize:      cfg.QueueSize,
		Logger:         verboseLogger(cfg),
	}
}

// execConfig maps the effective settings onto the one-shot engine.
func execConfig(cfg config.Config) engine.ExecConfig {
	return engine.ExecConfig{
		TmuxPath:   cfg.TmuxPath,
		SocketName: cfg.SocketName,
		SocketPath: cfg.SocketPath,
		ConfigFile: cfg.ConfigFile,
	}
}
