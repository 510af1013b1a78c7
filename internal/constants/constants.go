// Package constants defines shared default values for the control
// connection and CLI. Everything here can be overridden through
// config.Config or the engine construction structs; these are the
// compiled-in defaults.
package constants

import "time"

// Timing constants for the control connection.
const (
	// DefaultCommandTimeout bounds how long Execute waits for a
	// command's closing guard before tearing the connection down.
	DefaultCommandTimeout = 10 * time.Second

	// BootstrapTimeout bounds how long a fresh connection waits for
	// the greeting block tmux emits on attach. A peer that never
	// greets is not speaking control mode.
	BootstrapTimeout = 5 * time.Second

	// KillGracePeriod is the pause between SIGTERM and SIGKILL when
	// forcing a child process down.
	KillGracePeriod = 2 * time.Second

	// CloseWaitTimeout is how long Close waits for the child to exit
	// after closing its stdin before escalating to signals.
	CloseWaitTimeout = 2 * time.Second
)

// Capacity constants.
const (
	// DefaultNotificationQueue is the bounded notification queue size.
	// A full queue drops new arrivals rather than stalling the reader.
	DefaultNotificationQueue = 512

	// MaxLineBytes caps a single protocol line from the server.
	// Capture output of very wide panes full of escaped binary can run
	// long; a line beyond this means the stream is garbage.
	MaxLineBytes = 1024 * 1024
)

// DefaultListenAddr is where the notification stream server binds when
// no address is configured.
const DefaultListenAddr = "127.0.0.1:7855"

// EnvConfigPath names the environment variable that points at an
// alternate config file, checked before the default location.
const EnvConfigPath = "TMUXWIRE_CONFIG"
