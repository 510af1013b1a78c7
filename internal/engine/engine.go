// Package engine defines the execution contract shared by every way of
// running tmux commands: the persistent control-mode connection and the
// one-process-per-command fallback. Callers program against the Engine
// interface and the single Result type, so the object layer above never
// knows which transport is active.
package engine

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by engines. Callers match with errors.Is.
var (
	// ErrClosed is returned when work is submitted to an engine that
	// has been closed or has permanently failed.
	ErrClosed = errors.New("engine is closed")

	// ErrTimeout is returned when a command does not complete within
	// the configured timeout. On the control connection this also tears
	// the connection down, since a stuck command poisons the in-order
	// stream behind it.
	ErrTimeout = errors.New("command timed out")

	// ErrConnectionLost is returned when the control connection dies
	// while a command is outstanding, or when a write fails after the
	// one automatic respawn attempt.
	ErrConnectionLost = errors.New("control connection lost")

	// ErrEmptyCommand is returned when argv is empty, or becomes empty
	// once server-identity flags are stripped.
	ErrEmptyCommand = errors.New("empty tmux command")
)

// Engine executes tmux commands and returns their results. Execute is
// safe for concurrent use; implementations serialize as their transport
// requires. A command that tmux itself rejects is not an error at this
// level: it comes back as a Result with StatusError. Errors are for
// transport-level failures (spawn, timeout, lost connection).
type Engine interface {
	Execute(ctx context.Context, argv ...string) (*Result, error)
	Close() error
}
