package engine

import (
	"strings"
	"time"
)

// Status is the outcome of one executed command.
type Status int

const (
	// StatusUnknown means the command has not completed.
	StatusUnknown Status = iota

	// StatusOK means tmux accepted and executed the command.
	StatusOK

	// StatusError means tmux rejected the command (%error block, or a
	// non-zero exit from the subprocess engine).
	StatusError
)

// String returns a short lowercase name for the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one tmux command, identical in shape across
// engines. Stdout and Stderr hold output lines in arrival order with
// trailing empty lines trimmed. CommandID, TmuxTime, and Flags come
// from the control-mode %begin/%end guards and are -1 when the engine
// has no block framing (the subprocess engine), or when the block never
// completed.
type Result struct {
	Argv   []string
	Stdout []string
	Stderr []string
	Status Status

	CommandID int
	TmuxTime  int64
	Flags     int

	Start time.Time
	End   time.Time
}

// NewResult returns a Result for argv with Start stamped and the block
// fields unset.
func NewResult(argv []string) *Result {
	return &Result{
		Argv:      argv,
		CommandID: -1,
		TmuxTime:  -1,
		Flags:     -1,
		Start:     time.Now(),
	}
}

// Success reports whether the command completed with StatusOK.
func (r *Result) Success() bool { return r.Status == StatusOK }

// OutputString returns stdout joined with newlines.
func (r *Result) OutputString() string { return strings.Join(r.Stdout, "\n") }

// ErrorString returns stderr joined with newlines.
func (r *Result) ErrorString() string { return strings.Join(r.Stderr, "\n") }

// Duration returns how long the command took from submission to
// completion. Zero until the command completes.
func (r *Result) Duration() time.Duration {
	if r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}
