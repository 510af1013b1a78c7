package control

import (
	"time"

	"github.com/tmuxwire/tmuxwire/internal/engine"
)

// commandContext tracks one submitted command from the moment its line
// is queued until the parser sees the guard that closes its reply
// block. The zero CommandID/TmuxTime/Flags of the embedded result mean
// no guard has claimed it yet.
type commandContext struct {
	result *engine.Result

	// done is closed exactly once, when the context completes.
	done chan struct{}

	// completed and err are guarded by the owning parser's mutex.
	completed bool
	err       error
}

func newCommandContext(argv []string) *commandContext {
	return &commandContext{
		result: engine.NewResult(argv),
		done:   make(chan struct{}),
	}
}

// complete finishes the context with err (nil for success) and wakes
// the waiter. Later calls are no-ops, so a context that was already
// resolved by a guard cannot be re-failed by connection teardown.
// Callers must hold the owning parser's mutex.
func (c *commandContext) complete(err error) {
	if c.completed {
		return
	}
	c.completed = true
	c.err = err
	c.result.End = time.Now()
	close(c.done)
}

// expectsServerExit reports whether the command takes the tmux server
// down, in which case the server closing the stream before replying is
// the success path rather than a failure.
func (c *commandContext) expectsServerExit() bool {
	for _, arg := range c.result.Argv {
		if arg == "kill-server" || arg == "kill-session" {
			return true
		}
	}
	return false
}
