package control

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/tmuxwire/tmuxwire/internal/engine"
	"github.com/tmuxwire/tmuxwire/internal/protocol"
)

// parserState tracks where the parser is relative to reply blocks.
type parserState int

const (
	// stateIdle means no reply block is open. Lines are notifications
	// or orphaned output.
	stateIdle parserState = iota

	// stateInCommand means a %begin has been matched to a submitted
	// command and its reply body is accumulating.
	stateInCommand

	// stateSkipping means a block opened with no submitted command to
	// claim it (the attach greeting, or output of a command typed into
	// the control client by something else). Its body is discarded.
	stateSkipping

	// stateDead means the stream is gone or the protocol was violated.
	// Terminal for this parser; recovery happens one level up by
	// spawning a fresh connection.
	stateDead
)

func (s parserState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateInCommand:
		return "in-command"
	case stateSkipping:
		return "skipping"
	case stateDead:
		return "dead"
	default:
		return fmt.Sprintf("parserState(%d)", int(s))
	}
}

// parser is the control-mode protocol state machine. One parser serves
// one child process; lines are fed in stream order by the single
// reader goroutine, while enqueue is called from the command path.
// The mutex orders those two against each other.
//
// Commands are matched to reply blocks purely by arrival order: the
// pending FIFO holds submitted commands whose %begin has not appeared
// yet, and each %begin claims the oldest one.
type parser struct {
	mu      sync.Mutex
	state   parserState
	pending []*commandContext
	current *commandContext

	notifications chan<- protocol.Notification
	metrics       *metrics
	logger        *log.Logger
}

func newParser(notifications chan<- protocol.Notification, m *metrics, logger *log.Logger) *parser {
	return &parser{
		state:         stateIdle,
		notifications: notifications,
		metrics:       m,
		logger:        logger,
	}
}

// enqueue registers a context to be claimed by the next unclaimed
// %begin. Callers must write the command line only after enqueue
// returns, so the reply can never arrive before its context exists.
func (p *parser) enqueue(c *commandContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == stateDead {
		return engine.ErrConnectionLost
	}
	p.pending = append(p.pending, c)
	return nil
}

// inFlight reports how many submitted commands have not completed.
func (p *parser) inFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.pending)
	if p.current != nil {
		n++
	}
	return n
}

// feedLine consumes one line from the child's stdout. Lines arrive
// with trailing newline already stripped.
func (p *parser) feedLine(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.noteActivity()

	switch p.state {
	case stateIdle:
		p.feedIdle(line)
	case stateInCommand:
		p.feedInCommand(line)
	case stateSkipping:
		p.feedSkipping(line)
	case stateDead:
		// Late lines from a torn-down stream carry nothing useful.
	}
}

func (p *parser) feedIdle(line string) {
	if protocol.GuardTypeOf(line) == protocol.GuardBegin {
		guard, err := protocol.ParseGuard(line)
		if err != nil {
			p.failLocked(fmt.Errorf("%w: unparseable %%begin %q", engine.ErrConnectionLost, line), false)
			return
		}
		if len(p.pending) == 0 {
			// Nothing asked for this block. Covers the greeting tmux
			// sends on attach and any block we did not originate.
			p.state = stateSkipping
			return
		}
		p.current = p.pending[0]
		p.pending[0] = nil
		p.pending = p.pending[1:]
		p.current.result.CommandID = guard.CommandID
		p.current.result.TmuxTime = guard.Time
		p.current.result.Flags = guard.Flags
		p.state = stateInCommand
		return
	}

	// %end or %error with no open block is not a known notification
	// tag, so it flows through Classify as a raw event like any other
	// unrecognized %-line.
	if strings.HasPrefix(line, "%") {
		p.notify(line)
		return
	}

	p.logger.Printf("control: orphaned output outside any block: %q", line)
}

func (p *parser) feedInCommand(line string) {
	switch protocol.GuardTypeOf(line) {
	case protocol.GuardBegin:
		p.failLocked(fmt.Errorf("%w: %%begin nested inside an open block", engine.ErrConnectionLost), false)

	case protocol.GuardEnd, protocol.GuardError:
		guard, err := protocol.ParseGuard(line)
		if err != nil {
			// A body line that merely starts with the guard word.
			p.current.result.Stdout = append(p.current.result.Stdout, line)
			return
		}
		p.closeCurrentLocked(guard)

	default:
		// Notifications are never interleaved inside a reply block, so
		// %-lines here are body text (a pane ID like %0 leading a
		// list-panes row, say), not events.
		p.current.result.Stdout = append(p.current.result.Stdout, line)
	}
}

func (p *parser) feedSkipping(line string) {
	switch protocol.GuardTypeOf(line) {
	case protocol.GuardEnd, protocol.GuardError:
		if _, err := protocol.ParseGuard(line); err == nil {
			p.state = stateIdle
		}
	default:
		// Discard, including any nested %begin.
	}
}

// closeCurrentLocked finishes the open block with the values from its
// closing guard, which wins over the opening one if they disagree.
func (p *parser) closeCurrentLocked(guard protocol.Guard) {
	res := p.current.result
	res.CommandID = guard.CommandID
	res.TmuxTime = guard.Time
	res.Flags = guard.Flags
	res.Stdout = trimTrailingEmpty(res.Stdout)

	if guard.Type == protocol.GuardError {
		res.Status = engine.StatusError
		if len(res.Stderr) == 0 && len(res.Stdout) > 0 {
			res.Stderr = res.Stdout
			res.Stdout = nil
		}
	} else {
		res.Status = engine.StatusOK
		if guard.Flags&1 != 0 {
			// The flag bit suggests an error but %end is authoritative.
			p.logger.Printf("control: command %d closed by %%end with error flag set", guard.CommandID)
		}
	}

	done := p.current
	p.current = nil
	p.state = stateIdle
	done.complete(nil)
}

// notify classifies an asynchronous line and offers it to the bounded
// queue. When the queue is full the newest arrival is dropped so the
// reader never stalls behind a slow consumer; drops are counted and
// logged at power-of-two milestones to keep a flooded log readable.
func (p *parser) notify(line string) {
	n := protocol.Classify(line)
	p.metrics.noteNotification()
	select {
	case p.notifications <- n:
	default:
		dropped := p.metrics.noteDrop()
		if dropped&(dropped-1) == 0 {
			p.logger.Printf("control: notification queue full, %d dropped so far", dropped)
		}
	}
}

// connectionLost makes the parser terminal after the stream ended,
// failing everything outstanding with cause. The oldest outstanding
// command is exempt when it is one that kills the server: for those,
// the stream ending is the reply.
func (p *parser) connectionLost(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failLocked(cause, true)
}

// failLocked transitions to stateDead and resolves every outstanding
// context. With serverExitOK set, the oldest outstanding context whose
// command is expected to take the server down completes successfully
// instead.
func (p *parser) failLocked(cause error, serverExitOK bool) {
	if p.state == stateDead {
		return
	}
	p.state = stateDead

	oldest := p.current
	if oldest == nil && len(p.pending) > 0 {
		oldest = p.pending[0]
	}

	if p.current != nil {
		if serverExitOK && p.current == oldest && p.current.expectsServerExit() {
			res := p.current.result
			res.Status = engine.StatusOK
			res.Stdout = trimTrailingEmpty(res.Stdout)
			p.current.complete(nil)
		} else {
			p.current.complete(cause)
		}
		p.current = nil
	}

	for _, c := range p.pending {
		if serverExitOK && c == oldest && c.expectsServerExit() {
			c.result.Status = engine.StatusOK
			c.complete(nil)
			continue
		}
		c.complete(cause)
	}
	p.pending = nil
}

func trimTrailingEmpty(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
