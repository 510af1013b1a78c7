// Package control speaks the tmux control-mode protocol over a
// long-lived `tmux -C` child process. A Client owns at most one child
// at a time, matches command replies to callers by arrival order, and
// fans asynchronous notifications out through a bounded queue.
//
// The protocol is line-oriented: commands go to the child's stdin one
// per line, replies come back bracketed by %begin and %end (or %error)
// guard lines, and everything outside those brackets is either a
// %-prefixed notification or noise.
package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tmuxwire/tmuxwire/internal/constants"
	"github.com/tmuxwire/tmuxwire/internal/engine"
	"github.com/tmuxwire/tmuxwire/internal/protocol"
)

// Config carries everything needed to run a control-mode client. The
// zero value targets the default tmux server with compiled-in timeouts
// and a discarded log.
type Config struct {
	// TmuxPath is the tmux binary to spawn. Empty means "tmux",
	// resolved through PATH.
	TmuxPath string

	// SocketName selects a named server socket (tmux -L).
	SocketName string

	// SocketPath selects a server socket by full path (tmux -S) and
	// wins over SocketName.
	SocketPath string

	// ConfigFile is an alternate tmux configuration file (tmux -f).
	ConfigFile string

	// CommandTimeout bounds each Execute's wait for a reply block.
	// Zero means constants.DefaultCommandTimeout; negative waits
	// forever.
	CommandTimeout time.Duration

	// QueueSize caps the notification queue. Zero means
	// constants.DefaultNotificationQueue.
	QueueSize int

	// Logger receives connection lifecycle and protocol diagnostics.
	// Nil discards them.
	Logger *log.Logger
}

// Client manages the control-mode child process. Connections are
// started lazily on first use and restarted after timeouts, broken
// pipes, or server identity changes; the notification queue and the
// counters survive across restarts.
//
// A Client is safe for concurrent use. Commands are serialized: one
// command is in flight at a time and concurrent callers queue in
// arrival order.
type Client struct {
	cfg           Config
	logger        *log.Logger
	notifications chan protocol.Notification
	metrics       *metrics

	// cmdMu serializes the submit-and-wait cycle of Execute.
	cmdMu sync.Mutex

	// mu guards the live connection handle and failure latch.
	mu         sync.Mutex
	conn       *connection
	identity   engine.Identity
	generation uint64
	failed     bool
}

// NewClient returns a Client for cfg. No process is spawned until the
// first Execute or Connect.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = constants.DefaultNotificationQueue
	}
	return &Client{
		cfg:           cfg,
		logger:        logger,
		notifications: make(chan protocol.Notification, queue),
		metrics:       &metrics{},
	}
}

// connection is one spawned `tmux -C` child with its reader goroutine
// and parser. It is never reused after its stream ends.
type connection struct {
	id     string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	parser *parser

	// bootstrap claims the greeting block tmux emits on attach, so the
	// greeting can never shadow the first real command's reply.
	bootstrap *commandContext

	// readerDone closes after the reader goroutine has drained the
	// stream, failed outstanding work, and reaped the child.
	readerDone chan struct{}

	// closing marks a deliberate shutdown so the reader does not treat
	// the resulting EOF as a lost connection.
	closing atomic.Bool

	writeMu sync.Mutex
}

func (c *connection) writeLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := io.WriteString(c.stdin, line+"\n")
	return err
}

// awaitBootstrap blocks until the greeting block has been consumed, so
// callers only write commands into a stream that is known to speak
// control mode.
func (c *connection) awaitBootstrap() error {
	select {
	case <-c.bootstrap.done:
		return c.bootstrap.err
	case <-time.After(constants.BootstrapTimeout):
		return fmt.Errorf("%w: no control-mode greeting within %v", engine.ErrConnectionLost, constants.BootstrapTimeout)
	}
}

// kill forces the child down: SIGTERM, a grace period, then SIGKILL.
// It returns once the reader goroutine has finished.
func (c *connection) kill() {
	_ = c.stdin.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(syscall.SIGTERM)
	}
	select {
	case <-c.readerDone:
		return
	case <-time.After(constants.KillGracePeriod):
	}
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	<-c.readerDone
}

// shutdown is the polite variant: close stdin so tmux detaches on its
// own, escalating through kill only if it lingers.
func (c *connection) shutdown() {
	c.closing.Store(true)
	_ = c.stdin.Close()
	select {
	case <-c.readerDone:
		return
	case <-time.After(constants.CloseWaitTimeout):
	}
	c.kill()
}

// Execute runs one tmux command over the control connection and waits
// for its reply block.
//
// Server-level flags (-L, -S, -f, and the spawn-time-only -2, -8, -F)
// are stripped from argv before it is written; they mean nothing once
// a control client is attached. When the stripped flags name a
// different server than the live connection targets, the connection is
// restarted against the requested server first.
//
// A command the server rejects comes back as a StatusError result with
// a nil error. Non-nil errors are transport failures: ErrTimeout when
// the reply did not arrive in time, ErrConnectionLost when the stream
// broke and could not be recovered, ErrEmptyCommand when nothing
// remains after flag filtering.
func (cl *Client) Execute(ctx context.Context, argv ...string) (*engine.Result, error) {
	identity, cmdArgs := engine.StripServerArgs(argv)
	if len(cmdArgs) == 0 {
		return nil, fmt.Errorf("%w: %q", engine.ErrEmptyCommand, strings.Join(argv, " "))
	}
	line := protocol.JoinLine(cmdArgs)

	cl.cmdMu.Lock()
	defer cl.cmdMu.Unlock()

	conn, err := cl.ensureConn(identity)
	if err != nil {
		return nil, err
	}

	cctx := newCommandContext(cmdArgs)
	if err := submit(conn, cctx, line); err != nil {
		// The write itself failed, so the command never reached a
		// server and is safe to replay once, on a fresh connection.
		cl.logger.Printf("control: write failed (%v), restarting control client", err)
		cl.metrics.noteError(err)
		cl.dropConn(conn)
		conn.kill()

		conn, err = cl.ensureConn(identity)
		if err != nil {
			cl.markFailed(err)
			return nil, err
		}
		cctx = newCommandContext(cmdArgs)
		if err := submit(conn, cctx, line); err != nil {
			cl.dropConn(conn)
			conn.kill()
			cl.markFailed(err)
			return nil, fmt.Errorf("%w: write failed after restart: %v", engine.ErrConnectionLost, err)
		}
	}

	return cl.await(ctx, conn, cctx)
}

// submit registers the context and then writes the line. Registration
// must come first: once the line is written the reply can arrive at
// any moment, and the parser matches replies to whatever is queued.
func submit(conn *connection, c *commandContext, line string) error {
	if err := conn.parser.enqueue(c); err != nil {
		return err
	}
	return conn.writeLine(line)
}

func (cl *Client) await(ctx context.Context, conn *connection, c *commandContext) (*engine.Result, error) {
	timeout := cl.cfg.CommandTimeout
	if timeout == 0 {
		timeout = constants.DefaultCommandTimeout
	}
	var expire <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expire = timer.C
	}

	select {
	case <-c.done:
		if c.err != nil {
			cl.metrics.noteCommand(true)
			return nil, c.err
		}
		cl.metrics.noteCommand(c.result.Status != engine.StatusOK)
		return c.result, nil

	case <-expire:
		// If the reply turned up later it would be claimed by the
		// wrong command, so the connection cannot be trusted again.
		cl.metrics.noteTimeout()
		cl.metrics.noteCommand(true)
		cl.logger.Printf("control: %s: no reply within %v, killing control client", c.result.Argv[0], timeout)
		cl.dropConn(conn)
		conn.kill()
		return nil, fmt.Errorf("tmux %s: no reply within %v: %w", c.result.Argv[0], timeout, engine.ErrTimeout)

	case <-ctx.Done():
		cl.metrics.noteCommand(true)
		cl.dropConn(conn)
		conn.kill()
		return nil, fmt.Errorf("tmux %s: %w", c.result.Argv[0], ctx.Err())
	}
}

// Connect eagerly starts the control connection. Execute connects on
// demand, so this is only needed by consumers that want notifications
// flowing before (or without) running any command.
func (cl *Client) Connect() error {
	cl.cmdMu.Lock()
	defer cl.cmdMu.Unlock()
	_, err := cl.ensureConn(engine.Identity{})
	return err
}

// ensureConn returns the live connection, spawning or respawning as
// needed. Callers hold cmdMu.
func (cl *Client) ensureConn(req engine.Identity) (*connection, error) {
	cl.mu.Lock()
	if cl.failed {
		cl.mu.Unlock()
		return nil, fmt.Errorf("%w: control client failed permanently: %s", engine.ErrConnectionLost, cl.metrics.lastErrorText())
	}

	want := mergeIdentity(cl.defaultIdentity(), req)
	if cl.conn != nil && cl.identity != want {
		old := cl.conn
		cl.conn = nil
		cl.mu.Unlock()
		cl.logger.Printf("control: server identity changed, restarting control client")
		old.shutdown()
		cl.mu.Lock()
	}

	if cl.conn == nil {
		conn, err := cl.spawnLocked(want)
		if err != nil {
			if cl.generation > 0 {
				// A connection existed before, so this respawn was the
				// one permitted recovery attempt.
				cl.failed = true
			}
			cl.mu.Unlock()
			cl.metrics.noteError(err)
			return nil, err
		}
		cl.conn = conn
		cl.identity = want
	}
	conn := cl.conn
	cl.mu.Unlock()

	if err := conn.awaitBootstrap(); err != nil {
		cl.metrics.noteError(err)
		cl.dropConn(conn)
		conn.kill()
		return nil, err
	}
	return conn, nil
}

// spawnLocked starts `tmux -C` for the given server identity. Callers
// hold cl.mu.
func (cl *Client) spawnLocked(id engine.Identity) (*connection, error) {
	path := cl.cfg.TmuxPath
	if path == "" {
		path = "tmux"
	}
	argv := make([]string, 0, 6)
	switch {
	case id.SocketPath != "":
		argv = append(argv, "-S", id.SocketPath)
	case id.SocketName != "":
		argv = append(argv, "-L", id.SocketName)
	}
	if id.ConfigFile != "" {
		argv = append(argv, "-f", id.ConfigFile)
	}
	argv = append(argv, "-C")

	cmd := exec.Command(path, argv...)
	cmd.Env = controlEnv()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	conn := &connection{
		id:         uuid.NewString(),
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		parser:     newParser(cl.notifications, cl.metrics, cl.logger),
		bootstrap:  newCommandContext(nil),
		readerDone: make(chan struct{}),
	}
	_ = conn.parser.enqueue(conn.bootstrap)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", path, err)
	}
	cl.generation++
	if cl.generation > 1 {
		cl.metrics.noteRespawn()
	}
	go cl.readLoop(conn)

	cl.logger.Printf("control: started %s (pid %d, connection %s)", path, cmd.Process.Pid, conn.id)
	return conn, nil
}

// readLoop is the single reader for one connection. It feeds every
// line to the parser, and when the stream ends it fails outstanding
// work, reaps the child, and releases the connection handle.
func (cl *Client) readLoop(conn *connection) {
	scanner := bufio.NewScanner(conn.stdout)
	scanner.Buffer(make([]byte, 64*1024), constants.MaxLineBytes)
	for scanner.Scan() {
		conn.parser.feedLine(scanner.Text())
	}
	scanErr := scanner.Err()
	if scanErr != nil && conn.cmd.Process != nil {
		// Read failed with the child still alive (an overlong line,
		// say). Kill it or Wait below never returns.
		_ = conn.cmd.Process.Kill()
	}
	waitErr := conn.cmd.Wait()

	var cause error
	switch {
	case conn.closing.Load():
		cause = fmt.Errorf("%w: connection closed", engine.ErrClosed)
	case scanErr != nil:
		cause = fmt.Errorf("%w: read: %v", engine.ErrConnectionLost, scanErr)
	case waitErr != nil:
		cause = fmt.Errorf("%w: tmux exited: %v", engine.ErrConnectionLost, waitErr)
	default:
		cause = fmt.Errorf("%w: tmux closed the control stream", engine.ErrConnectionLost)
	}
	if !conn.closing.Load() {
		cl.metrics.noteError(cause)
		cl.logger.Printf("control: connection %s lost: %v", conn.id, cause)
	}

	conn.parser.connectionLost(cause)
	cl.dropConn(conn)
	close(conn.readerDone)
}

// dropConn releases the handle if conn is still the live connection,
// so the next Execute spawns fresh.
func (cl *Client) dropConn(conn *connection) {
	cl.mu.Lock()
	if cl.conn == conn {
		cl.conn = nil
	}
	cl.mu.Unlock()
}

func (cl *Client) markFailed(err error) {
	cl.metrics.noteError(err)
	cl.mu.Lock()
	cl.failed = true
	cl.mu.Unlock()
	cl.logger.Printf("control: giving up on connection recovery: %v", err)
}

// Close detaches from the server by closing the child's stdin,
// escalating to signals if it lingers. Idempotent and safe in any
// state, including before the first command. The client itself stays
// usable: a later Execute starts a fresh connection.
func (cl *Client) Close() error {
	cl.mu.Lock()
	conn := cl.conn
	cl.conn = nil
	cl.mu.Unlock()
	if conn == nil {
		return nil
	}
	conn.shutdown()
	return nil
}

// Notifications returns the queue of asynchronous events. The channel
// is never closed and is shared across connection restarts; consumers
// that need a bounded wait should use Notification instead of reading
// it directly.
func (cl *Client) Notifications() <-chan protocol.Notification {
	return cl.notifications
}

// Notification pops the next queued event. A zero timeout polls,
// a negative one waits indefinitely. The second return is false when
// no event arrived in time.
func (cl *Client) Notification(timeout time.Duration) (protocol.Notification, bool) {
	if timeout == 0 {
		select {
		case n := <-cl.notifications:
			return n, true
		default:
			return protocol.Notification{}, false
		}
	}
	if timeout < 0 {
		return <-cl.notifications, true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case n := <-cl.notifications:
		return n, true
	case <-timer.C:
		return protocol.Notification{}, false
	}
}

// Stats returns a point-in-time snapshot of connection health.
func (cl *Client) Stats() engine.Stats {
	s := engine.Stats{
		QueueDepth:    len(cl.notifications),
		QueueCapacity: cap(cl.notifications),
	}
	cl.metrics.fill(&s)
	cl.mu.Lock()
	if cl.conn != nil {
		s.Alive = true
		s.ConnectionID = cl.conn.id
		s.InFlight = cl.conn.parser.inFlight()
	}
	cl.mu.Unlock()
	return s
}

func (cl *Client) defaultIdentity() engine.Identity {
	return engine.Identity{
		SocketName: cl.cfg.SocketName,
		SocketPath: cl.cfg.SocketPath,
		ConfigFile: cl.cfg.ConfigFile,
	}
}

// mergeIdentity overlays per-command server flags on the configured
// defaults. A socket in the override replaces the base socket pair
// wholesale, so an explicit -L is not shadowed by a configured -S.
func mergeIdentity(base, override engine.Identity) engine.Identity {
	if override.SocketName != "" || override.SocketPath != "" {
		base.SocketName = override.SocketName
		base.SocketPath = override.SocketPath
	}
	if override.ConfigFile != "" {
		base.ConfigFile = override.ConfigFile
	}
	return base
}

// controlEnv is the child's environment with tmux's own nesting
// variables removed, so a client started from inside a tmux pane does
// not confuse the server about being nested.
func controlEnv() []string {
	env := os.Environ()
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, "TMUX=") || strings.HasPrefix(kv, "TMUX_PANE=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
