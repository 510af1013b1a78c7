// Package tmux provides an object surface for tmux operations over any
// command engine. It never passes -F format strings, so it behaves
// identically whether the engine runs one-shot subprocesses or a
// persistent control-mode connection (which rejects custom formats);
// listings are parsed from tmux's default output instead.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmuxwire/tmuxwire/internal/engine"
)

// Common errors.
var (
	ErrNoServer           = errors.New("no tmux server running")
	ErrSessionExists      = errors.New("session already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrWindowNotFound     = errors.New("window not found")
	ErrPaneNotFound       = errors.New("pane not found")
	ErrInvalidSessionName = errors.New("invalid session name")
)

// validSessionNameRe validates session names. Dots and colons are
// target-syntax metacharacters that make tmux fail in confusing ways.
var validSessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateSessionName checks that a session name contains only safe
// characters.
func validateSessionName(name string) error {
	if name == "" || !validSessionNameRe.MatchString(name) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidSessionName, name, validSessionNameRe.String())
	}
	return nil
}

// exact turns a session name into an exact-match target, so "work"
// cannot accidentally address "work-2" through tmux prefix matching.
func exact(name string) string {
	return "=" + name
}

// Session describes one entry of the default list-sessions output.
type Session struct {
	Name     string
	Windows  int
	Attached bool
}

// Window describes one entry of the default list-windows output.
type Window struct {
	ID     string // @n
	Index  int
	Name   string
	Panes  int
	Width  int
	Height int
	Active bool
}

// Pane describes one entry of the default list-panes output.
type Pane struct {
	ID     string // %n
	Index  int
	Width  int
	Height int
	Active bool
}

// Server wraps tmux operations over an engine.
type Server struct {
	eng engine.Engine
}

// NewServer returns a Server that issues commands through eng.
func NewServer(eng engine.Engine) *Server {
	return &Server{eng: eng}
}

// run executes one tmux command and folds a rejected command into an
// error via wrapError. Transport failures pass through untouched.
func (s *Server) run(ctx context.Context, args ...string) (*engine.Result, error) {
	res, err := s.eng.Execute(ctx, args...)
	if err != nil {
		return nil, err
	}
	if res.Status == engine.StatusError {
		return res, wrapError(args, res.ErrorString())
	}
	return res, nil
}

// wrapError maps tmux stderr text onto the package's sentinel errors.
func wrapError(args []string, stderr string) error {
	stderr = strings.TrimSpace(stderr)

	switch {
	case strings.Contains(stderr, "no server running"),
		strings.Contains(stderr, "error connecting to"),
		strings.Contains(stderr, "no current target"),
		strings.Contains(stderr, "server exited unexpectedly"):
		return ErrNoServer
	case strings.Contains(stderr, "duplicate session"):
		return ErrSessionExists
	case strings.Contains(stderr, "session not found"),
		strings.Contains(stderr, "can't find session"):
		return ErrSessionNotFound
	case strings.Contains(stderr, "window not found"),
		strings.Contains(stderr, "can't find window"):
		return ErrWindowNotFound
	case strings.Contains(stderr, "pane not found"),
		strings.Contains(stderr, "can't find pane"):
		return ErrPaneNotFound
	}

	cmd := "tmux"
	if len(args) > 0 {
		cmd = "tmux " + args[0]
	}
	if stderr != "" {
		return fmt.Errorf("%s: %s", cmd, stderr)
	}
	return fmt.Errorf("%s: command rejected", cmd)
}

// HasSession reports whether a session with exactly this name exists.
// A missing server means no sessions, not an error.
func (s *Server) HasSession(ctx context.Context, name string) (bool, error) {
	if err := validateSessionName(name); err != nil {
		return false, err
	}
	_, err := s.run(ctx, "has-session", "-t", exact(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoServer) {
		return false, nil
	}
	return false, err
}

// NewSession creates a detached session. workDir sets the starting
// directory when non-empty; command, when non-empty, runs as the
// initial process of the first pane instead of a shell.
func (s *Server) NewSession(ctx context.Context, name, workDir, command string) error {
	if err := validateSessionName(name); err != nil {
		return err
	}
	args := []string{"new-session", "-d", "-s", name}
	if workDir != "" {
		args = append(args, "-c", workDir)
	}
	if command != "" {
		args = append(args, command)
	}
	if _, err := s.run(ctx, args...); err != nil {
		return err
	}
	// tmux 3.3+ sets window-size=manual on detached sessions, locking
	// them at 80x24 even after a client attaches. Override so windows
	// follow the attaching client.
	_, _ = s.run(ctx, "set-option", "-wt", exact(name), "window-size", "latest")
	return nil
}

// KillSession removes a session. Killing a session that does not exist
// (or a server that is not running) is success.
func (s *Server) KillSession(ctx context.Context, name string) error {
	if err := validateSessionName(name); err != nil {
		return err
	}
	_, err := s.run(ctx, "kill-session", "-t", exact(name))
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoServer) {
		return nil
	}
	return err
}

// KillServer shuts the whole server down. A server that is already
// gone is success, as is the stream closing before a reply arrives.
func (s *Server) KillServer(ctx context.Context) error {
	_, err := s.run(ctx, "kill-server")
	if errors.Is(err, ErrNoServer) {
		return nil
	}
	return err
}

// RenameSession renames from to to.
func (s *Server) RenameSession(ctx context.Context, from, to string) error {
	if err := validateSessionName(from); err != nil {
		return err
	}
	if err := validateSessionName(to); err != nil {
		return err
	}
	_, err := s.run(ctx, "rename-session", "-t", exact(from), to)
	return err
}

// sessionLineRe matches default list-sessions lines, e.g.
// "main: 2 windows (created Mon Jan 13 12:00:00 2020) (attached)".
var sessionLineRe = regexp.MustCompile(`^(.+?): (\d+) windows? \(created [^)]*\)(.*)$`)

// ListSessions lists sessions on the server. A missing server yields
// an empty list, not an error.
func (s *Server) ListSessions(ctx context.Context) ([]Session, error) {
	res, err := s.run(ctx, "list-sessions")
	if errors.Is(err, ErrNoServer) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sessions []Session
	for _, line := range res.Stdout {
		m := sessionLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		windows, _ := strconv.Atoi(m[2])
		sessions = append(sessions, Session{
			Name:     m[1],
			Windows:  windows,
			Attached: strings.Contains(m[3], "(attached)"),
		})
	}
	return sessions, nil
}

// windowLineRe matches default list-windows lines, e.g.
// "0: zsh* (1 panes) [80x24] [layout b25f,80x24,0,0,1] @1 (active)".
// Window flags are glued to the name; they are stripped afterwards.
var windowLineRe = regexp.MustCompile(`^(\d+): (.+?) \((\d+) panes?\) \[(\d+)x(\d+)\] \[layout [^\]]*\] (@\d+)(.*)$`)

// windowFlagChars are the flag characters tmux appends to a window
// name in listings.
const windowFlagChars = "*-#!~MZ"

// ListWindows lists the windows of a session.
func (s *Server) ListWindows(ctx context.Context, session string) ([]Window, error) {
	if err := validateSessionName(session); err != nil {
		return nil, err
	}
	res, err := s.run(ctx, "list-windows", "-t", exact(session))
	if err != nil {
		return nil, err
	}

	var windows []Window
	for _, line := range res.Stdout {
		m := windowLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		panes, _ := strconv.Atoi(m[3])
		width, _ := strconv.Atoi(m[4])
		height, _ := strconv.Atoi(m[5])
		windows = append(windows, Window{
			ID:     m[6],
			Index:  index,
			Name:   strings.TrimRight(m[2], windowFlagChars),
			Panes:  panes,
			Width:  width,
			Height: height,
			Active: strings.Contains(m[7], "(active)"),
		})
	}
	return windows, nil
}

// NewWindow adds a window to a session without switching to it. name
// is optional.
func (s *Server) NewWindow(ctx context.Context, session, name string) error {
	if err := validateSessionName(session); err != nil {
		return err
	}
	args := []string{"new-window", "-d", "-t", exact(session) + ":"}
	if name != "" {
		args = append(args, "-n", name)
	}
	_, err := s.run(ctx, args...)
	return err
}

// KillWindow removes the window addressed by target ("session:index"
// or a window ID like "@3").
func (s *Server) KillWindow(ctx context.Context, target string) error {
	_, err := s.run(ctx, "kill-window", "-t", target)
	return err
}

// paneLineRe matches default list-panes lines, e.g.
// "0: [80x24] [history 0/2000, 0 bytes] %0 (active)".
var paneLineRe = regexp.MustCompile(`^(\d+): \[(\d+)x(\d+)\] \[history [^\]]*\] (%\d+)(.*)$`)

// ListPanes lists the panes of the window addressed by target.
func (s *Server) ListPanes(ctx context.Context, target string) ([]Pane, error) {
	res, err := s.run(ctx, "list-panes", "-t", target)
	if err != nil {
		return nil, err
	}

	var panes []Pane
	for _, line := range res.Stdout {
		m := paneLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		width, _ := strconv.Atoi(m[2])
		height, _ := strconv.Atoi(m[3])
		panes = append(panes, Pane{
			ID:     m[4],
			Index:  index,
			Width:  width,
			Height: height,
			Active: strings.Contains(m[5], "(active)"),
		})
	}
	return panes, nil
}

// SendKeys types text into the target pane literally, optionally
// pressing Enter afterwards. The -l flag stops tmux from interpreting
// the text as key names, and the -- guard protects text that starts
// with a dash.
func (s *Server) SendKeys(ctx context.Context, target, text string, enter bool) error {
	if _, err := s.run(ctx, "send-keys", "-t", target, "-l", "--", text); err != nil {
		return err
	}
	if enter {
		if _, err := s.run(ctx, "send-keys", "-t", target, "Enter"); err != nil {
			return err
		}
	}
	return nil
}

// SendRawKeys sends key names (C-c, Escape, Up) to the target pane
// with tmux's usual key interpretation.
func (s *Server) SendRawKeys(ctx context.Context, target string, keys ...string) error {
	args := append([]string{"send-keys", "-t", target}, keys...)
	_, err := s.run(ctx, args...)
	return err
}

// CapturePane returns the visible contents of the target pane.
func (s *Server) CapturePane(ctx context.Context, target string) (string, error) {
	res, err := s.run(ctx, "capture-pane", "-p", "-t", target)
	if err != nil {
		return "", err
	}
	return strings.Join(res.Stdout, "\n"), nil
}

// SetEnvironment sets a variable in a session's environment, or in the
// global environment when session is empty.
func (s *Server) SetEnvironment(ctx context.Context, session, name, value string) error {
	var args []string
	if session == "" {
		args = []string{"set-environment", "-g", name, value}
	} else {
		if err := validateSessionName(session); err != nil {
			return err
		}
		args = []string{"set-environment", "-t", exact(session), name, value}
	}
	_, err := s.run(ctx, args...)
	return err
}

// DisplayMessage shows a message in the status line of attached
// clients.
func (s *Server) DisplayMessage(ctx context.Context, message string) error {
	_, err := s.run(ctx, "display-message", message)
	return err
}

// ServerVersion reports the tmux version string, e.g. "3.4".
func (s *Server) ServerVersion(ctx context.Context) (string, error) {
	res, err := s.run(ctx, "display-message", "-p", "#{version}")
	if err != nil {
		return "", err
	}
	if len(res.Stdout) == 0 {
		return "", fmt.Errorf("tmux display-message: empty version reply")
	}
	return strings.TrimSpace(res.Stdout[0]), nil
}
