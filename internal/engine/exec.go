package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ExecConfig configures the subprocess engine. The zero value runs
// "tmux" from PATH against the default server.
type ExecConfig struct {
	// TmuxPath is the tmux binary, defaulting to "tmux".
	TmuxPath string

	// SocketName, SocketPath, and ConfigFile are passed to every
	// invocation as -L, -S, and -f.
	SocketName string
	SocketPath string
	ConfigFile string
}

// ExecEngine runs one tmux subprocess per command. It has no persistent
// state and no notification stream; it exists for one-shot use and as
// the fallback when a control connection is unavailable.
type ExecEngine struct {
	path string
	base []string
}

var _ Engine = (*ExecEngine)(nil)

// NewExecEngine returns a subprocess engine for the given server.
func NewExecEngine(cfg ExecConfig) *ExecEngine {
	path := cfg.TmuxPath
	if path == "" {
		path = "tmux"
	}

	var base []string
	if cfg.SocketPath != "" {
		base = append(base, "-S", cfg.SocketPath)
	} else if cfg.SocketName != "" {
		base = append(base, "-L", cfg.SocketName)
	}
	if cfg.ConfigFile != "" {
		base = append(base, "-f", cfg.ConfigFile)
	}

	return &ExecEngine{path: path, base: base}
}

// Execute runs one tmux command to completion. A non-zero tmux exit is
// reported as a StatusError result, not an error; errors are reserved
// for failures to run the binary at all and for context expiry.
func (e *ExecEngine) Execute(ctx context.Context, argv ...string) (*Result, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}

	r := NewResult(argv)
	args := append(append([]string{}, e.base...), argv...)

	cmd := exec.CommandContext(ctx, e.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	r.End = time.Now()
	r.Stdout = splitLines(stdout.String())
	r.Stderr = splitLines(stderr.String())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, fmt.Errorf("tmux %s: %w", argv[0], ErrTimeout)
			}
			return nil, fmt.Errorf("tmux %s: %w", argv[0], ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.Status = StatusError
			return r, nil
		}
		return nil, fmt.Errorf("running %s: %w", e.path, err)
	}

	r.Status = StatusOK
	return r, nil
}

// Close is a no-op; the subprocess engine holds no resources.
func (e *ExecEngine) Close() error { return nil }

// splitLines breaks command output into lines, dropping the trailing
// newline so empty output yields no lines rather than one empty line.
func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
