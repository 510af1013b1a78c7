package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmuxwire/tmuxwire/internal/config"
	"github.com/tmuxwire/tmuxwire/internal/constants"
	"github.com/tmuxwire/tmuxwire/internal/control"
	"github.com/tmuxwire/tmuxwire/internal/engine"
	"github.com/tmuxwire/tmuxwire/internal/style"
	"github.com/tmuxwire/tmuxwire/internal/tmux"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	GroupID: GroupDiag,
	Short:   "Check the local tmux installation for control-mode use",
	Long: `Run a series of checks: configuration, tmux binary, tmux version,
server reachability, and a full control-mode handshake against a
scratch server (started and killed on a private socket, so the default
server is left alone).`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkStatus int

const (
	checkOK checkStatus = iota
	checkWarn
	checkFail
)

type checkResult struct {
	name    string
	status  checkStatus
	message string
	hint    string
}

func (c checkResult) print() {
	prefix := style.SuccessPrefix
	switch c.status {
	case checkWarn:
		prefix = style.WarningPrefix
	case checkFail:
		prefix = style.ErrorPrefix
	}
	fmt.Printf("%s %s: %s\n", prefix, c.name, c.message)
	if c.hint != "" && c.status != checkOK {
		fmt.Printf("    %s %s\n", style.ArrowPrefix, c.hint)
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, cfgErr := settings()

	checks := []checkResult{
		checkConfig(cfgErr),
		checkBinary(cfg),
	}

	if _, err := tmuxBinary(cfg); err == nil {
		checks = append(checks,
			checkVersion(cfg),
			checkServer(cmd.Context(), cfg),
			checkControlMode(cmd.Context(), cfg),
		)
	}

	var oks, warns, fails int
	for _, c := range checks {
		c.print()
		switch c.status {
		case checkOK:
			oks++
		case checkWarn:
			warns++
		case checkFail:
			fails++
		}
	}

	fmt.Println()
	parts := []string{fmt.Sprintf("%d checks", len(checks))}
	if oks > 0 {
		parts = append(parts, style.Success.Render(fmt.Sprintf("%d passed", oks)))
	}
	if warns > 0 {
		parts = append(parts, style.Warning.Render(fmt.Sprintf("%d warnings", warns)))
	}
	if fails > 0 {
		parts = append(parts, style.Error.Render(fmt.Sprintf("%d failed", fails)))
	}
	fmt.Println(strings.Join(parts, ", "))

	if fails > 0 {
		return fmt.Errorf("%d of %d checks failed", fails, len(checks))
	}
	return nil
}

// tmuxBinary resolves the configured tmux binary through PATH.
func tmuxBinary(cfg config.Config) (string, error) {
	path := cfg.TmuxPath
	if path == "" {
		path = "tmux"
	}
	return exec.LookPath(path)
}

// configSource names the config file the settings came from.
func configSource() string {
	if rootConfigPath != "" {
		return rootConfigPath
	}
	if p := os.Getenv(constants.EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tmuxwire", "tmuxwire.toml")
}

func checkConfig(cfgErr error) checkResult {
	c := checkResult{name: "config"}
	if cfgErr != nil {
		c.status = checkFail
		c.message = cfgErr.Error()
		c.hint = "fix the file or point --config somewhere else"
		return c
	}

	path := configSource()
	if path == "" {
		c.message = "using defaults"
		return c
	}
	if _, err := os.Stat(path); err != nil {
		c.message = fmt.Sprintf("no file at %s, using defaults", path)
		return c
	}
	c.message = "loaded " + path
	return c
}

func checkBinary(cfg config.Config) checkResult {
	c := checkResult{name: "tmux binary"}
	path, err := tmuxBinary(cfg)
	if err != nil {
		c.status = checkFail
		c.message = err.Error()
		c.hint = "install tmux, or point --tmux at the binary"
		return c
	}
	c.message = path
	return c
}

func checkVersion(cfg config.Config) checkResult {
	path, err := tmuxBinary(cfg)
	if err != nil {
		return checkResult{name: "tmux version", status: checkFail, message: err.Error()}
	}

	out, err := exec.Command(path, "-V").Output()
	if err != nil {
		return checkResult{
			name:    "tmux version",
			status:  checkWarn,
			message: fmt.Sprintf("tmux -V failed: %v", err),
		}
	}
	return classifyVersion(strings.TrimSpace(string(out)))
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

// classifyVersion grades a "tmux -V" string. Numbered releases before
// 2.2 get a warning: control mode itself is older, but several
// notification tags this tool understands are not.
func classifyVersion(raw string) checkResult {
	c := checkResult{name: "tmux version", message: raw}

	m := versionRe.FindStringSubmatch(raw)
	if m == nil {
		if strings.Contains(raw, "master") || strings.Contains(raw, "next") {
			c.message = raw + " (development build)"
			return c
		}
		c.status = checkWarn
		c.message = fmt.Sprintf("unrecognized version %q", raw)
		return c
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	if major < 2 || (major == 2 && minor < 2) {
		c.status = checkWarn
		c.hint = "several notification tags were added after this release; upgrade to 2.2 or newer"
	}
	return c
}

// checkServer probes the configured server without starting one:
// list-sessions over a one-shot invocation reports sessions when the
// server is up and comes back empty when it is not.
func checkServer(ctx context.Context, cfg config.Config) checkResult {
	c := checkResult{name: "server"}
	srv := tmux.NewServer(engine.NewExecEngine(execConfig(cfg)))
	sessions, err := srv.ListSessions(ctx)
	if err != nil {
		c.status = checkFail
		c.message = err.Error()
		return c
	}
	if len(sessions) == 0 {
		c.message = "not running (will start on demand)"
		return c
	}
	c.message = fmt.Sprintf("running, %d session(s)", len(sessions))
	return c
}

// checkControlMode performs a full handshake against a scratch server
// on a private socket, then kills it.
func checkControlMode(ctx context.Context, cfg config.Config) checkResult {
	c := checkResult{name: "control mode"}

	scratch := controlConfig(cfg)
	scratch.SocketPath = ""
	scratch.ConfigFile = os.DevNull
	scratch.SocketName = fmt.Sprintf("tmuxwire-doctor-%d", os.Getpid())
	scratch.CommandTimeout = 5 * time.Second

	cl := control.NewClient(scratch)
	defer cl.Close()

	res, err := cl.Execute(ctx, "display-message", "-p", "#{version}")
	if err != nil {
		c.status = checkFail
		c.message = err.Error()
		c.hint = "rerun with --verbose for connection diagnostics"
		return c
	}
	if res.Status != engine.StatusOK {
		c.status = checkFail
		c.message = res.ErrorString()
		return c
	}

	version := ""
	if len(res.Stdout) > 0 {
		version = res.Stdout[0]
	}
	cl.Execute(ctx, "kill-server")

	c.message = fmt.Sprintf("handshake completed (server reports %s)", version)
	return c
}
