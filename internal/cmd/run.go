package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tmuxwire/tmuxwire/internal/control"
	"github.com/tmuxwire/tmuxwire/internal/engine"
)

var (
	runIsolated bool
	runJSON     bool
)

var runCmd = &cobra.Command{
	Use:     "run [flags] -- <tmux-command> [args...]",
	GroupID: GroupCore,
	Short:   "Run one tmux command and print its reply",
	Long: `Run a single tmux command through control mode and print the reply.

Standard output lines go to stdout, error lines to stderr, and the exit
code is nonzero when tmux rejects the command.

  tmuxwire run -- list-sessions
  tmuxwire run -- new-session -d -s work
  tmuxwire run --json -- display-message -p '#{version}'

With --isolated the command runs as a plain one-shot tmux invocation
instead of over a control-mode connection. One-shot invocations accept
the handful of arguments control mode filters out (-F format strings
among them), at the cost of a process per command and no notifications.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runIsolated, "isolated", false, "Run via a one-shot tmux process instead of control mode")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(runCmd)
}

// runReply is the JSON shape of one command result.
type runReply struct {
	Command   []string `json:"command"`
	Status    string   `json:"status"`
	Stdout    []string `json:"stdout"`
	Stderr    []string `json:"stderr,omitempty"`
	CommandID int      `json:"command_id"`
	TmuxTime  int64    `json:"tmux_time"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}

	var eng engine.Engine
	if runIsolated {
		eng = engine.NewExecEngine(execConfig(cfg))
	} else {
		eng = control.NewEngine(controlConfig(cfg))
	}
	defer eng.Close()

	res, err := eng.Execute(cmd.Context(), args...)
	if err != nil {
		return err
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runReply{
			Command:   res.Argv,
			Status:    res.Status.String(),
			Stdout:    res.Stdout,
			Stderr:    res.Stderr,
			CommandID: res.CommandID,
			TmuxTime:  res.TmuxTime,
			ElapsedMS: res.End.Sub(res.Start).Milliseconds(),
		}); err != nil {
			return err
		}
	} else {
		for _, line := range res.Stdout {
			fmt.Println(line)
		}
		for _, line := range res.Stderr {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	if res.Status == engine.StatusError {
		return fmt.Errorf("tmux rejected %s", args[0])
	}
	return nil
}
