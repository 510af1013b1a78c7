package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tmuxwire/tmuxwire/internal/constants"
	"github.com/tmuxwire/tmuxwire/internal/control"
	"github.com/tmuxwire/tmuxwire/internal/stream"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: GroupCore,
	Short:   "Serve tmux notifications over WebSocket",
	Long: `Hold one control-mode connection open and fan its notifications out
to WebSocket subscribers.

Endpoints:
  /ws       notification stream (JSON frames)
  /healthz  liveness and subscriber count
  /stats    connection counters

Runs until interrupted. Subscribers that fall behind lose events
rather than slow the stream down.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default "+constants.DefaultListenAddr+")")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	cl := control.NewClient(controlConfig(cfg))
	defer cl.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := stream.NewServer(cl, log.New(os.Stderr, "", log.LstdFlags))
	return srv.Run(ctx, addr)
}
