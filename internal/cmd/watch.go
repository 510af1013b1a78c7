package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tmuxwire/tmuxwire/internal/control"
	"github.com/tmuxwire/tmuxwire/internal/protocol"
	"github.com/tmuxwire/tmuxwire/internal/stream"
	"github.com/tmuxwire/tmuxwire/internal/style"
)

var (
	watchKinds []string
	watchUntil string
	watchJSON  bool
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: GroupCore,
	Short:   "Stream tmux notifications to the terminal",
	Long: `Attach to the server in control mode and print every asynchronous
notification as it arrives: pane output, window and session changes,
layout updates, and the rest. Runs until interrupted.

  tmuxwire watch
  tmuxwire watch --kinds output,window-add
  tmuxwire watch --until session-changed
  tmuxwire watch --json | jq .kind

Kind names are the tmux tags without the leading %%, e.g. "output",
"sessions-changed", "window-renamed".`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchKinds, "kinds", nil, "Only print these notification kinds (comma separated)")
	watchCmd.Flags().StringVar(&watchUntil, "until", "", "Exit after the first notification of this kind")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Output as JSON lines")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}

	want := make(map[protocol.Kind]bool)
	for _, name := range watchKinds {
		k, ok := protocol.KindByName(strings.TrimSpace(name))
		if !ok {
			return fmt.Errorf("unknown notification kind %q", name)
		}
		want[k] = true
	}

	var until protocol.Kind
	haveUntil := false
	if watchUntil != "" {
		k, ok := protocol.KindByName(strings.TrimSpace(watchUntil))
		if !ok {
			return fmt.Errorf("unknown notification kind %q", watchUntil)
		}
		until, haveUntil = k, true
	}

	cl := control.NewClient(controlConfig(cfg))
	defer cl.Close()
	if err := cl.Connect(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	ch := cl.Notifications()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-ch:
			if len(want) > 0 && !want[n.Kind] {
				continue
			}
			if watchJSON {
				if err := enc.Encode(stream.NewEvent(n)); err != nil {
					return err
				}
			} else {
				fmt.Println(formatNotification(n))
			}
			if haveUntil && n.Kind == until {
				return nil
			}
		}
	}
}

// formatNotification renders one notification as a human line:
// timestamp, titled kind, then the most useful fields.
func formatNotification(n protocol.Notification) string {
	when := style.Dim.Render(n.When.Format("15:04:05"))
	label := style.Info.Render(displayKind(n.Kind))
	detail := notificationDetail(n)
	if detail == "" {
		return fmt.Sprintf("%s %s", when, label)
	}
	return fmt.Sprintf("%s %s %s", when, label, detail)
}

var kindTitler = cases.Title(language.English)

// displayKind renders "window-add" as "Window Add".
func displayKind(k protocol.Kind) string {
	return kindTitler.String(strings.ReplaceAll(k.Name(), "-", " "))
}

// notificationDetail summarizes a notification's fields for display.
// Pane output is octal-decoded; other kinds list their parsed fields
// in stable order.
func notificationDetail(n protocol.Notification) string {
	switch n.Kind {
	case protocol.KindOutput, protocol.KindExtendedOutput:
		return fmt.Sprintf("%s %s", n.PaneID(), protocol.UnescapeOctal(n.Output()))
	case protocol.KindRaw:
		return n.Raw
	}

	keys := make([]string, 0, len(n.Data))
	for k := range n.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, n.Data[k]))
	}
	return strings.Join(parts, " ")
}
