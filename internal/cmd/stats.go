package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmuxwire/tmuxwire/internal/engine"
	"github.com/tmuxwire/tmuxwire/internal/style"
)

var (
	statsAddr string
	statsJSON bool
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: GroupDiag,
	Short:   "Show counters from a running serve instance",
	Long: `Query the /stats endpoint of a tmuxwire serve instance and render
its connection counters.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsAddr, "addr", "", "Address of the serve instance (default from config)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	addr := statsAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	resp, err := http.Get("http://" + addr + "/stats")
	if err != nil {
		return fmt.Errorf("no serve instance reachable at %s (start one with `tmuxwire serve`): %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stats request to %s returned %s", addr, resp.Status)
	}

	var stats engine.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return fmt.Errorf("decoding stats from %s: %w", addr, err)
	}

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	printStats(stats)
	return nil
}

func printStats(stats engine.Stats) {
	alive := style.Success.Render("yes")
	if !stats.Alive {
		alive = style.Error.Render("no")
	}
	conn := stats.ConnectionID
	if conn == "" {
		conn = style.Dim.Render("none")
	}

	printStat("Connection", conn)
	printStat("Alive", alive)
	printStat("In flight", fmt.Sprintf("%d", stats.InFlight))
	printStat("Queue", fmt.Sprintf("%d/%d", stats.QueueDepth, stats.QueueCapacity))
	printStat("Notifications", fmt.Sprintf("%d seen, %d dropped", stats.NotificationsSeen, stats.NotificationsDropped))
	printStat("Commands", fmt.Sprintf("%d run, %d failed", stats.CommandsRun, stats.CommandsFailed))
	printStat("Timeouts", fmt.Sprintf("%d", stats.Timeouts))
	printStat("Respawns", fmt.Sprintf("%d", stats.Respawns))
	if stats.LastError != "" {
		printStat("Last error", style.Error.Render(stats.LastError))
	}
	if !stats.LastActivity.IsZero() {
		printStat("Last activity", fmt.Sprintf("%s ago", time.Since(stats.LastActivity).Round(time.Second)))
	}
}

func printStat(label, value string) {
	fmt.Printf("%s  %s\n", style.Bold.Render(fmt.Sprintf("%-14s", label)), value)
}
