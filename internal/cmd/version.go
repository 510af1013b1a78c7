package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmuxwire/tmuxwire/internal/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the " + cli.Name() + " version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", cli.Name(), cli.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
