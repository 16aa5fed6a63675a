package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "valvectl",
	Short: "valvectl - solve and inspect valve networks",
	Long: `valvectl finds the largest pressure release for a valve network, for one
agent over 30 minutes and for two cooperating agents over 26 minutes each.

Inputs use one record per line:
  Valve AA has flow rate=0; tunnels lead to valves DD, II, BB`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
