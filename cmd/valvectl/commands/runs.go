package commands

import (
	"github.com/spf13/cobra"

	"valvenet/internal/printer"
)

var (
	runsDBPath string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), runsDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return printer.Error("Cannot list runs", err.Error(), nil)
		}
		printer.FormatRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsDBPath, "db", "data/valvenet.db", "Run database")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "l", 50, "Maximum runs to show")
	rootCmd.AddCommand(runsCmd)
}
