package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"valvenet/internal/printer"
	"valvenet/internal/valve"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Print the condensed distance table of a valve network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return printer.Error("Cannot read input", err.Error(), nil)
		}
		network, err := valve.NewParser().Parse(string(content))
		if err != nil {
			return printer.Error("Invalid valve network", err.Error(), nil)
		}
		d := valve.Reduce(network)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d valves, %d with flow, total flow %d\n\n",
			network.Len(), len(network.FlowValves()), network.TotalFlow())
		for _, src := range d.Sources() {
			fmt.Fprintf(out, "%s (flow %d):", src, network.Flow(src))
			for _, t := range d.From(src) {
				fmt.Fprintf(out, " %s=%d", t.Name, t.Distance)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
