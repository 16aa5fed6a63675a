package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"valvenet/internal/orchestrator"
	"valvenet/internal/printer"
	sqlitestore "valvenet/internal/store/sqlite"
	"valvenet/internal/valve"
)

var (
	solveNoMemo bool
	solveDBPath string
	solveLabel  string
)

var solveCmd = &cobra.Command{
	Use:   "solve FILE",
	Short: "Solve a valve network in both modes",
	Long: `Solve reads a valve network and prints the best single-agent release over
30 minutes and the best two-agent release over 26 minutes each.

With --db the run is also recorded in a sqlite run history, and identical
inputs reuse the stored result.`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().BoolVar(&solveNoMemo, "no-memo", false, "Disable the search memo table")
	solveCmd.Flags().StringVar(&solveDBPath, "db", "", "Record the run in this sqlite database")
	solveCmd.Flags().StringVar(&solveLabel, "label", "", "Run label (defaults to the file name)")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	content, err := os.ReadFile(args[0])
	if err != nil {
		return printer.Error("Cannot read input", err.Error(), []string{"Check the file path and permissions."})
	}
	label := solveLabel
	if label == "" {
		label = filepath.Base(args[0])
	}

	if solveDBPath != "" {
		return solveRecorded(ctx, label, string(content))
	}

	network, err := valve.NewParser().Parse(string(content))
	if err != nil {
		return printer.Error("Invalid valve network", err.Error(), []string{
			"Each line must look like: Valve AA has flow rate=0; tunnels lead to valves DD, II",
		})
	}
	printer.Step("Solving %s (%d valves, %d with flow)\n", label, network.Len(), len(network.FlowValves()))
	res, err := orchestrator.Solve(ctx, network, orchestrator.SolveOptions{Memoize: !solveNoMemo})
	if err != nil {
		return printer.Error("Search failed", err.Error(), nil)
	}
	printScores(res.Single, res.Dual)
	printer.Info("  states expanded: %d, memo hits: %d, elapsed: %s\n", res.Stats.States, res.Stats.MemoHits, res.Elapsed)
	return nil
}

func solveRecorded(ctx context.Context, label, input string) error {
	store, err := openStore(ctx, solveDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := orchestrator.New(store, nil, nil, nil, orchestrator.Config{DisableMemo: solveNoMemo}, log.New(io.Discard, "", 0))
	run, err := svc.SubmitRun(ctx, orchestrator.SubmitRunInput{Label: label, Input: input})
	if errors.Is(err, orchestrator.ErrInvalidInput) {
		return printer.Error("Invalid valve network", err.Error(), invalidRunSuggestions(run.ID))
	}
	if err != nil {
		return printer.Error("Run failed", err.Error(), nil)
	}
	printScores(run.SingleScore, run.DualScore)
	if run.CacheHit {
		printer.Warning("reused an earlier result for identical input\n")
	}
	printer.Info("  run %s recorded in %s\n", run.ID, solveDBPath)
	return nil
}

// invalidRunSuggestions points at the recorded failed run, if one was created.
func invalidRunSuggestions(runID string) []string {
	if runID == "" {
		return nil
	}
	return []string{fmt.Sprintf("The failed run was recorded as %s.", runID)}
}

func openStore(ctx context.Context, dbPath string) (*sqlitestore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(dbPath)), 0o755); err != nil {
		return nil, printer.Error("Cannot create database directory", err.Error(), nil)
	}
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		return nil, printer.Error("Cannot open run database", err.Error(), nil)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, printer.Error("Cannot migrate run database", err.Error(), nil)
	}
	return store, nil
}

func printScores(single, dual int) {
	printer.Success("single agent, 30 minutes: %d\n", single)
	printer.Success("two agents, 26 minutes each: %d\n", dual)
}
