package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"valvenet/internal/domain"
	"valvenet/internal/search"
	"valvenet/internal/valve"
)

type SolveOptions struct {
	Memoize bool
}

type Result struct {
	Single     int
	Dual       int
	FlowValves int
	Stats      search.Stats
	Elapsed    time.Duration
}

// SolveSingle is the best release for one agent over 30 minutes.
func SolveSingle(n *valve.Network) (int, error) {
	best, _, err := solveMode(context.Background(), n, valve.Reduce(n), domain.ModeSingle, SolveOptions{Memoize: true})
	return best, err
}

// SolveDual is the best combined release for two agents over 26 minutes each.
func SolveDual(n *valve.Network) (int, error) {
	best, _, err := solveMode(context.Background(), n, valve.Reduce(n), domain.ModeDual, SolveOptions{Memoize: true})
	return best, err
}

// Solve reduces the network once and runs both modes side by side. Each mode
// gets its own engine; only the read-only network and distances are shared.
func Solve(ctx context.Context, n *valve.Network, opts SolveOptions) (Result, error) {
	start := time.Now()
	d := valve.Reduce(n)

	var single, dual int
	var singleStats, dualStats search.Stats
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		single, singleStats, err = solveMode(gCtx, n, d, domain.ModeSingle, opts)
		return err
	})
	g.Go(func() error {
		var err error
		dual, dualStats, err = solveMode(gCtx, n, d, domain.ModeDual, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{
		Single:     single,
		Dual:       dual,
		FlowValves: len(n.FlowValves()),
		Stats: search.Stats{
			States:   singleStats.States + dualStats.States,
			MemoHits: singleStats.MemoHits + dualStats.MemoHits,
		},
		Elapsed: time.Since(start),
	}, nil
}

func solveMode(ctx context.Context, n *valve.Network, d *valve.Distances, mode domain.Mode, opts SolveOptions) (int, search.Stats, error) {
	budget, deleg := search.SingleAgentBudget, false
	if mode == domain.ModeDual {
		budget, deleg = search.DualAgentBudget, true
	}

	engine, err := search.New(n, d, search.Options{
		Memoize:        opts.Memoize,
		DelegateBudget: search.DualAgentBudget,
	})
	if err != nil {
		return 0, search.Stats{}, fmt.Errorf("build %s engine: %w", mode, err)
	}

	started := time.Now()
	best, err := engine.Maximize(ctx, valve.StartValve, 0, budget, 0, deleg)
	stats := engine.Stats()
	observeSolve(mode, time.Since(started), stats)
	if err != nil {
		return 0, stats, fmt.Errorf("solve %s: %w", mode, err)
	}
	return best, stats, nil
}
