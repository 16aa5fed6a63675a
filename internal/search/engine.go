// Package search finds the largest pressure release reachable within a time
// budget over a condensed valve graph, for one agent or for two agents that
// split the valves between them.
//
// An Engine indexes the start valve and every positive-flow valve by ordinal
// so that the set of opened valves fits in a single machine word. Engines
// own their memo table and are not safe for concurrent use; build one per
// query.
package search

import (
	"context"
	"errors"
	"fmt"

	"valvenet/internal/valve"
)

const (
	SingleAgentBudget = 30
	DualAgentBudget   = 26

	maxIndexed = 64
	checkEvery = 1 << 12
)

var (
	ErrTooManyValves   = errors.New("too many flow-bearing valves for the search index")
	ErrUnknownPosition = errors.New("position is not in the condensed graph")
	ErrNegativeBudget  = errors.New("minutes remaining must not be negative")
)

type Options struct {
	// Memoize caches results per (position, opened, minutes, delegation).
	// Scores are identical with and without it.
	Memoize bool
	// DelegateBudget is the fresh budget handed to the second agent.
	DelegateBudget int
}

func (o Options) withDefaults() Options {
	if o.DelegateBudget <= 0 {
		o.DelegateBudget = DualAgentBudget
	}
	return o
}

type Stats struct {
	States   int64
	MemoHits int64
}

type move struct {
	to   int
	cost int
}

type memoKey struct {
	pos     int
	opened  OpenedSet
	minutes int
	deleg   bool
}

type Engine struct {
	opts  Options
	names []string
	index map[string]int
	flows []int
	moves [][]move
	start int

	memo  map[memoKey]int
	stats Stats
	ctx   context.Context
	err   error
}

func New(n *valve.Network, d *valve.Distances, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	names := []string{valve.StartValve}
	for _, name := range n.FlowValves() {
		if name != valve.StartValve {
			names = append(names, name)
		}
	}
	if len(names) > maxIndexed {
		return nil, fmt.Errorf("%w: %d indexed valves, limit %d", ErrTooManyValves, len(names), maxIndexed)
	}

	e := &Engine{
		opts:  opts,
		names: names,
		index: make(map[string]int, len(names)),
		flows: make([]int, len(names)),
		moves: make([][]move, len(names)),
		start: 0,
	}
	for i, name := range names {
		e.index[name] = i
		e.flows[i] = n.Flow(name)
	}
	for i, name := range names {
		for _, t := range d.From(name) {
			to, ok := e.index[t.Name]
			if !ok {
				continue
			}
			e.moves[i] = append(e.moves[i], move{to: to, cost: t.Distance + 1})
		}
	}
	if opts.Memoize {
		e.memo = make(map[memoKey]int)
	}
	return e, nil
}

// Opened builds an OpenedSet from valve names.
func (e *Engine) Opened(names ...string) (OpenedSet, error) {
	var s OpenedSet
	for _, name := range names {
		i, ok := e.index[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownPosition, name)
		}
		s = s.With(i)
	}
	return s, nil
}

func (e *Engine) Stats() Stats {
	return e.stats
}

// Maximize returns the best release from position with minutes left, given
// the valves already opened and the flow rate they already produce. With
// allowDelegation set, the search may at any point hand the unopened valves
// to a second agent that starts fresh from the start valve.
func (e *Engine) Maximize(
	ctx context.Context,
	position string,
	opened OpenedSet,
	minutes int,
	flowRate int,
	allowDelegation bool,
) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	pos, ok := e.index[position]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPosition, position)
	}
	if minutes < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeBudget, minutes)
	}
	if err := ctx.Err(); err != nil {
		e.err = err
		return 0, fmt.Errorf("search aborted: %w", err)
	}
	e.ctx = ctx
	best := e.maximize(pos, opened, minutes, flowRate, allowDelegation)
	e.ctx = nil
	if e.err != nil {
		return 0, fmt.Errorf("search aborted: %w", e.err)
	}
	return best, nil
}

func (e *Engine) maximize(pos int, opened OpenedSet, minutes, flowRate int, deleg bool) int {
	if minutes == 0 {
		return 0
	}
	return flowRate*minutes + e.release(pos, opened, minutes, deleg)
}

// release is maximize with no incoming flow. Every term of the recursion is
// linear in the incoming flow, so this is the part worth memoizing.
func (e *Engine) release(pos int, opened OpenedSet, minutes int, deleg bool) int {
	if e.err != nil {
		return 0
	}
	key := memoKey{pos: pos, opened: opened, minutes: minutes, deleg: deleg}
	if e.memo != nil {
		if v, ok := e.memo[key]; ok {
			e.stats.MemoHits++
			return v
		}
	}
	e.stats.States++
	if e.stats.States%checkEvery == 0 && e.ctx != nil {
		if err := e.ctx.Err(); err != nil {
			e.err = err
			return 0
		}
	}

	flow := 0
	if f := e.flows[pos]; f > 0 && !opened.Has(pos) {
		opened = opened.With(pos)
		flow = f
	}

	baseline := flow * minutes
	best := baseline
	for _, mv := range e.moves[pos] {
		if opened.Has(mv.to) || mv.cost >= minutes {
			continue
		}
		v := mv.cost*flow + e.maximize(mv.to, opened, minutes-mv.cost, flow, deleg)
		best = max(best, v)
	}
	if deleg {
		v := baseline + e.maximize(e.start, opened, e.opts.DelegateBudget, 0, false)
		best = max(best, v)
	}

	if e.memo != nil && e.err == nil {
		e.memo[key] = best
	}
	return best
}
