// Package valve models the raw valve network and condenses it into a
// distance table over the valves worth opening.
package valve

import (
	"errors"
	"fmt"
	"sort"
)

// StartValve is the valve every agent starts from.
const StartValve = "AA"

var (
	ErrEmptyInput      = errors.New("input has no valve records")
	ErrMalformedRecord = errors.New("malformed valve record")
	ErrDuplicateValve  = errors.New("duplicate valve")
	ErrDanglingTunnel  = errors.New("tunnel leads to unknown valve")
	ErrMissingStart    = errors.New("start valve is missing")
)

type Valve struct {
	Name    string
	Flow    int
	Tunnels []string
}

// Network is immutable once built and safe to share between queries.
type Network struct {
	valves map[string]Valve
	names  []string
}

func NewNetwork(valves []Valve) (*Network, error) {
	if len(valves) == 0 {
		return nil, ErrEmptyInput
	}
	byName := make(map[string]Valve, len(valves))
	names := make([]string, 0, len(valves))
	for _, v := range valves {
		if v.Flow < 0 {
			return nil, fmt.Errorf("%w: valve %s has negative flow %d", ErrMalformedRecord, v.Name, v.Flow)
		}
		if _, ok := byName[v.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateValve, v.Name)
		}
		tunnels := append([]string(nil), v.Tunnels...)
		byName[v.Name] = Valve{Name: v.Name, Flow: v.Flow, Tunnels: tunnels}
		names = append(names, v.Name)
	}
	for _, v := range byName {
		for _, t := range v.Tunnels {
			if _, ok := byName[t]; !ok {
				return nil, fmt.Errorf("%w: %s -> %s", ErrDanglingTunnel, v.Name, t)
			}
		}
	}
	if _, ok := byName[StartValve]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingStart, StartValve)
	}
	sort.Strings(names)
	return &Network{valves: byName, names: names}, nil
}

func (n *Network) Valve(name string) (Valve, bool) {
	v, ok := n.valves[name]
	return v, ok
}

func (n *Network) Flow(name string) int {
	return n.valves[name].Flow
}

// Names returns every valve name in sorted order.
func (n *Network) Names() []string {
	return append([]string(nil), n.names...)
}

func (n *Network) Len() int {
	return len(n.names)
}

// FlowValves returns the positive-flow valves in sorted order.
func (n *Network) FlowValves() []string {
	out := make([]string, 0)
	for _, name := range n.names {
		if n.valves[name].Flow > 0 {
			out = append(out, name)
		}
	}
	return out
}

func (n *Network) TotalFlow() int {
	total := 0
	for _, v := range n.valves {
		total += v.Flow
	}
	return total
}
