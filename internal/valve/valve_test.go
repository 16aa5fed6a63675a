package valve

import (
	"errors"
	"reflect"
	"testing"
)

const canonicalInput = `Valve AA has flow rate=0; tunnels lead to valves DD, II, BB
Valve BB has flow rate=13; tunnels lead to valves CC, AA
Valve CC has flow rate=2; tunnels lead to valves DD, BB
Valve DD has flow rate=20; tunnels lead to valves CC, AA, EE
Valve EE has flow rate=3; tunnels lead to valves FF, DD
Valve FF has flow rate=0; tunnels lead to valves EE, GG
Valve GG has flow rate=0; tunnels lead to valves FF, HH
Valve HH has flow rate=22; tunnel leads to valve GG
Valve II has flow rate=0; tunnels lead to valves AA, JJ
Valve JJ has flow rate=21; tunnel leads to valve II
`

func mustParse(t *testing.T, input string) *Network {
	t.Helper()
	n, err := NewParser().Parse(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return n
}

func TestParseCanonical(t *testing.T) {
	n := mustParse(t, canonicalInput)
	if n.Len() != 10 {
		t.Fatalf("expected 10 valves, got %d", n.Len())
	}
	hh, ok := n.Valve("HH")
	if !ok {
		t.Fatalf("expected HH to be parsed")
	}
	if hh.Flow != 22 || !reflect.DeepEqual(hh.Tunnels, []string{"GG"}) {
		t.Fatalf("unexpected HH: %+v", hh)
	}
	want := []string{"BB", "CC", "DD", "EE", "HH", "JJ"}
	if got := n.FlowValves(); !reflect.DeepEqual(got, want) {
		t.Fatalf("flow valves = %v, want %v", got, want)
	}
	if n.TotalFlow() != 81 {
		t.Fatalf("total flow = %d, want 81", n.TotalFlow())
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "\n\n", ErrEmptyInput},
		{"garbage", "Valve AA is broken", ErrMalformedRecord},
		{"mixed plurality", "Valve AA has flow rate=0; tunnel lead to valves AA", ErrMalformedRecord},
		{"singular verb plural noun", "Valve AA has flow rate=0; tunnels leads to valve AA", ErrMalformedRecord},
		{"duplicate", "Valve AA has flow rate=0; tunnel leads to valve AA\nValve AA has flow rate=1; tunnel leads to valve AA", ErrDuplicateValve},
		{"dangling", "Valve AA has flow rate=0; tunnel leads to valve ZZ", ErrDanglingTunnel},
		{"missing start", "Valve BB has flow rate=3; tunnel leads to valve BB", ErrMissingStart},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewParser().Parse(tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParserReuse(t *testing.T) {
	p := NewParser()
	a, err := p.Parse(canonicalInput)
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	b, err := p.Parse(canonicalInput)
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if !reflect.DeepEqual(a.Names(), b.Names()) {
		t.Fatalf("expected identical networks from a reused parser")
	}
}

func TestReduceCanonical(t *testing.T) {
	d := Reduce(mustParse(t, canonicalInput))

	wantSources := []string{"AA", "BB", "CC", "DD", "EE", "HH", "JJ"}
	if got := d.Sources(); !reflect.DeepEqual(got, wantSources) {
		t.Fatalf("sources = %v, want %v", got, wantSources)
	}
	checks := []struct {
		from, to string
		dist     int
	}{
		{"AA", "DD", 1},
		{"AA", "BB", 1},
		{"AA", "JJ", 2},
		{"AA", "HH", 5},
		{"JJ", "HH", 7},
		{"HH", "EE", 3},
	}
	for _, c := range checks {
		got, ok := d.Distance(c.from, c.to)
		if !ok || got != c.dist {
			t.Fatalf("distance %s->%s = %d (ok=%v), want %d", c.from, c.to, got, ok, c.dist)
		}
	}
	for _, src := range d.Sources() {
		for _, target := range d.From(src) {
			if target.Name == src {
				t.Fatalf("source %s lists itself", src)
			}
			if target.Name == "AA" || target.Name == "FF" || target.Name == "GG" || target.Name == "II" {
				t.Fatalf("zero-flow valve %s listed as target of %s", target.Name, src)
			}
		}
	}
	if _, ok := d.Distance("FF", "EE"); ok {
		t.Fatalf("zero-flow valve FF must not be a source")
	}
}

func TestReduceAllZeroFlow(t *testing.T) {
	n := mustParse(t, "Valve AA has flow rate=0; tunnel leads to valve BB\nValve BB has flow rate=0; tunnel leads to valve AA")
	d := Reduce(n)
	if !d.Empty() {
		t.Fatalf("expected empty distances, got sources %v", d.Sources())
	}
}

func TestReduceSkipsUnreachable(t *testing.T) {
	n := mustParse(t, `Valve AA has flow rate=0; tunnel leads to valve BB
Valve BB has flow rate=5; tunnel leads to valve AA
Valve CC has flow rate=7; tunnel leads to valve DD
Valve DD has flow rate=0; tunnel leads to valve CC`)
	d := Reduce(n)
	if _, ok := d.Distance("AA", "CC"); ok {
		t.Fatalf("unreachable CC must not be a target of AA")
	}
	if got := d.From("AA"); len(got) != 1 || got[0].Name != "BB" {
		t.Fatalf("unexpected targets from AA: %v", got)
	}
	if _, ok := d.Distance("CC", "BB"); ok {
		t.Fatalf("unreachable BB must not be a target of CC")
	}
}
