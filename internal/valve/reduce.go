package valve

import "sort"

type Target struct {
	Name     string
	Distance int
}

// Distances is the condensed graph: for the start valve and every
// positive-flow valve, the hop distance to each other reachable
// positive-flow valve. Read-only once built.
type Distances struct {
	edges map[string]map[string]int
	order map[string][]Target
}

// Reduce runs one breadth-first traversal per source. Zero-flow valves other
// than the start never show up as sources or targets, and unreachable valves
// are left out.
func Reduce(n *Network) *Distances {
	d := &Distances{
		edges: make(map[string]map[string]int),
		order: make(map[string][]Target),
	}
	for _, name := range n.names {
		if name != StartValve && n.valves[name].Flow <= 0 {
			continue
		}
		targets := n.bfs(name)
		if len(targets) == 0 {
			continue
		}
		d.edges[name] = targets
		list := make([]Target, 0, len(targets))
		for t, dist := range targets {
			list = append(list, Target{Name: t, Distance: dist})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Distance != list[j].Distance {
				return list[i].Distance < list[j].Distance
			}
			return list[i].Name < list[j].Name
		})
		d.order[name] = list
	}
	return d
}

func (n *Network) bfs(source string) map[string]int {
	out := make(map[string]int)
	seen := map[string]bool{source: true}
	type item struct {
		name string
		dist int
	}
	queue := []item{{name: source}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist > 0 && n.valves[cur.name].Flow > 0 {
			out[cur.name] = cur.dist
		}
		for _, next := range n.valves[cur.name].Tunnels {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, item{name: next, dist: cur.dist + 1})
		}
	}
	return out
}

// From lists targets ordered by distance, then name.
func (d *Distances) From(name string) []Target {
	return append([]Target(nil), d.order[name]...)
}

func (d *Distances) Distance(from, to string) (int, bool) {
	dist, ok := d.edges[from][to]
	return dist, ok
}

// Sources returns every valve that has at least one condensed edge, sorted.
func (d *Distances) Sources() []string {
	out := make([]string, 0, len(d.edges))
	for name := range d.edges {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (d *Distances) Empty() bool {
	return len(d.edges) == 0
}
