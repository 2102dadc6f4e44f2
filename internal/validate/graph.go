package validate

import (
	"sort"
	"strings"

	"dealgraph/internal/graph"
)

type index struct {
	nodes    map[string]graph.Node
	outgoing map[string][]graph.Edge
}

func newIndex(snap *graph.Snapshot) *index {
	idx := &index{
		nodes:    make(map[string]graph.Node, len(snap.Nodes)),
		outgoing: make(map[string][]graph.Edge),
	}
	for _, n := range snap.Nodes {
		idx.nodes[n.ID] = n
	}
	for _, e := range snap.Edges {
		idx.outgoing[e.Source] = append(idx.outgoing[e.Source], e)
	}
	return idx
}

func (idx *index) hasOutgoing(id string, edgeType graph.EdgeType) bool {
	for _, e := range idx.outgoing[id] {
		if e.Type == edgeType {
			return true
		}
	}
	return false
}

func (idx *index) hasTyped(source, target string, edgeType graph.EdgeType) bool {
	for _, e := range idx.outgoing[source] {
		if e.Target == target && e.Type == edgeType {
			return true
		}
	}
	return false
}

// managers maps each contact to the managers it reports to, combining
// reports_to edges with inverted manages edges.
func (idx *index) managers() map[string][]string {
	out := make(map[string][]string)
	seen := make(map[[2]string]bool)
	add := func(report, manager string) {
		key := [2]string{report, manager}
		if seen[key] {
			return
		}
		seen[key] = true
		out[report] = append(out[report], manager)
	}
	for _, edges := range idx.outgoing {
		for _, e := range edges {
			switch e.Type {
			case graph.EdgeReportsTo:
				add(e.Source, e.Target)
			case graph.EdgeManages:
				add(e.Target, e.Source)
			}
		}
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out
}

// reportingCycles returns each distinct reporting cycle once, rotated so
// its smallest id comes first.
func (idx *index) reportingCycles() [][]string {
	managers := idx.managers()
	ids := make([]string, 0, len(managers))
	for id := range managers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int)
	seen := make(map[string]bool)
	var cycles [][]string
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		state[id] = onStack
		stack = append(stack, id)
		for _, m := range managers[id] {
			switch state[m] {
			case unvisited:
				visit(m)
			case onStack:
				start := len(stack) - 1
				for stack[start] != m {
					start--
				}
				cycle := canonicalCycle(stack[start:])
				key := strings.Join(cycle, ">")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
	}
	for _, id := range ids {
		if state[id] == unvisited {
			visit(id)
		}
	}
	return cycles
}

func canonicalCycle(path []string) []string {
	minAt := 0
	for i, id := range path {
		if id < path[minAt] {
			minAt = i
		}
	}
	out := make([]string, 0, len(path))
	out = append(out, path[minAt:]...)
	return append(out, path[:minAt]...)
}

func formatCycle(cycle []string) string {
	return strings.Join(append(append([]string(nil), cycle...), cycle[0]), " -> ")
}
