package graph

import "sort"

const DefaultMaxDepth = 3

// ShortestPath returns the node ids on a shortest relationship path from
// source to target, or nil when none exists within maxDepth hops. Edges are
// walked in both directions; structural edges are skipped. A maxDepth of
// zero or less uses DefaultMaxDepth.
func (g *Graph) ShortestPath(source, target string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	g.store.mu.RLock()
	defer g.store.mu.RUnlock()
	return g.store.shortestPath(source, target, maxDepth)
}

// FindPath is ShortestPath with the default depth.
func (g *Graph) FindPath(source, target string) []string {
	return g.ShortestPath(source, target, DefaultMaxDepth)
}

func (s *Store) shortestPath(source, target string, maxDepth int) []string {
	if _, ok := s.nodes[source]; !ok {
		return nil
	}
	if _, ok := s.nodes[target]; !ok {
		return nil
	}
	if source == target {
		return []string{source}
	}

	parent := map[string]string{source: ""}
	frontier := []string{source}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, nb := range s.neighbours(id) {
				if _, seen := parent[nb]; seen {
					continue
				}
				parent[nb] = id
				if nb == target {
					return walkBack(parent, target)
				}
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return nil
}

// neighbours returns the far ends of id's non-structural edges, strongest
// edge first and edge id breaking ties.
func (s *Store) neighbours(id string) []string {
	edges := make([]*Edge, 0, len(s.touching[id]))
	for _, edgeID := range s.touching[id] {
		e := s.edges[edgeID]
		if !e.Type.Structural() {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Strength != edges[j].Strength {
			return edges[i].Strength > edges[j].Strength
		}
		return edges[i].ID < edges[j].ID
	})
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Other(id))
	}
	return out
}

func walkBack(parent map[string]string, target string) []string {
	var path []string
	for id := target; id != ""; id = parent[id] {
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
