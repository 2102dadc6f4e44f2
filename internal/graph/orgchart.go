package graph

import (
	"fmt"
	"sort"
)

type OrgEntry struct {
	ContactID string   `json:"contact_id"`
	Name      string   `json:"name"`
	Title     string   `json:"title,omitempty"`
	ReportsTo string   `json:"reports_to,omitempty"`
	Manages   []string `json:"manages,omitempty"`
	Level     int      `json:"level"`
	InCycle   bool     `json:"in_cycle,omitempty"`
}

// OrgChart lays out the reporting structure among the contacts working at an
// account. Only reporting lines between members of the account are followed.
func (g *Graph) OrgChart(accountID string) ([]OrgEntry, error) {
	s := g.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nodes[accountID]; !ok || n.Kind != KindAccount {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}

	members := s.accountContacts(accountID)
	isMember := make(map[string]bool, len(members))
	for _, m := range members {
		isMember[m.ID] = true
	}

	managerOf := make(map[string]string)
	for _, m := range members {
		for _, id := range s.touching[m.ID] {
			e := s.edges[id]
			if !isMember[e.Source] || !isMember[e.Target] {
				continue
			}
			var report, manager string
			switch e.Type {
			case EdgeReportsTo:
				report, manager = e.Source, e.Target
			case EdgeManages:
				report, manager = e.Target, e.Source
			default:
				continue
			}
			if _, set := managerOf[report]; !set {
				managerOf[report] = manager
			}
		}
	}

	reports := make(map[string][]string)
	for _, m := range members {
		if manager, ok := managerOf[m.ID]; ok {
			reports[manager] = append(reports[manager], m.ID)
		}
	}

	out := make([]OrgEntry, 0, len(members))
	for _, m := range members {
		out = append(out, OrgEntry{
			ContactID: m.ID,
			Name:      m.Name,
			Title:     m.Contact.Title,
			ReportsTo: managerOf[m.ID],
			Manages:   reports[m.ID],
			Level:     orgLevel(m.ID, managerOf, map[string]bool{}),
			InCycle:   onCycle(m.ID, managerOf),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

// orgLevel counts reporting hops up to the top. A node reached twice counts
// as a root, which bounds the walk on cyclic data.
func orgLevel(id string, managerOf map[string]string, visited map[string]bool) int {
	if visited[id] {
		return 0
	}
	visited[id] = true
	manager, ok := managerOf[id]
	if !ok {
		return 0
	}
	return 1 + orgLevel(manager, managerOf, visited)
}

func onCycle(id string, managerOf map[string]string) bool {
	seen := map[string]bool{id: true}
	for cur := id; ; {
		next, ok := managerOf[cur]
		if !ok {
			return false
		}
		if next == id {
			return true
		}
		if seen[next] {
			return false
		}
		seen[next] = true
		cur = next
	}
}
