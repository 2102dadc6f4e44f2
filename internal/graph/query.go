package graph

import (
	"fmt"
	"sort"
)

// Filter narrows Subgraph to the contacts attached to an account or deal and
// above an influence floor. Zero values disable a criterion.
type Filter struct {
	AccountID    string `json:"account_id,omitempty"`
	DealID       string `json:"deal_id,omitempty"`
	MinInfluence int    `json:"min_influence,omitempty"`
}

type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Relationship pairs an edge with the node on its far side.
type Relationship struct {
	Edge  Edge `json:"edge"`
	Other Node `json:"other"`
}

func (g *Graph) Subgraph(f Filter) GraphData {
	s := g.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	keep := make(map[string]bool, len(s.nodeOrder))
	data := GraphData{Nodes: []Node{}, Edges: []Edge{}}
	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		if n.Kind == KindContact && !s.contactMatches(n, f) {
			continue
		}
		keep[id] = true
		data.Nodes = append(data.Nodes, cloneNode(*n))
	}
	for _, id := range s.edgeOrder {
		e := s.edges[id]
		if keep[e.Source] && keep[e.Target] {
			data.Edges = append(data.Edges, cloneEdge(*e))
		}
	}
	return data
}

func (s *Store) contactMatches(n *Node, f Filter) bool {
	if n.Contact.InfluenceScore < f.MinInfluence {
		return false
	}
	if f.AccountID != "" && s.findTyped(n.ID, f.AccountID, EdgeWorksAt) == nil {
		return false
	}
	if f.DealID != "" && !s.hasDealRole(n.ID, f.DealID) {
		return false
	}
	return true
}

func (s *Store) hasDealRole(contactID, dealID string) bool {
	for _, id := range s.touching[contactID] {
		e := s.edges[id]
		if e.Source == contactID && e.Target == dealID && e.Type.DealRole() {
			return true
		}
	}
	return false
}

// AccountContacts lists the contacts working at an account, most
// influential first.
func (g *Graph) AccountContacts(accountID string) ([]Node, error) {
	s := g.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nodes[accountID]; !ok || n.Kind != KindAccount {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	out := s.accountContacts(accountID)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Contact.InfluenceScore > out[j].Contact.InfluenceScore
	})
	return out, nil
}

func (s *Store) accountContacts(accountID string) []Node {
	var out []Node
	for _, id := range s.touching[accountID] {
		e := s.edges[id]
		if e.Type != EdgeWorksAt || e.Target != accountID {
			continue
		}
		if n, ok := s.nodes[e.Source]; ok && n.Kind == KindContact {
			out = append(out, cloneNode(*n))
		}
	}
	return out
}

func (g *Graph) ContactRelationships(contactID string) ([]Relationship, error) {
	s := g.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nodes[contactID]; !ok || n.Kind != KindContact {
		return nil, fmt.Errorf("contact %s: %w", contactID, ErrNotFound)
	}
	var out []Relationship
	for _, id := range s.touching[contactID] {
		e := s.edges[id]
		other, ok := s.nodes[e.Other(contactID)]
		if !ok {
			continue
		}
		out = append(out, Relationship{Edge: cloneEdge(*e), Other: cloneNode(*other)})
	}
	return out, nil
}
