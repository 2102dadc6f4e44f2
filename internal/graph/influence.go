package graph

import (
	"fmt"
	"math"
	"time"
)

const (
	roleCap       = 30
	dealCap       = 20
	strengthCap   = 20
	recencyCap    = 15
	centralityCap = 15

	strongEdge = 0.7
)

// ScoreBreakdown holds the capped components of a contact's influence score.
type ScoreBreakdown struct {
	ContactID  string  `json:"contact_id"`
	Role       float64 `json:"role"`
	Deals      float64 `json:"deals"`
	Strength   float64 `json:"strength"`
	Recency    float64 `json:"recency"`
	Centrality float64 `json:"centrality"`
	Total      int     `json:"total"`
}

// Influence returns the score breakdown for a contact as of the graph clock.
func (g *Graph) Influence(contactID string) (ScoreBreakdown, error) {
	g.store.mu.RLock()
	defer g.store.mu.RUnlock()
	n, ok := g.store.nodes[contactID]
	if !ok || n.Kind != KindContact {
		return ScoreBreakdown{}, fmt.Errorf("contact %s: %w", contactID, ErrNotFound)
	}
	return scoreContact(g.store, n, g.now(), g.recency), nil
}

// scoreContact is a pure function of the store contents, the clock and the
// recency window. The caller holds the store lock.
func scoreContact(s *Store, n *Node, now time.Time, recency time.Duration) ScoreBreakdown {
	b := ScoreBreakdown{ContactID: n.ID}
	if n.Contact == nil {
		return b
	}

	b.Role = math.Min(roleScore(n.Contact.Title), roleCap)

	var dealEdges, strong, relational int
	for _, id := range s.touching[n.ID] {
		e := s.edges[id]
		if e.Source == n.ID && e.Type.DealRole() {
			dealEdges++
		}
		if e.Type.Structural() {
			continue
		}
		relational++
		if e.Strength >= strongEdge {
			strong++
		}
	}
	b.Deals = math.Min(10*float64(dealEdges), dealCap)
	b.Strength = math.Min(3*float64(strong), strengthCap)
	b.Centrality = math.Min(1.5*float64(relational), centralityCap)

	cutoff := now.Add(-recency)
	recent := 0
	for _, i := range s.byContact[n.ID] {
		date := s.interactions[i].Date
		if !date.Before(cutoff) && !date.After(now) {
			recent++
		}
	}
	b.Recency = math.Min(2*float64(recent), recencyCap)

	total := math.Round(b.Role + b.Deals + b.Strength + b.Recency + b.Centrality)
	b.Total = clampInt(int(total), 0, 100)
	return b
}
