package graph

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// Store is the in-memory entity store. Exported methods take the store
// lock; the unexported variants expect the caller to hold it.
type Store struct {
	mu sync.RWMutex

	nodes     map[string]*Node
	nodeOrder []string

	edges     map[string]*Edge
	edgeOrder []string
	touching  map[string][]string

	interactions   []Interaction
	byContact      map[string][]int
	interactionIDs map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		nodes:          make(map[string]*Node),
		edges:          make(map[string]*Edge),
		touching:       make(map[string][]string),
		byContact:      make(map[string][]int),
		interactionIDs: make(map[string]struct{}),
	}
}

func (s *Store) UpsertNode(n Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertNode(n)
}

func (s *Store) UpsertEdge(e Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertEdge(e)
}

func (s *Store) AppendInteraction(rec Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendInteraction(rec)
}

func (s *Store) FindNode(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return cloneNode(*n), true
}

func (s *Store) EdgesTouching(id string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgesTouching(id)
}

// Nodes lists nodes of the given kind in insertion order. An empty kind
// lists every node.
func (s *Store) Nodes(kind NodeKind) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listNodes(kind)
}

func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, cloneEdge(*s.edges[id]))
	}
	return out
}

func (s *Store) Interactions(contactID string) []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contactInteractions(contactID)
}

func (s *Store) AllInteractions() []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Interaction(nil), s.interactions...)
}

func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &Snapshot{
		Nodes:        s.listNodes(""),
		Edges:        make([]Edge, 0, len(s.edgeOrder)),
		Interactions: append([]Interaction(nil), s.interactions...),
	}
	for _, id := range s.edgeOrder {
		snap.Edges = append(snap.Edges, cloneEdge(*s.edges[id]))
	}
	return snap
}

func (s *Store) upsertNode(n Node) error {
	n.ID = strings.TrimSpace(n.ID)
	if n.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidNode)
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q for %s", ErrInvalidNode, n.Kind, n.ID)
	}
	n = normalizeVariant(n)

	existing, ok := s.nodes[n.ID]
	if ok && existing.Kind != n.Kind {
		return fmt.Errorf("%w: %s is %s, not %s", ErrKindMismatch, n.ID, existing.Kind, n.Kind)
	}

	stored := cloneNode(n)
	if stored.Contact != nil {
		// Derived fields are owned by the store.
		stored.Contact.InfluenceScore = 0
		stored.Contact.InteractionCount = 0
		stored.Contact.LastInteraction = time.Time{}
		if ok {
			stored.Contact.InfluenceScore = existing.Contact.InfluenceScore
			stored.Contact.InteractionCount = existing.Contact.InteractionCount
			stored.Contact.LastInteraction = existing.Contact.LastInteraction
			if stored.Contact.ReportsTo == "" {
				stored.Contact.ReportsTo = existing.Contact.ReportsTo
			}
		}
	}

	if stored.Deal != nil && ok && existing.Deal.LastActivity.After(stored.Deal.LastActivity) {
		stored.Deal.LastActivity = existing.Deal.LastActivity
	}

	if !ok {
		s.nodeOrder = append(s.nodeOrder, n.ID)
	}
	s.nodes[n.ID] = &stored
	return nil
}

func (s *Store) upsertEdge(e Edge) error {
	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidEdge)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q for %s", ErrInvalidEdge, e.Type, e.ID)
	}
	if e.Source == e.Target {
		return fmt.Errorf("%w: %s is a self loop", ErrInvalidEdge, e.ID)
	}
	if _, ok := s.nodes[e.Source]; !ok {
		return &ReferentialError{Ref: "edge " + e.ID, MissingID: e.Source}
	}
	if _, ok := s.nodes[e.Target]; !ok {
		return &ReferentialError{Ref: "edge " + e.ID, MissingID: e.Target}
	}
	if prev, ok := s.edges[e.ID]; ok && (prev.Source != e.Source || prev.Target != e.Target || prev.Type != e.Type) {
		return fmt.Errorf("%w: %s already joins %s to %s as %s", ErrInvalidEdge, e.ID, prev.Source, prev.Target, prev.Type)
	}
	e.Strength = clampStrength(e.Strength)

	// One edge per (source, target, type): a second id for the same
	// relationship updates the stored edge.
	if existing := s.findTyped(e.Source, e.Target, e.Type); existing != nil {
		e.ID = existing.ID
		if e.Metadata == nil {
			e.Metadata = existing.Metadata
		}
	}
	s.putEdge(e)

	if inverseType, ok := e.Type.inverse(); ok {
		inverse := Edge{
			ID:        inverseEdgeID(e.Target, inverseType, e.Source),
			Source:    e.Target,
			Target:    e.Source,
			Type:      inverseType,
			Strength:  e.Strength,
			Confirmed: e.Confirmed,
		}
		if existing := s.findTyped(e.Target, e.Source, inverseType); existing != nil {
			inverse.ID = existing.ID
			inverse.Metadata = existing.Metadata
		}
		s.putEdge(inverse)
	}

	switch e.Type {
	case EdgeReportsTo:
		s.setReportsTo(e.Source, e.Target)
	case EdgeManages:
		s.setReportsTo(e.Target, e.Source)
	}
	return nil
}

func (s *Store) putEdge(e Edge) {
	stored := cloneEdge(e)
	if _, ok := s.edges[e.ID]; ok {
		s.edges[e.ID] = &stored
		return
	}
	s.edges[e.ID] = &stored
	s.edgeOrder = append(s.edgeOrder, e.ID)
	s.touch(e.Source, e.ID)
	s.touch(e.Target, e.ID)
}

func (s *Store) touch(nodeID, edgeID string) {
	s.touching[nodeID] = append(s.touching[nodeID], edgeID)
}

func (s *Store) setReportsTo(contactID, managerID string) {
	n, ok := s.nodes[contactID]
	if !ok || n.Contact == nil {
		return
	}
	if m, ok := s.nodes[managerID]; !ok || m.Kind != KindContact {
		return
	}
	n.Contact.ReportsTo = managerID
}

func (s *Store) appendInteraction(rec Interaction) error {
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return fmt.Errorf("interaction id is required")
	}
	contact, ok := s.nodes[rec.ContactID]
	if !ok || contact.Kind != KindContact {
		return &ReferentialError{Ref: "interaction " + rec.ID, MissingID: rec.ContactID}
	}
	if rec.DealID != "" {
		if deal, ok := s.nodes[rec.DealID]; !ok || deal.Kind != KindDeal {
			return &ReferentialError{Ref: "interaction " + rec.ID, MissingID: rec.DealID}
		}
	}
	if _, dup := s.interactionIDs[rec.ID]; dup {
		return nil
	}

	s.interactionIDs[rec.ID] = struct{}{}
	s.interactions = append(s.interactions, rec)
	s.byContact[rec.ContactID] = append(s.byContact[rec.ContactID], len(s.interactions)-1)

	contact.Contact.InteractionCount++
	if rec.Date.After(contact.Contact.LastInteraction) {
		contact.Contact.LastInteraction = rec.Date
	}
	if rec.DealID != "" {
		deal := s.nodes[rec.DealID]
		if rec.Date.After(deal.Deal.LastActivity) {
			deal.Deal.LastActivity = rec.Date
		}
	}
	return nil
}

func (s *Store) listNodes(kind NodeKind) []Node {
	out := make([]Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		if kind != "" && n.Kind != kind {
			continue
		}
		out = append(out, cloneNode(*n))
	}
	return out
}

func (s *Store) edgesTouching(id string) []Edge {
	ids := s.touching[id]
	out := make([]Edge, 0, len(ids))
	for _, edgeID := range ids {
		out = append(out, cloneEdge(*s.edges[edgeID]))
	}
	return out
}

func (s *Store) contactInteractions(contactID string) []Interaction {
	idx := s.byContact[contactID]
	out := make([]Interaction, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.interactions[i])
	}
	return out
}

func (s *Store) findTyped(source, target string, edgeType EdgeType) *Edge {
	for _, id := range s.touching[source] {
		e := s.edges[id]
		if e.Source == source && e.Target == target && e.Type == edgeType {
			return e
		}
	}
	return nil
}

// linked reports whether any edge joins a and b in either direction.
func (s *Store) linked(a, b string) bool {
	for _, id := range s.touching[a] {
		if s.edges[id].Other(a) == b {
			return true
		}
	}
	return false
}

func inverseEdgeID(source string, edgeType EdgeType, target string) string {
	return source + ":" + string(edgeType) + ":" + target
}

func clampStrength(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalizeVariant(n Node) Node {
	switch n.Kind {
	case KindContact:
		if n.Contact == nil {
			n.Contact = &ContactInfo{}
		}
		n.Account, n.Deal = nil, nil
	case KindAccount:
		if n.Account == nil {
			n.Account = &AccountInfo{}
		}
		n.Contact, n.Deal = nil, nil
	case KindDeal:
		if n.Deal == nil {
			n.Deal = &DealInfo{}
		}
		if n.Deal.Value < 0 {
			n.Deal.Value = 0
		}
		n.Deal.Probability = clampInt(n.Deal.Probability, 0, 100)
		n.Contact, n.Account = nil, nil
	}
	return n
}

func cloneNode(n Node) Node {
	if n.Contact != nil {
		c := *n.Contact
		c.Skills = append([]string(nil), c.Skills...)
		c.Schools = append([]string(nil), c.Schools...)
		c.PastCompanies = append([]string(nil), c.PastCompanies...)
		n.Contact = &c
	}
	if n.Account != nil {
		a := *n.Account
		n.Account = &a
	}
	if n.Deal != nil {
		d := *n.Deal
		n.Deal = &d
	}
	return n
}

func cloneEdge(e Edge) Edge {
	if e.Metadata != nil {
		meta := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = v
		}
		e.Metadata = meta
	}
	return e
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
