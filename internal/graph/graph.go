package graph

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

const DefaultRecencyWindow = 90 * 24 * time.Hour

// Graph owns a Store and keeps its derived state (influence scores) current.
// One Graph is constructed per session and handed to every caller.
type Graph struct {
	store   *Store
	now     func() time.Time
	recency time.Duration
	logger  *log.Logger
}

type Option func(*Graph)

func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		if now != nil {
			g.now = now
		}
	}
}

func WithRecencyWindow(d time.Duration) Option {
	return func(g *Graph) {
		if d > 0 {
			g.recency = d
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func New(opts ...Option) *Graph {
	g := &Graph{
		store:   NewStore(),
		now:     time.Now,
		recency: DefaultRecencyWindow,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store exposes the underlying store for reads. Mutations made directly on
// it do not refresh influence scores; use Batch for that.
func (g *Graph) Store() *Store {
	return g.store
}

func (g *Graph) Now() time.Time {
	return g.now()
}

// Tx is the mutation handle passed to Batch. It must not escape the callback.
type Tx struct {
	s *Store
}

func (tx *Tx) UpsertNode(n Node) error { return tx.s.upsertNode(n) }

func (tx *Tx) UpsertEdge(e Edge) error { return tx.s.upsertEdge(e) }

func (tx *Tx) AppendInteraction(rec Interaction) error { return tx.s.appendInteraction(rec) }

func (tx *Tx) EdgesTouching(id string) []Edge { return tx.s.edgesTouching(id) }

func (tx *Tx) FindNode(id string) (Node, bool) {
	n, ok := tx.s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return cloneNode(*n), true
}

// Linked reports whether any edge joins a and b, regardless of direction.
func (tx *Tx) Linked(a, b string) bool {
	return tx.s.linked(a, b)
}

// Batch runs fn under the store write lock and recomputes influence scores
// once before releasing it, whether or not fn fails.
func (g *Graph) Batch(fn func(tx *Tx) error) error {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	err := fn(&Tx{s: g.store})
	g.recomputeLocked()
	return err
}

func (g *Graph) UpsertNode(n Node) error {
	return g.Batch(func(tx *Tx) error { return tx.UpsertNode(n) })
}

func (g *Graph) UpsertEdge(e Edge) error {
	return g.Batch(func(tx *Tx) error { return tx.UpsertEdge(e) })
}

// Recompute refreshes every contact's influence score.
func (g *Graph) Recompute() {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	g.recomputeLocked()
}

func (g *Graph) recomputeLocked() {
	now := g.now()
	for _, id := range g.store.nodeOrder {
		n := g.store.nodes[id]
		if n.Kind != KindContact {
			continue
		}
		n.Contact.InfluenceScore = scoreContact(g.store, n, now, g.recency).Total
	}
}

// Restore loads a snapshot into the graph. Nodes go first so edges can be
// checked against them; derived state is rebuilt rather than trusted.
func (g *Graph) Restore(snap *Snapshot) error {
	if snap == nil {
		return nil
	}
	return g.Batch(func(tx *Tx) error {
		for _, n := range snap.Nodes {
			if err := tx.UpsertNode(n); err != nil {
				return fmt.Errorf("restoring node %s: %w", n.ID, err)
			}
		}
		for _, e := range snap.Edges {
			if err := tx.UpsertEdge(e); err != nil {
				return fmt.Errorf("restoring edge %s: %w", e.ID, err)
			}
		}
		for _, rec := range snap.Interactions {
			if err := tx.AppendInteraction(rec); err != nil {
				return fmt.Errorf("restoring interaction %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

func (g *Graph) Snapshot() *Snapshot {
	return g.store.Snapshot()
}

func (g *Graph) FindNode(id string) (Node, bool) {
	return g.store.FindNode(id)
}
