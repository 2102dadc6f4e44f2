package graph

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return New(WithClock(func() time.Time { return testNow }))
}

func contactNode(id, name, title string) Node {
	return Node{ID: id, Name: name, Kind: KindContact, Contact: &ContactInfo{Title: title}}
}

func accountNode(id, name string) Node {
	return Node{ID: id, Name: name, Kind: KindAccount, Account: &AccountInfo{}}
}

func dealNode(id, name string, value float64, stage DealStage) Node {
	return Node{ID: id, Name: name, Kind: KindDeal, Deal: &DealInfo{Value: value, Stage: stage}}
}

func mustUpsertNode(t *testing.T, g *Graph, n Node) {
	t.Helper()
	if err := g.UpsertNode(n); err != nil {
		t.Fatalf("upserting node %s: %v", n.ID, err)
	}
}

func mustUpsertEdge(t *testing.T, g *Graph, e Edge) {
	t.Helper()
	if err := g.UpsertEdge(e); err != nil {
		t.Fatalf("upserting edge %s: %v", e.ID, err)
	}
}

func TestUpsertNodeIdempotent(t *testing.T) {
	g := newTestGraph(t)
	n := contactNode("c1", "Alice", "CTO")

	mustUpsertNode(t, g, n)
	first := g.Snapshot()
	mustUpsertNode(t, g, n)
	second := g.Snapshot()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("snapshot changed after repeated upsert (-first +second):\n%s", diff)
	}
	if len(second.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(second.Nodes))
	}
}

func TestUpsertNodeLaterAttributesWin(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("c1", "Alice", "CTO"))
	mustUpsertNode(t, g, contactNode("c2", "Bob", "Manager"))
	mustUpsertNode(t, g, contactNode("c1", "Alice Smith", "CEO"))

	n, ok := g.FindNode("c1")
	if !ok {
		t.Fatal("expected c1 to exist")
	}
	if n.Name != "Alice Smith" || n.Contact.Title != "CEO" {
		t.Fatalf("expected updated attributes, got %q %q", n.Name, n.Contact.Title)
	}

	nodes := g.Store().Nodes("")
	if nodes[0].ID != "c1" || nodes[1].ID != "c2" {
		t.Fatalf("expected insertion order to be kept, got %s, %s", nodes[0].ID, nodes[1].ID)
	}
}

func TestUpsertNodePreservesDerivedFields(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("c1", "Alice", "CTO"))
	if err := g.Store().AppendInteraction(Interaction{ID: "i1", ContactID: "c1", Type: InteractionCall, Date: testNow}); err != nil {
		t.Fatalf("appending interaction: %v", err)
	}

	overwrite := contactNode("c1", "Alice", "CTO")
	overwrite.Contact.InfluenceScore = 99
	overwrite.Contact.InteractionCount = 42
	mustUpsertNode(t, g, overwrite)

	n, _ := g.FindNode("c1")
	if n.Contact.InteractionCount != 1 {
		t.Fatalf("expected interaction count 1, got %d", n.Contact.InteractionCount)
	}
	if n.Contact.InfluenceScore == 99 {
		t.Fatal("expected influence score to be derived, not caller supplied")
	}
}

func TestUpsertNodeRejects(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("c1", "Alice", "CTO"))

	cases := []struct {
		name string
		node Node
		want error
	}{
		{name: "empty id", node: Node{Kind: KindContact}, want: ErrInvalidNode},
		{name: "unknown kind", node: Node{ID: "x", Kind: "widget"}, want: ErrInvalidNode},
		{name: "kind change", node: accountNode("c1", "Alice Inc"), want: ErrKindMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := g.UpsertNode(tc.node)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUpsertNodeClampsDeal(t *testing.T) {
	g := newTestGraph(t)
	d := dealNode("d1", "Renewal", -10, StageNew)
	d.Deal.Probability = 140
	mustUpsertNode(t, g, d)

	n, _ := g.FindNode("d1")
	if n.Deal.Value != 0 || n.Deal.Probability != 100 {
		t.Fatalf("expected value 0 and probability 100, got %v and %d", n.Deal.Value, n.Deal.Probability)
	}
}

func TestUpsertEdgeReferentialFailureLeavesStoreUnchanged(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("c1", "Alice", "CTO"))
	before := g.Snapshot()

	err := g.UpsertEdge(Edge{ID: "e1", Source: "c1", Target: "ghost", Type: EdgeReportsTo, Strength: 0.9})
	if err == nil {
		t.Fatal("expected referential error, got nil")
	}
	var refErr *ReferentialError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected *ReferentialError, got %T", err)
	}
	if refErr.MissingID != "ghost" {
		t.Fatalf("expected missing id ghost, got %q", refErr.MissingID)
	}
	if !errors.Is(err, ErrReferential) {
		t.Fatal("expected errors.Is to match ErrReferential")
	}

	if diff := cmp.Diff(before, g.Snapshot()); diff != "" {
		t.Fatalf("store changed after failed upsert (-before +after):\n%s", diff)
	}
}

func TestUpsertEdgeNormalizes(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("c1", "Alice", "CTO"))
	mustUpsertNode(t, g, contactNode("c2", "Bob", "Manager"))

	t.Run("strength clamped", func(t *testing.T) {
		mustUpsertEdge(t, g, Edge{ID: "e1", Source: "c1", Target: "c2", Type: EdgeAlumni, Strength: 3})
		edges := g.Store().EdgesTouching("c1")
		if len(edges) != 1 || edges[0].Strength != 1 {
			t.Fatalf("expected one edge with strength 1, got %+v", edges)
		}
	})

	t.Run("self loop rejected", func(t *testing.T) {
		err := g.UpsertEdge(Edge{ID: "e2", Source: "c1", Target: "c1", Type: EdgeAlumni})
		if !errors.Is(err, ErrInvalidEdge) {
			t.Fatalf("expected ErrInvalidEdge, got %v", err)
		}
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		err := g.UpsertEdge(Edge{ID: "e3", Source: "c1", Target: "c2", Type: "knows"})
		if !errors.Is(err, ErrInvalidEdge) {
			t.Fatalf("expected ErrInvalidEdge, got %v", err)
		}
	})
}

func TestReportsToKeepsInverse(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("alice", "Alice", "CTO"))
	mustUpsertNode(t, g, contactNode("bob", "Bob", "Manager"))
	mustUpsertEdge(t, g, Edge{ID: "r1", Source: "bob", Target: "alice", Type: EdgeReportsTo, Strength: 0.9, Confirmed: true})

	edges := g.Store().Edges()
	if len(edges) != 2 {
		t.Fatalf("expected reports_to and manages edges, got %d", len(edges))
	}
	inverse := edges[1]
	if inverse.Type != EdgeManages || inverse.Source != "alice" || inverse.Target != "bob" {
		t.Fatalf("unexpected inverse edge %+v", inverse)
	}
	if inverse.Strength != 0.9 || !inverse.Confirmed {
		t.Fatalf("expected inverse to mirror strength and confirmation, got %+v", inverse)
	}

	bob, _ := g.FindNode("bob")
	if bob.Contact.ReportsTo != "alice" {
		t.Fatalf("expected bob to report to alice, got %q", bob.Contact.ReportsTo)
	}

	mustUpsertEdge(t, g, Edge{ID: "r1", Source: "bob", Target: "alice", Type: EdgeReportsTo, Strength: 0.5, Confirmed: true})
	if got := len(g.Store().Edges()); got != 2 {
		t.Fatalf("expected re-asserting the edge to keep 2 edges, got %d", got)
	}
}

func TestManagesUnderOwnIDReusesInverse(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("alice", "Alice", "CTO"))
	mustUpsertNode(t, g, contactNode("bob", "Bob", "Manager"))
	mustUpsertEdge(t, g, Edge{ID: "r1", Source: "bob", Target: "alice", Type: EdgeReportsTo, Strength: 0.9, Confirmed: true})
	mustUpsertEdge(t, g, Edge{ID: "m1", Source: "alice", Target: "bob", Type: EdgeManages, Strength: 0.6, Confirmed: true})

	edges := g.Store().Edges()
	if len(edges) != 2 {
		t.Fatalf("expected one reports_to and one manages edge, got %+v", edges)
	}
	for _, e := range edges {
		if e.Strength != 0.6 {
			t.Fatalf("expected both directions at strength 0.6, got %+v", e)
		}
	}
	b, err := g.Influence("bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Centrality != 3 {
		t.Fatalf("expected centrality 3 from two edges, got %v", b.Centrality)
	}
}

func TestUpsertEdgeRejectsEndpointChange(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("alice", "Alice", "CTO"))
	mustUpsertNode(t, g, contactNode("bob", "Bob", "Manager"))
	mustUpsertNode(t, g, contactNode("carol", "Carol", "VP Sales"))
	mustUpsertEdge(t, g, Edge{ID: "r1", Source: "bob", Target: "alice", Type: EdgeReportsTo, Strength: 0.9, Confirmed: true})
	before := g.Snapshot()

	tests := []struct {
		name string
		edge Edge
	}{
		{"new target", Edge{ID: "r1", Source: "bob", Target: "carol", Type: EdgeReportsTo, Strength: 0.9}},
		{"new type", Edge{ID: "r1", Source: "bob", Target: "alice", Type: EdgeAlumni, Strength: 0.9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.UpsertEdge(tt.edge); !errors.Is(err, ErrInvalidEdge) {
				t.Fatalf("expected ErrInvalidEdge, got %v", err)
			}
			if diff := cmp.Diff(before, g.Snapshot()); diff != "" {
				t.Fatalf("store changed after rejected upsert (-before +after):\n%s", diff)
			}
		})
	}

	bob, _ := g.FindNode("bob")
	if bob.Contact.ReportsTo != "alice" {
		t.Fatalf("expected bob to still report to alice, got %q", bob.Contact.ReportsTo)
	}
}

func TestAppendInteraction(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("c1", "Alice", "CTO"))
	mustUpsertNode(t, g, dealNode("d1", "Platform", 1000, StageQualified))
	s := g.Store()

	t.Run("unknown contact", func(t *testing.T) {
		err := s.AppendInteraction(Interaction{ID: "i0", ContactID: "ghost", Type: InteractionCall})
		if !errors.Is(err, ErrReferential) {
			t.Fatalf("expected ErrReferential, got %v", err)
		}
	})

	t.Run("updates summaries", func(t *testing.T) {
		when := testNow.Add(-time.Hour)
		if err := s.AppendInteraction(Interaction{ID: "i1", ContactID: "c1", Type: InteractionCall, Date: when, DealID: "d1"}); err != nil {
			t.Fatalf("appending interaction: %v", err)
		}
		c, _ := s.FindNode("c1")
		if c.Contact.InteractionCount != 1 || !c.Contact.LastInteraction.Equal(when) {
			t.Fatalf("unexpected contact summary %+v", c.Contact)
		}
		d, _ := s.FindNode("d1")
		if !d.Deal.LastActivity.Equal(when) {
			t.Fatalf("expected deal last activity %v, got %v", when, d.Deal.LastActivity)
		}
	})

	t.Run("duplicate id ignored", func(t *testing.T) {
		if err := s.AppendInteraction(Interaction{ID: "i1", ContactID: "c1", Type: InteractionCall, Date: testNow}); err != nil {
			t.Fatalf("appending duplicate: %v", err)
		}
		if got := len(s.Interactions("c1")); got != 1 {
			t.Fatalf("expected 1 interaction, got %d", got)
		}
	})
}

func TestRestoreRebuildsDerivedState(t *testing.T) {
	g := newTestGraph(t)
	mustUpsertNode(t, g, contactNode("alice", "Alice", "CTO"))
	mustUpsertNode(t, g, contactNode("bob", "Bob", "Manager"))
	mustUpsertEdge(t, g, Edge{ID: "r1", Source: "bob", Target: "alice", Type: EdgeReportsTo, Strength: 0.9, Confirmed: true})
	if _, err := g.TrackInteraction("alice", InteractionMeeting, TrackOptions{ID: "m1", Date: testNow}); err != nil {
		t.Fatalf("tracking: %v", err)
	}
	snap := g.Snapshot()

	restored := newTestGraph(t)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("restoring: %v", err)
	}
	if diff := cmp.Diff(snap, restored.Snapshot()); diff != "" {
		t.Fatalf("restored snapshot differs (-want +got):\n%s", diff)
	}
}
