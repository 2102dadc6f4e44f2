package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dealgraph/internal/config"
	"dealgraph/internal/graph"
	"dealgraph/internal/health"
	"dealgraph/internal/ingest"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type persistRecorder struct {
	calls int
	err   error
}

func (p *persistRecorder) persist(ctx context.Context) error {
	p.calls++
	return p.err
}

func newTestServer(t *testing.T) (*Server, *graph.Graph, *persistRecorder) {
	t.Helper()
	g := graph.New(graph.WithClock(func() time.Time { return testNow }))
	native, ok := config.DefaultMapping().ProviderByName("native")
	if !ok {
		t.Fatalf("native provider missing")
	}
	if _, err := ingest.Import(context.Background(), g, native, ingest.Fixtures(testNow), ingest.Options{}); err != nil {
		t.Fatalf("importing fixtures: %v", err)
	}
	rec := &persistRecorder{}
	server := NewServer(g, health.New(g, health.Options{}), "test", WithPersist(rec.persist))
	return server, g, rec
}

func TestGetGraphData(t *testing.T) {
	server, g, _ := newTestServer(t)

	_, all, err := server.handleGetGraphData(context.Background(), nil, GetGraphDataInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all.Nodes) != len(g.Store().Nodes("")) || len(all.Edges) != len(g.Store().Edges()) {
		t.Fatalf("expected the whole graph, got %d nodes and %d edges", len(all.Nodes), len(all.Edges))
	}

	_, byAccount, err := server.handleGetGraphData(context.Background(), nil, GetGraphDataInput{AccountID: "globex"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, n := range byAccount.Nodes {
		if n.Kind == string(graph.KindContact) && n.CompanyID != "globex" {
			t.Fatalf("expected only globex contacts, got %+v", n)
		}
	}
}

func TestGetAccountContacts(t *testing.T) {
	server, _, _ := newTestServer(t)

	_, out, err := server.handleGetAccountContacts(context.Background(), nil, AccountInput{AccountID: "acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Contacts) != 3 {
		t.Fatalf("expected 3 acme contacts, got %d", len(out.Contacts))
	}
	for i := 1; i < len(out.Contacts); i++ {
		if out.Contacts[i-1].InfluenceScore < out.Contacts[i].InfluenceScore {
			t.Fatalf("expected contacts by influence desc, got %+v", out.Contacts)
		}
	}

	if _, _, err := server.handleGetAccountContacts(context.Background(), nil, AccountInput{}); err == nil {
		t.Fatalf("expected error without account_id")
	}
	_, _, err = server.handleGetAccountContacts(context.Background(), nil, AccountInput{AccountID: "initech"})
	if !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetContactRelationships(t *testing.T) {
	server, _, _ := newTestServer(t)

	_, out, err := server.handleGetContactRelationships(context.Background(), nil, ContactInput{ContactID: "bob"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	others := map[string]bool{}
	for _, rel := range out.Relationships {
		others[rel.Other.ID] = true
	}
	for _, want := range []string{"alice", "dan", "acme", "acme-platform"} {
		if !others[want] {
			t.Fatalf("expected a relationship with %s, got %v", want, others)
		}
	}
}

func TestFindPath(t *testing.T) {
	server, _, _ := newTestServer(t)

	_, out, err := server.handleFindPath(context.Background(), nil, FindPathInput{SourceID: "dan", TargetID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, n := range out.Path {
		ids = append(ids, n.ID)
	}
	if diff := cmp.Diff([]string{"dan", "bob", "alice"}, ids); diff != "" || !out.Found {
		t.Fatalf("unexpected path (-want +got):\n%s", diff)
	}

	_, out, err = server.handleFindPath(context.Background(), nil, FindPathInput{SourceID: "alice", TargetID: "carol"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Found || len(out.Path) != 0 {
		t.Fatalf("expected no path across accounts, got %+v", out)
	}
}

func TestGetOrgChart(t *testing.T) {
	server, _, _ := newTestServer(t)

	_, out, err := server.handleGetOrgChart(context.Background(), nil, AccountInput{AccountID: "acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	levels := map[string]int{}
	for _, e := range out.Entries {
		levels[e.ContactID] = e.Level
	}
	if diff := cmp.Diff(map[string]int{"alice": 0, "bob": 1, "dan": 2}, levels); diff != "" {
		t.Fatalf("unexpected levels (-want +got):\n%s", diff)
	}
}

func TestTrackInteraction(t *testing.T) {
	server, g, rec := newTestServer(t)

	before := map[string]float64{}
	for _, e := range g.Store().EdgesTouching("bob") {
		before[e.ID] = e.Strength
	}

	_, out, err := server.handleTrackInteraction(context.Background(), nil, TrackInteractionInput{
		ContactID: "bob",
		Type:      "Meeting",
		Duration:  30,
		DealID:    "acme-platform",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.InteractionID == "" {
		t.Fatalf("expected an interaction id")
	}
	if rec.calls != 1 {
		t.Fatalf("expected one persist call, got %d", rec.calls)
	}
	if len(out.Edges) == 0 {
		t.Fatalf("expected strengthened edges in output")
	}
	for _, e := range out.Edges {
		if e.Strength <= before[e.ID] && before[e.ID] < 1 {
			t.Fatalf("expected %s to strengthen from %v, got %v", e.ID, before[e.ID], e.Strength)
		}
		if e.InteractionCount != 1 {
			t.Fatalf("expected interaction count 1 on %s, got %d", e.ID, e.InteractionCount)
		}
	}
}

func TestTrackInteractionErrors(t *testing.T) {
	tests := []struct {
		name  string
		input TrackInteractionInput
	}{
		{"missing contact", TrackInteractionInput{Type: "call"}},
		{"unknown type", TrackInteractionInput{ContactID: "bob", Type: "fax"}},
		{"unknown contact", TrackInteractionInput{ContactID: "nobody", Type: "call"}},
		{"bad date", TrackInteractionInput{ContactID: "bob", Type: "call", Date: "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _, rec := newTestServer(t)
			if _, _, err := server.handleTrackInteraction(context.Background(), nil, tt.input); err == nil {
				t.Fatalf("expected error")
			}
			if rec.calls != 0 {
				t.Fatalf("expected no persist call, got %d", rec.calls)
			}
		})
	}
}

func TestTrackInteractionPersistFailure(t *testing.T) {
	server, _, rec := newTestServer(t)
	rec.err = errors.New("disk full")

	_, _, err := server.handleTrackInteraction(context.Background(), nil, TrackInteractionInput{ContactID: "bob", Type: "call"})
	if !errors.Is(err, rec.err) {
		t.Fatalf("expected persist error, got %v", err)
	}
}

func TestExplainInfluence(t *testing.T) {
	server, g, _ := newTestServer(t)

	_, out, err := server.handleExplainInfluence(context.Background(), nil, ContactInput{ContactID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alice, _ := g.FindNode("alice")
	if out.Total != alice.Contact.InfluenceScore {
		t.Fatalf("expected total %d, got %d", alice.Contact.InfluenceScore, out.Total)
	}
	if out.Role != 25 {
		t.Fatalf("expected CTO role component 25, got %v", out.Role)
	}

	if _, _, err := server.handleExplainInfluence(context.Background(), nil, ContactInput{ContactID: "acme"}); !errors.Is(err, graph.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an account, got %v", err)
	}
}

func TestGetInfluenceRecommendations(t *testing.T) {
	server, _, _ := newTestServer(t)

	_, out, err := server.handleGetInfluenceRecommendations(context.Background(), nil, DealInput{DealID: "acme-platform"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := map[string]string{}
	for _, r := range out.Recommendations {
		ids[r.ContactID] = r.Action
	}
	if ids["alice"] == "" || ids["bob"] == "" {
		t.Fatalf("expected recommendations for alice and bob, got %v", ids)
	}
}

func TestAnalyzeDeals(t *testing.T) {
	server, _, _ := newTestServer(t)

	_, out, err := server.handleAnalyzeDeals(context.Background(), nil, AnalyzeDealsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Risks) == 0 || out.Risks[0].DealID != "acme-platform" {
		t.Fatalf("expected acme-platform as the top risk, got %+v", out.Risks)
	}
	if !out.Risks[0].Stalling || !out.Risks[0].Ghosting {
		t.Fatalf("expected stalled and ghosted deal, got %+v", out.Risks[0])
	}
	for _, r := range out.Risks {
		if r.DealID == "globex-pilot" {
			t.Fatalf("expected globex pilot to be healthy, got %+v", r)
		}
	}
	if len(out.HotLeads) != 0 {
		t.Fatalf("expected no hot leads without telemetry, got %+v", out.HotLeads)
	}
	if len(out.SmartActions) == 0 {
		t.Fatalf("expected smart actions")
	}
}
