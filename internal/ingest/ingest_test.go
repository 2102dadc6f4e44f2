package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dealgraph/internal/config"
	"dealgraph/internal/graph"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testGraph() *graph.Graph {
	return graph.New(graph.WithClock(func() time.Time { return testNow }))
}

func provider(t *testing.T, name string) *config.Provider {
	t.Helper()
	p, ok := config.DefaultMapping().ProviderByName(name)
	if !ok {
		t.Fatalf("provider %s missing from default mapping", name)
	}
	return p
}

func nativeRecord(kind config.RecordKind, fields map[string]any) ExternalRecord {
	return ExternalRecord{Kind: kind, Provider: "native", Fields: fields}
}

func findEdge(g *graph.Graph, source, target string, edgeType graph.EdgeType) (graph.Edge, bool) {
	for _, e := range g.Store().Edges() {
		if e.Source == source && e.Target == target && e.Type == edgeType {
			return e, true
		}
	}
	return graph.Edge{}, false
}

func TestImport_AcmeScenario(t *testing.T) {
	g := testGraph()
	batch := Batch{
		Provider: "native",
		Companies: []ExternalRecord{
			nativeRecord(config.RecordCompany, map[string]any{"id": "acme", "name": "Acme"}),
		},
		Contacts: []ExternalRecord{
			nativeRecord(config.RecordContact, map[string]any{"id": "alice", "name": "Alice", "title": "CTO", "company_id": "acme"}),
			nativeRecord(config.RecordContact, map[string]any{"id": "bob", "name": "Bob", "title": "Manager", "company_id": "acme", "reports_to": "alice"}),
		},
	}

	result, err := Import(context.Background(), g, provider(t, "native"), batch, Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.NodesUpserted != 3 {
		t.Fatalf("expected 3 nodes, got %d", result.NodesUpserted)
	}
	if result.Dropped != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected clean import, got dropped=%d errors=%v", result.Dropped, result.Errors)
	}

	edge, ok := findEdge(g, "bob", "alice", graph.EdgeReportsTo)
	if !ok {
		t.Fatalf("expected reports_to edge from bob to alice")
	}
	if edge.Strength != 0.9 || !edge.Confirmed {
		t.Fatalf("expected strength 0.9 confirmed, got %v %v", edge.Strength, edge.Confirmed)
	}
	for _, id := range []string{"alice", "bob"} {
		if e, ok := findEdge(g, id, "acme", graph.EdgeWorksAt); !ok || e.Strength != 1 || !e.Confirmed {
			t.Fatalf("expected confirmed works_at edge for %s, got %+v", id, e)
		}
	}

	alice, err := g.Influence("alice")
	if err != nil {
		t.Fatalf("influence: %v", err)
	}
	bob, _ := g.Influence("bob")
	if alice.Role != 25 || bob.Role != 10 {
		t.Fatalf("expected role components 25 and 10, got %v and %v", alice.Role, bob.Role)
	}

	aliceNode, _ := g.FindNode("alice")
	if aliceNode.Contact.Role != graph.RoleDecisionMaker {
		t.Fatalf("expected alice inferred as decision maker, got %s", aliceNode.Contact.Role)
	}
	if aliceNode.Contact.InfluenceScore != alice.Total {
		t.Fatalf("expected scores computed after import, got %d want %d", aliceNode.Contact.InfluenceScore, alice.Total)
	}
}

func TestImport_DropsUnresolvedReferences(t *testing.T) {
	g := testGraph()
	batch := Batch{
		Provider: "native",
		Contacts: []ExternalRecord{
			nativeRecord(config.RecordContact, map[string]any{"id": "bob", "name": "Bob", "reports_to": "someone-else", "company_id": "nowhere"}),
		},
		Deals: []ExternalRecord{
			nativeRecord(config.RecordDeal, map[string]any{"id": "d1", "name": "Deal", "company_id": "nowhere", "contact_ids": "bob, ghost"}),
		},
		Interactions: []ExternalRecord{
			nativeRecord(config.RecordInteraction, map[string]any{"contact_id": "ghost", "type": "call"}),
			nativeRecord(config.RecordInteraction, map[string]any{"id": "i1", "contact_id": "bob", "type": "call", "deal_id": "missing-deal"}),
		},
	}

	result, err := Import(context.Background(), g, provider(t, "native"), batch, Options{})
	if err != nil {
		t.Fatalf("expected unresolved references not to fail the batch, got %v", err)
	}
	// reports_to, works_at, belongs_to, ghost deal contact, ghost interaction
	if result.Dropped != 5 {
		t.Fatalf("expected 5 dropped references, got %d", result.Dropped)
	}
	if result.EdgesUpserted != 1 {
		t.Fatalf("expected only bob's deal edge, got %d", result.EdgesUpserted)
	}
	if _, ok := findEdge(g, "bob", "d1", graph.EdgeInfluencerFor); !ok {
		t.Fatalf("expected influencer_for edge for bob")
	}

	history := g.Store().Interactions("bob")
	if len(history) != 1 || history[0].DealID != "" {
		t.Fatalf("expected one interaction with the unknown deal cleared, got %+v", history)
	}
	if _, ok := g.FindNode("ghost"); ok {
		t.Fatalf("expected no placeholder node for ghost")
	}
}

func TestImport_InteractionsDoNotChangeStrength(t *testing.T) {
	g := testGraph()
	batch := Batch{
		Provider: "native",
		Contacts: []ExternalRecord{
			nativeRecord(config.RecordContact, map[string]any{"id": "alice", "name": "Alice", "title": "CEO"}),
			nativeRecord(config.RecordContact, map[string]any{"id": "bob", "name": "Bob", "reports_to": "alice"}),
		},
		Interactions: []ExternalRecord{
			nativeRecord(config.RecordInteraction, map[string]any{"contact_id": "bob", "type": "Meeting", "date": "2025-02-20T10:00:00Z", "duration": 45}),
		},
	}
	if _, err := Import(context.Background(), g, provider(t, "native"), batch, Options{}); err != nil {
		t.Fatalf("import: %v", err)
	}

	edge, _ := findEdge(g, "bob", "alice", graph.EdgeReportsTo)
	if edge.Strength != 0.9 {
		t.Fatalf("expected historical interactions to leave strength at 0.9, got %v", edge.Strength)
	}
	history := g.Store().Interactions("bob")
	if len(history) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(history))
	}
	got := history[0]
	if got.Type != graph.InteractionMeeting || got.Duration != 45 || !got.Completed || got.ID == "" {
		t.Fatalf("unexpected interaction %+v", got)
	}
	if !got.Date.Equal(time.Date(2025, 2, 20, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got.Date)
	}
}

func TestImport_Idempotent(t *testing.T) {
	g := testGraph()
	batch := Fixtures(testNow)
	p := provider(t, "native")

	if _, err := Import(context.Background(), g, p, batch, Options{}); err != nil {
		t.Fatalf("first import: %v", err)
	}
	first := g.Snapshot()
	if _, err := Import(context.Background(), g, p, batch, Options{}); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if diff := cmp.Diff(first, g.Snapshot()); diff != "" {
		t.Fatalf("re-import changed the graph (-first +second):\n%s", diff)
	}
}

func TestImport_HubspotFields(t *testing.T) {
	g := testGraph()
	rec := func(kind config.RecordKind, fields map[string]any) ExternalRecord {
		return ExternalRecord{Kind: kind, Provider: "hubspot", Fields: fields}
	}
	batch := Batch{
		Provider: "hubspot",
		Companies: []ExternalRecord{
			rec(config.RecordCompany, map[string]any{"hs_object_id": 101, "name": "Initech"}),
		},
		Contacts: []ExternalRecord{
			rec(config.RecordContact, map[string]any{"hs_object_id": 201, "firstname": "Peter", "lastname": "Gibbons", "jobtitle": "VP Engineering", "associatedcompanyid": 101}),
			rec(config.RecordContact, map[string]any{"hs_object_id": 202, "firstname": "Milton", "jobtitle": "Analyst", "associatedcompanyid": 101, "hs_manager_id": 201}),
		},
		Deals: []ExternalRecord{
			rec(config.RecordDeal, map[string]any{"hs_object_id": 301, "dealname": "TPS Upgrade", "amount": "125,000", "dealstage": "qualifiedtobuy", "associatedcompanyid": 101, "associatedcontactids": []any{201, 202}, "hs_deal_stage_probability": 0.4}),
		},
	}

	result, err := Import(context.Background(), g, provider(t, "hubspot"), batch, Options{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}

	peter, ok := g.FindNode("201")
	if !ok || peter.Name != "Peter Gibbons" || peter.Contact.Role != graph.RoleDecisionMaker {
		t.Fatalf("unexpected contact %+v", peter)
	}
	deal, ok := g.FindNode("301")
	if !ok {
		t.Fatalf("expected deal 301")
	}
	if deal.Deal.Value != 125000 || deal.Deal.Stage != graph.StageQualified || deal.Deal.Probability != 40 {
		t.Fatalf("unexpected deal %+v", deal.Deal)
	}
	if _, ok := findEdge(g, "202", "201", graph.EdgeReportsTo); !ok {
		t.Fatalf("expected reports_to from hs_manager_id")
	}
	if e, ok := findEdge(g, "201", "301", graph.EdgeDecisionMakerFor); !ok || e.Strength != 0.95 {
		t.Fatalf("expected decision_maker_for at 0.95, got %+v", e)
	}
	if e, ok := findEdge(g, "202", "301", graph.EdgeInfluencerFor); !ok || e.Strength != 0.7 {
		t.Fatalf("expected influencer_for at 0.7, got %+v", e)
	}
	if _, ok := findEdge(g, "301", "101", graph.EdgeBelongsTo); !ok {
		t.Fatalf("expected belongs_to edge")
	}
}

func TestImport_InvalidRecords(t *testing.T) {
	g := testGraph()
	batch := Batch{
		Provider: "native",
		Contacts: []ExternalRecord{
			nativeRecord(config.RecordContact, map[string]any{"name": "No Id"}),
			nativeRecord(config.RecordContact, map[string]any{"id": "ok", "name": "Fine"}),
		},
	}
	result, err := Import(context.Background(), g, provider(t, "native"), batch, Options{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(result.Errors) != 1 || result.NodesUpserted != 1 {
		t.Fatalf("expected one error and one node, got %v and %d", result.Errors, result.NodesUpserted)
	}
}

// cancelAfter reports cancellation once Err has been called more than
// checks times.
type cancelAfter struct {
	context.Context
	checks int
}

func (c *cancelAfter) Err() error {
	if c.checks <= 0 {
		return context.Canceled
	}
	c.checks--
	return nil
}

func TestImport_CancelledContext(t *testing.T) {
	t.Run("before any write", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		g := testGraph()
		_, err := Import(ctx, g, provider(t, "native"), Fixtures(testNow), Options{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if n := len(g.Store().Nodes("")); n != 0 {
			t.Fatalf("expected no nodes written, got %d", n)
		}
	})

	t.Run("between nodes and edges", func(t *testing.T) {
		g := testGraph()
		ctx := &cancelAfter{Context: context.Background(), checks: 1}
		result, err := Import(ctx, g, provider(t, "native"), Fixtures(testNow), Options{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result == nil {
			t.Fatalf("expected the partial result alongside the error")
		}
		written := len(g.Store().Nodes(""))
		if written == 0 || result.NodesUpserted != written {
			t.Fatalf("expected the result to count the %d nodes written, got %d", written, result.NodesUpserted)
		}
		if result.EdgesUpserted != 0 || result.InteractionsAdded != 0 {
			t.Fatalf("expected no edges or interactions after cancellation, got %+v", result)
		}
	})
}

func TestRun_CancelledMidBatch(t *testing.T) {
	g := testGraph()
	ctx := &cancelAfter{Context: context.Background(), checks: 1}
	result, err := Run(ctx, &config.ProjectConfig{}, config.DefaultMapping(), g, Options{Fixtures: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.NodesUpserted == 0 {
		t.Fatalf("expected partial counts from the fixture batch, got %+v", result)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "crm", "companies.yaml"), "provider: native\ncompanies:\n  - id: acme\n    name: Acme\n")
	writeFile(t, filepath.Join(dir, "crm", "people.json"), `{"contacts": [{"id": "alice", "name": "Alice", "title": "CTO", "company_id": "acme"}]}`)
	writeFile(t, filepath.Join(dir, "crm", "notes.md"), "# not an export\n")
	writeFile(t, filepath.Join(dir, "crm", "empty.yaml"), "provider: native\n")
	writeFile(t, filepath.Join(dir, "crm", "broken.yaml"), "contacts: [\n")
	writeFile(t, filepath.Join(dir, "crm", "archive", "old.yaml"), "companies:\n  - id: old\n")

	cfg := &config.ProjectConfig{
		Sources: []config.Source{{Name: "crm", Provider: "native", Paths: []string{filepath.Join(dir, "crm")}}},
		Exclude: []string{filepath.Join(dir, "crm", "archive")},
	}
	g := testGraph()

	result, err := Run(context.Background(), cfg, config.DefaultMapping(), g, Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.FilesProcessed != 2 {
		t.Fatalf("expected 2 files processed, got %d", result.FilesProcessed)
	}
	if result.FilesSkipped != 1 {
		t.Fatalf("expected the empty file skipped, got %d", result.FilesSkipped)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected the broken file reported, got %v", result.Errors)
	}
	if _, ok := g.FindNode("old"); ok {
		t.Fatalf("expected excluded directory to be skipped")
	}
	if _, ok := findEdge(g, "alice", "acme", graph.EdgeWorksAt); !ok {
		t.Fatalf("expected works_at edge across files")
	}
}

func TestRun_ConfigurationErrors(t *testing.T) {
	t.Run("nothing to import", func(t *testing.T) {
		_, err := Run(context.Background(), &config.ProjectConfig{}, config.DefaultMapping(), testGraph(), Options{})
		var importErr *ImportError
		if !errors.As(err, &importErr) || !errors.Is(err, ErrNothingToImport) {
			t.Fatalf("expected ImportError wrapping ErrNothingToImport, got %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := &config.ProjectConfig{Sources: []config.Source{{Name: "crm", Provider: "pipedrive", Paths: []string{t.TempDir()}}}}
		_, err := Run(context.Background(), cfg, config.DefaultMapping(), testGraph(), Options{})
		if !errors.Is(err, ErrUnknownProvider) {
			t.Fatalf("expected ErrUnknownProvider, got %v", err)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		cfg := &config.ProjectConfig{Sources: []config.Source{{Name: "crm", Provider: "native", Paths: []string{filepath.Join(t.TempDir(), "missing")}}}}
		_, err := Run(context.Background(), cfg, config.DefaultMapping(), testGraph(), Options{})
		var importErr *ImportError
		if !errors.As(err, &importErr) {
			t.Fatalf("expected ImportError, got %v", err)
		}
	})
}

func TestRun_Fixtures(t *testing.T) {
	g := testGraph()
	result, err := Run(context.Background(), &config.ProjectConfig{}, config.DefaultMapping(), g, Options{Fixtures: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Dropped != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected fixtures to import cleanly, got dropped=%d errors=%v", result.Dropped, result.Errors)
	}
	if got := len(g.Store().Nodes(graph.KindContact)); got != 5 {
		t.Fatalf("expected 5 fixture contacts, got %d", got)
	}
	if _, ok := findEdge(g, "alice", "acme-platform", graph.EdgeDecisionMakerFor); !ok {
		t.Fatalf("expected alice as decision maker on the platform deal")
	}
}

func TestNormalizeHelpers(t *testing.T) {
	t.Run("toTime", func(t *testing.T) {
		want := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
		for _, in := range []any{"2025-01-02", "2025-01-02T00:00:00Z", "2025-01-02 00:00:00", "1735776000", int64(1735776000), float64(1735776000000), want} {
			if got := toTime(in); !got.Equal(want) {
				t.Errorf("toTime(%v) = %v, want %v", in, got, want)
			}
		}
		if got := toTime("soon"); !got.IsZero() {
			t.Errorf("expected zero time for garbage, got %v", got)
		}
	})

	t.Run("toFloat", func(t *testing.T) {
		cases := map[any]float64{"$12,500": 12500, " 40% ": 40, 7: 7, int64(3): 3, 2.5: 2.5}
		for in, want := range cases {
			if got, ok := toFloat(in); !ok || got != want {
				t.Errorf("toFloat(%v) = %v, %t, want %v", in, got, ok, want)
			}
		}
		for _, in := range []any{nil, true, "n/a"} {
			if _, ok := toFloat(in); ok {
				t.Errorf("expected toFloat(%v) to fail", in)
			}
		}
	})

	t.Run("toString", func(t *testing.T) {
		cases := map[any]string{" x ": "x", 12.0: "12", 12.5: "12.5", 42: "42", true: "true"}
		for in, want := range cases {
			if got := toString(in); got != want {
				t.Errorf("toString(%v) = %q, want %q", in, got, want)
			}
		}
	})

	t.Run("toBool", func(t *testing.T) {
		if !toBool(nil, true) || toBool(nil, false) {
			t.Errorf("expected nil to yield the fallback")
		}
		if toBool(" false ", true) || !toBool("TRUE", false) || !toBool(1, false) {
			t.Errorf("expected parsed booleans")
		}
		if !toBool("maybe", true) {
			t.Errorf("expected unparseable values to yield the fallback")
		}
	})

	t.Run("toStrings", func(t *testing.T) {
		if diff := cmp.Diff([]string{"a", "b", "3"}, toStrings([]any{"a", " b ", 3})); diff != "" {
			t.Errorf("unexpected list (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"a", "b"}, toStrings("a; b,")); diff != "" {
			t.Errorf("unexpected list (-want +got):\n%s", diff)
		}
	})

	t.Run("interactionType", func(t *testing.T) {
		cases := map[string]graph.InteractionType{
			"CALL":           graph.InteractionCall,
			"INCOMING_EMAIL": graph.InteractionEmail,
			"meeting":        graph.InteractionMeeting,
			"linkedin_msg":   graph.InteractionNote,
		}
		for in, want := range cases {
			if got := interactionType(in); got != want {
				t.Errorf("interactionType(%q) = %s, want %s", in, got, want)
			}
		}
	})
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}
}
