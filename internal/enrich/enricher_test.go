package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dealgraph/internal/graph"
)

type fakeClient struct {
	mu          sync.Mutex
	profiles    map[string]*Profile
	suggestions map[string][]Suggestion
	profileErr  map[string]error
	suggestErr  error
	requests    []ProfileRequest
}

func (f *fakeClient) FetchProfile(ctx context.Context, req ProfileRequest) (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.profileErr[req.ContactID]; err != nil {
		return nil, err
	}
	p, ok := f.profiles[req.ContactID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeClient) SuggestRelationships(ctx context.Context, contactID string, profile *Profile) ([]Suggestion, error) {
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	return f.suggestions[contactID], nil
}

func enrichGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(graph.WithClock(func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }))
	nodes := []graph.Node{
		{ID: "acme", Name: "Acme", Kind: graph.KindAccount},
		{ID: "alice", Name: "Alice", Kind: graph.KindContact, Contact: &graph.ContactInfo{Title: "CTO", CompanyID: "acme", Email: "alice@acme.example", Location: "Berlin"}},
		{ID: "bob", Name: "Bob", Kind: graph.KindContact, Contact: &graph.ContactInfo{Title: "Manager", Email: "bob@acme.example"}},
		{ID: "carol", Name: "Carol", Kind: graph.KindContact, Contact: &graph.ContactInfo{Email: "carol@globex.example"}},
	}
	for _, n := range nodes {
		if err := g.UpsertNode(n); err != nil {
			t.Fatalf("upserting %s: %v", n.ID, err)
		}
	}
	if err := g.UpsertEdge(graph.Edge{ID: "r1", Source: "bob", Target: "alice", Type: graph.EdgeReportsTo, Strength: 0.9, Confirmed: true}); err != nil {
		t.Fatalf("upserting edge: %v", err)
	}
	return g
}

func TestEnricherRun(t *testing.T) {
	g := enrichGraph(t)
	client := &fakeClient{
		profiles: map[string]*Profile{
			"alice": {
				ProfileURL: "https://linkedin.example/alice",
				Headline:   "CTO at Acme",
				Location:   "Munich",
				Skills:     []string{"platform"},
				Education:  []Education{{School: "TU Berlin"}},
				Experience: []Experience{{Company: "Initech"}, {Company: "Acme", Current: true}},
			},
		},
		suggestions: map[string][]Suggestion{
			"alice": {
				{SourceID: "alice", TargetID: "carol", Type: "alumni", Confidence: 0.65, SharedSchools: []string{"TU Berlin"}},
				{SourceID: "alice", TargetID: "bob", Type: "former_colleague", Confidence: 0.8},
				{SourceID: "alice", TargetID: "ghost", Type: "alumni", Confidence: 0.5},
				{SourceID: "alice", TargetID: "carol", Type: "reports_to", Confidence: 0.9},
			},
		},
	}

	report, err := NewEnricher(client, WithConcurrency(2)).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.ProfilesMerged != 1 || report.EdgesAdded != 1 || report.Duplicates != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	alice, _ := g.FindNode("alice")
	if alice.Contact.Location != "Berlin" {
		t.Fatalf("expected existing location kept, got %q", alice.Contact.Location)
	}
	if alice.Contact.Headline != "CTO at Acme" || alice.Contact.LinkedInURL == "" {
		t.Fatalf("expected empty fields filled, got %+v", alice.Contact)
	}
	if len(alice.Contact.PastCompanies) != 1 || alice.Contact.PastCompanies[0] != "Initech" {
		t.Fatalf("expected past companies from non-current roles, got %v", alice.Contact.PastCompanies)
	}

	var suggested *graph.Edge
	for _, e := range g.Store().EdgesTouching("carol") {
		e := e
		suggested = &e
	}
	if suggested == nil {
		t.Fatalf("expected suggested edge to carol")
	}
	if suggested.Confirmed || suggested.Strength != 0.65 || suggested.Type != graph.EdgeAlumni {
		t.Fatalf("expected unconfirmed alumni edge at 0.65, got %+v", suggested)
	}

	var requestedCompany string
	for _, r := range client.requests {
		if r.ContactID == "alice" {
			requestedCompany = r.Company
		}
	}
	if requestedCompany != "Acme" {
		t.Fatalf("expected company name in profile request, got %q", requestedCompany)
	}
}

func TestEnricherDedupAcrossRuns(t *testing.T) {
	g := enrichGraph(t)
	client := &fakeClient{
		profiles: map[string]*Profile{"alice": {}, "carol": {}},
		suggestions: map[string][]Suggestion{
			"alice": {{SourceID: "alice", TargetID: "carol", Type: "mutual_connection", Confidence: 0.4}},
			"carol": {{SourceID: "carol", TargetID: "alice", Type: "mutual_connection", Confidence: 0.4}},
		},
	}
	e := NewEnricher(client)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Run(context.Background(), g); err != nil {
				t.Errorf("run: %v", err)
			}
		}()
	}
	wg.Wait()

	count := 0
	for _, edge := range g.Store().Edges() {
		if edge.Type == graph.EdgeMutualConnection {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one suggested edge for the pair, got %d", count)
	}
}

// gatedClient holds every FetchProfile for one contact until that contact
// has been requested want times, so concurrent runs are in flight together.
type gatedClient struct {
	*fakeClient
	contactID string
	want      int

	mu       sync.Mutex
	arrived  int
	released chan struct{}
}

func (c *gatedClient) FetchProfile(ctx context.Context, req ProfileRequest) (*Profile, error) {
	if req.ContactID == c.contactID {
		c.mu.Lock()
		c.arrived++
		if c.arrived == c.want {
			close(c.released)
		}
		c.mu.Unlock()
		select {
		case <-c.released:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return nil, errors.New("runs never overlapped")
		}
	}
	return c.fakeClient.FetchProfile(ctx, req)
}

func TestEnricherOverlappingRuns(t *testing.T) {
	g := enrichGraph(t)
	client := &gatedClient{
		fakeClient: &fakeClient{
			profiles: map[string]*Profile{"alice": {}, "carol": {}},
			suggestions: map[string][]Suggestion{
				"alice": {
					{SourceID: "alice", TargetID: "carol", Type: "alumni", Confidence: 0.6},
					{SourceID: "alice", TargetID: "bob", Type: "former_colleague", Confidence: 0.8},
				},
				"carol": {{SourceID: "carol", TargetID: "alice", Type: "mutual_connection", Confidence: 0.4}},
			},
		},
		contactID: "alice",
		want:      2,
		released:  make(chan struct{}),
	}

	reports := make([]*Report, 2)
	var wg sync.WaitGroup
	for i := range reports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := NewEnricher(client, WithConcurrency(2)).Run(context.Background(), g)
			if err != nil {
				t.Errorf("run %d: %v", i, err)
				return
			}
			reports[i] = report
		}()
	}
	wg.Wait()
	if t.Failed() {
		return
	}

	if client.arrived != 2 {
		t.Fatalf("expected both runs to fetch alice, got %d fetches", client.arrived)
	}
	added, failed := 0, 0
	for _, r := range reports {
		added += r.EdgesAdded
		failed += r.Failed
	}
	if failed != 0 {
		t.Fatalf("expected no failed contacts, got %d", failed)
	}
	if added != 1 {
		t.Fatalf("expected one suggested edge across both runs, got %d", added)
	}

	pairs := map[[2]string]int{}
	for _, edge := range g.Store().Edges() {
		if edge.Metadata["origin"] != "enrichment" {
			continue
		}
		pair := [2]string{edge.Source, edge.Target}
		if pair[0] > pair[1] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		pairs[pair]++
	}
	want := map[[2]string]int{{"alice", "carol"}: 1}
	if len(pairs) != len(want) || pairs[[2]string{"alice", "carol"}] != 1 {
		t.Fatalf("expected a single suggested edge between alice and carol, got %v", pairs)
	}
}

func TestEnricherFailuresLeaveStateUnchanged(t *testing.T) {
	g := enrichGraph(t)
	before := g.Snapshot()
	client := &fakeClient{
		profileErr: map[string]error{
			"alice": errors.New("connection reset"),
			"bob":   errors.New("connection reset"),
		},
	}

	report, err := NewEnricher(client).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("expected failures to be skipped, got %v", err)
	}
	if report.Failed != 2 {
		t.Fatalf("expected 2 failed lookups, got %d", report.Failed)
	}
	after := g.Snapshot()
	if len(after.Edges) != len(before.Edges) {
		t.Fatalf("expected no new edges, got %d", len(after.Edges)-len(before.Edges))
	}
	alice, _ := g.FindNode("alice")
	if alice.Contact.Headline != "" {
		t.Fatalf("expected alice untouched, got %+v", alice.Contact)
	}
}

func TestEnricherSuggestionFailureKeepsProfile(t *testing.T) {
	g := enrichGraph(t)
	client := &fakeClient{
		profiles:   map[string]*Profile{"bob": {Headline: "Engineering Manager"}},
		suggestErr: errors.New("suggestions unavailable"),
	}
	report, err := NewEnricher(client).Run(context.Background(), g)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.ProfilesMerged != 1 || report.EdgesAdded != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	bob, _ := g.FindNode("bob")
	if bob.Contact.Headline != "Engineering Manager" {
		t.Fatalf("expected headline merged, got %q", bob.Contact.Headline)
	}
}

func TestEnricherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &fakeClient{profileErr: map[string]error{"alice": context.Canceled, "bob": context.Canceled, "carol": context.Canceled}}
	if _, err := NewEnricher(client).Run(ctx, enrichGraph(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
