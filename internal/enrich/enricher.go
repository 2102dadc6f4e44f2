package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dealgraph/internal/graph"
)

const defaultConcurrency = 4

// Enricher fills contact profiles from an external Client and records the
// relationships it suggests as unconfirmed edges.
type Enricher struct {
	client      Client
	logger      *log.Logger
	concurrency int

	mu sync.Mutex
}

type Option func(*Enricher)

func WithLogger(l *log.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithConcurrency(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func NewEnricher(client Client, opts ...Option) *Enricher {
	e := &Enricher{client: client, logger: log.Default(), concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type Report struct {
	Contacts       int
	ProfilesMerged int
	EdgesAdded     int
	Duplicates     int
	Failed         int
}

type fetched struct {
	contactID   string
	profile     *Profile
	suggestions []Suggestion
}

// Run enriches every contact in g. Lookups run concurrently; results are
// applied in one graph batch. A failed lookup is logged and skipped.
func (e *Enricher) Run(ctx context.Context, g *graph.Graph) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	contacts := g.Store().Nodes(graph.KindContact)
	report := &Report{Contacts: len(contacts)}
	results := make([]*fetched, len(contacts))
	var failed sync.Map

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.concurrency)
	for i, c := range contacts {
		eg.Go(func() error {
			res, err := e.fetch(egCtx, g, c)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				if !errors.Is(err, ErrProfileNotFound) {
					failed.Store(c.ID, struct{}{})
				}
				e.logger.Warn("enrichment skipped", "contact", c.ID, "err", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("enriching contacts: %w", err)
	}
	failed.Range(func(_, _ any) bool {
		report.Failed++
		return true
	})

	err := g.Batch(func(tx *graph.Tx) error {
		for _, res := range results {
			if res == nil {
				continue
			}
			e.apply(tx, res, report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("applying enrichment: %w", err)
	}
	e.logger.Info("enrichment finished", "contacts", report.Contacts, "profiles", report.ProfilesMerged,
		"edges", report.EdgesAdded, "failed", report.Failed)
	return report, nil
}

func (e *Enricher) fetch(ctx context.Context, g *graph.Graph, c graph.Node) (*fetched, error) {
	req := ProfileRequest{ContactID: c.ID, Email: c.Contact.Email, Name: c.Name}
	if c.Contact.CompanyID != "" {
		if account, ok := g.FindNode(c.Contact.CompanyID); ok {
			req.Company = account.Name
		}
	}
	if !req.Valid() {
		return nil, ErrProfileNotFound
	}

	profile, err := e.client.FetchProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	res := &fetched{contactID: c.ID, profile: profile}

	suggestions, err := e.client.SuggestRelationships(ctx, c.ID, profile)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("relationship suggestions skipped", "contact", c.ID, "err", err)
		return res, nil
	}
	res.suggestions = suggestions
	return res, nil
}

func (e *Enricher) apply(tx *graph.Tx, res *fetched, report *Report) {
	n, ok := tx.FindNode(res.contactID)
	if !ok || n.Contact == nil {
		return
	}
	if res.profile != nil && mergeProfile(n.Contact, res.profile) {
		if err := tx.UpsertNode(n); err != nil {
			e.logger.Warn("profile merge failed", "contact", n.ID, "err", err)
		} else {
			report.ProfilesMerged++
		}
	}

	for _, s := range res.suggestions {
		edgeType := graph.EdgeType(s.Type)
		if !suggestible(edgeType) {
			e.logger.Debug("ignoring suggestion type", "contact", res.contactID, "type", s.Type)
			continue
		}
		source, target := s.SourceID, s.TargetID
		if source == "" {
			source = res.contactID
		}
		if !isContact(tx, source) || !isContact(tx, target) || source == target {
			continue
		}
		if tx.Linked(source, target) {
			report.Duplicates++
			continue
		}
		edge := graph.Edge{
			ID:        uuid.NewString(),
			Source:    source,
			Target:    target,
			Type:      edgeType,
			Strength:  s.Confidence,
			Confirmed: false,
			Metadata: map[string]any{
				"origin":             "enrichment",
				"mutual_connections": s.MutualConnections,
				"shared_companies":   s.SharedCompanies,
				"shared_schools":     s.SharedSchools,
			},
		}
		if err := tx.UpsertEdge(edge); err != nil {
			e.logger.Warn("suggested edge rejected", "source", source, "target", target, "err", err)
			continue
		}
		report.EdgesAdded++
	}
}

func suggestible(t graph.EdgeType) bool {
	switch t {
	case graph.EdgeFormerColleague, graph.EdgeAlumni, graph.EdgeMutualConnection:
		return true
	}
	return false
}

func isContact(tx *graph.Tx, id string) bool {
	n, ok := tx.FindNode(id)
	return ok && n.Kind == graph.KindContact
}

// mergeProfile copies profile data into empty contact fields only and
// reports whether anything changed.
func mergeProfile(c *graph.ContactInfo, p *Profile) bool {
	changed := false
	fill := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			changed = true
		}
	}
	fill(&c.LinkedInURL, p.ProfileURL)
	fill(&c.Headline, p.Headline)
	fill(&c.Location, p.Location)
	fill(&c.Industry, p.Industry)
	if c.Connections == 0 && p.Connections > 0 {
		c.Connections = p.Connections
		changed = true
	}
	if len(c.Skills) == 0 && len(p.Skills) > 0 {
		c.Skills = append([]string(nil), p.Skills...)
		changed = true
	}
	if len(c.Schools) == 0 {
		for _, ed := range p.Education {
			if ed.School != "" {
				c.Schools = append(c.Schools, ed.School)
			}
		}
		changed = changed || len(c.Schools) > 0
	}
	if len(c.PastCompanies) == 0 {
		for _, ex := range p.Experience {
			if !ex.Current && ex.Company != "" {
				c.PastCompanies = append(c.PastCompanies, ex.Company)
			}
		}
		changed = changed || len(c.PastCompanies) > 0
	}
	return changed
}
