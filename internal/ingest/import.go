package ingest

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"dealgraph/internal/config"
	"dealgraph/internal/graph"
)

const (
	reportsToStrength     = 0.9
	worksAtStrength       = 1.0
	belongsToStrength     = 1.0
	decisionMakerStrength = 0.95
	influencerStrength    = 0.7
)

// interactionNamespace seeds ids for interactions exported without one, so
// that importing the same file twice does not duplicate history.
var interactionNamespace = uuid.MustParse("6f1c2a4e-7d3b-4c8e-9a51-2b0e8f4d6c13")

type importer struct {
	g        *graph.Graph
	tx       *graph.Tx
	provider *config.Provider
	logger   *log.Logger
	result   *Result
}

// Import normalizes a batch and writes it to the graph as one transaction,
// so influence scores are recomputed once at the end. Unresolvable
// references are dropped and counted, never fatal. A context cancelled
// mid-batch leaves the nodes already written in place; the returned Result
// counts them alongside the error.
func Import(ctx context.Context, g *graph.Graph, provider *config.Provider, batch Batch, opts Options) (*Result, error) {
	if provider == nil {
		return nil, &ImportError{Err: fmt.Errorf("%w: %q", ErrUnknownProvider, batch.Provider)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}
	err := g.Batch(func(tx *graph.Tx) error {
		imp := &importer{g: g, tx: tx, provider: provider, logger: opts.logger(), result: result}

		for i, rec := range batch.Companies {
			imp.company(i, newRecord(provider, rec))
		}

		batchContacts := make(map[string]struct{}, len(batch.Contacts))
		contacts := make([]record, 0, len(batch.Contacts))
		for i, rec := range batch.Contacts {
			r := newRecord(provider, rec)
			if id := imp.contact(i, r); id != "" {
				batchContacts[id] = struct{}{}
				contacts = append(contacts, r)
			}
		}

		deals := make([]record, 0, len(batch.Deals))
		for i, rec := range batch.Deals {
			r := newRecord(provider, rec)
			if imp.deal(i, r) {
				deals = append(deals, r)
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		for _, r := range contacts {
			imp.contactEdges(r, batchContacts)
		}
		for _, r := range deals {
			imp.dealEdges(r)
		}
		for i, rec := range batch.Interactions {
			imp.interaction(i, newRecord(provider, rec))
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("importing %s batch: %w", provider.Name, err)
	}
	return result, nil
}

func (imp *importer) company(i int, r record) {
	id := r.str("id")
	if id == "" {
		imp.invalid(config.RecordCompany, i, "missing id")
		return
	}
	node := graph.Node{
		ID:   id,
		Name: r.str("name"),
		Kind: graph.KindAccount,
		Account: &graph.AccountInfo{
			Industry: r.str("industry"),
			Size:     r.str("size"),
			Location: r.str("location"),
			Domain:   r.str("domain"),
		},
	}
	imp.upsertNode(node)
}

func (imp *importer) contact(i int, r record) string {
	id := r.str("id")
	if id == "" {
		imp.invalid(config.RecordContact, i, "missing id")
		return ""
	}
	title := r.str("title")
	node := graph.Node{
		ID:   id,
		Name: contactName(r),
		Kind: graph.KindContact,
		Contact: &graph.ContactInfo{
			Title:     title,
			CompanyID: r.str("company_id"),
			Email:     r.str("email"),
			Phone:     r.str("phone"),
			Role:      contactRole(r, title),
		},
	}
	if !imp.upsertNode(node) {
		return ""
	}
	return id
}

func (imp *importer) deal(i int, r record) bool {
	id := r.str("id")
	if id == "" {
		imp.invalid(config.RecordDeal, i, "missing id")
		return false
	}
	raw := r.str("stage")
	stage, known := dealStage(imp.provider, raw)
	if !known && raw != "" {
		imp.logger.Debug("unknown deal stage, using new", "deal", id, "stage", raw)
	}
	value, _ := r.float("value")
	probability := stageProbability[stage]
	if p, ok := r.float("probability"); ok {
		// Providers export either a fraction or a percentage.
		if p > 0 && p <= 1 {
			p *= 100
		}
		probability = int(p + 0.5)
	}
	node := graph.Node{
		ID:   id,
		Name: r.str("name"),
		Kind: graph.KindDeal,
		Deal: &graph.DealInfo{
			Value:          value,
			Stage:          stage,
			Probability:    probability,
			CompanyID:      r.str("company_id"),
			StageEnteredAt: r.timestamp("stage_entered_at"),
			LastActivity:   r.timestamp("last_activity"),
			CloseDate:      r.timestamp("close_date"),
		},
	}
	return imp.upsertNode(node)
}

func (imp *importer) contactEdges(r record, batchContacts map[string]struct{}) {
	id := r.str("id")

	if manager := r.str("reports_to"); manager != "" {
		if _, ok := batchContacts[manager]; ok && manager != id {
			imp.upsertEdge(graph.Edge{
				ID:        edgeID(id, graph.EdgeReportsTo, manager),
				Source:    id,
				Target:    manager,
				Type:      graph.EdgeReportsTo,
				Strength:  reportsToStrength,
				Confirmed: true,
			})
		} else {
			imp.drop("manager not in batch", "contact", id, "reports_to", manager)
		}
	}

	if company := r.str("company_id"); company != "" {
		if imp.isKind(company, graph.KindAccount) {
			imp.upsertEdge(graph.Edge{
				ID:        edgeID(id, graph.EdgeWorksAt, company),
				Source:    id,
				Target:    company,
				Type:      graph.EdgeWorksAt,
				Strength:  worksAtStrength,
				Confirmed: true,
			})
		} else {
			imp.drop("unknown company", "contact", id, "company", company)
		}
	}
}

func (imp *importer) dealEdges(r record) {
	id := r.str("id")

	if company := r.str("company_id"); company != "" {
		if imp.isKind(company, graph.KindAccount) {
			imp.upsertEdge(graph.Edge{
				ID:        edgeID(id, graph.EdgeBelongsTo, company),
				Source:    id,
				Target:    company,
				Type:      graph.EdgeBelongsTo,
				Strength:  belongsToStrength,
				Confirmed: true,
			})
		} else {
			imp.drop("unknown company", "deal", id, "company", company)
		}
	}

	for _, contactID := range r.list("contact_ids") {
		c, ok := imp.tx.FindNode(contactID)
		if !ok || c.Kind != graph.KindContact {
			imp.drop("unknown contact", "deal", id, "contact", contactID)
			continue
		}
		edgeType, strength := graph.EdgeInfluencerFor, influencerStrength
		if c.Contact.Role == graph.RoleDecisionMaker {
			edgeType, strength = graph.EdgeDecisionMakerFor, decisionMakerStrength
		}
		imp.upsertEdge(graph.Edge{
			ID:        edgeID(contactID, edgeType, id),
			Source:    contactID,
			Target:    id,
			Type:      edgeType,
			Strength:  strength,
			Confirmed: true,
		})
	}
}

// interaction appends history without touching edge strengths.
func (imp *importer) interaction(i int, r record) {
	contactID := r.str("contact_id")
	if !imp.isKind(contactID, graph.KindContact) {
		imp.drop("unknown contact", "interaction", i, "contact", contactID)
		return
	}

	rec := graph.Interaction{
		ID:        r.str("id"),
		ContactID: contactID,
		Type:      interactionType(r.str("type")),
		Date:      r.timestamp("date"),
		Subject:   r.str("subject"),
		Notes:     r.str("notes"),
		DealID:    r.str("deal_id"),
	}
	if d, ok := r.float("duration"); ok && d > 0 {
		rec.Duration = int(d)
	}
	completed, _ := r.value("completed")
	rec.Completed = toBool(completed, true)
	if rec.Date.IsZero() {
		rec.Date = imp.g.Now()
	}
	if rec.DealID != "" && !imp.isKind(rec.DealID, graph.KindDeal) {
		imp.logger.Debug("clearing unknown deal on interaction", "contact", contactID, "deal", rec.DealID)
		rec.DealID = ""
	}
	if rec.ID == "" {
		key := fmt.Sprintf("%s|%s|%s|%s", contactID, rec.Type, rec.Date.Format("2006-01-02T15:04:05Z07:00"), rec.Subject)
		rec.ID = uuid.NewSHA1(interactionNamespace, []byte(key)).String()
	}

	if err := imp.tx.AppendInteraction(rec); err != nil {
		imp.result.Errors = append(imp.result.Errors, fmt.Errorf("appending interaction %s: %w", rec.ID, err))
		return
	}
	imp.result.InteractionsAdded++
}

func (imp *importer) upsertNode(n graph.Node) bool {
	if err := imp.tx.UpsertNode(n); err != nil {
		imp.result.Errors = append(imp.result.Errors, fmt.Errorf("upserting %s %s: %w", n.Kind, n.ID, err))
		return false
	}
	imp.result.NodesUpserted++
	return true
}

func (imp *importer) upsertEdge(e graph.Edge) {
	if err := imp.tx.UpsertEdge(e); err != nil {
		imp.result.Errors = append(imp.result.Errors, fmt.Errorf("upserting edge %s: %w", e.ID, err))
		return
	}
	imp.result.EdgesUpserted++
}

func (imp *importer) isKind(id string, kind graph.NodeKind) bool {
	if id == "" {
		return false
	}
	n, ok := imp.tx.FindNode(id)
	return ok && n.Kind == kind
}

func (imp *importer) drop(msg string, keyvals ...any) {
	imp.result.Dropped++
	imp.logger.Debug("dropping reference: "+msg, keyvals...)
}

func (imp *importer) invalid(kind config.RecordKind, i int, reason string) {
	imp.result.Errors = append(imp.result.Errors, fmt.Errorf("%s record %d: %s", kind, i, reason))
}
