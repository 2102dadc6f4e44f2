package health

import (
	"sort"
	"time"

	"dealgraph/internal/graph"
)

type index struct {
	nodes        map[string]graph.Node
	deals        []graph.Node
	dealRoles    map[string][]graph.Edge
	interactions []graph.Interaction
}

func newIndex(snap *graph.Snapshot) *index {
	idx := &index{
		nodes:        make(map[string]graph.Node, len(snap.Nodes)),
		dealRoles:    make(map[string][]graph.Edge),
		interactions: snap.Interactions,
	}
	for _, n := range snap.Nodes {
		idx.nodes[n.ID] = n
		if n.Kind == graph.KindDeal && n.Deal != nil {
			idx.deals = append(idx.deals, n)
		}
	}
	for _, e := range snap.Edges {
		if e.Type.DealRole() {
			idx.dealRoles[e.Target] = append(idx.dealRoles[e.Target], e)
		}
	}
	return idx
}

// stakeholders lists the contacts holding a deal role, the most influential
// of them, and whether any is a decision maker.
func (idx *index) stakeholders(dealID string) (ids []string, champion string, hasDecider bool) {
	best := -1
	for _, e := range idx.dealRoles[dealID] {
		c, ok := idx.nodes[e.Source]
		if !ok || c.Contact == nil {
			continue
		}
		ids = append(ids, c.ID)
		role := c.Contact.Role
		if role == "" {
			role = graph.InferRole(c.Contact.Title)
		}
		if e.Type == graph.EdgeDecisionMakerFor || role == graph.RoleDecisionMaker {
			hasDecider = true
		}
		score := c.Contact.InfluenceScore
		if score > best || (score == best && c.ID < champion) {
			best, champion = score, c.ID
		}
	}
	sort.Strings(ids)
	return ids, champion, hasDecider
}

// recentOutreach reports whether a call, email or meeting touched the deal
// or one of its stakeholders within [from, to].
func (idx *index) recentOutreach(dealID string, stakeholders []string, from, to time.Time) bool {
	members := make(map[string]bool, len(stakeholders))
	for _, id := range stakeholders {
		members[id] = true
	}
	for _, rec := range idx.interactions {
		switch rec.Type {
		case graph.InteractionCall, graph.InteractionEmail, graph.InteractionMeeting:
		default:
			continue
		}
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		if rec.DealID == dealID || members[rec.ContactID] {
			return true
		}
	}
	return false
}
