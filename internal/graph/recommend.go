package graph

import (
	"fmt"
	"sort"
)

type RecommendedAction string

const (
	ActionEngage            RecommendedAction = "engage"
	ActionBuildRelationship RecommendedAction = "build_relationship"
	ActionIntroPath         RecommendedAction = "intro_path"
)

type Recommendation struct {
	ContactID      string            `json:"contact_id"`
	Name           string            `json:"name"`
	Title          string            `json:"title,omitempty"`
	Role           Role              `json:"role,omitempty"`
	InfluenceScore int               `json:"influence_score"`
	Action         RecommendedAction `json:"action"`
	Reason         string            `json:"reason"`
	Path           []string          `json:"path,omitempty"`
}

// InfluenceRecommendations ranks the people who matter for a deal. Contacts
// already tied to the deal are engaged or warmed up depending on recent
// contact; decision makers at the deal's account who are not yet involved
// get an introduction path from the strongest stakeholder when one exists.
func (g *Graph) InfluenceRecommendations(dealID string) ([]Recommendation, error) {
	s := g.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	deal, ok := s.nodes[dealID]
	if !ok || deal.Kind != KindDeal {
		return nil, fmt.Errorf("deal %s: %w", dealID, ErrNotFound)
	}

	now := g.now()
	cutoff := now.Add(-g.recency)
	involved := make(map[string]bool)
	var out []Recommendation
	var champion *Node

	for _, id := range s.touching[dealID] {
		e := s.edges[id]
		if !e.Type.DealRole() || e.Target != dealID {
			continue
		}
		c, ok := s.nodes[e.Source]
		if !ok || c.Kind != KindContact || involved[c.ID] {
			continue
		}
		involved[c.ID] = true
		rec := newRecommendation(c)
		if c.Contact.LastInteraction.After(cutoff) {
			rec.Action = ActionEngage
			rec.Reason = fmt.Sprintf("%s on this deal with recent contact", e.Type)
		} else {
			rec.Action = ActionBuildRelationship
			rec.Reason = fmt.Sprintf("%s on this deal with no contact in %d days", e.Type, int(g.recency.Hours()/24))
		}
		out = append(out, rec)
		if champion == nil || c.Contact.InfluenceScore > champion.Contact.InfluenceScore {
			champion = c
		}
	}

	if accountID := deal.Deal.CompanyID; accountID != "" {
		for _, c := range s.accountContacts(accountID) {
			if involved[c.ID] || contactRole(c.Contact) != RoleDecisionMaker {
				continue
			}
			rec := newRecommendation(&c)
			rec.Action = ActionIntroPath
			rec.Reason = "decision maker at the account not yet involved in the deal"
			if champion != nil {
				rec.Path = s.shortestPath(champion.ID, c.ID, DefaultMaxDepth)
			}
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].InfluenceScore != out[j].InfluenceScore {
			return out[i].InfluenceScore > out[j].InfluenceScore
		}
		return out[i].ContactID < out[j].ContactID
	})
	return out, nil
}

func newRecommendation(c *Node) Recommendation {
	return Recommendation{
		ContactID:      c.ID,
		Name:           c.Name,
		Title:          c.Contact.Title,
		Role:           c.Contact.Role,
		InfluenceScore: c.Contact.InfluenceScore,
	}
}

func contactRole(c *ContactInfo) Role {
	if c.Role != "" {
		return c.Role
	}
	return InferRole(c.Title)
}
