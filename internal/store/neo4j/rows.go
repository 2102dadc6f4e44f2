package neo4j

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"dealgraph/internal/graph"
)

var labelPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var kindLabels = map[graph.NodeKind]string{
	graph.KindContact: "Contact",
	graph.KindAccount: "Account",
	graph.KindDeal:    "Deal",
}

// nodeRows groups node properties by label. Neo4j properties must be
// primitives or arrays of them, so nested variant data is flattened.
func nodeRows(nodes []graph.Node) (map[string][]map[string]any, error) {
	out := make(map[string][]map[string]any)
	for _, n := range nodes {
		label, ok := kindLabels[n.Kind]
		if !ok {
			return nil, fmt.Errorf("node %s: unknown kind %q", n.ID, n.Kind)
		}
		props := map[string]any{"id": n.ID, "name": n.Name}
		switch {
		case n.Contact != nil:
			c := n.Contact
			props["title"] = c.Title
			props["company_id"] = c.CompanyID
			props["email"] = c.Email
			props["role"] = string(c.Role)
			props["influence_score"] = int64(c.InfluenceScore)
			props["interaction_count"] = int64(c.InteractionCount)
			props["last_interaction"] = formatTime(c.LastInteraction)
			props["headline"] = c.Headline
			props["linkedin_url"] = c.LinkedInURL
			props["skills"] = nonNil(c.Skills)
		case n.Account != nil:
			props["industry"] = n.Account.Industry
			props["size"] = n.Account.Size
			props["location"] = n.Account.Location
			props["domain"] = n.Account.Domain
		case n.Deal != nil:
			d := n.Deal
			props["value"] = d.Value
			props["stage"] = string(d.Stage)
			props["probability"] = int64(d.Probability)
			props["company_id"] = d.CompanyID
			props["stage_entered_at"] = formatTime(d.StageEnteredAt)
			props["last_activity"] = formatTime(d.LastActivity)
			props["close_date"] = formatTime(d.CloseDate)
		}
		out[label] = append(out[label], map[string]any{"id": n.ID, "props": props})
	}
	return out, nil
}

// edgeRows groups edges by relationship type, e.g. reports_to becomes
// REPORTS_TO.
func edgeRows(edges []graph.Edge) (map[string][]map[string]any, error) {
	out := make(map[string][]map[string]any)
	for _, e := range edges {
		relType := strings.ToUpper(string(e.Type))
		if !labelPattern.MatchString(relType) {
			return nil, fmt.Errorf("edge %s: invalid relationship type %q", e.ID, e.Type)
		}
		out[relType] = append(out[relType], map[string]any{
			"source": e.Source,
			"target": e.Target,
			"props": map[string]any{
				"id":        e.ID,
				"strength":  e.Strength,
				"confirmed": e.Confirmed,
			},
		})
	}
	return out, nil
}

func sortedKeys(m map[string][]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
