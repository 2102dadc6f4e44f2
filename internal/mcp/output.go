package mcp

import (
	"time"

	"dealgraph/internal/graph"
)

type NodeOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`

	Title           string `json:"title,omitempty"`
	CompanyID       string `json:"company_id,omitempty"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	ReportsTo       string `json:"reports_to,omitempty"`
	InfluenceScore  int    `json:"influence_score,omitempty"`
	LastInteraction string `json:"last_interaction,omitempty"`
	Headline        string `json:"headline,omitempty"`

	Industry string `json:"industry,omitempty"`
	Domain   string `json:"domain,omitempty"`

	Value       float64 `json:"value,omitempty"`
	Stage       string  `json:"stage,omitempty"`
	Probability int     `json:"probability,omitempty"`
	CloseDate   string  `json:"close_date,omitempty"`
}

type EdgeOutput struct {
	ID               string  `json:"id"`
	Source           string  `json:"source"`
	Target           string  `json:"target"`
	Type             string  `json:"type"`
	Strength         float64 `json:"strength"`
	Confirmed        bool    `json:"confirmed"`
	InteractionCount int     `json:"interaction_count,omitempty"`
	LastInteraction  string  `json:"last_interaction,omitempty"`
}

func nodeOutput(n graph.Node) NodeOutput {
	out := NodeOutput{ID: n.ID, Name: n.Name, Kind: string(n.Kind)}
	switch {
	case n.Contact != nil:
		c := n.Contact
		out.Title = c.Title
		out.CompanyID = c.CompanyID
		out.Email = c.Email
		out.Role = string(c.Role)
		out.ReportsTo = c.ReportsTo
		out.InfluenceScore = c.InfluenceScore
		out.LastInteraction = formatTime(c.LastInteraction)
		out.Headline = c.Headline
	case n.Account != nil:
		out.Industry = n.Account.Industry
		out.Domain = n.Account.Domain
	case n.Deal != nil:
		d := n.Deal
		out.CompanyID = d.CompanyID
		out.Value = d.Value
		out.Stage = string(d.Stage)
		out.Probability = d.Probability
		out.CloseDate = formatTime(d.CloseDate)
	}
	return out
}

func nodeOutputs(nodes []graph.Node) []NodeOutput {
	out := make([]NodeOutput, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeOutput(n))
	}
	return out
}

func edgeOutput(e graph.Edge) EdgeOutput {
	out := EdgeOutput{
		ID:        e.ID,
		Source:    e.Source,
		Target:    e.Target,
		Type:      string(e.Type),
		Strength:  e.Strength,
		Confirmed: e.Confirmed,
	}
	switch v := e.Metadata["interaction_count"].(type) {
	case int:
		out.InteractionCount = v
	case int64:
		out.InteractionCount = int(v)
	case float64:
		out.InteractionCount = int(v)
	}
	if v, ok := e.Metadata["last_interaction"].(string); ok {
		out.LastInteraction = v
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
