package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"dealgraph/internal/graph"
	"dealgraph/internal/health"
)

type GetGraphDataInput struct {
	AccountID    string `json:"account_id,omitempty" jsonschema:"only contacts at this account"`
	DealID       string `json:"deal_id,omitempty" jsonschema:"only contacts holding a role on this deal"`
	MinInfluence int    `json:"min_influence,omitempty" jsonschema:"minimum contact influence score"`
}

type GraphDataOutput struct {
	Nodes []NodeOutput `json:"nodes"`
	Edges []EdgeOutput `json:"edges"`
}

type AccountInput struct {
	AccountID string `json:"account_id" jsonschema:"account id"`
}

type ContactInput struct {
	ContactID string `json:"contact_id" jsonschema:"contact id"`
}

type DealInput struct {
	DealID string `json:"deal_id" jsonschema:"deal id"`
}

type ContactsOutput struct {
	Contacts []NodeOutput `json:"contacts"`
}

type RelationshipOutput struct {
	Edge  EdgeOutput `json:"edge"`
	Other NodeOutput `json:"other"`
}

type RelationshipsOutput struct {
	Relationships []RelationshipOutput `json:"relationships"`
}

type FindPathInput struct {
	SourceID string `json:"source_id" jsonschema:"contact to start from"`
	TargetID string `json:"target_id" jsonschema:"contact to reach"`
	MaxDepth int    `json:"max_depth,omitempty" jsonschema:"maximum number of hops, default 3"`
}

type PathOutput struct {
	Found bool         `json:"found"`
	Path  []NodeOutput `json:"path"`
}

type OrgEntryOutput struct {
	ContactID string   `json:"contact_id"`
	Name      string   `json:"name"`
	Title     string   `json:"title,omitempty"`
	ReportsTo string   `json:"reports_to,omitempty"`
	Manages   []string `json:"manages,omitempty"`
	Level     int      `json:"level"`
	InCycle   bool     `json:"in_cycle,omitempty"`
}

type OrgChartOutput struct {
	Entries []OrgEntryOutput `json:"entries"`
}

type TrackInteractionInput struct {
	ContactID string `json:"contact_id" jsonschema:"contact the interaction was with"`
	Type      string `json:"type" jsonschema:"call, email, meeting, note or task"`
	Date      string `json:"date,omitempty" jsonschema:"RFC3339 timestamp, defaults to now"`
	Duration  int    `json:"duration,omitempty" jsonschema:"duration in minutes"`
	Subject   string `json:"subject,omitempty"`
	Notes     string `json:"notes,omitempty"`
	DealID    string `json:"deal_id,omitempty" jsonschema:"deal the interaction relates to"`
	Completed *bool  `json:"completed,omitempty" jsonschema:"whether the interaction happened, defaults to true"`
}

type TrackInteractionOutput struct {
	InteractionID  string       `json:"interaction_id"`
	InfluenceScore int          `json:"influence_score"`
	Edges          []EdgeOutput `json:"edges"`
}

type RecommendationOutput struct {
	ContactID      string   `json:"contact_id"`
	Name           string   `json:"name"`
	Title          string   `json:"title,omitempty"`
	Role           string   `json:"role,omitempty"`
	InfluenceScore int      `json:"influence_score"`
	Action         string   `json:"action"`
	Reason         string   `json:"reason"`
	Path           []string `json:"path,omitempty"`
}

type RecommendationsOutput struct {
	Recommendations []RecommendationOutput `json:"recommendations"`
}

type InfluenceOutput struct {
	ContactID  string  `json:"contact_id"`
	Role       float64 `json:"role"`
	Deals      float64 `json:"deals"`
	Strength   float64 `json:"strength"`
	Recency    float64 `json:"recency"`
	Centrality float64 `json:"centrality"`
	Total      int     `json:"total"`
}

type AnalyzeDealsInput struct{}

type DealHealthOutput struct {
	DealID      string   `json:"deal_id"`
	Name        string   `json:"name"`
	Stage       string   `json:"stage"`
	Value       float64  `json:"value"`
	Probability int      `json:"probability"`
	DaysInStage float64  `json:"days_in_stage"`
	Hot         bool     `json:"hot"`
	Stalling    bool     `json:"stalling"`
	Ghosting    bool     `json:"ghosting"`
	Urgency     int      `json:"urgency"`
	Signals     []string `json:"signals,omitempty"`
}

type ActionOutput struct {
	DealID    string `json:"deal_id"`
	DealName  string `json:"deal_name"`
	ContactID string `json:"contact_id,omitempty"`
	Kind      string `json:"kind"`
	Priority  int    `json:"priority"`
	Urgency   int    `json:"urgency"`
	Reason    string `json:"reason"`
}

type AnalyzeDealsOutput struct {
	HotLeads     []DealHealthOutput `json:"hot_leads"`
	Risks        []DealHealthOutput `json:"risks"`
	SmartActions []ActionOutput     `json:"smart_actions"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_graph_data",
		Description: "Return nodes and edges, optionally filtered by account, deal or minimum influence",
	}, s.handleGetGraphData)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_account_contacts",
		Description: "List the contacts at an account by influence",
	}, s.handleGetAccountContacts)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_contact_relationships",
		Description: "List every relationship a contact has",
	}, s.handleGetContactRelationships)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "find_path",
		Description: "Find the warmest introduction path between two contacts",
	}, s.handleFindPath)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_org_chart",
		Description: "Return the reporting structure of an account",
	}, s.handleGetOrgChart)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "track_interaction",
		Description: "Record a call, email, meeting, note or task with a contact",
	}, s.handleTrackInteraction)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_influence_recommendations",
		Description: "Rank who to engage on a deal and how",
	}, s.handleGetInfluenceRecommendations)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "explain_influence",
		Description: "Break a contact's influence score into its components",
	}, s.handleExplainInfluence)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "analyze_deals",
		Description: "Report hot leads, at-risk deals and suggested next actions",
	}, s.handleAnalyzeDeals)
}

func (s *Server) handleGetGraphData(ctx context.Context, req *sdk.CallToolRequest, input GetGraphDataInput) (*sdk.CallToolResult, GraphDataOutput, error) {
	data := s.graph.Subgraph(graph.Filter{
		AccountID:    input.AccountID,
		DealID:       input.DealID,
		MinInfluence: input.MinInfluence,
	})
	out := GraphDataOutput{Nodes: nodeOutputs(data.Nodes), Edges: make([]EdgeOutput, 0, len(data.Edges))}
	for _, e := range data.Edges {
		out.Edges = append(out.Edges, edgeOutput(e))
	}
	return nil, out, nil
}

func (s *Server) handleGetAccountContacts(ctx context.Context, req *sdk.CallToolRequest, input AccountInput) (*sdk.CallToolResult, ContactsOutput, error) {
	if input.AccountID == "" {
		return nil, ContactsOutput{}, fmt.Errorf("account_id is required")
	}
	contacts, err := s.graph.AccountContacts(input.AccountID)
	if err != nil {
		return nil, ContactsOutput{}, err
	}
	return nil, ContactsOutput{Contacts: nodeOutputs(contacts)}, nil
}

func (s *Server) handleGetContactRelationships(ctx context.Context, req *sdk.CallToolRequest, input ContactInput) (*sdk.CallToolResult, RelationshipsOutput, error) {
	if input.ContactID == "" {
		return nil, RelationshipsOutput{}, fmt.Errorf("contact_id is required")
	}
	rels, err := s.graph.ContactRelationships(input.ContactID)
	if err != nil {
		return nil, RelationshipsOutput{}, err
	}
	out := RelationshipsOutput{Relationships: make([]RelationshipOutput, 0, len(rels))}
	for _, rel := range rels {
		out.Relationships = append(out.Relationships, RelationshipOutput{Edge: edgeOutput(rel.Edge), Other: nodeOutput(rel.Other)})
	}
	return nil, out, nil
}

func (s *Server) handleFindPath(ctx context.Context, req *sdk.CallToolRequest, input FindPathInput) (*sdk.CallToolResult, PathOutput, error) {
	if input.SourceID == "" || input.TargetID == "" {
		return nil, PathOutput{}, fmt.Errorf("source_id and target_id are required")
	}
	ids := s.graph.ShortestPath(input.SourceID, input.TargetID, input.MaxDepth)
	out := PathOutput{Found: ids != nil, Path: make([]NodeOutput, 0, len(ids))}
	for _, id := range ids {
		if n, ok := s.graph.FindNode(id); ok {
			out.Path = append(out.Path, nodeOutput(n))
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetOrgChart(ctx context.Context, req *sdk.CallToolRequest, input AccountInput) (*sdk.CallToolResult, OrgChartOutput, error) {
	if input.AccountID == "" {
		return nil, OrgChartOutput{}, fmt.Errorf("account_id is required")
	}
	entries, err := s.graph.OrgChart(input.AccountID)
	if err != nil {
		return nil, OrgChartOutput{}, err
	}
	out := OrgChartOutput{Entries: make([]OrgEntryOutput, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, OrgEntryOutput{
			ContactID: e.ContactID,
			Name:      e.Name,
			Title:     e.Title,
			ReportsTo: e.ReportsTo,
			Manages:   e.Manages,
			Level:     e.Level,
			InCycle:   e.InCycle,
		})
	}
	return nil, out, nil
}

func (s *Server) handleTrackInteraction(ctx context.Context, req *sdk.CallToolRequest, input TrackInteractionInput) (*sdk.CallToolResult, TrackInteractionOutput, error) {
	if input.ContactID == "" || input.Type == "" {
		return nil, TrackInteractionOutput{}, fmt.Errorf("contact_id and type are required")
	}
	opts := graph.TrackOptions{
		Duration:  input.Duration,
		Subject:   input.Subject,
		Notes:     input.Notes,
		DealID:    input.DealID,
		Completed: input.Completed,
	}
	if input.Date != "" {
		date, err := time.Parse(time.RFC3339, input.Date)
		if err != nil {
			return nil, TrackInteractionOutput{}, fmt.Errorf("parsing date: %w", err)
		}
		opts.Date = date
	}

	rec, err := s.graph.TrackInteraction(input.ContactID, graph.InteractionType(strings.ToLower(input.Type)), opts)
	if err != nil {
		return nil, TrackInteractionOutput{}, err
	}
	if s.persist != nil {
		if err := s.persist(ctx); err != nil {
			return nil, TrackInteractionOutput{}, fmt.Errorf("saving graph: %w", err)
		}
	}

	out := TrackInteractionOutput{InteractionID: rec.ID}
	if n, ok := s.graph.FindNode(input.ContactID); ok {
		out.InfluenceScore = n.Contact.InfluenceScore
	}
	for _, e := range s.graph.Store().EdgesTouching(input.ContactID) {
		if !e.Type.Structural() {
			out.Edges = append(out.Edges, edgeOutput(e))
		}
	}
	s.logger.Debug("interaction tracked", "contact", input.ContactID, "type", input.Type, "id", rec.ID)
	return nil, out, nil
}

func (s *Server) handleGetInfluenceRecommendations(ctx context.Context, req *sdk.CallToolRequest, input DealInput) (*sdk.CallToolResult, RecommendationsOutput, error) {
	if input.DealID == "" {
		return nil, RecommendationsOutput{}, fmt.Errorf("deal_id is required")
	}
	recs, err := s.graph.InfluenceRecommendations(input.DealID)
	if err != nil {
		return nil, RecommendationsOutput{}, err
	}
	out := RecommendationsOutput{Recommendations: make([]RecommendationOutput, 0, len(recs))}
	for _, r := range recs {
		out.Recommendations = append(out.Recommendations, RecommendationOutput{
			ContactID:      r.ContactID,
			Name:           r.Name,
			Title:          r.Title,
			Role:           string(r.Role),
			InfluenceScore: r.InfluenceScore,
			Action:         string(r.Action),
			Reason:         r.Reason,
			Path:           r.Path,
		})
	}
	return nil, out, nil
}

func (s *Server) handleExplainInfluence(ctx context.Context, req *sdk.CallToolRequest, input ContactInput) (*sdk.CallToolResult, InfluenceOutput, error) {
	if input.ContactID == "" {
		return nil, InfluenceOutput{}, fmt.Errorf("contact_id is required")
	}
	b, err := s.graph.Influence(input.ContactID)
	if err != nil {
		return nil, InfluenceOutput{}, err
	}
	return nil, InfluenceOutput(b), nil
}

func (s *Server) handleAnalyzeDeals(ctx context.Context, req *sdk.CallToolRequest, input AnalyzeDealsInput) (*sdk.CallToolResult, AnalyzeDealsOutput, error) {
	report := s.health.Analyze()
	out := AnalyzeDealsOutput{
		HotLeads:     dealHealthOutputs(report.HotLeads),
		Risks:        dealHealthOutputs(report.Risks),
		SmartActions: make([]ActionOutput, 0, len(report.SmartActions)),
	}
	for _, a := range report.SmartActions {
		out.SmartActions = append(out.SmartActions, ActionOutput{
			DealID:    a.DealID,
			DealName:  a.DealName,
			ContactID: a.ContactID,
			Kind:      string(a.Kind),
			Priority:  a.Priority,
			Urgency:   a.Urgency,
			Reason:    a.Reason,
		})
	}
	return nil, out, nil
}

func dealHealthOutputs(deals []health.DealHealth) []DealHealthOutput {
	out := make([]DealHealthOutput, 0, len(deals))
	for _, h := range deals {
		out = append(out, DealHealthOutput{
			DealID:      h.DealID,
			Name:        h.Name,
			Stage:       string(h.Stage),
			Value:       h.Value,
			Probability: h.Probability,
			DaysInStage: h.DaysInStage,
			Hot:         h.Hot,
			Stalling:    h.Stalling,
			Ghosting:    h.Ghosting,
			Urgency:     h.Urgency,
			Signals:     h.Signals,
		})
	}
	return out
}
