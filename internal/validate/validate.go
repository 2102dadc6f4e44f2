package validate

import (
	"fmt"
	"math"

	"dealgraph/internal/graph"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeDanglingEdge          = "dangling_edge"
	codeSelfLoop              = "self_loop"
	codeInvalidEdgeType       = "invalid_edge_type"
	codeInvalidEndpoint       = "invalid_endpoint"
	codeStrengthOutOfRange    = "strength_out_of_range"
	codeMissingInverse        = "missing_inverse"
	codeReportingCycle        = "reporting_cycle"
	codeContactWithoutAccount = "contact_without_account"
	codeDealWithoutAccount    = "deal_without_account"
	codeDanglingInteraction   = "dangling_interaction"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Node     string   `json:"node,omitempty"`
	Edge     string   `json:"edge,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

func (r *Report) Warnings() int {
	return len(r.Issues) - r.Errors()
}

// Run checks a snapshot for structural problems. It never mutates snap.
func Run(snap *graph.Snapshot) (*Report, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot is required")
	}
	idx := newIndex(snap)
	issues := make([]Issue, 0)

	for _, e := range snap.Edges {
		issues = append(issues, validateEdge(idx, e)...)
	}
	issues = append(issues, validateInverses(idx, snap.Edges)...)
	issues = append(issues, validateReportingCycles(idx)...)
	issues = append(issues, validateMembership(idx, snap.Nodes)...)
	issues = append(issues, validateInteractions(idx, snap.Interactions)...)

	return &Report{Issues: issues}, nil
}

func validateEdge(idx *index, e graph.Edge) []Issue {
	var issues []Issue
	edgeIssue := func(severity Severity, code, format string, args ...any) {
		issues = append(issues, Issue{Severity: severity, Code: code, Message: fmt.Sprintf(format, args...), Edge: e.ID})
	}

	if !e.Type.Valid() {
		edgeIssue(SeverityError, codeInvalidEdgeType, "unknown edge type %q", e.Type)
	}
	if e.Source == e.Target {
		edgeIssue(SeverityError, codeSelfLoop, "edge links %s to itself", e.Source)
	}
	if math.IsNaN(e.Strength) || e.Strength < 0 || e.Strength > 1 {
		edgeIssue(SeverityError, codeStrengthOutOfRange, "strength %v outside [0, 1]", e.Strength)
	}

	src, srcOK := idx.nodes[e.Source]
	tgt, tgtOK := idx.nodes[e.Target]
	if !srcOK {
		edgeIssue(SeverityError, codeDanglingEdge, "source %s does not exist", e.Source)
	}
	if !tgtOK {
		edgeIssue(SeverityError, codeDanglingEdge, "target %s does not exist", e.Target)
	}
	if !srcOK || !tgtOK {
		return issues
	}

	want, ok := endpointKinds[e.Type]
	if ok && (src.Kind != want[0] || tgt.Kind != want[1]) {
		edgeIssue(SeverityError, codeInvalidEndpoint, "%s expects %s -> %s, got %s -> %s",
			e.Type, want[0], want[1], src.Kind, tgt.Kind)
	}
	return issues
}

// endpointKinds lists the source and target kinds each edge type requires.
var endpointKinds = map[graph.EdgeType][2]graph.NodeKind{
	graph.EdgeReportsTo:        {graph.KindContact, graph.KindContact},
	graph.EdgeManages:          {graph.KindContact, graph.KindContact},
	graph.EdgeWorksAt:          {graph.KindContact, graph.KindAccount},
	graph.EdgeBelongsTo:        {graph.KindDeal, graph.KindAccount},
	graph.EdgeDecisionMakerFor: {graph.KindContact, graph.KindDeal},
	graph.EdgeInfluencerFor:    {graph.KindContact, graph.KindDeal},
	graph.EdgeFormerColleague:  {graph.KindContact, graph.KindContact},
	graph.EdgeAlumni:           {graph.KindContact, graph.KindContact},
	graph.EdgeMutualConnection: {graph.KindContact, graph.KindContact},
}

func validateInverses(idx *index, edges []graph.Edge) []Issue {
	var issues []Issue
	for _, e := range edges {
		var inverse graph.EdgeType
		switch e.Type {
		case graph.EdgeReportsTo:
			inverse = graph.EdgeManages
		case graph.EdgeManages:
			inverse = graph.EdgeReportsTo
		default:
			continue
		}
		if !idx.hasTyped(e.Target, e.Source, inverse) {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeMissingInverse,
				Message:  fmt.Sprintf("%s %s %s has no %s edge back", e.Source, e.Type, e.Target, inverse),
				Edge:     e.ID,
			})
		}
	}
	return issues
}

func validateReportingCycles(idx *index) []Issue {
	var issues []Issue
	for _, cycle := range idx.reportingCycles() {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeReportingCycle,
			Message:  fmt.Sprintf("reporting cycle: %s", formatCycle(cycle)),
			Node:     cycle[0],
		})
	}
	return issues
}

func validateMembership(idx *index, nodes []graph.Node) []Issue {
	var issues []Issue
	for _, n := range nodes {
		switch n.Kind {
		case graph.KindContact:
			if !idx.hasOutgoing(n.ID, graph.EdgeWorksAt) {
				issues = append(issues, Issue{
					Severity: SeverityWarn,
					Code:     codeContactWithoutAccount,
					Message:  fmt.Sprintf("contact %q has no works_at edge", n.Name),
					Node:     n.ID,
				})
			}
		case graph.KindDeal:
			if !idx.hasOutgoing(n.ID, graph.EdgeBelongsTo) {
				issues = append(issues, Issue{
					Severity: SeverityWarn,
					Code:     codeDealWithoutAccount,
					Message:  fmt.Sprintf("deal %q has no belongs_to edge", n.Name),
					Node:     n.ID,
				})
			}
		}
	}
	return issues
}

func validateInteractions(idx *index, interactions []graph.Interaction) []Issue {
	var issues []Issue
	for _, rec := range interactions {
		if n, ok := idx.nodes[rec.ContactID]; !ok || n.Kind != graph.KindContact {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeDanglingInteraction,
				Message:  fmt.Sprintf("interaction %s references unknown contact %s", rec.ID, rec.ContactID),
				Node:     rec.ContactID,
			})
		}
		if rec.DealID == "" {
			continue
		}
		if n, ok := idx.nodes[rec.DealID]; !ok || n.Kind != graph.KindDeal {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeDanglingInteraction,
				Message:  fmt.Sprintf("interaction %s references unknown deal %s", rec.ID, rec.DealID),
				Node:     rec.DealID,
			})
		}
	}
	return issues
}
