package health

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"dealgraph/internal/graph"
	"dealgraph/internal/telemetry"
)

const (
	momentumWindow = 24 * time.Hour
	ghostWindow    = 7 * 24 * time.Hour
	stallFactor    = 1.5
	highValue      = 100000
	closingWindow  = 14 * 24 * time.Hour
)

// averageStageDays is the expected time a deal spends in each open stage.
var averageStageDays = map[graph.DealStage]float64{
	graph.StageNew:         3,
	graph.StageContacted:   5,
	graph.StageQualified:   7,
	graph.StageProposal:    10,
	graph.StageNegotiation: 14,
}

type Options struct {
	MaxHotLeads       int
	MaxRisks          int
	MaxActions        int
	MaxActionsPerDeal int
	Telemetry         telemetry.Source
	Logger            *log.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxHotLeads <= 0 {
		o.MaxHotLeads = 5
	}
	if o.MaxRisks <= 0 {
		o.MaxRisks = 5
	}
	if o.MaxActions <= 0 {
		o.MaxActions = 3
	}
	if o.MaxActionsPerDeal <= 0 {
		o.MaxActionsPerDeal = 3
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Orchestrator derives health signals for open deals.
type Orchestrator struct {
	g    *graph.Graph
	opts Options
}

func New(g *graph.Graph, opts Options) *Orchestrator {
	return &Orchestrator{g: g, opts: opts.withDefaults()}
}

type DealHealth struct {
	DealID       string          `json:"deal_id"`
	Name         string          `json:"name"`
	Stage        graph.DealStage `json:"stage"`
	Value        float64         `json:"value"`
	Probability  int             `json:"probability"`
	DaysInStage  float64         `json:"days_in_stage"`
	Hot          bool            `json:"hot"`
	Stalling     bool            `json:"stalling"`
	Ghosting     bool            `json:"ghosting"`
	Urgency      int             `json:"urgency"`
	Signals      []string        `json:"signals,omitempty"`
	Stakeholders []string        `json:"stakeholders,omitempty"`
	Champion     string          `json:"champion,omitempty"`

	hasDecider bool
	closeDate  time.Time
}

type Report struct {
	GeneratedAt  time.Time    `json:"generated_at"`
	HotLeads     []DealHealth `json:"hot_leads"`
	Risks        []DealHealth `json:"risks"`
	SmartActions []Action     `json:"smart_actions"`
}

// Analyze assesses every open deal and returns the ranked lists.
func (o *Orchestrator) Analyze() Report {
	now := o.g.Now()
	idx := newIndex(o.g.Snapshot())

	report := Report{GeneratedAt: now}
	var assessed []DealHealth
	for _, deal := range idx.deals {
		if deal.Deal.Stage.Closed() {
			continue
		}
		assessed = append(assessed, o.assess(idx, deal, now))
	}

	for _, h := range assessed {
		if h.Hot {
			report.HotLeads = append(report.HotLeads, h)
		}
		if h.Stalling || h.Ghosting {
			report.Risks = append(report.Risks, h)
		}
	}
	sort.SliceStable(report.HotLeads, func(i, j int) bool {
		a, b := report.HotLeads[i], report.HotLeads[j]
		if a.Urgency != b.Urgency {
			return a.Urgency > b.Urgency
		}
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.DealID < b.DealID
	})
	sort.SliceStable(report.Risks, func(i, j int) bool {
		a, b := report.Risks[i], report.Risks[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if a.Urgency != b.Urgency {
			return a.Urgency > b.Urgency
		}
		return a.DealID < b.DealID
	})
	report.HotLeads = truncate(report.HotLeads, o.opts.MaxHotLeads)
	report.Risks = truncate(report.Risks, o.opts.MaxRisks)
	report.SmartActions = o.smartActions(assessed, now)

	o.opts.Logger.Debug("deal health analyzed", "deals", len(assessed), "hot", len(report.HotLeads),
		"risks", len(report.Risks), "actions", len(report.SmartActions))
	return report
}

// Assess returns the health of a single deal.
func (o *Orchestrator) Assess(dealID string) (DealHealth, error) {
	idx := newIndex(o.g.Snapshot())
	deal, ok := idx.nodes[dealID]
	if !ok || deal.Kind != graph.KindDeal {
		return DealHealth{}, fmt.Errorf("assessing deal %q: %w", dealID, graph.ErrNotFound)
	}
	return o.assess(idx, deal, o.g.Now()), nil
}

func (o *Orchestrator) assess(idx *index, deal graph.Node, now time.Time) DealHealth {
	info := deal.Deal
	h := DealHealth{
		DealID:      deal.ID,
		Name:        deal.Name,
		Stage:       info.Stage,
		Value:       info.Value,
		Probability: info.Probability,
		closeDate:   info.CloseDate,
	}

	h.Stakeholders, h.Champion, h.hasDecider = idx.stakeholders(deal.ID)

	if o.opts.Telemetry != nil {
		if signal, hot := momentum(o.opts.Telemetry.ForDeal(deal.ID, now.Add(-momentumWindow)), now); hot {
			h.Hot = true
			h.Signals = append(h.Signals, signal)
		}
	}

	since := info.StageEnteredAt
	if since.IsZero() {
		since = info.LastActivity
	}
	if !since.IsZero() && now.After(since) {
		h.DaysInStage = now.Sub(since).Hours() / 24
	}
	if avg, ok := averageStageDays[info.Stage]; ok && h.DaysInStage > stallFactor*avg {
		h.Stalling = true
		h.Signals = append(h.Signals, fmt.Sprintf("%.0f days in %s, expected %.0f", h.DaysInStage, info.Stage, avg))
	}

	if !idx.recentOutreach(deal.ID, h.Stakeholders, now.Add(-ghostWindow), now) {
		h.Ghosting = true
		h.Signals = append(h.Signals, "no call, email or meeting in 7 days")
	}

	h.Urgency = urgency(h)
	return h
}

// momentum reports whether the events, all within the momentum window,
// indicate a hot deal and names the strongest signal.
func momentum(events []telemetry.Event, now time.Time) (string, bool) {
	var opens, clicks, pricing, docs, accepts int
	for _, e := range events {
		if e.At.After(now) {
			continue
		}
		switch {
		case e.Type == telemetry.EmailOpen:
			opens++
		case e.Type == telemetry.EmailClick:
			clicks++
		case e.PricingClick():
			pricing++
		case e.Type == telemetry.DocumentView:
			docs++
		case e.Type == telemetry.MeetingAccept:
			accepts++
		}
	}
	switch {
	case accepts > 0:
		return "meeting accepted", true
	case docs > 0:
		return "proposal viewed", true
	case pricing > 1:
		return fmt.Sprintf("pricing page viewed %d times", pricing), true
	case clicks > 0:
		return "email link clicked", true
	case opens > 2:
		return fmt.Sprintf("email opened %d times", opens), true
	}
	return "", false
}

func urgency(h DealHealth) int {
	score := 1 + math.Floor(float64(h.Probability)/10)
	if h.Hot {
		score += 3
	}
	if h.Stalling {
		score += 2
	}
	if h.Ghosting {
		score++
	}
	if h.Value >= highValue {
		score++
	}
	return int(math.Max(1, math.Min(10, math.Round(score))))
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
