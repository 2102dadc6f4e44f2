package health

import (
	"fmt"
	"sort"
	"time"
)

type ActionKind string

const (
	ActionCallNow             ActionKind = "call_now"
	ActionReEngage            ActionKind = "re_engage"
	ActionAdvanceStage        ActionKind = "advance_stage"
	ActionEngageDecisionMaker ActionKind = "engage_decision_maker"
	ActionConfirmCloseDate    ActionKind = "confirm_close_date"
)

// Action is a suggested next step for a deal. Lower Priority runs first
// within the same urgency.
type Action struct {
	DealID    string     `json:"deal_id"`
	DealName  string     `json:"deal_name"`
	ContactID string     `json:"contact_id,omitempty"`
	Kind      ActionKind `json:"kind"`
	Priority  int        `json:"priority"`
	Urgency   int        `json:"urgency"`
	Reason    string     `json:"reason"`
}

func (o *Orchestrator) smartActions(deals []DealHealth, now time.Time) []Action {
	var out []Action
	for _, h := range deals {
		actions := dealActions(h, now)
		sort.SliceStable(actions, func(i, j int) bool { return actions[i].Priority < actions[j].Priority })
		out = append(out, truncate(actions, o.opts.MaxActionsPerDeal)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Urgency != b.Urgency {
			return a.Urgency > b.Urgency
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.DealID < b.DealID
	})
	return truncate(out, o.opts.MaxActions)
}

func dealActions(h DealHealth, now time.Time) []Action {
	var actions []Action
	add := func(kind ActionKind, priority int, reason string) {
		actions = append(actions, Action{
			DealID:    h.DealID,
			DealName:  h.Name,
			ContactID: h.Champion,
			Kind:      kind,
			Priority:  priority,
			Urgency:   h.Urgency,
			Reason:    reason,
		})
	}

	if h.Hot {
		add(ActionCallNow, 1, "buyer engagement in the last 24 hours: "+h.Signals[0])
	}
	if h.Ghosting {
		add(ActionReEngage, 2, "no call, email or meeting in the last 7 days")
	}
	if h.Stalling {
		add(ActionAdvanceStage, 2, fmt.Sprintf("%.0f days in %s", h.DaysInStage, h.Stage))
	}
	if !h.hasDecider {
		add(ActionEngageDecisionMaker, 3, "no decision maker is involved in the deal")
	}
	if !h.closeDate.IsZero() && h.closeDate.After(now) && h.closeDate.Sub(now) <= closingWindow && h.Probability < 50 {
		add(ActionConfirmCloseDate, 3, fmt.Sprintf("closes %s at %d%% probability", h.closeDate.Format("2006-01-02"), h.Probability))
	}
	return actions
}
