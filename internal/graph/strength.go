package graph

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	callIncrement     = 0.02
	longCallBonus     = 0.03
	longCallMinutes   = 30
	meetingIncrement  = 0.04
	emailIncrement    = 0.01
	defaultIncrement  = 0.005
	completedModifier = 1.2
)

// TrackOptions describes an interaction being logged. A nil Completed
// counts as completed.
type TrackOptions struct {
	ID        string
	Date      time.Time
	Duration  int
	Subject   string
	Notes     string
	DealID    string
	Completed *bool
}

// TrackInteraction records an interaction with a contact and strengthens
// every non-structural relationship the contact has.
func (g *Graph) TrackInteraction(contactID string, kind InteractionType, opts TrackOptions) (Interaction, error) {
	if !kind.Valid() {
		return Interaction{}, fmt.Errorf("tracking interaction: unknown type %q", kind)
	}
	rec := Interaction{
		ID:        opts.ID,
		ContactID: contactID,
		Type:      kind,
		Date:      opts.Date,
		Duration:  opts.Duration,
		Subject:   opts.Subject,
		Notes:     opts.Notes,
		DealID:    opts.DealID,
		Completed: opts.Completed == nil || *opts.Completed,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Date.IsZero() {
		rec.Date = g.now()
	}

	err := g.Batch(func(tx *Tx) error {
		if _, dup := tx.s.interactionIDs[rec.ID]; dup {
			return nil
		}
		if err := tx.s.appendInteraction(rec); err != nil {
			return err
		}
		inc := strengthIncrement(kind, opts.Duration, opts.Completed)
		for _, id := range tx.s.touching[contactID] {
			e := tx.s.edges[id]
			if e.Type.Structural() {
				continue
			}
			e.Strength = clampStrength(e.Strength + inc)
			if e.Metadata == nil {
				e.Metadata = make(map[string]any)
			}
			e.Metadata["interaction_count"] = metaInt(e.Metadata["interaction_count"]) + 1
			e.Metadata["last_interaction"] = rec.Date.UTC().Format(time.RFC3339)
		}
		return nil
	})
	if err != nil {
		return Interaction{}, fmt.Errorf("tracking interaction: %w", err)
	}
	g.logger.Debug("tracked interaction", "contact", contactID, "type", kind, "id", rec.ID)
	return rec, nil
}

func strengthIncrement(kind InteractionType, duration int, completed *bool) float64 {
	var inc float64
	switch kind {
	case InteractionCall:
		inc = callIncrement
		if duration > longCallMinutes {
			inc += longCallBonus
		}
	case InteractionMeeting:
		inc = meetingIncrement
	case InteractionEmail:
		inc = emailIncrement
	default:
		inc = defaultIncrement
	}
	if completed == nil || *completed {
		inc *= completedModifier
	}
	return inc
}

// metaInt reads a counter that may have round-tripped through JSON.
func metaInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
