package ingest

import (
	"time"

	"dealgraph/internal/config"
)

// Fixtures returns a small demo pipeline in the native field layout with
// dates relative to now. It is only imported on explicit request.
func Fixtures(now time.Time) Batch {
	day := 24 * time.Hour
	ago := func(d time.Duration) string { return now.Add(-d).UTC().Format(time.RFC3339) }
	rec := func(kind config.RecordKind, fields map[string]any) ExternalRecord {
		return ExternalRecord{Kind: kind, Provider: "native", Fields: fields}
	}

	return Batch{
		Provider: "native",
		Companies: []ExternalRecord{
			rec(config.RecordCompany, map[string]any{"id": "acme", "name": "Acme Corp", "industry": "Manufacturing", "size": "1000-5000", "domain": "acme.example"}),
			rec(config.RecordCompany, map[string]any{"id": "globex", "name": "Globex", "industry": "Energy", "size": "200-500", "domain": "globex.example"}),
		},
		Contacts: []ExternalRecord{
			rec(config.RecordContact, map[string]any{"id": "alice", "first_name": "Alice", "last_name": "Chen", "title": "CTO", "company_id": "acme", "email": "alice@acme.example"}),
			rec(config.RecordContact, map[string]any{"id": "bob", "first_name": "Bob", "last_name": "Martin", "title": "Engineering Manager", "company_id": "acme", "reports_to": "alice", "email": "bob@acme.example"}),
			rec(config.RecordContact, map[string]any{"id": "dan", "first_name": "Dan", "last_name": "Okafor", "title": "Platform Engineer", "company_id": "acme", "reports_to": "bob"}),
			rec(config.RecordContact, map[string]any{"id": "carol", "first_name": "Carol", "last_name": "Diaz", "title": "VP Operations", "company_id": "globex", "email": "carol@globex.example"}),
			rec(config.RecordContact, map[string]any{"id": "erin", "first_name": "Erin", "last_name": "Walsh", "title": "Director of Procurement", "company_id": "globex", "reports_to": "carol"}),
		},
		Deals: []ExternalRecord{
			rec(config.RecordDeal, map[string]any{
				"id": "acme-platform", "name": "Acme Platform Rollout", "value": 500000, "stage": "proposal",
				"company_id": "acme", "contact_ids": []any{"alice", "bob"},
				"stage_entered_at": ago(20 * day), "close_date": now.Add(30 * day).UTC().Format(time.RFC3339),
			}),
			rec(config.RecordDeal, map[string]any{
				"id": "globex-pilot", "name": "Globex Pilot", "value": 50000, "stage": "qualified",
				"company_id": "globex", "contact_ids": []any{"carol", "erin"},
				"stage_entered_at": ago(3 * day),
			}),
		},
		Interactions: []ExternalRecord{
			rec(config.RecordInteraction, map[string]any{"id": "fx-1", "contact_id": "alice", "type": "meeting", "date": ago(12 * day), "duration": 60, "subject": "Architecture review", "deal_id": "acme-platform"}),
			rec(config.RecordInteraction, map[string]any{"id": "fx-2", "contact_id": "bob", "type": "email", "date": ago(10 * day), "subject": "Proposal follow-up", "deal_id": "acme-platform"}),
			rec(config.RecordInteraction, map[string]any{"id": "fx-3", "contact_id": "carol", "type": "call", "date": ago(2 * day), "duration": 45, "subject": "Pilot scope", "deal_id": "globex-pilot"}),
			rec(config.RecordInteraction, map[string]any{"id": "fx-4", "contact_id": "erin", "type": "email", "date": ago(1 * day), "subject": "Procurement checklist", "deal_id": "globex-pilot"}),
		},
	}
}
