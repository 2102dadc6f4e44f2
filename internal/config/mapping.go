package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type RecordKind string

const (
	RecordCompany     RecordKind = "company"
	RecordContact     RecordKind = "contact"
	RecordDeal        RecordKind = "deal"
	RecordInteraction RecordKind = "interaction"
)

// canonicalFields lists the fields the importer understands per record kind.
var canonicalFields = map[RecordKind][]string{
	RecordCompany: {"id", "name", "industry", "size", "location", "domain"},
	RecordContact: {"id", "name", "first_name", "last_name", "title", "company_id", "email", "phone",
		"role", "reports_to"},
	RecordDeal: {"id", "name", "value", "stage", "probability", "company_id", "contact_ids",
		"stage_entered_at", "last_activity", "close_date"},
	RecordInteraction: {"id", "contact_id", "type", "date", "duration", "subject", "notes", "deal_id",
		"completed"},
}

// Mapping translates provider-native CRM field names to canonical ones.
type Mapping struct {
	Version   int        `yaml:"version"`
	Providers []Provider `yaml:"providers"`

	index map[string]*Provider
}

// FieldMap maps a canonical field to the provider field names tried in
// order. A canonical field without an entry is looked up under its own name.
type FieldMap map[string][]string

type Provider struct {
	Name         string            `yaml:"name"`
	Companies    FieldMap          `yaml:"companies"`
	Contacts     FieldMap          `yaml:"contacts"`
	Deals        FieldMap          `yaml:"deals"`
	Interactions FieldMap          `yaml:"interactions"`
	StageAliases map[string]string `yaml:"stage_aliases"`
}

func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading mapping: %w", err)
	}

	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("loading mapping: %w", err)
	}

	if err := validateMapping(&m); err != nil {
		return nil, fmt.Errorf("loading mapping: %w", err)
	}

	m.buildIndex()
	return &m, nil
}

func validateMapping(m *Mapping) error {
	if m.Version != 1 {
		return fmt.Errorf("unsupported version: %d", m.Version)
	}
	if len(m.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}

	names := make(map[string]struct{})
	for i, p := range m.Providers {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("provider %d name is required", i)
		}
		key := strings.ToLower(p.Name)
		if _, exists := names[key]; exists {
			return fmt.Errorf("duplicate provider name: %s", p.Name)
		}
		names[key] = struct{}{}

		for _, kind := range []RecordKind{RecordCompany, RecordContact, RecordDeal, RecordInteraction} {
			fields := p.Fields(kind)
			for canonical, sources := range fields {
				if !isCanonical(kind, canonical) {
					return fmt.Errorf("provider %s maps unknown %s field: %s", p.Name, kind, canonical)
				}
				if len(sources) == 0 {
					return fmt.Errorf("provider %s %s field %s has no source fields", p.Name, kind, canonical)
				}
			}
		}

		for alias, stage := range p.StageAliases {
			if !isStage(stage) {
				return fmt.Errorf("provider %s stage alias %s targets unknown stage: %s", p.Name, alias, stage)
			}
		}
	}

	return nil
}

func (m *Mapping) buildIndex() {
	m.index = make(map[string]*Provider)
	for i := range m.Providers {
		p := &m.Providers[i]
		m.index[strings.ToLower(p.Name)] = p
	}
}

func (m *Mapping) ProviderByName(name string) (*Provider, bool) {
	if m == nil {
		return nil, false
	}
	p, ok := m.index[strings.ToLower(name)]
	return p, ok
}

func (p *Provider) Fields(kind RecordKind) FieldMap {
	switch kind {
	case RecordCompany:
		return p.Companies
	case RecordContact:
		return p.Contacts
	case RecordDeal:
		return p.Deals
	case RecordInteraction:
		return p.Interactions
	}
	return nil
}

// Stage resolves a provider stage label through the alias table. Matching is
// case-insensitive; labels without an alias are returned lowercased.
func (p *Provider) Stage(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	for alias, stage := range p.StageAliases {
		if strings.ToLower(alias) == key {
			return stage
		}
	}
	return key
}

func (f FieldMap) Sources(canonical string) []string {
	if names, ok := f[canonical]; ok && len(names) > 0 {
		return names
	}
	return []string{canonical}
}

func isCanonical(kind RecordKind, field string) bool {
	for _, f := range canonicalFields[kind] {
		if f == field {
			return true
		}
	}
	return false
}

func isStage(stage string) bool {
	switch stage {
	case "new", "contacted", "qualified", "proposal", "negotiation", "closed_won", "closed_lost":
		return true
	}
	return false
}

// DefaultMapping returns the built-in providers: native (canonical names),
// hubspot and salesforce.
func DefaultMapping() *Mapping {
	m := &Mapping{
		Version: 1,
		Providers: []Provider{
			{Name: "native"},
			{
				Name: "hubspot",
				Companies: FieldMap{
					"id":       {"hs_object_id", "id", "companyId"},
					"name":     {"name"},
					"size":     {"numberofemployees", "size"},
					"location": {"city", "location"},
				},
				Contacts: FieldMap{
					"id":         {"hs_object_id", "id", "vid"},
					"first_name": {"firstname", "first_name"},
					"last_name":  {"lastname", "last_name"},
					"title":      {"jobtitle", "title"},
					"company_id": {"associatedcompanyid", "company_id"},
					"reports_to": {"reports_to", "manager_id", "hs_manager_id"},
				},
				Deals: FieldMap{
					"id":               {"hs_object_id", "id", "dealId"},
					"name":             {"dealname", "name"},
					"value":            {"amount"},
					"stage":            {"dealstage"},
					"probability":      {"hs_deal_stage_probability", "probability"},
					"company_id":       {"associatedcompanyid", "company_id"},
					"contact_ids":      {"associatedcontactids", "contact_ids"},
					"stage_entered_at": {"hs_date_entered_current_stage", "stage_entered_at"},
					"last_activity":    {"notes_last_updated", "last_activity"},
					"close_date":       {"closedate"},
				},
				Interactions: FieldMap{
					"id":         {"hs_object_id", "id", "engagementId"},
					"contact_id": {"contactId", "contact_id"},
					"type":       {"hs_engagement_type", "type"},
					"date":       {"hs_timestamp", "timestamp", "date"},
					"duration":   {"hs_call_duration", "duration"},
					"subject":    {"hs_email_subject", "subject"},
					"notes":      {"hs_body_preview", "body", "notes"},
					"deal_id":    {"dealId", "deal_id"},
				},
				StageAliases: map[string]string{
					"appointmentscheduled":  "contacted",
					"qualifiedtobuy":        "qualified",
					"presentationscheduled": "proposal",
					"decisionmakerboughtin": "negotiation",
					"contractsent":          "negotiation",
					"closedwon":             "closed_won",
					"closedlost":            "closed_lost",
				},
			},
			{
				Name: "salesforce",
				Companies: FieldMap{
					"id":       {"Id"},
					"name":     {"Name"},
					"industry": {"Industry"},
					"size":     {"NumberOfEmployees"},
					"location": {"BillingCity"},
					"domain":   {"Website"},
				},
				Contacts: FieldMap{
					"id":         {"Id"},
					"name":       {"Name"},
					"first_name": {"FirstName"},
					"last_name":  {"LastName"},
					"title":      {"Title"},
					"company_id": {"AccountId"},
					"email":      {"Email"},
					"phone":      {"Phone"},
					"reports_to": {"ReportsToId"},
				},
				Deals: FieldMap{
					"id":            {"Id"},
					"name":          {"Name"},
					"value":         {"Amount"},
					"stage":         {"StageName"},
					"probability":   {"Probability"},
					"company_id":    {"AccountId"},
					"contact_ids":   {"ContactIds"},
					"last_activity": {"LastActivityDate"},
					"close_date":    {"CloseDate"},
				},
				Interactions: FieldMap{
					"id":         {"Id"},
					"contact_id": {"WhoId"},
					"type":       {"TaskSubtype", "Type"},
					"date":       {"ActivityDate", "CreatedDate"},
					"duration":   {"DurationInMinutes"},
					"subject":    {"Subject"},
					"notes":      {"Description"},
					"deal_id":    {"WhatId"},
					"completed":  {"IsClosed"},
				},
				StageAliases: map[string]string{
					"prospecting":          "new",
					"qualification":        "qualified",
					"needs analysis":       "qualified",
					"value proposition":    "proposal",
					"proposal/price quote": "proposal",
					"negotiation/review":   "negotiation",
					"closed won":           "closed_won",
					"closed lost":          "closed_lost",
				},
			},
		},
	}
	m.buildIndex()
	return m
}
