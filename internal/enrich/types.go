package enrich

import (
	"context"
	"errors"
	"fmt"
)

// ProfileRequest identifies a person either by email or by name and company.
type ProfileRequest struct {
	ContactID string `json:"contact_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Company   string `json:"company,omitempty"`
}

func (r ProfileRequest) Valid() bool {
	return r.Email != "" || (r.Name != "" && r.Company != "")
}

type Profile struct {
	ProfileURL  string       `json:"profile_url"`
	Headline    string       `json:"headline"`
	Location    string       `json:"location"`
	Industry    string       `json:"industry"`
	Connections int          `json:"connections"`
	Experience  []Experience `json:"experience"`
	Education   []Education  `json:"education"`
	Skills      []string     `json:"skills"`
}

type Experience struct {
	Company string `json:"company"`
	Title   string `json:"title"`
	Current bool   `json:"current"`
}

type Education struct {
	School string `json:"school"`
	Degree string `json:"degree,omitempty"`
}

// Suggestion is a relationship the collaborator believes exists between two
// known contacts.
type Suggestion struct {
	SourceID          string   `json:"source_id"`
	TargetID          string   `json:"target_id"`
	Type              string   `json:"type"`
	Confidence        float64  `json:"confidence"`
	MutualConnections int      `json:"mutual_connections"`
	SharedCompanies   []string `json:"shared_companies"`
	SharedSchools     []string `json:"shared_schools"`
}

type Client interface {
	FetchProfile(ctx context.Context, req ProfileRequest) (*Profile, error)
	SuggestRelationships(ctx context.Context, contactID string, profile *Profile) ([]Suggestion, error)
}

var ErrProfileNotFound = errors.New("profile not found")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
