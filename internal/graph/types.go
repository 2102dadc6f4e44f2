package graph

import "time"

type NodeKind string

const (
	KindContact NodeKind = "contact"
	KindAccount NodeKind = "account"
	KindDeal    NodeKind = "deal"
)

func (k NodeKind) Valid() bool {
	switch k {
	case KindContact, KindAccount, KindDeal:
		return true
	}
	return false
}

type Role string

const (
	RoleDecisionMaker Role = "decision_maker"
	RoleInfluencer    Role = "influencer"
	RoleEndUser       Role = "end_user"
)

type EdgeType string

const (
	EdgeReportsTo        EdgeType = "reports_to"
	EdgeManages          EdgeType = "manages"
	EdgeWorksAt          EdgeType = "works_at"
	EdgeBelongsTo        EdgeType = "belongs_to"
	EdgeDecisionMakerFor EdgeType = "decision_maker_for"
	EdgeInfluencerFor    EdgeType = "influencer_for"
	EdgeFormerColleague  EdgeType = "former_colleague"
	EdgeAlumni           EdgeType = "alumni"
	EdgeMutualConnection EdgeType = "mutual_connection"
)

func (t EdgeType) Valid() bool {
	switch t {
	case EdgeReportsTo, EdgeManages, EdgeWorksAt, EdgeBelongsTo, EdgeDecisionMakerFor,
		EdgeInfluencerFor, EdgeFormerColleague, EdgeAlumni, EdgeMutualConnection:
		return true
	}
	return false
}

// Structural edges describe membership, not a relationship between people,
// and are ignored by path search, strength updates and centrality.
func (t EdgeType) Structural() bool {
	return t == EdgeWorksAt || t == EdgeBelongsTo
}

// DealRole reports whether the edge ties a contact to a deal.
func (t EdgeType) DealRole() bool {
	return t == EdgeDecisionMakerFor || t == EdgeInfluencerFor
}

func (t EdgeType) inverse() (EdgeType, bool) {
	switch t {
	case EdgeReportsTo:
		return EdgeManages, true
	case EdgeManages:
		return EdgeReportsTo, true
	}
	return "", false
}

type DealStage string

const (
	StageNew         DealStage = "new"
	StageContacted   DealStage = "contacted"
	StageQualified   DealStage = "qualified"
	StageProposal    DealStage = "proposal"
	StageNegotiation DealStage = "negotiation"
	StageClosedWon   DealStage = "closed_won"
	StageClosedLost  DealStage = "closed_lost"
)

func (s DealStage) Closed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

type InteractionType string

const (
	InteractionCall    InteractionType = "call"
	InteractionEmail   InteractionType = "email"
	InteractionMeeting InteractionType = "meeting"
	InteractionNote    InteractionType = "note"
	InteractionTask    InteractionType = "task"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionCall, InteractionEmail, InteractionMeeting, InteractionNote, InteractionTask:
		return true
	}
	return false
}

// Node is a contact, account or deal. Exactly one of the variant pointers
// matching Kind is set.
type Node struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Kind    NodeKind     `json:"kind"`
	Contact *ContactInfo `json:"contact,omitempty"`
	Account *AccountInfo `json:"account,omitempty"`
	Deal    *DealInfo    `json:"deal,omitempty"`
}

type ContactInfo struct {
	Title     string `json:"title,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role,omitempty"`
	ReportsTo string `json:"reports_to,omitempty"`

	InfluenceScore   int       `json:"influence_score"`
	InteractionCount int       `json:"interaction_count"`
	LastInteraction  time.Time `json:"last_interaction,omitempty"`

	LinkedInURL   string   `json:"linkedin_url,omitempty"`
	Headline      string   `json:"headline,omitempty"`
	Location      string   `json:"location,omitempty"`
	Industry      string   `json:"industry,omitempty"`
	Connections   int      `json:"connections,omitempty"`
	Skills        []string `json:"skills,omitempty"`
	Schools       []string `json:"schools,omitempty"`
	PastCompanies []string `json:"past_companies,omitempty"`
}

type AccountInfo struct {
	Industry string `json:"industry,omitempty"`
	Size     string `json:"size,omitempty"`
	Location string `json:"location,omitempty"`
	Domain   string `json:"domain,omitempty"`
}

type DealInfo struct {
	Value          float64   `json:"value"`
	Stage          DealStage `json:"stage"`
	Probability    int       `json:"probability"`
	CompanyID      string    `json:"company_id,omitempty"`
	StageEnteredAt time.Time `json:"stage_entered_at,omitempty"`
	LastActivity   time.Time `json:"last_activity,omitempty"`
	CloseDate      time.Time `json:"close_date,omitempty"`
}

type Edge struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Target    string         `json:"target"`
	Type      EdgeType       `json:"type"`
	Strength  float64        `json:"strength"`
	Confirmed bool           `json:"confirmed"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Other returns the endpoint of e that is not id.
func (e Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

type Interaction struct {
	ID        string          `json:"id"`
	ContactID string          `json:"contact_id"`
	Type      InteractionType `json:"type"`
	Date      time.Time       `json:"date"`
	Duration  int             `json:"duration,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	DealID    string          `json:"deal_id,omitempty"`
	Completed bool            `json:"completed"`
}

type Snapshot struct {
	Nodes        []Node        `json:"nodes"`
	Edges        []Edge        `json:"edges"`
	Interactions []Interaction `json:"interactions"`
}
