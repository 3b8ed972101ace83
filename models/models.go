package models

import (
	"strings"
	"time"

	"collabmatch/backend/services/geo"
)

// RoleStatus is the publication state of a role.
type RoleStatus string

const (
	RoleDraft  RoleStatus = "draft"
	RoleOpen   RoleStatus = "open"
	RoleFilled RoleStatus = "filled"
)

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusAccepted  ApplicationStatus = "accepted"
	StatusRejected  ApplicationStatus = "rejected"
	StatusWithdrawn ApplicationStatus = "withdrawn"
)

// ActiveStatuses are the states that block a new submission for the same role.
var ActiveStatuses = []ApplicationStatus{StatusPending, StatusAccepted}

// IsActive reports whether s blocks a new submission (pending or accepted).
func (s ApplicationStatus) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

// IsTerminal reports whether s is rejected or withdrawn.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusWithdrawn
}

// Valid reports whether s is one of the known statuses.
func (s ApplicationStatus) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

// Opportunity is a business-posted collaboration project.
type Opportunity struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	City        string          `json:"city,omitempty"`
	Remote      bool            `json:"remote"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	Coordinate  *geo.Coordinate `json:"coordinate,omitempty"`
	Roles       []Role          `json:"roles"`
}

// Place returns the opportunity location for distance resolution.
func (o Opportunity) Place() geo.Place {
	return geo.Place{City: o.City, Coordinate: o.Coordinate}
}

// FindRole looks a role up by id, falling back to a case-insensitive title match
// when id is empty.
func (o Opportunity) FindRole(id, title string) (Role, bool) {
	for _, r := range o.Roles {
		if id != "" && r.ID == id {
			return r, true
		}
	}
	if id == "" && title != "" {
		for _, r := range o.Roles {
			if strings.EqualFold(strings.TrimSpace(r.Title), strings.TrimSpace(title)) {
				return r, true
			}
		}
	}
	return Role{}, false
}

// Role is a single hireable slot within an opportunity.
type Role struct {
	ID             string     `json:"id"`
	OpportunityID  string     `json:"opportunity_id"`
	Title          string     `json:"title"`
	Budget         float64    `json:"budget"`
	Status         RoleStatus `json:"status"`
	ApplicantCount *int       `json:"applicant_count,omitempty"`
	Capacity       int        `json:"capacity"`
	FilledCount    int        `json:"filled_count"`
}

// EffectiveCapacity treats an unset capacity as a single slot.
func (r Role) EffectiveCapacity() int {
	if r.Capacity <= 0 {
		return 1
	}
	return r.Capacity
}

// Creator is a marketplace participant who applies to roles.
type Creator struct {
	ID         string          `json:"id"`
	Tags       []string        `json:"tags"`
	City       string          `json:"city"`
	RadiusKm   float64         `json:"radius_km"`
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
	IsPriority bool            `json:"is_priority"`
}

// Place returns the creator's home location for distance resolution.
func (c Creator) Place() geo.Place {
	return geo.Place{City: c.City, Coordinate: c.Coordinate}
}

// Availability is the window a creator offers for the work.
type Availability struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Application is a creator's request to fill a specific role.
type Application struct {
	ID              string            `json:"id"`
	OpportunityID   string            `json:"opportunity_id"`
	RoleID          string            `json:"role_id"`
	RoleTitle       string            `json:"role_title"`
	CreatorID       string            `json:"creator_id"`
	CoverMessage    string            `json:"cover_message"`
	ProposedRate    float64           `json:"proposed_rate"`
	Availability    Availability      `json:"availability"`
	Status          ApplicationStatus `json:"status"`
	SubmittedAt     time.Time         `json:"submitted_at"`
	ResponseMessage *string           `json:"response_message,omitempty"`
	RespondedAt     *time.Time        `json:"responded_at,omitempty"`
}

// SameRole compares the natural key of a against another (opportunity, role, creator)
// triple. Role ids win when both sides have one, otherwise titles are compared.
func (a Application) SameRole(opportunityID, roleID, roleTitle, creatorID string) bool {
	if a.OpportunityID != opportunityID || a.CreatorID != creatorID {
		return false
	}
	if a.RoleID != "" && roleID != "" {
		return a.RoleID == roleID
	}
	return strings.EqualFold(strings.TrimSpace(a.RoleTitle), strings.TrimSpace(roleTitle))
}

// ApplicationFilter narrows ListApplications. Empty fields do not filter.
type ApplicationFilter struct {
	OpportunityID string
	CreatorID     string
	RoleID        string
	StatusIn      []ApplicationStatus
	SubmittedTo   *time.Time
}

// Matches reports whether a passes every set field of f.
func (f ApplicationFilter) Matches(a Application) bool {
	if f.OpportunityID != "" && a.OpportunityID != f.OpportunityID {
		return false
	}
	if f.CreatorID != "" && a.CreatorID != f.CreatorID {
		return false
	}
	if f.RoleID != "" && a.RoleID != f.RoleID {
		return false
	}
	if f.SubmittedTo != nil && a.SubmittedAt.After(*f.SubmittedTo) {
		return false
	}
	if len(f.StatusIn) == 0 {
		return true
	}
	for _, s := range f.StatusIn {
		if a.Status == s {
			return true
		}
	}
	return false
}

// Candidate is a relevant (opportunity, role) pair together with the creator tags
// that matched the role title.
type Candidate struct {
	Opportunity Opportunity `json:"opportunity"`
	Role        Role        `json:"role"`
	MatchedTags []string    `json:"matched_tags"`
}

// MatchResult is the derived ranking entry shown to a creator. It is never persisted.
type MatchResult struct {
	Opportunity     Opportunity `json:"opportunity"`
	Role            Role        `json:"role"`
	Score           float64     `json:"score"`
	GreatMatch      bool        `json:"great_match"`
	IsPriorityMatch bool        `json:"is_priority_match"`
	MatchedTags     []string    `json:"matched_tags"`
	DistanceKm      *float64    `json:"distance_km,omitempty"`
	Reason          string      `json:"reason"`
}

// Account roles.
const (
	AccountCreator  = "creator"
	AccountBusiness = "business"
)

// User is a login account. Creators and businesses share the table.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Notification is a message for a single user delivered by the notification layer.
type Notification struct {
	ID         string     `json:"id,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	ActionLink string     `json:"action_link"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// Notification types.
const (
	NotifyApplicationReceived = "application_received"
	NotifyApplicationAccepted = "application_accepted"
	NotifyApplicationRejected = "application_rejected"
	NotifyApplicationReminder = "application_reminder"
)
