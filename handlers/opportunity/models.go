package opportunity

import (
	"time"

	"collabmatch/backend/models"
	"collabmatch/backend/services/geo"
)

type RoleRequest struct {
	Title    string            `json:"title"`
	Budget   float64           `json:"budget"`
	Capacity int               `json:"capacity"`
	Status   models.RoleStatus `json:"status"`
}

type CreateOpportunityRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	City        string          `json:"city"`
	Remote      bool            `json:"remote"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	Coordinate  *geo.Coordinate `json:"coordinate,omitempty"`
	Roles       []RoleRequest   `json:"roles"`
}

func (req CreateOpportunityRequest) validate() error {
	if trimmed(req.Title) == "" {
		return models.Invalid("title is required")
	}
	if c := req.Coordinate; c != nil && !c.Valid() {
		return models.Invalid("coordinate out of range")
	}
	if len(req.Roles) == 0 {
		return models.Invalid("at least one role is required")
	}
	for _, r := range req.Roles {
		if trimmed(r.Title) == "" {
			return models.Invalid("role title is required")
		}
		if r.Budget < 0 || r.Capacity < 0 {
			return models.Invalid("role budget and capacity must not be negative")
		}
		switch r.Status {
		case "", models.RoleDraft, models.RoleOpen:
		default:
			return models.Invalid("role status must be draft or open")
		}
	}
	return nil
}

func (req CreateOpportunityRequest) toModel(ownerID string) models.Opportunity {
	opp := models.Opportunity{
		OwnerID:     ownerID,
		Title:       trimmed(req.Title),
		Description: req.Description,
		City:        trimmed(req.City),
		Remote:      req.Remote,
		Deadline:    req.Deadline,
		Coordinate:  req.Coordinate,
	}
	for _, r := range req.Roles {
		status := r.Status
		if status == "" {
			status = models.RoleOpen
		}
		opp.Roles = append(opp.Roles, models.Role{
			Title:    trimmed(r.Title),
			Budget:   r.Budget,
			Capacity: r.Capacity,
			Status:   status,
		})
	}
	return opp
}
