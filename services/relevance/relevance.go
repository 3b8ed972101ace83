package relevance

import (
	"collabmatch/backend/models"
	"collabmatch/backend/services/rolematch"
)

// Filter selects the (opportunity, role) pairs a creator is eligible to see.
type Filter struct {
	Matcher *rolematch.Matcher
}

// New returns a filter using m, or the default synonym table when m is nil.
func New(m *rolematch.Matcher) Filter {
	if m == nil {
		m = rolematch.Default()
	}
	return Filter{Matcher: m}
}

// RelevantRoles returns every open role the creator may apply to. A creator with no
// tags sees every open role; otherwise at least one tag must match the role title.
// Roles the creator already holds a pending or accepted application for are dropped,
// while rejected or withdrawn ones stay visible.
func (f Filter) RelevantRoles(creator models.Creator, opportunities []models.Opportunity, applications []models.Application) []models.Candidate {
	matcher := f.Matcher
	if matcher == nil {
		matcher = rolematch.Default()
	}

	var out []models.Candidate
	for _, opp := range opportunities {
		for _, role := range opp.Roles {
			if role.Status != models.RoleOpen {
				continue
			}
			if hasActiveApplication(applications, creator.ID, opp.ID, role) {
				continue
			}
			if len(creator.Tags) == 0 {
				out = append(out, models.Candidate{Opportunity: opp, Role: role})
				continue
			}
			matched := matcher.MatchingTags(creator.Tags, role.Title)
			if len(matched) == 0 {
				continue
			}
			out = append(out, models.Candidate{Opportunity: opp, Role: role, MatchedTags: matched})
		}
	}
	return out
}

func hasActiveApplication(applications []models.Application, creatorID, opportunityID string, role models.Role) bool {
	for _, a := range applications {
		if a.Status.IsActive() && a.SameRole(opportunityID, role.ID, role.Title, creatorID) {
			return true
		}
	}
	return false
}
