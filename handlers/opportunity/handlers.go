package opportunity

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"collabmatch/backend/handlers/auth"
	"collabmatch/backend/handlers/response"
	"collabmatch/backend/models"
	"collabmatch/backend/services/applications"
	"collabmatch/backend/services/feed"
	"collabmatch/backend/store"
)

// GetFeedHandler returns the ranked open roles for the authenticated creator
// Used by: GET /api/opportunities/feed
func GetFeedHandler(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts feed.Options
		if raw := r.URL.Query().Get("preferred_rate"); raw != "" {
			rate, err := strconv.ParseFloat(raw, 64)
			if err != nil || rate < 0 {
				response.Error(w, http.StatusBadRequest, "Invalid preferred_rate")
				return
			}
			opts.PreferredRate = rate
		}

		results := f.ForCreatorID(r.Context(), auth.UserID(r), opts)
		response.JSON(w, http.StatusOK, results)
	}
}

// GetOpportunityHandler returns one opportunity with its roles. Only the owner
// sees draft roles and applicant counts.
// Used by: GET /api/opportunities/{id}
func GetOpportunityHandler(s store.OpportunityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opp, err := s.GetOpportunity(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			response.FromError(w, err)
			return
		}
		if opp.OwnerID != auth.UserID(r) {
			opp = publicView(opp)
		}
		response.JSON(w, http.StatusOK, opp)
	}
}

func publicView(opp models.Opportunity) models.Opportunity {
	roles := make([]models.Role, 0, len(opp.Roles))
	for _, role := range opp.Roles {
		if role.Status == models.RoleDraft {
			continue
		}
		role.ApplicantCount = nil
		roles = append(roles, role)
	}
	opp.Roles = roles
	return opp
}

// CreateOpportunityHandler publishes an opportunity owned by the calling business
// Used by: POST /api/opportunities
func CreateOpportunityHandler(s store.OpportunityStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateOpportunityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			response.FromError(w, err)
			return
		}

		opp, err := s.CreateOpportunity(r.Context(), req.toModel(auth.UserID(r)))
		if err != nil {
			response.FromError(w, err)
			return
		}
		log.WithFields(log.Fields{"opportunity_id": opp.ID, "roles": len(opp.Roles)}).Info("Opportunity created")
		response.JSON(w, http.StatusCreated, opp)
	}
}

// SaveOpportunityHandler bookmarks (saved=true) or removes a bookmark on an opportunity
// Used by: POST and DELETE /api/opportunities/{id}/save
func SaveOpportunityHandler(s store.CreatorStore, saved bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.SetSaved(r.Context(), auth.UserID(r), mux.Vars(r)["id"], saved); err != nil {
			response.FromError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetApplicationsHandler lists the applications of an opportunity for its owner
// Used by: GET /api/opportunities/{id}/applications
func GetApplicationsHandler(m *applications.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apps, err := m.ListForOpportunity(r.Context(), auth.UserID(r), mux.Vars(r)["id"])
		if err != nil {
			response.FromError(w, err)
			return
		}
		if apps == nil {
			apps = []models.Application{}
		}
		response.JSON(w, http.StatusOK, apps)
	}
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
