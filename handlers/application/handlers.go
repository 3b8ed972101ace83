package application

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"collabmatch/backend/handlers/auth"
	"collabmatch/backend/handlers/response"
	"collabmatch/backend/models"
	"collabmatch/backend/services/applications"
)

// CreateApplicationHandler submits an application for the authenticated creator
// Used by: POST /api/applications
func CreateApplicationHandler(m *applications.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applications.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		// creators can only apply as themselves
		req.CreatorID = auth.UserID(r)

		app, err := m.Submit(r.Context(), req)
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, app)
	}
}

// GetApplicationsHandler lists the creator's own applications, optionally filtered by ?status=a,b
// Used by: GET /api/applications
func GetApplicationsHandler(m *applications.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var statuses []models.ApplicationStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				st := models.ApplicationStatus(strings.TrimSpace(part))
				if !st.Valid() {
					response.Error(w, http.StatusBadRequest, "Invalid status filter")
					return
				}
				statuses = append(statuses, st)
			}
		}

		apps, err := m.ListForCreator(r.Context(), auth.UserID(r), statuses...)
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

// TransitionHandler accepts, rejects or withdraws an application
// Used by: POST /api/applications/{id}/accept|reject|withdraw
// A repeated call answers 409 because the application is no longer pending.
func TransitionHandler(m *applications.Manager, to models.ApplicationStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		userID := auth.UserID(r)

		var body TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := m.Authorize(r.Context(), userID, id, to); err != nil {
			response.FromError(w, err)
			return
		}

		var (
			app models.Application
			err error
		)
		switch to {
		case models.StatusAccepted:
			app, err = m.Accept(r.Context(), id, body.message())
		case models.StatusRejected:
			app, err = m.Reject(r.Context(), id, body.message())
		case models.StatusWithdrawn:
			app, err = m.Withdraw(r.Context(), id)
		default:
			response.Error(w, http.StatusBadRequest, "Unsupported transition")
			return
		}
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, app)
	}
}
