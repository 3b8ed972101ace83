// Package response writes JSON bodies and maps domain errors to HTTP status codes.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"collabmatch/backend/models"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// FromError picks the status for err. Unknown errors become 500 and are logged.
func FromError(w http.ResponseWriter, err error) {
	status, message := Status(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	}
	Error(w, status, message)
}

// Status returns the HTTP status and client-facing message for err.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrDuplicateApplication):
		return http.StatusConflict, "You already have an active application for this role"
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, "Application is no longer pending"
	case errors.Is(err, models.ErrRoleUnavailable):
		return http.StatusConflict, "Role is not open for applications"
	case errors.Is(err, models.ErrRoleFilled):
		return http.StatusConflict, "Role has been filled"
	case errors.Is(err, models.ErrEmailTaken):
		return http.StatusConflict, "Email already exists"
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrCollaboratorUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
