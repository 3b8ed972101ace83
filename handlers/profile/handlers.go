package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"collabmatch/backend/handlers/auth"
	"collabmatch/backend/handlers/response"
	"collabmatch/backend/models"
	"collabmatch/backend/services/geo"
	"collabmatch/backend/store"
)

// GetMyProfileHandler returns the authenticated creator's profile
// Used by: GET /api/me/profile
func GetMyProfileHandler(creators store.CreatorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r)

		creator, err := creators.GetCreator(r.Context(), userID)
		if errors.Is(err, models.ErrNotFound) {
			// profiles are created lazily for accounts that predate signup seeding
			creator = models.Creator{ID: userID, Tags: []string{}}
			err = nil
		}
		if err != nil {
			response.FromError(w, err)
			return
		}

		response.JSON(w, http.StatusOK, ProfileResponse{Creator: creator, CityKey: geo.NormalizeCity(creator.City)})
	}
}

// UpdateProfileHandler replaces the creator's tags and location
// Used by: PUT /api/me/profile
func UpdateProfileHandler(creators store.CreatorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r)

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			response.FromError(w, err)
			return
		}

		creator, err := creators.SaveCreator(r.Context(), models.Creator{
			ID:         userID,
			Tags:       cleanTags(req.Tags),
			City:       strings.TrimSpace(req.City),
			RadiusKm:   req.RadiusKm,
			Coordinate: req.Coordinate,
		})
		if err != nil {
			response.FromError(w, err)
			return
		}
		if creator.IsPriority, err = creators.IsPriorityMember(r.Context(), userID); err != nil {
			log.WithField("user_id", userID).WithError(err).Warn("Could not resolve subscription state")
		}

		log.WithFields(log.Fields{"user_id": userID, "tags": len(creator.Tags)}).Info("Profile updated")
		response.JSON(w, http.StatusOK, ProfileResponse{Creator: creator, CityKey: geo.NormalizeCity(creator.City)})
	}
}
