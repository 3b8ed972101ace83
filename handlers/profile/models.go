package profile

import (
	"math"
	"strings"

	"collabmatch/backend/models"
	"collabmatch/backend/services/geo"
)

// UpdateProfileRequest is the editable part of a creator profile.
type UpdateProfileRequest struct {
	Tags       []string        `json:"tags"`
	City       string          `json:"city"`
	RadiusKm   float64         `json:"radius_km"`
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
}

// ProfileResponse is the creator profile plus its normalized city key.
type ProfileResponse struct {
	models.Creator
	CityKey string `json:"city_key"`
}

func (req UpdateProfileRequest) validate() error {
	if req.RadiusKm < 0 || math.IsNaN(req.RadiusKm) || math.IsInf(req.RadiusKm, 0) {
		return models.Invalid("radius_km must be a non-negative number")
	}
	if c := req.Coordinate; c != nil {
		if !c.Valid() {
			return models.Invalid("coordinate out of range")
		}
	}
	if len(req.Tags) > 50 {
		return models.Invalid("at most 50 tags")
	}
	return nil
}

// cleanTags trims tags and drops empty and case-insensitive duplicates, keeping the first spelling.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
