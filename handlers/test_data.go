// Note: To generate test data, use:
// curl -X POST "http://localhost:8080/api/test/generate-opportunities?count=5" -H "Content-Type: application/json"

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"collabmatch/backend/handlers/response"
	"collabmatch/backend/models"
	"collabmatch/backend/services/geo"
	"collabmatch/backend/store"
)

// Predefined arrays for consistent test data
var roleTitles = []string{
	"Photographer", "Videographer", "Runway Model", "Makeup Artist",
	"Hair Stylist", "Stylist", "Graphic Designer", "Video Editor",
	"Copywriter", "Content Creator", "Illustrator", "DJ",
}

var creatorTags = []string{
	"photography", "videography", "modeling", "makeup", "hair",
	"styling", "design", "editing", "writing", "ugc", "illustration", "music",
}

type seedCity struct {
	name string
	at   geo.Coordinate
}

var cities = []seedCity{
	{"Berlin", geo.Coordinate{Lat: 52.52, Lng: 13.405}},
	{"Hamburg", geo.Coordinate{Lat: 53.551, Lng: 9.993}},
	{"Munich", geo.Coordinate{Lat: 48.137, Lng: 11.575}},
	{"Cologne", geo.Coordinate{Lat: 50.937, Lng: 6.96}},
	{"Frankfurt", geo.Coordinate{Lat: 50.11, Lng: 8.682}},
	{"Potsdam", geo.Coordinate{Lat: 52.39, Lng: 13.065}},
}

type seedStore interface {
	store.UserStore
	store.OpportunityStore
	store.CreatorStore
}

// GenerateTestDataHandler creates `count` business accounts, each with one opportunity,
// and the same number of creator accounts with random tags. Passwords are "testpass123".
func GenerateTestDataHandler(s seedStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get count parameter, default to 10 if not provided
		count := 10
		if countParam := r.URL.Query().Get("count"); countParam != "" {
			parsedCount, err := strconv.Atoi(countParam)
			if err != nil || parsedCount < 1 || parsedCount > 150 {
				response.Error(w, http.StatusBadRequest, "Count must be between 1 and 150")
				return
			}
			count = parsedCount
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("testpass123"), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Error hashing password: %v", err)
			response.Error(w, http.StatusInternalServerError, "Could not start generating")
			return
		}

		ctx := r.Context()
		createdOpportunities := 0
		createdCreators := 0
		failedAttempts := 0
		for i := 0; i < count; i++ {
			business, err := s.CreateUser(ctx, models.User{
				Email:        gofakeit.Email(),
				PasswordHash: string(hashedPassword),
				Role:         models.AccountBusiness,
			})
			if err != nil {
				log.Printf("[Seed %d] Error creating business: %v", i+1, err)
				failedAttempts++
				continue
			}

			city := cities[gofakeit.Number(0, len(cities)-1)]
			opp, err := s.CreateOpportunity(ctx, randomOpportunity(business.ID, city))
			if err != nil {
				log.Printf("[Seed %d] Error creating opportunity: %v", i+1, err)
				failedAttempts++
				continue
			}
			createdOpportunities++
			log.Printf("[Seed %d] Created opportunity %s with %d roles", i+1, opp.ID, len(opp.Roles))

			creator, err := s.CreateUser(ctx, models.User{
				Email:        gofakeit.Email(),
				PasswordHash: string(hashedPassword),
				Role:         models.AccountCreator,
			})
			if err != nil {
				log.Printf("[Seed %d] Error creating creator: %v", i+1, err)
				failedAttempts++
				continue
			}
			home := cities[gofakeit.Number(0, len(cities)-1)]
			if _, err := s.SaveCreator(ctx, models.Creator{
				ID:         creator.ID,
				Tags:       pick(creatorTags, gofakeit.Number(1, 3)),
				City:       home.name,
				RadiusKm:   float64(gofakeit.Number(10, 300)),
				Coordinate: &home.at,
			}); err != nil {
				log.Printf("[Seed %d] Error creating creator profile: %v", i+1, err)
				failedAttempts++
				continue
			}
			createdCreators++
		}

		log.Printf("Summary: Created %d opportunities and %d creators, Failed attempts: %d", createdOpportunities, createdCreators, failedAttempts)

		response.JSON(w, http.StatusOK, struct {
			Message       string `json:"message"`
			Opportunities int    `json:"opportunities"`
			Creators      int    `json:"creators"`
			Failed        int    `json:"failed"`
		}{
			Message:       "Test data generated successfully",
			Opportunities: createdOpportunities,
			Creators:      createdCreators,
			Failed:        failedAttempts,
		})
	}
}

func randomOpportunity(ownerID string, city seedCity) models.Opportunity {
	deadline := gofakeit.DateRange(time.Now(), time.Now().AddDate(0, 3, 0)).UTC()
	opp := models.Opportunity{
		OwnerID:     ownerID,
		Title:       gofakeit.Company() + " " + gofakeit.RandomString([]string{"Campaign", "Lookbook", "Launch", "Shoot"}),
		Description: gofakeit.Sentence(12),
		City:        city.name,
		Remote:      gofakeit.Number(0, 4) == 0,
		Deadline:    &deadline,
		Coordinate:  &city.at,
	}
	for _, title := range pick(roleTitles, gofakeit.Number(1, 3)) {
		opp.Roles = append(opp.Roles, models.Role{
			Title:    title,
			Budget:   float64(gofakeit.Number(2, 40) * 50),
			Capacity: gofakeit.Number(1, 3),
			Status:   models.RoleOpen,
		})
	}
	return opp
}

// pick returns n distinct entries of from in random order.
func pick(from []string, n int) []string {
	shuffled := append([]string(nil), from...)
	gofakeit.ShuffleStrings(shuffled)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
