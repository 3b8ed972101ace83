package opportunity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabmatch/backend/handlers/auth"
	"collabmatch/backend/models"
	"collabmatch/backend/services/applications"
	"collabmatch/backend/services/feed"
	"collabmatch/backend/services/ranking"
	"collabmatch/backend/services/relevance"
	"collabmatch/backend/store/memory"
)

func newRouter(s *memory.Store) *mux.Router {
	f := feed.New(s, relevance.New(nil), ranking.New(nil, 0))
	m := applications.NewManager(s, nil)

	r := mux.NewRouter()
	r.HandleFunc("/api/opportunities", CreateOpportunityHandler(s)).Methods("POST")
	r.HandleFunc("/api/opportunities/feed", GetFeedHandler(f)).Methods("GET")
	r.HandleFunc("/api/opportunities/{id}", GetOpportunityHandler(s)).Methods("GET")
	r.HandleFunc("/api/opportunities/{id}/save", SaveOpportunityHandler(s, true)).Methods("POST")
	r.HandleFunc("/api/opportunities/{id}/save", SaveOpportunityHandler(s, false)).Methods("DELETE")
	r.HandleFunc("/api/opportunities/{id}/applications", GetApplicationsHandler(m)).Methods("GET")
	return r
}

func call(r http.Handler, userID, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{UserID: userID}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetOpportunity(t *testing.T) {
	s := memory.New()
	r := newRouter(s)

	rec := call(r, "biz-1", http.MethodPost, "/api/opportunities",
		`{"title":" Lookbook ","city":"Berlin","roles":[{"title":"Photographer","budget":800,"capacity":2},{"title":"Stylist","status":"draft"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Opportunity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "biz-1", created.OwnerID)
	assert.Equal(t, "Lookbook", created.Title)
	require.Len(t, created.Roles, 2)
	assert.Equal(t, models.RoleOpen, created.Roles[0].Status)
	assert.Equal(t, models.RoleDraft, created.Roles[1].Status)

	rec = call(r, "creator-1", http.MethodGet, "/api/opportunities/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Opportunity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	// draft roles and applicant counts stay with the owner
	require.Len(t, got.Roles, 1)
	assert.Equal(t, "Photographer", got.Roles[0].Title)
	assert.Nil(t, got.Roles[0].ApplicantCount)

	rec = call(r, "biz-1", http.MethodGet, "/api/opportunities/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var owned models.Opportunity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &owned))
	require.Len(t, owned.Roles, 2)
	assert.NotNil(t, owned.Roles[0].ApplicantCount)

	rec = call(r, "creator-1", http.MethodGet, "/api/opportunities/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOpportunityValidation(t *testing.T) {
	r := newRouter(memory.New())

	for _, body := range []string{
		`{`,
		`{"title":"","roles":[{"title":"x"}]}`,
		`{"title":"t","roles":[]}`,
		`{"title":"t","roles":[{"title":"x","budget":-1}]}`,
		`{"title":"t","roles":[{"title":"x","status":"filled"}]}`,
		`{"title":"t","coordinate":{"lat":95,"lng":10},"roles":[{"title":"x"}]}`,
		`{"title":"t","coordinate":{"lat":52,"lng":-200},"roles":[{"title":"x"}]}`,
	} {
		rec := call(r, "biz-1", http.MethodPost, "/api/opportunities", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestFeedRanksAndSaves(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	opp, err := s.CreateOpportunity(ctx, models.Opportunity{
		OwnerID: "biz-1", Title: "Campaign", City: "Berlin",
		Roles: []models.Role{{Title: "Photographer", Budget: 500}},
	})
	require.NoError(t, err)
	_, err = s.SaveCreator(ctx, models.Creator{ID: "creator-1", City: "Berlin", Tags: []string{"photography"}})
	require.NoError(t, err)
	r := newRouter(s)

	rec := call(r, "creator-1", http.MethodGet, "/api/opportunities/feed?preferred_rate=450", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var results []models.MatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, opp.ID, results[0].Opportunity.ID)

	rec = call(r, "creator-1", http.MethodGet, "/api/opportunities/feed?preferred_rate=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(r, "creator-1", http.MethodPost, "/api/opportunities/"+opp.ID+"/save", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	saved, err := s.ListSaved(ctx, "creator-1")
	require.NoError(t, err)
	assert.True(t, saved[opp.ID])

	rec = call(r, "creator-1", http.MethodDelete, "/api/opportunities/"+opp.ID+"/save", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	saved, err = s.ListSaved(ctx, "creator-1")
	require.NoError(t, err)
	assert.False(t, saved[opp.ID])
}

func TestApplicationsVisibleToOwnerOnly(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	opp, err := s.CreateOpportunity(ctx, models.Opportunity{
		OwnerID: "biz-1", Title: "Campaign",
		Roles: []models.Role{{Title: "Photographer"}},
	})
	require.NoError(t, err)
	_, err = s.CreateApplication(ctx, models.Application{OpportunityID: opp.ID, RoleID: opp.Roles[0].ID, CreatorID: "creator-1"})
	require.NoError(t, err)
	r := newRouter(s)

	rec := call(r, "biz-1", http.MethodGet, "/api/opportunities/"+opp.ID+"/applications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var apps []models.Application
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	assert.Len(t, apps, 1)

	rec = call(r, "biz-2", http.MethodGet, "/api/opportunities/"+opp.ID+"/applications", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
