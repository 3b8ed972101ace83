package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabmatch/backend/models"
	"collabmatch/backend/services/ranking"
	"collabmatch/backend/services/relevance"
	"collabmatch/backend/store/memory"
)

type failingStore struct {
	*memory.Store
}

func (failingStore) ListOpportunities(context.Context) ([]models.Opportunity, error) {
	return nil, models.Unavailable("list opportunities", errors.New("connection reset"))
}

func newFeed(s Store) *Feed {
	return New(s, relevance.New(nil), ranking.New(nil, 0))
}

func seed(t *testing.T, s *memory.Store) (photo, model models.Opportunity) {
	t.Helper()
	ctx := context.Background()
	var err error
	photo, err = s.CreateOpportunity(ctx, models.Opportunity{
		OwnerID: "biz", Title: "Lookbook", City: "Berlin",
		Roles: []models.Role{{Title: "Photographer", Budget: 600}, {Title: "Stylist", Status: models.RoleDraft}},
	})
	require.NoError(t, err)
	model, err = s.CreateOpportunity(ctx, models.Opportunity{
		OwnerID: "biz", Title: "Runway", City: "Hamburg",
		Roles: []models.Role{{Title: "Runway Model", Budget: 300}},
	})
	require.NoError(t, err)
	return photo, model
}

func TestForCreatorColdStart(t *testing.T) {
	s := memory.New()
	seed(t, s)

	res := newFeed(s).ForCreator(context.Background(), models.Creator{ID: "c1"}, Options{})
	// every open role, draft stylist excluded
	assert.Len(t, res, 2)
	for _, r := range res {
		assert.Equal(t, models.RoleOpen, r.Role.Status)
	}
}

func TestForCreatorFiltersAndHidesActiveApplications(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	photo, _ := seed(t, s)
	creator := models.Creator{ID: "c1", City: "Berlin", Tags: []string{"photography"}}

	res := newFeed(s).ForCreator(ctx, creator, Options{})
	require.Len(t, res, 1)
	assert.Equal(t, photo.ID, res[0].Opportunity.ID)
	assert.Equal(t, "Photographer", res[0].Role.Title)

	_, err := s.CreateApplication(ctx, models.Application{OpportunityID: photo.ID, RoleID: photo.Roles[0].ID, CreatorID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, newFeed(s).ForCreator(ctx, creator, Options{}))
}

func TestForCreatorSavedComesFirst(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	photo, model := seed(t, s)
	require.NoError(t, s.SetSaved(ctx, "c1", model.ID, true))

	res := newFeed(s).ForCreator(ctx, models.Creator{ID: "c1", City: "Berlin"}, Options{})
	require.Len(t, res, 2)
	assert.Equal(t, model.ID, res[0].Opportunity.ID)
	assert.Equal(t, photo.ID, res[1].Opportunity.ID)
}

func TestForCreatorIDUsesStoredProfileAndPriority(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s)
	_, err := s.SaveCreator(ctx, models.Creator{ID: "c1", City: "Hamburg", Tags: []string{"model"}})
	require.NoError(t, err)
	s.SetPriorityMember("c1", true)

	res := newFeed(s).ForCreatorID(ctx, "c1", Options{})
	require.Len(t, res, 1)
	assert.Equal(t, "Runway Model", res[0].Role.Title)
	assert.True(t, res[0].IsPriorityMatch)
	assert.Greater(t, res[0].Score, 0.0)

	assert.Len(t, newFeed(s).ForCreatorID(ctx, "unknown", Options{}), 2)
}

func TestForCreatorDegradesToEmpty(t *testing.T) {
	s := failingStore{memory.New()}
	res := newFeed(s).ForCreator(context.Background(), models.Creator{ID: "c1"}, Options{})
	assert.NotNil(t, res)
	assert.Empty(t, res)
}
