package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabmatch/backend/models"
	"collabmatch/backend/store/memory"
)

func TestGenerateTestData(t *testing.T) {
	gofakeit.Seed(7)
	s := memory.New()

	rec := httptest.NewRecorder()
	GenerateTestDataHandler(s).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/test/generate-opportunities?count=3", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Opportunities int `json:"opportunities"`
		Creators      int `json:"creators"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Opportunities)
	assert.Equal(t, 3, body.Creators)

	opps, err := s.ListOpportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 3)
	for _, o := range opps {
		assert.NotEmpty(t, o.OwnerID)
		assert.NotEmpty(t, o.Roles)
		for _, r := range o.Roles {
			assert.Equal(t, models.RoleOpen, r.Status)
			assert.GreaterOrEqual(t, r.Capacity, 1)
		}
	}
}

func TestGenerateTestDataRejectsBadCount(t *testing.T) {
	for _, q := range []string{"0", "151", "abc"} {
		rec := httptest.NewRecorder()
		GenerateTestDataHandler(memory.New()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/test/generate-opportunities?count="+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestPickIsDistinct(t *testing.T) {
	got := pick(creatorTags, 5)
	require.Len(t, got, 5)
	seen := map[string]bool{}
	for _, g := range got {
		assert.False(t, seen[g], g)
		seen[g] = true
	}
	assert.Len(t, pick([]string{"a"}, 3), 1)
}
