package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabmatch/backend/models"
	"collabmatch/backend/store/memory"
)

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestSignupAndLogin(t *testing.T) {
	s := memory.New()
	tokens := NewTokens("test-secret", time.Hour)
	signup := SignupHandler(s, s, tokens)
	login := LoginHandler(s, tokens)

	rec := post(signup, `{"email":"Lena@Example.com","password":"correct horse","role":"creator"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "lena@example.com", created.Email)
	assert.NotEmpty(t, created.Token)

	// creators get an empty profile on signup
	_, err := s.GetCreator(httptest.NewRequest(http.MethodGet, "/", nil).Context(), created.ID)
	assert.NoError(t, err)

	rec = post(signup, `{"email":"lena@example.com","password":"correct horse","role":"creator"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(login, `{"email":"lena@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var logged LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logged))
	claims, err := tokens.ParseToken(logged.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, models.AccountCreator, claims.Role)

	assert.Equal(t, http.StatusUnauthorized, post(login, `{"email":"lena@example.com","password":"wrong password"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(login, `{"email":"nobody@example.com","password":"whatever"}`).Code)
}

func TestSignupValidation(t *testing.T) {
	s := memory.New()
	signup := SignupHandler(s, s, NewTokens("k", time.Hour))

	assert.Equal(t, http.StatusBadRequest, post(signup, `{"email":"a@example.com","password":"longenough","role":"admin"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(signup, `{"email":"not-an-email","password":"longenough","role":"business"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(signup, `{"email":"a@example.com","password":"short","role":"business"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(signup, `{`).Code)
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokens("k", time.Hour)
	var seen string
	h := tokens.AuthMiddleware(RequireRole(models.AccountBusiness)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r)
	})))

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage"))

	creatorToken, err := tokens.GenerateToken("u1", models.AccountCreator)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do("Bearer "+creatorToken))

	bizToken, err := tokens.GenerateToken("b1", models.AccountBusiness)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do("Bearer "+bizToken))
	assert.Equal(t, "b1", seen)

	other := NewTokens("different", time.Hour)
	_, err = other.ParseToken(bizToken)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	tokens := NewTokens("k", time.Nanosecond)
	tok, err := tokens.GenerateToken("u1", models.AccountCreator)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = tokens.ParseToken(tok)
	assert.Error(t, err)
}
