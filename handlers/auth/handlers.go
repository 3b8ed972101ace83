package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"collabmatch/backend/handlers/response"
	"collabmatch/backend/models"
	"collabmatch/backend/store"
)

type LoginResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token"`
	Role  string `json:"role"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SignupHandler handles user registration
// Used by: /api/auth/signup
// Response: LoginResponse
func SignupHandler(users store.UserStore, creators store.CreatorStore, tokens *Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		// Validate role
		if req.Role != models.AccountCreator && req.Role != models.AccountBusiness {
			response.Error(w, http.StatusBadRequest, "Invalid role. Must be 'creator' or 'business'")
			return
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid email address")
			return
		}
		if len(req.Password) < 8 {
			response.Error(w, http.StatusBadRequest, "Password must be at least 8 characters")
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "Error hashing password")
			return
		}

		user, err := users.CreateUser(r.Context(), models.User{
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			PasswordHash: string(hashedPassword),
			Role:         req.Role,
		})
		if err != nil {
			response.FromError(w, err)
			return
		}

		// Create initial profile based on role
		if user.Role == models.AccountCreator {
			if _, err := creators.SaveCreator(r.Context(), models.Creator{ID: user.ID, Tags: []string{}}); err != nil {
				log.Printf("Error creating creator profile for user %s: %v", user.ID, err)
			}
		}

		token, err := tokens.GenerateToken(user.ID, user.Role)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "Error generating token")
			return
		}

		response.JSON(w, http.StatusCreated, LoginResponse{ID: user.ID, Email: user.Email, Token: token, Role: user.Role})
	}
}

// LoginHandler handles user authentication
// Used by: /api/auth/login
// Response: LoginResponse
func LoginHandler(users store.UserStore, tokens *Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := users.GetUserByEmail(r.Context(), req.Email)
		if errors.Is(err, models.ErrNotFound) {
			response.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if err != nil {
			response.FromError(w, err)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := tokens.GenerateToken(user.ID, user.Role)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "Error generating token")
			return
		}

		response.JSON(w, http.StatusOK, LoginResponse{ID: user.ID, Email: user.Email, Token: token, Role: user.Role})
	}
}
