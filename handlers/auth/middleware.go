package auth

import (
	"context"
	"net/http"

	"collabmatch/backend/handlers/response"
)

type contextKey int

const claimsKey contextKey = iota

// AuthMiddleware checks for a valid JWT token and stores its claims in the request context
func (t *Tokens) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := t.FromRequest(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRole only lets accounts of the given role through.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			claims, ok := ClaimsFrom(r.Context())
			if !ok || claims.Role != role {
				response.Error(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserID returns the authenticated user of r, or "" outside AuthMiddleware.
func UserID(r *http.Request) string {
	if c, ok := ClaimsFrom(r.Context()); ok {
		return c.UserID
	}
	return ""
}
