package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/bookswapapp/bookswap-server/internal/domain"
	"github.com/bookswapapp/bookswap-server/internal/http/response"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userKey is the context key for the authenticated user.
const userKey ctxKey = "user"

// setUser stores the authenticated user in context.
func setUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// userFromContext returns the authenticated user from context, or nil.
func userFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}

// requireAuth validates the Bearer token and stores the resolved user in
// context. Requests without a valid token are rejected with 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header", s.logger)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "invalid authorization header format", s.logger)
			return
		}

		user, err := s.authService.VerifyAccessToken(r.Context(), parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token", s.logger)
			return
		}

		next.ServeHTTP(w, r.WithContext(setUser(r.Context(), user)))
	})
}

// rateLimitAuth applies a per-client rate limit to credential endpoints.
// Keyed by remote IP, which RealIP has already resolved.
func (s *Server) rateLimitAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.Allow(r.RemoteAddr) {
			response.TooManyRequests(w, "too many attempts, slow down", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}
