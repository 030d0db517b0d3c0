package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
)

type principalKey struct{}

// RequireAuth validates the bearer access token and stores the caller in the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, r, auth.NewError(auth.CodeTokenInvalid))
				return
			}

			principal, err := s.auth.AuthenticateAccessToken(r.Context(), token)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next(w, r.WithContext(ctx))
		}
	}
}

// principalFrom returns the caller stored by RequireAuth.
func principalFrom(r *http.Request) (*auth.Principal, bool) {
	principal, ok := r.Context().Value(principalKey{}).(*auth.Principal)
	return principal, ok && principal != nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
