package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
)

type profileResponse struct {
	*auth.ProfileView
	RequestID string `json:"request_id"`
}

type sessionsResponse struct {
	Sessions  []auth.SessionView `json:"sessions"`
	RequestID string             `json:"request_id"`
}

func (s *Server) GetProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r)
		if !ok {
			writeError(w, r, auth.NewError(auth.CodeTokenInvalid))
			return
		}

		profile, err := s.auth.GetProfile(r.Context(), principal.User.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{ProfileView: profile, RequestID: requestID(r)})
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r)
		if !ok {
			writeError(w, r, auth.NewError(auth.CodeTokenInvalid))
			return
		}

		var update auth.ProfileUpdate
		if err := decodeJSON(r, &update); err != nil {
			writeError(w, r, err)
			return
		}

		profile, err := s.auth.UpdateProfile(r.Context(), principal.User.ID, update)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{ProfileView: profile, RequestID: requestID(r)})
	}
}

func (s *Server) ListSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r)
		if !ok {
			writeError(w, r, auth.NewError(auth.CodeTokenInvalid))
			return
		}

		sessions, err := s.auth.ListSessions(r.Context(), *principal)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionsResponse{Sessions: sessions, RequestID: requestID(r)})
	}
}
