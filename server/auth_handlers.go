package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
)

type sessionResponse struct {
	*auth.SessionBundle
	RequestID string `json:"request_id"`
}

type verificationResponse struct {
	*auth.VerificationChallenge
	RequestID string `json:"request_id"`
}

type resetRequestResponse struct {
	*auth.ResetChallenge
	RequestID string `json:"request_id"`
}

type resetConfirmResponse struct {
	*auth.ResetResult
	RequestID string `json:"request_id"`
}

type logoutResponse struct {
	LoggedOut       bool   `json:"logged_out"`
	RevokedSessions int    `json:"revoked_sessions"`
	RequestID       string `json:"request_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, bundle *auth.SessionBundle) {
	writeJSON(w, http.StatusOK, sessionResponse{SessionBundle: bundle, RequestID: requestID(r)})
}

// SignupHandler returns either a session bundle or, when verification is required, the
// pending verification payload.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignupRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		result, err := s.auth.SignupEmail(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if result.Verification != nil {
			writeJSON(w, http.StatusOK, verificationResponse{VerificationChallenge: result.Verification, RequestID: requestID(r)})
			return
		}
		s.writeSession(w, r, result.Session)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		bundle, err := s.auth.LoginEmail(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.writeSession(w, r, bundle)
	}
}

func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.VerifyEmailRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		bundle, err := s.auth.VerifyEmail(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.writeSession(w, r, bundle)
	}
}

func (s *Server) PasswordResetRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.PasswordResetRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		result, err := s.auth.RequestPasswordReset(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resetRequestResponse{ResetChallenge: result, RequestID: requestID(r)})
	}
}

func (s *Server) PasswordResetConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ConfirmPasswordResetRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		result, err := s.auth.ConfirmPasswordReset(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resetConfirmResponse{ResetResult: result, RequestID: requestID(r)})
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		bundle, err := s.auth.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.writeSession(w, r, bundle)
	}
}

// LogoutHandler revokes the sessions behind the tokens in the body. The access token may
// come from the Authorization header instead.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LogoutRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.AccessToken == "" {
			req.AccessToken = bearerToken(r)
		}

		revoked, err := s.auth.Logout(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, logoutResponse{LoggedOut: true, RevokedSessions: revoked, RequestID: requestID(r)})
	}
}
