package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxBodyBytes    = 1 << 20
	packedStateSize = 24
)

type errorResponse struct {
	Code      auth.Code `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return auth.NewError(auth.CodeInvalidRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders any error as the structured error body. Errors that are not *auth.Error
// are reported as INTERNAL_ERROR without detail. The user id is logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		authErr = auth.NewError(auth.CodeInternal)
	}
	event := log.Debug()
	if authErr.Status >= http.StatusInternalServerError {
		event = log.Error().Err(err)
	}
	event.
		Str("request_id", requestID(r)).
		Str("code", string(authErr.Code)).
		Str("user_id", authErr.UserID).
		Msg(r.Method + " " + r.URL.Path)

	writeJSON(w, authErr.Status, errorResponse{
		Code:      authErr.Code,
		Message:   authErr.Message,
		RequestID: requestID(r),
	})
}

// publicBaseURL is the externally visible origin used to build provider callback URLs.
func (s *Server) publicBaseURL(r *http.Request) string {
	if base := strings.TrimRight(s.config.GetPublicBaseURL(), "/"); base != "" {
		return base
	}
	return getScheme(r) + "://" + r.Host
}
