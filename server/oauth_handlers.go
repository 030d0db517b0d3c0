package server

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/federation"
	"github.com/jrsteele09/go-session-auth/server/authflowrepo"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// OAuthLoginHandler completes a federated login. For a state packed by the web bridge the
// stored app redirect is checked, the stored callback URI and PKCE verifier go to the code
// exchange, and the flow is removed once the login succeeds.
func (s *Server) OAuthLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.OAuthLoginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		req.Provider = r.PathValue("provider")

		state := strings.TrimSpace(req.State)
		flow, err := s.authFlows.Get(state)
		bridged := err == nil && flow.Provider == strings.ToLower(strings.TrimSpace(req.Provider))
		if bridged {
			req.RedirectURI = flow.AppRedirectURI
			req.ExchangeRedirectURI = flow.CallbackURI
			req.PKCEVerifier = flow.CodeVerifier
		}

		bundle, err := s.auth.OAuthLogin(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if bridged {
			if err := s.authFlows.Delete(state); err != nil {
				log.Warn().Err(err).Str("request_id", requestID(r)).Msg("deleting completed auth flow")
			}
		}
		s.writeSession(w, r, bundle)
	}
}

// OAuthStartHandler sends the browser to the provider. The app's redirect_uri and state are
// kept server side under a packed state, and the provider calls back to this server.
func (s *Server) OAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerName := strings.ToLower(r.PathValue("provider"))
		if !federation.IsSupported(providerName) {
			writeError(w, r, auth.NewError(auth.CodeProviderUnsupported))
			return
		}
		provider, ok := s.providers[users.ProviderType(providerName)]
		if !ok {
			writeError(w, r, auth.NewError(auth.CodeProviderUnsupported))
			return
		}

		query := r.URL.Query()
		appRedirect := strings.TrimSpace(query.Get("redirect_uri"))
		if auth.ValidateAppRedirectURI(appRedirect) != nil || !s.appRedirectAllowed(providerName, appRedirect) {
			writeError(w, r, auth.NewError(auth.CodeRedirectURIMismatch))
			return
		}
		clientState := query.Get("state")
		if auth.ValidateState(clientState) != nil {
			writeError(w, r, auth.NewError(auth.CodeProviderInvalidState))
			return
		}

		packedState, err := generateRandomString(packedStateSize)
		if err != nil {
			writeError(w, r, err)
			return
		}
		flow := &authflowrepo.FlowState{
			Provider:       providerName,
			AppRedirectURI: appRedirect,
			ClientState:    clientState,
			CallbackURI:    s.publicBaseURL(r) + providerCallbackPath(providerName),
			CodeVerifier:   oauth2.GenerateVerifier(),
			CreatedAt:      s.nowTime(),
		}
		if err := s.authFlows.Upsert(packedState, flow); err != nil {
			writeError(w, r, err)
			return
		}

		http.Redirect(w, r, provider.AuthCodeURL(packedState, flow.CallbackURI, flow.CodeVerifier), http.StatusFound)
	}
}

// OAuthCallbackHandler hands the provider's answer back to the app redirect recorded at start.
// The flow stays stored until the app completes the login with the packed state.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerName := strings.ToLower(r.PathValue("provider"))
		query := r.URL.Query()
		packedState := query.Get("state")

		flow, err := s.authFlows.Get(packedState)
		if err != nil || flow.Provider != providerName {
			writeError(w, r, auth.NewError(auth.CodeProviderInvalidState))
			return
		}

		target, err := url.Parse(flow.AppRedirectURI)
		if err != nil {
			writeError(w, r, auth.NewError(auth.CodeRedirectURIMismatch))
			return
		}
		values := target.Query()
		for _, key := range []string{"code", "error", "error_description"} {
			if v := query.Get(key); v != "" {
				values.Set(key, v)
			}
		}
		values.Set("state", packedState)
		values.Set("request_id", requestID(r))
		target.RawQuery = values.Encode()

		log.Debug().
			Str("provider", providerName).
			Str("request_id", requestID(r)).
			Bool("has_code", query.Get("code") != "").
			Msg("oauth callback relayed to app")
		http.Redirect(w, r, target.String(), http.StatusFound)
	}
}

// appRedirectAllowed checks the app redirect before a bridged login starts. A provider with
// its own allow-list decides alone, matching the check OAuthLogin applies when the flow
// completes; otherwise the app allow-list must contain the redirect. With both lists empty
// nothing is allowed.
func (s *Server) appRedirectAllowed(provider, redirectURI string) bool {
	if providerList := s.config.GetAllowedRedirectURIs(provider); len(providerList) > 0 {
		return slices.Contains(providerList, redirectURI)
	}
	return slices.Contains(s.config.GetAppAllowedRedirectURIs(), redirectURI)
}
