package server

import (
	"net/http"

	"github.com/jrsteele09/go-session-auth/ratelimit"
)

func (s *Server) initRoutes() {
	limited := func(group string, h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.APIMiddleware(s.RateLimitMiddleware(group))...)
	}
	api := func(h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.APIMiddleware()...)
	}
	bearer := func(h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.APIMiddleware(s.RequireAuth())...)
	}

	// Email/password
	s.RegisterRouteFunc("POST "+RouteEmailSignup, limited(ratelimit.GroupSignup, s.SignupHandler()))
	s.RegisterRouteFunc("POST "+RouteEmailLogin, limited(ratelimit.GroupLogin, s.LoginHandler()))
	s.RegisterRouteFunc("POST "+RouteEmailVerify, limited(ratelimit.GroupVerify, s.VerifyEmailHandler()))
	s.RegisterRouteFunc("POST "+RoutePasswordResetRequest, limited(ratelimit.GroupPasswordReset, s.PasswordResetRequestHandler()))
	s.RegisterRouteFunc("POST "+RoutePasswordResetConfirm, limited(ratelimit.GroupPasswordReset, s.PasswordResetConfirmHandler()))

	// Sessions
	s.RegisterRouteFunc("POST "+RouteRefresh, api(s.RefreshHandler()))
	s.RegisterRouteFunc("POST "+RouteLogout, api(s.LogoutHandler()))

	// Federated login
	s.RegisterRouteFunc("POST "+RouteProviderLogin, api(s.OAuthLoginHandler()))
	s.RegisterRouteFunc("GET "+RouteProviderStart, api(s.OAuthStartHandler()))
	s.RegisterRouteFunc("GET "+RouteProviderCallback, api(s.OAuthCallbackHandler()))

	// Bearer protected
	s.RegisterRouteFunc("GET "+RouteProfile, bearer(s.GetProfileHandler()))
	s.RegisterRouteFunc("PUT "+RouteProfile, bearer(s.UpdateProfileHandler()))
	s.RegisterRouteFunc("GET "+RouteSessions, bearer(s.ListSessionsHandler()))

	// CORS preflight for every API route
	s.RegisterRouteFunc("OPTIONS /", api(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	if s.keySet != nil {
		s.RegisterRouteFunc("GET "+RouteJWKS, api(s.JWKSHandler()))
	}
	if s.metrics != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	}
}
