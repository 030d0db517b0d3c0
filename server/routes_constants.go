package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Email/password accounts
	RouteEmailSignup = "/auth/email/signup"
	RouteEmailLogin  = "/auth/email/login"
	RouteEmailVerify = "/auth/email/verify"

	// Password reset
	RoutePasswordResetRequest = "/auth/password/reset/request"
	RoutePasswordResetConfirm = "/auth/password/reset/confirm"

	// Federated login and the browser bridge in front of it
	RouteProviderLogin    = "/auth/{provider}"
	RouteProviderStart    = "/auth/{provider}/start"
	RouteProviderCallback = "/auth/{provider}/callback"

	// Sessions
	RouteRefresh = "/auth/refresh"
	RouteLogout  = "/auth/logout"

	// Bearer protected
	RouteProfile  = "/me/profile"
	RouteSessions = "/me/sessions"

	// Operations
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
	RouteJWKS    = "/.well-known/jwks.json"
)

// providerCallbackPath is the callback route for one provider.
func providerCallbackPath(provider string) string {
	return "/auth/" + provider + "/callback"
}
