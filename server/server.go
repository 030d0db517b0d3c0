package server

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/federation"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/ratelimit"
	"github.com/jrsteele09/go-session-auth/server/authflowrepo"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env            string               // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	routes         []string
	config         config.Config
	auth           *auth.Service
	providers      federation.Providers // providers the web bridge can start a login with
	authFlows      authflowrepo.Repo
	limiter        ratelimit.Limiter    // nil disables rate limiting
	trustedProxies []netip.Prefix
	metrics        *metrics.Metrics
	keySet         KeySet               // nil when tokens are HMAC signed
	nowTime        func() time.Time
}

// KeySet publishes the public keys that verify access tokens.
type KeySet interface {
	JWKS() (*token.JWKS, error)
}

type ServerOption func(*Server)

func WithProviders(providers federation.Providers) ServerOption {
	return func(s *Server) {
		s.providers = providers
	}
}

func WithAuthFlowRepo(repo authflowrepo.Repo) ServerOption {
	return func(s *Server) {
		s.authFlows = repo
	}
}

func WithLimiter(limiter ratelimit.Limiter) ServerOption {
	return func(s *Server) {
		s.limiter = limiter
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithKeySet(keySet KeySet) ServerOption {
	return func(s *Server) {
		s.keySet = keySet
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func New(c config.Config, authService *auth.Service, options ...ServerOption) (*Server, error) {
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}

	s := &Server{
		env:            c.GetEnv(),
		mux:            http.NewServeMux(),
		config:         c,
		auth:           authService,
		providers:      federation.Providers{},
		trustedProxies: c.GetTrustedProxies(),
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.authFlows == nil {
		s.authFlows = authflowrepo.NewInMemoryRepo(authflowrepo.WithNowFunc(s.nowTime))
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

// getScheme determines the scheme (http/https) the client used.
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
