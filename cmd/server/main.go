package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/jrsteele09/go-session-auth/email"
	"github.com/jrsteele09/go-session-auth/federation"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/ratelimit"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, closeFn, err := buildServer(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("closing rate limiter")
		}
	}()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := listenAndServe(httpServer); err != nil {
			log.Error().Err(err).Msg("listener stopped")
		}
	}()
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildServer wires the auth service and its HTTP surface from configuration.
func buildServer(ctx context.Context, c config.Config) (*server.Server, func() error, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	signer, err := newSigner(c)
	if err != nil {
		return nil, nil, err
	}
	tokens := token.New(signer,
		token.WithTokenExpiry(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()),
		token.WithIssuer(c.GetTokenIssuer()),
		token.WithAudience(c.GetTokenAudience()),
	)

	providers := federation.NewProvidersFromConfig(ctx, c)
	options := []auth.ServiceOption{
		auth.WithLogger(log.Logger),
		auth.WithMetrics(m),
		auth.WithPolicy(auth.PolicyFromConfig(c)),
		auth.WithPasswordHasher(users.NewPasswordHasher(c.GetPasswordIterations())),
		auth.WithRedirectPolicy(federation.NewRedirectPolicyFromConfig(c)),
		auth.WithCodeVerification(providers.Verifying(c)),
	}
	if secret := c.GetChallengeSecret(); secret != "" {
		options = append(options, auth.WithChallengeSecret([]byte(secret)))
	}

	authService, err := auth.NewService(auth.Repos{
		Users:      users.NewInMemoryRepo(),
		Challenges: challenge.NewInMemoryRepo(),
	}, tokens, email.NewFromConfig(c, log.Logger), options...)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.NewService: %w", err)
	}

	serverOptions := []server.ServerOption{
		server.WithProviders(providers),
		server.WithMetrics(m),
	}
	if keySet, ok := signer.(server.KeySet); ok {
		serverOptions = append(serverOptions, server.WithKeySet(keySet))
	}
	closeFn := func() error { return nil }
	if c.IsRateLimitEnabled() {
		var limiter ratelimit.Limiter
		limiter, closeFn = ratelimit.Build(ctx, c.GetRateLimitRedisAddr(), log.Logger)
		serverOptions = append(serverOptions, server.WithLimiter(limiter))
	}

	s, err := server.New(c, authService, serverOptions...)
	if err != nil {
		return nil, nil, fmt.Errorf("server.New: %w", err)
	}
	return s, closeFn, nil
}

// newSigner prefers a PEM signing key, then the HMAC secret, then a random HMAC secret that
// does not survive a restart.
func newSigner(c config.TokenConfig) (token.Signer, error) {
	if path := c.GetTokenSigningKeyFile(); path != "" {
		pemData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading signing key: %w", err)
		}
		keyPair, err := token.LoadKeyPairFromPEM(c.GetTokenKeyID(), pemData)
		if err != nil {
			return nil, fmt.Errorf("token.LoadKeyPairFromPEM: %w", err)
		}
		return token.NewKeyPairSigner(keyPair), nil
	}
	if secret := c.GetTokenSigningSecret(); secret != "" {
		return token.NewHMACSigner(secret), nil
	}
	log.Warn().Msg("no token signing key configured, access tokens will not survive a restart")
	signer, err := token.NewRandomHMACSigner()
	if err != nil {
		return nil, fmt.Errorf("token.NewRandomHMACSigner: %w", err)
	}
	return signer, nil
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if c.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
