package federation

import (
	"context"
	"errors"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-session-auth/users"
	"golang.org/x/oauth2"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// GoogleProvider exchanges codes with Google and trusts the verified ID token's claims.
type GoogleProvider struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type GoogleOption func(*googleSettings)

type googleSettings struct {
	endpoint oauth2.Endpoint
	issuer   string
	keySet   oidc.KeySet
}

// WithGoogleEndpoint overrides the token endpoint, issuer and signing keys (primarily for testing)
func WithGoogleEndpoint(endpoint oauth2.Endpoint, issuer string, keySet oidc.KeySet) GoogleOption {
	return func(s *googleSettings) {
		s.endpoint = endpoint
		s.issuer = issuer
		s.keySet = keySet
	}
}

func NewGoogleProvider(ctx context.Context, clientID, clientSecret string, options ...GoogleOption) *GoogleProvider {
	settings := googleSettings{endpoint: googleEndpoint, issuer: googleIssuer}
	for _, opt := range options {
		opt(&settings)
	}
	if settings.keySet == nil {
		settings.keySet = oidc.NewRemoteKeySet(ctx, googleJWKSURL)
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     settings.endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidc.NewVerifier(settings.issuer, settings.keySet, &oidc.Config{ClientID: clientID}),
	}
}

func (p *GoogleProvider) Name() users.ProviderType {
	return users.ProviderGoogle
}

func (p *GoogleProvider) AuthCodeURL(state, redirectURI, pkceVerifier string) string {
	opts := []oauth2.AuthCodeOption{}
	if pkceVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(pkceVerifier))
	}
	return exchangeConfig(p.config, redirectURI).AuthCodeURL(state, opts...)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code, redirectURI, pkceVerifier string) (*Identity, error) {
	token, err := exchangeConfig(p.config, redirectURI).Exchange(ctx, code, withPKCE(pkceVerifier)...)
	if err != nil {
		return nil, classifyExchangeError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.Join(ErrRejected, errors.New("no id_token in token response"))
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Join(ErrRejected, err)
	}

	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Join(ErrRejected, err)
	}
	return &Identity{Subject: claims.Sub, Email: claims.Email, Name: claims.Name}, nil
}
