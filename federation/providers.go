package federation

import (
	"context"

	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/users"
)

// Providers indexes the configured providers by name.
type Providers map[users.ProviderType]Provider

// NewProvidersFromConfig builds a provider for every federated provider with a client id.
func NewProvidersFromConfig(ctx context.Context, c config.OAuthConfig) Providers {
	providers := Providers{}
	if client := c.GetProviderClient(string(users.ProviderGoogle)); client.ClientID != "" {
		providers[users.ProviderGoogle] = NewGoogleProvider(ctx, client.ClientID, client.ClientSecret)
	}
	if client := c.GetProviderClient(string(users.ProviderKakao)); client.ClientID != "" {
		providers[users.ProviderKakao] = NewKakaoProvider(client.ClientID, client.ClientSecret)
	}
	return providers
}

// Verifying returns the providers whose codes must be checked live during login.
func (p Providers) Verifying(c config.OAuthConfig) Providers {
	verifying := Providers{}
	for name, provider := range p {
		if c.GetProviderClient(string(name)).VerifyEnabled {
			verifying[name] = provider
		}
	}
	return verifying
}

// NewRedirectPolicyFromConfig builds the allow-lists for every supported provider.
func NewRedirectPolicyFromConfig(c config.OAuthConfig) *RedirectPolicy {
	allowed := make(map[users.ProviderType][]string, len(supportedProviders))
	for provider := range supportedProviders {
		allowed[provider] = c.GetAllowedRedirectURIs(string(provider))
	}
	return NewRedirectPolicy(allowed)
}
