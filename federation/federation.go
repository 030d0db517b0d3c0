package federation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/jrsteele09/go-session-auth/users"
	"golang.org/x/oauth2"
)

const derivedSubjectLength = 24

var (
	ErrInvalidCode = errors.New("provider rejected the authorization code")
	ErrRejected    = errors.New("provider rejected the request")
	ErrUnavailable = errors.New("provider unavailable")
)

var supportedProviders = map[users.ProviderType]struct{}{
	users.ProviderGoogle: {},
	users.ProviderKakao:  {},
}

var cancellationErrors = map[string]struct{}{
	"access_denied":  {},
	"cancelled":      {},
	"user_cancelled": {},
	"canceled":       {},
}

// Identity is what a provider vouches for after a successful code exchange.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Provider exchanges authorization codes with one identity provider.
type Provider interface {
	Name() users.ProviderType
	AuthCodeURL(state, redirectURI, pkceVerifier string) string
	Exchange(ctx context.Context, code, redirectURI, pkceVerifier string) (*Identity, error)
}

// IsSupported reports whether provider is one of the federated providers.
func IsSupported(provider string) bool {
	_, ok := supportedProviders[users.ProviderType(provider)]
	return ok
}

// IsCancellation reports whether a provider error parameter means the user backed out.
func IsCancellation(errorParam string) bool {
	_, ok := cancellationErrors[strings.ToLower(strings.TrimSpace(errorParam))]
	return ok
}

// DeriveSubject builds a stable subject for a code when the provider did not report one.
func DeriveSubject(provider, code, state string) string {
	sum := sha256.Sum256([]byte(provider + ":" + code + ":" + state))
	return hex.EncodeToString(sum[:])[:derivedSubjectLength]
}

// classifyExchangeError maps an oauth2 exchange failure onto the package errors.
func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" {
			return errors.Join(ErrInvalidCode, err)
		}
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			return errors.Join(ErrUnavailable, err)
		}
		return errors.Join(ErrRejected, err)
	}
	return errors.Join(ErrUnavailable, err)
}

func withPKCE(pkceVerifier string) []oauth2.AuthCodeOption {
	if pkceVerifier == "" {
		return nil
	}
	return []oauth2.AuthCodeOption{oauth2.VerifierOption(pkceVerifier)}
}

func exchangeConfig(base *oauth2.Config, redirectURI string) *oauth2.Config {
	c := *base
	c.RedirectURL = redirectURI
	return &c
}
