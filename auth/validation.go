package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateAppRedirectURI checks the app redirect handed to the web bridge. It must be an
// absolute URI without a fragment; custom app schemes are allowed.
func ValidateAppRedirectURI(uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return fmt.Errorf("redirect_uri is required")
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("redirect_uri is not a valid URI: %w", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("redirect_uri must be absolute")
	}
	if parsed.Fragment != "" || strings.Contains(uri, "#") {
		return fmt.Errorf("redirect_uri must not contain fragments")
	}
	return nil
}

// ValidateState checks the client state carried through the web bridge.
func ValidateState(state string) error {
	if state == "" {
		return nil
	}
	if strings.TrimSpace(state) != state {
		return fmt.Errorf("state must not contain leading/trailing whitespace")
	}
	if strings.ContainsAny(state, "\n\r\t") {
		return fmt.Errorf("state contains invalid characters")
	}
	return nil
}
