package federation

import (
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/users"
)

// RedirectPolicy holds the per-provider redirect URI allow-lists. A provider with an empty
// list accepts any URI; otherwise the URI must match an entry exactly.
type RedirectPolicy struct {
	allowed map[users.ProviderType]map[string]struct{}
}

func NewRedirectPolicy(allowed map[users.ProviderType][]string) *RedirectPolicy {
	p := &RedirectPolicy{allowed: make(map[users.ProviderType]map[string]struct{}, len(allowed))}
	for provider, uris := range allowed {
		p.allowed[provider] = utils.ToSet(uris)
	}
	return p
}

func (p *RedirectPolicy) Allows(provider users.ProviderType, redirectURI string) bool {
	if p == nil {
		return true
	}
	set := p.allowed[provider]
	if len(set) == 0 {
		return true
	}
	_, ok := set[redirectURI]
	return ok
}
