package authflowrepo

import "time"

// DefaultTTL is how long a started web login may take to come back through the callback.
const DefaultTTL = 10 * time.Minute

// FlowState is what the web bridge remembers between sending the browser to the provider
// and the app completing the login.
type FlowState struct {
	Provider       string
	AppRedirectURI string // where the callback hands the code back to the app
	ClientState    string // state the app passed to start, if any
	CallbackURI    string // server callback registered with the provider
	CodeVerifier   string // PKCE verifier for the code exchange
	CreatedAt      time.Time
}

type Repo interface {
	Upsert(state string, flow *FlowState) error
	Get(state string) (*FlowState, error)
	Delete(state string) error
}
