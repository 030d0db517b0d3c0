package federation_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-auth/federation"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testClientID     = "client-id"
	testClientSecret = "client-secret"
	testRedirectURI  = "https://app.example/callback"
)

func TestDeriveSubject(t *testing.T) {
	a := federation.DeriveSubject("google", "code-1", "state-1")
	require.Len(t, a, 24)
	require.Equal(t, a, federation.DeriveSubject("google", "code-1", "state-1"))
	require.NotEqual(t, a, federation.DeriveSubject("kakao", "code-1", "state-1"))
	require.NotEqual(t, a, federation.DeriveSubject("google", "code-2", "state-1"))
}

func TestIsCancellation(t *testing.T) {
	for _, v := range []string{"access_denied", "cancelled", "user_cancelled", "canceled", " Access_Denied "} {
		require.True(t, federation.IsCancellation(v), v)
	}
	for _, v := range []string{"server_error", "invalid_request", ""} {
		require.False(t, federation.IsCancellation(v), v)
	}
}

func TestIsSupported(t *testing.T) {
	require.True(t, federation.IsSupported("google"))
	require.True(t, federation.IsSupported("kakao"))
	require.False(t, federation.IsSupported("github"))
	require.False(t, federation.IsSupported("email"))
}

func TestRedirectPolicy(t *testing.T) {
	policy := federation.NewRedirectPolicy(map[users.ProviderType][]string{
		users.ProviderGoogle: {"https://a.example/cb"},
	})

	require.True(t, policy.Allows(users.ProviderGoogle, "https://a.example/cb"))
	require.False(t, policy.Allows(users.ProviderGoogle, "https://a.example/cb/"))
	require.False(t, policy.Allows(users.ProviderGoogle, "https://evil.example/cb"))
	require.True(t, policy.Allows(users.ProviderKakao, "anything"), "empty list allows any uri")
}

type googleFixture struct {
	server   *httptest.Server
	provider *federation.GoogleProvider
	key      *rsa.PrivateKey
	status   int
	body     map[string]interface{}
	form     url.Values
}

func setupGoogleFixture(t *testing.T) *googleFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &googleFixture{key: key, status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_ = json.NewEncoder(w).Encode(f.body)
	}))
	t.Cleanup(f.server.Close)

	f.provider = federation.NewGoogleProvider(context.Background(), testClientID, testClientSecret,
		federation.WithGoogleEndpoint(
			oauth2.Endpoint{TokenURL: f.server.URL + "/token", AuthURL: f.server.URL + "/auth", AuthStyle: oauth2.AuthStyleInParams},
			f.server.URL,
			&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
		),
	)
	return f
}

func (f *googleFixture) idToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.key)
	require.NoError(t, err)
	return signed
}

// TestGoogleProvider_Exchange tests the code exchange and ID token verification
func TestGoogleProvider_Exchange(t *testing.T) {
	ctx := context.Background()

	t.Run("verified identity", func(t *testing.T) {
		f := setupGoogleFixture(t)
		f.body = map[string]interface{}{
			"access_token": "at",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token": f.idToken(t, jwt.MapClaims{
				"iss":   f.server.URL,
				"aud":   testClientID,
				"sub":   "google-sub-1",
				"email": "alice@example.com",
				"name":  "Alice",
				"iat":   time.Now().Unix(),
				"exp":   time.Now().Add(time.Hour).Unix(),
			}),
		}

		identity, err := f.provider.Exchange(ctx, "code-1", testRedirectURI, "verifier-1")
		require.NoError(t, err)
		require.Equal(t, &federation.Identity{Subject: "google-sub-1", Email: "alice@example.com", Name: "Alice"}, identity)
		require.Equal(t, "code-1", f.form.Get("code"))
		require.Equal(t, testRedirectURI, f.form.Get("redirect_uri"))
		require.Equal(t, "verifier-1", f.form.Get("code_verifier"))
	})

	t.Run("wrong audience", func(t *testing.T) {
		f := setupGoogleFixture(t)
		f.body = map[string]interface{}{
			"access_token": "at",
			"token_type":   "Bearer",
			"id_token": f.idToken(t, jwt.MapClaims{
				"iss": f.server.URL,
				"aud": "someone-else",
				"sub": "google-sub-1",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		}

		_, err := f.provider.Exchange(ctx, "code-1", testRedirectURI, "")
		require.ErrorIs(t, err, federation.ErrRejected)
	})

	t.Run("invalid grant", func(t *testing.T) {
		f := setupGoogleFixture(t)
		f.status = http.StatusBadRequest
		f.body = map[string]interface{}{"error": "invalid_grant"}

		_, err := f.provider.Exchange(ctx, "used-code", testRedirectURI, "")
		require.ErrorIs(t, err, federation.ErrInvalidCode)
	})

	t.Run("other rejection", func(t *testing.T) {
		f := setupGoogleFixture(t)
		f.status = http.StatusUnauthorized
		f.body = map[string]interface{}{"error": "invalid_client"}

		_, err := f.provider.Exchange(ctx, "code-1", testRedirectURI, "")
		require.ErrorIs(t, err, federation.ErrRejected)
	})

	t.Run("unreachable", func(t *testing.T) {
		f := setupGoogleFixture(t)
		f.server.Close()

		_, err := f.provider.Exchange(ctx, "code-1", testRedirectURI, "")
		require.ErrorIs(t, err, federation.ErrUnavailable)
	})
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	f := setupGoogleFixture(t)
	verifier := oauth2.GenerateVerifier()

	raw := f.provider.AuthCodeURL("state-1", testRedirectURI, verifier)
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	require.Equal(t, "state-1", q.Get("state"))
	require.Equal(t, testRedirectURI, q.Get("redirect_uri"))
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
}

func TestKakaoProvider_Exchange(t *testing.T) {
	ctx := context.Background()
	userStatus := http.StatusOK

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") == "bad-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"kakao-at","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/user/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer kakao-at", r.Header.Get("Authorization"))
		w.WriteHeader(userStatus)
		_, _ = w.Write([]byte(`{"id":123456,"kakao_account":{"email":"bob@example.com","profile":{"nickname":"Bob"}}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	provider := federation.NewKakaoProvider(testClientID, testClientSecret, federation.WithKakaoEndpoint(
		oauth2.Endpoint{TokenURL: server.URL + "/oauth/token", AuthStyle: oauth2.AuthStyleInParams},
		server.URL+"/v2/user/me",
	))
	require.Equal(t, users.ProviderKakao, provider.Name())

	identity, err := provider.Exchange(ctx, "good-code", testRedirectURI, "")
	require.NoError(t, err)
	require.Equal(t, &federation.Identity{Subject: "123456", Email: "bob@example.com", Name: "Bob"}, identity)

	_, err = provider.Exchange(ctx, "bad-code", testRedirectURI, "")
	require.ErrorIs(t, err, federation.ErrInvalidCode)

	userStatus = http.StatusBadGateway
	_, err = provider.Exchange(ctx, "good-code", testRedirectURI, "")
	require.ErrorIs(t, err, federation.ErrUnavailable)
}
