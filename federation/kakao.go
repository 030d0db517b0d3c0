package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-session-auth/users"
	"golang.org/x/oauth2"
)

const kakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

var kakaoEndpoint = oauth2.Endpoint{
	AuthURL:   "https://kauth.kakao.com/oauth/authorize",
	TokenURL:  "https://kauth.kakao.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// KakaoProvider exchanges codes with Kakao and reads the account from its user API.
type KakaoProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

type KakaoOption func(*KakaoProvider)

// WithKakaoEndpoint overrides the token and user info endpoints (primarily for testing)
func WithKakaoEndpoint(endpoint oauth2.Endpoint, userInfoURL string) KakaoOption {
	return func(p *KakaoProvider) {
		p.config.Endpoint = endpoint
		p.userInfoURL = userInfoURL
	}
}

func NewKakaoProvider(clientID, clientSecret string, options ...KakaoOption) *KakaoProvider {
	p := &KakaoProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     kakaoEndpoint,
		},
		userInfoURL: kakaoUserInfoURL,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *KakaoProvider) Name() users.ProviderType {
	return users.ProviderKakao
}

func (p *KakaoProvider) AuthCodeURL(state, redirectURI, pkceVerifier string) string {
	opts := []oauth2.AuthCodeOption{}
	if pkceVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(pkceVerifier))
	}
	return exchangeConfig(p.config, redirectURI).AuthCodeURL(state, opts...)
}

type kakaoUser struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (p *KakaoProvider) Exchange(ctx context.Context, code, redirectURI, pkceVerifier string) (*Identity, error) {
	config := exchangeConfig(p.config, redirectURI)
	token, err := config.Exchange(ctx, code, withPKCE(pkceVerifier)...)
	if err != nil {
		return nil, classifyExchangeError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	resp, err := config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, errors.Join(ErrUnavailable, fmt.Errorf("user info status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Join(ErrRejected, fmt.Errorf("user info status %d", resp.StatusCode))
	}

	var user kakaoUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Join(ErrRejected, err)
	}
	if user.ID == 0 {
		return nil, errors.Join(ErrRejected, errors.New("user info without id"))
	}
	return &Identity{
		Subject: strconv.FormatInt(user.ID, 10),
		Email:   user.KakaoAccount.Email,
		Name:    user.KakaoAccount.Profile.Nickname,
	}, nil
}
