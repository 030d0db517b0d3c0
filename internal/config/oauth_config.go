package config

// ProviderClient holds the credentials used to verify authorization codes with a provider.
type ProviderClient struct {
	ClientID      string
	ClientSecret  string
	VerifyEnabled bool
}

type OAuthConfig interface {
	GetAllowedRedirectURIs(provider string) []string
	GetAppAllowedRedirectURIs() []string
	GetPublicBaseURL() string
	GetProviderClient(provider string) ProviderClient
}

type OAuth struct {
	GoogleRedirectURIs []string `env:"AUTH_GOOGLE_ALLOWED_REDIRECT_URIS" envSeparator:","`
	KakaoRedirectURIs  []string `env:"AUTH_KAKAO_ALLOWED_REDIRECT_URIS"  envSeparator:","`
	AppRedirectURIs    []string `env:"AUTH_APP_ALLOWED_REDIRECT_URIS"    envSeparator:","`
	PublicBaseURL      string   `env:"AUTH_PUBLIC_BASE_URL"`

	GoogleClientID     string `env:"AUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"AUTH_GOOGLE_CLIENT_SECRET"`
	GoogleVerifyCode   bool   `env:"AUTH_GOOGLE_CODE_VERIFY_ENABLED" envDefault:"false"`
	KakaoClientID      string `env:"AUTH_KAKAO_CLIENT_ID"`
	KakaoClientSecret  string `env:"AUTH_KAKAO_CLIENT_SECRET"`
	KakaoVerifyCode    bool   `env:"AUTH_KAKAO_CODE_VERIFY_ENABLED"  envDefault:"false"`
}

var _ OAuthConfig = OAuth{}

// GetAllowedRedirectURIs returns the provider's allow-list. An empty list allows any URI.
func (o OAuth) GetAllowedRedirectURIs(provider string) []string {
	switch provider {
	case "google":
		return trimAll(o.GoogleRedirectURIs)
	case "kakao":
		return trimAll(o.KakaoRedirectURIs)
	default:
		return nil
	}
}

func (o OAuth) GetAppAllowedRedirectURIs() []string {
	return trimAll(o.AppRedirectURIs)
}

func (o OAuth) GetPublicBaseURL() string {
	return o.PublicBaseURL
}

func (o OAuth) GetProviderClient(provider string) ProviderClient {
	switch provider {
	case "google":
		return ProviderClient{ClientID: o.GoogleClientID, ClientSecret: o.GoogleClientSecret, VerifyEnabled: o.GoogleVerifyCode}
	case "kakao":
		return ProviderClient{ClientID: o.KakaoClientID, ClientSecret: o.KakaoClientSecret, VerifyEnabled: o.KakaoVerifyCode}
	default:
		return ProviderClient{}
	}
}
