package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleUser is the subset of the userinfo document the survey keeps.
type GoogleUser struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleClient performs the OAuth consent and code exchange against Google.
type GoogleClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (GoogleUser, error)
}

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type oauthGoogleClient struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleClient builds a GoogleClient backed by golang.org/x/oauth2.
func NewGoogleClient(cfg GoogleConfig) (GoogleClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, providerError(CodeNotConfigured, "google oauth client id, secret and redirect url are required", nil)
	}

	return &oauthGoogleClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}, nil
}

func (g *oauthGoogleClient) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (g *oauthGoogleClient) Exchange(ctx context.Context, code string) (GoogleUser, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return GoogleUser{}, providerError(CodeExchangeFailed, "failed to exchange authorization code", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return GoogleUser{}, providerError(CodeUserInfoFailed, "failed to build userinfo request", err)
	}

	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return GoogleUser{}, providerError(CodeUserInfoFailed, "userinfo request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleUser{}, providerError(CodeUserInfoFailed, fmt.Sprintf("userinfo returned status %d", resp.StatusCode), nil)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return GoogleUser{}, providerError(CodeUserInfoFailed, "invalid userinfo payload", err)
	}
	if strings.TrimSpace(user.Subject) == "" {
		return GoogleUser{}, providerError(CodeUserInfoFailed, "userinfo payload missing subject", nil)
	}

	return user, nil
}
