package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/secretkeeper/internal/config"
	"github.com/secretkeeper/internal/constants"
	"github.com/secretkeeper/internal/domain"
)

const maxUserInfoSize = 1 << 20

var _ domain.IdentityProvider = (*GoogleProvider)(nil)

// GoogleProvider runs the OAuth authorization code flow against Google and
// reads the profile from the userinfo endpoint
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// googleUserInfo is the subset of the OpenID userinfo response we use
type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// NewGoogleProvider creates a provider for the configured Google OAuth client
func NewGoogleProvider(cfg config.GoogleOAuthConfig) *GoogleProvider {
	return newGoogleProvider(cfg, google.Endpoint)
}

func newGoogleProvider(cfg config.GoogleOAuthConfig, endpoint oauth2.Endpoint) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     endpoint,
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// AuthCodeURL returns the consent page URL carrying state
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and fetches the identity
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*domain.Identity, error) {
	if code == "" {
		return nil, domain.WrapIdentityRejected("missing authorization code")
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, domain.WrapIdentityRejected(fmt.Sprintf("token exchange refused: %s", retrieveErr.ErrorCode))
		}
		return nil, domain.WrapNetworkOperation("exchange authorization code", err)
	}

	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, domain.WrapNetworkOperation("fetch userinfo", err)
	}

	return &domain.Identity{
		Provider:      constants.ProviderGoogle,
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          info.Name,
	}, nil
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %s", resp.Status)
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoSize)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}
