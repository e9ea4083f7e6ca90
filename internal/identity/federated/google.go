// Package federated signs users in through an OAuth2 provider's
// authorization code flow.
package federated

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"givetrack/internal/identity/models"
	dErrors "givetrack/pkg/domain-errors"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

type Google struct {
	config      *oauth2.Config
	userInfoURL string
}

type Option func(*Google)

// WithEndpoint points the code exchange at another authorization server.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(g *Google) {
		g.config.Endpoint = endpoint
	}
}

func WithUserInfoURL(url string) Option {
	return func(g *Google) {
		g.userInfoURL = url
	}
}

func NewGoogle(clientID, clientSecret, redirectURL string, opts ...Option) *Google {
	g := &Google{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) Name() models.Provider {
	return models.ProviderGoogle
}

func (g *Google) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type userInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Exchange trades the authorization code for tokens and reads the verified
// identity from the userinfo endpoint.
func (g *Google) Exchange(ctx context.Context, code string) (*models.FederatedIdentity, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "authorization code rejected")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build userinfo request")
	}
	resp, err := g.config.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity provider unavailable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.Wrap(fmt.Errorf("userinfo status %d", resp.StatusCode), dErrors.CodeUnauthorized, "identity provider refused userinfo")
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed userinfo response")
	}
	if !info.EmailVerified {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "email not verified by provider")
	}
	return &models.FederatedIdentity{
		Provider:    models.ProviderGoogle,
		Subject:     info.Subject,
		Email:       info.Email,
		DisplayName: info.Name,
	}, nil
}
