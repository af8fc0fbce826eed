package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes needed to send mail and manage events on the connected mailbox
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/calendar.events",
}

// GoogleProvider holds the OAuth2 client for the connected Google mailbox
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a new Google OAuth provider
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// GetAuthURL returns the consent URL. Offline access with a forced prompt
// makes Google return a refresh token every time.
func (g *GoogleProvider) GetAuthURL(state string) string {
	return g.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ErrNoRefreshToken is returned when consent did not grant offline access
var ErrNoRefreshToken = errors.New("google did not return a refresh token")

// ExchangeCode trades the authorization code for tokens. The mailbox adapters
// only keep the refresh token, so a grant without one is rejected.
func (g *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	return token, nil
}

// HTTPClient authenticates every request with an access token minted from
// refreshToken and renewed as it expires
func (g *GoogleProvider) HTTPClient(ctx context.Context, refreshToken string) *http.Client {
	return oauth2.NewClient(ctx, g.tokenSource(ctx, refreshToken))
}

// RefreshToken mints an access token, proving refreshToken is still valid
func (g *GoogleProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	token, err := g.tokenSource(ctx, refreshToken).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return token, nil
}

func (g *GoogleProvider) tokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	src := g.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return oauth2.ReuseTokenSource(nil, src)
}
