package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// oauthTimeout bounds every call to the upstream token endpoint (spec.md §5:
// "OAuth refresh 10 s").
const oauthTimeout = 10 * time.Second

// OAuthClient exchanges authorization codes and refresh tokens against a
// per-tenant upstream ticketing service subdomain. Grounded on
// zendesk_oauth.py's token_url templating and oauth_service.py's
// exchange_code_for_tokens/refresh_access_token, expressed against
// golang.org/x/oauth2 instead of hand-rolled HTTP calls.
type OAuthClient struct {
	clientID     string
	clientSecret string
	redirectURL  string
	httpClient   *http.Client
}

// NewOAuthClient builds an OAuthClient for the app-wide client credentials
// registered with the upstream ticketing service.
func NewOAuthClient(clientID, clientSecret, redirectURL string) *OAuthClient {
	return &OAuthClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		httpClient:   &http.Client{Timeout: oauthTimeout},
	}
}

func (c *OAuthClient) config(subdomain string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RedirectURL:  c.redirectURL,
		Scopes:       []string{"read", "write"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("https://%s.zendesk.com/oauth/authorizations/new", subdomain),
			TokenURL: fmt.Sprintf("https://%s.zendesk.com/oauth/tokens", subdomain),
		},
	}
}

func (c *OAuthClient) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// AuthorizeURL builds the upstream consent-screen URL for install(), with
// state carrying the opaque tenant ID (spec.md §4.7: "state = tenant_id
// signed/opaque").
func (c *OAuthClient) AuthorizeURL(subdomain, state string) string {
	return c.config(subdomain).AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for an access/refresh token pair
// (spec.md §4.7 callback()).
func (c *OAuthClient) Exchange(ctx context.Context, subdomain, code string) (TokenResponse, error) {
	ctx, cancel := context.WithTimeout(c.withHTTPClient(ctx), oauthTimeout)
	defer cancel()

	token, err := c.config(subdomain).Exchange(ctx, code)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("exchanging oauth code: %w", err)
	}
	return toResponse(token), nil
}

// Refresh exchanges a refresh token for a new access token (spec.md §4.7
// valid_token()'s refresh path).
func (c *OAuthClient) Refresh(ctx context.Context, subdomain, refreshToken string) (TokenResponse, error) {
	ctx, cancel := context.WithTimeout(c.withHTTPClient(ctx), oauthTimeout)
	defer cancel()

	src := c.config(subdomain).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return TokenResponse{}, fmt.Errorf("refreshing oauth token: %w", err)
	}
	return toResponse(token), nil
}

// IsInvalidGrant reports whether err is an upstream invalid_grant-class
// response — the condition under which valid_token() clears all tokens and
// suspends the tenant instead of returning the old token (spec.md §4.7).
func IsInvalidGrant(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.ErrorCode == "invalid_grant"
	}
	return false
}

func toResponse(token *oauth2.Token) TokenResponse {
	refresh := token.RefreshToken
	expiresIn := int(time.Until(token.Expiry).Seconds())
	if token.Expiry.IsZero() {
		expiresIn = int(defaultTokenLifetime.Seconds())
	}
	return TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
	}
}
