// Package tenant implements the OAuth Token Manager (C7): install,
// callback, valid_token/refresh, and revoke, grounded on
// original_source/api/services/oauth_service.py and
// original_source/api/services/integrations/zendesk_oauth.py.
package tenant

import (
	"time"

	"github.com/google/uuid"
)

// TokenResponse is the upstream's token-endpoint response shape (spec.md
// §4.7: "authorization_code" / "refresh_token" grants).
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	Scope        string   `json:"scope"`
	Scopes       []string `json:"-"`
}

// Status is the public shape of GET /oauth/status/{tenant_id}.
type Status struct {
	TenantID     uuid.UUID `json:"tenant_id"`
	Subdomain    string    `json:"subdomain"`
	InstallState string    `json:"install_state"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// defaultTokenLifetime mirrors oauth_service.py's fallback of 7200 seconds
// when the upstream omits expires_in.
const defaultTokenLifetime = 2 * time.Hour

// refreshSkew is how far ahead of expiry a token is proactively refreshed
// (spec.md §4.7: "now + 300s ≥ oauth_expiry").
const refreshSkew = 300 * time.Second
