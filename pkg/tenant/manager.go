package tenant

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/frozosec/escalatesafe/internal/db"
	"github.com/frozosec/escalatesafe/internal/pkgerr"
	"github.com/frozosec/escalatesafe/internal/vault"
	"github.com/frozosec/escalatesafe/pkg/audit"
)

// Manager implements C7: install, callback, valid_token/refresh, revoke.
type Manager struct {
	dbtx   db.DBTX
	vault  *vault.Vault
	oauth  *OAuthClient
	rdb    *redis.Client
	audit  *audit.Writer
	logger *slog.Logger
}

// NewManager builds a Manager.
func NewManager(dbtx db.DBTX, v *vault.Vault, oauth *OAuthClient, rdb *redis.Client, auditWriter *audit.Writer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dbtx: dbtx, vault: v, oauth: oauth, rdb: rdb, audit: auditWriter, logger: logger}
}

// Install creates or re-uses a pending Tenant for subdomain and returns the
// upstream authorize URL (spec.md §4.7 install()).
func (m *Manager) Install(ctx context.Context, subdomain string) (string, error) {
	q := db.New(m.dbtx)
	t, err := q.CreateTenant(ctx, db.CreateTenantParams{Subdomain: subdomain})
	if err != nil {
		return "", pkgerr.Wrap(pkgerr.CategoryInternal, "creating tenant for install", err)
	}

	return m.oauth.AuthorizeURL(subdomain, t.ID.String()), nil
}

// Callback exchanges an authorization code for tokens and activates the
// tenant (spec.md §4.7 callback()).
func (m *Manager) Callback(ctx context.Context, code, state string) error {
	tenantID, err := uuid.Parse(state)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryValidation, "parsing oauth state", err)
	}

	q := db.New(m.dbtx)
	t, err := q.GetTenantByID(ctx, tenantID)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryValidation, "looking up tenant for oauth callback", err)
	}

	resp, err := m.oauth.Exchange(ctx, t.Subdomain, code)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryUpstream, "exchanging oauth code", err)
	}

	if err := m.storeTokens(ctx, t.ID, resp, db.InstallStateActive); err != nil {
		return err
	}

	m.logAudit(tenantID, nil, audit.EventOAuthRefreshed, map[string]any{"event": "install_completed"})
	return nil
}

// ValidToken returns a usable access token for tenant, refreshing it first
// if it is absent, expired, or within refreshSkew of expiring (spec.md §4.7
// valid_token()).
func (m *Manager) ValidToken(ctx context.Context, tenantID uuid.UUID) (string, error) {
	q := db.New(m.dbtx)
	t, err := q.GetTenantByID(ctx, tenantID)
	if err != nil {
		return "", pkgerr.Wrap(pkgerr.CategoryInternal, "looking up tenant", err)
	}

	if t.OAuthAccess == nil {
		return "", pkgerr.New(pkgerr.CategoryAuth, "OAUTH_NOT_CONFIGURED")
	}

	needsRefresh := t.OAuthExpiry == nil || !time.Now().Add(refreshSkew).Before(*t.OAuthExpiry)
	if needsRefresh {
		var token string
		err := withRefreshLock(ctx, m.rdb, tenantID, func() error {
			// Re-read: another request may have refreshed while we waited
			// for the lock.
			fresh, err := q.GetTenantByID(ctx, tenantID)
			if err != nil {
				return pkgerr.Wrap(pkgerr.CategoryInternal, "re-reading tenant before refresh", err)
			}
			if fresh.OAuthExpiry != nil && time.Now().Add(refreshSkew).Before(*fresh.OAuthExpiry) {
				decrypted, err := m.vault.Open(*fresh.OAuthAccess)
				if err != nil {
					return pkgerr.Wrap(pkgerr.CategoryInternal, "opening cached access token", err)
				}
				token = decrypted
				return nil
			}
			refreshed, err := m.refresh(ctx, fresh)
			token = refreshed
			return err
		})
		return token, err
	}

	return m.vault.Open(*t.OAuthAccess)
}

// refresh performs the actual upstream refresh call and persists the
// result, handling invalid_grant suspension and transient-failure fallback
// (spec.md §4.7).
func (m *Manager) refresh(ctx context.Context, t db.Tenant) (string, error) {
	refreshToken, err := m.vault.Open(*t.OAuthRefresh)
	if err != nil {
		return "", pkgerr.Wrap(pkgerr.CategoryInternal, "opening refresh token", err)
	}

	resp, err := m.oauth.Refresh(ctx, t.Subdomain, refreshToken)
	if err != nil {
		if IsInvalidGrant(err) {
			if suspendErr := db.New(m.dbtx).SuspendTenant(ctx, t.ID); suspendErr != nil {
				m.logger.Error("suspending tenant after invalid_grant", "error", suspendErr, "tenant_id", t.ID)
			}
			m.logAudit(t.ID, nil, audit.EventOAuthRevoked, map[string]any{"reason": "invalid_grant"})
			return "", pkgerr.Wrap(pkgerr.CategoryAuth, "oauth refresh token invalid, tenant suspended", err)
		}

		// Transient failure: the old token may still be usable.
		if t.OAuthExpiry != nil && time.Now().Before(*t.OAuthExpiry) {
			m.logger.Warn("oauth refresh failed transiently, using token until absolute expiry",
				"error", err, "tenant_id", t.ID)
			return m.vault.Open(*t.OAuthAccess)
		}
		return "", pkgerr.Wrap(pkgerr.CategoryUpstream, "refreshing oauth token", err)
	}

	if err := m.storeTokens(ctx, t.ID, resp, db.InstallStateActive); err != nil {
		return "", err
	}
	m.logAudit(t.ID, nil, audit.EventOAuthRefreshed, map[string]any{"rotated_refresh_token": resp.RefreshToken != ""})

	return resp.AccessToken, nil
}

// Revoke clears token material and suspends the tenant (spec.md §4.7
// revoke()).
func (m *Manager) Revoke(ctx context.Context, tenantID uuid.UUID) error {
	if err := db.New(m.dbtx).SuspendTenant(ctx, tenantID); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "revoking tenant oauth tokens", err)
	}
	m.logAudit(tenantID, nil, audit.EventOAuthRevoked, map[string]any{"reason": "manual_revoke"})
	return nil
}

// Status returns the install state and token expiry visible to the
// control-plane status endpoint.
func (m *Manager) Status(ctx context.Context, tenantID uuid.UUID) (Status, error) {
	t, err := db.New(m.dbtx).GetTenantByID(ctx, tenantID)
	if err != nil {
		return Status{}, pkgerr.Wrap(pkgerr.CategoryInternal, "looking up tenant status", err)
	}
	return Status{
		TenantID:     t.ID,
		Subdomain:    t.Subdomain,
		InstallState: string(t.InstallState),
		ExpiresAt:    t.OAuthExpiry,
	}, nil
}

func (m *Manager) storeTokens(ctx context.Context, tenantID uuid.UUID, resp TokenResponse, state db.InstallState) error {
	sealedAccess, err := m.vault.Seal(resp.AccessToken)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "sealing access token", err)
	}
	sealedRefresh, err := m.vault.Seal(resp.RefreshToken)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "sealing refresh token", err)
	}

	expiresIn := resp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = int(defaultTokenLifetime.Seconds())
	}

	err = db.New(m.dbtx).UpdateTenantTokens(ctx, db.UpdateTenantTokensParams{
		ID:           tenantID,
		OAuthAccess:  sealedAccess,
		OAuthRefresh: sealedRefresh,
		OAuthExpiry:  time.Now().Add(time.Duration(expiresIn) * time.Second),
		OAuthScopes:  []string{"read", "write"},
		InstallState: state,
	})
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "storing tenant oauth tokens", err)
	}
	return nil
}

func (m *Manager) logAudit(tenantID uuid.UUID, runID *uuid.UUID, eventType string, meta map[string]any) {
	if m.audit == nil {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		m.logger.Error("marshaling audit meta", "error", err)
		return
	}
	m.audit.Log(audit.Entry{TenantID: tenantID, RunID: runID, EventType: eventType, Meta: raw})
}
