package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateTenantParams is the input to CreateTenant.
type CreateTenantParams struct {
	Subdomain string
}

// CreateTenant inserts a new Tenant in the pending install state, or
// returns the existing row if the subdomain is already registered —
// mirrors the upsert-on-install semantics of oauth_service.py's install
// flow (spec.md §4.7 install()).
func (q *Queries) CreateTenant(ctx context.Context, arg CreateTenantParams) (Tenant, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tenants (id, subdomain, install_state, oauth_scopes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subdomain) DO UPDATE SET subdomain = EXCLUDED.subdomain
		RETURNING id, subdomain, install_state, oauth_access, oauth_refresh,
		          oauth_expiry, oauth_scopes, created_at, updated_at
	`, uuid.New(), arg.Subdomain, InstallStatePending, []string{})
	return scanTenant(row)
}

// GetTenantByID fetches a Tenant by primary key.
func (q *Queries) GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, subdomain, install_state, oauth_access, oauth_refresh,
		       oauth_expiry, oauth_scopes, created_at, updated_at
		FROM tenants WHERE id = $1
	`, id)
	return scanTenant(row)
}

// GetTenantBySubdomain fetches a Tenant by its unique subdomain.
func (q *Queries) GetTenantBySubdomain(ctx context.Context, subdomain string) (Tenant, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, subdomain, install_state, oauth_access, oauth_refresh,
		       oauth_expiry, oauth_scopes, created_at, updated_at
		FROM tenants WHERE subdomain = $1
	`, subdomain)
	return scanTenant(row)
}

// ListTenants returns every tenant ordered by created_at.
func (q *Queries) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, subdomain, install_state, oauth_access, oauth_refresh,
		       oauth_expiry, oauth_scopes, created_at, updated_at
		FROM tenants ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var out []Tenant
	for rows.Next() {
		t, err := scanTenantRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTenantTokensParams is the input to UpdateTenantTokens.
type UpdateTenantTokensParams struct {
	ID           uuid.UUID
	OAuthAccess  string
	OAuthRefresh string
	OAuthExpiry  time.Time
	OAuthScopes  []string
	InstallState InstallState
}

// UpdateTenantTokens atomically replaces a tenant's sealed OAuth token
// material — the install/refresh-success write path (spec.md §4.7).
func (q *Queries) UpdateTenantTokens(ctx context.Context, arg UpdateTenantTokensParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE tenants
		SET oauth_access = $2, oauth_refresh = $3, oauth_expiry = $4,
		    oauth_scopes = $5, install_state = $6, updated_at = now()
		WHERE id = $1
	`, arg.ID, arg.OAuthAccess, arg.OAuthRefresh, arg.OAuthExpiry, arg.OAuthScopes, arg.InstallState)
	if err != nil {
		return fmt.Errorf("updating tenant tokens: %w", err)
	}
	return nil
}

// SuspendTenant clears token material and marks a tenant suspended — the
// revoke() path and the invalid_grant refresh-failure path (spec.md §4.7).
func (q *Queries) SuspendTenant(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE tenants
		SET oauth_access = NULL, oauth_refresh = NULL, oauth_expiry = NULL,
		    install_state = $2, updated_at = now()
		WHERE id = $1
	`, id, InstallStateSuspended)
	if err != nil {
		return fmt.Errorf("suspending tenant: %w", err)
	}
	return nil
}

func scanTenant(row interface{ Scan(dest ...any) error }) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Subdomain, &t.InstallState, &t.OAuthAccess, &t.OAuthRefresh,
		&t.OAuthExpiry, &t.OAuthScopes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}
	return t, nil
}

func scanTenantRow(row interface{ Scan(dest ...any) error }) (Tenant, error) {
	return scanTenant(row)
}
