package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// UpsertTenantConfigParams is the input to UpsertTenantConfig.
type UpsertTenantConfigParams struct {
	TenantID           uuid.UUID
	RedactionPolicy    json.RawMessage
	IssueTrackerConfig json.RawMessage
	NotifierConfig     json.RawMessage
}

// UpsertTenantConfig inserts or replaces the single TenantConfig row for a
// tenant. Callers must validate the three documents (pkg/tenantconfig)
// before calling this.
func (q *Queries) UpsertTenantConfig(ctx context.Context, arg UpsertTenantConfigParams) (TenantConfig, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tenant_configs (id, tenant_id, redaction_policy, issue_tracker_config, notifier_config)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id) DO UPDATE SET
			redaction_policy = EXCLUDED.redaction_policy,
			issue_tracker_config = EXCLUDED.issue_tracker_config,
			notifier_config = EXCLUDED.notifier_config,
			updated_at = now()
		RETURNING id, tenant_id, redaction_policy, issue_tracker_config, notifier_config, created_at, updated_at
	`, uuid.New(), arg.TenantID, arg.RedactionPolicy, arg.IssueTrackerConfig, arg.NotifierConfig)

	var c TenantConfig
	if err := row.Scan(&c.ID, &c.TenantID, &c.RedactionPolicy, &c.IssueTrackerConfig,
		&c.NotifierConfig, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return TenantConfig{}, fmt.Errorf("upserting tenant config: %w", err)
	}
	return c, nil
}

// GetTenantConfig fetches the TenantConfig for a tenant.
func (q *Queries) GetTenantConfig(ctx context.Context, tenantID uuid.UUID) (TenantConfig, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, redaction_policy, issue_tracker_config, notifier_config, created_at, updated_at
		FROM tenant_configs WHERE tenant_id = $1
	`, tenantID)

	var c TenantConfig
	if err := row.Scan(&c.ID, &c.TenantID, &c.RedactionPolicy, &c.IssueTrackerConfig,
		&c.NotifierConfig, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return TenantConfig{}, fmt.Errorf("fetching tenant config: %w", err)
	}
	return c, nil
}
