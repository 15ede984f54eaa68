package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CreateAuditEventParams is the input to CreateAuditEvent.
type CreateAuditEventParams struct {
	TenantID  uuid.UUID
	RunID     *uuid.UUID
	EventType string
	Meta      json.RawMessage
}

// CreateAuditEvent appends an audit event. Meta must already have been
// scanned for PII by the caller (pkg/audit) — spec.md invariant 5.
func (q *Queries) CreateAuditEvent(ctx context.Context, arg CreateAuditEventParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO audit_events (id, tenant_id, run_id, event_type, meta, ts)
		VALUES ($1, $2, $3, $4, $5, now())
	`, uuid.New(), arg.TenantID, arg.RunID, arg.EventType, arg.Meta)
	if err != nil {
		return fmt.Errorf("creating audit event: %w", err)
	}
	return nil
}

// ListAuditEventsForRun returns every audit event recorded for a Run, in
// chronological order.
func (q *Queries) ListAuditEventsForRun(ctx context.Context, runID uuid.UUID) ([]AuditEvent, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, tenant_id, run_id, event_type, meta, ts
		FROM audit_events WHERE run_id = $1 ORDER BY ts
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.ID, &e.TenantID, &e.RunID, &e.EventType, &e.Meta, &e.TS); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
