package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CreateRunParams is the input to CreateRun.
type CreateRunParams struct {
	TenantID uuid.UUID
	TicketID string
	Options  json.RawMessage
}

// CreateRun inserts a new Run in the pending state (spec.md §4.6:
// "pending → processing on run creation" — the caller transitions it to
// processing immediately after this insert succeeds, inside the same
// request).
func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) (Run, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO runs (id, tenant_id, ticket_id, status, options)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, tenant_id, ticket_id, status, options, run_hash, redaction_report, created_at, updated_at
	`, uuid.New(), arg.TenantID, arg.TicketID, RunStatusPending, arg.Options)
	return scanRun(row)
}

// GetRun fetches a Run by ID.
func (q *Queries) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, ticket_id, status, options, run_hash, redaction_report, created_at, updated_at
		FROM runs WHERE id = $1
	`, id)
	return scanRun(row)
}

// GetRunForUpdate fetches a Run with a row-level lock, linearizing state
// machine transitions per spec.md §5 ("The Run state machine transitions
// are linearized by the Run's row-level lock"). Must be called inside a
// transaction.
func (q *Queries) GetRunForUpdate(ctx context.Context, id uuid.UUID) (Run, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, ticket_id, status, options, run_hash, redaction_report, created_at, updated_at
		FROM runs WHERE id = $1 FOR UPDATE
	`, id)
	return scanRun(row)
}

// UpdateRunStatusParams is the input to UpdateRunStatus.
type UpdateRunStatusParams struct {
	ID     uuid.UUID
	Status RunStatus
}

// UpdateRunStatus performs a bare status transition (e.g. pending →
// processing, ready_for_review → exporting).
func (q *Queries) UpdateRunStatus(ctx context.Context, arg UpdateRunStatusParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE runs SET status = $2, updated_at = now() WHERE id = $1
	`, arg.ID, arg.Status)
	if err != nil {
		return fmt.Errorf("updating run status: %w", err)
	}
	return nil
}

// CompleteSanitizationParams is the input to CompleteSanitization.
type CompleteSanitizationParams struct {
	ID              uuid.UUID
	RunHash         string
	RedactionReport json.RawMessage
}

// CompleteSanitization advances a Run to ready_for_review, setting
// run_hash and redaction_report atomically — spec.md §4.6: "redaction_report
// and run_hash are set atomically in this transition."
func (q *Queries) CompleteSanitization(ctx context.Context, arg CompleteSanitizationParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE runs
		SET status = $2, run_hash = $3, redaction_report = $4, updated_at = now()
		WHERE id = $1
	`, arg.ID, RunStatusReadyForReview, arg.RunHash, arg.RedactionReport)
	if err != nil {
		return fmt.Errorf("completing sanitization: %w", err)
	}
	return nil
}

// FindExportedRunByHash finds an already-exported Run sharing a run_hash,
// used to enforce spec.md invariant 3 ("run_hash is unique across
// non-cancelled exported Runs").
func (q *Queries) FindExportedRunByHash(ctx context.Context, runHash string) (Run, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, tenant_id, ticket_id, status, options, run_hash, redaction_report, created_at, updated_at
		FROM runs WHERE run_hash = $1 AND status = $2
		LIMIT 1
	`, runHash, RunStatusExported)
	return scanRun(row)
}

func scanRun(row interface{ Scan(dest ...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.TenantID, &r.TicketID, &r.Status, &r.Options,
		&r.RunHash, &r.RedactionReport, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	return r, nil
}
