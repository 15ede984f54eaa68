package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateExportParams is the input to CreateExport.
type CreateExportParams struct {
	RunID uuid.UUID
}

// CreateExport inserts a pending Export row — step 1 of approve()
// (spec.md §4.8): "Advance to exporting; insert Export row in pending."
func (q *Queries) CreateExport(ctx context.Context, arg CreateExportParams) (Export, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO exports (id, run_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, run_id, downstream_issue_key, downstream_issue_url, notifier_ref,
		          status, error_code, error_message, created_at, updated_at
	`, uuid.New(), arg.RunID, ExportStatusPending)
	return scanExport(row)
}

// GetExportByRunID finds the Export row for a Run, if any. Used by the
// idempotency check: "if an Export row already exists with a non-null
// downstream_issue_key for this run, the approval returns the existing key
// without calling the downstream" (spec.md §4.6).
func (q *Queries) GetExportByRunID(ctx context.Context, runID uuid.UUID) (Export, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, run_id, downstream_issue_key, downstream_issue_url, notifier_ref,
		       status, error_code, error_message, created_at, updated_at
		FROM exports WHERE run_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, runID)
	return scanExport(row)
}

// CompleteExportParams is the input to CompleteExport.
type CompleteExportParams struct {
	ID                 uuid.UUID
	DownstreamIssueKey string
	DownstreamIssueURL string
}

// CompleteExport writes the downstream key/url and marks the Export
// successful. Callers must run this in the same transaction as the Run's
// transition to exported (spec.md §4.6 idempotency note).
func (q *Queries) CompleteExport(ctx context.Context, arg CompleteExportParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE exports
		SET downstream_issue_key = $2, downstream_issue_url = $3, status = $4, updated_at = now()
		WHERE id = $1
	`, arg.ID, arg.DownstreamIssueKey, arg.DownstreamIssueURL, ExportStatusSuccess)
	if err != nil {
		return fmt.Errorf("completing export: %w", err)
	}
	return nil
}

// FailExportParams is the input to FailExport.
type FailExportParams struct {
	ID           uuid.UUID
	ErrorCode    string
	ErrorMessage string
}

// FailExport marks an Export terminally failed with a typed error code
// (spec.md §4.8 step 6).
func (q *Queries) FailExport(ctx context.Context, arg FailExportParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE exports SET status = $2, error_code = $3, error_message = $4, updated_at = now()
		WHERE id = $1
	`, arg.ID, ExportStatusFailed, arg.ErrorCode, arg.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failing export: %w", err)
	}
	return nil
}

// SetExportNotifierRef records the notifier delivery reference for an
// Export (fire-and-forget notify step, spec.md §4.8 step 5).
func (q *Queries) SetExportNotifierRef(ctx context.Context, id uuid.UUID, notifierRef string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE exports SET notifier_ref = $2, updated_at = now() WHERE id = $1
	`, id, notifierRef)
	if err != nil {
		return fmt.Errorf("setting export notifier ref: %w", err)
	}
	return nil
}

func scanExport(row interface{ Scan(dest ...any) error }) (Export, error) {
	var e Export
	err := row.Scan(&e.ID, &e.RunID, &e.DownstreamIssueKey, &e.DownstreamIssueURL,
		&e.NotifierRef, &e.Status, &e.ErrorCode, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Export{}, fmt.Errorf("scanning export: %w", err)
	}
	return e, nil
}
