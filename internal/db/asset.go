package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CreateRunAssetParams is the input to CreateRunAsset.
type CreateRunAssetParams struct {
	RunID    uuid.UUID
	Kind     AssetKind
	Filename string
	Mime     string
}

// CreateRunAsset inserts a pending RunAsset, to be picked up by the worker
// tier (spec.md §5: task queue keyed by asset_id).
func (q *Queries) CreateRunAsset(ctx context.Context, arg CreateRunAssetParams) (RunAsset, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO run_assets (id, run_id, kind, status, filename, mime)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, run_id, kind, status, filename, mime, storage_ref, checksum, meta, created_at, updated_at
	`, uuid.New(), arg.RunID, arg.Kind, AssetStatusPending, arg.Filename, arg.Mime)
	return scanAsset(row)
}

// GetRunAsset fetches a RunAsset by ID.
func (q *Queries) GetRunAsset(ctx context.Context, id uuid.UUID) (RunAsset, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, run_id, kind, status, filename, mime, storage_ref, checksum, meta, created_at, updated_at
		FROM run_assets WHERE id = $1
	`, id)
	return scanAsset(row)
}

// ListRunAssets returns every asset under a Run.
func (q *Queries) ListRunAssets(ctx context.Context, runID uuid.UUID) ([]RunAsset, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, run_id, kind, status, filename, mime, storage_ref, checksum, meta, created_at, updated_at
		FROM run_assets WHERE run_id = $1 ORDER BY created_at
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing run assets: %w", err)
	}
	defer rows.Close()

	var out []RunAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ClaimRunAsset atomically transitions an asset pending → processing,
// returning sql.ErrNoRows-equivalent (pgx.ErrNoRows) if it was not in
// pending (already claimed by another worker, or terminal) — the
// preempt-safe compare-and-set required by spec.md §5.
func (q *Queries) ClaimRunAsset(ctx context.Context, id uuid.UUID) (RunAsset, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE run_assets SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING id, run_id, kind, status, filename, mime, storage_ref, checksum, meta, created_at, updated_at
	`, id, AssetStatusProcessing, AssetStatusPending)
	return scanAsset(row)
}

// CompleteRunAssetParams is the input to CompleteRunAsset.
type CompleteRunAssetParams struct {
	ID         uuid.UUID
	StorageRef string
	Checksum   string
	Meta       json.RawMessage
}

// CompleteRunAsset marks an asset completed after it passes the leak
// verifier (spec.md §4.5).
func (q *Queries) CompleteRunAsset(ctx context.Context, arg CompleteRunAssetParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE run_assets
		SET status = $2, storage_ref = $3, checksum = $4, meta = $5, updated_at = now()
		WHERE id = $1
	`, arg.ID, AssetStatusCompleted, arg.StorageRef, arg.Checksum, arg.Meta)
	if err != nil {
		return fmt.Errorf("completing run asset: %w", err)
	}
	return nil
}

// BlockRunAssetParams is the input to BlockRunAsset.
type BlockRunAssetParams struct {
	ID   uuid.UUID
	Meta json.RawMessage
}

// BlockRunAsset marks an asset blocked: the leak verifier rejected it
// (spec.md §4.5 — never completed, never recoverable by retry).
func (q *Queries) BlockRunAsset(ctx context.Context, arg BlockRunAssetParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE run_assets SET status = $2, meta = $3, updated_at = now() WHERE id = $1
	`, arg.ID, AssetStatusBlocked, arg.Meta)
	if err != nil {
		return fmt.Errorf("blocking run asset: %w", err)
	}
	return nil
}

// FailRunAssetParams is the input to FailRunAsset.
type FailRunAssetParams struct {
	ID   uuid.UUID
	Meta json.RawMessage
}

// FailRunAsset marks an asset failed (size/page limit, OCR exhaustion,
// cancellation observed mid-pipeline).
func (q *Queries) FailRunAsset(ctx context.Context, arg FailRunAssetParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE run_assets SET status = $2, meta = $3, updated_at = now() WHERE id = $1
	`, arg.ID, AssetStatusFailed, arg.Meta)
	if err != nil {
		return fmt.Errorf("failing run asset: %w", err)
	}
	return nil
}

func scanAsset(row interface{ Scan(dest ...any) error }) (RunAsset, error) {
	var a RunAsset
	err := row.Scan(&a.ID, &a.RunID, &a.Kind, &a.Status, &a.Filename, &a.Mime,
		&a.StorageRef, &a.Checksum, &a.Meta, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return RunAsset{}, fmt.Errorf("scanning run asset: %w", err)
	}
	return a, nil
}
