// Package run implements the Run State Machine (C6): the
// pending → processing → ready_for_review → exporting → exported DAG,
// with the cancel edge from any non-terminal state, run_hash computation,
// and the row-level locking spec.md §5 requires to linearize concurrent
// transitions on one Run. Grounded on
// wisbric-nightowl/pkg/incident/service.go's Service/Store split and
// history-recording pattern, generalized from Incident's open/ack/resolve
// lifecycle to Run's five-state DAG.
package run

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/frozosec/escalatesafe/internal/db"
	"github.com/frozosec/escalatesafe/internal/pkgerr"
	"github.com/frozosec/escalatesafe/pkg/audit"
)

// Service drives Run transitions. It holds the pool directly (rather than a
// bare DBTX) because several operations must run inside a transaction that
// takes the Run row lock before reading or writing it. rdb carries the
// cancellation tombstone (spec.md §5) that pkg/ingest's Worker polls; it may
// be nil in tests that never exercise Cancel.
type Service struct {
	pool   *pgxpool.Pool
	rdb    *redis.Client
	audit  *audit.Writer
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(pool *pgxpool.Pool, rdb *redis.Client, auditWriter *audit.Writer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{pool: pool, rdb: rdb, audit: auditWriter, logger: logger}
}

// Create inserts a pending Run and immediately advances it to processing
// (spec.md §4.6: "pending → processing: on run creation, after options
// validated"). Callers must validate options and the internal-notes opt-in
// before calling this.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, ticketID string, options json.RawMessage) (db.Run, error) {
	q := db.New(s.pool)
	r, err := q.CreateRun(ctx, db.CreateRunParams{TenantID: tenantID, TicketID: ticketID, Options: options})
	if err != nil {
		return db.Run{}, pkgerr.Wrap(pkgerr.CategoryInternal, "creating run", err)
	}

	if err := q.UpdateRunStatus(ctx, db.UpdateRunStatusParams{ID: r.ID, Status: db.RunStatusProcessing}); err != nil {
		return db.Run{}, pkgerr.Wrap(pkgerr.CategoryInternal, "advancing run to processing", err)
	}
	r.Status = db.RunStatusProcessing

	s.logAudit(tenantID, &r.ID, audit.EventRunCreated, map[string]any{"ticket_id": ticketID})
	return r, nil
}

// CompleteSanitization advances a Run to ready_for_review, computing and
// persisting run_hash and redaction_report atomically (spec.md §4.6, §3:
// "run_hash = SHA-256 over tenant_id || ticket_id || sanitized_payload").
func (s *Service) CompleteSanitization(ctx context.Context, runID uuid.UUID, sanitizedPayload []byte, redactionReport json.RawMessage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "beginning sanitization-complete transaction", err)
	}
	defer tx.Rollback(ctx)

	q := db.New(tx)
	r, err := q.GetRunForUpdate(ctx, runID)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "locking run row", err)
	}
	if r.Status != db.RunStatusProcessing {
		return pkgerr.New(pkgerr.CategoryConflict, "run is not in processing, cannot complete sanitization")
	}

	hash := RunHash(r.TenantID, r.TicketID, sanitizedPayload)
	if err := q.CompleteSanitization(ctx, db.CompleteSanitizationParams{
		ID:              runID,
		RunHash:         hash,
		RedactionReport: redactionReport,
	}); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "completing sanitization", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "committing sanitization-complete transaction", err)
	}

	s.logAudit(r.TenantID, &runID, audit.EventRunReady, map[string]any{"transition": "ready_for_review"})
	return nil
}

// Fail transitions a Run to failed from processing or exporting (spec.md
// §4.6's two "→ failed" edges).
func (s *Service) Fail(ctx context.Context, runID uuid.UUID, reason string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "beginning fail transaction", err)
	}
	defer tx.Rollback(ctx)

	q := db.New(tx)
	r, err := q.GetRunForUpdate(ctx, runID)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "locking run row", err)
	}
	if r.Status != db.RunStatusProcessing && r.Status != db.RunStatusExporting {
		return pkgerr.New(pkgerr.CategoryConflict, "run is not in a state that can fail")
	}

	if err := q.UpdateRunStatus(ctx, db.UpdateRunStatusParams{ID: runID, Status: db.RunStatusFailed}); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "marking run failed", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "committing fail transaction", err)
	}

	s.logAudit(r.TenantID, &runID, audit.EventRunFailed, map[string]any{"transition": "failed", "reason": reason})
	return nil
}

// Cancel transitions a Run to cancelled from any non-terminal state
// (spec.md §4.6: "from any non-terminal: cancel").
func (s *Service) Cancel(ctx context.Context, runID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "beginning cancel transaction", err)
	}
	defer tx.Rollback(ctx)

	q := db.New(tx)
	r, err := q.GetRunForUpdate(ctx, runID)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "locking run row", err)
	}
	if isTerminal(r.Status) {
		return pkgerr.New(pkgerr.CategoryConflict, "run is already in a terminal state")
	}

	if err := q.UpdateRunStatus(ctx, db.UpdateRunStatusParams{ID: runID, Status: db.RunStatusCancelled}); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "cancelling run", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "committing cancel transaction", err)
	}

	if err := publishTombstone(ctx, s.rdb, runID); err != nil {
		// The Run row is already committed cancelled; a worker that misses
		// the tombstone still fails the asset once it next queries the Run.
		s.logger.Error("publishing cancellation tombstone", "error", err, "run_id", runID)
	}

	s.logAudit(r.TenantID, &runID, audit.EventRunCancelled, map[string]any{"previous_status": string(r.Status)})
	return nil
}

// Get fetches a Run without locking it.
func (s *Service) Get(ctx context.Context, runID uuid.UUID) (db.Run, error) {
	r, err := db.New(s.pool).GetRun(ctx, runID)
	if err != nil {
		return db.Run{}, pkgerr.Wrap(pkgerr.CategoryInternal, "fetching run", err)
	}
	return r, nil
}

// isTerminal reports whether status has no outbound transitions.
func isTerminal(status db.RunStatus) bool {
	switch status {
	case db.RunStatusExported, db.RunStatusFailed, db.RunStatusCancelled:
		return true
	default:
		return false
	}
}

// RunHash computes the spec.md §3 run_hash: SHA-256 over
// tenant_id || ticket_id || sanitized_payload.
func RunHash(tenantID uuid.UUID, ticketID string, sanitizedPayload []byte) string {
	h := sha256.New()
	h.Write(tenantID[:])
	h.Write([]byte(ticketID))
	h.Write(sanitizedPayload)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) logAudit(tenantID uuid.UUID, runID *uuid.UUID, eventType string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		s.logger.Error("marshaling audit meta", "error", err)
		return
	}
	s.audit.Log(audit.Entry{TenantID: tenantID, RunID: runID, EventType: eventType, Meta: raw})
}
