// Package audit implements an async, buffered audit-event writer. Grounded
// on internal/audit/audit.go's channel-buffered background-flush design,
// adapted from per-tenant-schema Postgres search_path switching to a
// single-schema tenant_id column, and extended with a PII guard over Meta
// before any entry reaches the database (spec.md invariant 5: "no raw PII
// ever appears in an audit Meta field").
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frozosec/escalatesafe/internal/db"
	"github.com/frozosec/escalatesafe/pkg/redaction"
)

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// Entry is a single audit event to be written.
type Entry struct {
	TenantID  uuid.UUID
	RunID     *uuid.UUID
	EventType string
	Meta      json.RawMessage
}

// Event type constants referenced across the run/export/oauth packages.
const (
	EventExportSucceeded = "export_succeeded"
	EventExportFailed    = "export_failed"
	EventNotifyFailed    = "notify_failed"
	EventRunCreated      = "run_created"
	EventRunReady        = "run_ready_for_review"
	EventRunFailed       = "run_failed"
	EventRunCancelled    = "run_cancelled"
	EventAssetBlocked    = "asset_blocked"
	EventAssetCompleted  = "asset_completed"
	EventAssetFailed     = "asset_failed"
	EventOAuthRefreshed  = "oauth_refreshed"
	EventOAuthRevoked    = "oauth_revoked"
)

// Writer is an async, buffered audit log writer backed by a Postgres pool.
type Writer struct {
	dbtx    db.DBTX
	guard   *Guard
	logger  *slog.Logger
	entries chan Entry
	wg      sync.WaitGroup
}

// NewWriter creates a Writer. Call Start to begin background flushing.
func NewWriter(dbtx db.DBTX, detector *redaction.Detector, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		dbtx:    dbtx,
		guard:   NewGuard(detector),
		logger:  logger,
		entries: make(chan Entry, bufferSize),
	}
}

// Start launches the background flush loop in a goroutine and returns
// immediately. The loop exits once ctx is cancelled, flushing what is
// still buffered.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close stops accepting new entries and waits for the flush loop to drain.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Log enqueues an entry for async writing. It never blocks the caller: a
// full buffer drops the entry with a warning rather than stalling the
// request or worker that's reporting it.
func (w *Writer) Log(entry Entry) {
	select {
	case w.entries <- entry:
	default:
		w.logger.Warn("audit log buffer full, dropping entry", "event_type", entry.EventType)
	}
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, flushBatch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case entry, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *Writer) flush(entries []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	q := db.New(w.dbtx)
	for _, e := range entries {
		meta, err := w.guard.Sanitize(e.Meta)
		if err != nil {
			w.logger.Error("audit entry meta failed PII guard, dropping entry",
				"error", err, "event_type", e.EventType, "tenant_id", e.TenantID)
			continue
		}

		err = q.CreateAuditEvent(ctx, db.CreateAuditEventParams{
			TenantID:  e.TenantID,
			RunID:     e.RunID,
			EventType: e.EventType,
			Meta:      meta,
		})
		if err != nil {
			w.logger.Error("writing audit event", "error", err, "event_type", e.EventType)
		}
	}
}

