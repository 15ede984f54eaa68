package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frozosec/escalatesafe/internal/db"
	"github.com/frozosec/escalatesafe/internal/pkgerr"
	"github.com/frozosec/escalatesafe/pkg/audit"
	"github.com/frozosec/escalatesafe/pkg/blobstore"
)

// maxSummaryLen enforces the downstream summary length cap (spec.md §4
// Downstream: "summary ≤120 chars").
const maxSummaryLen = 120

// backoffBase/backoffFactor/backoffMaxAttempts mirror jira.py's
// retry_with_backoff(max_retries=5, initial_delay=1.0) (spec.md §4.8 step
// 3: "base 1 s, factor 2, max 5 attempts").
const (
	backoffBase        = 1 * time.Second
	backoffFactor      = 2.0
	backoffMaxAttempts = 5
)

// AttachResult records the outcome of one asset-attachment attempt (spec.md
// §4.8 "Asset attachment": "A failed attachment post does not revert a
// successful issue creation; it is recorded as attach_failed and listed in
// the response.").
type AttachResult struct {
	AssetID  uuid.UUID
	Filename string
	Attached bool
	Error    string
}

// Result is Approve's return value.
type Result struct {
	Issue       Issue
	Attachments []AttachResult
	Reused      bool // true if this was an idempotent re-approval, not a new export
}

// Orchestrator drives the approve/export flow.
type Orchestrator struct {
	pool     *pgxpool.Pool
	tracker  Tracker
	notifier Notifier
	blobs    blobstore.Store
	audit    *audit.Writer
	logger   *slog.Logger
}

// NewOrchestrator builds an Orchestrator. notifier may be nil if the tenant
// has no notifier configured.
func NewOrchestrator(pool *pgxpool.Pool, tracker Tracker, notifier Notifier, blobs blobstore.Store, auditWriter *audit.Writer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{pool: pool, tracker: tracker, notifier: notifier, blobs: blobs, audit: auditWriter, logger: logger}
}

// Approve executes spec.md §4.8's approve() operation: idempotent export
// creation, asset attachment, fire-and-forget notify.
func (o *Orchestrator) Approve(ctx context.Context, runID uuid.UUID, params CreateIssueParams) (Result, error) {
	q := db.New(o.pool)

	r, err := q.GetRun(ctx, runID)
	if err != nil {
		return Result{}, pkgerr.Wrap(pkgerr.CategoryInternal, "fetching run for approval", err)
	}
	if r.Status != db.RunStatusReadyForReview {
		// Idempotent re-approval: if an Export already carries a downstream
		// key, return it instead of erroring (spec.md §4.6 idempotency note).
		if existing, exErr := q.GetExportByRunID(ctx, runID); exErr == nil && existing.DownstreamIssueKey != nil {
			return Result{Issue: Issue{Key: *existing.DownstreamIssueKey, URL: derefString(existing.DownstreamIssueURL)}, Reused: true}, nil
		}
		return Result{}, pkgerr.New(pkgerr.CategoryConflict, "run is not ready_for_review")
	}

	exp, err := o.beginExport(ctx, runID)
	if err != nil {
		return Result{}, err
	}

	params.Summary = truncate(params.Summary, maxSummaryLen)

	issue, createErr := o.createIssueWithRetry(ctx, params)
	if createErr != nil {
		o.failExport(ctx, exp.ID, runID, createErr)
		return Result{}, pkgerr.Wrap(pkgerr.CategoryDownstream, "creating downstream issue", createErr)
	}

	if err := o.completeExport(ctx, exp.ID, runID, issue); err != nil {
		return Result{}, err
	}
	o.logAudit(r.TenantID, &runID, audit.EventExportSucceeded, map[string]any{"issue_key": issue.Key})

	attachments := o.attachAssets(ctx, runID, issue.Key)

	if o.notifier != nil {
		o.notifyFireAndForget(ctx, r.TenantID, runID, exp.ID, issue)
	}

	return Result{Issue: issue, Attachments: attachments}, nil
}

func (o *Orchestrator) beginExport(ctx context.Context, runID uuid.UUID) (db.Export, error) {
	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return db.Export{}, pkgerr.Wrap(pkgerr.CategoryInternal, "beginning export transaction", err)
	}
	defer tx.Rollback(ctx)

	q := db.New(tx)
	r, err := q.GetRunForUpdate(ctx, runID)
	if err != nil {
		return db.Export{}, pkgerr.Wrap(pkgerr.CategoryInternal, "locking run row", err)
	}
	if r.Status != db.RunStatusReadyForReview {
		return db.Export{}, pkgerr.New(pkgerr.CategoryConflict, "run is not ready_for_review")
	}

	exp, err := q.CreateExport(ctx, db.CreateExportParams{RunID: runID})
	if err != nil {
		return db.Export{}, pkgerr.Wrap(pkgerr.CategoryInternal, "creating export row", err)
	}
	if err := q.UpdateRunStatus(ctx, db.UpdateRunStatusParams{ID: runID, Status: db.RunStatusExporting}); err != nil {
		return db.Export{}, pkgerr.Wrap(pkgerr.CategoryInternal, "advancing run to exporting", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.Export{}, pkgerr.Wrap(pkgerr.CategoryInternal, "committing export transaction", err)
	}
	return exp, nil
}

// createIssueWithRetry wraps Tracker.CreateIssue in the shared backoff
// policy, stopping immediately on a permanent TrackerError.
func (o *Orchestrator) createIssueWithRetry(ctx context.Context, params CreateIssueParams) (Issue, error) {
	op := func() (Issue, error) {
		issue, err := o.tracker.CreateIssue(ctx, params)
		if err != nil {
			var te *TrackerError
			if errors.As(err, &te) && !te.Retryable() {
				return Issue{}, backoff.Permanent(err)
			}
			return Issue{}, err
		}
		return issue, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(exponentialBackOff()),
		backoff.WithMaxTries(backoffMaxAttempts),
	)
}

func exponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffBase
	b.Multiplier = backoffFactor
	b.MaxElapsedTime = 0 // bounded by WithMaxTries, not elapsed time
	return b
}

// completeExport writes the downstream key and advances the Run to
// exported atomically (spec.md §4.6 idempotency note: "the orchestrator
// records the downstream key in the same transaction that advances the Run
// to exported").
func (o *Orchestrator) completeExport(ctx context.Context, exportID, runID uuid.UUID, issue Issue) error {
	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "beginning export-complete transaction", err)
	}
	defer tx.Rollback(ctx)

	q := db.New(tx)
	if err := q.CompleteExport(ctx, db.CompleteExportParams{ID: exportID, DownstreamIssueKey: issue.Key, DownstreamIssueURL: issue.URL}); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "completing export", err)
	}
	if err := q.UpdateRunStatus(ctx, db.UpdateRunStatusParams{ID: runID, Status: db.RunStatusExported}); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryInternal, "advancing run to exported", err)
	}

	return pkgerr.Wrap(pkgerr.CategoryInternal, "committing export-complete transaction", tx.Commit(ctx))
}

func (o *Orchestrator) failExport(ctx context.Context, exportID, runID uuid.UUID, cause error) {
	code := string(pkgerr.CategoryOf(cause))
	if err := db.New(o.pool).FailExport(ctx, db.FailExportParams{ID: exportID, ErrorCode: code, ErrorMessage: cause.Error()}); err != nil {
		o.logger.Error("failing export row", "error", err, "export_id", exportID)
	}
	if err := db.New(o.pool).UpdateRunStatus(ctx, db.UpdateRunStatusParams{ID: runID, Status: db.RunStatusFailed}); err != nil {
		o.logger.Error("marking run failed after export failure", "error", err, "run_id", runID)
	}

	r, err := db.New(o.pool).GetRun(ctx, runID)
	if err == nil {
		o.logAudit(r.TenantID, &runID, audit.EventExportFailed, map[string]any{"error_code": code})
	}
}

// attachAssets uploads every completed asset independently, per spec.md
// §4.8 "Asset attachment": each post is retried on its own, and a failure
// never reverts the already-successful issue creation.
func (o *Orchestrator) attachAssets(ctx context.Context, runID uuid.UUID, issueKey string) []AttachResult {
	assets, err := db.New(o.pool).ListRunAssets(ctx, runID)
	if err != nil {
		o.logger.Error("listing run assets for attachment", "error", err, "run_id", runID)
		return nil
	}

	var results []AttachResult
	for _, a := range assets {
		if a.Status != db.AssetStatusCompleted || a.StorageRef == nil {
			continue
		}

		data, err := o.blobs.Get(ctx, *a.StorageRef)
		if err != nil {
			results = append(results, AttachResult{AssetID: a.ID, Filename: a.Filename, Attached: false, Error: err.Error()})
			continue
		}

		op := func() (Attachment, error) {
			att, err := o.tracker.Attach(ctx, issueKey, a.Filename, data)
			if err != nil {
				var te *TrackerError
				if errors.As(err, &te) && !te.Retryable() {
					return Attachment{}, backoff.Permanent(err)
				}
				return Attachment{}, err
			}
			return att, nil
		}

		_, attachErr := backoff.Retry(ctx, op,
			backoff.WithBackOff(exponentialBackOff()),
			backoff.WithMaxTries(backoffMaxAttempts),
		)
		if attachErr != nil {
			results = append(results, AttachResult{AssetID: a.ID, Filename: a.Filename, Attached: false, Error: attachErr.Error()})
			continue
		}
		results = append(results, AttachResult{AssetID: a.ID, Filename: a.Filename, Attached: true})
	}
	return results
}

// notifyFireAndForget posts the escalation notice. Failure is logged as
// audit notify_failed and never returned to the caller (spec.md §4.8 step
// 5).
func (o *Orchestrator) notifyFireAndForget(ctx context.Context, tenantID uuid.UUID, runID, exportID uuid.UUID, issue Issue) {
	ref, err := o.notifier.Post(ctx, NotificationPayload{Text: fmt.Sprintf("New escalation: %s", issue.Key)})
	if err != nil {
		o.logger.Warn("notifier post failed", "error", err, "run_id", runID)
		o.logAudit(tenantID, &runID, audit.EventNotifyFailed, map[string]any{"error": err.Error()})
		return
	}
	if err := db.New(o.pool).SetExportNotifierRef(ctx, exportID, ref); err != nil {
		o.logger.Error("recording notifier ref", "error", err, "export_id", exportID)
	}
}

func (o *Orchestrator) logAudit(tenantID uuid.UUID, runID *uuid.UUID, eventType string, meta map[string]any) {
	if o.audit == nil {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		o.logger.Error("marshaling audit meta", "error", err)
		return
	}
	o.audit.Log(audit.Entry{TenantID: tenantID, RunID: runID, EventType: eventType, Meta: raw})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
