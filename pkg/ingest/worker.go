package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/frozosec/escalatesafe/internal/db"
	"github.com/frozosec/escalatesafe/pkg/audit"
	"github.com/frozosec/escalatesafe/pkg/blobstore"
	"github.com/frozosec/escalatesafe/pkg/media/image"
	"github.com/frozosec/escalatesafe/pkg/media/pdf"
	"github.com/frozosec/escalatesafe/pkg/queue"
	"github.com/frozosec/escalatesafe/pkg/redaction"
	"github.com/frozosec/escalatesafe/pkg/run"
	"github.com/frozosec/escalatesafe/pkg/tenantconfig"
	"github.com/frozosec/escalatesafe/pkg/verify"
)

const (
	dequeueBlock         = 5 * time.Second
	staleReclaimInterval = time.Minute
)

// Worker is the asset-pipeline consumer side of the worker tier (spec.md
// §5): it dequeues AssetTasks, runs the image or PDF pipeline against the
// stored original bytes, and records the outcome on the RunAsset row.
// Grounded on wisbric-nightowl/pkg/escalation.Engine's poll-and-dispatch
// loop shape, generalized from escalation scheduling to asset processing.
type Worker struct {
	queue         *queue.Queue
	dbtx          db.DBTX
	rdb           *redis.Client
	blobs         blobstore.Store
	tenantCfg     *tenantconfig.Service
	imagePipeline *image.Pipeline
	pdfPipeline   *pdf.Pipeline
	audit         *audit.Writer
	logger        *slog.Logger
	tasksTotal    *prometheus.CounterVec
}

// NewWorker builds a Worker. tasksTotal may be nil to skip metrics. rdb is
// used only to poll the cancellation tombstone pkg/run publishes on Cancel
// (spec.md §5); it may be nil, in which case cancellation mid-pipeline is
// never observed.
func NewWorker(q *queue.Queue, dbtx db.DBTX, rdb *redis.Client, blobs blobstore.Store, tenantCfg *tenantconfig.Service, imagePipeline *image.Pipeline, pdfPipeline *pdf.Pipeline, auditWriter *audit.Writer, logger *slog.Logger, tasksTotal *prometheus.CounterVec) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:         q,
		dbtx:          dbtx,
		rdb:           rdb,
		blobs:         blobs,
		tenantCfg:     tenantCfg,
		imagePipeline: imagePipeline,
		pdfPipeline:   pdfPipeline,
		audit:         auditWriter,
		logger:        logger,
		tasksTotal:    tasksTotal,
	}
}

// checkCancelled reports whether runID has been cancelled, failing the
// asset with reason "cancelled" and returning true if so. Called after the
// asset is claimed, after the media pipeline's Process returns (one check
// covering OCR and detection together), and before upload in completeAsset.
func (w *Worker) checkCancelled(ctx context.Context, tenantID uuid.UUID, asset db.RunAsset) bool {
	cancelled, err := run.IsCancelled(ctx, w.rdb, asset.RunID)
	if err != nil {
		w.logger.Error("checking cancellation tombstone", "error", err, "asset_id", asset.ID)
		return false
	}
	if !cancelled {
		return false
	}
	w.failAsset(ctx, tenantID, asset.ID, "cancelled")
	return true
}

// Run blocks, dequeuing and processing asset tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(staleReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.reclaimStale(ctx)
		default:
		}

		delivery, err := w.queue.Dequeue(ctx, dequeueBlock)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			w.logger.Error("dequeuing asset task", "error", err)
			continue
		}
		if delivery == nil {
			continue
		}
		w.process(ctx, *delivery)
	}
}

func (w *Worker) reclaimStale(ctx context.Context) {
	deliveries, err := w.queue.ReclaimStale(ctx)
	if err != nil {
		w.logger.Error("reclaiming stale asset tasks", "error", err)
		return
	}
	for _, d := range deliveries {
		w.process(ctx, d)
	}
}

// process handles one asset task end to end: claim, fetch, sanitize,
// verify, record, acknowledge. The delivery is always acked — a poison
// task that fails every time would otherwise spin forever under
// at-least-once redelivery; processing failures are recorded as a failed
// or blocked RunAsset instead of left pending.
func (w *Worker) process(ctx context.Context, d queue.Delivery) {
	defer func() {
		if err := w.queue.Ack(ctx, d); err != nil {
			w.logger.Error("acking asset task", "error", err, "asset_id", d.Task.AssetID)
		}
	}()

	task := d.Task
	q := db.New(w.dbtx)

	asset, err := q.ClaimRunAsset(ctx, task.AssetID)
	if err != nil {
		// Already claimed by another consumer, or not pending (duplicate
		// delivery under at-least-once semantics) — nothing to do.
		return
	}

	if w.checkCancelled(ctx, uuid.Nil, asset) {
		return
	}

	run, err := q.GetRun(ctx, task.RunID)
	if err != nil {
		w.logger.Error("fetching run for asset task", "error", err, "run_id", task.RunID)
		w.failAsset(ctx, uuid.Nil, asset.ID, "fetching run: "+err.Error())
		return
	}
	if run.Status == db.RunStatusCancelled {
		w.failAsset(ctx, run.TenantID, asset.ID, "cancelled")
		return
	}

	cfg, err := w.tenantCfg.Load(ctx, run.TenantID)
	if err != nil {
		w.failAsset(ctx, run.TenantID, asset.ID, "loading tenant config: "+err.Error())
		return
	}
	policy := cfg.RedactionPolicy.RedactionPolicy()

	raw, err := w.blobs.Get(ctx, task.OriginalRef)
	if err != nil {
		w.failAsset(ctx, run.TenantID, asset.ID, "fetching original bytes: "+err.Error())
		return
	}

	switch asset.Kind {
	case db.AssetKindRedactedImage:
		w.processImage(ctx, run.TenantID, asset, raw, policy)
	case db.AssetKindRedactedPDF:
		w.processPDF(ctx, run.TenantID, asset, raw, policy)
	default:
		w.failAsset(ctx, run.TenantID, asset.ID, "unsupported asset kind: "+string(asset.Kind))
	}
}

func (w *Worker) processImage(ctx context.Context, tenantID uuid.UUID, asset db.RunAsset, raw []byte, policy redaction.Policy) {
	result, err := w.imagePipeline.Process(ctx, raw, policy)
	if err != nil {
		w.failAsset(ctx, tenantID, asset.ID, "image pipeline: "+err.Error())
		return
	}
	if w.checkCancelled(ctx, tenantID, asset) {
		return
	}
	if !result.Verification.Passed {
		w.blockAsset(ctx, tenantID, asset, result.Verification)
		return
	}

	meta, err := json.Marshal(result.Meta)
	if err != nil {
		w.failAsset(ctx, tenantID, asset.ID, "marshaling image meta: "+err.Error())
		return
	}
	w.completeAsset(ctx, tenantID, asset, result.SanitizedPNG, meta)
}

func (w *Worker) processPDF(ctx context.Context, tenantID uuid.UUID, asset db.RunAsset, raw []byte, policy redaction.Policy) {
	result, err := w.pdfPipeline.Process(ctx, raw, policy)
	if err != nil {
		var limitErr *pdf.LimitError
		if errors.As(err, &limitErr) {
			w.failAsset(ctx, tenantID, asset.ID, limitErr.Error())
			return
		}
		w.failAsset(ctx, tenantID, asset.ID, "pdf pipeline: "+err.Error())
		return
	}
	if w.checkCancelled(ctx, tenantID, asset) {
		return
	}
	if !result.Verification.Passed {
		w.blockAsset(ctx, tenantID, asset, result.Verification)
		return
	}

	meta, err := json.Marshal(result.Meta)
	if err != nil {
		w.failAsset(ctx, tenantID, asset.ID, "marshaling pdf meta: "+err.Error())
		return
	}
	w.completeAsset(ctx, tenantID, asset, result.SanitizedPDF, meta)
}

func (w *Worker) completeAsset(ctx context.Context, tenantID uuid.UUID, asset db.RunAsset, sanitized []byte, meta json.RawMessage) {
	if w.checkCancelled(ctx, tenantID, asset) {
		return
	}

	ref, checksum, err := w.blobs.Put(ctx, asset.RunID, asset.Filename, sanitized)
	if err != nil {
		w.failAsset(ctx, tenantID, asset.ID, "storing sanitized asset: "+err.Error())
		return
	}

	err = db.New(w.dbtx).CompleteRunAsset(ctx, db.CompleteRunAssetParams{ID: asset.ID, StorageRef: ref, Checksum: checksum, Meta: meta})
	if err != nil {
		w.logger.Error("completing run asset", "error", err, "asset_id", asset.ID)
		return
	}
	w.countTask(string(asset.Kind), "completed")
	w.logAudit(tenantID, asset, audit.EventAssetCompleted, map[string]any{"checksum": checksum})
}

func (w *Worker) blockAsset(ctx context.Context, tenantID uuid.UUID, asset db.RunAsset, verification verify.Result) {
	meta, _ := json.Marshal(map[string]any{"residual_count": len(verification.Residuals)})
	if err := db.New(w.dbtx).BlockRunAsset(ctx, db.BlockRunAssetParams{ID: asset.ID, Meta: meta}); err != nil {
		w.logger.Error("blocking run asset", "error", err, "asset_id", asset.ID)
		return
	}
	w.countTask(string(asset.Kind), "blocked")
	w.logAudit(tenantID, asset, audit.EventAssetBlocked, map[string]any{"residual_count": len(verification.Residuals)})
}

func (w *Worker) failAsset(ctx context.Context, tenantID uuid.UUID, assetID uuid.UUID, reason string) {
	meta, _ := json.Marshal(map[string]string{"reason": reason})
	if err := db.New(w.dbtx).FailRunAsset(ctx, db.FailRunAssetParams{ID: assetID, Meta: meta}); err != nil {
		w.logger.Error("failing run asset", "error", err, "asset_id", assetID)
	}
	w.countTask("unknown", "failed")
	if w.audit != nil {
		w.audit.Log(audit.Entry{TenantID: tenantID, EventType: audit.EventAssetFailed, Meta: meta})
	}
}

func (w *Worker) countTask(kind, outcome string) {
	if w.tasksTotal == nil {
		return
	}
	w.tasksTotal.WithLabelValues(kind, outcome).Inc()
}

func (w *Worker) logAudit(tenantID uuid.UUID, asset db.RunAsset, eventType string, extra map[string]any) {
	if w.audit == nil {
		return
	}
	extra["asset_id"] = asset.ID.String()
	extra["filename"] = asset.Filename
	meta, err := json.Marshal(extra)
	if err != nil {
		w.logger.Error("marshaling audit meta", "error", err)
		return
	}
	runID := asset.RunID
	w.audit.Log(audit.Entry{TenantID: tenantID, RunID: &runID, EventType: eventType, Meta: meta})
}
