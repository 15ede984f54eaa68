// Package ingest implements the ticket-assembly step that sits ahead of
// C1/C2: fetch a ticket and its comments from the upstream ticketing
// service, assemble one deduplicated text body, run it through the
// detector/redactor, and hand the run off to the run state machine and the
// asset worker queue. Grounded on
// original_source/api/routes/runs.py's create_run handler, the one place
// the Python app combines description + comments ahead of detection.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/frozosec/escalatesafe/internal/db"
	"github.com/frozosec/escalatesafe/internal/pkgerr"
	"github.com/frozosec/escalatesafe/pkg/blobstore"
	"github.com/frozosec/escalatesafe/pkg/queue"
	"github.com/frozosec/escalatesafe/pkg/redaction"
	"github.com/frozosec/escalatesafe/pkg/run"
	"github.com/frozosec/escalatesafe/pkg/tenantconfig"
	"github.com/frozosec/escalatesafe/pkg/upstream"
)

// descriptionDedupeMinLen is the length past which a description is
// considered specific enough that a comment containing it verbatim is
// almost certainly a quoted duplicate rather than new information
// (original_source/api/routes/runs.py: "len(description_normalized) > 50").
const descriptionDedupeMinLen = 50

// Options captures the per-run ticket-assembly choices spec.md's Run
// options carries (last N public comments, internal-notes opt-in).
type Options struct {
	IncludeInternalNotes bool `json:"include_internal_notes"`
	LastNPublicComments  int  `json:"last_n_public_comments"`
}

// Report is the Run.redaction_report payload (spec.md §3): the detector's
// findings plus the redactor's per-kind counts, enough for the diff preview
// without re-running detection.
type Report struct {
	Spans         []redaction.Span `json:"spans"`
	LowConfidence []redaction.Span `json:"low_confidence"`
	Warning       string           `json:"warning,omitempty"`
	CountsByKind  map[string]int   `json:"counts_by_kind"`
	Segments      []redaction.Segment `json:"segments"`
}

// Service drives ticket assembly and run creation (spec.md §4 Upstream +
// C1 + C2, wired together).
type Service struct {
	runs      *run.Service
	tenantCfg *tenantconfig.Service
	upstream  upstream.Client
	blobs     blobstore.Store
	queue     *queue.Queue
	dbtx      db.DBTX
	detector  *redaction.Detector
	logger    *slog.Logger
}

// NewService builds a Service.
func NewService(runs *run.Service, tenantCfg *tenantconfig.Service, upstreamClient upstream.Client, blobs blobstore.Store, q *queue.Queue, dbtx db.DBTX, detector *redaction.Detector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runs:      runs,
		tenantCfg: tenantCfg,
		upstream:  upstreamClient,
		blobs:     blobs,
		queue:     q,
		dbtx:      dbtx,
		detector:  detector,
		logger:    logger,
	}
}

// Ingest fetches ticketID from the upstream service, sanitizes its text
// body, and creates a Run carrying the result. Attachments are queued for
// the worker tier and do not block the text diff from reaching
// ready_for_review (spec.md §4.6: sanitization completion is a text-level
// gate; per-asset status is tracked independently on RunAsset).
func (s *Service) Ingest(ctx context.Context, tenantID uuid.UUID, ticketID string, opts Options) (db.Run, error) {
	cfg, err := s.tenantCfg.Load(ctx, tenantID)
	if err != nil {
		return db.Run{}, err
	}
	policy := cfg.RedactionPolicy.RedactionPolicy()

	// Internal-notes opt-in gate (spec.md §4.6, §8 Scenario 6;
	// original_source/api/routes/runs.py:114-120): reject before any Run
	// row exists, not after.
	if opts.IncludeInternalNotes && !cfg.RedactionPolicy.AllowInternalNotes {
		return db.Run{}, pkgerr.New(pkgerr.CategoryValidation,
			"internal notes not enabled for this tenant")
	}

	ticket, err := s.upstream.GetTicket(ctx, ticketID)
	if err != nil {
		return db.Run{}, pkgerr.Wrap(pkgerr.CategoryUpstream, "fetching ticket", err)
	}
	comments, err := s.upstream.ListComments(ctx, ticketID, opts.IncludeInternalNotes, opts.LastNPublicComments)
	if err != nil {
		return db.Run{}, pkgerr.Wrap(pkgerr.CategoryUpstream, "fetching ticket comments", err)
	}

	text := assembleText(ticket, comments)

	optionsRaw, err := json.Marshal(opts)
	if err != nil {
		return db.Run{}, pkgerr.Wrap(pkgerr.CategoryInternal, "marshaling run options", err)
	}

	r, err := s.runs.Create(ctx, tenantID, ticketID, optionsRaw)
	if err != nil {
		return db.Run{}, err
	}

	result := s.detector.Analyze(text, policy)
	redacted := redaction.Redact(text, result.Spans, policy)

	report := Report{
		Spans:         result.Spans,
		LowConfidence: result.LowConfidence,
		Warning:       result.Warning,
		Segments:      redacted.Segments,
		CountsByKind:  countsByKindName(redacted.CountsByKind),
	}
	reportRaw, err := json.Marshal(report)
	if err != nil {
		return db.Run{}, pkgerr.Wrap(pkgerr.CategoryInternal, "marshaling redaction report", err)
	}

	if err := s.runs.CompleteSanitization(ctx, r.ID, []byte(redacted.RedactedText), reportRaw); err != nil {
		if failErr := s.runs.Fail(ctx, r.ID, err.Error()); failErr != nil {
			s.logger.Error("failing run after sanitization error", "error", failErr, "run_id", r.ID)
		}
		return db.Run{}, err
	}

	if err := s.enqueueAttachments(ctx, r.ID, ticketID); err != nil {
		s.logger.Error("queuing run attachments", "error", err, "run_id", r.ID)
	}

	return s.runs.Get(ctx, r.ID)
}

// enqueueAttachments lists ticketID's attachments, persists their original
// bytes, and publishes one asset task per attachment. A failure here is
// logged, not fatal to Ingest: the text diff is already usable without the
// media pipeline.
func (s *Service) enqueueAttachments(ctx context.Context, runID uuid.UUID, ticketID string) error {
	attachments, err := s.upstream.ListAttachments(ctx, ticketID)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryUpstream, "listing ticket attachments", err)
	}

	q := db.New(s.dbtx)
	for _, a := range attachments {
		kind, ok := classifyAssetKind(a.ContentType)
		if !ok {
			s.logger.Info("skipping attachment with unsupported mime type", "mime", a.ContentType, "filename", a.Filename)
			continue
		}

		asset, err := q.CreateRunAsset(ctx, db.CreateRunAssetParams{RunID: runID, Kind: kind, Filename: a.Filename, Mime: a.ContentType})
		if err != nil {
			return pkgerr.Wrap(pkgerr.CategoryInternal, "creating run asset", err)
		}

		data, err := s.upstream.FetchAttachment(ctx, a.ContentURL)
		if err != nil {
			s.failAsset(ctx, asset.ID, "fetching attachment: "+err.Error())
			continue
		}

		ref, err := s.blobs.PutOriginal(ctx, runID, asset.Filename, data)
		if err != nil {
			s.failAsset(ctx, asset.ID, "storing original: "+err.Error())
			continue
		}

		task := queue.AssetTask{AssetID: asset.ID, RunID: runID, OriginalRef: ref, Kind: string(kind), Filename: asset.Filename, Mime: asset.Mime}
		if err := s.queue.Enqueue(ctx, task); err != nil {
			s.failAsset(ctx, asset.ID, "enqueuing asset task: "+err.Error())
		}
	}
	return nil
}

func (s *Service) failAsset(ctx context.Context, assetID uuid.UUID, reason string) {
	meta, _ := json.Marshal(map[string]string{"reason": reason})
	if err := db.New(s.dbtx).FailRunAsset(ctx, db.FailRunAssetParams{ID: assetID, Meta: meta}); err != nil {
		s.logger.Error("marking asset failed", "error", err, "asset_id", assetID)
	}
}

// assembleText combines the ticket description and comments into one body
// for detection, applying the description-dedup heuristic
// (original_source/api/routes/runs.py): an empty comment, or one identical
// to the normalized description, is always skipped; a comment containing
// the normalized description is skipped as a quoted duplicate only once the
// description is longer than descriptionDedupeMinLen, so a coincidental
// short match does not drop it.
func assembleText(ticket upstream.Ticket, comments []upstream.Comment) string {
	text := ticket.Description
	descriptionNormalized := strings.ToLower(strings.TrimSpace(ticket.Description))

	for _, c := range comments {
		body := strings.TrimSpace(c.Body)
		normalized := strings.ToLower(body)
		if normalized == "" || normalized == descriptionNormalized {
			continue
		}
		if len(descriptionNormalized) > descriptionDedupeMinLen && strings.Contains(normalized, descriptionNormalized) {
			continue
		}
		text += "\n\n" + body
	}
	return text
}

func countsByKindName(counts map[redaction.Kind]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return out
}

// classifyAssetKind maps an attachment's content type to an AssetKind,
// reporting false for types the media pipeline does not handle (spec.md
// §4 Non-goals: unsupported attachment types are skipped, not failed).
func classifyAssetKind(contentType string) (db.AssetKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return db.AssetKindRedactedImage, true
	case contentType == "application/pdf":
		return db.AssetKindRedactedPDF, true
	default:
		return "", false
	}
}
