// Package app wires together every component built in pkg/ and internal/
// into the two runtime modes spec.md's worker tier and control plane need:
// "api" (the ambient HTTP shell health/ready/metrics endpoints live behind)
// and "worker" (the asset-pipeline consumer). Grounded on
// wisbric-nightowl/internal/app/app.go's Run/runAPI/runWorker split, with
// the teacher's session/OIDC/PAT auth stack, Slack/Mattermost provider
// registry, and domain-handler mounting dropped: this spec has no human
// login surface and its domain routes (run ingest/approve, tenant config
// CRUD) are out of scope per spec.md §1.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/frozosec/escalatesafe/internal/config"
	"github.com/frozosec/escalatesafe/internal/httpserver"
	"github.com/frozosec/escalatesafe/internal/platform"
	"github.com/frozosec/escalatesafe/internal/telemetry"
	"github.com/frozosec/escalatesafe/internal/vault"
	"github.com/frozosec/escalatesafe/pkg/audit"
	"github.com/frozosec/escalatesafe/pkg/blobstore"
	"github.com/frozosec/escalatesafe/pkg/ingest"
	"github.com/frozosec/escalatesafe/pkg/media/image"
	"github.com/frozosec/escalatesafe/pkg/media/pdf"
	"github.com/frozosec/escalatesafe/pkg/queue"
	"github.com/frozosec/escalatesafe/pkg/redaction"
	"github.com/frozosec/escalatesafe/pkg/tenantconfig"
)

const serviceName = "escalatesafe"

// Run is the application entry point: it connects to infrastructure and
// starts the mode selected by cfg.Mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting escalatesafe", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	_, shutdownTracer, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, pool, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, pool, rdb, metricsReg)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// runAPI starts the ambient control-plane HTTP shell: health, readiness,
// and Prometheus metrics. Domain routes are out of scope per spec.md §1 —
// nothing is mounted on srv.APIRouter here.
func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	srv := httpserver.NewServer(httpserver.ServerConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger, pool, rdb, metricsReg)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runWorker starts the asset-pipeline consumer (spec.md §5 worker tier):
// dequeue AssetTasks, run the image/PDF pipelines, record the outcome.
// Ticket ingestion (pkg/ingest.Service.Ingest) is invoked by the out-of-
// scope domain HTTP routes, so it is exercised only by its own tests, not
// wired into either runtime mode here.
func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	v, err := vault.New(cfg.VaultKeyBase64, !cfg.IsProduction(), logger)
	if err != nil {
		return fmt.Errorf("initializing vault: %w", err)
	}

	detector := redaction.NewDetector(nil, logger)
	auditWriter := audit.NewWriter(pool, detector, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	tenantCfg := tenantconfig.NewService(pool, v)

	blobs, err := blobstore.NewFSStore(cfg.BlobStoreDir)
	if err != nil {
		return fmt.Errorf("initializing blob store: %w", err)
	}

	q, err := queue.New(ctx, rdb, cfg.WorkerID)
	if err != nil {
		return fmt.Errorf("initializing asset queue: %w", err)
	}

	var ocrFallback image.Engine
	if cfg.OCRCloudEndpoint != "" {
		ocrFallback = image.NewCloudEngine(cfg.OCRCloudEndpoint)
	}
	imgPipeline := image.NewPipeline(image.NewLocalEngine(cfg.OCRLocalEndpoint), ocrFallback, detector, image.MaskBlur, logger)

	// No PageRenderer implementation exists in this repository (see
	// DESIGN.md); scanned PDFs fail with an "OCR_FAILED" error that the
	// worker records as the asset's failure reason, instead of being
	// silently skipped.
	pdfPipeline := pdf.NewPipeline(detector, imgPipeline, nil, pdf.Limits{MaxPages: cfg.PDFMaxPages, MaxSizeMB: cfg.PDFMaxSizeMB}, logger)

	worker := ingest.NewWorker(q, pool, rdb, blobs, tenantCfg, imgPipeline, pdfPipeline, auditWriter, logger, telemetry.AssetTasksProcessedTotal)

	logger.Info("worker started")
	return worker.Run(ctx)
}
