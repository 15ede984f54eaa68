package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frozosec/escalatesafe/pkg/media/image"
	"github.com/frozosec/escalatesafe/pkg/redaction"
	"github.com/frozosec/escalatesafe/pkg/verify"
)

// ProcessResult is the outcome of Pipeline.Process.
type ProcessResult struct {
	SanitizedPDF []byte
	Meta         Meta
	Verification verify.Result
}

// Pipeline implements C4.
type Pipeline struct {
	detector    *redaction.Detector
	verifier    *verify.Verifier
	imgPipeline *image.Pipeline
	renderer    PageRenderer
	limits      Limits
	logger      *slog.Logger
}

// NewPipeline builds a PDF Pipeline. renderer may be nil if scanned-PDF
// support is not configured; Process then fails scanned documents with an
// error whose message starts with "OCR_FAILED" rather than panicking.
func NewPipeline(detector *redaction.Detector, imgPipeline *image.Pipeline, renderer PageRenderer, limits Limits, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		detector:    detector,
		verifier:    verify.NewVerifier(detector),
		imgPipeline: imgPipeline,
		renderer:    renderer,
		limits:      limits,
		logger:      logger,
	}
}

// Process runs the full C4 pipeline: classify, branch, verify.
func (p *Pipeline) Process(ctx context.Context, raw []byte, policy redaction.Policy) (ProcessResult, error) {
	extractedText, err := extractText(raw)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("extracting pdf text layer: %w", err)
	}

	pageCount := extractedText.pageCount()
	if err := checkLimits(raw, pageCount, p.limits); err != nil {
		return ProcessResult{}, err
	}

	if classify(extractedText) {
		return p.processTextLayer(extractedText, policy)
	}
	return p.processScanned(ctx, raw, pageCount, policy)
}

func (p *Pipeline) processTextLayer(extractedText extracted, policy redaction.Policy) (ProcessResult, error) {
	sanitized, piiCount, err := redactNative(extractedText.pages, p.detector, policy)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("native pdf redaction: %w", err)
	}

	reExtracted, err := extractText(sanitized)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("re-extracting sanitized pdf for verification: %w", err)
	}
	verification := p.verifier.VerifyText(reExtracted.joined(), policy)

	return ProcessResult{
		SanitizedPDF: sanitized,
		Meta:         Meta{Pages: extractedText.pageCount(), Method: MethodNative, PIICount: piiCount},
		Verification: verification,
	}, nil
}

func (p *Pipeline) processScanned(ctx context.Context, raw []byte, pageCount int, policy redaction.Policy) (ProcessResult, error) {
	if p.renderer == nil || p.imgPipeline == nil {
		return ProcessResult{}, errors.New("OCR_FAILED: scanned PDF support not configured (no page renderer)")
	}

	sanitized, piiCount, err := redactScanned(ctx, raw, pageCount, p.renderer, p.imgPipeline, policy)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("raster-rebuild pdf redaction: %w", err)
	}

	verification, err := p.verifyRaster(ctx, sanitized, pageCount, policy)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("verifying raster-rebuilt pdf: %w", err)
	}

	return ProcessResult{
		SanitizedPDF: sanitized,
		Meta:         Meta{Pages: pageCount, Method: MethodRasterRebuild, PIICount: piiCount},
		Verification: verification,
	}, nil
}

// verifyRaster re-renders and re-OCRs every page of the already-sanitized
// document — the independent second pass spec.md §4.5 requires, extended
// from a single image to a multi-page raster-rebuilt PDF.
func (p *Pipeline) verifyRaster(ctx context.Context, sanitized []byte, pageCount int, policy redaction.Policy) (verify.Result, error) {
	var allText strings.Builder

	for i := 0; i < pageCount; i++ {
		rendered, err := p.renderer.RenderPage(ctx, sanitized, i, scannedRenderDPI)
		if err != nil {
			return verify.Result{}, fmt.Errorf("rendering sanitized page %d: %w", i, err)
		}
		text, err := p.imgPipeline.ExtractText(ctx, rendered)
		if err != nil {
			return verify.Result{}, fmt.Errorf("re-ocr of sanitized page %d: %w", i, err)
		}
		if i > 0 {
			allText.WriteByte('\n')
		}
		allText.WriteString(text)
	}

	return p.verifier.VerifyText(allText.String(), policy), nil
}
