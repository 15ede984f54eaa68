// Package verify implements the Leak Verifier (C5): an egress scan run
// independently of whichever pipeline produced an artifact, so a producer
// cannot shortcut it (spec.md §4.5).
package verify

import (
	"context"
	"fmt"

	"github.com/frozosec/escalatesafe/pkg/redaction"
)

// ArtifactKind identifies what kind of artifact is being verified, purely
// for logging/metrics labeling — the verification method itself is
// identical once text has been extracted.
type ArtifactKind string

const (
	ArtifactText  ArtifactKind = "text"
	ArtifactImage ArtifactKind = "image"
	ArtifactPDF   ArtifactKind = "pdf"
)

// TextExtractor re-extracts text from a produced artifact: the sanitized
// text itself for text artifacts, a second OCR pass for images, and the
// post-redaction text layer for PDFs (spec.md §4.5 Method). Each pipeline
// package supplies its own implementation.
type TextExtractor interface {
	ExtractText(ctx context.Context, artifact []byte) (string, error)
}

// Result is the outcome of Verify.
type Result struct {
	Passed    bool
	Residuals []redaction.Span
}

// Verifier re-scans artifacts with the same Detector used at ingress.
type Verifier struct {
	detector *redaction.Detector
}

// NewVerifier builds a Verifier around detector. Passing the same Detector
// instance used by the producing pipeline keeps the ingress and egress
// scans on an identical code path (spec.md §4.5).
func NewVerifier(detector *redaction.Detector) *Verifier {
	return &Verifier{detector: detector}
}

// VerifyText re-scans already-extracted text. Any surviving span of a kind
// enabled by policy causes Passed = false.
func (v *Verifier) VerifyText(text string, policy redaction.Policy) Result {
	result := v.detector.Analyze(text, policy)
	return Result{Passed: len(result.Spans) == 0, Residuals: result.Spans}
}

// VerifyArtifact extracts text from artifact via extractor, then scans it.
func (v *Verifier) VerifyArtifact(ctx context.Context, artifact []byte, extractor TextExtractor, policy redaction.Policy) (Result, error) {
	text, err := extractor.ExtractText(ctx, artifact)
	if err != nil {
		return Result{}, fmt.Errorf("extracting text for leak verification: %w", err)
	}
	return v.VerifyText(text, policy), nil
}
