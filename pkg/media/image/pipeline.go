package image

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"strings"

	"github.com/frozosec/escalatesafe/pkg/redaction"
	"github.com/frozosec/escalatesafe/pkg/verify"
)

// Meta is the RunAsset.meta payload for a redacted_image asset (spec.md
// §4.3 Output).
type Meta struct {
	OCREngine     string `json:"ocr_engine"`
	WordCount     int    `json:"word_count"`
	PIICount      int    `json:"pii_count"`
	MaskedRegions int    `json:"masked_regions"`
}

// ProcessResult is the outcome of Pipeline.Process.
type ProcessResult struct {
	SanitizedPNG []byte
	Meta         Meta
	Verification verify.Result
}

// Pipeline implements C3.
type Pipeline struct {
	primary  Engine
	fallback Engine
	detector *redaction.Detector
	verifier *verify.Verifier
	logger   *slog.Logger
	maskMode MaskMode
}

// NewPipeline builds an image Pipeline. fallback may be nil if no
// cloud-OCR fallback is configured, in which case a primary-engine failure
// fails the asset rather than degrading gracefully.
func NewPipeline(primary, fallback Engine, detector *redaction.Detector, maskMode MaskMode, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if maskMode == "" {
		maskMode = MaskBlur
	}
	return &Pipeline{
		primary:  primary,
		fallback: fallback,
		detector: detector,
		verifier: verify.NewVerifier(detector),
		logger:   logger,
		maskMode: maskMode,
	}
}

// Process runs the full C3 pipeline over raw image bytes and hands the
// result off to the leak verifier (spec.md §4.3 step 10).
func (p *Pipeline) Process(ctx context.Context, raw []byte, policy redaction.Policy) (ProcessResult, error) {
	words, engineName, err := p.runOCR(ctx, raw)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("ocr: %w", err)
	}

	img, err := decodeToRGBA(raw)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("decoding image: %w", err)
	}

	surviving := filterLowConfidence(words)
	concat, annotated := concatenateWithRanges(surviving)

	detection := p.detector.Analyze(concat, policy)

	boxes := mapSpansToBoxes(detection.Spans, annotated)
	bounds := img.Bounds()
	maskedCount := 0
	for _, b := range boxes {
		padded := b.Pad(boxPadding, bounds.Dx(), bounds.Dy())
		applyMask(img, padded, p.maskMode)
		maskedCount++
	}

	sanitizedPNG, err := encodePNG(img)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("encoding sanitized png: %w", err)
	}

	verification, err := p.verifier.VerifyArtifact(ctx, sanitizedPNG, p, policy)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("leak verification: %w", err)
	}

	return ProcessResult{
		SanitizedPNG: sanitizedPNG,
		Meta: Meta{
			OCREngine:     engineName,
			WordCount:     len(surviving),
			PIICount:      len(detection.Spans),
			MaskedRegions: maskedCount,
		},
		Verification: verification,
	}, nil
}

// ExtractText implements verify.TextExtractor by re-running OCR on the
// already-sanitized artifact — the independent second OCR pass spec.md
// §4.5 requires for image leak verification.
func (p *Pipeline) ExtractText(ctx context.Context, artifact []byte) (string, error) {
	words, _, err := p.runOCR(ctx, artifact)
	if err != nil {
		return "", err
	}
	text, _ := concatenateWithRanges(filterLowConfidence(words))
	return text, nil
}

// runOCR prefers the primary engine, falling back to the secondary engine
// on failure (spec.md §4.3 step 3).
func (p *Pipeline) runOCR(ctx context.Context, raw []byte) ([]Word, string, error) {
	words, err := p.primary.Recognize(ctx, raw)
	if err == nil {
		return words, p.primary.Name(), nil
	}

	p.logger.Warn("primary OCR engine failed, falling back", "engine", p.primary.Name(), "error", err)

	if p.fallback == nil {
		return nil, "", fmt.Errorf("primary OCR engine %s failed and no fallback configured: %w", p.primary.Name(), err)
	}

	words, fallbackErr := p.fallback.Recognize(ctx, raw)
	if fallbackErr != nil {
		return nil, "", fmt.Errorf("primary OCR engine %s failed (%v), fallback %s also failed: %w", p.primary.Name(), err, p.fallback.Name(), fallbackErr)
	}
	return words, p.fallback.Name(), nil
}

func filterLowConfidence(words []Word) []Word {
	out := make([]Word, 0, len(words))
	for _, w := range words {
		if w.Confidence < minWordConfidence {
			continue
		}
		out = append(out, w)
	}
	return out
}

// concatenateWithRanges joins word text with single spaces and records
// each word's byte range in the concatenation (spec.md §4.3 step 4),
// returning words annotated with Start/End for the caller to intersect
// against detected spans.
func concatenateWithRanges(words []Word) (string, []Word) {
	var b strings.Builder
	annotated := make([]Word, len(words))

	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		start := b.Len()
		b.WriteString(w.Text)
		annotated[i] = w
		annotated[i].Start = start
		annotated[i].End = b.Len()
	}

	return b.String(), annotated
}

// mapSpansToBoxes maps each detected PII span back to OCR word boxes by
// intersecting the span's byte range against each word's recorded byte
// range — spec.md §4.3 step 6 explicitly requires range intersection
// instead of the source's substring-matching approximation, since
// substring matching misses a PII span that straddles a word boundary or
// matches text that also appears, coincidentally, inside an unrelated
// word.
func mapSpansToBoxes(spans []redaction.Span, words []Word) []Box {
	var boxes []Box
	for _, s := range spans {
		for _, w := range words {
			if s.Intersects(w.Start, w.End) {
				boxes = append(boxes, w.Box)
			}
		}
	}
	return boxes
}

func decodeToRGBA(raw []byte) (*stdimage.RGBA, error) {
	src, _, err := stdimage.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	rgba := stdimage.NewRGBA(src.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)
	return rgba, nil
}

func encodePNG(img stdimage.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
