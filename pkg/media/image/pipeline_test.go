package image

import (
	"bytes"
	"context"
	stdimage "image"
	"image/color"
	"image/png"
	"testing"

	"github.com/frozosec/escalatesafe/pkg/redaction"
)

type fakeEngine struct {
	name  string
	words []Word
	err   error
}

func (f fakeEngine) Name() string { return f.name }
func (f fakeEngine) Recognize(context.Context, []byte) ([]Word, error) {
	return f.words, f.err
}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessMasksDetectedEmailBox(t *testing.T) {
	raw := solidPNG(t, 100, 100)
	primary := fakeEngine{name: "local", words: []Word{
		{Text: "contact", Box: Box{L: 0, T: 0, W: 40, H: 10}, Confidence: 90},
		{Text: "a@b.com", Box: Box{L: 45, T: 0, W: 40, H: 10}, Confidence: 90},
	}}

	pipeline := NewPipeline(primary, nil, redaction.NewDetector(nil, nil), MaskSolid, nil)
	result, err := pipeline.Process(context.Background(), raw, redaction.DefaultPolicy())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.Meta.PIICount != 1 {
		t.Fatalf("PIICount = %d, want 1", result.Meta.PIICount)
	}
	if result.Meta.MaskedRegions != 1 {
		t.Fatalf("MaskedRegions = %d, want 1", result.Meta.MaskedRegions)
	}
	if len(result.SanitizedPNG) == 0 {
		t.Fatalf("expected sanitized PNG bytes")
	}
}

func TestProcessFallsBackOnPrimaryOCRFailure(t *testing.T) {
	raw := solidPNG(t, 50, 50)
	primary := fakeEngine{name: "local", err: errBoom}
	fallback := fakeEngine{name: "cloud", words: []Word{
		{Text: "hello", Box: Box{L: 0, T: 0, W: 10, H: 10}, Confidence: 90},
	}}

	pipeline := NewPipeline(primary, fallback, redaction.NewDetector(nil, nil), MaskSolid, nil)
	result, err := pipeline.Process(context.Background(), raw, redaction.DefaultPolicy())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Meta.OCREngine != "cloud" {
		t.Fatalf("OCREngine = %q, want cloud", result.Meta.OCREngine)
	}
}

func TestProcessFailsWhenBothEnginesFail(t *testing.T) {
	raw := solidPNG(t, 50, 50)
	primary := fakeEngine{name: "local", err: errBoom}
	fallback := fakeEngine{name: "cloud", err: errBoom}

	pipeline := NewPipeline(primary, fallback, redaction.NewDetector(nil, nil), MaskSolid, nil)
	if _, err := pipeline.Process(context.Background(), raw, redaction.DefaultPolicy()); err == nil {
		t.Fatalf("expected error when both OCR engines fail")
	}
}

func TestFilterLowConfidenceDropsBelowThreshold(t *testing.T) {
	words := []Word{
		{Text: "keep", Confidence: 30},
		{Text: "drop", Confidence: 29.9},
	}
	filtered := filterLowConfidence(words)
	if len(filtered) != 1 || filtered[0].Text != "keep" {
		t.Fatalf("filterLowConfidence = %+v", filtered)
	}
}

func TestBoxPadClampsToBounds(t *testing.T) {
	b := Box{L: 2, T: 2, W: 4, H: 4}
	padded := b.Pad(5, 10, 10)
	if padded.L != 0 || padded.T != 0 {
		t.Fatalf("expected clamp to 0,0, got %+v", padded)
	}
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }
