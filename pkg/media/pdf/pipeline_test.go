package pdf

import (
	"bytes"
	"context"
	stdimage "image"
	"image/color"
	"image/png"
	"testing"

	"github.com/jung-kurt/gofpdf"

	escimage "github.com/frozosec/escalatesafe/pkg/media/image"
	"github.com/frozosec/escalatesafe/pkg/redaction"
)

func textLayerFixture(t *testing.T, body string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Arial", "", 11)
	doc.AddPage()
	doc.MultiCell(0, 6, body, "", "", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("building fixture pdf: %v", err)
	}
	return buf.Bytes()
}

func blankPNGFixture(t *testing.T, w, h int) []byte {
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

func TestProcessTextLayerRedactsAndVerifies(t *testing.T) {
	padding := "Lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore."
	raw := textLayerFixture(t, padding+" Contact me at a@b.com for details.")

	p := NewPipeline(redaction.NewDetector(nil, nil), nil, nil, DefaultLimits(), nil)
	result, err := p.Process(context.Background(), raw, redaction.DefaultPolicy())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.Meta.Method != MethodNative {
		t.Fatalf("Method = %q, want %q", result.Meta.Method, MethodNative)
	}
	if result.Meta.PIICount < 1 {
		t.Fatalf("PIICount = %d, want >= 1", result.Meta.PIICount)
	}
	if !result.Verification.Passed {
		t.Fatalf("expected verification to pass, residuals=%v", result.Verification.Residuals)
	}
	if len(result.SanitizedPDF) == 0 {
		t.Fatalf("expected sanitized pdf bytes")
	}
}

func TestProcessEnforcesSizeLimit(t *testing.T) {
	raw := textLayerFixture(t, "short document")

	p := NewPipeline(redaction.NewDetector(nil, nil), nil, nil, Limits{MaxPages: 10, MaxSizeMB: 0}, nil)
	_, err := p.Process(context.Background(), raw, redaction.DefaultPolicy())
	if err == nil {
		t.Fatalf("expected a limit error")
	}
	var limitErr *LimitError
	if !asLimitError(err, &limitErr) {
		t.Fatalf("expected *LimitError, got %T: %v", err, err)
	}
}

func TestProcessEnforcesPageLimit(t *testing.T) {
	raw := textLayerFixture(t, "short document")

	p := NewPipeline(redaction.NewDetector(nil, nil), nil, nil, Limits{MaxPages: 0, MaxSizeMB: 10}, nil)
	_, err := p.Process(context.Background(), raw, redaction.DefaultPolicy())
	if err == nil {
		t.Fatalf("expected a limit error")
	}
	var limitErr *LimitError
	if !asLimitError(err, &limitErr) {
		t.Fatalf("expected *LimitError, got %T: %v", err, err)
	}
}

func asLimitError(err error, target **LimitError) bool {
	le, ok := err.(*LimitError)
	if !ok {
		return false
	}
	*target = le
	return true
}

type fakeRenderer struct {
	png []byte
	err error
}

func (f fakeRenderer) RenderPage(context.Context, []byte, int, int) ([]byte, error) {
	return f.png, f.err
}

type fakeOCREngine struct {
	name  string
	words []escimage.Word
	err   error
}

func (f fakeOCREngine) Name() string { return f.name }
func (f fakeOCREngine) Recognize(context.Context, []byte) ([]escimage.Word, error) {
	return f.words, f.err
}

func TestProcessScannedRedactsAndVerifies(t *testing.T) {
	// A page with no extractable text layer is classified as scanned.
	rendered := blankPNGFixture(t, 200, 60)
	engine := fakeOCREngine{name: "local", words: []escimage.Word{
		{Text: "email", Box: escimage.Box{L: 0, T: 0, W: 40, H: 10}, Confidence: 90},
		{Text: "a@b.com", Box: escimage.Box{L: 45, T: 0, W: 40, H: 10}, Confidence: 90},
	}}
	imgPipeline := escimage.NewPipeline(engine, nil, redaction.NewDetector(nil, nil), escimage.MaskSolid, nil)
	renderer := fakeRenderer{png: rendered}

	p := NewPipeline(redaction.NewDetector(nil, nil), imgPipeline, renderer, DefaultLimits(), nil)

	// classify() needs an actual PDF for extractText/checkLimits; build one
	// whose text layer is too short to be classified as text-layer.
	scannedLookingPDF := textLayerFixture(t, "x")

	result, err := p.Process(context.Background(), scannedLookingPDF, redaction.DefaultPolicy())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Meta.Method != MethodRasterRebuild {
		t.Fatalf("Method = %q, want %q", result.Meta.Method, MethodRasterRebuild)
	}
	if result.Meta.PIICount != 1 {
		t.Fatalf("PIICount = %d, want 1", result.Meta.PIICount)
	}
}

func TestProcessScannedFailsWithoutRenderer(t *testing.T) {
	p := NewPipeline(redaction.NewDetector(nil, nil), nil, nil, DefaultLimits(), nil)
	scannedLookingPDF := textLayerFixture(t, "x")

	if _, err := p.Process(context.Background(), scannedLookingPDF, redaction.DefaultPolicy()); err == nil {
		t.Fatalf("expected error for unconfigured scanned-path support")
	}
}
