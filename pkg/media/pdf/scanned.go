package pdf

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	_ "image/png"

	"github.com/jung-kurt/gofpdf"

	"github.com/frozosec/escalatesafe/pkg/media/image"
	"github.com/frozosec/escalatesafe/pkg/redaction"
)

// PageRenderer rasterizes one page of a PDF document to PNG bytes at the
// given DPI. No PDF rasterizer appeared in the example pack (see
// DESIGN.md); this is a pluggable seam over an external renderer (e.g. a
// poppler/mutool sidecar), the same shape as the OCR Engine seam in
// pkg/media/image.
type PageRenderer interface {
	RenderPage(ctx context.Context, raw []byte, pageIndex, dpi int) ([]byte, error)
}

// redactScanned implements the scanned path (spec.md §4.4 "Scanned path"):
// render each page at ≥150 DPI, run the Image Pipeline over the raster,
// and collect sanitized rasters into a new document in page order.
func redactScanned(ctx context.Context, raw []byte, pageCount int, renderer PageRenderer, imgPipeline *image.Pipeline, policy redaction.Policy) ([]byte, int, error) {
	doc := gofpdf.New("P", "pt", "A4", "")

	piiCount := 0
	for i := 0; i < pageCount; i++ {
		rendered, err := renderer.RenderPage(ctx, raw, i, scannedRenderDPI)
		if err != nil {
			return nil, 0, fmt.Errorf("rendering page %d at %d dpi: %w", i, scannedRenderDPI, err)
		}

		result, err := imgPipeline.Process(ctx, rendered, policy)
		if err != nil {
			return nil, 0, fmt.Errorf("sanitizing rendered page %d: %w", i, err)
		}
		piiCount += result.Meta.PIICount

		if err := addImagePage(doc, result.SanitizedPNG, i); err != nil {
			return nil, 0, fmt.Errorf("adding sanitized page %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, 0, fmt.Errorf("writing rebuilt pdf: %w", err)
	}
	return buf.Bytes(), piiCount, nil
}

func addImagePage(doc *gofpdf.Fpdf, png []byte, pageIndex int) error {
	cfg, err := pngConfig(png)
	if err != nil {
		return err
	}

	// Convert pixel dims at the render DPI into points (72 per inch) so
	// the page matches the original raster's physical size.
	widthPt := float64(cfg.Width) * 72 / scannedRenderDPI
	heightPt := float64(cfg.Height) * 72 / scannedRenderDPI

	doc.AddPageFormat("P", gofpdf.SizeType{Wd: widthPt, Ht: heightPt})

	name := fmt.Sprintf("page-%d", pageIndex)
	doc.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	doc.ImageOptions(name, 0, 0, widthPt, heightPt, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	return nil
}

func pngConfig(data []byte) (stdimage.Config, error) {
	cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return stdimage.Config{}, fmt.Errorf("decoding png config: %w", err)
	}
	return cfg, nil
}
