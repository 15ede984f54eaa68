// Package pdf implements the PDF Pipeline (C4): text-layer vs scanned
// classification, native text redaction, and raster rebuild. Grounded on
// original_source/worker/tasks/redact_pdf.py. No PDF-annotation/editing
// library appeared anywhere in the example pack — github.com/ledongthuc/pdf
// (read-only text extraction) and github.com/jung-kurt/gofpdf (PDF
// generation) are the closest real ecosystem libraries retrieved, and are
// composed here: extract with ledongthuc/pdf, rebuild a sanitized document
// with gofpdf. See DESIGN.md.
package pdf

// Method records which path produced a redacted_pdf asset (spec.md §4.4
// Output: meta.method).
type Method string

const (
	MethodNative        Method = "native"
	MethodRasterRebuild Method = "raster_rebuild"
)

// Meta is the RunAsset.meta payload for a redacted_pdf asset.
type Meta struct {
	Pages    int    `json:"pages"`
	Method   Method `json:"method"`
	PIICount int    `json:"pii_count"`
}

// Limits bounds accepted input documents (spec.md §4.4 Input limits).
type Limits struct {
	MaxPages  int
	MaxSizeMB int
}

// DefaultLimits mirrors redact_pdf.py's defaults.
func DefaultLimits() Limits {
	return Limits{MaxPages: 10, MaxSizeMB: 10}
}

// textLayerThreshold is the non-whitespace character count above which a
// page/document is classified as text-layer rather than scanned (spec.md
// §4.4 Classification).
const textLayerThreshold = 100

// scannedRenderDPI is the minimum render resolution for the scanned path
// (spec.md §4.4: "render at ≥150 DPI").
const scannedRenderDPI = 150
