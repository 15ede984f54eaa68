package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/frozosec/escalatesafe/pkg/redaction"
)

// redactNative implements the text-layer path (spec.md §4.4 "Text-layer
// path"). The source locates each PII occurrence and stamps an opaque
// annotation directly onto the original page; no retrieved library can
// write annotations onto an existing PDF (see DESIGN.md), so this
// reconstructs a fresh document from the sanitized per-page text via
// gofpdf — which also satisfies "strip document metadata (title, author,
// producer)" for free, since the rebuilt document carries none of the
// original's metadata.
func redactNative(pages []string, detector *redaction.Detector, policy redaction.Policy) ([]byte, int, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.SetFont("Arial", "", 11)

	piiCount := 0
	for _, pageText := range pages {
		doc.AddPage()

		detection := detector.Analyze(pageText, policy)
		piiCount += len(detection.Spans)

		redacted := redaction.Redact(pageText, detection.Spans, policy)
		doc.MultiCell(0, 6, redacted.RedactedText, "", "", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, 0, fmt.Errorf("writing rebuilt pdf: %w", err)
	}
	return buf.Bytes(), piiCount, nil
}
