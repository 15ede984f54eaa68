package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// extracted holds per-page plain text pulled from the document's text
// layer, in page order.
type extracted struct {
	pages []string
}

func (e extracted) pageCount() int { return len(e.pages) }

func (e extracted) joined() string {
	return strings.Join(e.pages, "\n")
}

// nonWhitespaceLen counts non-whitespace runes, used for the text-layer vs
// scanned classification (spec.md §4.4).
func nonWhitespaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// extractText opens raw PDF bytes and pulls each page's plain text layer.
func extractText(raw []byte) (extracted, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return extracted{}, fmt.Errorf("opening pdf: %w", err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not abort classification —
			// treat it as empty and let downstream processing decide.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return extracted{pages: pages}, nil
}

// classify determines whether a document is text-layer or scanned (spec.md
// §4.4 Classification: non-whitespace text length > 100 chars → text-layer).
func classify(e extracted) bool {
	return nonWhitespaceLen(e.joined()) > textLayerThreshold
}
