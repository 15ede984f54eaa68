package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// No OCR library appears anywhere in the example pack (see DESIGN.md), so
// both engines are thin HTTP clients against an external OCR service —
// consistent with original_source/worker/tasks/ocr_image.py's local
// Tesseract / cloud-OCR fallback split, just speaking HTTP instead of
// binding a C library.

// ocrResponse models the wire contract both engines speak: POST
// raw image bytes, get back word-level tuples.
type ocrResponse struct {
	Words []struct {
		Text       string  `json:"text"`
		Left       int     `json:"left"`
		Top        int     `json:"top"`
		Width      int     `json:"width"`
		Height     int     `json:"height"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
}

// HTTPEngine calls an OCR HTTP endpoint that accepts raw image bytes and
// returns word-level tuples as JSON.
type HTTPEngine struct {
	name     string
	endpoint string
	client   *http.Client
}

// NewLocalEngine builds the preferred, typically self-hosted OCR engine
// (spec.md §4.3 step 3: "preferring a local engine").
func NewLocalEngine(endpoint string) *HTTPEngine {
	return newHTTPEngine("local", endpoint)
}

// NewCloudEngine builds the fallback cloud OCR engine used "on local-engine
// failure" (spec.md §4.3 step 3).
func NewCloudEngine(endpoint string) *HTTPEngine {
	return newHTTPEngine("cloud", endpoint)
}

func newHTTPEngine(name, endpoint string) *HTTPEngine {
	return &HTTPEngine{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second}, // spec.md §5: OCR 60s per page
	}
}

// Name implements Engine.
func (e *HTTPEngine) Name() string { return e.name }

// Recognize implements Engine.
func (e *HTTPEngine) Recognize(ctx context.Context, img []byte) ([]Word, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("building ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ocr engine %s: %w", e.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr engine %s returned status %d", e.name, resp.StatusCode)
	}

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding ocr response from %s: %w", e.name, err)
	}

	words := make([]Word, len(parsed.Words))
	for i, w := range parsed.Words {
		words[i] = Word{
			Text:       w.Text,
			Box:        Box{L: w.Left, T: w.Top, W: w.Width, H: w.Height},
			Confidence: w.Confidence,
		}
	}
	return words, nil
}
