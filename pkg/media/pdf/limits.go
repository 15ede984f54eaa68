package pdf

import "fmt"

// LimitError is returned when an input document exceeds Limits. Callers
// (pkg/ingest's Worker) turn this into a failed RunAsset with a typed reason without
// failing the whole run (spec.md §4.4 Input limits).
type LimitError struct {
	Reason string
}

func (e *LimitError) Error() string { return e.Reason }

// checkLimits validates raw bytes and the extracted page count against
// limits.
func checkLimits(raw []byte, pageCount int, limits Limits) error {
	sizeMB := float64(len(raw)) / (1024 * 1024)
	if sizeMB > float64(limits.MaxSizeMB) {
		return &LimitError{Reason: fmt.Sprintf("ASSET_TOO_LARGE: %.1fMB exceeds %dMB limit", sizeMB, limits.MaxSizeMB)}
	}
	if pageCount > limits.MaxPages {
		return &LimitError{Reason: fmt.Sprintf("PAGE_LIMIT_EXCEEDED: %d pages exceeds %d page limit", pageCount, limits.MaxPages)}
	}
	return nil
}
