package audit

import (
	"encoding/json"
	"fmt"

	"github.com/frozosec/escalatesafe/pkg/redaction"
)

// Guard scans an audit Meta payload for raw PII before it is allowed to
// reach the database (spec.md invariant 5). Audit Meta is supposed to carry
// summaries (counts, keys, booleans) only; the guard exists to catch a
// caller that accidentally passed through a raw ticket snippet.
type Guard struct {
	detector *redaction.Detector
}

// strictPolicy disables the confidence gate entirely — any pattern or NER
// match at any score is grounds to reject, since audit Meta should never
// carry free-form PII-bearing text in the first place.
var strictPolicy = redaction.Policy{
	ConfidenceThreshold: 0,
	WarnThreshold:       0,
	EnableRegionalIDs:   true,
}

// NewGuard builds a Guard around detector. A nil detector disables scanning
// (meta passes through unchecked) — used only in tests that don't care
// about the guard's behavior.
func NewGuard(detector *redaction.Detector) *Guard {
	return &Guard{detector: detector}
}

// Sanitize returns meta unchanged if it carries no detectable PII in any
// string leaf value, or a non-nil error if it does.
func (g *Guard) Sanitize(meta json.RawMessage) (json.RawMessage, error) {
	if g.detector == nil || len(meta) == 0 {
		return meta, nil
	}

	var decoded any
	if err := json.Unmarshal(meta, &decoded); err != nil {
		return nil, fmt.Errorf("decoding audit meta for PII guard: %w", err)
	}

	if kind, found := firstPIIString(g, decoded); found {
		return nil, fmt.Errorf("audit meta contains a %s-shaped value", kind)
	}

	return meta, nil
}

// firstPIIString walks a decoded JSON value looking for any string leaf
// that the Detector flags, returning as soon as one is found.
func firstPIIString(g *Guard, v any) (redaction.Kind, bool) {
	switch val := v.(type) {
	case string:
		result := g.detector.Analyze(val, strictPolicy)
		if len(result.Spans) > 0 {
			return result.Spans[0].Kind, true
		}
	case map[string]any:
		for _, child := range val {
			if kind, found := firstPIIString(g, child); found {
				return kind, true
			}
		}
	case []any:
		for _, child := range val {
			if kind, found := firstPIIString(g, child); found {
				return kind, true
			}
		}
	}
	return "", false
}
