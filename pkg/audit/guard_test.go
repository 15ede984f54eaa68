package audit

import (
	"encoding/json"
	"testing"

	"github.com/frozosec/escalatesafe/pkg/redaction"
)

func TestGuardPassesCleanSummaryMeta(t *testing.T) {
	g := NewGuard(redaction.NewDetector(nil, nil))
	meta := json.RawMessage(`{"pii_count": 3, "kinds": ["EMAIL", "PHONE"]}`)

	out, err := g.Sanitize(meta)
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if string(out) != string(meta) {
		t.Fatalf("Sanitize altered clean meta: %s", out)
	}
}

func TestGuardRejectsRawPIIInMeta(t *testing.T) {
	g := NewGuard(redaction.NewDetector(nil, nil))
	meta := json.RawMessage(`{"note": "contact a@b.com for followup"}`)

	if _, err := g.Sanitize(meta); err == nil {
		t.Fatal("expected Sanitize to reject meta containing a raw email")
	}
}

func TestGuardRejectsPIINestedInArray(t *testing.T) {
	g := NewGuard(redaction.NewDetector(nil, nil))
	meta := json.RawMessage(`{"notes": ["fine", "call 415-555-0199 now"]}`)

	if _, err := g.Sanitize(meta); err == nil {
		t.Fatal("expected Sanitize to reject meta with PII nested in an array")
	}
}

func TestGuardNilDetectorPassesThrough(t *testing.T) {
	g := NewGuard(nil)
	meta := json.RawMessage(`{"note": "contact a@b.com for followup"}`)

	out, err := g.Sanitize(meta)
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if string(out) != string(meta) {
		t.Fatalf("Sanitize with nil detector should pass through unchanged")
	}
}
