package redaction

import "testing"

func TestRedactConcatenationMatchesRedactedText(t *testing.T) {
	text := "Contact a@b.com or 555-123-4567 today"
	d := NewDetector(nil, nil)
	result := d.Analyze(text, DefaultPolicy())

	redacted := Redact(text, result.Spans, DefaultPolicy())

	var concat string
	for _, seg := range redacted.Segments {
		concat += seg.Text
	}
	if concat != redacted.RedactedText {
		t.Fatalf("concat(segments) = %q, want %q", concat, redacted.RedactedText)
	}
}

func TestRedactReplacesWithPlaceholdersNotOriginals(t *testing.T) {
	text := "Contact a@b.com now"
	spans := []Span{{Kind: KindEmail, Start: 8, End: 15, Score: 0.9}}

	redacted := Redact(text, spans, DefaultPolicy())

	if redacted.RedactedText != "Contact [EMAIL_REDACTED] now" {
		t.Fatalf("RedactedText = %q", redacted.RedactedText)
	}
	if redacted.CountsByKind[KindEmail] != 1 {
		t.Fatalf("CountsByKind[EMAIL] = %d, want 1", redacted.CountsByKind[KindEmail])
	}
}

func TestRedactIdempotent(t *testing.T) {
	d := NewDetector(nil, nil)
	policy := DefaultPolicy()
	text := "Contact a@b.com or 555-123-4567 today"

	first := d.Analyze(text, policy)
	redactedOnce := Redact(text, first.Spans, policy)

	second := d.Analyze(redactedOnce.RedactedText, policy)
	redactedTwice := Redact(redactedOnce.RedactedText, second.Spans, policy)

	if redactedTwice.RedactedText != redactedOnce.RedactedText {
		t.Fatalf("redact not idempotent: %q vs %q", redactedOnce.RedactedText, redactedTwice.RedactedText)
	}
}

func TestRedactNoSpansReturnsOriginal(t *testing.T) {
	redacted := Redact("nothing sensitive here", nil, DefaultPolicy())
	if redacted.RedactedText != "nothing sensitive here" {
		t.Fatalf("RedactedText = %q", redacted.RedactedText)
	}
}
