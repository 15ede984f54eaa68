package redaction

import "sort"

// SegmentType distinguishes the two kinds of diff segment.
type SegmentType string

const (
	SegmentUnchanged SegmentType = "unchanged"
	SegmentRedacted  SegmentType = "redacted"
)

// Segment is one piece of the lossless diff transcript. The concatenation
// of every segment's Text must equal RedactResult.RedactedText (spec.md
// §4.2 and invariant 1).
type Segment struct {
	Kind Kind
	Type SegmentType
	Text string
}

// RedactResult is the outcome of Redact.
type RedactResult struct {
	RedactedText string
	Segments     []Segment
	CountsByKind map[Kind]int
}

// Redact implements C2: redact(text, spans, policy) →
// {redacted_text, diff_segments, counts_by_kind}. Replacement is
// positional: spans are sorted by start, and the output alternates
// unchanged and redacted segments (spec.md §4.2). Deterministic: identical
// (text, spans, policy) always yields a byte-identical result, and running
// Redact again against the already-redacted text (which contains no
// further spans) is idempotent (spec.md invariant 7).
func Redact(text string, spans []Span, policy Policy) RedactResult {
	if len(spans) == 0 {
		return RedactResult{RedactedText: text, Segments: []Segment{{Type: SegmentUnchanged, Text: text}}, CountsByKind: map[Kind]int{}}
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var segments []Segment
	counts := map[Kind]int{}
	var redactedBuilder []byte
	lastEnd := 0

	for _, s := range sorted {
		if s.Start > lastEnd {
			unchanged := text[lastEnd:s.Start]
			segments = append(segments, Segment{Type: SegmentUnchanged, Text: unchanged})
			redactedBuilder = append(redactedBuilder, unchanged...)
		}

		placeholder := policy.Template(s.Kind)
		segments = append(segments, Segment{Kind: s.Kind, Type: SegmentRedacted, Text: placeholder})
		redactedBuilder = append(redactedBuilder, placeholder...)
		counts[s.Kind]++

		if s.End > lastEnd {
			lastEnd = s.End
		}
	}

	if lastEnd < len(text) {
		tail := text[lastEnd:]
		segments = append(segments, Segment{Type: SegmentUnchanged, Text: tail})
		redactedBuilder = append(redactedBuilder, tail...)
	}

	return RedactResult{
		RedactedText: string(redactedBuilder),
		Segments:     segments,
		CountsByKind: counts,
	}
}
