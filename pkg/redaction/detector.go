package redaction

import (
	"log/slog"
	"sort"
)

// nerRegistrationOrder places the NER layer's kinds after every pattern in
// the bank, so pattern-bank hits win ties against NER hits at the same
// score — matching detector.py's recognizer registration order (built-in
// Presidio recognizers, then the custom ones added via add_recognizer).
const nerRegistrationOrder = 1 << 30

// Result is the outcome of Detector.Analyze.
type Result struct {
	// Spans is the final non-overlapping, start-sorted span sequence
	// surviving the confidence threshold.
	Spans []Span

	// LowConfidence holds spans that survived the discard threshold but
	// scored below the warn threshold (spec.md §4.1).
	LowConfidence []Span

	// Warning is set when the NER layer failed; pattern results are
	// still returned (spec.md §4.1 Failure clause).
	Warning string
}

// Detector implements C1: analyze(text, policy) → spans.
type Detector struct {
	ner    NERTagger
	logger *slog.Logger
}

// NewDetector builds a Detector. If ner is nil, HeuristicNER{} is used.
func NewDetector(ner NERTagger, logger *slog.Logger) *Detector {
	if ner == nil {
		ner = HeuristicNER{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{ner: ner, logger: logger}
}

type candidate struct {
	span  Span
	order int
}

// Analyze runs the pattern bank and the NER layer over text, merges
// overlapping candidates, and applies policy's thresholds. Deterministic:
// equal input yields equal output (spec.md §4.1).
func (d *Detector) Analyze(text string, policy Policy) Result {
	if text == "" {
		return Result{}
	}

	var candidates []candidate

	for _, p := range patternBank {
		if !policy.EnableRegionalIDs && (p.kind == KindNationalIDA || p.kind == KindNationalIDB) {
			continue
		}
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			candidates = append(candidates, candidate{
				span:  Span{Kind: p.kind, Start: loc[0], End: loc[1], Score: p.score},
				order: p.registrationOrder,
			})
		}
	}

	var warning string
	nerSpans, err := d.ner.Tag(text)
	if err != nil {
		warning = "NER layer unavailable; pattern-only detections returned"
		d.logger.Warn("ner tagging failed, falling back to pattern-only detection", "error", err)
	} else {
		for _, s := range nerSpans {
			candidates = append(candidates, candidate{span: s, order: nerRegistrationOrder})
		}
	}

	merged := mergeCandidates(candidates)

	var kept, lowConfidence []Span
	for _, s := range merged {
		if s.Score < policy.ConfidenceThreshold {
			continue
		}
		kept = append(kept, s)
		if s.Score < policy.WarnThreshold {
			lowConfidence = append(lowConfidence, s)
		}
	}

	return Result{Spans: kept, LowConfidence: lowConfidence, Warning: warning}
}

// mergeCandidates applies spec.md §4.1's merge policy: overlapping spans
// are merged, the higher score wins an overlap, and the earlier-registered
// kind wins a tie. The result is sorted by start.
func mergeCandidates(candidates []candidate) []Span {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].span.Score != candidates[j].span.Score {
			return candidates[i].span.Score > candidates[j].span.Score
		}
		return candidates[i].order < candidates[j].order
	})

	var accepted []Span
	for _, c := range candidates {
		overlaps := false
		for _, a := range accepted {
			if a.overlaps(c.span) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, c.span)
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}
