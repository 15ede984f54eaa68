package redaction

import "regexp"

// NERTagger is the statistical named-entity layer for PERSON/LOCATION
// detection (spec.md §4.1's "NER layer"). The Python source delegates this
// to Presidio's spaCy-backed analyzer; no equivalent statistical NER
// library appeared anywhere in the retrieved example pack, so this is a
// pluggable interface with HeuristicNER as the shipped implementation —
// see DESIGN.md.
type NERTagger interface {
	// Tag returns candidate PERSON/LOCATION spans over text. An error
	// return must not discard pattern-bank results further up the call
	// chain (spec.md §4.1 Failure clause) — Detector.Analyze treats a
	// non-nil error as "NER unavailable" and proceeds with a warning.
	Tag(text string) ([]Span, error)
}

// HeuristicNER is a capitalization-based PERSON/LOCATION tagger: runs of
// two or more capitalized words are treated as PERSON candidates, and
// capitalized words following a location preposition ("in", "at", "from",
// "near")
// as LOCATION candidates. It is deliberately conservative (low scores)
// since it is a stand-in for a real statistical model, not a replacement
// for one.
type HeuristicNER struct{}

var (
	personRunRe  = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)
	locationPrep = regexp.MustCompile(`\b(?:in|at|from|near)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\b`)
)

// Tag implements NERTagger.
func (HeuristicNER) Tag(text string) ([]Span, error) {
	var spans []Span

	for _, m := range personRunRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		spans = append(spans, Span{Kind: KindPerson, Start: start, End: end, Score: 0.6})
	}

	for _, m := range locationPrep.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		spans = append(spans, Span{Kind: KindLocation, Start: start, End: end, Score: 0.55})
	}

	return spans, nil
}
