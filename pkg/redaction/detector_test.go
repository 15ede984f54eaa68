package redaction

import "testing"

func TestAnalyzeMultiKind(t *testing.T) {
	d := NewDetector(nil, nil)
	text := "Contact John Doe at john.doe@example.com, phone +1-555-123-4567, card 4532-1234-5678-9012, bearer eyJabc.eyJdef.sigXYZ"

	result := d.Analyze(text, DefaultPolicy())

	counts := map[Kind]int{}
	for _, s := range result.Spans {
		counts[s.Kind]++
	}

	want := map[Kind]int{
		KindPerson:     1,
		KindEmail:      1,
		KindPhone:      1,
		KindCreditCard: 1,
		KindAPIKey:     1,
	}
	for k, n := range want {
		if counts[k] != n {
			t.Errorf("count[%s] = %d, want %d (all counts: %v)", k, counts[k], n, counts)
		}
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	d := NewDetector(nil, nil)
	text := "email me at a@b.com or call 555-123-4567"
	r1 := d.Analyze(text, DefaultPolicy())
	r2 := d.Analyze(text, DefaultPolicy())

	if len(r1.Spans) != len(r2.Spans) {
		t.Fatalf("non-deterministic span count: %d vs %d", len(r1.Spans), len(r2.Spans))
	}
	for i := range r1.Spans {
		if r1.Spans[i] != r2.Spans[i] {
			t.Fatalf("non-deterministic span at %d: %+v vs %+v", i, r1.Spans[i], r2.Spans[i])
		}
	}
}

func TestAnalyzeSpansSortedAndNonOverlapping(t *testing.T) {
	d := NewDetector(nil, nil)
	text := "a@b.com and c@d.com and phone 555-123-4567"
	result := d.Analyze(text, DefaultPolicy())

	for i := 1; i < len(result.Spans); i++ {
		prev, cur := result.Spans[i-1], result.Spans[i]
		if cur.Start < prev.Start {
			t.Fatalf("spans not sorted by start: %+v before %+v", prev, cur)
		}
		if prev.overlaps(cur) {
			t.Fatalf("overlapping spans in output: %+v, %+v", prev, cur)
		}
	}
}

func TestAnalyzeDiscardsBelowConfidenceThreshold(t *testing.T) {
	d := NewDetector(nil, nil)
	policy := DefaultPolicy()
	policy.ConfidenceThreshold = 0.99 // nothing in the bank scores this high

	result := d.Analyze("email me at a@b.com", policy)
	if len(result.Spans) != 0 {
		t.Fatalf("expected all spans discarded at threshold 0.99, got %+v", result.Spans)
	}
}

func TestAnalyzeRegionalIDsFeatureFlag(t *testing.T) {
	d := NewDetector(nil, nil)
	text := "PAN ABCDE1234F on file"

	off := d.Analyze(text, DefaultPolicy())
	for _, s := range off.Spans {
		if s.Kind == KindNationalIDA {
			t.Fatalf("NATIONAL_ID_A detected with EnableRegionalIDs=false")
		}
	}

	policy := DefaultPolicy()
	policy.EnableRegionalIDs = true
	on := d.Analyze(text, policy)

	found := false
	for _, s := range on.Spans {
		if s.Kind == KindNationalIDA {
			found = true
		}
	}
	if !found {
		t.Fatalf("NATIONAL_ID_A not detected with EnableRegionalIDs=true")
	}
}

func TestAnalyzeNERFailureKeepsPatternResults(t *testing.T) {
	d := NewDetector(failingNER{}, nil)
	result := d.Analyze("email a@b.com, John Smith visiting", DefaultPolicy())

	if result.Warning == "" {
		t.Fatalf("expected a warning when NER fails")
	}

	found := false
	for _, s := range result.Spans {
		if s.Kind == KindEmail {
			found = true
		}
	}
	if !found {
		t.Fatalf("pattern detection dropped after NER failure: %+v", result.Spans)
	}
}

type failingNER struct{}

func (failingNER) Tag(string) ([]Span, error) {
	return nil, errNERUnavailable
}

var errNERUnavailable = &nerError{"ner engine unreachable"}

type nerError struct{ msg string }

func (e *nerError) Error() string { return e.msg }
