// Package redaction implements the Detector (C1) and Text Redactor (C2):
// pattern + NER PII detection over a text buffer, and positional
// replacement with a lossless diff transcript. Grounded on
// original_source/api/services/redaction/detector.py and text_redactor.py.
package redaction

// Kind identifies a detected PII entity type.
type Kind string

const (
	KindEmail        Kind = "EMAIL"
	KindPhone        Kind = "PHONE"
	KindCreditCard   Kind = "CREDIT_CARD"
	KindPerson       Kind = "PERSON"
	KindLocation     Kind = "LOCATION"
	KindAPIKey       Kind = "API_KEY"
	KindNationalIDA  Kind = "NATIONAL_ID_A" // Indian PAN
	KindNationalIDB  Kind = "NATIONAL_ID_B" // Indian GSTIN
)

// Span is a half-open byte range [Start, End) over a text buffer, carrying
// a detected kind and confidence score.
type Span struct {
	Kind  Kind
	Start int
	End   int
	Score float64
}

// overlaps reports whether s and other share any byte.
func (s Span) overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// intersects reports whether the half-open range [start, end) shares any
// byte with s. Used by the image/PDF pipelines to map a detected PII span
// back onto OCR word boxes by range intersection rather than substring
// matching (spec.md §4.3 step 6).
func (s Span) intersects(start, end int) bool {
	return s.Start < end && start < s.End
}

// Intersects is the exported form of intersects, used outside this
// package by pkg/media/image.
func (s Span) Intersects(start, end int) bool {
	return s.intersects(start, end)
}
