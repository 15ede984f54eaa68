package ingest

import (
	"testing"

	"github.com/frozosec/escalatesafe/internal/db"
	"github.com/frozosec/escalatesafe/pkg/redaction"
	"github.com/frozosec/escalatesafe/pkg/upstream"
)

func TestAssembleTextSkipsCommentDuplicatingLongDescription(t *testing.T) {
	description := "Customer reports that the billing export feature has been failing intermittently since last Tuesday."
	ticket := upstream.Ticket{Description: description}
	comments := []upstream.Comment{
		{Body: description}, // exact duplicate
		{Body: "Quoting the above: " + description}, // contains the description verbatim
		{Body: "New info: the export also times out on large accounts."},
	}

	got := assembleText(ticket, comments)
	if got != description+"\n\nNew info: the export also times out on large accounts." {
		t.Errorf("assembleText did not dedupe as expected, got %q", got)
	}
}

func TestAssembleTextKeepsShortDescriptionDuplicates(t *testing.T) {
	ticket := upstream.Ticket{Description: "Short desc"}
	comments := []upstream.Comment{{Body: "Short desc and more context"}}

	got := assembleText(ticket, comments)
	if got != "Short desc\n\nShort desc and more context" {
		t.Errorf("expected short descriptions to bypass the dedupe heuristic, got %q", got)
	}
}

func TestAssembleTextSkipsEmptyComments(t *testing.T) {
	ticket := upstream.Ticket{Description: "desc"}
	comments := []upstream.Comment{{Body: "   "}}

	got := assembleText(ticket, comments)
	if got != "desc" {
		t.Errorf("expected blank comment to be skipped, got %q", got)
	}
}

func TestClassifyAssetKind(t *testing.T) {
	cases := []struct {
		contentType string
		wantKind    db.AssetKind
		wantOK      bool
	}{
		{"image/png", db.AssetKindRedactedImage, true},
		{"image/jpeg", db.AssetKindRedactedImage, true},
		{"application/pdf", db.AssetKindRedactedPDF, true},
		{"text/plain", "", false},
		{"video/mp4", "", false},
	}
	for _, tc := range cases {
		kind, ok := classifyAssetKind(tc.contentType)
		if ok != tc.wantOK || kind != tc.wantKind {
			t.Errorf("classifyAssetKind(%q) = (%q, %v), want (%q, %v)", tc.contentType, kind, ok, tc.wantKind, tc.wantOK)
		}
	}
}

func TestCountsByKindName(t *testing.T) {
	counts := map[redaction.Kind]int{redaction.KindEmail: 2, redaction.KindPhone: 1}
	got := countsByKindName(counts)
	if got["EMAIL"] != 2 || got["PHONE"] != 1 {
		t.Errorf("countsByKindName = %+v", got)
	}
}
