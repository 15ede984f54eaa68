package verify

import (
	"context"
	"testing"

	"github.com/frozosec/escalatesafe/pkg/redaction"
)

func TestVerifyTextPassesOnCleanText(t *testing.T) {
	v := NewVerifier(redaction.NewDetector(nil, nil))
	result := v.VerifyText("Contact [EMAIL_REDACTED] for details", redaction.DefaultPolicy())

	if !result.Passed {
		t.Fatalf("expected clean text to pass, residuals: %+v", result.Residuals)
	}
}

func TestVerifyTextBlocksOnResidualPII(t *testing.T) {
	v := NewVerifier(redaction.NewDetector(nil, nil))
	result := v.VerifyText("Contact a@b.com for details", redaction.DefaultPolicy())

	if result.Passed {
		t.Fatalf("expected residual email to block verification")
	}
	if len(result.Residuals) == 0 {
		t.Fatalf("expected residuals to be populated")
	}
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(context.Context, []byte) (string, error) {
	return s.text, s.err
}

func TestVerifyArtifactDelegatesToExtractor(t *testing.T) {
	v := NewVerifier(redaction.NewDetector(nil, nil))
	result, err := v.VerifyArtifact(context.Background(), []byte("fake-png-bytes"), stubExtractor{text: "clean"}, redaction.DefaultPolicy())
	if err != nil {
		t.Fatalf("VerifyArtifact: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected pass for clean extracted text")
	}
}
