package tenantconfig

import (
	"encoding/json"
	"testing"

	"github.com/frozosec/escalatesafe/internal/pkgerr"
)

func TestValidateRedactionPolicyAccepts(t *testing.T) {
	raw := json.RawMessage(`{"confidence_threshold":0.5,"warn_threshold":0.7,"enable_regional_ids":true}`)
	doc, err := ValidateRedactionPolicy(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ConfidenceThreshold != 0.5 || !doc.EnableRegionalIDs {
		t.Errorf("unexpected doc: %+v", doc)
	}
}

func TestValidateRedactionPolicyRejectsOutOfRangeThreshold(t *testing.T) {
	raw := json.RawMessage(`{"confidence_threshold":1.5,"warn_threshold":0.7}`)
	if _, err := ValidateRedactionPolicy(raw); !pkgerr.Is(err, pkgerr.CategoryValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestValidateRedactionPolicyRejectsConfidenceAboveWarn(t *testing.T) {
	raw := json.RawMessage(`{"confidence_threshold":0.9,"warn_threshold":0.5}`)
	if _, err := ValidateRedactionPolicy(raw); !pkgerr.Is(err, pkgerr.CategoryValidation) {
		t.Errorf("expected validation error for confidence > warn, got %v", err)
	}
}

func TestValidateRedactionPolicyRejectsUnknownField(t *testing.T) {
	raw := json.RawMessage(`{"confidence_threshold":0.5,"warn_threshold":0.7,"bogus":true}`)
	if _, err := ValidateRedactionPolicy(raw); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestValidateIssueTrackerConfigRequiresHTTPS(t *testing.T) {
	raw := json.RawMessage(`{"base_url":"http://tracker.example.com","project_key":"ESC","issue_type":"Bug","api_token":"tok"}`)
	if _, err := ValidateIssueTrackerConfig(raw); err == nil {
		t.Error("expected error for non-https base_url")
	}
}

func TestValidateIssueTrackerConfigAccepts(t *testing.T) {
	raw := json.RawMessage(`{"base_url":"https://tracker.example.com","project_key":"ESC","issue_type":"Bug","api_token":"tok"}`)
	doc, err := ValidateIssueTrackerConfig(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ProjectKey != "ESC" {
		t.Errorf("unexpected doc: %+v", doc)
	}
}

func TestValidateNotifierConfigRejectsNonAllowlistedHost(t *testing.T) {
	raw := json.RawMessage(`{"webhook_url":"https://evil.example.com/webhook","enabled":true}`)
	if _, err := ValidateNotifierConfig(raw); err == nil {
		t.Error("expected error for non-allowlisted webhook host")
	}
}

func TestValidateNotifierConfigAcceptsSlackWebhook(t *testing.T) {
	raw := json.RawMessage(`{"webhook_url":"https://hooks.slack.com/services/T000/B000/XXXX","enabled":true}`)
	doc, err := ValidateNotifierConfig(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Enabled {
		t.Errorf("unexpected doc: %+v", doc)
	}
}

func TestValidateNotifierConfigRejectsPlainHTTP(t *testing.T) {
	raw := json.RawMessage(`{"webhook_url":"http://hooks.slack.com/services/T000/B000/XXXX"}`)
	if _, err := ValidateNotifierConfig(raw); err == nil {
		t.Error("expected error for plain http webhook url")
	}
}

func TestValidateRedactionPolicyDefaultsAllowInternalNotesFalse(t *testing.T) {
	raw := json.RawMessage(`{"confidence_threshold":0.5,"warn_threshold":0.7}`)
	doc, err := ValidateRedactionPolicy(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.AllowInternalNotes {
		t.Error("expected allow_internal_notes to default false")
	}
}

func TestValidateRedactionPolicyAcceptsAllowInternalNotes(t *testing.T) {
	raw := json.RawMessage(`{"confidence_threshold":0.5,"warn_threshold":0.7,"allow_internal_notes":true}`)
	doc, err := ValidateRedactionPolicy(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.AllowInternalNotes {
		t.Error("expected allow_internal_notes to round-trip true")
	}
}

func TestRedactionPolicyDocConvertsTemplates(t *testing.T) {
	doc := RedactionPolicyDoc{
		ConfidenceThreshold: 0.5,
		WarnThreshold:       0.7,
		Templates:           map[string]string{"EMAIL": "[HIDDEN]"},
	}
	p := doc.RedactionPolicy()
	if p.Template("EMAIL") != "[HIDDEN]" {
		t.Errorf("expected custom template to carry over, got %q", p.Template("EMAIL"))
	}
}
