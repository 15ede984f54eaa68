// Package tenantconfig validates and persists the three structured documents
// that make up a tenant's TenantConfig (spec.md §3): redaction_policy,
// issue_tracker_config, notifier_config. Grounded on
// wisbric-nightowl/internal/httpserver/validate.go's go-playground/validator
// usage, adapted from per-request struct validation to per-document
// tenant-config validation.
package tenantconfig

// RedactionPolicyDoc is the wire shape of TenantConfig.redaction_policy. It
// maps onto pkg/redaction.Policy once validated.
type RedactionPolicyDoc struct {
	ConfidenceThreshold float64           `json:"confidence_threshold" validate:"gte=0,lte=1"`
	WarnThreshold       float64           `json:"warn_threshold" validate:"gte=0,lte=1"`
	EnableRegionalIDs   bool              `json:"enable_regional_ids"`
	Templates           map[string]string `json:"templates,omitempty" validate:"omitempty,dive,keys,oneof=EMAIL PHONE CREDIT_CARD PERSON LOCATION API_KEY NATIONAL_ID_A NATIONAL_ID_B,endkeys,required"`

	// AllowInternalNotes gates Run options' include_internal_notes opt-in
	// (spec.md §4.6, §8 Scenario 6; original_source/api/routes/runs.py:
	// "Internal notes not enabled for this tenant"). Defaults false: a
	// tenant must explicitly enable internal-notes ingestion.
	AllowInternalNotes bool `json:"allow_internal_notes"`
}

// IssueTrackerConfigDoc is the wire shape of TenantConfig.issue_tracker_config
// (spec.md §4.8/§4.9: downstream issue-tracker connection details, API token
// stored ciphertext once sealed).
type IssueTrackerConfigDoc struct {
	BaseURL    string `json:"base_url" validate:"required,url"`
	ProjectKey string `json:"project_key" validate:"required,max=64"`
	IssueType  string `json:"issue_type" validate:"required,max=64"`
	APIToken   string `json:"api_token" validate:"required"`
}

// NotifierConfigDoc is the wire shape of TenantConfig.notifier_config
// (spec.md §4.9: "Notifier (webhook). POST webhook_url... HTTPS only; URL
// validated against allowlisted host pattern").
type NotifierConfigDoc struct {
	WebhookURL string `json:"webhook_url" validate:"required,url,startswith=https://"`
	Enabled    bool   `json:"enabled"`
}

// Document bundles the three validated documents for a single upsert.
type Document struct {
	RedactionPolicy    RedactionPolicyDoc
	IssueTrackerConfig IssueTrackerConfigDoc
	NotifierConfig     NotifierConfigDoc
}
