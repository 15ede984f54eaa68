package tenantconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/frozosec/escalatesafe/internal/pkgerr"
)

// validate is a package-level, concurrency-safe validator instance (mirrors
// httpserver.validate).
var validate = validator.New(validator.WithRequiredStructEnabled())

// allowedWebhookHosts is the notifier host allowlist (spec.md §4.9: "URL
// validated against allowlisted host pattern"). Only Slack incoming-webhook
// hosts (hooks.slack.com and its subdomains) pass the check.
var allowedWebhookHosts = []string{"hooks.slack.com"}

// ValidateRedactionPolicy decodes and validates a redaction_policy document.
func ValidateRedactionPolicy(raw json.RawMessage) (RedactionPolicyDoc, error) {
	var doc RedactionPolicyDoc
	if err := decodeStrict(raw, &doc); err != nil {
		return RedactionPolicyDoc{}, err
	}
	if err := validate.Struct(doc); err != nil {
		return RedactionPolicyDoc{}, fieldError(err)
	}
	if doc.ConfidenceThreshold > doc.WarnThreshold {
		return RedactionPolicyDoc{}, pkgerr.New(pkgerr.CategoryValidation,
			"confidence_threshold must be <= warn_threshold")
	}
	return doc, nil
}

// ValidateIssueTrackerConfig decodes and validates an issue_tracker_config
// document. The caller is responsible for sealing APIToken before
// persisting it (spec.md §3: "API tokens inside them are stored ciphertext").
func ValidateIssueTrackerConfig(raw json.RawMessage) (IssueTrackerConfigDoc, error) {
	var doc IssueTrackerConfigDoc
	if err := decodeStrict(raw, &doc); err != nil {
		return IssueTrackerConfigDoc{}, err
	}
	if err := validate.Struct(doc); err != nil {
		return IssueTrackerConfigDoc{}, fieldError(err)
	}
	u, err := url.Parse(doc.BaseURL)
	if err != nil || u.Scheme != "https" {
		return IssueTrackerConfigDoc{}, pkgerr.New(pkgerr.CategoryValidation,
			"issue_tracker_config.base_url must be an https URL")
	}
	return doc, nil
}

// ValidateNotifierConfig decodes and validates a notifier_config document,
// enforcing the HTTPS + allowlisted-host requirement.
func ValidateNotifierConfig(raw json.RawMessage) (NotifierConfigDoc, error) {
	var doc NotifierConfigDoc
	if err := decodeStrict(raw, &doc); err != nil {
		return NotifierConfigDoc{}, err
	}
	if err := validate.Struct(doc); err != nil {
		return NotifierConfigDoc{}, fieldError(err)
	}
	u, err := url.Parse(doc.WebhookURL)
	if err != nil || u.Scheme != "https" {
		return NotifierConfigDoc{}, pkgerr.New(pkgerr.CategoryValidation,
			"notifier_config.webhook_url must be an https URL")
	}
	if !hostAllowed(u.Hostname()) {
		return NotifierConfigDoc{}, pkgerr.New(pkgerr.CategoryValidation,
			fmt.Sprintf("notifier_config.webhook_url host %q is not allowlisted", u.Hostname()))
	}
	return doc, nil
}

func hostAllowed(host string) bool {
	for _, allowed := range allowedWebhookHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func decodeStrict(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryValidation, "decoding tenant config document", err)
	}
	return nil
}

// fieldError formats a validator.ValidationErrors as a single pkgerr with
// the first offending field named, mirroring httpserver.Validate's
// field-level reporting without the HTTP response envelope.
func fieldError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return pkgerr.Wrap(pkgerr.CategoryValidation, "validating tenant config document", err)
	}
	fe := ve[0]
	return pkgerr.New(pkgerr.CategoryValidation,
		fmt.Sprintf("field %q failed %q validation", fe.Field(), fe.Tag()))
}
