package redaction

// Policy configures a Detector/Redactor run. It is the Go-native shape of
// TenantConfig.redaction_policy (spec.md §3), validated by
// pkg/tenantconfig before being handed to this package.
type Policy struct {
	// ConfidenceThreshold discards spans scoring below it entirely
	// (spec.md §4.1, default 0.5).
	ConfidenceThreshold float64

	// WarnThreshold flags surviving spans scoring below it in the
	// low-confidence warning list (spec.md §4.1, default 0.7).
	WarnThreshold float64

	// EnableRegionalIDs turns on NATIONAL_ID_A/NATIONAL_ID_B (Indian
	// PAN/GSTIN) detection (spec.md §4.1 region feature-flag).
	EnableRegionalIDs bool

	// Templates maps a Kind to its stable placeholder literal. Missing
	// entries fall back to DefaultTemplate(kind). Fixed across a run,
	// configurable per tenant (spec.md §4.2).
	Templates map[Kind]string
}

// DefaultPolicy returns the zero-configuration policy: thresholds 0.5/0.7,
// regional IDs disabled, default templates.
func DefaultPolicy() Policy {
	return Policy{
		ConfidenceThreshold: 0.5,
		WarnThreshold:       0.7,
		EnableRegionalIDs:   false,
		Templates:           defaultTemplates,
	}
}

// defaultTemplates mirrors text_redactor.py's RedactionPolicy.DEFAULT_TEMPLATES.
var defaultTemplates = map[Kind]string{
	KindEmail:       "[EMAIL_REDACTED]",
	KindPhone:       "[PHONE_REDACTED]",
	KindCreditCard:  "[CREDIT_CARD_REDACTED]",
	KindPerson:      "[NAME_REDACTED]",
	KindLocation:    "[LOCATION_REDACTED]",
	KindAPIKey:      "[API_KEY_REDACTED]",
	KindNationalIDA: "[PAN_REDACTED]",
	KindNationalIDB: "[GSTIN_REDACTED]",
}

// Template returns the placeholder literal for kind, falling back to a
// generic "[KIND_REDACTED]" form for unknown kinds — mirrors
// RedactionPolicy.get_template's fallback.
func (p Policy) Template(kind Kind) string {
	if p.Templates != nil {
		if t, ok := p.Templates[kind]; ok {
			return t
		}
	}
	if t, ok := defaultTemplates[kind]; ok {
		return t
	}
	return "[" + string(kind) + "_REDACTED]"
}
