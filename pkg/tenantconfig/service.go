package tenantconfig

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/frozosec/escalatesafe/internal/db"
	"github.com/frozosec/escalatesafe/internal/pkgerr"
	"github.com/frozosec/escalatesafe/internal/vault"
	"github.com/frozosec/escalatesafe/pkg/redaction"
)

// Service validates and persists TenantConfig documents, sealing the
// downstream API token at rest (spec.md §3, §4.9).
type Service struct {
	dbtx  db.DBTX
	vault *vault.Vault
}

// NewService builds a Service.
func NewService(dbtx db.DBTX, v *vault.Vault) *Service {
	return &Service{dbtx: dbtx, vault: v}
}

// Upsert validates the three raw JSON documents and stores them, sealing
// IssueTrackerConfig.APIToken before it ever reaches the database.
func (s *Service) Upsert(ctx context.Context, tenantID uuid.UUID, redactionRaw, issueTrackerRaw, notifierRaw json.RawMessage) (Document, error) {
	rp, err := ValidateRedactionPolicy(redactionRaw)
	if err != nil {
		return Document{}, err
	}
	itc, err := ValidateIssueTrackerConfig(issueTrackerRaw)
	if err != nil {
		return Document{}, err
	}
	nc, err := ValidateNotifierConfig(notifierRaw)
	if err != nil {
		return Document{}, err
	}

	sealedToken, err := s.vault.Seal(itc.APIToken)
	if err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "sealing issue tracker api token", err)
	}
	itc.APIToken = sealedToken

	redactionJSON, err := json.Marshal(rp)
	if err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "marshaling redaction policy", err)
	}
	issueTrackerJSON, err := json.Marshal(itc)
	if err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "marshaling issue tracker config", err)
	}
	notifierJSON, err := json.Marshal(nc)
	if err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "marshaling notifier config", err)
	}

	_, err = db.New(s.dbtx).UpsertTenantConfig(ctx, db.UpsertTenantConfigParams{
		TenantID:           tenantID,
		RedactionPolicy:    redactionJSON,
		IssueTrackerConfig: issueTrackerJSON,
		NotifierConfig:     notifierJSON,
	})
	if err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "storing tenant config", err)
	}

	return Document{RedactionPolicy: rp, IssueTrackerConfig: itc, NotifierConfig: nc}, nil
}

// Load fetches and decodes a tenant's config, opening the sealed API token
// so callers get the plaintext ready for use against the downstream API.
func (s *Service) Load(ctx context.Context, tenantID uuid.UUID) (Document, error) {
	c, err := db.New(s.dbtx).GetTenantConfig(ctx, tenantID)
	if err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "loading tenant config", err)
	}

	var doc Document
	if err := json.Unmarshal(c.RedactionPolicy, &doc.RedactionPolicy); err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "decoding stored redaction policy", err)
	}
	if err := json.Unmarshal(c.IssueTrackerConfig, &doc.IssueTrackerConfig); err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "decoding stored issue tracker config", err)
	}
	if err := json.Unmarshal(c.NotifierConfig, &doc.NotifierConfig); err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "decoding stored notifier config", err)
	}

	plainToken, err := s.vault.Open(doc.IssueTrackerConfig.APIToken)
	if err != nil {
		return Document{}, pkgerr.Wrap(pkgerr.CategoryInternal, "opening sealed issue tracker api token", err)
	}
	doc.IssueTrackerConfig.APIToken = plainToken

	return doc, nil
}

// RedactionPolicy converts the validated wire document to the Go-native
// pkg/redaction.Policy shape consumed by the detector/redactor.
func (d RedactionPolicyDoc) RedactionPolicy() redaction.Policy {
	p := redaction.Policy{
		ConfidenceThreshold: d.ConfidenceThreshold,
		WarnThreshold:       d.WarnThreshold,
		EnableRegionalIDs:   d.EnableRegionalIDs,
	}
	if len(d.Templates) > 0 {
		p.Templates = make(map[redaction.Kind]string, len(d.Templates))
		for k, v := range d.Templates {
			p.Templates[redaction.Kind(k)] = v
		}
	}
	return p
}
