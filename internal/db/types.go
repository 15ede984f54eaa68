package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InstallState mirrors Tenant.install_state.
type InstallState string

const (
	InstallStatePending   InstallState = "pending"
	InstallStateActive    InstallState = "active"
	InstallStateSuspended InstallState = "suspended"
)

// RunStatus mirrors Run.status (spec.md §4.6).
type RunStatus string

const (
	RunStatusPending         RunStatus = "pending"
	RunStatusProcessing      RunStatus = "processing"
	RunStatusReadyForReview  RunStatus = "ready_for_review"
	RunStatusExporting       RunStatus = "exporting"
	RunStatusExported        RunStatus = "exported"
	RunStatusFailed          RunStatus = "failed"
	RunStatusCancelled       RunStatus = "cancelled"
)

// AssetKind mirrors RunAsset.kind.
type AssetKind string

const (
	AssetKindRedactedText  AssetKind = "redacted_text"
	AssetKindRedactedImage AssetKind = "redacted_image"
	AssetKindRedactedPDF   AssetKind = "redacted_pdf"
)

// AssetStatus mirrors RunAsset.status.
type AssetStatus string

const (
	AssetStatusPending    AssetStatus = "pending"
	AssetStatusProcessing AssetStatus = "processing"
	AssetStatusCompleted  AssetStatus = "completed"
	AssetStatusFailed     AssetStatus = "failed"
	AssetStatusBlocked    AssetStatus = "blocked"
)

// ExportStatus mirrors Export.status.
type ExportStatus string

const (
	ExportStatusPending ExportStatus = "pending"
	ExportStatusSuccess ExportStatus = "success"
	ExportStatusFailed  ExportStatus = "failed"
)

// Tenant is an isolated customer organization with its own upstream OAuth
// credentials. OAuthAccess/OAuthRefresh are sealed (vault ciphertext), not
// raw tokens — see pkg/tenant.
type Tenant struct {
	ID           uuid.UUID
	Subdomain    string
	InstallState InstallState
	OAuthAccess  *string
	OAuthRefresh *string
	OAuthExpiry  *time.Time
	OAuthScopes  []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TenantConfig holds a tenant's redaction policy, issue-tracker config, and
// notifier config as validated JSON documents (pkg/tenantconfig).
type TenantConfig struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	RedactionPolicy    json.RawMessage
	IssueTrackerConfig json.RawMessage
	NotifierConfig     json.RawMessage
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Run is a single end-to-end pipeline execution for one (tenant, ticket).
type Run struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	TicketID        string
	Status          RunStatus
	Options         json.RawMessage
	RunHash         *string
	RedactionReport json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RunAsset is one media unit produced during a Run.
type RunAsset struct {
	ID         uuid.UUID
	RunID      uuid.UUID
	Kind       AssetKind
	Status     AssetStatus
	Filename   string
	Mime       string
	StorageRef *string
	Checksum   *string
	Meta       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Export tracks the downstream issue created for a Run. At most one row per
// Run ever carries a non-null DownstreamIssueKey (spec.md invariant 3).
type Export struct {
	ID                 uuid.UUID
	RunID              uuid.UUID
	DownstreamIssueKey *string
	DownstreamIssueURL *string
	NotifierRef        *string
	Status             ExportStatus
	ErrorCode          *string
	ErrorMessage       *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AuditEvent is an append-only record. Meta must never contain raw PII
// (spec.md invariant 5) — see pkg/audit for the enforcement point.
type AuditEvent struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	RunID     *uuid.UUID
	EventType string
	Meta      json.RawMessage
	TS        time.Time
}
