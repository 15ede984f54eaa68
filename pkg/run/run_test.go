package run

import (
	"testing"

	"github.com/google/uuid"

	"github.com/frozosec/escalatesafe/internal/db"
)

func TestRunHashIsDeterministic(t *testing.T) {
	tenantID := uuid.New()
	h1 := RunHash(tenantID, "ticket-1", []byte("sanitized body"))
	h2 := RunHash(tenantID, "ticket-1", []byte("sanitized body"))
	if h1 != h2 {
		t.Error("RunHash should be deterministic for identical inputs")
	}
}

func TestRunHashVariesByTicketAndPayload(t *testing.T) {
	tenantID := uuid.New()
	base := RunHash(tenantID, "ticket-1", []byte("body"))

	if RunHash(tenantID, "ticket-2", []byte("body")) == base {
		t.Error("expected different ticket_id to change run_hash")
	}
	if RunHash(tenantID, "ticket-1", []byte("other body")) == base {
		t.Error("expected different sanitized payload to change run_hash")
	}
	if RunHash(uuid.New(), "ticket-1", []byte("body")) == base {
		t.Error("expected different tenant_id to change run_hash")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []db.RunStatus{db.RunStatusExported, db.RunStatusFailed, db.RunStatusCancelled}
	for _, s := range terminal {
		if !isTerminal(s) {
			t.Errorf("expected %q to be terminal", s)
		}
	}

	nonTerminal := []db.RunStatus{db.RunStatusPending, db.RunStatusProcessing, db.RunStatusReadyForReview, db.RunStatusExporting}
	for _, s := range nonTerminal {
		if isTerminal(s) {
			t.Errorf("expected %q to be non-terminal", s)
		}
	}
}
