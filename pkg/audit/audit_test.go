package audit

import (
	"testing"

	"github.com/google/uuid"
)

func TestLogDropsWhenFull(t *testing.T) {
	w := NewWriter(nil, nil, nil)
	// Don't start the background goroutine — nothing drains the channel.

	for i := 0; i < bufferSize; i++ {
		w.Log(Entry{TenantID: uuid.New(), EventType: "test"})
	}

	// The next log should be dropped (non-blocking), not block the test.
	w.Log(Entry{TenantID: uuid.New(), EventType: "dropped"})

	if len(w.entries) != bufferSize {
		t.Errorf("buffer size = %d, want %d", len(w.entries), bufferSize)
	}
}

func TestLogEnqueuesEntryVerbatim(t *testing.T) {
	w := NewWriter(nil, nil, nil)
	// Don't start — read directly from the channel.

	tenantID := uuid.New()
	w.Log(Entry{TenantID: tenantID, EventType: EventRunCreated})

	entry := <-w.entries
	if entry.TenantID != tenantID {
		t.Errorf("TenantID = %v, want %v", entry.TenantID, tenantID)
	}
	if entry.EventType != EventRunCreated {
		t.Errorf("EventType = %q, want %q", entry.EventType, EventRunCreated)
	}
}
