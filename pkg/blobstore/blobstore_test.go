package blobstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	runID := uuid.New()
	ref, checksum, err := store.Put(context.Background(), runID, "ticket.txt", []byte("sanitized body"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref != Key(runID, "ticket.txt") {
		t.Errorf("ref = %q, want %q", ref, Key(runID, "ticket.txt"))
	}
	if checksum == "" {
		t.Error("expected non-empty checksum")
	}

	got, err := store.Get(context.Background(), ref)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "sanitized body" {
		t.Errorf("Get = %q, want %q", got, "sanitized body")
	}
}

func TestGetMissingBlobErrors(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	if _, err := store.Get(context.Background(), "sanitized/does-not-exist/foo.txt"); err == nil {
		t.Error("expected error for missing blob")
	}
}

func TestPutOriginalThenGetRoundTrips(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	runID := uuid.New()
	ref, err := store.PutOriginal(context.Background(), runID, "screenshot.png", []byte("raw bytes"))
	if err != nil {
		t.Fatalf("PutOriginal: %v", err)
	}

	got, err := store.Get(context.Background(), ref)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "raw bytes" {
		t.Errorf("Get = %q, want %q", got, "raw bytes")
	}

	sanitizedRef, _, err := store.Put(context.Background(), runID, "screenshot.png", []byte("sanitized bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if sanitizedRef == ref {
		t.Error("expected original and sanitized refs to live under distinct keys")
	}
}

func TestKeyIsStableAndRunScoped(t *testing.T) {
	runID := uuid.New()
	k1 := Key(runID, "a.txt")
	k2 := Key(runID, "a.txt")
	if k1 != k2 {
		t.Error("Key should be deterministic for the same (runID, filename)")
	}
	if Key(uuid.New(), "a.txt") == k1 {
		t.Error("Key should vary by runID")
	}
}
