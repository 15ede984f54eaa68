// Package blobstore implements the content-addressed storage for sanitized
// artifacts (spec.md §5: "The blob store is content-addressed by
// run_id/filename"). No object-storage client library is wired anywhere in
// the example pack (see DESIGN.md), so this is a local-disk implementation
// behind the same Store interface a future S3/GCS-backed implementation
// would satisfy — every call site depends on the interface, not this file.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/frozosec/escalatesafe/internal/pkgerr"
)

// Store persists and retrieves sanitized artifact bytes.
type Store interface {
	// Put writes data under the content-addressed key for (runID, filename)
	// and returns the storage ref and SHA-256 checksum of the stored bytes.
	Put(ctx context.Context, runID uuid.UUID, filename string, data []byte) (storageRef, checksum string, err error)

	// PutOriginal writes the as-fetched attachment bytes the ingest
	// pipeline downloads from the upstream ticketing service, under a
	// separate prefix from the sanitized output Put writes — the worker
	// tier reads this ref back to run the redaction pipeline against it.
	PutOriginal(ctx context.Context, runID uuid.UUID, filename string, data []byte) (storageRef string, err error)

	// Get retrieves previously-stored bytes by storage ref.
	Get(ctx context.Context, storageRef string) ([]byte, error)
}

// FSStore is a Store backed by a local directory tree, keyed
// sanitized/{run_id}/{filename}.
type FSStore struct {
	root string
}

// NewFSStore builds an FSStore rooted at dir, creating it if absent.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, pkgerr.Wrap(pkgerr.CategoryInternal, "creating blobstore root", err)
	}
	return &FSStore{root: dir}, nil
}

// Put implements Store.
func (s *FSStore) Put(ctx context.Context, runID uuid.UUID, filename string, data []byte) (string, string, error) {
	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	default:
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	ref := filepath.Join("sanitized", runID.String(), filename)
	fullPath := filepath.Join(s.root, ref)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", "", pkgerr.Wrap(pkgerr.CategoryInternal, "creating blobstore run directory", err)
	}
	if err := os.WriteFile(fullPath, data, 0o640); err != nil {
		return "", "", pkgerr.Wrap(pkgerr.CategoryInternal, "writing blob", err)
	}

	return ref, checksum, nil
}

// PutOriginal implements Store, keyed originals/{run_id}/{filename}.
func (s *FSStore) PutOriginal(ctx context.Context, runID uuid.UUID, filename string, data []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	ref := filepath.Join("originals", runID.String(), filename)
	fullPath := filepath.Join(s.root, ref)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", pkgerr.Wrap(pkgerr.CategoryInternal, "creating blobstore run directory", err)
	}
	if err := os.WriteFile(fullPath, data, 0o640); err != nil {
		return "", pkgerr.Wrap(pkgerr.CategoryInternal, "writing original blob", err)
	}

	return ref, nil
}

// Get implements Store.
func (s *FSStore) Get(ctx context.Context, storageRef string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath := filepath.Join(s.root, storageRef)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerr.New(pkgerr.CategoryInternal, "blob not found: "+storageRef)
		}
		return nil, pkgerr.Wrap(pkgerr.CategoryInternal, "reading blob", err)
	}
	return data, nil
}

// Key builds the content-addressed ref for (runID, filename) without
// touching storage — used when the caller needs to predict a ref before
// writing (e.g. to record it in an audit event ahead of the Put call).
func Key(runID uuid.UUID, filename string) string {
	return filepath.Join("sanitized", runID.String(), filename)
}
