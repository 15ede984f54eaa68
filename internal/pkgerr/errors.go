// Package pkgerr defines the typed error categories shared across the
// redaction and export pipeline so HTTP and orchestrator code can branch on
// category instead of string-matching error messages.
package pkgerr

import (
	"errors"
	"fmt"
)

// Category classifies an error into one of the pipeline's error taxonomy
// buckets. Components that need to decide retry/abort/notify behavior
// switch on Category rather than inspecting error strings.
type Category string

const (
	// CategoryValidation marks malformed input: bad tenant config, an
	// asset that fails MIME/size checks, an invalid state transition.
	CategoryValidation Category = "validation"

	// CategoryUpstream marks failures talking to the upstream ticketing
	// service (fetch ticket, fetch attachment).
	CategoryUpstream Category = "upstream"

	// CategoryDownstream marks failures talking to the downstream issue
	// tracker during export.
	CategoryDownstream Category = "downstream"

	// CategoryAuth marks OAuth token failures: expired refresh token,
	// invalid_grant, revoked access.
	CategoryAuth Category = "auth"

	// CategoryDetection marks failures inside the detector/redactor/OCR/
	// PDF pipelines themselves (corrupt PDF, OCR engine failure).
	CategoryDetection Category = "detection"

	// CategoryLeak marks a leak-verifier rejection: a produced artifact
	// still contains a PII pattern and must not be released.
	CategoryLeak Category = "leak"

	// CategoryConflict marks a state machine conflict: double-approve,
	// stale transition, idempotent re-export.
	CategoryConflict Category = "conflict"

	// CategoryInternal marks everything else: storage errors, encoding
	// bugs, unreachable branches.
	CategoryInternal Category = "internal"
)

// Error wraps an underlying error with a Category and a human-readable
// message. It implements Unwrap so errors.Is/errors.As see through it to
// the wrapped cause.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a category error with no wrapped cause.
func New(cat Category, message string) *Error {
	return &Error{Category: cat, Message: message}
}

// Wrap builds a category error around an existing error. If err is nil,
// Wrap returns nil so call sites can do `return pkgerr.Wrap(cat, msg, err)`
// unconditionally.
func Wrap(cat Category, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Category: cat, Message: message, Err: err}
}

// CategoryOf extracts the Category from err, walking the Unwrap chain. It
// returns CategoryInternal if err does not wrap a *Error.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryInternal
}

// Is reports whether err carries the given category anywhere in its chain.
func Is(err error, cat Category) bool {
	return CategoryOf(err) == cat
}
