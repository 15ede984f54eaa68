// Package export implements the Export Orchestrator (C8): approve a
// ready_for_review Run, create the downstream issue with typed-error-aware
// exponential backoff, attach sanitized assets, and fire-and-forget notify.
// Retry policy is grounded on
// original_source/api/services/integrations/jira.py's retry_with_backoff
// (base 1s, factor 2, max 5 attempts, never retry 401/403/404), expressed
// against the teacher's wired-but-previously-unused
// github.com/cenkalti/backoff/v5 dependency instead of a hand-rolled sleep
// loop.
package export

import "context"

// Issue is the downstream issue-tracker's response to CreateIssue (spec.md
// §4 Downstream: "create_issue(...) → {key, id, url}").
type Issue struct {
	Key string
	ID  string
	URL string
}

// CreateIssueParams is the payload for Tracker.CreateIssue (spec.md §4
// Downstream create_issue operation).
type CreateIssueParams struct {
	ProjectKey   string
	Summary      string // must be ≤120 chars; Orchestrator truncates before calling Tracker
	Description  string
	IssueType    string
	Priority     string
	Labels       []string
	Components   []string
	CustomFields map[string]any
}

// Attachment is the downstream issue-tracker's response to Attach (spec.md
// §4 Downstream: "attach(issue_key, filename, bytes) → {id, size}").
type Attachment struct {
	ID   string
	Size int64
}

// ServerInfo is the downstream issue-tracker's response to ServerInfo
// (spec.md §4 Downstream: "server_info() → {title, version, build}"), used
// by health checks.
type ServerInfo struct {
	Title   string
	Version string
	Build   string
}

// Tracker is the downstream issue-tracker surface the Orchestrator drives.
// Implementations wrap a specific issue tracker (Jira, Linear, GitHub
// Issues, ...); the Orchestrator itself is tracker-agnostic.
type Tracker interface {
	CreateIssue(ctx context.Context, params CreateIssueParams) (Issue, error)
	Attach(ctx context.Context, issueKey, filename string, data []byte) (Attachment, error)
	ServerInfo(ctx context.Context) (ServerInfo, error)
}

// TrackerError classifies a Tracker failure by HTTP-shaped status so the
// Orchestrator's backoff policy can decide whether to retry (spec.md §4.8
// step 3: "retry only on transient categories (NETWORK, 5xx, 429); never
// retry on 401/403/404").
type TrackerError struct {
	StatusCode int
	Err        error
}

func (e *TrackerError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "tracker error"
}

func (e *TrackerError) Unwrap() error { return e.Err }

// Retryable reports whether the orchestrator should retry a failed
// CreateIssue/Attach call: network-level failures (StatusCode 0), 5xx, and
// 429. 401/403/404 and any other 4xx are permanent.
func (e *TrackerError) Retryable() bool {
	switch {
	case e.StatusCode == 0: // no HTTP response reached the client: network failure
		return true
	case e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}
