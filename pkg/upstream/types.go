// Package upstream implements the ticket-source client (spec.md §4
// Upstream): fetching a ticket, its comments, and its attachments from the
// upstream ticketing service. Grounded on
// original_source/api/services/integrations/zendesk.py, re-expressed as a
// plain REST client (no Go equivalent of the zenpy SDK exists in the
// example pack) over net/http, following the same http.Client-with-timeout
// shape as pkg/tenant.OAuthClient.
package upstream

import "time"

// Requester is the ticket's reporting user (spec.md §4 Upstream get_ticket:
// "requester").
type Requester struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Ticket is the upstream ticket source's response to get_ticket (spec.md
// §4 Upstream: "get_ticket(id) → {id, subject, description, requester,
// via_channel, tags, timestamps}").
type Ticket struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Requester   Requester `json:"requester"`
	ViaChannel  string    `json:"via_channel"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Comment is one entry from list_comments (spec.md §4 Upstream:
// "list_comments(ticket_id) → [{id, body, public, author, ts}]").
type Comment struct {
	ID       string    `json:"id"`
	Body     string    `json:"body"`
	Public   bool      `json:"public"`
	AuthorID string    `json:"author_id"`
	Ts       time.Time `json:"created_at"`
}

// Attachment is attachment metadata surfaced alongside a ticket's comments,
// grounded on zendesk.py's get_attachments.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentURL  string `json:"content_url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
