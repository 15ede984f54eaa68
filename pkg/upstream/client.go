package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/frozosec/escalatesafe/internal/pkgerr"
)

// requestTimeout bounds every upstream call (zendesk.py's
// download_attachment uses a 30s timeout; ticket/comment fetches here share
// the same budget for simplicity).
const requestTimeout = 30 * time.Second

// TokenSource returns a valid bearer token for subdomain, refreshing it if
// necessary. Satisfied by pkg/tenant.Manager.ValidToken bound to a tenant.
type TokenSource func(ctx context.Context) (string, error)

// Client is the ticket-source client consumed by the ingest pipeline
// (spec.md §4 Upstream). ZendeskClient is the only implementation; the
// interface exists so the ingest pipeline does not depend on a concrete
// ticketing vendor.
type Client interface {
	GetTicket(ctx context.Context, ticketID string) (Ticket, error)
	ListComments(ctx context.Context, ticketID string, includeInternal bool, lastNPublic int) ([]Comment, error)
	ListAttachments(ctx context.Context, ticketID string) ([]Attachment, error)
	FetchAttachment(ctx context.Context, contentURL string) ([]byte, error)
}

// ZendeskClient implements Client against the Zendesk REST API.
type ZendeskClient struct {
	subdomain  string
	tokens     TokenSource
	httpClient *http.Client
}

// NewZendeskClient builds a ZendeskClient for subdomain, pulling a bearer
// token from tokens on every call.
func NewZendeskClient(subdomain string, tokens TokenSource) *ZendeskClient {
	return &ZendeskClient{
		subdomain:  subdomain,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *ZendeskClient) baseURL() string {
	return fmt.Sprintf("https://%s.zendesk.com/api/v2", c.subdomain)
}

func (c *ZendeskClient) doJSON(ctx context.Context, method, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryUpstream, "building upstream request", err)
	}

	token, err := c.tokens(ctx)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryAuth, "obtaining upstream token", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerr.Wrap(pkgerr.CategoryUpstream, "calling upstream", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return pkgerr.New(pkgerr.CategoryUpstream, fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerr.Wrap(pkgerr.CategoryUpstream, "decoding upstream response", err)
	}
	return nil
}

// ticketEnvelope and its siblings mirror the Zendesk API's {"ticket": ...}
// response wrapping.
type ticketEnvelope struct {
	Ticket struct {
		ID          int64    `json:"id"`
		Subject     string   `json:"subject"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
		RequesterID int64    `json:"requester_id"`
		Via         struct {
			Channel string `json:"channel"`
		} `json:"via"`
	} `json:"ticket"`
}

type userEnvelope struct {
	User struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// GetTicket implements Client (spec.md §4 Upstream get_ticket).
func (c *ZendeskClient) GetTicket(ctx context.Context, ticketID string) (Ticket, error) {
	var env ticketEnvelope
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/tickets/%s.json", c.baseURL(), ticketID), &env); err != nil {
		return Ticket{}, err
	}

	var userEnv userEnvelope
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/users/%d.json", c.baseURL(), env.Ticket.RequesterID), &userEnv); err != nil {
		return Ticket{}, err
	}

	return Ticket{
		ID:          fmt.Sprintf("%d", env.Ticket.ID),
		Subject:     env.Ticket.Subject,
		Description: env.Ticket.Description,
		Requester: Requester{
			ID:    fmt.Sprintf("%d", userEnv.User.ID),
			Name:  userEnv.User.Name,
			Email: userEnv.User.Email,
		},
		ViaChannel: env.Ticket.Via.Channel,
		Tags:       env.Ticket.Tags,
		CreatedAt:  env.Ticket.CreatedAt,
		UpdatedAt:  env.Ticket.UpdatedAt,
	}, nil
}

type commentsEnvelope struct {
	Comments []struct {
		ID        int64     `json:"id"`
		Body      string    `json:"body"`
		Public    bool      `json:"public"`
		AuthorID  int64     `json:"author_id"`
		CreatedAt time.Time `json:"created_at"`
		Attachments []struct {
			ID          int64  `json:"id"`
			FileName    string `json:"file_name"`
			ContentURL  string `json:"content_url"`
			ContentType string `json:"content_type"`
			Size        int64  `json:"size"`
		} `json:"attachments"`
	} `json:"comments"`
}

// ListComments implements Client (spec.md §4 Upstream list_comments),
// filtering to the last N public comments plus internal notes when
// includeInternal is set — mirrors zendesk.py's get_comments.
func (c *ZendeskClient) ListComments(ctx context.Context, ticketID string, includeInternal bool, lastNPublic int) ([]Comment, error) {
	var env commentsEnvelope
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/tickets/%s/comments.json", c.baseURL(), ticketID), &env); err != nil {
		return nil, err
	}

	var all []Comment
	for _, rc := range env.Comments {
		all = append(all, Comment{
			ID:       fmt.Sprintf("%d", rc.ID),
			Body:     rc.Body,
			Public:   rc.Public,
			AuthorID: fmt.Sprintf("%d", rc.AuthorID),
			Ts:       rc.CreatedAt,
		})
	}

	return selectComments(all, includeInternal, lastNPublic), nil
}

// selectComments applies the last-N-public / internal-notes-opt-in
// filtering zendesk.py's get_comments performs, split out as a pure
// function so it can be tested without an HTTP round trip. A lastNPublic
// of zero or less keeps every public comment.
func selectComments(all []Comment, includeInternal bool, lastNPublic int) []Comment {
	var public, internal []Comment
	for _, c := range all {
		if c.Public {
			public = append(public, c)
		} else {
			internal = append(internal, c)
		}
	}

	if lastNPublic > 0 && lastNPublic < len(public) {
		public = public[len(public)-lastNPublic:]
	}

	out := append([]Comment{}, public...)
	if includeInternal {
		out = append(out, internal...)
	}
	return out
}

// ListAttachments implements Client, grounded on zendesk.py's
// get_attachments walking every comment's attachment list.
func (c *ZendeskClient) ListAttachments(ctx context.Context, ticketID string) ([]Attachment, error) {
	var env commentsEnvelope
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/tickets/%s/comments.json", c.baseURL(), ticketID), &env); err != nil {
		return nil, err
	}

	var out []Attachment
	for _, rc := range env.Comments {
		for _, a := range rc.Attachments {
			out = append(out, Attachment{
				ID:          fmt.Sprintf("%d", a.ID),
				Filename:    a.FileName,
				ContentURL:  a.ContentURL,
				ContentType: a.ContentType,
				Size:        a.Size,
			})
		}
	}
	return out, nil
}

// FetchAttachment downloads attachment bytes (spec.md §4 Upstream
// fetch_attachment(url) → bytes).
func (c *ZendeskClient) FetchAttachment(ctx context.Context, contentURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.CategoryUpstream, "building attachment request", err)
	}

	token, err := c.tokens(ctx)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.CategoryAuth, "obtaining upstream token", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.CategoryUpstream, "downloading attachment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, pkgerr.New(pkgerr.CategoryUpstream, fmt.Sprintf("attachment download returned %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.CategoryUpstream, "reading attachment body", err)
	}
	return data, nil
}
