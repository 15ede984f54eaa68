package export

import "context"

// NotificationPayload is the fire-and-forget escalation notice posted after
// a successful export (spec.md §4 Notifier: "POST webhook_url with JSON
// {text, blocks?}").
type NotificationPayload struct {
	Text   string
	Blocks []any
}

// Notifier posts an escalation notice to a tenant-configured webhook.
// Failure is logged, never fails the export (spec.md §4.8 step 5: "at-least-
// once notification semantics; the issue is already durable").
type Notifier interface {
	Post(ctx context.Context, payload NotificationPayload) (ref string, err error)
}
