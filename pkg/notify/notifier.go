// Package notify implements the Notifier (spec.md §4 Notifier): a
// fire-and-forget webhook post announcing a completed export. Grounded on
// wisbric-nightowl/pkg/slack/notifier.go's IsEnabled/logging shape, adapted
// from a bot-token+channel client to the spec's per-tenant incoming-webhook
// model via slack-go/slack's PostWebhookContext.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"

	"github.com/frozosec/escalatesafe/pkg/export"
)

// WebhookNotifier posts escalation notices to a tenant's configured
// incoming webhook URL (spec.md §4 Notifier: "POST webhook_url with JSON
// {text, blocks?}. HTTPS only; URL validated against allowlisted host
// pattern" — the allowlist check itself lives in pkg/tenantconfig, run once
// at config-save time; this type trusts the URL it is given).
type WebhookNotifier struct {
	webhookURL string
	logger     *slog.Logger
}

// NewWebhookNotifier builds a WebhookNotifier for a single tenant's webhook
// URL. If webhookURL is empty the notifier is a no-op, matching the
// teacher's IsEnabled pattern for an unconfigured integration.
func NewWebhookNotifier(webhookURL string, logger *slog.Logger) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{webhookURL: webhookURL, logger: logger}
}

// IsEnabled reports whether this tenant has a webhook configured.
func (n *WebhookNotifier) IsEnabled() bool {
	return n.webhookURL != ""
}

// Post implements export.Notifier.
func (n *WebhookNotifier) Post(ctx context.Context, payload export.NotificationPayload) (string, error) {
	if !n.IsEnabled() {
		n.logger.Debug("webhook notifier disabled, skipping post", "text", payload.Text)
		return "", nil
	}

	msg := &goslack.WebhookMessage{Text: payload.Text}
	if len(payload.Blocks) > 0 {
		msg.Blocks = &goslack.Blocks{BlockSet: toSlackBlocks(payload.Blocks)}
	}

	if err := goslack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return "", fmt.Errorf("posting webhook notification: %w", err)
	}

	ref := deliveryRef(n.webhookURL, payload.Text)
	n.logger.Info("posted escalation notification", "ref", ref)
	return ref, nil
}

// toSlackBlocks accepts pre-built slack.Block values passed through
// payload.Blocks (typed as []any so export doesn't import slack-go). Any
// value that isn't already a goslack.Block is dropped rather than panicking
// a fire-and-forget notify path.
func toSlackBlocks(blocks []any) []goslack.Block {
	out := make([]goslack.Block, 0, len(blocks))
	for _, b := range blocks {
		if sb, ok := b.(goslack.Block); ok {
			out = append(out, sb)
		}
	}
	return out
}

// deliveryRef derives a stable reference for a posted notification, since
// Slack incoming webhooks return no message identifier to record
// (spec.md §3 Export.notifier_ref is best-effort for a webhook-backed
// notifier).
func deliveryRef(webhookURL, text string) string {
	h := sha256.Sum256([]byte(webhookURL + "|" + text))
	return hex.EncodeToString(h[:8])
}
