package notify

import "testing"

func TestIsEnabledReflectsWebhookURL(t *testing.T) {
	if (&WebhookNotifier{}).IsEnabled() {
		t.Error("expected notifier with empty webhook URL to be disabled")
	}
	n := NewWebhookNotifier("https://hooks.slack.com/services/x", nil)
	if !n.IsEnabled() {
		t.Error("expected notifier with a webhook URL to be enabled")
	}
}

func TestDeliveryRefIsDeterministic(t *testing.T) {
	r1 := deliveryRef("https://hooks.slack.com/services/x", "New escalation: ESC-1")
	r2 := deliveryRef("https://hooks.slack.com/services/x", "New escalation: ESC-1")
	if r1 != r2 {
		t.Error("deliveryRef should be deterministic for identical inputs")
	}
	if deliveryRef("https://hooks.slack.com/services/y", "New escalation: ESC-1") == r1 {
		t.Error("expected different webhook URL to change the ref")
	}
}

func TestToSlackBlocksDropsNonBlockValues(t *testing.T) {
	out := toSlackBlocks([]any{"not a block", 42})
	if len(out) != 0 {
		t.Errorf("expected non-Block values to be dropped, got %d entries", len(out))
	}
}
