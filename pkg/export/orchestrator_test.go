package export

import "testing"

func TestTrackerErrorRetryable(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{0, true},   // network failure
		{429, true}, // rate limited
		{500, true},
		{503, true},
		{401, false},
		{403, false},
		{404, false},
		{400, false},
	}
	for _, c := range cases {
		e := &TrackerError{StatusCode: c.status}
		if got := e.Retryable(); got != c.retryable {
			t.Errorf("status %d: Retryable() = %v, want %v", c.status, got, c.retryable)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 120); got != "short" {
		t.Errorf("truncate should not alter strings under the limit, got %q", got)
	}

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	got := truncate(string(long), maxSummaryLen)
	if len(got) != maxSummaryLen {
		t.Errorf("truncate length = %d, want %d", len(got), maxSummaryLen)
	}
}

func TestDerefString(t *testing.T) {
	if got := derefString(nil); got != "" {
		t.Errorf("derefString(nil) = %q, want empty", got)
	}
	s := "value"
	if got := derefString(&s); got != "value" {
		t.Errorf("derefString(&s) = %q, want %q", got, "value")
	}
}
