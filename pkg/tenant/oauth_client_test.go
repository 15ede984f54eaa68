package tenant

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestAuthorizeURLCarriesStateAndSubdomain(t *testing.T) {
	c := NewOAuthClient("client-id", "client-secret", "https://app.example.com/oauth/callback")
	url := c.AuthorizeURL("acme", "tenant-state-123")

	if !strings.Contains(url, "acme.zendesk.com") {
		t.Errorf("AuthorizeURL = %q, want it to target the acme subdomain", url)
	}
	if !strings.Contains(url, "state=tenant-state-123") {
		t.Errorf("AuthorizeURL = %q, want it to carry the state param", url)
	}
	if !strings.Contains(url, "client_id=client-id") {
		t.Errorf("AuthorizeURL = %q, want it to carry client_id", url)
	}
}

func TestIsInvalidGrantDetectsErrorCode(t *testing.T) {
	err := &oauth2.RetrieveError{ErrorCode: "invalid_grant"}
	if !IsInvalidGrant(err) {
		t.Error("expected invalid_grant error to be recognized")
	}
}

func TestIsInvalidGrantIgnoresOtherErrors(t *testing.T) {
	if IsInvalidGrant(errors.New("network timeout")) {
		t.Error("did not expect a plain error to be recognized as invalid_grant")
	}
	if IsInvalidGrant(&oauth2.RetrieveError{ErrorCode: "server_error"}) {
		t.Error("did not expect server_error to be recognized as invalid_grant")
	}
}
