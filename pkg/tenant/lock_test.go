package tenant

import (
	"testing"

	"github.com/google/uuid"
)

func TestRefreshLockKeyIsDeterministicPerTenant(t *testing.T) {
	id := uuid.New()
	k1 := refreshLockKey(id)
	k2 := refreshLockKey(id)
	if k1 != k2 {
		t.Error("refreshLockKey should be deterministic for the same tenant ID")
	}

	other := refreshLockKey(uuid.New())
	if k1 == other {
		t.Error("different tenants should produce different lock keys")
	}
}
