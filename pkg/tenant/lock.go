package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// lockPollInterval is how often a contended caller retries acquiring the
// per-tenant refresh lock.
const lockPollInterval = 100 * time.Millisecond

// refreshLockTTL bounds how long a per-tenant refresh lock may be held —
// comfortably above oauthTimeout so a legitimate refresh never loses its
// own lock mid-call.
const refreshLockTTL = oauthTimeout + oauthTimeout

func refreshLockKey(tenantID uuid.UUID) string {
	return "escalatesafe:oauth-refresh-lock:" + tenantID.String()
}

// withRefreshLock serializes concurrent refreshes for one tenant (spec.md
// §5: "the Token Manager's refresh critical section is mutex-guarded per
// tenant"), so two requests racing to refresh an about-to-expire token
// don't both hit the upstream and potentially rotate the refresh token out
// from under each other.
func withRefreshLock(ctx context.Context, rdb *redis.Client, tenantID uuid.UUID, fn func() error) error {
	key := refreshLockKey(tenantID)
	acquired, err := rdb.SetNX(ctx, key, "1", refreshLockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquiring oauth refresh lock: %w", err)
	}
	if !acquired {
		// Another request is already refreshing this tenant's token; block
		// until it releases rather than racing the upstream call.
		return waitForLockRelease(ctx, rdb, key, fn)
	}
	defer rdb.Del(ctx, key)
	return fn()
}

// waitForLockRelease blocks until the lock is free, then runs fn under a
// freshly-acquired lock. Used only on lock contention, which is rare (two
// requests for the same tenant racing a refresh within the same second).
func waitForLockRelease(ctx context.Context, rdb *redis.Client, key string, fn func() error) error {
	for {
		acquired, err := rdb.SetNX(ctx, key, "1", refreshLockTTL).Result()
		if err != nil {
			return fmt.Errorf("acquiring oauth refresh lock: %w", err)
		}
		if acquired {
			defer rdb.Del(ctx, key)
			return fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
