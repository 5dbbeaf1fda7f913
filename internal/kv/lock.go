package kv

import (
	"context"
	"time"
)

// AcquireLock attempts a non-blocking SET-if-absent lease with the given TTL.
// Used for event-processing leases (spec.md §4.1) and for generic named
// resources such as "event:{id}".
func (s *Store) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(resource), "1", ttl).Result()
}

// ReleaseLock drops a lease early (on ack/nack), rather than waiting for TTL
// expiry.
func (s *Store) ReleaseLock(ctx context.Context, resource string) error {
	return s.rdb.Del(ctx, lockKey(resource)).Err()
}

// AcquireSessionLock polls a set-if-absent session write-lock every
// pollInterval, up to maxWait, per spec.md §4.10. Returns true if acquired.
func (s *Store) AcquireSessionLock(ctx context.Context, sessionKey string, ttl, pollInterval, maxWait time.Duration) (bool, error) {
	deadline := time.Now().Add(maxWait)
	key := sessionLockKey(sessionKey)
	for {
		ok, err := s.rdb.SetNX(ctx, key, "1", ttl).Result()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// ReleaseSessionLock drops a session write-lock.
func (s *Store) ReleaseSessionLock(ctx context.Context, sessionKey string) error {
	return s.rdb.Del(ctx, sessionLockKey(sessionKey)).Err()
}
