// Package kv wraps Redis as the system's KV/queue/pub-sub store: the
// priority sorted set, event payload cache, dedup keys, leases, session
// write-locks, rate-limit counters, and small control flags (pause,
// provider override, pattern cooldowns).
//
// Key names are carried over verbatim from the Python original
// (original_source/src/agent1/queue/events.go) so operators inspecting
// Redis directly see the same layout regardless of which implementation is
// running.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey        = "agent1:queue:events"
	eventHashPrefix = "agent1:event:"
	dedupPrefix     = "agent1:dedup:"
	lockPrefix      = "agent1:lock:"
	rateLimitPrefix = "agent1:ratelimit:"
	sessionLockPrefix = "agent1:session:lock:"
	pausedKey       = "agent1:queue:paused"
	llmProviderKey  = "agent1:llm_provider"
	driveMtimePrefix = "agent1:drive:mtime:"
	driveFolderPrefix = "agent1:drive:folder_files:"
	patternCooldownPrefix = "agent1:pattern:"

	// EventTTL is how long a published event payload survives in Redis
	// before it is considered lost (should always be consumed/acked well
	// before this).
	EventTTL = 24 * time.Hour
	// DriveSnapshotTTL bounds how long per-folder file-set snapshots persist.
	DriveSnapshotTTL = 7 * 24 * time.Hour
)

func eventHashKey(id string) string { return eventHashPrefix + id }
func dedupKey(source, identifier string) string {
	return fmt.Sprintf("%s%s:%s", dedupPrefix, source, identifier)
}
func lockKey(resource string) string        { return lockPrefix + resource }
func sessionLockKey(sessionKey string) string { return sessionLockPrefix + sessionKey }
func rateLimitKey(tool string, windowSeconds int) string {
	return fmt.Sprintf("%s%s:%d", rateLimitPrefix, tool, windowSeconds)
}
func driveMtimeKey(id string) string  { return driveMtimePrefix + id }
func driveFolderKey(id string) string { return driveFolderPrefix + id }
func patternCooldownKey(pattern string) string { return patternCooldownPrefix + pattern }

// Store wraps a redis.UniversalClient (works against a single node, a
// cluster, or miniredis in tests) with the key conventions above.
type Store struct {
	rdb redis.UniversalClient
}

// New wraps an existing Redis client.
func New(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

// Ping verifies connectivity, used by the /health and /status endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
