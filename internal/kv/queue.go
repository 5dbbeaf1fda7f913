package kv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty indicates the priority sorted set has no members.
var ErrEmpty = errors.New("kv: queue empty")

// EnqueueScore adds id to the priority sorted set and caches its payload
// under a TTL'd key, matching publish_event's two Redis writes.
func (s *Store) EnqueueScore(ctx context.Context, id string, score float64, payloadJSON string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, eventHashKey(id), payloadJSON, EventTTL)
	pipe.ZAdd(ctx, queueKey, redis.Z{Score: score, Member: id})
	_, err := pipe.Exec(ctx)
	return err
}

// PopLowestScore removes and returns the lowest-scored (highest-priority,
// earliest) member id, or ErrEmpty if the set is empty.
func (s *Store) PopLowestScore(ctx context.Context) (string, error) {
	results, err := s.rdb.ZPopMin(ctx, queueKey, 1).Result()
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", ErrEmpty
	}
	id, ok := results[0].Member.(string)
	if !ok {
		return "", errors.New("kv: unexpected queue member type")
	}
	return id, nil
}

// GetPayload fetches a cached event payload by id. Returns redis.Nil if the
// key has expired or was never set (e.g. payload TTL raced the queue entry).
func (s *Store) GetPayload(ctx context.Context, id string) (string, error) {
	return s.rdb.Get(ctx, eventHashKey(id)).Result()
}

// DeletePayload removes the cached event payload, done on ack.
func (s *Store) DeletePayload(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, eventHashKey(id)).Err()
}

// QueueDepth returns the number of members currently in the priority set,
// used by the /admin/status endpoint.
func (s *Store) QueueDepth(ctx context.Context) (int64, error) {
	return s.rdb.ZCard(ctx, queueKey).Result()
}

// IsPaused reports whether the well-known pause flag is present.
func (s *Store) IsPaused(ctx context.Context) (bool, error) {
	n, err := s.rdb.Exists(ctx, pausedKey).Result()
	return n > 0, err
}

// Pause sets the pause flag; consumers refuse new work until Resume.
func (s *Store) Pause(ctx context.Context) error {
	return s.rdb.Set(ctx, pausedKey, "1", 0).Err()
}

// Resume clears the pause flag.
func (s *Store) Resume(ctx context.Context) error {
	return s.rdb.Del(ctx, pausedKey).Err()
}
