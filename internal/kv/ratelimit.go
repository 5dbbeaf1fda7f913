package kv

import (
	"context"
	"time"
)

// AllowRateLimit implements the counter-with-TTL sliding window from
// spec.md §4.5: the first increment in a window sets its TTL; the
// operation is allowed while the resulting count is <= max.
func (s *Store) AllowRateLimit(ctx context.Context, tool string, max int, window time.Duration) (bool, error) {
	key := rateLimitKey(tool, int(window.Seconds()))
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(max), nil
}

// PatternCooldownActive reports whether a pattern's cooldown key is still
// present (spec.md §4.12: 2-hour cooldown per anomalous pattern).
func (s *Store) PatternCooldownActive(ctx context.Context, pattern string) (bool, error) {
	n, err := s.rdb.Exists(ctx, patternCooldownKey(pattern)).Result()
	return n > 0, err
}

// SetPatternCooldown starts a pattern's cooldown window.
func (s *Store) SetPatternCooldown(ctx context.Context, pattern string, cooldown time.Duration) error {
	return s.rdb.Set(ctx, patternCooldownKey(pattern), "1", cooldown).Err()
}

// LLMProviderOverride reads the operator-set provider-override flag, or
// ("", nil) if unset. internal/llm checks this before each call and
// invalidates its cached client handle when the value changes
// (spec.md §9 "Singletons with runtime switching").
func (s *Store) LLMProviderOverride(ctx context.Context) (string, error) {
	val, err := s.rdb.Get(ctx, llmProviderKey).Result()
	if err != nil {
		return "", ignoreNotFound(err)
	}
	return val, nil
}

// SetLLMProviderOverride sets or clears (empty string) the provider
// override flag.
func (s *Store) SetLLMProviderOverride(ctx context.Context, provider string) error {
	if provider == "" {
		return s.rdb.Del(ctx, llmProviderKey).Err()
	}
	return s.rdb.Set(ctx, llmProviderKey, provider, 0).Err()
}

func ignoreNotFound(err error) error {
	if err == nil {
		return nil
	}
	if err.Error() == "redis: nil" {
		return nil
	}
	return err
}
