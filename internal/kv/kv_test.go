package kv_test

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicebob/miniredis/v2"

	"github.com/sukru-can1/agent1go/internal/kv"
)

func newTestStore(t *testing.T) *kv.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return kv.New(rdb)
}

func TestIsDuplicateAndMarkProcessed(t *testing.T) {
	s := newTestStore(t)

	dup, err := s.IsDuplicate(t.Context(), "mail", "msg-1")
	require.NoError(t, err)
	assert.False(t, dup)

	require.NoError(t, s.MarkProcessed(t.Context(), "mail", "msg-1", time.Minute))

	dup, err = s.IsDuplicate(t.Context(), "mail", "msg-1")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestDriveFolderSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	snapshot, err := s.DriveFolderSnapshot(t.Context(), "folder-1")
	require.NoError(t, err)
	assert.Empty(t, snapshot)

	require.NoError(t, s.SetDriveFolderSnapshot(t.Context(), "folder-1", []string{"file-a", "file-b"}))

	snapshot, err = s.DriveFolderSnapshot(t.Context(), "folder-1")
	require.NoError(t, err)
	assert.True(t, snapshot["file-a"])
	assert.True(t, snapshot["file-b"])
	assert.Len(t, snapshot, 2)

	require.NoError(t, s.SetDriveFolderSnapshot(t.Context(), "folder-1", []string{"file-c"}))
	snapshot, err = s.DriveFolderSnapshot(t.Context(), "folder-1")
	require.NoError(t, err)
	assert.Len(t, snapshot, 1)
	assert.True(t, snapshot["file-c"])
}

func TestDriveFileMtimeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetDriveFileMtime(t.Context(), "file-1", "2026-07-30T10:00:00Z"))

	mtime, err := s.DriveFileMtime(t.Context(), "file-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-30T10:00:00Z", mtime)
}

func TestAcquireAndReleaseLock(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.AcquireLock(t.Context(), "event:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireLock(t.Context(), "event:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire before release must fail")

	require.NoError(t, s.ReleaseLock(t.Context(), "event:1"))

	ok, err = s.AcquireLock(t.Context(), "event:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "acquire after release must succeed")
}

func TestAcquireSessionLockWaitsThenTimesOut(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.AcquireSessionLock(t.Context(), "session-1", time.Minute, 5*time.Millisecond, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A second waiter should give up once maxWait elapses, since the
	// first holder's lease (1 minute) outlives the short maxWait here.
	ok, err = s.AcquireSessionLock(t.Context(), "session-1", time.Minute, 5*time.Millisecond, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcquireSessionLockSucceedsAfterRelease(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.AcquireSessionLock(t.Context(), "session-2", time.Minute, 5*time.Millisecond, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = s.ReleaseSessionLock(t.Context(), "session-2")
	}()

	ok, err = s.AcquireSessionLock(t.Context(), "session-2", time.Minute, 5*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnqueueScorePopLowestScoreOrdering(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.EnqueueScore(t.Context(), "low-priority", 10, `{"id":"low-priority"}`))
	require.NoError(t, s.EnqueueScore(t.Context(), "high-priority", 1, `{"id":"high-priority"}`))

	depth, err := s.QueueDepth(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)

	id, err := s.PopLowestScore(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "high-priority", id)

	id, err = s.PopLowestScore(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "low-priority", id)

	_, err = s.PopLowestScore(t.Context())
	assert.Equal(t, kv.ErrEmpty, err)
}

func TestGetPayloadAndDeletePayload(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnqueueScore(t.Context(), "ev-1", 1, `{"id":"ev-1"}`))

	payload, err := s.GetPayload(t.Context(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"ev-1"}`, payload)

	require.NoError(t, s.DeletePayload(t.Context(), "ev-1"))
	_, err = s.GetPayload(t.Context(), "ev-1")
	assert.Equal(t, redis.Nil, err)
}

func TestPauseResumeRoundTrip(t *testing.T) {
	s := newTestStore(t)

	paused, err := s.IsPaused(t.Context())
	require.NoError(t, err)
	assert.False(t, paused)

	require.NoError(t, s.Pause(t.Context()))
	paused, err = s.IsPaused(t.Context())
	require.NoError(t, err)
	assert.True(t, paused)

	require.NoError(t, s.Resume(t.Context()))
	paused, err = s.IsPaused(t.Context())
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestAllowRateLimitWithinAndAtBoundary(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		allowed, err := s.AllowRateLimit(t.Context(), "mail_send_approved", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be allowed", i+1)
	}

	allowed, err := s.AllowRateLimit(t.Context(), "mail_send_approved", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "4th call over a max of 3 must be denied")
}

func TestPatternCooldownRoundTrip(t *testing.T) {
	s := newTestStore(t)

	active, err := s.PatternCooldownActive(t.Context(), "mail:volume_spike")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, s.SetPatternCooldown(t.Context(), "mail:volume_spike", time.Hour))

	active, err = s.PatternCooldownActive(t.Context(), "mail:volume_spike")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestLLMProviderOverrideRoundTrip(t *testing.T) {
	s := newTestStore(t)

	val, err := s.LLMProviderOverride(t.Context())
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, s.SetLLMProviderOverride(t.Context(), "bedrock"))
	val, err = s.LLMProviderOverride(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "bedrock", val)

	require.NoError(t, s.SetLLMProviderOverride(t.Context(), ""))
	val, err = s.LLMProviderOverride(t.Context())
	require.NoError(t, err)
	assert.Empty(t, val)
}
