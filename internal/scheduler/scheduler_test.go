package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicebob/miniredis/v2"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/poller"
	"github.com/sukru-can1/agent1go/internal/queue"
	"github.com/sukru-can1/agent1go/internal/storetest"
)

func newTestKV(t *testing.T) *kv.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return kv.New(rdb)
}

type countingSource struct {
	name  string
	calls int32
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Poll(ctx context.Context) ([]poller.Candidate, error) {
	atomic.AddInt32(&s.calls, 1)
	return nil, nil
}

type countingDetector struct {
	calls int32
}

func (d *countingDetector) DetectPatterns(ctx context.Context) error {
	atomic.AddInt32(&d.calls, 1)
	return nil
}

func (d *countingDetector) RecomputeBaselines(ctx context.Context) error {
	return nil
}

type countingExpirer struct {
	calls int32
}

func (e *countingExpirer) ExpireIdleSessions(ctx context.Context) (int, error) {
	atomic.AddInt32(&e.calls, 1)
	return 0, nil
}

func TestSchedulerTickRunsPollersAndPatternDetection(t *testing.T) {
	db := storetest.New(t)
	kvStore := newTestKV(t)
	pub := queue.NewPublisher(kvStore, db)
	runner := poller.NewRunner(kvStore, pub)

	src := &countingSource{name: "mail"}
	detector := &countingDetector{}
	expirer := &countingExpirer{}

	s := New(DefaultConfig(), kvStore, runner, pub, []poller.Source{src}, detector, detector, nil, expirer)
	s.tick(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&detector.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&expirer.calls))
}

func TestSchedulerStartStopRunsMultipleTicks(t *testing.T) {
	db := storetest.New(t)
	kvStore := newTestKV(t)
	pub := queue.NewPublisher(kvStore, db)
	runner := poller.NewRunner(kvStore, pub)

	src := &countingSource{name: "mail"}
	cfg := DefaultConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond

	s := New(cfg, kvStore, runner, pub, []poller.Source{src}, nil, nil, nil, nil)
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&src.calls) >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerFeedbackAnalysisRunsEveryNthTick(t *testing.T) {
	db := storetest.New(t)
	kvStore := newTestKV(t)
	pub := queue.NewPublisher(kvStore, db)
	runner := poller.NewRunner(kvStore, pub)

	var feedbackCalls int32
	feedback := feedbackFunc(func(ctx context.Context, minEdits int) error {
		atomic.AddInt32(&feedbackCalls, 1)
		return nil
	})

	cfg := DefaultConfig()
	cfg.FeedbackAnalysisEveryNTicks = 2
	s := New(cfg, kvStore, runner, pub, nil, nil, nil, feedback, nil)

	s.tick(context.Background())
	assert.Equal(t, int32(0), atomic.LoadInt32(&feedbackCalls))
	s.tick(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&feedbackCalls))
}

type feedbackFunc func(ctx context.Context, minEdits int) error

func (f feedbackFunc) AnalyzeEditPatterns(ctx context.Context, minEdits int) error {
	return f(ctx, minEdits)
}

func TestPublishCronEventDedupsWithinSameDay(t *testing.T) {
	db := storetest.New(t)
	kvStore := newTestKV(t)
	pub := queue.NewPublisher(kvStore, db)
	runner := poller.NewRunner(kvStore, pub)

	s := New(DefaultConfig(), kvStore, runner, pub, nil, nil, nil, nil, nil)
	now := time.Now().UTC()

	s.publishCronEvent(context.Background(), "morning_brief", now)
	s.publishCronEvent(context.Background(), "morning_brief", now)

	events, err := db.ListEventsByStatus(context.Background(), model.StatusPending, 10)
	require.NoError(t, err)
	count := 0
	for _, e := range events {
		if e.EventType == "morning_brief" {
			count++
		}
	}
	assert.Equal(t, 1, count, "cron event must not double-publish within the same day")
}
