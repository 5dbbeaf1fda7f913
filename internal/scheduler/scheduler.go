// Package scheduler runs the heartbeat loop that fans out to every poller
// concurrently, runs pattern detection each tick, and fires the coarser
// cron-like tasks (morning brief, daily summary, weekly baseline refresh,
// periodic feedback analysis), grounded on scheduler.py's run_scheduler and
// on pkg/cleanup/service.go's ticker-driven Start/Stop shape.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/poller"
	"github.com/sukru-can1/agent1go/internal/queue"
)

// cronDedupTTL bounds how long a cron task's per-day idempotency mark
// survives — long enough that a missed tick within the window never
// double-publishes.
const cronDedupTTL = 25 * time.Hour

// PatternDetector checks recent event volume for anomalies (internal/pattern.Detector
// satisfies this structurally).
type PatternDetector interface {
	DetectPatterns(ctx context.Context) error
}

// BaselineRecomputer rebuilds the rolling hourly baselines used by anomaly
// detection (internal/pattern.Detector satisfies this too).
type BaselineRecomputer interface {
	RecomputeBaselines(ctx context.Context) error
}

// FeedbackAnalyzer mines draft-edit history for recurring tone/style
// adjustments and records them as knowledge entries.
type FeedbackAnalyzer interface {
	AnalyzeEditPatterns(ctx context.Context, minEdits int) error
}

// IdleSessionExpirer retires chat/dashboard sessions that have gone quiet
// past their idle timeout (internal/session.Manager satisfies this).
type IdleSessionExpirer interface {
	ExpireIdleSessions(ctx context.Context) (int, error)
}

// Config controls heartbeat cadence and the coarse cron windows.
type Config struct {
	HeartbeatInterval time.Duration
	// FeedbackAnalysisEveryNTicks mirrors the original's "every 10th tick"
	// cadence for the comparatively expensive edit-pattern scan.
	FeedbackAnalysisEveryNTicks int
	MorningBriefHour            int
	DailySummaryHour            int
	// BaselineWeekday is time.Weekday's int value for the weekly refresh
	// (time.Sunday == 0).
	BaselineWeekday time.Weekday
}

// DefaultConfig matches the original's 06:00/18:00 UTC briefs, Sunday
// 00:00 UTC baseline refresh, and every-10th-tick feedback analysis.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:           60 * time.Second,
		FeedbackAnalysisEveryNTicks: 10,
		MorningBriefHour:            6,
		DailySummaryHour:            18,
		BaselineWeekday:             time.Sunday,
	}
}

// Scheduler owns the background heartbeat loop.
type Scheduler struct {
	cfg       Config
	kv        *kv.Store
	runner    *poller.Runner
	pub       *queue.Publisher
	pollers   []poller.Source
	detector  PatternDetector
	baselines BaselineRecomputer
	feedback  FeedbackAnalyzer
	sessions  IdleSessionExpirer

	cancel context.CancelFunc
	done   chan struct{}
	ticks  int
}

// New constructs a Scheduler. detector, baselines, feedback, and sessions
// may be nil if the corresponding integration is disabled — each tick
// skips a nil dependency rather than failing.
func New(cfg Config, kvStore *kv.Store, runner *poller.Runner, pub *queue.Publisher, pollers []poller.Source,
	detector PatternDetector, baselines BaselineRecomputer, feedback FeedbackAnalyzer, sessions IdleSessionExpirer,
) *Scheduler {
	return &Scheduler{
		cfg: cfg, kv: kvStore, runner: runner, pub: pub, pollers: pollers,
		detector: detector, baselines: baselines, feedback: feedback, sessions: sessions,
	}
}

// Start launches the background heartbeat loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("scheduler started", "interval", s.cfg.HeartbeatInterval, "pollers", len(s.pollers))
}

// Stop signals the heartbeat loop to exit and waits for it to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.ticks++
	now := time.Now().UTC()
	slog.Info("scheduler tick", "tick", s.ticks, "time", now)

	s.runPollers(ctx)
	s.runPatternDetection(ctx)
	s.runIdleSessionExpiry(ctx)

	if s.cfg.FeedbackAnalysisEveryNTicks > 0 && s.ticks%s.cfg.FeedbackAnalysisEveryNTicks == 0 {
		s.runFeedbackAnalysis(ctx)
	}

	withinWindow := now.Minute() < (int(s.cfg.HeartbeatInterval/time.Minute) + 1)
	switch {
	case now.Hour() == s.cfg.MorningBriefHour && withinWindow:
		s.publishMorningBrief(ctx, now)
	case now.Hour() == s.cfg.DailySummaryHour && withinWindow:
		s.publishDailySummary(ctx, now)
	}

	if now.Weekday() == s.cfg.BaselineWeekday && now.Hour() == 0 && withinWindow {
		s.runBaselineRecompute(ctx)
	}
}

// runPollers fans out every configured poller concurrently and tolerates
// individual failures, mirroring asyncio.gather(..., return_exceptions=True).
func (s *Scheduler) runPollers(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range s.pollers {
		src := src
		g.Go(func() error {
			n, err := s.runner.Run(gctx, src)
			if err != nil {
				slog.Error("poller failed", "source", src.Name(), "error", err)
				return nil // tolerate; don't cancel siblings
			}
			if n > 0 {
				slog.Info("poller published events", "source", src.Name(), "count", n)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) runPatternDetection(ctx context.Context) {
	if s.detector == nil {
		return
	}
	if err := s.detector.DetectPatterns(ctx); err != nil {
		slog.Error("pattern detection failed", "error", err)
	}
}

// runIdleSessionExpiry retires stale chat/dashboard sessions every tick —
// cheap and idempotent, so it runs at the same cadence as poller sweeps
// rather than waiting for a coarser cron window.
func (s *Scheduler) runIdleSessionExpiry(ctx context.Context) {
	if s.sessions == nil {
		return
	}
	n, err := s.sessions.ExpireIdleSessions(ctx)
	if err != nil {
		slog.Error("idle session expiry failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("idle sessions expired", "count", n)
	}
}

func (s *Scheduler) runFeedbackAnalysis(ctx context.Context) {
	if s.feedback == nil {
		return
	}
	if err := s.feedback.AnalyzeEditPatterns(ctx, 3); err != nil {
		slog.Error("feedback analysis failed", "error", err)
	}
}

func (s *Scheduler) runBaselineRecompute(ctx context.Context) {
	if s.baselines == nil {
		return
	}
	if err := s.baselines.RecomputeBaselines(ctx); err != nil {
		slog.Error("baseline recompute failed", "error", err)
	}
}

func (s *Scheduler) publishMorningBrief(ctx context.Context, now time.Time) {
	s.publishCronEvent(ctx, "morning_brief", now)
}

func (s *Scheduler) publishDailySummary(ctx context.Context, now time.Time) {
	s.publishCronEvent(ctx, "daily_summary", now)
}

// publishCronEvent publishes a once-per-day cron event, deduped on
// eventType:date so a tick that lands more than once inside the same
// cron window never double-publishes.
func (s *Scheduler) publishCronEvent(ctx context.Context, eventType string, now time.Time) {
	date := now.Format("2006-01-02")
	dedupKey := eventType + ":" + date

	dup, err := s.kv.IsDuplicate(ctx, "scheduler", dedupKey)
	if err != nil {
		slog.Error("cron dedup check failed", "event_type", eventType, "error", err)
		return
	}
	if dup {
		return
	}

	ev := model.NewEvent(model.SourceSystem, eventType, model.PriorityLow, map[string]any{"date": date})
	ev.IdempotencyKey = dedupKey
	if _, err := s.pub.Publish(ctx, ev); err != nil {
		slog.Error("cron event publish failed", "event_type", eventType, "error", err)
		return
	}
	if err := s.kv.MarkProcessed(ctx, "scheduler", dedupKey, cronDedupTTL); err != nil {
		slog.Error("cron dedup mark failed", "event_type", eventType, "error", err)
	}
	slog.Info("cron event scheduled", "event_type", eventType)
}
