// Package pattern implements the scheduled anomaly checks spec.md §4.12
// describes: event-volume spikes, a systemic error-rate spike, and a
// negative CSAT trend, each cooled down for a window once alerted so a
// sustained anomaly doesn't re-page every tick. Grounded on
// original_source/src/agent1/worker/pattern_detector.py and
// original_source/src/agent1/intelligence/analytics_engine.py.
package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/queue"
	"github.com/sukru-can1/agent1go/internal/store"
)

// spikeWindowHours is the lookback for the event-volume spike check, and
// spikeMinCount the legacy fixed-threshold fallback when no baseline exists
// yet for a (source, event_type) pair (pattern_detector.py's HAVING COUNT
// >= 2, refined per-pair by model.IsAnomaly once a baseline exists).
const (
	spikeWindowHours = 1
	spikeMinCount    = 2

	errorWindowHours    = 1
	errorMinTotal       = 5
	errorRateThreshold  = 0.3
	baselineWindowDays  = 28
	csatWindowHours     = 24
	csatNegativeMinimum = 1

	spikeCooldown = 2 * time.Hour
	errorCooldown = 1 * time.Hour
	csatCooldown  = 24 * time.Hour
)

// Detector runs the periodic pattern checks and maintains the adaptive
// baselines they consult. It structurally satisfies
// internal/scheduler.PatternDetector and .BaselineRecomputer.
type Detector struct {
	store     *store.Store
	kv        *kv.Store
	publisher *queue.Publisher
	surveyDB  *pgxpool.Pool // feedback/CSAT database; nil disables the CSAT check
	log       *slog.Logger
}

// New constructs a Detector. surveyDB may be nil, in which case the CSAT
// trend check is skipped (matching FeedbacksClient.available's early
// return when no feedback integration is configured).
func New(st *store.Store, kvStore *kv.Store, publisher *queue.Publisher, surveyDB *pgxpool.Pool, log *slog.Logger) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{store: st, kv: kvStore, publisher: publisher, surveyDB: surveyDB, log: log}
}

// DetectPatterns runs every anomaly check once, matching
// pattern_detector.py's detect_patterns. A failure in one check is logged
// and does not prevent the others from running.
func (d *Detector) DetectPatterns(ctx context.Context) error {
	if err := d.detectEventSpikes(ctx); err != nil {
		d.log.Error("event_spike_detection_failed", "error", err)
	}
	if err := d.detectErrorSpike(ctx); err != nil {
		d.log.Error("error_spike_detection_failed", "error", err)
	}
	if err := d.detectCSATTrend(ctx); err != nil {
		d.log.Error("csat_trend_detection_failed", "error", err)
	}
	return nil
}

func (d *Detector) detectEventSpikes(ctx context.Context) error {
	buckets, err := d.store.EventCountsByTypeWindow(ctx, spikeWindowHours, spikeMinCount)
	if err != nil {
		return fmt.Errorf("pattern: querying event counts: %w", err)
	}

	now := time.Now().UTC()
	for _, b := range buckets {
		patternKey := fmt.Sprintf("spike:%s:%s", b.Source, b.EventType)

		active, err := d.kv.PatternCooldownActive(ctx, patternKey)
		if err != nil {
			return fmt.Errorf("pattern: checking cooldown for %s: %w", patternKey, err)
		}
		if active {
			continue
		}

		baseline, err := d.store.GetBaseline(ctx, b.Source, b.EventType, int(now.Weekday()), now.Hour())
		if err != nil {
			baseline = nil // no baseline yet; IsAnomaly falls back to the fixed threshold
		}
		if !model.IsAnomaly(b.Count, baseline) {
			continue
		}

		if err := d.kv.SetPatternCooldown(ctx, patternKey, spikeCooldown); err != nil {
			return fmt.Errorf("pattern: setting cooldown for %s: %w", patternKey, err)
		}

		ev := model.NewEvent(model.SourceSystem, "pattern_detected", model.PriorityCritical, map[string]any{
			"pattern_type": "event_spike",
			"source":       string(b.Source),
			"event_type":   b.EventType,
			"count":        b.Count,
			"window":       "1 hour",
			"message": fmt.Sprintf("Spike detected: %d '%s' events from %s in the last hour",
				b.Count, b.EventType, b.Source),
		})
		ev.IdempotencyKey = fmt.Sprintf("pattern:spike:%s:%s:%s", b.Source, b.EventType, now.Format("2006010215"))
		if _, err := d.publisher.Publish(ctx, ev); err != nil {
			return fmt.Errorf("pattern: publishing spike event: %w", err)
		}
		d.log.Info("pattern_spike_detected", "source", b.Source, "event_type", b.EventType, "count", b.Count)
	}
	return nil
}

func (d *Detector) detectErrorSpike(ctx context.Context) error {
	total, failed, err := d.store.ErrorRateWindow(ctx, errorWindowHours)
	if err != nil {
		return fmt.Errorf("pattern: querying error rate: %w", err)
	}
	if total < errorMinTotal {
		return nil
	}
	rate := float64(failed) / float64(total)
	if rate <= errorRateThreshold {
		return nil
	}

	const patternKey = "error_spike"
	active, err := d.kv.PatternCooldownActive(ctx, patternKey)
	if err != nil {
		return fmt.Errorf("pattern: checking error-spike cooldown: %w", err)
	}
	if active {
		return nil
	}
	if err := d.kv.SetPatternCooldown(ctx, patternKey, errorCooldown); err != nil {
		return fmt.Errorf("pattern: setting error-spike cooldown: %w", err)
	}

	ev := model.NewEvent(model.SourceSystem, "pattern_detected", model.PriorityCritical, map[string]any{
		"pattern_type":  "error_spike",
		"total_events":  total,
		"failed_events": failed,
		"error_rate":    rate * 100,
		"message": fmt.Sprintf("High error rate: %d/%d events failed in the last hour (%.0f%%)",
			failed, total, rate*100),
	})
	if _, err := d.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("pattern: publishing error-spike event: %w", err)
	}
	d.log.Info("error_spike_detected", "total", total, "failed", failed)
	return nil
}

func (d *Detector) detectCSATTrend(ctx context.Context) error {
	if d.surveyDB == nil {
		return nil
	}

	since := time.Now().UTC().Add(-csatWindowHours * time.Hour)
	var total, negative int
	var avgStars float64
	err := d.surveyDB.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(stars), 0), COUNT(*) FILTER (WHERE stars <= 2)
		FROM "TrustpilotReview" WHERE "reviewCreatedAt" > $1`, since).
		Scan(&total, &avgStars, &negative)
	if err != nil {
		return fmt.Errorf("pattern: querying csat summary: %w", err)
	}
	if negative < csatNegativeMinimum {
		return nil
	}

	const patternKey = "csat_trend"
	active, err := d.kv.PatternCooldownActive(ctx, patternKey)
	if err != nil {
		return fmt.Errorf("pattern: checking csat cooldown: %w", err)
	}
	if active {
		return nil
	}
	if err := d.kv.SetPatternCooldown(ctx, patternKey, csatCooldown); err != nil {
		return fmt.Errorf("pattern: setting csat cooldown: %w", err)
	}

	ev := model.NewEvent(model.SourceSurvey, "pattern_detected", model.PriorityHigh, map[string]any{
		"pattern_type":   "csat_negative_trend",
		"negative_count": negative,
		"total_reviews":  total,
		"average_stars":  avgStars,
		"message":        fmt.Sprintf("CSAT anomaly detected: %d negative review(s) of %d in the last 24h", negative, total),
	})
	if _, err := d.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("pattern: publishing csat-trend event: %w", err)
	}
	d.log.Info("csat_trend_detected", "negative_count", negative, "total_reviews", total)
	return nil
}

// RecomputeBaselines rebuilds every (source, event_type, day_of_week,
// hour_of_day) baseline from a rolling 28-day window, matching
// analytics_engine.py's update_baselines. Run weekly by the scheduler.
func (d *Detector) RecomputeBaselines(ctx context.Context) error {
	pairs, err := d.store.DistinctSourceEventTypes(ctx, baselineWindowDays)
	if err != nil {
		return fmt.Errorf("pattern: listing source/event_type pairs: %w", err)
	}

	count := 0
	for _, pair := range pairs {
		buckets, err := d.store.HourlyEventCounts(ctx, pair.Source, pair.EventType, baselineWindowDays)
		if err != nil {
			return fmt.Errorf("pattern: computing hourly counts for %s/%s: %w", pair.Source, pair.EventType, err)
		}
		for key, counts := range buckets {
			mean, stddev := meanStddev(counts)
			b := &model.Baseline{
				Source:      pair.Source,
				EventType:   pair.EventType,
				DayOfWeek:   key[0],
				HourOfDay:   key[1],
				MeanCount:   mean,
				StddevCount: stddev,
				UpdatedAt:   time.Now().UTC(),
			}
			if err := d.store.UpsertBaseline(ctx, b); err != nil {
				return fmt.Errorf("pattern: upserting baseline for %s/%s: %w", pair.Source, pair.EventType, err)
			}
			count++
		}
	}
	d.log.Info("baselines_updated", "count", count)
	return nil
}

func meanStddev(samples []int) (mean, stddev float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += float64(s)
	}
	mean = sum / float64(len(samples))

	if len(samples) < 2 {
		return mean, 0
	}
	variance := 0.0
	for _, s := range samples {
		d := float64(s) - mean
		variance += d * d
	}
	variance /= float64(len(samples) - 1)
	return mean, math.Sqrt(variance)
}
