package store

import (
	"context"

	"github.com/sukru-can1/agent1go/internal/model"
)

// GetBaseline returns the stored baseline for (source, event_type, day of
// week, hour of day), or nil if none has been computed yet.
func (s *Store) GetBaseline(ctx context.Context, source model.Source, eventType string, dayOfWeek, hourOfDay int) (*model.Baseline, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT source, event_type, day_of_week, hour_of_day, mean_count, stddev_count, updated_at
		FROM baselines WHERE source = $1 AND event_type = $2 AND day_of_week = $3 AND hour_of_day = $4`,
		source, eventType, dayOfWeek, hourOfDay)
	var b model.Baseline
	if err := row.Scan(&b.Source, &b.EventType, &b.DayOfWeek, &b.HourOfDay, &b.MeanCount,
		&b.StddevCount, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertBaseline writes a recomputed baseline bucket, run weekly over a
// 28-day rolling window by the scheduler (spec.md §4.12).
func (s *Store) UpsertBaseline(ctx context.Context, b *model.Baseline) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO baselines (source, event_type, day_of_week, hour_of_day, mean_count, stddev_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (source, event_type, day_of_week, hour_of_day)
		DO UPDATE SET mean_count = $5, stddev_count = $6, updated_at = now()`,
		b.Source, b.EventType, b.DayOfWeek, b.HourOfDay, b.MeanCount, b.StddevCount)
	return err
}

// SourceEventType is one distinct (source, event_type) pair seen in the
// events table.
type SourceEventType struct {
	Source    model.Source
	EventType string
}

// DistinctSourceEventTypes lists every (source, event_type) pair with at
// least one non-dead-lettered event in the last windowDays, the set
// RecomputeBaselines iterates to rebuild each pair's hourly baseline.
func (s *Store) DistinctSourceEventTypes(ctx context.Context, windowDays int) ([]SourceEventType, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT source, event_type FROM events
		WHERE created_at >= now() - ($1 || ' days')::interval AND status != 'dead_letter'`,
		windowDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceEventType
	for rows.Next() {
		var p SourceEventType
		if err := rows.Scan(&p.Source, &p.EventType); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HourlyEventCounts returns, for the rolling window ending now, the count
// of events per (day_of_week, hour_of_day) bucket for one (source,
// event_type) pair — the raw material UpsertBaseline is computed from.
func (s *Store) HourlyEventCounts(ctx context.Context, source model.Source, eventType string, windowDays int) (map[[2]int][]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT extract(dow from created_at)::int AS dow, extract(hour from created_at)::int AS hr,
			date_trunc('day', created_at) AS day, count(*)
		FROM events
		WHERE source = $1 AND event_type = $2 AND created_at >= now() - ($3 || ' days')::interval
		GROUP BY dow, hr, day`, source, eventType, windowDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[[2]int][]int)
	for rows.Next() {
		var dow, hr, cnt int
		var day any
		if err := rows.Scan(&dow, &hr, &day, &cnt); err != nil {
			return nil, err
		}
		key := [2]int{dow, hr}
		out[key] = append(out[key], cnt)
	}
	return out, rows.Err()
}
