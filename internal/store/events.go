package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sukru-can1/agent1go/internal/model"
)

// InsertEvent persists a new event row, mirroring the Redis-queued event so
// the queue and the durable record agree on source of truth for status. The
// returned bool is false when a non-empty idempotency_key collided with an
// existing row and the insert was dropped (spec.md §4.1 "duplicates silently
// drop"), matching original_source/.../queue/publisher.py's
// `ON CONFLICT (idempotency_key) WHERE idempotency_key != '' DO NOTHING`.
func (s *Store) InsertEvent(ctx context.Context, e *model.Event) (bool, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, source, event_type, priority, payload, idempotency_key,
			created_at, processed_at, status, retry_count, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (idempotency_key) WHERE idempotency_key <> '' DO NOTHING`,
		e.ID, e.Source, e.EventType, e.Priority, payload, e.IdempotencyKey,
		e.CreatedAt, e.ProcessedAt, e.Status, e.RetryCount, e.Error)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateEventStatus transitions an event's status and records its terminal
// error message, if any.
func (s *Store) UpdateEventStatus(ctx context.Context, id uuid.UUID, status model.Status, errMsg *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE events SET status = $2, error = $3 WHERE id = $1`,
		id, status, errMsg)
	return err
}

// MarkProcessed sets status, processed_at, and clears any prior error.
func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID, status model.Status) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE events SET status = $2, processed_at = now(), error = NULL WHERE id = $1`,
		id, status)
	return err
}

// IncrementRetry bumps retry_count and returns the new value.
func (s *Store) IncrementRetry(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		UPDATE events SET retry_count = retry_count + 1 WHERE id = $1 RETURNING retry_count`, id).
		Scan(&count)
	return count, err
}

// GetEvent fetches a single event by id.
func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source, event_type, priority, payload, idempotency_key,
			created_at, processed_at, status, retry_count, error
		FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

// ListEventsByIdempotencyKey finds prior events sharing a dedup key, used to
// resolve Redis-miss/Postgres-hit dedup races.
func (s *Store) ListEventsByIdempotencyKey(ctx context.Context, key string) ([]*model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, event_type, priority, payload, idempotency_key,
			created_at, processed_at, status, retry_count, error
		FROM events WHERE idempotency_key = $1 ORDER BY created_at DESC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEventsByStatus returns the most recent events in a given status, for
// routes/admin.py's list_events.
func (s *Store) ListEventsByStatus(ctx context.Context, status model.Status, limit int) ([]*model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, event_type, priority, payload, idempotency_key,
			created_at, processed_at, status, retry_count, error
		FROM events WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var payload []byte
	if err := row.Scan(&e.ID, &e.Source, &e.EventType, &e.Priority, &payload,
		&e.IdempotencyKey, &e.CreatedAt, &e.ProcessedAt, &e.Status, &e.RetryCount, &e.Error); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// RelatedEvents returns recent events sharing (source, event_type) with
// excludeID, created within the last `hours`, for the context engine's
// related-events retrieval (spec.md §4.6).
func (s *Store) RelatedEvents(ctx context.Context, source model.Source, eventType string, excludeID uuid.UUID, hours, limit int) ([]*model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, event_type, priority, payload, idempotency_key,
			created_at, processed_at, status, retry_count, error
		FROM events
		WHERE source = $1 AND event_type = $2
			AND created_at >= now() - ($3 || ' hours')::interval
			AND id != $4
		ORDER BY created_at DESC LIMIT $5`,
		source, eventType, hours, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecentEventsBySourceAndType supports the scheduler's pattern-detection
// window query (spec.md §4.12): all events for (source, event_type) created
// since `since`.
func (s *Store) RecentEventsBySourceAndType(ctx context.Context, source model.Source, eventType string, sinceHours int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM events
		WHERE source = $1 AND event_type = $2 AND created_at >= now() - ($3 || ' hours')::interval`,
		source, eventType, sinceHours).Scan(&count)
	return count, err
}

// EventTypeCount is one (source, event_type) bucket's count within a
// detection window.
type EventTypeCount struct {
	Source    model.Source
	EventType string
	Count     int
}

// EventCountsByTypeWindow groups non-dead-lettered events by (source,
// event_type) within the last windowHours, returning only buckets with at
// least minCount — the raw material _detect_ticket_spikes groups over
// before consulting the adaptive baseline (pattern_detector.py).
func (s *Store) EventCountsByTypeWindow(ctx context.Context, windowHours, minCount int) ([]EventTypeCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source, event_type, COUNT(*) AS count
		FROM events
		WHERE created_at >= now() - ($1 || ' hours')::interval
			AND status != 'dead_letter'
		GROUP BY source, event_type
		HAVING COUNT(*) >= $2`,
		windowHours, minCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventTypeCount
	for rows.Next() {
		var c EventTypeCount
		if err := rows.Scan(&c.Source, &c.EventType, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ErrorRateWindow returns the total and failed event counts in the last
// windowHours, for _detect_error_spikes's rate check.
func (s *Store) ErrorRateWindow(ctx context.Context, windowHours int) (total, failed int, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'failed')
		FROM events WHERE created_at >= now() - ($1 || ' hours')::interval`,
		windowHours).Scan(&total, &failed)
	return total, failed, err
}
