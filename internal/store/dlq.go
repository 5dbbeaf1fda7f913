package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

// InsertDeadLetter moves an event into the terminal dead_letter_events table
// after its retry budget is exhausted (spec.md §7).
func (s *Store) InsertDeadLetter(ctx context.Context, d *model.DeadLetterEvent) error {
	payload, err := json.Marshal(d.Payload)
	if err != nil {
		return err
	}
	history, err := json.Marshal(d.ErrorHistory)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO dead_letter_events (id, original_event_id, source, event_type, priority,
			payload, error_history, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.OriginalEventID, d.Source, d.EventType, d.Priority, payload, history,
		d.RetryCount, d.CreatedAt)
	return err
}

// ListDeadLetters returns unresolved dead letters, newest first, for the
// /admin/dlq endpoint.
func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]*model.DeadLetterEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, original_event_id, source, event_type, priority, payload, error_history,
			retry_count, created_at, resolved_at, resolved_by
		FROM dead_letter_events WHERE resolved_at IS NULL
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DeadLetterEvent
	for rows.Next() {
		var d model.DeadLetterEvent
		var payload, history []byte
		if err := rows.Scan(&d.ID, &d.OriginalEventID, &d.Source, &d.EventType, &d.Priority,
			&payload, &history, &d.RetryCount, &d.CreatedAt, &d.ResolvedAt, &d.ResolvedBy); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &d.Payload); err != nil {
				return nil, err
			}
		}
		if len(history) > 0 {
			if err := json.Unmarshal(history, &d.ErrorHistory); err != nil {
				return nil, err
			}
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// ResolveDeadLetter marks a dead letter as handled by an operator, used by
// the manual requeue/dismiss admin actions.
func (s *Store) ResolveDeadLetter(ctx context.Context, id uuid.UUID, resolvedBy string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE dead_letter_events SET resolved_at = now(), resolved_by = $2 WHERE id = $1`,
		id, resolvedBy)
	return err
}
