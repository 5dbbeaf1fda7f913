package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

// GetActiveSessionByKey returns the active session for a session key, or
// nil if none exists — the get-or-create read side of spec.md §4.10.
func (s *Store) GetActiveSessionByKey(ctx context.Context, sessionKey string) (*model.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, session_key, platform, user_id, user_name, status, message_count, summary,
			created_at, last_active_at
		FROM sessions WHERE session_key = $1 AND status = $2`, sessionKey, model.SessionActive)
	return scanSession(row)
}

// InsertSession creates a new active session.
func (s *Store) InsertSession(ctx context.Context, sess *model.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, session_key, platform, user_id, user_name, status,
			message_count, summary, created_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sess.ID, sess.SessionKey, sess.Platform, sess.UserID, sess.UserName, sess.Status,
		sess.MessageCount, sess.Summary, sess.CreatedAt, sess.LastActiveAt)
	return err
}

// TouchSession bumps last_active_at and message_count on a new turn.
func (s *Store) TouchSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET last_active_at = now(), message_count = message_count + 1
		WHERE id = $1`, id)
	return err
}

// ExpireSession transitions active -> expired.
func (s *Store) ExpireSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET status = $2 WHERE id = $1`, id, model.SessionExpired)
	return err
}

// ExpireIdleSessionsOlderThan expires every active session whose
// last_active_at predates the cutoff, returning the expired ids — used by
// chat-platform idle timeout (spec.md §4.10).
func (s *Store) ExpireIdleSessionsOlderThan(ctx context.Context, platform string, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE sessions SET status = $3
		WHERE platform = $1 AND status = $2 AND last_active_at < $4
		RETURNING id`, platform, model.SessionActive, model.SessionExpired, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SetSessionSummary stores the compaction summary produced when a session
// crosses the message-count threshold (spec.md §4.10).
func (s *Store) SetSessionSummary(ctx context.Context, id uuid.UUID, summary string) error {
	_, err := s.pool.Exec(ctx, `UPDATE sessions SET summary = $2 WHERE id = $1`, id, summary)
	return err
}

// DeleteSessionMessagesBefore prunes messages at or before cutoff, used by
// compaction once their content has been folded into the session summary.
func (s *Store) DeleteSessionMessagesBefore(ctx context.Context, sessionID uuid.UUID, cutoff time.Time) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM session_messages WHERE session_id = $1 AND created_at <= $2`, sessionID, cutoff)
	return err
}

func scanSession(row rowScanner) (*model.Session, error) {
	var sess model.Session
	if err := row.Scan(&sess.ID, &sess.SessionKey, &sess.Platform, &sess.UserID, &sess.UserName,
		&sess.Status, &sess.MessageCount, &sess.Summary, &sess.CreatedAt, &sess.LastActiveAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

// AppendSessionMessage appends one transcript turn.
func (s *Store) AppendSessionMessage(ctx context.Context, m *model.SessionMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_messages (session_id, role, content, event_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.SessionID, m.Role, m.Content, m.EventID, m.CreatedAt)
	return err
}

// LoadSessionMessages returns a session's transcript in chronological order.
func (s *Store) LoadSessionMessages(ctx context.Context, sessionID uuid.UUID) ([]*model.SessionMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, event_id, created_at
		FROM session_messages WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SessionMessage
	for rows.Next() {
		var m model.SessionMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.EventID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// LastNSessionMessages returns only the most recent n messages, used by
// compaction to keep the tail verbatim while summarizing the rest.
func (s *Store) LastNSessionMessages(ctx context.Context, sessionID uuid.UUID, n int) ([]*model.SessionMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, event_id, created_at
		FROM session_messages WHERE session_id = $1
		ORDER BY created_at DESC LIMIT $2`, sessionID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SessionMessage
	for rows.Next() {
		var m model.SessionMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.EventID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}
