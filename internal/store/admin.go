package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sukru-can1/agent1go/internal/model"
)

// CountDrafts returns how many email drafts are in a given status, for the
// /admin/status summary.
func (s *Store) CountDrafts(ctx context.Context, status model.DraftStatus) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM email_drafts WHERE status = $1`, status).Scan(&n)
	return n, err
}

// CountUnresolvedDeadLetters returns the number of unresolved DLQ entries.
func (s *Store) CountUnresolvedDeadLetters(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_events WHERE resolved_at IS NULL`).Scan(&n)
	return n, err
}

// CountPendingProposals returns the number of still-pending, unexpired
// proposals.
func (s *Store) CountPendingProposals(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM proposals
		WHERE status = $1 AND (expires_at IS NULL OR expires_at > now())`, model.ProposalPending).Scan(&n)
	return n, err
}

// GetDeadLetter fetches a single dead letter by id, used by the DLQ retry
// admin action to recover the original event before republishing it.
func (s *Store) GetDeadLetter(ctx context.Context, id uuid.UUID) (*model.DeadLetterEvent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, original_event_id, source, event_type, priority, payload, error_history,
			retry_count, created_at, resolved_at, resolved_by
		FROM dead_letter_events WHERE id = $1`, id)

	var d model.DeadLetterEvent
	var payload, history []byte
	if err := row.Scan(&d.ID, &d.OriginalEventID, &d.Source, &d.EventType, &d.Priority,
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
	return &d, nil
}

// ConfigEntry is one row of the admin /config listing, matching
// routes/admin.py's list_config.
type ConfigEntry struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	UpdatedAt   time.Time `json:"updated_at"`
	Description string    `json:"description"`
}

// ListConfig returns every stored runtime configuration override.
func (s *Store) ListConfig(ctx context.Context) ([]ConfigEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value, updated_at, description FROM config ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConfigEntry
	for rows.Next() {
		var e ConfigEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListActionLogs returns the most recent audit-log entries, optionally
// filtered to a single event, matching routes/admin.py's list_actions.
func (s *Store) ListActionLogs(ctx context.Context, eventID string, limit int) ([]*model.ActionLogEntry, error) {
	var rows pgx.Rows
	var err error
	if eventID != "" {
		rows, err = s.pool.Query(ctx, `
			SELECT id, "timestamp", system, action_type, outcome, model_used,
				input_tokens, output_tokens, latency_ms, details, event_id
			FROM actions_log WHERE event_id = $1::uuid ORDER BY "timestamp" DESC`, eventID)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, "timestamp", system, action_type, outcome, model_used,
				input_tokens, output_tokens, latency_ms, details, event_id
			FROM actions_log ORDER BY "timestamp" DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ActionLogEntry
	for rows.Next() {
		a, err := scanActionLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ActionLogDetail is a single action joined with its originating event, for
// routes/admin.py's get_action.
type ActionLogDetail struct {
	model.ActionLogEntry
	EventSource    *model.Source `json:"event_source,omitempty"`
	EventType2     *string       `json:"event_event_type,omitempty"`
	EventPriority  *model.Priority `json:"event_priority,omitempty"`
	EventPayload   map[string]any  `json:"event_payload,omitempty"`
	EventStatus    *model.Status   `json:"event_status,omitempty"`
	EventCreatedAt *time.Time      `json:"event_created_at,omitempty"`
}

// GetActionLogDetail fetches one action log row left-joined against events.
func (s *Store) GetActionLogDetail(ctx context.Context, id int64) (*ActionLogDetail, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT a.id, a."timestamp", a.system, a.action_type, a.outcome,
			a.model_used, a.input_tokens, a.output_tokens, a.latency_ms,
			a.details, a.event_id,
			e.source, e.event_type, e.priority, e.payload, e.status, e.created_at
		FROM actions_log a
		LEFT JOIN events e ON e.id = a.event_id
		WHERE a.id = $1`, id)

	var d ActionLogDetail
	var details, payload []byte
	if err := row.Scan(&d.ID, &d.Timestamp, &d.System, &d.ActionType, &d.Outcome,
		&d.ModelUsed, &d.InputTokens, &d.OutputTokens, &d.LatencyMS, &details, &d.EventID,
		&d.EventSource, &d.EventType2, &d.EventPriority, &payload, &d.EventStatus, &d.EventCreatedAt); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &d.Details); err != nil {
			return nil, err
		}
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &d.EventPayload); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

func scanActionLog(row rowScanner) (*model.ActionLogEntry, error) {
	var a model.ActionLogEntry
	var details []byte
	if err := row.Scan(&a.ID, &a.Timestamp, &a.System, &a.ActionType, &a.Outcome,
		&a.ModelUsed, &a.InputTokens, &a.OutputTokens, &a.LatencyMS, &details, &a.EventID); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// ListActiveKnowledge returns active knowledge entries newest first, for
// routes/admin.py's list_knowledge.
func (s *Store) ListActiveKnowledge(ctx context.Context, limit int) ([]*model.KnowledgeEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, category, content, source, created_at, active, confidence, supersedes_id
		FROM knowledge_entries WHERE active = true ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.KnowledgeEntry
	for rows.Next() {
		var k model.KnowledgeEntry
		if err := rows.Scan(&k.ID, &k.Category, &k.Content, &k.Source, &k.CreatedAt,
			&k.Active, &k.Confidence, &k.SupersedesID); err != nil {
			return nil, err
		}
		out = append(out, &k)
	}
	return out, rows.Err()
}

// DailyCostRow is one (day, model) bucket of token usage, for
// routes/admin.py's analytics_daily_costs.
type DailyCostRow struct {
	Day          string `json:"day"`
	Model        string `json:"model"`
	Calls        int    `json:"calls"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// DailyCosts returns per-day, per-model call and token counts over the
// trailing window; dollar estimation is left to the caller (rate tables
// change more often than this query should need to).
func (s *Store) DailyCosts(ctx context.Context, days int) ([]DailyCostRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DATE("timestamp")::text AS day, model_used, COUNT(*),
			COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM actions_log
		WHERE "timestamp" >= now() - ($1 || ' days')::interval
			AND model_used IS NOT NULL AND model_used != ''
		GROUP BY DATE("timestamp"), model_used
		ORDER BY day DESC, model_used`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyCostRow
	for rows.Next() {
		var r DailyCostRow
		if err := rows.Scan(&r.Day, &r.Model, &r.Calls, &r.InputTokens, &r.OutputTokens); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DraftStatusCount is one (day, status, count) bucket, for
// routes/admin.py's analytics_approval_rate.
type DraftStatusCount struct {
	Day    string
	Status string
	Count  int
}

// DraftStatusCountsByDay groups draft creation by day and status.
func (s *Store) DraftStatusCountsByDay(ctx context.Context, days int) ([]DraftStatusCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DATE(created_at)::text, status, COUNT(*)
		FROM email_drafts
		WHERE created_at >= now() - ($1 || ' days')::interval
		GROUP BY DATE(created_at), status
		ORDER BY 1 DESC`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DraftStatusCount
	for rows.Next() {
		var c DraftStatusCount
		if err := rows.Scan(&c.Day, &c.Status, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DraftEditStats returns how many approved/sent drafts over the window were
// edited before approval, vs. the total.
func (s *Store) DraftEditStats(ctx context.Context, days int) (edited, total int, err error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE edited_body IS NOT NULL), COUNT(*)
		FROM email_drafts
		WHERE created_at >= now() - ($1 || ' days')::interval
			AND status IN ('approved', 'sent')`, days)
	err = row.Scan(&edited, &total)
	return edited, total, err
}

// ResponseTimeRow is one (day, system) latency bucket, for
// routes/admin.py's analytics_response_time.
type ResponseTimeRow struct {
	Day          string
	System       string
	Count        int
	AvgLatencyMS float64
	MaxLatencyMS int64
	P95LatencyMS *float64
}

// ResponseTimesByDay aggregates actions_log latency per day and system.
func (s *Store) ResponseTimesByDay(ctx context.Context, days int) ([]ResponseTimeRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DATE("timestamp")::text, system, COUNT(*), AVG(latency_ms),
			MAX(latency_ms), PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY latency_ms)
		FROM actions_log
		WHERE "timestamp" >= now() - ($1 || ' days')::interval AND latency_ms > 0
		GROUP BY DATE("timestamp"), system
		ORDER BY 1 DESC`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResponseTimeRow
	for rows.Next() {
		var r ResponseTimeRow
		if err := rows.Scan(&r.Day, &r.System, &r.Count, &r.AvgLatencyMS, &r.MaxLatencyMS, &r.P95LatencyMS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AnalyticsSummary is the aggregate counts routes/admin.py's
// analytics_summary returns in one shot.
type AnalyticsSummary struct {
	EventsToday     int
	EventsThisWeek  int
	DraftsPending   int
	DraftsSentWeek  int
	FailedToday     int
	DLQUnresolved   int
	InputTokens     int64
	OutputTokens    int64
	TopEventTypes   []EventTypeCount
}

// Summary computes the dashboard's overview numbers.
func (s *Store) Summary(ctx context.Context) (*AnalyticsSummary, error) {
	var out AnalyticsSummary

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE created_at >= CURRENT_DATE`).Scan(&out.EventsToday); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE created_at >= CURRENT_DATE - INTERVAL '7 days'`).Scan(&out.EventsThisWeek); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM email_drafts WHERE status = 'pending'`).Scan(&out.DraftsPending); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM email_drafts WHERE status = 'sent' AND created_at >= CURRENT_DATE - INTERVAL '7 days'`).Scan(&out.DraftsSentWeek); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE status = 'failed' AND created_at >= CURRENT_DATE`).Scan(&out.FailedToday); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_events WHERE resolved_at IS NULL`).Scan(&out.DLQUnresolved); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM actions_log WHERE "timestamp" >= CURRENT_DATE`).Scan(&out.InputTokens, &out.OutputTokens); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT event_type, source, COUNT(*)
		FROM events WHERE created_at >= CURRENT_DATE - INTERVAL '7 days'
		GROUP BY event_type, source ORDER BY COUNT(*) DESC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c EventTypeCount
		if err := rows.Scan(&c.EventType, &c.Source, &c.Count); err != nil {
			return nil, err
		}
		out.TopEventTypes = append(out.TopEventTypes, c)
	}
	return &out, rows.Err()
}

// ProposalStatCount is one (type, status, count) bucket, for
// routes/admin.py's proposal_stats (backed by
// intelligence/proposals.py's get_proposal_stats).
type ProposalStatCount struct {
	Type   model.ProposalType
	Status model.ProposalStatus
	Count  int
}

// ProposalStats groups proposals by type and status.
func (s *Store) ProposalStats(ctx context.Context) ([]ProposalStatCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT type, status, COUNT(*) FROM proposals GROUP BY type, status ORDER BY type, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProposalStatCount
	for rows.Next() {
		var c ProposalStatCount
		if err := rows.Scan(&c.Type, &c.Status, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DashboardMessage is one transcript turn from a dashboard-platform session,
// for routes/admin.py's chat_history. The original queries a standalone
// conversations table this module's schema never grew (sessions/
// session_messages already cover transcript storage — see DESIGN.md), so
// this adapts the same intent onto session_messages joined with its parent
// session.
type DashboardMessage struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	UserName  string      `json:"user_name"`
	Role      model.MessageRole `json:"role"`
	Content   string      `json:"content"`
}

// DashboardChatHistory returns the most recent dashboard-platform messages.
func (s *Store) DashboardChatHistory(ctx context.Context, limit int) ([]DashboardMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.created_at, s.user_name, m.role, m.content
		FROM session_messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE s.platform = 'dashboard'
		ORDER BY m.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DashboardMessage
	for rows.Next() {
		var m DashboardMessage
		if err := rows.Scan(&m.ID, &m.Timestamp, &m.UserName, &m.Role, &m.Content); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
