package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/store"
)

// Config holds the idle-timeout and compaction thresholds manager.py reads
// from settings.
type Config struct {
	LockTTL              time.Duration
	LockPollInterval     time.Duration
	LockMaxWait          time.Duration
	MaxHistoryMessages   int
	MaxHistoryTokens     int
	CompactionThreshold  int
	ChatIdleTimeout      time.Duration
	DashboardIdleTimeout time.Duration
}

// DefaultConfig matches lock.py/manager.py's hardcoded constants.
func DefaultConfig() Config {
	return Config{
		LockTTL:              60 * time.Second,
		LockPollInterval:     500 * time.Millisecond,
		LockMaxWait:          30 * time.Second,
		MaxHistoryMessages:   40,
		MaxHistoryTokens:     2000,
		CompactionThreshold:  20,
		ChatIdleTimeout:      30 * time.Minute,
		DashboardIdleTimeout: 8 * time.Hour,
	}
}

// Manager owns session lifecycle: resolve/create, history load with
// budget trimming, message storage with compaction, and idle expiry.
type Manager struct {
	store *store.Store
	kv    *kv.Store
	llm   *llm.ProviderSwitch
	cfg   Config
}

// New constructs a Manager. llmSwitch may be nil, in which case compaction
// falls back to a plain message-count summary instead of an LLM summary.
func New(st *store.Store, kvStore *kv.Store, llmSwitch *llm.ProviderSwitch, cfg Config) *Manager {
	if cfg.LockTTL == 0 {
		cfg = DefaultConfig()
	}
	return &Manager{store: st, kv: kvStore, llm: llmSwitch, cfg: cfg}
}

// AcquireLock polls for the session's write lock, per lock.py.
func (m *Manager) AcquireLock(ctx context.Context, sessionKey string) (bool, error) {
	return m.kv.AcquireSessionLock(ctx, sessionKey, m.cfg.LockTTL, m.cfg.LockPollInterval, m.cfg.LockMaxWait)
}

// ReleaseLock drops the session's write lock.
func (m *Manager) ReleaseLock(ctx context.Context, sessionKey string) error {
	return m.kv.ReleaseSessionLock(ctx, sessionKey)
}

// GetOrCreate resolves the active session for key, expiring and replacing
// it first if idle-expired, matching manager.py's get_or_create_session.
func (m *Manager) GetOrCreate(ctx context.Context, key, userID, userName string) (sess *model.Session, isNew bool, err error) {
	platform := Platform(key)

	existing, err := m.store.GetActiveSessionByKey(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("session: loading %q: %w", key, err)
	}
	if existing != nil && !m.isExpired(existing) {
		return existing, false, nil
	}
	if existing != nil {
		if err := m.store.ExpireSession(ctx, existing.ID); err != nil {
			return nil, false, fmt.Errorf("session: expiring stale %q: %w", key, err)
		}
	}

	now := time.Now().UTC()
	sess = &model.Session{
		ID:           uuid.New(),
		SessionKey:   key,
		Platform:     platform,
		UserID:       userID,
		UserName:     userName,
		Status:       model.SessionActive,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := m.store.InsertSession(ctx, sess); err != nil {
		return nil, false, fmt.Errorf("session: creating %q: %w", key, err)
	}
	return sess, true, nil
}

func (m *Manager) isExpired(sess *model.Session) bool {
	now := time.Now().UTC()
	switch sess.Platform {
	case "chat":
		return now.Sub(sess.LastActiveAt) > m.cfg.ChatIdleTimeout
	case "dashboard":
		if now.Sub(sess.LastActiveAt) > m.cfg.DashboardIdleTimeout {
			return true
		}
		resetToday := time.Date(now.Year(), now.Month(), now.Day(), 4, 0, 0, 0, time.UTC)
		return now.After(resetToday) && sess.LastActiveAt.Before(resetToday)
	default:
		return false
	}
}

// LoadHistory loads prior turns (summary-prefixed if compacted), trimmed
// to the configured token budget while preserving user/assistant
// alternation, matching manager.py's load_session_history.
func (m *Manager) LoadHistory(ctx context.Context, sess *model.Session) ([]llm.Message, error) {
	records, err := m.store.LoadSessionMessages(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session: loading history for %s: %w", sess.ID, err)
	}
	if len(records) > m.cfg.MaxHistoryMessages {
		records = records[len(records)-m.cfg.MaxHistoryMessages:]
	}

	var messages []llm.Message
	if sess.Summary != nil && *sess.Summary != "" {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: "[Session summary of earlier conversation]\n" + *sess.Summary},
			llm.Message{Role: llm.RoleAssistant, Content: "Understood, I have context from our earlier conversation."},
		)
	}
	for _, rec := range records {
		role := llm.RoleUser
		if rec.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: rec.Content})
	}

	return trimToCharBudget(messages, m.cfg.MaxHistoryTokens*4), nil
}

// trimToCharBudget drops oldest messages (in alternating pairs) until the
// total fits budget, then trims any leading/trailing half-pair so the
// sequence starts with a user turn and ends with an assistant turn.
func trimToCharBudget(messages []llm.Message, charBudget int) []llm.Message {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	for len(messages) > 0 && total > charBudget {
		total -= len(messages[0].Content)
		messages = messages[1:]
		if len(messages) > 0 && messages[0].Role == llm.RoleAssistant {
			total -= len(messages[0].Content)
			messages = messages[1:]
		}
	}
	for len(messages) > 0 && messages[0].Role != llm.RoleUser {
		messages = messages[1:]
	}
	for len(messages) > 0 && messages[len(messages)-1].Role != llm.RoleAssistant {
		messages = messages[:len(messages)-1]
	}
	return messages
}

// StoreMessages persists one exchange and triggers compaction once the
// session crosses the message-count threshold, matching manager.py's
// store_session_messages.
func (m *Manager) StoreMessages(ctx context.Context, sess *model.Session, userText, assistantText string, eventID *uuid.UUID) error {
	if userText == "" && assistantText == "" {
		return nil
	}
	now := time.Now().UTC()
	added := 0
	if userText != "" {
		if err := m.store.AppendSessionMessage(ctx, &model.SessionMessage{
			SessionID: sess.ID, Role: model.RoleUser, Content: userText, EventID: eventID, CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("session: storing user message: %w", err)
		}
		added++
	}
	if assistantText != "" {
		if err := m.store.AppendSessionMessage(ctx, &model.SessionMessage{
			SessionID: sess.ID, Role: model.RoleAssistant, Content: assistantText, EventID: eventID, CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("session: storing assistant message: %w", err)
		}
		added++
	}
	if err := m.store.TouchSession(ctx, sess.ID); err != nil {
		return fmt.Errorf("session: touching %s: %w", sess.ID, err)
	}
	sess.MessageCount += added
	sess.LastActiveAt = now

	if sess.MessageCount >= m.cfg.CompactionThreshold {
		if err := m.compact(ctx, sess.ID); err != nil {
			// Compaction failure is non-fatal, matching manager.py's
			// try/except around _compact_session.
			return nil
		}
	}
	return nil
}

// compact summarizes everything but the last 10 messages via the fast
// tier, then deletes the summarized rows, matching manager.py's
// _compact_session.
func (m *Manager) compact(ctx context.Context, sessionID uuid.UUID) error {
	all, err := m.store.LoadSessionMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	const keepTail = 10
	if len(all) <= keepTail {
		return nil
	}
	toSummarize := all[:len(all)-keepTail]

	summary := m.summarize(ctx, toSummarize)
	if err := m.store.SetSessionSummary(ctx, sessionID, summary); err != nil {
		return err
	}
	return m.store.DeleteSessionMessagesBefore(ctx, sessionID, toSummarize[len(toSummarize)-1].CreatedAt)
}

func (m *Manager) summarize(ctx context.Context, records []*model.SessionMessage) string {
	if m.llm == nil {
		return fmt.Sprintf("(conversation of %d messages)", len(records))
	}
	client, _, err := m.llm.Active(ctx)
	if err != nil {
		return fmt.Sprintf("(conversation of %d messages)", len(records))
	}

	var transcript strings.Builder
	for _, r := range records {
		transcript.WriteString(string(r.Role))
		transcript.WriteString(": ")
		transcript.WriteString(r.Content)
		transcript.WriteString("\n")
	}

	resp, err := client.Generate(ctx, llm.Request{
		Tier:      llm.TierFlash,
		System:    "Summarise this conversation between a user and an operations agent in 2-4 sentences. Focus on key questions asked, decisions made, and any pending actions. Be concise.",
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: transcript.String()}},
		MaxTokens: 300,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		return fmt.Sprintf("(conversation of %d messages)", len(records))
	}
	return strings.TrimSpace(resp.Text)
}

// ExpireIdleSessions batch-expires stale sessions across both platforms,
// matching manager.py's expire_idle_sessions, returning the total count
// expired.
func (m *Manager) ExpireIdleSessions(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	total := 0

	chatCutoff := now.Add(-m.cfg.ChatIdleTimeout)
	expired, err := m.store.ExpireIdleSessionsOlderThan(ctx, "chat", chatCutoff)
	if err != nil {
		return total, fmt.Errorf("session: expiring chat sessions: %w", err)
	}
	total += len(expired)

	// The daily reset threshold is folded into the cutoff unconditionally
	// (not gated on "now" having passed it), matching
	// expire_idle_sessions's OR of dashboard_cutoff/daily_reset — only the
	// inline get_or_create_session check gates on now >= reset_today.
	dashboardCutoff := now.Add(-m.cfg.DashboardIdleTimeout)
	dailyReset := time.Date(now.Year(), now.Month(), now.Day(), 4, 0, 0, 0, time.UTC)
	effectiveCutoff := dashboardCutoff
	if dailyReset.After(effectiveCutoff) {
		effectiveCutoff = dailyReset
	}
	expired, err = m.store.ExpireIdleSessionsOlderThan(ctx, "dashboard", effectiveCutoff)
	if err != nil {
		return total, fmt.Errorf("session: expiring dashboard sessions: %w", err)
	}
	total += len(expired)

	return total, nil
}
