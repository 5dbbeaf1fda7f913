package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
)

func testManager(cfg Config) *Manager {
	if cfg.ChatIdleTimeout == 0 {
		cfg = DefaultConfig()
	}
	return &Manager{cfg: cfg}
}

func TestIsExpiredChatPlatform(t *testing.T) {
	m := testManager(DefaultConfig())
	now := time.Now().UTC()

	fresh := &model.Session{Platform: "chat", LastActiveAt: now.Add(-5 * time.Minute)}
	assert.False(t, m.isExpired(fresh))

	stale := &model.Session{Platform: "chat", LastActiveAt: now.Add(-45 * time.Minute)}
	assert.True(t, m.isExpired(stale))
}

func TestIsExpiredDashboardIdleTimeout(t *testing.T) {
	m := testManager(DefaultConfig())
	now := time.Now().UTC()

	stale := &model.Session{Platform: "dashboard", LastActiveAt: now.Add(-9 * time.Hour)}
	assert.True(t, m.isExpired(stale))
}

func TestIsExpiredDashboardDailyReset(t *testing.T) {
	m := testManager(DefaultConfig())
	// Simulate "now" being just after 04:00 UTC today by checking against a
	// last_active_at from well before any possible 04:00 UTC reset,
	// comfortably inside the idle timeout window otherwise.
	now := time.Now().UTC()
	resetToday := time.Date(now.Year(), now.Month(), now.Day(), 4, 0, 0, 0, time.UTC)
	if now.Before(resetToday) {
		t.Skip("reset-boundary test only meaningful after 04:00 UTC")
	}
	beforeReset := resetToday.Add(-1 * time.Minute)
	sess := &model.Session{Platform: "dashboard", LastActiveAt: beforeReset}
	assert.True(t, m.isExpired(sess))
}

func TestTrimToCharBudgetKeepsWithinBudget(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: "1111111111"},
		{Role: llm.RoleAssistant, Content: "2222222222"},
		{Role: llm.RoleUser, Content: "3333333333"},
		{Role: llm.RoleAssistant, Content: "4444444444"},
	}
	trimmed := trimToCharBudget(messages, 25)

	assert.Equal(t, llm.RoleUser, trimmed[0].Role)
	assert.Equal(t, llm.RoleAssistant, trimmed[len(trimmed)-1].Role)
	assert.LessOrEqual(t, len(trimmed), len(messages))
}

func TestTrimToCharBudgetEmptiesWhenUnsatisfiable(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: "1111111111"},
		{Role: llm.RoleAssistant, Content: "2222222222"},
	}
	trimmed := trimToCharBudget(messages, 1)
	assert.Empty(t, trimmed)
}
