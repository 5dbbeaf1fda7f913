package pipeline_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicebob/miniredis/v2"

	ctxengine "github.com/sukru-can1/agent1go/internal/context"
	"github.com/sukru-can1/agent1go/internal/classify"
	"github.com/sukru-can1/agent1go/internal/guardrail"
	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/pipeline"
	"github.com/sukru-can1/agent1go/internal/reason"
	"github.com/sukru-can1/agent1go/internal/session"
	"github.com/sukru-can1/agent1go/internal/store"
	"github.com/sukru-can1/agent1go/internal/storetest"
)

// scriptedClient returns queued responses in order, one per Generate call,
// matching internal/reason's own test fake.
type scriptedClient struct {
	responses []*llm.Response
	calls     int
}

func (c *scriptedClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

type noTools struct{}

func (noTools) Definitions(source model.Source) []llm.ToolDefinition { return nil }
func (noTools) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	return nil, nil
}

func newTestGuardrails(t *testing.T, restricted []string) *guardrail.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kvStore := kv.New(rdb)
	g, err := guardrail.New(t.Context(), kvStore, restricted, nil)
	require.NoError(t, err)
	return g
}

func newTestReasoner(t *testing.T, client llm.Client) *reason.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kvStore := kv.New(rdb)
	providers := llm.NewProviderSwitch(kvStore, llm.ProviderAnthropic, map[string]llm.Client{
		llm.ProviderAnthropic: client,
	})
	return reason.New(providers, noTools{})
}

func newTestSessions(t *testing.T, db *store.Store) *session.Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kvStore := kv.New(rdb)
	return session.New(db, kvStore, nil, session.DefaultConfig())
}

func TestHandleChatEventPersistsSessionHistory(t *testing.T) {
	db := storetest.New(t)
	guardrails := newTestGuardrails(t, nil)
	classifier := classify.New(nil, llm.TierFast)
	enricher := ctxengine.New(db, nil, ctxengine.DefaultConfig())
	reasoner := newTestReasoner(t, &scriptedClient{responses: []*llm.Response{
		{Text: "Sure, I'll take a look.", Usage: llm.TokenUsage{InputTokens: 12, OutputTokens: 6}},
	}})
	sessions := newTestSessions(t, db)

	p := pipeline.New(db, classifier, guardrails, enricher, reasoner, sessions, nil)

	ev := model.NewEvent(model.SourceChat, "chat_user_message", model.PriorityMedium, map[string]any{
		"space_id": "spaces/ABC",
		"text":     "can you check the deploy status?",
	})
	_, err := db.InsertEvent(t.Context(), ev)
	require.NoError(t, err)

	require.NoError(t, p.Handle(t.Context(), ev))

	sess, err := db.GetActiveSessionByKey(t.Context(), "chat:spaces/ABC")
	require.NoError(t, err)
	require.NotNil(t, sess)

	messages, err := db.LoadSessionMessages(t.Context(), sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleUser, messages[0].Role)
	assert.Equal(t, "can you check the deploy status?", messages[0].Content)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Sure, I'll take a look.", messages[1].Content)
}

func TestHandleGuardrailsBlockRestrictedSender(t *testing.T) {
	db := storetest.New(t)
	guardrails := newTestGuardrails(t, []string{"blocked@example.com"})
	classifier := classify.New(nil, llm.TierFast) // nil client -> SafeDefault, not a taught rule
	enricher := ctxengine.New(db, nil, ctxengine.DefaultConfig())
	reasoner := newTestReasoner(t, &scriptedClient{responses: []*llm.Response{
		{Text: "should never be called"},
	}})

	p := pipeline.New(db, classifier, guardrails, enricher, reasoner, nil, nil)

	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{
		"sender_email": "blocked@example.com",
		"subject":      "urgent ask",
	})
	_, err := db.InsertEvent(t.Context(), ev)
	require.NoError(t, err)

	require.NoError(t, p.Handle(t.Context(), ev))

	fetched, err := db.GetEvent(t.Context(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, fetched.Status)

	logs, err := db.ListActionLogs(t.Context(), ev.ID.String(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "guardrails_blocked", logs[0].ActionType)
}

func TestHandleScheduledSummaryBuildsDigest(t *testing.T) {
	db := storetest.New(t)
	guardrails := newTestGuardrails(t, nil)
	classifier := classify.New(nil, llm.TierFast)
	enricher := ctxengine.New(db, nil, ctxengine.DefaultConfig())
	reasoner := newTestReasoner(t, &scriptedClient{})

	p := pipeline.New(db, classifier, guardrails, enricher, reasoner, nil, nil)

	ev := model.NewEvent(model.SourceSystem, "morning_brief", model.PriorityBackground, nil)
	_, err := db.InsertEvent(t.Context(), ev)
	require.NoError(t, err)

	require.NoError(t, p.Handle(t.Context(), ev))

	fetched, err := db.GetEvent(t.Context(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, fetched.Status)

	logs, err := db.ListActionLogs(t.Context(), ev.ID.String(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "scheduled_summary", logs[0].ActionType)
}

func TestHandleFullReasoningPathRecordsActionLog(t *testing.T) {
	db := storetest.New(t)
	guardrails := newTestGuardrails(t, nil)
	classifier := classify.New(nil, llm.TierFast)
	enricher := ctxengine.New(db, nil, ctxengine.DefaultConfig())
	reasoner := newTestReasoner(t, &scriptedClient{responses: []*llm.Response{
		{Text: "Drafted a reply to the customer.", StopReason: "end_turn", Usage: llm.TokenUsage{InputTokens: 100, OutputTokens: 20}},
	}})

	p := pipeline.New(db, classifier, guardrails, enricher, reasoner, nil, nil)

	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{
		"sender_email": "customer@example.com",
		"subject":      "question about my order",
	})
	_, err := db.InsertEvent(t.Context(), ev)
	require.NoError(t, err)

	require.NoError(t, p.Handle(t.Context(), ev))

	fetched, err := db.GetEvent(t.Context(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, fetched.Status)

	logs, err := db.ListActionLogs(t.Context(), ev.ID.String(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "reason_and_act", logs[0].ActionType)
	assert.Equal(t, 100, logs[0].InputTokens)
}

func TestHandleTeachableRuleStoresKnowledgeInsteadOfReasoning(t *testing.T) {
	db := storetest.New(t)
	guardrails := newTestGuardrails(t, nil)
	classifier := classify.New(&scriptedClient{responses: []*llm.Response{
		{Text: `{"category":"policy","urgency":"low","complexity":"simple","is_teachable_rule":true,"confidence":0.9,"needs_response":false}`},
	}}, llm.TierFast)
	enricher := ctxengine.New(db, nil, ctxengine.DefaultConfig())
	reasoner := newTestReasoner(t, &scriptedClient{responses: []*llm.Response{
		{Text: "should never be called"},
	}})

	p := pipeline.New(db, classifier, guardrails, enricher, reasoner, nil, nil)

	ev := model.NewEvent(model.SourceChat, "message", model.PriorityLow, map[string]any{
		"text": "from now on, always cc legal on contract threads",
	})
	_, err := db.InsertEvent(t.Context(), ev)
	require.NoError(t, err)

	require.NoError(t, p.Handle(t.Context(), ev))

	fetched, err := db.GetEvent(t.Context(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, fetched.Status)

	knowledge, err := db.ListActiveKnowledge(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, knowledge, 1)
	assert.Equal(t, "taught_rule", knowledge[0].Category)
	assert.Contains(t, knowledge[0].Content, "cc legal")
}
