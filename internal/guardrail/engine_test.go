package guardrail_test

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicebob/miniredis/v2"

	"github.com/sukru-can1/agent1go/internal/guardrail"
	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
)

func newTestKV(t *testing.T) *kv.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return kv.New(rdb)
}

func TestCheckBusinessRulesBlocksRestrictedSenderCaseInsensitive(t *testing.T) {
	kvStore := newTestKV(t)
	e, err := guardrail.New(t.Context(), kvStore, []string{"Blocked@Example.com"}, nil)
	require.NoError(t, err)

	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{
		"sender_email": "blocked@example.com",
	})

	verdict, err := e.CheckBusinessRules(t.Context(), ev, model.ClassificationResult{})
	require.NoError(t, err)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "restricted_contact", verdict.Rule)
	assert.Contains(t, verdict.Reason, "blocked@example.com")
}

func TestCheckBusinessRulesAllowsUnrestrictedSender(t *testing.T) {
	kvStore := newTestKV(t)
	e, err := guardrail.New(t.Context(), kvStore, []string{"blocked@example.com"}, nil)
	require.NoError(t, err)

	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{
		"sender_email": "customer@example.com",
	})

	verdict, err := e.CheckBusinessRules(t.Context(), ev, model.ClassificationResult{})
	require.NoError(t, err)
	assert.True(t, verdict.Allowed)
}

func TestCheckBusinessRulesFallsBackToFromAddress(t *testing.T) {
	kvStore := newTestKV(t)
	e, err := guardrail.New(t.Context(), kvStore, []string{"legacy@example.com"}, nil)
	require.NoError(t, err)

	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{
		"from_address": "legacy@example.com",
	})

	verdict, err := e.CheckBusinessRules(t.Context(), ev, model.ClassificationResult{})
	require.NoError(t, err)
	assert.False(t, verdict.Allowed)
}

func TestCheckToolRateLimitAllowsUnconfiguredTool(t *testing.T) {
	kvStore := newTestKV(t)
	e, err := guardrail.New(t.Context(), kvStore, nil, nil)
	require.NoError(t, err)

	allowed, err := e.CheckToolRateLimit(t.Context(), "any_tool")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckToolRateLimitEnforcesConfiguredWindow(t *testing.T) {
	kvStore := newTestKV(t)
	e, err := guardrail.New(t.Context(), kvStore, nil, map[string]guardrail.RateLimit{
		"send_mail": {Max: 2, Window: time.Minute},
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		allowed, err := e.CheckToolRateLimit(t.Context(), "send_mail")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := e.CheckToolRateLimit(t.Context(), "send_mail")
	require.NoError(t, err)
	assert.False(t, allowed, "third call within the window should be rate-limited")
}
