package classify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sukru-can1/agent1go/internal/classify"
	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
)

type scriptedClient struct {
	resp *llm.Response
	err  error
}

func (c *scriptedClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func testEvent() *model.Event {
	return model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{
		"sender_email": "customer@example.com",
	})
}

func TestClassifyWithNilClientReturnsSafeDefault(t *testing.T) {
	c := classify.New(nil, llm.TierFast)
	ev := testEvent()

	result := c.Classify(t.Context(), ev)
	assert.Equal(t, model.SafeDefault(ev.EventType, ev.Priority), result)
}

func TestClassifyParsesCleanJSON(t *testing.T) {
	client := &scriptedClient{resp: &llm.Response{Text: `{"category":"billing","urgency":"high",` +
		`"complexity":"simple","involves_vip":true,"needs_response":true,` +
		`"is_teachable_rule":false,"confidence":0.9,"detected_language":"en"}`}}
	c := classify.New(client, llm.TierFast)

	result := c.Classify(t.Context(), testEvent())
	assert.Equal(t, "billing", result.Category)
	assert.Equal(t, model.PriorityHigh, result.Urgency)
	assert.Equal(t, model.ComplexitySimple, result.Complexity)
	assert.True(t, result.InvolvesVIP)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, "en", result.DetectedLanguage)
}

func TestClassifyStripsMarkdownFences(t *testing.T) {
	client := &scriptedClient{resp: &llm.Response{
		Text: "```json\n{\"category\":\"policy\",\"urgency\":\"low\",\"complexity\":\"moderate\",\"needs_response\":false,\"confidence\":0.5}\n```",
	}}
	c := classify.New(client, llm.TierFast)

	result := c.Classify(t.Context(), testEvent())
	assert.Equal(t, "policy", result.Category)
	assert.False(t, result.NeedsResponse)
}

func TestClassifyFallsBackOnTrailingProseViaGenericDecode(t *testing.T) {
	client := &scriptedClient{resp: &llm.Response{
		Text: `{"category":"escalation","urgency":"critical","confidence":0.8} -- hope that helps!`,
	}}
	c := classify.New(client, llm.TierFast)

	result := c.Classify(t.Context(), testEvent())
	assert.Equal(t, "escalation", result.Category)
	assert.Equal(t, model.PriorityCritical, result.Urgency)
	assert.Equal(t, 0.8, result.Confidence)
}

func TestClassifyUnparseableResponseReturnsSafeDefault(t *testing.T) {
	client := &scriptedClient{resp: &llm.Response{Text: "not json at all"}}
	c := classify.New(client, llm.TierFast)
	ev := testEvent()

	result := c.Classify(t.Context(), ev)
	assert.Equal(t, model.SafeDefault(ev.EventType, ev.Priority), result)
}

func TestClassifyProviderErrorReturnsSafeDefault(t *testing.T) {
	client := &scriptedClient{err: errors.New("provider unavailable")}
	c := classify.New(client, llm.TierFast)
	ev := testEvent()

	result := c.Classify(t.Context(), ev)
	assert.Equal(t, model.SafeDefault(ev.EventType, ev.Priority), result)
}

func TestClassifyUnknownUrgencyFallsBackToEventPriority(t *testing.T) {
	client := &scriptedClient{resp: &llm.Response{
		Text: `{"category":"x","urgency":"not-a-real-urgency","confidence":0.5}`,
	}}
	c := classify.New(client, llm.TierFast)
	ev := testEvent()

	result := c.Classify(t.Context(), ev)
	assert.Equal(t, ev.Priority, result.Urgency)
}
