package context

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sukru-can1/agent1go/internal/model"
)

func TestFormatEmptyContextReturnsEmptyString(t *testing.T) {
	assert.Empty(t, Format(&EnrichedContext{}))
}

func TestFormatIncludesEachPopulatedSection(t *testing.T) {
	ctx := &EnrichedContext{
		SimilarIncidents: []*model.Incident{
			{Description: "db outage", Resolution: "restarted pool"},
		},
		SenderHistory: []*model.ActionLogEntry{
			{Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ActionType: "reply_sent", Outcome: "success"},
		},
		RelevantKnowledge: []*model.KnowledgeEntry{
			{Content: "always cc billing", Confidence: 0.9},
		},
		RelatedRecentEvents: []*model.Event{
			model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, nil),
		},
	}

	out := Format(ctx)
	assert.Contains(t, out, "### Similar Past Incidents:")
	assert.Contains(t, out, "restarted pool")
	assert.Contains(t, out, "### Sender History:")
	assert.Contains(t, out, "### Relevant Rules:")
	assert.Contains(t, out, "### Recent Related Events")
}

func TestTrimToBudgetDropsLowestRelevanceFirst(t *testing.T) {
	e := New(nil, nil, Config{TokenBudget: 1, IncidentLimit: 3, KnowledgeLimit: 3,
		SenderHistoryLimit: 3, RelatedEventsLimit: 3, RelatedEventsHours: 24})

	ctx := &EnrichedContext{
		SimilarIncidents: []*model.Incident{{Description: "incident"}},
		RelatedRecentEvents: []*model.Event{
			model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, nil),
		},
	}

	e.trimToBudget(ctx)

	assert.Empty(t, ctx.RelatedRecentEvents, "related events must be dropped before incidents")
	assert.Empty(t, ctx.SimilarIncidents, "everything is dropped once budget is exhausted")
}
