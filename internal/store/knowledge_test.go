package store_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/storetest"
)

func TestInsertKnowledgeAndDeactivate(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	k := &model.KnowledgeEntry{
		ID:         uuid.New(),
		Category:   "taught_rule",
		Content:    "always cc legal on contract threads",
		Source:     "chat",
		Active:     true,
		Confidence: 1.0,
		Embedding:  make([]float32, 1536),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.InsertKnowledge(ctx, k))

	found, err := db.SimilarKnowledge(ctx, "taught_rule", k.Embedding, 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, k.Content, found[0].Content)

	require.NoError(t, db.DeactivateKnowledge(ctx, k.ID))

	found, err = db.SimilarKnowledge(ctx, "taught_rule", k.Embedding, 5)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestInsertActionLogAndSenderHistory(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	entry := &model.ActionLogEntry{
		Timestamp:  time.Now().UTC(),
		System:     "mail",
		ActionType: "reason_and_act",
		Outcome:    "sent",
		ModelUsed:  "claude-3-5-sonnet",
		Details:    map[string]any{"turns": 2},
	}
	require.NoError(t, db.InsertActionLog(ctx, entry))

	history, err := db.SenderHistory(ctx, "mail", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "reason_and_act", history[0].ActionType)
}

func TestSummaryReflectsInsertedEvents(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, nil)
	_, err := db.InsertEvent(ctx, ev)
	require.NoError(t, err)
	require.NoError(t, db.MarkProcessed(ctx, ev.ID, model.StatusCompleted))

	summary, err := db.Summary(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, summary.EventsToday, 1)
}
