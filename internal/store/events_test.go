package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/storetest"
)

func TestInsertEventRoundTrip(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityHigh, map[string]any{
		"from_address": "alice@example.com",
		"subject":      "help",
	})
	ev.IdempotencyKey = "mail:abc123"

	inserted, err := db.InsertEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	fetched, err := db.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Source, fetched.Source)
	assert.Equal(t, ev.EventType, fetched.EventType)
	assert.Equal(t, ev.Priority, fetched.Priority)
	assert.Equal(t, model.StatusPending, fetched.Status)
	assert.Equal(t, "alice@example.com", fetched.Payload["from_address"])
}

func TestMarkProcessedTransitionsStatus(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	ev := model.NewEvent(model.SourceChat, "message", model.PriorityMedium, nil)
	_, err := db.InsertEvent(ctx, ev)
	require.NoError(t, err)

	require.NoError(t, db.MarkProcessed(ctx, ev.ID, model.StatusCompleted))

	fetched, err := db.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, fetched.Status)
	assert.NotNil(t, fetched.ProcessedAt)
}

func TestListEventsByIdempotencyKeyDedup(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	ev1 := model.NewEvent(model.SourceTicketing, "ticket_created", model.PriorityLow, nil)
	ev1.IdempotencyKey = "ticketing:42"
	_, err := db.InsertEvent(ctx, ev1)
	require.NoError(t, err)

	matches, err := db.ListEventsByIdempotencyKey(ctx, "ticketing:42")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ev1.ID, matches[0].ID)

	none, err := db.ListEventsByIdempotencyKey(ctx, "ticketing:does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsertEventDropsDuplicateIdempotencyKey(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	ev1 := model.NewEvent(model.SourceTicketing, "ticket_created", model.PriorityLow, nil)
	ev1.IdempotencyKey = "ticketing:dup-key"
	inserted, err := db.InsertEvent(ctx, ev1)
	require.NoError(t, err)
	assert.True(t, inserted)

	ev2 := model.NewEvent(model.SourceTicketing, "ticket_updated", model.PriorityHigh, nil)
	ev2.IdempotencyKey = "ticketing:dup-key"
	inserted, err = db.InsertEvent(ctx, ev2)
	require.NoError(t, err)
	assert.False(t, inserted, "second insert with the same idempotency_key must be dropped")

	matches, err := db.ListEventsByIdempotencyKey(ctx, "ticketing:dup-key")
	require.NoError(t, err)
	require.Len(t, matches, 1, "only the first event should have landed")
	assert.Equal(t, ev1.ID, matches[0].ID)
}

func TestInsertEventAllowsMultipleEmptyIdempotencyKeys(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	ev1 := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, nil)
	inserted, err := db.InsertEvent(ctx, ev1)
	require.NoError(t, err)
	assert.True(t, inserted)

	ev2 := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, nil)
	inserted, err = db.InsertEvent(ctx, ev2)
	require.NoError(t, err)
	assert.True(t, inserted, "empty idempotency_key is excluded from the unique index")
}

func TestIncrementRetryAccumulates(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, nil)
	_, err := db.InsertEvent(ctx, ev)
	require.NoError(t, err)

	n, err := db.IncrementRetry(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.IncrementRetry(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
