package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/store"
)

// Publisher writes new events into both the durable store and the Redis
// priority queue. Split from Worker since pollers and the webhook receiver
// both publish without ever consuming.
type Publisher struct {
	kv    *kv.Store
	store *store.Store
}

// NewPublisher constructs a Publisher.
func NewPublisher(kvStore *kv.Store, db *store.Store) *Publisher {
	return &Publisher{kv: kvStore, store: db}
}

// Publish persists e to Postgres and enqueues it into the priority set.
// Returns false without enqueuing if e's idempotency_key collided with an
// existing durable row (spec.md §4.1 "duplicates silently drop") — this is
// a second, relational-layer dedup check distinct from the caller's own
// kv.IsDuplicate pass (spec.md §4.1 "publish is not [the only] dedup
// point").
func (p *Publisher) Publish(ctx context.Context, e *model.Event) (bool, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return false, fmt.Errorf("queue: marshal payload: %w", err)
	}
	envelope, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("queue: marshal event: %w", err)
	}

	inserted, err := p.store.InsertEvent(ctx, e)
	if err != nil {
		return false, fmt.Errorf("queue: insert event: %w", err)
	}
	if !inserted {
		slog.Info("event deduped",
			"event_id", e.ID, "source", e.Source, "event_type", e.EventType,
			"idempotency_key", e.IdempotencyKey)
		return false, nil
	}
	if err := p.kv.EnqueueScore(ctx, e.ID.String(), e.Score(), string(envelope)); err != nil {
		return false, fmt.Errorf("queue: enqueue: %w", err)
	}

	slog.Info("event published",
		"event_id", e.ID, "source", e.Source, "event_type", e.EventType,
		"priority", e.Priority, "payload_bytes", len(payload))
	return true, nil
}
