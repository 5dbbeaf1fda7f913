// Package queue is the priority event queue: publish writes the event to
// Redis (priority sorted set + payload cache) and Postgres (durable
// record); workers pop the lowest-scored member, lease it, and hand it to
// an EventHandler; ack/nack/DLQ close the loop (spec.md §4.1-4.2, §7).
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/sukru-can1/agent1go/internal/model"
)

// Sentinel errors for queue operations.
var (
	// ErrNoEventsAvailable indicates the priority set is currently empty.
	ErrNoEventsAvailable = errors.New("queue: no events available")

	// ErrPaused indicates the well-known pause flag is set; workers back off
	// without consuming further work.
	ErrPaused = errors.New("queue: paused")

	// ErrLeaseTaken indicates another worker already holds the event's lease
	// (a benign race under concurrent workers).
	ErrLeaseTaken = errors.New("queue: lease already held")
)

// EventHandler processes one claimed event end to end (classify, guardrail,
// context-enrich, reason-and-act). A returned error triggers retry/DLQ
// handling; a nil error acks the event.
type EventHandler interface {
	Handle(ctx context.Context, event *model.Event) error
}

// Config tunes worker pool behavior. Mirrors the shape of the teacher's
// QueueConfig but adds the retry/backoff/lease knobs this domain's
// at-least-once delivery contract needs (spec.md §7).
type Config struct {
	WorkerCount        int
	PollInterval       time.Duration
	PollIntervalJitter time.Duration
	LeaseTTL           time.Duration
	MaxRetries         int
	RetryBackoffBase   time.Duration
}

// DefaultConfig returns production-sane defaults, overridden by
// internal/config's env loader.
func DefaultConfig() Config {
	return Config{
		WorkerCount:        4,
		PollInterval:       500 * time.Millisecond,
		PollIntervalJitter: 150 * time.Millisecond,
		LeaseTTL:           5 * time.Minute,
		MaxRetries:         3,
		RetryBackoffBase:   2 * time.Second,
	}
}

// PoolHealth reports aggregate worker pool state for /admin/status.
type PoolHealth struct {
	QueueDepth    int64          `json:"queue_depth"`
	Paused        bool           `json:"paused"`
	TotalWorkers  int            `json:"total_workers"`
	ActiveWorkers int            `json:"active_workers"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth reports a single worker's state.
type WorkerHealth struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	CurrentEventID    string    `json:"current_event_id,omitempty"`
	EventsProcessed   int       `json:"events_processed"`
	LastActivity      time.Time `json:"last_activity"`
}
