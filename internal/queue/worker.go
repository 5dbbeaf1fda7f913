package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/alert"
	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/store"
)

// Worker polls the priority queue and hands each claimed event to an
// EventHandler, then acks, retries, or dead-letters based on the outcome.
type Worker struct {
	id      string
	kv      *kv.Store
	store   *store.Store
	handler EventHandler
	cfg     Config
	alerts  *alert.Service

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu              sync.RWMutex
	status          string
	currentEventID  string
	eventsProcessed int
	lastActivity    time.Time
}

// NewWorker constructs a Worker. alerts may be nil (Slack DLQ notification
// disabled).
func NewWorker(id string, kvStore *kv.Store, db *store.Store, handler EventHandler, cfg Config, alerts *alert.Service) *Worker {
	return &Worker{
		id:           id,
		kv:           kvStore,
		store:        db,
		handler:      handler,
		cfg:          cfg,
		alerts:       alerts,
		stopCh:       make(chan struct{}),
		status:       "idle",
		lastActivity: time.Now(),
	}
}

// Start begins the worker's polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for its current event to
// finish. Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health reports this worker's current state.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:              w.id,
		Status:          w.status,
		CurrentEventID:  w.currentEventID,
		EventsProcessed: w.eventsProcessed,
		LastActivity:    w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoEventsAvailable) || errors.Is(err, ErrPaused) || errors.Is(err, ErrLeaseTaken) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing event", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims the next event (if any), processes it through the
// handler, and resolves it via ack/nack/DLQ.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	paused, err := w.kv.IsPaused(ctx)
	if err != nil {
		return fmt.Errorf("checking pause flag: %w", err)
	}
	if paused {
		return ErrPaused
	}

	id, err := w.kv.PopLowestScore(ctx)
	if err != nil {
		if errors.Is(err, kv.ErrEmpty) {
			return ErrNoEventsAvailable
		}
		return fmt.Errorf("popping queue: %w", err)
	}

	acquired, err := w.kv.AcquireLock(ctx, "event:"+id, w.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("acquiring lease for %s: %w", id, err)
	}
	if !acquired {
		// Another worker (or an un-expired lease from a crashed one) has it;
		// the popped member is already gone from the set, so nothing further
		// to do here — it will be retried via the nack path when the holder
		// finishes, or reappear never (lease expiry is the backstop).
		return ErrLeaseTaken
	}
	defer func() {
		if err := w.kv.ReleaseLock(ctx, "event:"+id); err != nil {
			slog.Warn("failed to release event lease", "event_id", id, "error", err)
		}
	}()

	payloadJSON, err := w.kv.GetPayload(ctx, id)
	if err != nil {
		// Payload TTL'd out from under us; nothing to process, drop it.
		slog.Warn("event payload missing, dropping", "event_id", id, "error", err)
		return nil
	}

	var ev model.Event
	if err := json.Unmarshal([]byte(payloadJSON), &ev); err != nil {
		slog.Error("event payload corrupt, dropping", "event_id", id, "error", err)
		return w.kv.DeletePayload(ctx, id)
	}

	w.setStatus("working", ev.ID.String())
	defer w.setStatus("idle", "")

	if err := w.store.UpdateEventStatus(ctx, ev.ID, model.StatusProcessing, nil); err != nil {
		slog.Warn("failed to mark event processing", "event_id", ev.ID, "error", err)
	}

	handleErr := w.handler.Handle(ctx, &ev)
	if handleErr == nil {
		return w.ack(ctx, &ev)
	}
	return w.nack(ctx, &ev, handleErr)
}

// ack finalizes successful processing: mark completed in Postgres, drop the
// Redis payload cache.
func (w *Worker) ack(ctx context.Context, ev *model.Event) error {
	if err := w.store.MarkProcessed(ctx, ev.ID, model.StatusCompleted); err != nil {
		slog.Error("failed to mark event completed", "event_id", ev.ID, "error", err)
	}
	if err := w.kv.DeletePayload(ctx, ev.ID.String()); err != nil {
		slog.Warn("failed to delete event payload", "event_id", ev.ID, "error", err)
	}
	w.mu.Lock()
	w.eventsProcessed++
	w.mu.Unlock()
	return nil
}

// nack records the failure, retries with backoff while the retry budget
// remains, or moves the event to the dead-letter table once exhausted
// (spec.md §7).
func (w *Worker) nack(ctx context.Context, ev *model.Event, handleErr error) error {
	errMsg := handleErr.Error()
	retryCount, err := w.store.IncrementRetry(ctx, ev.ID)
	if err != nil {
		slog.Error("failed to increment retry count", "event_id", ev.ID, "error", err)
		retryCount = ev.RetryCount + 1
	}

	if retryCount > w.cfg.MaxRetries {
		return w.deadLetter(ctx, ev, retryCount, errMsg)
	}

	if err := w.store.UpdateEventStatus(ctx, ev.ID, model.StatusPending, &errMsg); err != nil {
		slog.Warn("failed to mark event pending for retry", "event_id", ev.ID, "error", err)
	}

	// Re-enqueue at the same priority; retry backoff is expressed as a
	// delayed re-insertion by biasing created_at forward so the score
	// reflects "not eligible until roughly now + backoff" within the same
	// priority tier.
	backoff := w.cfg.RetryBackoffBase * time.Duration(1<<uint(retryCount-1))
	ev.CreatedAt = time.Now().UTC().Add(backoff)
	envelope, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event for retry: %w", err)
	}
	if err := w.kv.EnqueueScore(ctx, ev.ID.String(), ev.Score(), string(envelope)); err != nil {
		return fmt.Errorf("re-enqueue for retry: %w", err)
	}

	slog.Warn("event nacked, retry scheduled",
		"event_id", ev.ID, "retry_count", retryCount, "max_retries", w.cfg.MaxRetries,
		"backoff", backoff, "error", handleErr)
	return nil
}

func (w *Worker) deadLetter(ctx context.Context, ev *model.Event, retryCount int, errMsg string) error {
	dl := &model.DeadLetterEvent{
		ID:              uuid.New(),
		OriginalEventID: ev.ID,
		Source:          ev.Source,
		EventType:       ev.EventType,
		Priority:        ev.Priority,
		Payload:         ev.Payload,
		ErrorHistory:    []model.ErrorHistoryEntry{{Retry: retryCount, Error: errMsg}},
		RetryCount:      retryCount,
		CreatedAt:       time.Now().UTC(),
	}
	if err := w.store.InsertDeadLetter(ctx, dl); err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	if err := w.store.UpdateEventStatus(ctx, ev.ID, model.StatusDeadLetter, &errMsg); err != nil {
		slog.Warn("failed to mark event dead_letter", "event_id", ev.ID, "error", err)
	}
	if err := w.kv.DeletePayload(ctx, ev.ID.String()); err != nil {
		slog.Warn("failed to delete event payload after dead-lettering", "event_id", ev.ID, "error", err)
	}

	slog.Error("event exhausted retries, moved to dead letter queue",
		"event_id", ev.ID, "source", ev.Source, "event_type", ev.EventType, "error", errMsg)
	if w.alerts != nil {
		w.alerts.NotifyDeadLetter(ctx, dl)
	}
	return nil
}

func (w *Worker) pollInterval() time.Duration {
	base := w.cfg.PollInterval
	jitter := w.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status, eventID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentEventID = eventID
	w.lastActivity = time.Now()
}
