package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sukru-can1/agent1go/internal/alert"
	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/store"
)

// WorkerPool owns a fixed set of Workers sharing one handler and config.
type WorkerPool struct {
	kv      *kv.Store
	store   *store.Store
	handler EventHandler
	cfg     Config
	alerts  *alert.Service

	workers  []*Worker
	started  bool
	stopOnce sync.Once
}

// NewWorkerPool constructs a pool. Call Start to spawn workers.
func NewWorkerPool(kvStore *kv.Store, db *store.Store, handler EventHandler, cfg Config, alerts *alert.Service) *WorkerPool {
	return &WorkerPool{
		kv:      kvStore,
		store:   db,
		handler: handler,
		cfg:     cfg,
		alerts:  alerts,
		workers: make([]*Worker, 0, cfg.WorkerCount),
	}
}

// Start spawns cfg.WorkerCount worker goroutines. Safe to call once; later
// calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	slog.Info("starting worker pool", "worker_count", p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		id := fmt.Sprintf("worker-%d", i)
		w := NewWorker(id, p.kv, p.store, p.handler, p.cfg, p.alerts)
		p.workers = append(p.workers, w)
		w.Start(ctx)
	}
}

// Stop signals every worker to stop and waits for in-flight events to
// finish.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		slog.Info("stopping worker pool")
		for _, w := range p.workers {
			w.Stop()
		}
		slog.Info("worker pool stopped")
	})
}

// Health aggregates pool and per-worker status for /admin/status.
func (p *WorkerPool) Health(ctx context.Context) *PoolHealth {
	depth, err := p.kv.QueueDepth(ctx)
	if err != nil {
		slog.Error("failed to read queue depth for health check", "error", err)
	}
	paused, err := p.kv.IsPaused(ctx)
	if err != nil {
		slog.Error("failed to read pause flag for health check", "error", err)
	}

	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		stats[i] = w.Health()
		if stats[i].Status == "working" {
			active++
		}
	}

	return &PoolHealth{
		QueueDepth:    depth,
		Paused:        paused,
		TotalWorkers:  len(p.workers),
		ActiveWorkers: active,
		WorkerStats:   stats,
	}
}
