// Package poller defines the per-source polling interface implemented
// under internal/poller/source, and the shared dedup/publish plumbing
// every poller uses (spec.md §4.2, §9 "dedup at publish").
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/queue"
)

// DedupTTL bounds how long a poller's per-item dedup mark survives,
// matching the original's look-back window tolerance.
const DedupTTL = 48 * time.Hour

// Source polls one external collaborator for new activity and returns the
// events to publish. Implementations must not publish directly — the
// scheduler calls Publish via the shared Runner so dedup is applied
// uniformly (spec.md §9).
type Source interface {
	// Name identifies the source for logging and dedup key namespacing.
	Name() string
	// Poll fetches new items since the last call and returns one Event per
	// item, each carrying a stable DedupKey the Runner checks before
	// publishing.
	Poll(ctx context.Context) ([]Candidate, error)
}

// Candidate is an event awaiting dedup-check-then-publish.
type Candidate struct {
	Event    *model.Event
	DedupKey string
}

// Runner applies the is-duplicate / publish / mark-processed sequence
// common to every poller (spec.md §4.2).
type Runner struct {
	kv  *kv.Store
	pub *queue.Publisher
}

// NewRunner constructs a Runner.
func NewRunner(kvStore *kv.Store, pub *queue.Publisher) *Runner {
	return &Runner{kv: kvStore, pub: pub}
}

// Run polls src and publishes every non-duplicate candidate, returning the
// count actually published.
func (r *Runner) Run(ctx context.Context, src Source) (int, error) {
	candidates, err := src.Poll(ctx)
	if err != nil {
		return 0, fmt.Errorf("poller %s: %w", src.Name(), err)
	}

	published := 0
	for _, c := range candidates {
		dup, err := r.kv.IsDuplicate(ctx, src.Name(), c.DedupKey)
		if err != nil {
			return published, fmt.Errorf("poller %s: dedup check: %w", src.Name(), err)
		}
		if dup {
			continue
		}
		ok, err := r.pub.Publish(ctx, c.Event)
		if err != nil {
			return published, fmt.Errorf("poller %s: publish: %w", src.Name(), err)
		}
		if err := r.kv.MarkProcessed(ctx, src.Name(), c.DedupKey, DedupTTL); err != nil {
			return published, fmt.Errorf("poller %s: mark processed: %w", src.Name(), err)
		}
		if ok {
			published++
		}
	}
	return published, nil
}
