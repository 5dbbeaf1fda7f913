// Package context retrieves relevant history and knowledge before an event
// reaches the reasoning engine, grounded on
// original_source/src/agent1/intelligence/context_engine.py.
package context

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/store"
)

// EnrichedContext is the bundle of retrieved history handed to the
// reasoning engine, mirroring context_engine.py's EnrichedContext dataclass.
type EnrichedContext struct {
	SimilarIncidents    []*model.Incident
	SenderHistory       []*model.ActionLogEntry
	RelevantKnowledge   []*model.KnowledgeEntry
	RelatedRecentEvents []*model.Event
	TokenEstimate       int
}

// Config tunes retrieval breadth and the token trim budget.
type Config struct {
	TokenBudget        int
	IncidentLimit      int
	KnowledgeLimit     int
	SenderHistoryLimit int
	RelatedEventsLimit int
	RelatedEventsHours int
}

// DefaultConfig matches context_engine.py's constants.
func DefaultConfig() Config {
	return Config{
		TokenBudget:        3000,
		IncidentLimit:      3,
		KnowledgeLimit:     5,
		SenderHistoryLimit: 5,
		RelatedEventsLimit: 5,
		RelatedEventsHours: 24,
	}
}

// Engine runs the four parallel retrievals and trims the result to the
// configured token budget.
type Engine struct {
	store    *store.Store
	embedder llm.Embedder
	cfg      Config
}

// New constructs an Engine. embedder may be nil, in which case Enrich
// returns an empty context without attempting any vector search — matching
// the spec's non-goal that an embedding provider is an external dependency,
// not something this module must supply.
func New(st *store.Store, embedder llm.Embedder, cfg Config) *Engine {
	if cfg.TokenBudget == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{store: st, embedder: embedder, cfg: cfg}
}

// Enrich retrieves similar incidents, relevant knowledge, sender history,
// and related recent events for ev, running all four queries concurrently,
// then trims the formatted result to the token budget by dropping the
// lowest-relevance category first: related events, then sender history,
// then knowledge, then incidents — exactly context_engine.py's order.
func (e *Engine) Enrich(ctx context.Context, ev *model.Event, classification model.ClassificationResult) (*EnrichedContext, error) {
	out := &EnrichedContext{}

	query := extractSearchQuery(ev)
	if query == "" || query == ev.EventType {
		return out, nil
	}

	sender := senderFromPayload(ev.Payload)

	var embedding []float32
	if e.embedder != nil {
		emb, err := e.embedder.Embed(ctx, query)
		if err != nil {
			return out, fmt.Errorf("context: embedding search query: %w", err)
		}
		embedding = emb
	}

	g, gctx := errgroup.WithContext(ctx)

	if embedding != nil {
		g.Go(func() error {
			incidents, err := e.store.SimilarIncidents(gctx, embedding, e.cfg.IncidentLimit)
			if err != nil {
				return nil // best-effort: one failing retrieval never aborts the others
			}
			out.SimilarIncidents = incidents
			return nil
		})
		g.Go(func() error {
			knowledge, err := e.store.SimilarKnowledge(gctx, "", embedding, e.cfg.KnowledgeLimit)
			if err != nil {
				return nil
			}
			out.RelevantKnowledge = knowledge
			return nil
		})
	}

	if sender != "" {
		g.Go(func() error {
			history, err := e.store.SenderHistory(gctx, sender, e.cfg.SenderHistoryLimit)
			if err != nil {
				return nil
			}
			out.SenderHistory = history
			return nil
		})
	}

	g.Go(func() error {
		related, err := e.store.RelatedEvents(gctx, ev.Source, ev.EventType, ev.ID,
			e.cfg.RelatedEventsHours, e.cfg.RelatedEventsLimit)
		if err != nil {
			return nil
		}
		out.RelatedRecentEvents = related
		return nil
	})

	_ = g.Wait() // every goroutine above swallows its own error; this can't actually fail

	e.trimToBudget(out)
	return out, nil
}

// trimToBudget repeatedly drops the lowest-relevance item until the
// formatted context fits the token budget, matching context_engine.py's
// drop order: related events, sender history, knowledge, incidents.
func (e *Engine) trimToBudget(ctx *EnrichedContext) {
	ctx.TokenEstimate = estimateTokens(Format(ctx))
	for ctx.TokenEstimate > e.cfg.TokenBudget {
		switch {
		case len(ctx.RelatedRecentEvents) > 0:
			ctx.RelatedRecentEvents = ctx.RelatedRecentEvents[:len(ctx.RelatedRecentEvents)-1]
		case len(ctx.SenderHistory) > 0:
			ctx.SenderHistory = ctx.SenderHistory[:len(ctx.SenderHistory)-1]
		case len(ctx.RelevantKnowledge) > 0:
			ctx.RelevantKnowledge = ctx.RelevantKnowledge[:len(ctx.RelevantKnowledge)-1]
		case len(ctx.SimilarIncidents) > 0:
			ctx.SimilarIncidents = ctx.SimilarIncidents[:len(ctx.SimilarIncidents)-1]
		default:
			return
		}
		ctx.TokenEstimate = estimateTokens(Format(ctx))
	}
}

func senderFromPayload(payload map[string]any) string {
	for _, key := range []string{"from_address", "sender_email", "requester_email"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
