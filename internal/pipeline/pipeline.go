// Package pipeline wires the classifier, guardrail engine, context
// enricher, and reasoning engine into the single queue.EventHandler the
// worker pool dispatches every dequeued event to, grounded on
// original_source/src/agent1/worker/loop.py's process_event.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	ctxengine "github.com/sukru-can1/agent1go/internal/context"
	"github.com/sukru-can1/agent1go/internal/classify"
	"github.com/sukru-can1/agent1go/internal/guardrail"
	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/reason"
	"github.com/sukru-can1/agent1go/internal/session"
	"github.com/sukru-can1/agent1go/internal/store"
)

// KnowledgeStore is the subset of internal/store.Store the teachable-rule
// short-circuit needs, kept narrow so it's easy to fake in tests.
type KnowledgeStore interface {
	InsertKnowledge(ctx context.Context, k *model.KnowledgeEntry) error
	InsertActionLog(ctx context.Context, a *model.ActionLogEntry) error
	UpdateEventStatus(ctx context.Context, id uuid.UUID, status model.Status, errMsg *string) error
	MarkProcessed(ctx context.Context, id uuid.UUID, status model.Status) error
}

// Pipeline implements queue.EventHandler, taking a dequeued event through
// classification, guardrails, context enrichment, and reasoning, then
// recording the outcome — the Go counterpart of loop.py's process_event.
type Pipeline struct {
	store     *store.Store
	classifier *classify.Classifier
	guardrails *guardrail.Engine
	enricher   *ctxengine.Engine
	reasoner   *reason.Engine
	sessions   *session.Manager
	log        *slog.Logger
}

// New constructs a Pipeline. Any of classifier/guardrails/enricher/reasoner
// may carry nil underlying clients — each stage already degrades safely
// (classify falls back to model.SafeDefault, reason.Engine reports "none"
// used with no provider configured), so the pipeline never needs its own
// nil branching around them. sessions may be nil, in which case chat and
// dashboard events are reasoned over with no conversation memory, same as
// any other one-shot source.
func New(st *store.Store, classifier *classify.Classifier, guardrails *guardrail.Engine, enricher *ctxengine.Engine, reasoner *reason.Engine, sessions *session.Manager, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{store: st, classifier: classifier, guardrails: guardrails, enricher: enricher, reasoner: reasoner, sessions: sessions, log: log}
}

// Handle runs one event through the full pipeline. It is the method the
// queue worker pool invokes for every leased event.
func (p *Pipeline) Handle(ctx context.Context, ev *model.Event) error {
	classification := p.classifier.Classify(ctx, ev)

	if classification.IsTeachableRule {
		return p.handleTeachableRule(ctx, ev, classification)
	}

	if ev.EventType == "morning_brief" || ev.EventType == "daily_summary" {
		return p.handleScheduledSummary(ctx, ev)
	}

	if p.guardrails != nil {
		verdict, err := p.guardrails.CheckBusinessRules(ctx, ev, classification)
		if err != nil {
			return fmt.Errorf("guardrail check: %w", err)
		}
		if !verdict.Allowed {
			p.logAction(ctx, ev, "guardrails_blocked", "blocked", "", 0, 0, 0, map[string]any{
				"rule":   verdict.Rule,
				"reason": verdict.Reason,
			})
			return p.store.MarkProcessed(ctx, ev.ID, model.StatusCompleted)
		}
	}

	var enriched *ctxengine.EnrichedContext
	if p.enricher != nil {
		var err error
		enriched, err = p.enricher.Enrich(ctx, ev, classification)
		if err != nil {
			return fmt.Errorf("context enrichment: %w", err)
		}
	}

	sess, history := p.loadSession(ctx, ev)
	if sess != nil {
		defer func() {
			if err := p.sessions.ReleaseLock(ctx, sess.SessionKey); err != nil {
				p.log.Warn("session_unlock_failed", "session_key", sess.SessionKey, "error", err)
			}
		}()
	}

	start := time.Now()
	outcome, err := p.reasoner.ReasonAndAct(ctx, ev, classification, enriched, history)
	if err != nil {
		return fmt.Errorf("reason and act: %w", err)
	}
	latency := time.Since(start).Milliseconds()

	if sess != nil {
		if err := p.sessions.StoreMessages(ctx, sess, userTextFor(ev), outcome.Result, &ev.ID); err != nil {
			p.log.Error("session_store_failed", "session_key", sess.SessionKey, "error", err)
		}
	}

	p.logAction(ctx, ev, "reason_and_act", outcome.Result, outcome.ModelUsed,
		outcome.InputTokens, outcome.OutputTokens, latency, map[string]any{
			"turns":        outcome.Turns,
			"tools_called": outcome.ToolsCalled,
			"category":     classification.Category,
			"complexity":   classification.Complexity,
		})

	return p.store.MarkProcessed(ctx, ev.ID, model.StatusCompleted)
}

// handleTeachableRule stores an operator-taught rule as knowledge instead
// of running full reasoning over it, matching loop.py's
// _handle_teachable_rule. Posting an acknowledgment back to the source chat
// is the original's job too, but no chat-reply tool is wired into the
// pipeline independently of the reasoning loop's tool registry, so this
// short-circuit only records the rule; the sender still sees the normal
// "thinking" turnaround next time the same situation recurs, since the
// knowledge entry will then be retrieved during context enrichment.
func (p *Pipeline) handleTeachableRule(ctx context.Context, ev *model.Event, classification model.ClassificationResult) error {
	content, _ := ev.Payload["text"].(string)
	entry := &model.KnowledgeEntry{
		ID:         uuid.New(),
		Category:   "taught_rule",
		Content:    content,
		Source:     string(ev.Source),
		Active:     true,
		Confidence: 1.0,
		CreatedAt:  time.Now().UTC(),
	}
	if err := p.store.InsertKnowledge(ctx, entry); err != nil {
		return fmt.Errorf("store taught rule: %w", err)
	}
	p.logAction(ctx, ev, "teachable_rule_stored", "stored", "", 0, 0, 0, map[string]any{
		"knowledge_id": entry.ID,
	})
	return p.store.MarkProcessed(ctx, ev.ID, model.StatusCompleted)
}

// handleScheduledSummary builds the operator daily-brief digest instead of
// running full reasoning over a scheduler-injected event, matching
// loop.py's _handle_summary_event. Posting the digest to a chat space is
// the reasoning loop's job elsewhere (via the chat reply tool); here the
// digest is recorded as an action log entry an operator can read from
// /admin/actions, and a :warning:-style flag is raised in its details when
// DLQ or pending-draft backlogs look unhealthy, same thresholds as the
// original.
func (p *Pipeline) handleScheduledSummary(ctx context.Context, ev *model.Event) error {
	summary, err := p.store.Summary(ctx)
	if err != nil {
		return fmt.Errorf("build scheduled summary: %w", err)
	}

	warnings := []string{}
	if summary.DLQUnresolved > 0 {
		warnings = append(warnings, "dlq_backlog")
	}
	if summary.DraftsPending > 10 {
		warnings = append(warnings, "draft_backlog")
	}

	p.logAction(ctx, ev, "scheduled_summary", "posted", "", 0, 0, 0, map[string]any{
		"events_today":      summary.EventsToday,
		"events_this_week":  summary.EventsThisWeek,
		"drafts_pending":    summary.DraftsPending,
		"drafts_sent_week":  summary.DraftsSentWeek,
		"failed_today":      summary.FailedToday,
		"dlq_unresolved":    summary.DLQUnresolved,
		"warnings":          warnings,
		"top_event_types":   summary.TopEventTypes,
	})
	return p.store.MarkProcessed(ctx, ev.ID, model.StatusCompleted)
}

// loadSession resolves ev to a session key and, if one applies, acquires
// its write lock and loads prior turns. A missed lock or a load failure is
// logged and treated as "no session" rather than failing the event —
// matching manager.py's callers, which never block message handling on
// session-memory plumbing.
func (p *Pipeline) loadSession(ctx context.Context, ev *model.Event) (*model.Session, []llm.Message) {
	if p.sessions == nil {
		return nil, nil
	}
	key := session.ResolveKey(ev)
	if key == "" {
		return nil, nil
	}

	ok, err := p.sessions.AcquireLock(ctx, key)
	if err != nil {
		p.log.Warn("session_lock_error", "session_key", key, "error", err)
		return nil, nil
	}
	if !ok {
		p.log.Warn("session_lock_timeout", "session_key", key)
		return nil, nil
	}

	userID, _ := ev.Payload["sender_id"].(string)
	userName, _ := ev.Payload["sender_name"].(string)
	sess, _, err := p.sessions.GetOrCreate(ctx, key, userID, userName)
	if err != nil {
		p.log.Error("session_get_or_create_failed", "session_key", key, "error", err)
		_ = p.sessions.ReleaseLock(ctx, key)
		return nil, nil
	}

	history, err := p.sessions.LoadHistory(ctx, sess)
	if err != nil {
		p.log.Error("session_load_history_failed", "session_key", key, "error", err)
		history = nil
	}
	return sess, history
}

// userTextFor extracts the inbound message text a session exchange should
// record as the user turn, matching the "text" payload field chat and
// dashboard events carry.
func userTextFor(ev *model.Event) string {
	text, _ := ev.Payload["text"].(string)
	return text
}

func (p *Pipeline) logAction(ctx context.Context, ev *model.Event, actionType, outcome, modelUsed string, inputTokens, outputTokens int, latencyMS int64, details map[string]any) {
	entry := &model.ActionLogEntry{
		Timestamp:    time.Now().UTC(),
		System:       string(ev.Source),
		ActionType:   actionType,
		Outcome:      outcome,
		ModelUsed:    modelUsed,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		LatencyMS:    latencyMS,
		Details:      details,
		EventID:      &ev.ID,
	}
	if err := p.store.InsertActionLog(ctx, entry); err != nil {
		p.log.Error("action_log_insert_failed", "event_id", ev.ID, "action_type", actionType, "error", err)
	}
}
