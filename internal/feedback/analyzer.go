// Package feedback implements the scheduled draft-edit learning pass:
// mining internal/approval's edit-distance tracking for sender/category
// pairs the agent consistently gets corrected on, and recording each as a
// knowledge entry so the context engine can retrieve it next time,
// grounded on original_source/src/agent1/feedback/analyzer.py and
// original_source/src/agent1/worker/pollers/scheduler.py's
// _run_feedback_analysis.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

// Store is the subset of internal/store.Store the analyzer needs.
type Store interface {
	DraftFeedbackPatterns(ctx context.Context, minEdits int) ([]model.EditPattern, error)
	ActiveKnowledgeExists(ctx context.Context, category, source string) (bool, error)
	InsertKnowledge(ctx context.Context, k *model.KnowledgeEntry) error
}

// Analyzer runs analyze_edit_patterns and persists newly-discovered
// patterns as knowledge. It structurally satisfies
// internal/scheduler.FeedbackAnalyzer.
type Analyzer struct {
	store Store
	log   *slog.Logger
}

// New constructs an Analyzer.
func New(st Store, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{store: st, log: log}
}

// editPatternCategory is the fixed knowledge category every learned edit
// pattern is stored under, matching scheduler.py's INSERT.
const editPatternCategory = "edit_pattern"

// AnalyzeEditPatterns groups recent draft edits by sender domain and
// category, and for every group with at least minEdits samples and a
// non-trivial average edit ratio, records a knowledge entry describing the
// pattern — unless one is already active for that sender, matching
// scheduler.py's "store as knowledge if not already stored" guard.
func (a *Analyzer) AnalyzeEditPatterns(ctx context.Context, minEdits int) error {
	patterns, err := a.store.DraftFeedbackPatterns(ctx, minEdits)
	if err != nil {
		return fmt.Errorf("feedback: querying edit patterns: %w", err)
	}
	if len(patterns) == 0 {
		return nil
	}

	stored := 0
	for _, p := range patterns {
		source := "feedback:" + p.SenderDomain
		exists, err := a.store.ActiveKnowledgeExists(ctx, editPatternCategory, source)
		if err != nil {
			a.log.Error("feedback_pattern_lookup_failed", "sender_domain", p.SenderDomain, "error", err)
			continue
		}
		if exists {
			continue
		}

		entry := &model.KnowledgeEntry{
			ID:         uuid.New(),
			Category:   editPatternCategory,
			Content:    formatPattern(p),
			Source:     source,
			Active:     true,
			Confidence: 1.0,
			CreatedAt:  time.Now().UTC(),
		}
		if err := a.store.InsertKnowledge(ctx, entry); err != nil {
			a.log.Error("feedback_pattern_store_failed", "sender_domain", p.SenderDomain, "error", err)
			continue
		}
		stored++
	}

	a.log.Info("feedback_patterns_analyzed", "found", len(patterns), "stored", stored)
	return nil
}

func formatPattern(p model.EditPattern) string {
	return fmt.Sprintf("Drafts for %s (%s) are edited %.0f%% on average. Adjust tone/style accordingly.",
		p.SenderDomain, p.Category, p.AvgEditRatio*100)
}
