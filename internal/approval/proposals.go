package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

// proposalStore is the subset of *store.Store proposal review needs.
type proposalStore interface {
	GetProposal(ctx context.Context, id uuid.UUID) (*model.Proposal, error)
	ReviewProposal(ctx context.Context, id uuid.UUID, status model.ProposalStatus, reviewedBy, notes string) error
	InsertKnowledge(ctx context.Context, k *model.KnowledgeEntry) error
	InsertSolution(ctx context.Context, sol *model.Solution) error
	SetConfigValue(ctx context.Context, key, value string) error
}

// ToolActivator registers an approved tool_creation solution as a live,
// callable tool — the narrow interface internal/tool.Registry satisfies
// via its package-level ActivateToolSolution helper, kept separate to
// avoid an import cycle (mirrors internal/reason.ToolProvider).
type ToolActivator interface {
	ActivateTool(ctx context.Context, sol *model.Solution, schema map[string]any) error
}

// EventRepublisher republishes a synthetic event, used by the
// guardrail_override effect to re-run a previously blocked event with
// guardrails bypassed.
type EventRepublisher interface {
	Publish(ctx context.Context, ev *model.Event) (bool, error)
}

// ThresholdUpdater applies a threshold_adjustment proposal's config to the
// pattern detector's tunable thresholds.
type ThresholdUpdater interface {
	UpdateThreshold(ctx context.Context, config map[string]any) error
}

// ProposalReviewer applies operator verdicts to generalized proposals and
// dispatches each approved type's side effect, matching proposals.py's
// approve_proposal/execute_approval (spec.md §9 "dynamic dispatch for
// approvals").
type ProposalReviewer struct {
	store      proposalStore
	tools      ToolActivator
	publisher  EventRepublisher
	thresholds ThresholdUpdater
}

// NewProposalReviewer constructs a ProposalReviewer. tools, publisher, and
// thresholds may each be nil — the corresponding proposal types then no-op
// with a logged skip rather than failing the whole approval.
func NewProposalReviewer(st proposalStore, tools ToolActivator, publisher EventRepublisher, thresholds ThresholdUpdater) *ProposalReviewer {
	return &ProposalReviewer{store: st, tools: tools, publisher: publisher, thresholds: thresholds}
}

// Approve transitions a pending proposal to approved and executes its
// effect. editedDescription, if non-empty, overrides the proposal's stored
// description before the effect runs (factory.py honors operator edits the
// same way).
func (r *ProposalReviewer) Approve(ctx context.Context, id uuid.UUID, reviewedBy, notes, editedDescription string) error {
	p, err := r.store.GetProposal(ctx, id)
	if err != nil {
		return fmt.Errorf("approval: loading proposal %s: %w", id, err)
	}
	if p.Status != model.ProposalPending {
		return fmt.Errorf("approval: proposal %s is not pending (status=%s)", id, p.Status)
	}
	if editedDescription != "" {
		p.Description = editedDescription
	}

	if err := r.store.ReviewProposal(ctx, id, model.ProposalApproved, reviewedBy, notes); err != nil {
		return fmt.Errorf("approval: approving proposal %s: %w", id, err)
	}

	return r.execute(ctx, p)
}

// Reject transitions a pending proposal to rejected.
func (r *ProposalReviewer) Reject(ctx context.Context, id uuid.UUID, reviewedBy, reason string) error {
	return r.store.ReviewProposal(ctx, id, model.ProposalRejected, reviewedBy, reason)
}

// execute dispatches on Proposal.Type, matching proposals.py's
// execute_approval if/elif chain.
func (r *ProposalReviewer) execute(ctx context.Context, p *model.Proposal) error {
	switch p.Type {
	case model.ProposalLearnedRule, model.ProposalStrongRule:
		return r.storeApprovedRule(ctx, p)
	case model.ProposalGuardrailOverride:
		return r.republishGuardrailOverride(ctx, p)
	case model.ProposalToolCreation:
		return r.activateTool(ctx, p)
	case model.ProposalAutomation:
		return r.activateAutomation(ctx, p)
	case model.ProposalThresholdAdjustment:
		return r.updateThreshold(ctx, p)
	case model.ProposalExternalToolServer, model.ProposalPlaybookSuggestion:
		// Handled manually by an operator outside the agent, matching the
		// original's explicit no-op for MCP_SERVER/PLAYBOOK_SUGGESTION.
		return nil
	default:
		return fmt.Errorf("approval: unknown proposal type %q", p.Type)
	}
}

func (r *ProposalReviewer) storeApprovedRule(ctx context.Context, p *model.Proposal) error {
	return r.store.InsertKnowledge(ctx, &model.KnowledgeEntry{
		ID:         uuid.New(),
		Category:   "approved_rule",
		Content:    p.Description,
		Source:     "proposal:" + p.ID.String(),
		Active:     true,
		Confidence: p.Confidence,
		CreatedAt:  time.Now().UTC(),
	})
}

func (r *ProposalReviewer) republishGuardrailOverride(ctx context.Context, p *model.Proposal) error {
	if r.publisher == nil {
		return nil
	}
	originalEventID, _ := p.Config["event_id"].(string)
	if originalEventID == "" {
		return nil
	}
	ruleName, _ := p.Config["rule_name"].(string)

	ev := model.NewEvent(model.SourceSystem, "guardrail_override", model.PriorityHigh, map[string]any{
		"original_event_id": originalEventID,
		"rule_name":         ruleName,
		"skip_guardrails":   true,
	})
	_, err := r.publisher.Publish(ctx, ev)
	return err
}

func (r *ProposalReviewer) activateTool(ctx context.Context, p *model.Proposal) error {
	if p.Code == nil || *p.Code == "" {
		return nil
	}
	if r.tools == nil {
		return nil
	}

	schema := map[string]any{"type": "object", "properties": map[string]any{}}
	if p.Config != nil {
		schema = p.Config
	}

	now := time.Now().UTC()
	sol := &model.Solution{
		ID:          uuid.New(),
		Name:        p.Title,
		Description: p.Description,
		Type:        model.SolutionTool,
		Code:        *p.Code,
		Status:      "active",
		Active:      true,
		ApprovedAt:  &now,
		ApprovedBy:  p.ReviewedBy,
		CreatedAt:   now,
	}
	if err := r.store.InsertSolution(ctx, sol); err != nil {
		return fmt.Errorf("approval: persisting tool solution for proposal %s: %w", p.ID, err)
	}
	return r.tools.ActivateTool(ctx, sol, schema)
}

// activateAutomation persists the approved automation as an active
// Solution. Trigger wiring (cron schedule / event pattern) is left to a
// future scheduler integration — no "automations" trigger table exists in
// this module's schema yet, so activation here only makes the automation's
// code/config durably available, matching the narrower subset of
// factory.py's activate_automation this module implements.
func (r *ProposalReviewer) activateAutomation(ctx context.Context, p *model.Proposal) error {
	if p.Config == nil {
		return nil
	}
	var code string
	if p.Code != nil {
		code = *p.Code
	}

	now := time.Now().UTC()
	sol := &model.Solution{
		ID:          uuid.New(),
		Name:        p.Title,
		Description: p.Description,
		Type:        model.SolutionAutomation,
		Code:        code,
		Config:      p.Config,
		Status:      "active",
		Active:      true,
		ApprovedAt:  &now,
		ApprovedBy:  p.ReviewedBy,
		CreatedAt:   now,
	}
	return r.store.InsertSolution(ctx, sol)
}

func (r *ProposalReviewer) updateThreshold(ctx context.Context, p *model.Proposal) error {
	if p.Config == nil {
		return nil
	}
	if r.thresholds != nil {
		return r.thresholds.UpdateThreshold(ctx, p.Config)
	}
	encoded, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("approval: marshaling threshold config for proposal %s: %w", p.ID, err)
	}
	return r.store.SetConfigValue(ctx, "threshold_override:"+p.ID.String(), string(encoded))
}
