package model

import (
	"time"

	"github.com/google/uuid"
)

// ProposalType is the kind of change a Proposal represents. ExecuteApproval
// dispatches on this field (spec.md §9 "Dynamic dispatch for approvals").
type ProposalType string

// Recognized proposal types.
const (
	ProposalLearnedRule         ProposalType = "learned_rule"
	ProposalStrongRule          ProposalType = "strong_rule"
	ProposalToolCreation        ProposalType = "tool_creation"
	ProposalAutomation          ProposalType = "automation"
	ProposalExternalToolServer  ProposalType = "external_tool_server"
	ProposalGuardrailOverride   ProposalType = "guardrail_override"
	ProposalThresholdAdjustment ProposalType = "threshold_adjustment"
	ProposalPlaybookSuggestion  ProposalType = "playbook_suggestion"
)

// KnownProposalTypes is the set validated at Proposal creation time; unknown
// types are rejected before they ever reach approval.
var KnownProposalTypes = map[ProposalType]bool{
	ProposalLearnedRule:         true,
	ProposalStrongRule:          true,
	ProposalToolCreation:        true,
	ProposalAutomation:          true,
	ProposalExternalToolServer:  true,
	ProposalGuardrailOverride:   true,
	ProposalThresholdAdjustment: true,
	ProposalPlaybookSuggestion:  true,
}

// ProposalStatus is the operator verdict lifecycle.
type ProposalStatus string

// Recognized proposal statuses.
const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
	ProposalExpired  ProposalStatus = "expired"
)

// Proposal is a generalized approval-workflow item.
type Proposal struct {
	ID              uuid.UUID       `json:"id"`
	Type            ProposalType    `json:"type"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Evidence        string          `json:"evidence"`
	Code            *string         `json:"code,omitempty"`
	Config          map[string]any  `json:"config,omitempty"`
	Confidence      float64         `json:"confidence"`
	Status          ProposalStatus  `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	ReviewedBy      string          `json:"reviewed_by,omitempty"`
	ReviewNotes     string          `json:"review_notes,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	RelatedEventIDs []uuid.UUID     `json:"related_event_ids,omitempty"`
}

// SolutionType distinguishes a tool-creation solution from an automation.
type SolutionType string

// Recognized solution types, recovered from
// original_source/src/agent1/intelligence/solutions/factory.py.
const (
	SolutionTool      SolutionType = "tool"
	SolutionAutomation SolutionType = "automation"
)

// Solution is the persisted, executable form of an approved tool_creation or
// automation Proposal (spec.md §6 `solutions` table).
type Solution struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Type         SolutionType   `json:"solution_type"`
	Code         string         `json:"code"`
	Config       map[string]any `json:"config,omitempty"`
	Status       string         `json:"status"`
	Active       bool           `json:"active"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty"`
	ApprovedBy   string         `json:"approved_by,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
