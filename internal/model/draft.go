package model

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus is the lifecycle state of a Draft. Valid transitions form a
// DAG: pending -> {approved, rejected}; approved -> sent; approved+edit -> edited -> sent.
type DraftStatus string

// Recognized draft statuses.
const (
	DraftPending  DraftStatus = "pending"
	DraftApproved DraftStatus = "approved"
	DraftRejected DraftStatus = "rejected"
	DraftSent     DraftStatus = "sent"
	DraftEdited   DraftStatus = "edited"
)

// Draft is a proposed outbound reply pending operator approval.
type Draft struct {
	ID                uuid.UUID   `json:"id"`
	SourceMessageRef   string      `json:"source_message_ref"`
	From               string      `json:"from"`
	To                 []string    `json:"to"`
	Subject            string      `json:"subject"`
	OriginalBody       string      `json:"original_body"`
	DraftBody          string      `json:"draft_body"`
	EditedBody         *string     `json:"edited_body,omitempty"`
	Status             DraftStatus `json:"status"`
	Classification     string      `json:"classification"`
	ContextualNotes    string      `json:"contextual_notes"`
	CreatedAt          time.Time   `json:"created_at"`
	ApprovedAt         *time.Time  `json:"approved_at,omitempty"`
	SentAt             *time.Time  `json:"sent_at,omitempty"`
}

// FinalBody returns the edited body if present, else the original draft body.
func (d *Draft) FinalBody() string {
	if d.EditedBody != nil && *d.EditedBody != "" {
		return *d.EditedBody
	}
	return d.DraftBody
}

// DraftFeedback records the edit distance between a draft and its operator
// edit, used by the qualitative-learning pass (spec.md §6 draft_feedback).
type DraftFeedback struct {
	ID             int64     `json:"id"`
	DraftID        uuid.UUID `json:"draft_id"`
	SenderDomain   string    `json:"sender_domain"`
	Category       string    `json:"category"`
	EditDistance   int       `json:"edit_distance"`
	EditRatio      float64   `json:"edit_ratio"`
	OriginalLength int       `json:"original_length"`
	EditedLength   int       `json:"edited_length"`
	CreatedAt      time.Time `json:"created_at"`
}

// EditPattern is one sender_domain/category group from the draft-edit
// history, aggregated by internal/store.DraftFeedbackPatterns, where the
// agent's drafts are consistently getting corrected enough to be worth
// learning from (analyzer.py's analyze_edit_patterns).
type EditPattern struct {
	SenderDomain    string  `json:"sender_domain"`
	Category        string  `json:"category"`
	EditCount       int     `json:"edit_count"`
	AvgEditRatio    float64 `json:"avg_edit_ratio"`
	AvgEditDistance float64 `json:"avg_edit_distance"`
}
