package model

import (
	"time"

	"github.com/google/uuid"
)

// ErrorHistoryEntry is one append-only record of a failed processing attempt.
type ErrorHistoryEntry struct {
	Retry int    `json:"retry"`
	Error string `json:"error"`
}

// DeadLetterEvent is the terminal store for an event that exhausted its
// retry budget.
type DeadLetterEvent struct {
	ID               uuid.UUID           `json:"id"`
	OriginalEventID  uuid.UUID           `json:"original_event_id"`
	Source           Source              `json:"source"`
	EventType        string              `json:"event_type"`
	Priority         Priority            `json:"priority"`
	Payload          map[string]any      `json:"payload"`
	ErrorHistory     []ErrorHistoryEntry `json:"error_history"`
	RetryCount       int                 `json:"retry_count"`
	CreatedAt        time.Time           `json:"created_at"`
	ResolvedAt       *time.Time          `json:"resolved_at,omitempty"`
	ResolvedBy       string              `json:"resolved_by,omitempty"`
}
