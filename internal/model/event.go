// Package model defines the canonical data types that flow through the
// queue, store, and reasoning pipeline.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies which external collaborator an event originated from.
type Source string

// Recognized event sources.
const (
	SourceMail             Source = "mail"
	SourceChat             Source = "chat"
	SourceTicketing        Source = "ticketing"
	SourceSurvey           Source = "survey"
	SourceProjectManagement Source = "project_management"
	SourceDrive            Source = "drive"
	SourceDashboard        Source = "dashboard"
	SourceSystem           Source = "system" // scheduler/admin-injected events
)

// Priority is the event's queue priority. Lower numeric value sorts first.
type Priority int

// Recognized priorities, matching spec.md §3 exactly.
const (
	PriorityCritical   Priority = 1
	PriorityHigh       Priority = 3
	PriorityMedium     Priority = 5
	PriorityLow        Priority = 7
	PriorityBackground Priority = 9
)

// String renders a Priority by name, for logs and prompts.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	case PriorityBackground:
		return "BACKGROUND"
	default:
		return "UNKNOWN"
	}
}

// scoreMultiplier is K in the queue ordering key priority*K + created_at_ms.
// It must exceed any realistic created_at_ms (milliseconds since epoch, ~13
// digits) so that priority always dominates timestamp.
const scoreMultiplier = 1e12

// Status is the lifecycle state of an Event.
type Status string

// Recognized event statuses.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusDeadLetter Status = "dead_letter"
)

// Event is the unit of work flowing through the queue.
type Event struct {
	ID             uuid.UUID              `json:"id"`
	Source         Source                 `json:"source"`
	EventType      string                 `json:"event_type"`
	Priority       Priority               `json:"priority"`
	Payload        map[string]any         `json:"payload"`
	IdempotencyKey string                 `json:"idempotency_key"`
	CreatedAt      time.Time              `json:"created_at"`
	ProcessedAt    *time.Time             `json:"processed_at,omitempty"`
	Status         Status                 `json:"status"`
	RetryCount     int                    `json:"retry_count"`
	Error          *string                `json:"error,omitempty"`
}

// NewEvent constructs an Event with a fresh ID, pending status, and the
// current timestamp. Callers set Source/EventType/Priority/Payload/IdempotencyKey.
func NewEvent(source Source, eventType string, priority Priority, payload map[string]any) *Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Event{
		ID:        uuid.New(),
		Source:    source,
		EventType: eventType,
		Priority:  priority,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
		Status:    StatusPending,
	}
}

// Score computes the sorted-set ordering key: priority*K + created_at_ms.
// Lower scores are consumed first — CRITICAL events always precede HIGH
// events regardless of age, and within a priority tier FIFO is preserved
// by millisecond timestamp.
func Score(priority Priority, createdAt time.Time) float64 {
	return float64(priority)*scoreMultiplier + float64(createdAt.UnixMilli())
}

// Score returns this event's queue ordering key.
func (e *Event) Score() float64 {
	return Score(e.Priority, e.CreatedAt)
}
