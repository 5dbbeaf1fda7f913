package model

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeEntry is a semantically searchable fact or taught rule.
// SupersedesID links entries into a linear revision chain — never a graph.
type KnowledgeEntry struct {
	ID           uuid.UUID  `json:"id"`
	Category     string     `json:"category"`
	Content      string     `json:"content"`
	Source       string     `json:"source"`
	Active       bool       `json:"active"`
	Confidence   float64    `json:"confidence"`
	Embedding    []float32  `json:"embedding,omitempty"`
	SupersedesID *uuid.UUID `json:"supersedes_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Incident is a historical resolved problem used for similarity retrieval.
type Incident struct {
	ID              uuid.UUID `json:"id"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	Resolution      string    `json:"resolution"`
	Market          string    `json:"market"`
	SystemsInvolved []string  `json:"systems_involved"`
	Tags            []string  `json:"tags"`
	Embedding       []float32 `json:"embedding,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// ActionLogEntry is one append-only audit record.
type ActionLogEntry struct {
	ID          int64          `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	System      string         `json:"system"`
	ActionType  string         `json:"action_type"`
	Outcome     string         `json:"outcome"`
	ModelUsed   string         `json:"model_used,omitempty"`
	InputTokens int            `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	LatencyMS   int64          `json:"latency_ms"`
	Details     map[string]any `json:"details,omitempty"`
	EventID     *uuid.UUID     `json:"event_id,omitempty"`
}

// Baseline is the per-(source, event_type, day_of_week, hour_of_day)
// historical mean/stddev used for anomaly detection.
type Baseline struct {
	Source      Source    `json:"source"`
	EventType   string    `json:"event_type"`
	DayOfWeek   int       `json:"day_of_week"` // 0=Sunday, matches time.Weekday
	HourOfDay   int       `json:"hour_of_day"` // 0-23
	MeanCount   float64   `json:"mean_count"`
	StddevCount float64   `json:"stddev_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsAnomaly implements the anomaly rule from spec.md §4.12 and §8 exactly:
// count > max(mean + 2*stddev, 2) when a baseline exists, else count >= 3.
func IsAnomaly(count int, baseline *Baseline) bool {
	if baseline == nil {
		return count >= 3
	}
	threshold := baseline.MeanCount + 2*baseline.StddevCount
	if threshold < 2 {
		threshold = 2
	}
	return float64(count) > threshold
}
