package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

// Recognized session statuses.
const (
	SessionActive  SessionStatus = "active"
	SessionExpired SessionStatus = "expired"
)

// Session is a conversation-scoped memory, unique per SessionKey while active.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	SessionKey    string        `json:"session_key"`
	Platform      string        `json:"platform"`
	UserID        string        `json:"user_id"`
	UserName      string        `json:"user_name"`
	Status        SessionStatus `json:"status"`
	MessageCount  int           `json:"message_count"`
	Summary       *string       `json:"summary,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	LastActiveAt  time.Time     `json:"last_active_at"`
}

// MessageRole distinguishes who authored a SessionMessage.
type MessageRole string

// Recognized message roles.
const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// SessionMessage is one turn of a session's transcript.
type SessionMessage struct {
	ID        int64       `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	EventID   *uuid.UUID  `json:"event_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ChatMessage is the provider-agnostic shape used by internal/llm and
// internal/session when exchanging turns with an LLM.
type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}
