// Package session implements the conversation-scoped memory spec.md §4.10
// describes, grounded on
// original_source/src/agent1/sessions/{manager,lock}.py.
package session

import (
	"fmt"

	"github.com/sukru-can1/agent1go/internal/model"
)

// ResolveKey derives a session key from an event, or "" if sessions don't
// apply to its source — only chat (thread-scoped) and dashboard
// (user-scoped) conversations carry session state.
func ResolveKey(ev *model.Event) string {
	switch ev.Source {
	case model.SourceChat:
		space, _ := ev.Payload["space_id"].(string)
		if space == "" {
			return ""
		}
		thread, _ := ev.Payload["thread_id"].(string)
		if thread != "" {
			return fmt.Sprintf("chat:%s:%s", space, thread)
		}
		return "chat:" + space
	case model.SourceDashboard:
		email, _ := ev.Payload["sender_email"].(string)
		if email == "" {
			email = "admin"
		}
		return "dashboard:" + email
	default:
		return ""
	}
}

// Platform extracts the platform label ("chat"/"dashboard") embedded at
// the front of a session key, used for idle-policy selection.
func Platform(sessionKey string) string {
	for i, c := range sessionKey {
		if c == ':' {
			return sessionKey[:i]
		}
	}
	return sessionKey
}
