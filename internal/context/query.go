package context

import (
	"fmt"

	"github.com/sukru-can1/agent1go/internal/model"
)

// maxSnippet truncates long payload fields before they go into the search
// query, matching context_engine.py's [:200] slices.
const maxSnippet = 200

// extractSearchQuery builds a search string from an event's payload without
// any model call, matching context_engine.py's _extract_search_query. The
// per-source field lists come from the payload shapes each poller/webhook
// produces (spec.md §3's per-source payload notes).
func extractSearchQuery(ev *model.Event) string {
	p := ev.Payload
	var parts []string

	switch ev.Source {
	case model.SourceMail:
		appendField(&parts, p, "from_address")
		appendField(&parts, p, "subject")
		appendSnippet(&parts, p, "body")
	case model.SourceTicketing:
		if id, ok := p["ticket_id"]; ok {
			parts = append(parts, fmt.Sprintf("ticket %v", id))
		}
		appendField(&parts, p, "subject")
		appendSnippet(&parts, p, "description")
	case model.SourceChat:
		appendSnippet(&parts, p, "text")
	case model.SourceSurvey:
		appendField(&parts, p, "customer_email")
		appendSnippet(&parts, p, "comment")
	case model.SourceDashboard:
		appendSnippet(&parts, p, "text")
	default:
		for _, key := range []string{"subject", "text", "description", "body"} {
			if appendSnippet(&parts, p, key) {
				break
			}
		}
	}

	if len(parts) == 0 {
		return ev.EventType
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}

func appendField(parts *[]string, payload map[string]any, key string) bool {
	v, ok := payload[key]
	if !ok {
		return false
	}
	s := fmt.Sprintf("%v", v)
	if s == "" {
		return false
	}
	*parts = append(*parts, s)
	return true
}

func appendSnippet(parts *[]string, payload map[string]any, key string) bool {
	v, ok := payload[key]
	if !ok {
		return false
	}
	s := fmt.Sprintf("%v", v)
	if s == "" {
		return false
	}
	if len(s) > maxSnippet {
		s = s[:maxSnippet]
	}
	*parts = append(*parts, s)
	return true
}
