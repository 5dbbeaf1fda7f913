package context

import (
	"fmt"
	"strings"
)

// estimateTokens is the same rough heuristic context_engine.py uses:
// roughly 4 characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}

// Format renders an EnrichedContext as the markdown block injected into the
// reasoning prompt, matching context_engine.py's _format_context section
// order and headings.
func Format(ctx *EnrichedContext) string {
	var sections []string

	if len(ctx.SimilarIncidents) > 0 {
		var lines []string
		for _, inc := range ctx.SimilarIncidents {
			desc := truncate(inc.Description, 200)
			res := ""
			if inc.Resolution != "" {
				res = " -> resolved: " + inc.Resolution
			}
			lines = append(lines, fmt.Sprintf("- %s%s", desc, res))
		}
		sections = append(sections, "### Similar Past Incidents:\n"+strings.Join(lines, "\n"))
	}

	if len(ctx.SenderHistory) > 0 {
		var lines []string
		for _, h := range ctx.SenderHistory {
			lines = append(lines, fmt.Sprintf("- [%s] %s — %s",
				h.Timestamp.Format("2006-01-02T15:04:05Z"), h.ActionType, h.Outcome))
		}
		sections = append(sections, "### Sender History:\n"+strings.Join(lines, "\n"))
	}

	if len(ctx.RelevantKnowledge) > 0 {
		var lines []string
		for _, k := range ctx.RelevantKnowledge {
			content := truncate(k.Content, 200)
			conf := ""
			if k.Confidence > 0 {
				conf = fmt.Sprintf(" (confidence: %.1f)", k.Confidence)
			}
			lines = append(lines, fmt.Sprintf("- %s%s", content, conf))
		}
		sections = append(sections, "### Relevant Rules:\n"+strings.Join(lines, "\n"))
	}

	if len(ctx.RelatedRecentEvents) > 0 {
		var lines []string
		for _, e := range ctx.RelatedRecentEvents {
			lines = append(lines, fmt.Sprintf("- [%s] %s — %s",
				e.Source, e.EventType, e.CreatedAt.Format("2006-01-02T15:04:05Z")))
		}
		sections = append(sections, "### Recent Related Events (last 24h):\n"+strings.Join(lines, "\n"))
	}

	if len(sections) == 0 {
		return ""
	}
	return "## Relevant Context (auto-retrieved)\n" + strings.Join(sections, "\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
