package reason

import (
	"encoding/json"
	"fmt"
	"strings"

	ctxengine "github.com/sukru-can1/agent1go/internal/context"
	"github.com/sukru-can1/agent1go/internal/model"
)

var languageNames = map[string]string{
	"de": "German", "tr": "Turkish", "fr": "French", "es": "Spanish",
	"it": "Italian", "nl": "Dutch", "pt": "Portuguese", "pl": "Polish",
	"ru": "Russian", "ar": "Arabic", "ja": "Japanese", "zh": "Chinese",
}

// buildContextMessage assembles the single user turn the reasoning loop
// starts from, porting engine.py's context_parts assembly: event summary,
// payload, classification, a language instruction when the sender didn't
// write in English, and the enriched-context block when one was retrieved.
func buildContextMessage(ev *model.Event, classification model.ClassificationResult, enriched *ctxengine.EnrichedContext) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("## Event\n- Source: %s\n- Type: %s\n- Priority: %s",
		ev.Source, ev.EventType, classification.Urgency))

	payloadJSON, err := json.MarshalIndent(ev.Payload, "", "  ")
	if err != nil {
		payloadJSON = []byte("{}")
	}
	parts = append(parts, fmt.Sprintf("\n## Payload\n```json\n%s\n```", payloadJSON))

	parts = append(parts, fmt.Sprintf(
		"\n## Classification\n- Category: %s\n- Urgency: %s\n- Complexity: %s\n- VIP: %t\n- Financial: %t\n- Needs Response: %t",
		classification.Category, classification.Urgency, classification.Complexity,
		classification.InvolvesVIP, classification.InvolvesFinancial, classification.NeedsResponse))

	lang := classification.DetectedLanguage
	if lang != "" && lang != "en" {
		name, ok := languageNames[lang]
		if !ok {
			name = strings.ToUpper(lang)
		}
		parts = append(parts, fmt.Sprintf(
			"\n## Language\nThe message is in **%s** (%s). Draft any response in %s to match the sender's language.",
			name, lang, name))
	}

	if enriched != nil {
		if formatted := ctxengine.Format(enriched); formatted != "" {
			parts = append(parts, "\n"+formatted)
		}
	}

	return strings.Join(parts, "\n")
}
