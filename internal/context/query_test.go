package context

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sukru-can1/agent1go/internal/model"
)

func TestExtractSearchQuery(t *testing.T) {
	cases := []struct {
		name string
		ev   *model.Event
		want string
	}{
		{
			name: "mail uses from and subject",
			ev: model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{
				"from_address": "alice@example.com",
				"subject":      "Account locked",
			}),
			want: "alice@example.com Account locked",
		},
		{
			name: "ticketing uses ticket id and subject",
			ev: model.NewEvent(model.SourceTicketing, "ticket_created", model.PriorityMedium, map[string]any{
				"ticket_id": 42,
				"subject":   "Billing issue",
			}),
			want: "ticket 42 Billing issue",
		},
		{
			name: "empty payload falls back to event type",
			ev:   model.NewEvent(model.SourceDrive, "file_shared", model.PriorityLow, map[string]any{}),
			want: "file_shared",
		},
		{
			name: "generic source falls back to first present field",
			ev: model.NewEvent(model.SourceDrive, "file_shared", model.PriorityLow, map[string]any{
				"description": "quarterly report",
			}),
			want: "quarterly report",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractSearchQuery(tc.ev))
		})
	}
}

func TestExtractSearchQueryTruncatesLongSnippets(t *testing.T) {
	body := ""
	for i := 0; i < 500; i++ {
		body += "x"
	}
	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{
		"body": body,
	})
	got := extractSearchQuery(ev)
	assert.Len(t, got, maxSnippet)
}
