package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sukru-can1/agent1go/internal/model"
)

func TestResolveKey(t *testing.T) {
	cases := []struct {
		name string
		ev   *model.Event
		want string
	}{
		{
			name: "chat with thread",
			ev: model.NewEvent(model.SourceChat, "chat_user_message", model.PriorityMedium, map[string]any{
				"space_id": "spaces/ABC", "thread_id": "spaces/ABC/threads/1",
			}),
			want: "chat:spaces/ABC:spaces/ABC/threads/1",
		},
		{
			name: "chat dm without thread",
			ev: model.NewEvent(model.SourceChat, "chat_user_message", model.PriorityMedium, map[string]any{
				"space_id": "spaces/DM1",
			}),
			want: "chat:spaces/DM1",
		},
		{
			name: "chat with no space is session-less",
			ev:   model.NewEvent(model.SourceChat, "chat_user_message", model.PriorityMedium, map[string]any{}),
			want: "",
		},
		{
			name: "dashboard with sender",
			ev: model.NewEvent(model.SourceDashboard, "dashboard_query", model.PriorityLow, map[string]any{
				"sender_email": "ops@example.com",
			}),
			want: "dashboard:ops@example.com",
		},
		{
			name: "dashboard falls back to admin",
			ev:   model.NewEvent(model.SourceDashboard, "dashboard_query", model.PriorityLow, map[string]any{}),
			want: "dashboard:admin",
		},
		{
			name: "mail has no session",
			ev:   model.NewEvent(model.SourceMail, "new_email", model.PriorityMedium, map[string]any{}),
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveKey(tc.ev))
		})
	}
}

func TestPlatform(t *testing.T) {
	assert.Equal(t, "chat", Platform("chat:spaces/ABC"))
	assert.Equal(t, "dashboard", Platform("dashboard:ops@example.com"))
	assert.Equal(t, "standalone", Platform("standalone"))
}
