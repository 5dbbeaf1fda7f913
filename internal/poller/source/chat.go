package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	chatapi "google.golang.org/api/chat/v1"
	"google.golang.org/api/option"

	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/poller"
)

// ChatConfig configures the Google Chat poller.
type ChatConfig struct {
	TokenSource oauth2.TokenSource
	Spaces      []string
	UserEmail   string
}

// Chat polls configured Google Chat spaces for messages directed at the
// operator, grounded on gchat_poller.py. It filters out the operator's own
// messages and bot messages.
type Chat struct {
	cfg ChatConfig
	svc *chatapi.Service
}

// NewChat constructs a Chat poller. Returns nil if TokenSource or Spaces is
// unset.
func NewChat(ctx context.Context, cfg ChatConfig) (*Chat, error) {
	if cfg.TokenSource == nil || len(cfg.Spaces) == 0 {
		return nil, nil
	}
	svc, err := chatapi.NewService(ctx, option.WithTokenSource(cfg.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("chat: creating chat service: %w", err)
	}
	return &Chat{cfg: cfg, svc: svc}, nil
}

// Name identifies this source for dedup key namespacing.
func (c *Chat) Name() string { return "gchat_user" }

// Poll checks each configured space for messages created since the
// look-back window.
func (c *Chat) Poll(ctx context.Context) ([]poller.Candidate, error) {
	since := time.Now().UTC().Add(-10 * time.Minute).Format("2006-01-02T15:04:05Z")
	emailPrefix := strings.ToLower(strings.SplitN(c.cfg.UserEmail, "@", 2)[0])

	var out []poller.Candidate
	for _, spaceID := range c.cfg.Spaces {
		spaceName := spaceID
		if !strings.HasPrefix(spaceName, "spaces/") {
			spaceName = "spaces/" + spaceName
		}

		resp, err := c.svc.Spaces.Messages.List(spaceName).
			PageSize(20).
			Filter(fmt.Sprintf(`createTime > "%s"`, since)).
			Context(ctx).Do()
		if err != nil {
			continue // one bad space doesn't abort the whole poll
		}

		for _, msg := range resp.Messages {
			parts := strings.Split(msg.Name, "/")
			msgID := ""
			if len(parts) > 0 {
				msgID = parts[len(parts)-1]
			}
			if msgID == "" {
				continue
			}

			var senderType, senderDisplay, senderResource string
			if msg.Sender != nil {
				senderType = msg.Sender.Type
				senderDisplay = msg.Sender.DisplayName
				senderResource = msg.Sender.Name
			}
			if senderType == "BOT" {
				continue
			}
			if strings.HasPrefix(strings.ToLower(senderDisplay), emailPrefix) {
				continue
			}
			text := strings.TrimSpace(msg.Text)
			if text == "" {
				continue
			}

			var threadName string
			if msg.Thread != nil {
				threadName = msg.Thread.Name
			}

			ev := model.NewEvent(model.SourceChat, "chat_user_message", model.PriorityMedium, map[string]any{
				"space_id":        spaceName,
				"message_id":      msg.Name,
				"sender_name":     senderDisplay,
				"sender_resource": senderResource,
				"text":            text,
				"thread_id":       threadName,
				"create_time":     msg.CreateTime,
			})
			ev.IdempotencyKey = "gchat_user:" + msgID
			out = append(out, poller.Candidate{Event: ev, DedupKey: msgID})
		}
	}
	return out, nil
}
