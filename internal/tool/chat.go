package tool

import (
	"context"
	"fmt"
	"strings"

	chatapi "google.golang.org/api/chat/v1"
)

// RegisterChatTools wires the chat_* tools from registry.py's
// GChatPostMessageTool/GChatGetMessagesTool (agent identity) and
// GChatReplyAsUserTool (user identity), grounded on
// internal/poller/source/chat.go's client construction. agentSvc and
// userSvc may each be nil if that identity's credentials aren't configured,
// in which case the tools in that group are skipped.
func RegisterChatTools(r *Registry, agentSvc, userSvc *chatapi.Service) error {
	var tools []*Tool

	if agentSvc != nil {
		tools = append(tools,
			&Tool{
				Name:        "chat_post_message",
				Group:       "chat_agent",
				Description: "Post a message to a chat space as the agent's own bot identity.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"space_id": map[string]any{"type": "string"},
						"text":     map[string]any{"type": "string"},
						"thread_id": map[string]any{"type": "string"},
					},
					"required": []any{"space_id", "text"},
				},
				Handler: func(ctx context.Context, args map[string]any) (any, error) {
					spaceID := normalizeSpaceName(strArg(args, "space_id"))
					msg := &chatapi.Message{Text: strArg(args, "text")}
					if threadID := strArg(args, "thread_id"); threadID != "" {
						msg.Thread = &chatapi.Thread{Name: threadID}
					}
					sent, err := agentSvc.Spaces.Messages.Create(spaceID, msg).Context(ctx).Do()
					if err != nil {
						return nil, fmt.Errorf("chat_post_message: %w", err)
					}
					return map[string]any{"message_id": sent.Name}, nil
				},
			},
			&Tool{
				Name:        "chat_get_messages",
				Group:       "chat_agent",
				Description: "List recent messages in a chat space.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"space_id":   map[string]any{"type": "string"},
						"page_size":  map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
					},
					"required": []any{"space_id"},
				},
				Handler: func(ctx context.Context, args map[string]any) (any, error) {
					spaceID := normalizeSpaceName(strArg(args, "space_id"))
					pageSize := int64(intArg(args, "page_size", 20))
					resp, err := agentSvc.Spaces.Messages.List(spaceID).PageSize(pageSize).Context(ctx).Do()
					if err != nil {
						return nil, fmt.Errorf("chat_get_messages: %w", err)
					}
					out := make([]map[string]any, 0, len(resp.Messages))
					for _, m := range resp.Messages {
						out = append(out, map[string]any{"message_id": m.Name, "text": m.Text, "create_time": m.CreateTime})
					}
					return map[string]any{"messages": out}, nil
				},
			},
		)
	}

	if userSvc != nil {
		tools = append(tools, &Tool{
			Name:        "chat_reply_as_user",
			Group:       "chat_user",
			Description: "Post a message to a chat space impersonating the operator's own user identity, for replies that must appear to come from a person.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"space_id":  map[string]any{"type": "string"},
					"text":      map[string]any{"type": "string"},
					"thread_id": map[string]any{"type": "string"},
				},
				"required": []any{"space_id", "text"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				spaceID := normalizeSpaceName(strArg(args, "space_id"))
				msg := &chatapi.Message{Text: strArg(args, "text")}
				if threadID := strArg(args, "thread_id"); threadID != "" {
					msg.Thread = &chatapi.Thread{Name: threadID}
				}
				sent, err := userSvc.Spaces.Messages.Create(spaceID, msg).Context(ctx).Do()
				if err != nil {
					return nil, fmt.Errorf("chat_reply_as_user: %w", err)
				}
				return map[string]any{"message_id": sent.Name}, nil
			},
		})
	}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func normalizeSpaceName(spaceID string) string {
	if strings.HasPrefix(spaceID, "spaces/") {
		return spaceID
	}
	return "spaces/" + spaceID
}
