package tool

import (
	"context"
	"fmt"

	"google.golang.org/api/gmail/v1"
)

// RegisterMailTools wires the mail_* tools from registry.py's
// GmailGetNewMessagesTool/GmailDraftReplyTool/GmailSendApprovedTool onto a
// live Gmail service, grounded on internal/poller/source/mail.go's client
// construction.
func RegisterMailTools(r *Registry, svc *gmail.Service) error {
	if svc == nil {
		return nil
	}
	tools := []*Tool{
		{
			Name:        "mail_get_new_messages",
			Group:       "mail",
			Description: "List unread mail messages, optionally filtered by a Gmail search query.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":       map[string]any{"type": "string"},
					"max_results": map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				query, _ := args["query"].(string)
				if query == "" {
					query = "is:unread"
				}
				maxResults := int64(intArg(args, "max_results", 10))

				resp, err := svc.Users.Messages.List("me").Q(query).MaxResults(maxResults).Context(ctx).Do()
				if err != nil {
					return nil, fmt.Errorf("mail_get_new_messages: %w", err)
				}

				messages := make([]map[string]any, 0, len(resp.Messages))
				for _, stub := range resp.Messages {
					msg, err := svc.Users.Messages.Get("me", stub.Id).
						Format("metadata").MetadataHeaders("From", "Subject").Context(ctx).Do()
					if err != nil {
						continue
					}
					var sender, subject string
					if msg.Payload != nil {
						for _, h := range msg.Payload.Headers {
							switch h.Name {
							case "From":
								sender = h.Value
							case "Subject":
								subject = h.Value
							}
						}
					}
					messages = append(messages, map[string]any{
						"message_id": msg.Id,
						"thread_id":  msg.ThreadId,
						"sender":     sender,
						"subject":    subject,
						"snippet":    msg.Snippet,
					})
				}
				return map[string]any{"messages": messages}, nil
			},
		},
		{
			Name:        "mail_draft_reply",
			Group:       "mail",
			Description: "Create a Gmail draft reply in a thread without sending it.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"thread_id": map[string]any{"type": "string"},
					"to":        map[string]any{"type": "string"},
					"subject":   map[string]any{"type": "string"},
					"body":      map[string]any{"type": "string"},
				},
				"required": []any{"thread_id", "to", "body"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				threadID, _ := args["thread_id"].(string)
				to, _ := args["to"].(string)
				subject, _ := args["subject"].(string)
				body, _ := args["body"].(string)

				raw := encodeRFC2822(to, subject, body)
				draft := &gmail.Draft{
					Message: &gmail.Message{Raw: raw, ThreadId: threadID},
				}
				created, err := svc.Users.Drafts.Create("me", draft).Context(ctx).Do()
				if err != nil {
					return nil, fmt.Errorf("mail_draft_reply: %w", err)
				}
				return map[string]any{"draft_id": created.Id}, nil
			},
		},
		{
			Name:        "mail_send_approved",
			Group:       "mail",
			Description: "Send a previously created Gmail draft. Only call after a human has approved it.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"draft_id": map[string]any{"type": "string"},
				},
				"required": []any{"draft_id"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				draftID, _ := args["draft_id"].(string)
				sent, err := svc.Users.Drafts.Send("me", &gmail.Draft{Id: draftID}).Context(ctx).Do()
				if err != nil {
					return nil, fmt.Errorf("mail_send_approved: %w", err)
				}
				return map[string]any{"message_id": sent.Id}, nil
			},
		},
	}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// encodeRFC2822 builds a minimal base64url MIME message, matching the raw
// format Gmail's API requires for drafts/sends.
func encodeRFC2822(to, subject, body string) string {
	msg := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body)
	return base64URLEncode([]byte(msg))
}
