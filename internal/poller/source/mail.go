// Package source implements internal/poller.Source, one file per upstream
// collaborator, grounded on original_source/src/agent1/worker/pollers/*.py.
package source

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/poller"
)

// MailConfig configures the mail (Gmail) poller.
type MailConfig struct {
	TokenSource oauth2.TokenSource
	MaxResults  int64
}

// Mail polls Gmail for unread messages, grounded on gmail_poller.py.
type Mail struct {
	cfg MailConfig
	svc *gmail.Service
}

// NewMail constructs a Mail poller. Returns nil if TokenSource is unset
// (Gmail integration disabled), mirroring the original's
// "service not configured" skip.
func NewMail(ctx context.Context, cfg MailConfig) (*Mail, error) {
	if cfg.TokenSource == nil {
		return nil, nil
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(cfg.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("mail: creating gmail service: %w", err)
	}
	return &Mail{cfg: cfg, svc: svc}, nil
}

// Name identifies this source for dedup key namespacing.
func (m *Mail) Name() string { return "gmail" }

// Poll fetches unread messages and builds one new_email candidate each.
func (m *Mail) Poll(ctx context.Context) ([]poller.Candidate, error) {
	resp, err := m.svc.Users.Messages.List("me").
		Q("is:unread").
		MaxResults(m.cfg.MaxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing unread messages: %w", err)
	}

	var out []poller.Candidate
	for _, stub := range resp.Messages {
		msg, err := m.svc.Users.Messages.Get("me", stub.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject").
			Context(ctx).
			Do()
		if err != nil {
			// Skip this message, continue with the rest (spec.md §7
			// partial-batch failures don't abort the whole poll).
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

		ev := model.NewEvent(model.SourceMail, "new_email", model.PriorityMedium, map[string]any{
			"message_id": msg.Id,
			"thread_id":  msg.ThreadId,
			"sender":     sender,
			"subject":    subject,
			"snippet":    msg.Snippet,
		})
		ev.IdempotencyKey = "gmail:" + msg.Id

		out = append(out, poller.Candidate{Event: ev, DedupKey: msg.Id})
	}
	return out, nil
}
