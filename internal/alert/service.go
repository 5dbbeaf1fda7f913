package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/sukru-can1/agent1go/internal/model"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token   string
	Channel string
}

// Service delivers operator-facing alerts for dead-lettered events and
// detected anomaly patterns (spec.md §4.2, §4.12). Nil-safe: every method
// is a no-op when the Service itself is nil, so callers never need to
// check whether Slack is configured before calling.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a Service, or nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client: NewClient(cfg.Token, cfg.Channel),
		logger: slog.Default().With("component", "alert-service"),
	}
}

// NewServiceWithClient builds a Service around a pre-built Client, for
// tests driving a mock Slack API server.
func NewServiceWithClient(client *Client) *Service {
	return &Service{client: client, logger: slog.Default().With("component", "alert-service")}
}

// NotifyDeadLetter posts a critical alert when an event exhausts its retry
// budget. Fail-open: errors are logged, never returned.
func (s *Service) NotifyDeadLetter(ctx context.Context, d *model.DeadLetterEvent) {
	if s == nil {
		return
	}
	var lastErr string
	if n := len(d.ErrorHistory); n > 0 {
		lastErr = d.ErrorHistory[n-1].Error
	}
	blocks := []goslack.Block{
		goslack.NewHeaderBlock(goslack.NewTextBlockObject(goslack.PlainTextType, ":rotating_light: Event dead-lettered", false, false)),
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf(
			"*Source:* %s\n*Type:* %s\n*Priority:* %d\n*Retries:* %d\n*Last error:* %s\n*Event ID:* %s",
			d.Source, d.EventType, d.Priority, d.RetryCount, lastErr, d.OriginalEventID,
		), false, false), nil, nil),
	}
	if err := s.client.PostMessage(ctx, blocks, 10*time.Second); err != nil {
		s.logger.Error("failed to send dead-letter alert", "event_id", d.OriginalEventID, "error", err)
	}
}

// NotifyPattern posts an alert when the pattern detector flags an anomaly
// (spec.md §4.12). Fail-open.
func (s *Service) NotifyPattern(ctx context.Context, source model.Source, eventType string, count int, baseline *model.Baseline) {
	if s == nil {
		return
	}
	detail := "no baseline yet"
	if baseline != nil {
		detail = fmt.Sprintf("mean=%.1f stddev=%.1f", baseline.MeanCount, baseline.StddevCount)
	}
	blocks := []goslack.Block{
		goslack.NewHeaderBlock(goslack.NewTextBlockObject(goslack.PlainTextType, ":chart_with_upwards_trend: Anomalous volume detected", false, false)),
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf(
			"*Source:* %s\n*Type:* %s\n*Count:* %d\n*Baseline:* %s",
			source, eventType, count, detail,
		), false, false), nil, nil),
	}
	if err := s.client.PostMessage(ctx, blocks, 10*time.Second); err != nil {
		s.logger.Error("failed to send pattern alert", "source", source, "event_type", eventType, "error", err)
	}
}
