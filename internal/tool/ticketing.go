package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TicketingConfig configures the ticketing_* tools, mirroring
// internal/poller/source.TicketingConfig — no ecosystem Go SDK exists for
// this vendor's REST API in the example pack (see DESIGN.md), so the
// client is a plain net/http.Client with basic auth.
type TicketingConfig struct {
	Domain string
	APIKey string
	Client *http.Client
}

// RegisterTicketingTools wires the ticketing_* tools from registry.py's
// FreshdeskGetTicketsTool/FreshdeskAddNoteTool/FreshdeskUpdateTicketTool.
func RegisterTicketingTools(r *Registry, cfg TicketingConfig) error {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}

	tools := []*Tool{
		{
			Name:        "ticketing_get_tickets",
			Group:       "ticketing",
			Description: "Fetch open tickets, optionally filtered by requester email.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"requester_email": map[string]any{"type": "string"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				url := fmt.Sprintf("https://%s/api/v2/tickets?order_by=updated_at&order_type=desc", cfg.Domain)
				if email := strArg(args, "requester_email"); email != "" {
					url += "&email=" + email
				}
				var tickets []map[string]any
				if err := ticketingGet(ctx, cfg, url, &tickets); err != nil {
					return nil, fmt.Errorf("ticketing_get_tickets: %w", err)
				}
				return map[string]any{"tickets": tickets}, nil
			},
		},
		{
			Name:        "ticketing_add_note",
			Group:       "ticketing",
			Description: "Add a private note to a ticket.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ticket_id": map[string]any{"type": "integer"},
					"body":      map[string]any{"type": "string"},
				},
				"required": []any{"ticket_id", "body"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				ticketID := intArg(args, "ticket_id", 0)
				payload := map[string]any{"body": strArg(args, "body"), "private": true}
				url := fmt.Sprintf("https://%s/api/v2/tickets/%d/notes", cfg.Domain, ticketID)
				var result map[string]any
				if err := ticketingPost(ctx, cfg, url, payload, &result); err != nil {
					return nil, fmt.Errorf("ticketing_add_note: %w", err)
				}
				return result, nil
			},
		},
		{
			Name:        "ticketing_update_ticket",
			Group:       "ticketing",
			Description: "Update a ticket's status, priority, or tags.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ticket_id": map[string]any{"type": "integer"},
					"status":    map[string]any{"type": "integer"},
					"priority":  map[string]any{"type": "integer"},
					"tags":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []any{"ticket_id"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				ticketID := intArg(args, "ticket_id", 0)
				payload := map[string]any{}
				if v, ok := args["status"]; ok {
					payload["status"] = v
				}
				if v, ok := args["priority"]; ok {
					payload["priority"] = v
				}
				if v, ok := args["tags"]; ok {
					payload["tags"] = v
				}
				url := fmt.Sprintf("https://%s/api/v2/tickets/%d", cfg.Domain, ticketID)
				var result map[string]any
				if err := ticketingPut(ctx, cfg, url, payload, &result); err != nil {
					return nil, fmt.Errorf("ticketing_update_ticket: %w", err)
				}
				return result, nil
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

func ticketingGet(ctx context.Context, cfg TicketingConfig, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(cfg.APIKey, "X")
	return ticketingDo(cfg, req, out)
}

func ticketingPost(ctx context.Context, cfg TicketingConfig, url string, payload any, out any) error {
	return ticketingSend(ctx, cfg, http.MethodPost, url, payload, out)
}

func ticketingPut(ctx context.Context, cfg TicketingConfig, url string, payload any, out any) error {
	return ticketingSend(ctx, cfg, http.MethodPut, url, payload, out)
}

func ticketingSend(ctx context.Context, cfg TicketingConfig, method, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytesReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(cfg.APIKey, "X")
	return ticketingDo(cfg, req, out)
}

func ticketingDo(cfg TicketingConfig, req *http.Request, out any) error {
	resp, err := cfg.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ticketing api returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
