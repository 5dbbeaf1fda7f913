package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/poller"
)

// ticketingPriorityMap mirrors _FRESHDESK_PRIORITY_MAP from
// freshdesk_poller.py.
var ticketingPriorityMap = map[int]model.Priority{
	4: model.PriorityCritical,
	3: model.PriorityHigh,
	2: model.PriorityMedium,
	1: model.PriorityLow,
}

// TicketingConfig configures the ticketing-desk poller. There is no
// ecosystem Go SDK for this vendor's REST API in the example pack (see
// DESIGN.md), so the client is a plain net/http.Client with basic auth,
// matching the shape of the original's httpx.AsyncClient usage.
type TicketingConfig struct {
	Domain string
	APIKey string
	Client *http.Client
}

// Ticketing polls for tickets updated in the last lookback window,
// grounded on freshdesk_poller.py.
type Ticketing struct {
	cfg TicketingConfig
}

// NewTicketing constructs a Ticketing poller. Returns nil if APIKey is
// unset.
func NewTicketing(cfg TicketingConfig) *Ticketing {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Ticketing{cfg: cfg}
}

// Name identifies this source for dedup key namespacing.
func (t *Ticketing) Name() string { return "ticketing" }

type ticketingTicket struct {
	ID         int64    `json:"id"`
	UpdatedAt  string   `json:"updated_at"`
	Subject    string   `json:"subject"`
	Status     int      `json:"status"`
	Priority   int      `json:"priority"`
	Tags       []string `json:"tags"`
	Requester  struct {
		Email string `json:"email"`
	} `json:"requester"`
}

// Poll fetches tickets updated in the last 10 minutes.
func (t *Ticketing) Poll(ctx context.Context) ([]poller.Candidate, error) {
	since := time.Now().UTC().Add(-10 * time.Minute).Format("2006-01-02T15:04:05Z")
	url := fmt.Sprintf("https://%s/api/v2/tickets?updated_since=%s&order_by=updated_at&order_type=desc",
		t.cfg.Domain, since)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(t.cfg.APIKey, "X")

	resp, err := t.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticketing api request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ticketing api returned status %d", resp.StatusCode)
	}

	var tickets []ticketingTicket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		return nil, fmt.Errorf("decoding ticketing response: %w", err)
	}

	var out []poller.Candidate
	for _, tk := range tickets {
		priority, ok := ticketingPriorityMap[tk.Priority]
		if !ok {
			priority = model.PriorityMedium
		}
		ev := model.NewEvent(model.SourceTicketing, "ticket_updated", priority, map[string]any{
			"ticket_id":        tk.ID,
			"subject":          tk.Subject,
			"status":           tk.Status,
			"priority":         tk.Priority,
			"requester_email":  tk.Requester.Email,
			"tags":             tk.Tags,
		})
		dedupKey := fmt.Sprintf("%d:%s", tk.ID, tk.UpdatedAt)
		ev.IdempotencyKey = "ticketing:" + dedupKey
		out = append(out, poller.Candidate{Event: ev, DedupKey: dedupKey})
	}
	return out, nil
}
