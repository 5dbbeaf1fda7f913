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

// ProjectManagementConfig configures the project-management poller. No
// ecosystem Go SDK exists for this vendor's REST API in the example pack
// (see DESIGN.md), so it uses a plain net/http.Client with bearer auth,
// mirroring the original's httpx.AsyncClient usage.
type ProjectManagementConfig struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// ProjectManagement polls for overdue tasks, grounded on
// starinfinity_poller.py.
type ProjectManagement struct {
	cfg ProjectManagementConfig
}

// NewProjectManagement constructs a ProjectManagement poller. Returns nil
// if BaseURL or APIKey is unset.
func NewProjectManagement(cfg ProjectManagementConfig) *ProjectManagement {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ProjectManagement{cfg: cfg}
}

// Name identifies this source for dedup key namespacing.
func (p *ProjectManagement) Name() string { return "projectmanagement" }

type pmTaskResponse struct {
	Tasks []pmTask `json:"tasks"`
	Data  []pmTask `json:"data"`
}

type pmTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Assignee  string `json:"assignee"`
	DueDate   string `json:"due_date"`
	ProjectID string `json:"project_id"`
}

// Poll fetches tasks overdue as of now.
func (p *ProjectManagement) Poll(ctx context.Context) ([]poller.Candidate, error) {
	nowISO := time.Now().UTC().Format(time.RFC3339)
	url := fmt.Sprintf("%s/api/tasks?due_before=%s&status=open", p.cfg.BaseURL, nowISO)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("project management api request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("project management api returned status %d", resp.StatusCode)
	}

	// The API may respond with a bare array or an object wrapping one.
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding project management response: %w", err)
	}
	tasks, err := decodePMTasks(raw)
	if err != nil {
		return nil, err
	}

	var out []poller.Candidate
	for _, task := range tasks {
		if task.ID == "" {
			continue
		}
		ev := model.NewEvent(model.SourceProjectManagement, "task_overdue", model.PriorityHigh, map[string]any{
			"task_id":    task.ID,
			"title":      task.Title,
			"assignee":   task.Assignee,
			"due_date":   task.DueDate,
			"project_id": task.ProjectID,
		})
		dedupKey := task.ID + ":" + task.DueDate
		ev.IdempotencyKey = "projectmanagement:overdue:" + dedupKey
		out = append(out, poller.Candidate{Event: ev, DedupKey: dedupKey})
	}
	return out, nil
}

func decodePMTasks(raw json.RawMessage) ([]pmTask, error) {
	var asList []pmTask
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}
	var asObj pmTaskResponse
	if err := json.Unmarshal(raw, &asObj); err != nil {
		return nil, fmt.Errorf("unrecognized task list shape: %w", err)
	}
	if len(asObj.Tasks) > 0 {
		return asObj.Tasks, nil
	}
	return asObj.Data, nil
}
