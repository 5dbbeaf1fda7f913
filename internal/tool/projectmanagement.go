package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProjectManagementConfig configures the projectmanagement_* tools,
// mirroring internal/poller/source.ProjectManagementConfig.
type ProjectManagementConfig struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// RegisterProjectManagementTools wires the projectmanagement_* tools from
// registry.py's StarinfinityGetTasksTool/StarinfinityCreateTaskTool.
func RegisterProjectManagementTools(r *Registry, cfg ProjectManagementConfig) error {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}

	tools := []*Tool{
		{
			Name:        "projectmanagement_get_tasks",
			Group:       "projectmanagement",
			Description: "List open tasks, optionally filtered by assignee or project.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"assignee":   map[string]any{"type": "string"},
					"project_id": map[string]any{"type": "string"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				url := fmt.Sprintf("%s/api/tasks?status=open", cfg.BaseURL)
				if assignee := strArg(args, "assignee"); assignee != "" {
					url += "&assignee=" + assignee
				}
				if projectID := strArg(args, "project_id"); projectID != "" {
					url += "&project_id=" + projectID
				}
				var raw json.RawMessage
				if err := pmGet(ctx, cfg, url, &raw); err != nil {
					return nil, fmt.Errorf("projectmanagement_get_tasks: %w", err)
				}
				tasks, err := decodePMTasks(raw)
				if err != nil {
					return nil, fmt.Errorf("projectmanagement_get_tasks: %w", err)
				}
				return map[string]any{"tasks": tasks}, nil
			},
		},
		{
			Name:        "projectmanagement_create_task",
			Group:       "projectmanagement",
			Description: "Create a new task.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":      map[string]any{"type": "string"},
					"assignee":   map[string]any{"type": "string"},
					"project_id": map[string]any{"type": "string"},
					"due_date":   map[string]any{"type": "string"},
				},
				"required": []any{"title"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				payload := map[string]any{
					"title":      strArg(args, "title"),
					"assignee":   strArg(args, "assignee"),
					"project_id": strArg(args, "project_id"),
					"due_date":   strArg(args, "due_date"),
				}
				var result map[string]any
				if err := pmPost(ctx, cfg, cfg.BaseURL+"/api/tasks", payload, &result); err != nil {
					return nil, fmt.Errorf("projectmanagement_create_task: %w", err)
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

// pmTaskResponse/pmTask and decodePMTasks mirror the shapes
// internal/poller/source.ProjectManagement already decodes, duplicated
// here since the handler package intentionally doesn't import the poller
// package (they serve distinct wiring concerns against the same API).
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

func pmGet(ctx context.Context, cfg ProjectManagementConfig, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return pmDo(cfg, req, out)
}

func pmPost(ctx context.Context, cfg ProjectManagementConfig, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytesReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return pmDo(cfg, req, out)
}

func pmDo(cfg ProjectManagementConfig, req *http.Request, out any) error {
	resp, err := cfg.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("project management api returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
