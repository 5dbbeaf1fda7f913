package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/sandbox"
	"github.com/sukru-can1/agent1go/internal/store"
)

// adminStore is the subset of *store.Store the admin tools need.
type adminStore interface {
	InsertSolution(ctx context.Context, sol *model.Solution) error
	InsertDynamicTool(ctx context.Context, t *store.DynamicToolRecord) error
	ListActiveDynamicTools(ctx context.Context) ([]*store.DynamicToolRecord, error)
}

var _ adminStore = (*store.Store)(nil)

// RegisterAdminTools wires create_dynamic_tool/list_dynamic_tools from
// registry.py's CreateDynamicToolTool/ListDynamicToolsTool. A newly created
// tool is both persisted (so it survives a restart) and registered live,
// executing via runner against the code it was taught with (spec.md §4.9).
func RegisterAdminTools(r *Registry, st adminStore, runner *sandbox.Runner) error {
	tools := []*Tool{
		{
			Name:        "create_dynamic_tool",
			Group:       "admin",
			Description: "Teach the agent a brand-new tool backed by a short Python script, callable in future turns.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"code":        map[string]any{"type": "string"},
					"input_schema": map[string]any{
						"type": "object",
					},
				},
				"required": []any{"name", "description", "code", "input_schema"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				name, _ := args["name"].(string)
				description, _ := args["description"].(string)
				code, _ := args["code"].(string)
				schema, _ := args["input_schema"].(map[string]any)

				if err := sandbox.ValidateCode(code); err != nil {
					return nil, fmt.Errorf("create_dynamic_tool: %w", err)
				}

				now := time.Now().UTC()
				sol := &model.Solution{
					ID:          uuid.New(),
					Name:        name,
					Description: description,
					Type:        model.SolutionTool,
					Code:        code,
					Status:      "approved",
					Active:      true,
					ApprovedAt:  &now,
					ApprovedBy:  "agent",
					CreatedAt:   now,
				}
				if err := st.InsertSolution(ctx, sol); err != nil {
					return nil, fmt.Errorf("create_dynamic_tool: persisting solution: %w", err)
				}

				schemaJSON, err := json.Marshal(schema)
				if err != nil {
					return nil, fmt.Errorf("create_dynamic_tool: marshaling schema: %w", err)
				}
				rec := &store.DynamicToolRecord{
					ID:          uuid.New(),
					SolutionID:  sol.ID,
					Name:        name,
					Description: description,
					Schema:      schemaJSON,
					Active:      true,
					CreatedAt:   now,
				}
				if err := st.InsertDynamicTool(ctx, rec); err != nil {
					return nil, fmt.Errorf("create_dynamic_tool: persisting tool record: %w", err)
				}

				if err := r.Register(buildDynamicTool(rec, code, runner)); err != nil {
					return nil, fmt.Errorf("create_dynamic_tool: registering: %w", err)
				}

				return map[string]any{"tool_id": rec.ID.String(), "name": name}, nil
			},
		},
		{
			Name:        "list_dynamic_tools",
			Group:       "admin",
			Description: "List every dynamic tool the agent has taught itself so far.",
			InputSchema: map[string]any{"type": "object"},
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				records, err := st.ListActiveDynamicTools(ctx)
				if err != nil {
					return nil, fmt.Errorf("list_dynamic_tools: %w", err)
				}
				out := make([]map[string]any, 0, len(records))
				for _, rec := range records {
					out = append(out, map[string]any{
						"id": rec.ID.String(), "name": rec.Name, "description": rec.Description,
						"created_at": rec.CreatedAt,
					})
				}
				return map[string]any{"tools": out}, nil
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

// ActivateToolSolution persists a dynamic-tool record for an already
// approved tool_creation Solution and registers it live, matching
// factory.py's activate_tool — this is the approval-workflow counterpart
// to the create_dynamic_tool tool handler above, used when a proposal (not
// a live agent turn) is the source of the new tool.
func ActivateToolSolution(ctx context.Context, r *Registry, st adminStore, runner *sandbox.Runner, sol *model.Solution, schema map[string]any) error {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("tool: marshaling schema for solution %s: %w", sol.ID, err)
	}
	rec := &store.DynamicToolRecord{
		ID:          uuid.New(),
		SolutionID:  sol.ID,
		Name:        sol.Name,
		Description: sol.Description,
		Schema:      schemaJSON,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := st.InsertDynamicTool(ctx, rec); err != nil {
		return fmt.Errorf("tool: persisting dynamic tool for solution %s: %w", sol.ID, err)
	}
	return r.Register(buildDynamicTool(rec, sol.Code, runner))
}
