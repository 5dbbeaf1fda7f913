package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/sandbox"
	"github.com/sukru-can1/agent1go/internal/store"
)

// dynamicStore is the subset of *store.Store LoadDynamicTools needs.
type dynamicStore interface {
	ListActiveDynamicTools(ctx context.Context) ([]*store.DynamicToolRecord, error)
	ListActiveSolutions(ctx context.Context) ([]*model.Solution, error)
}

var _ dynamicStore = (*store.Store)(nil)

// LoadDynamicTools registers every persisted, active dynamic tool against
// its backing solution's code, restoring the agent's taught tools after a
// restart (spec.md §4.9 "tools persist across restarts").
func LoadDynamicTools(ctx context.Context, r *Registry, st dynamicStore, runner *sandbox.Runner) error {
	records, err := st.ListActiveDynamicTools(ctx)
	if err != nil {
		return fmt.Errorf("tool: loading dynamic tools: %w", err)
	}
	solutions, err := st.ListActiveSolutions(ctx)
	if err != nil {
		return fmt.Errorf("tool: loading solutions: %w", err)
	}
	codeByID := make(map[string]string, len(solutions))
	for _, sol := range solutions {
		codeByID[sol.ID.String()] = sol.Code
	}

	for _, rec := range records {
		code, ok := codeByID[rec.SolutionID.String()]
		if !ok {
			continue // backing solution was deactivated since this row was written
		}
		if err := r.Register(buildDynamicTool(rec, code, runner)); err != nil {
			return fmt.Errorf("tool: registering dynamic tool %q: %w", rec.Name, err)
		}
	}
	return nil
}

// buildDynamicTool wraps a persisted tool record and its script into a
// Tool whose Handler runs the script through the sandbox, matching
// registry.py's DynamicTool.execute.
func buildDynamicTool(rec *store.DynamicToolRecord, code string, runner *sandbox.Runner) *Tool {
	var schema map[string]any
	_ = json.Unmarshal(rec.Schema, &schema)

	return &Tool{
		Name:        rec.Name,
		Description: rec.Description,
		InputSchema: schema,
		Group:       "admin",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			result, err := runner.Run(ctx, code, args)
			if err != nil {
				return nil, fmt.Errorf("dynamic tool %q: %w", rec.Name, err)
			}
			return result, nil
		},
	}
}
