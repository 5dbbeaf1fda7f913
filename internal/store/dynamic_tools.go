package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DynamicToolRecord is the persisted form of a tool created at runtime from
// an approved tool_creation proposal — the tool registry (internal/tool)
// reloads active rows on startup and whenever a new one is approved
// (spec.md §4.9).
type DynamicToolRecord struct {
	ID          uuid.UUID
	SolutionID  uuid.UUID
	Name        string
	Description string
	Schema      json.RawMessage
	Active      bool
	CreatedAt   time.Time
}

// InsertDynamicTool registers a newly approved tool.
func (s *Store) InsertDynamicTool(ctx context.Context, t *DynamicToolRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dynamic_tools (id, solution_id, name, description, schema, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.SolutionID, t.Name, t.Description, []byte(t.Schema), t.Active, t.CreatedAt)
	return err
}

// ListActiveDynamicTools returns every tool currently eligible for
// registration.
func (s *Store) ListActiveDynamicTools(ctx context.Context) ([]*DynamicToolRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, solution_id, name, description, schema, active, created_at
		FROM dynamic_tools WHERE active = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DynamicToolRecord
	for rows.Next() {
		var t DynamicToolRecord
		var schema []byte
		if err := rows.Scan(&t.ID, &t.SolutionID, &t.Name, &t.Description, &schema, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Schema = schema
		out = append(out, &t)
	}
	return out, rows.Err()
}

// DeactivateDynamicTool revokes a tool, typically when its backing solution
// is deactivated.
func (s *Store) DeactivateDynamicTool(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE dynamic_tools SET active = false WHERE id = $1`, id)
	return err
}
