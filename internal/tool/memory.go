package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/store"
)

// memoryStore is the subset of *store.Store the memory tools need.
type memoryStore interface {
	SimilarKnowledge(ctx context.Context, category string, queryEmbedding []float32, limit int) ([]*model.KnowledgeEntry, error)
	SimilarIncidents(ctx context.Context, queryEmbedding []float32, limit int) ([]*model.Incident, error)
	InsertIncident(ctx context.Context, inc *model.Incident) error
	InsertKnowledge(ctx context.Context, k *model.KnowledgeEntry) error
}

var _ memoryStore = (*store.Store)(nil)

// RegisterMemoryTools wires the memory_* tools from registry.py's
// MemorySearchTool/MemoryStoreIncidentTool/MemoryStoreKnowledgeTool onto
// the durable store and an embedding provider.
func RegisterMemoryTools(r *Registry, st memoryStore, embedder llm.Embedder) error {
	tools := []*Tool{
		{
			Name:        "memory_search",
			Group:       "memory",
			Description: "Search past incidents and knowledge entries by semantic similarity to a query string.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
					"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 20},
				},
				"required": []any{"query"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				query, _ := args["query"].(string)
				limit := intArg(args, "limit", 5)
				if embedder == nil {
					return map[string]any{"incidents": []any{}, "knowledge": []any{}}, nil
				}
				embedding, err := embedder.Embed(ctx, query)
				if err != nil {
					return nil, fmt.Errorf("memory_search: embedding query: %w", err)
				}
				incidents, err := st.SimilarIncidents(ctx, embedding, limit)
				if err != nil {
					return nil, fmt.Errorf("memory_search: incidents: %w", err)
				}
				knowledge, err := st.SimilarKnowledge(ctx, "", embedding, limit)
				if err != nil {
					return nil, fmt.Errorf("memory_search: knowledge: %w", err)
				}
				return map[string]any{"incidents": incidents, "knowledge": knowledge}, nil
			},
		},
		{
			Name:        "memory_store_incident",
			Group:       "memory",
			Description: "Record a resolved incident for future similarity retrieval.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category":    map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"resolution":  map[string]any{"type": "string"},
				},
				"required": []any{"category", "description", "resolution"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				category, _ := args["category"].(string)
				description, _ := args["description"].(string)
				resolution, _ := args["resolution"].(string)

				inc := &model.Incident{
					ID:          uuid.New(),
					Category:    category,
					Description: description,
					Resolution:  resolution,
					Timestamp:   time.Now().UTC(),
				}
				if embedder != nil {
					if emb, err := embedder.Embed(ctx, description); err == nil {
						inc.Embedding = emb
					}
				}
				if err := st.InsertIncident(ctx, inc); err != nil {
					return nil, fmt.Errorf("memory_store_incident: %w", err)
				}
				return map[string]any{"id": inc.ID.String()}, nil
			},
		},
		{
			Name:        "memory_store_knowledge",
			Group:       "memory",
			Description: "Record a taught rule or fact as an active knowledge entry.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category": map[string]any{"type": "string"},
					"content":  map[string]any{"type": "string"},
				},
				"required": []any{"category", "content"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				category, _ := args["category"].(string)
				content, _ := args["content"].(string)

				k := &model.KnowledgeEntry{
					ID:         uuid.New(),
					Category:   category,
					Content:    content,
					Source:     "tool_call",
					Active:     true,
					Confidence: 0.7,
					CreatedAt:  time.Now().UTC(),
				}
				if embedder != nil {
					if emb, err := embedder.Embed(ctx, content); err == nil {
						k.Embedding = emb
					}
				}
				if err := st.InsertKnowledge(ctx, k); err != nil {
					return nil, fmt.Errorf("memory_store_knowledge: %w", err)
				}
				return map[string]any{"id": k.ID.String()}, nil
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

func intArg(args map[string]any, key string, fallback int) int {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}
