package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/sukru-can1/agent1go/internal/model"
)

// InsertKnowledge adds a new knowledge entry. If it supersedes a prior
// entry, the caller is responsible for deactivating that entry first so the
// revision chain stays linear (spec.md §3).
func (s *Store) InsertKnowledge(ctx context.Context, k *model.KnowledgeEntry) error {
	var emb *pgvector.Vector
	if len(k.Embedding) > 0 {
		v := pgvector.NewVector(k.Embedding)
		emb = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO knowledge_entries (id, category, content, source, active, confidence,
			embedding, supersedes_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		k.ID, k.Category, k.Content, k.Source, k.Active, k.Confidence, emb, k.SupersedesID, k.CreatedAt)
	return err
}

// ActiveKnowledgeExists reports whether an active entry already exists for
// a given category/source pair, used to avoid re-storing the same learned
// pattern on every scheduler pass.
func (s *Store) ActiveKnowledgeExists(ctx context.Context, category, source string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM knowledge_entries WHERE category = $1 AND source = $2 AND active = true)`,
		category, source).Scan(&exists)
	return exists, err
}

// DeactivateKnowledge flips an entry's active flag off, used when a newer
// entry supersedes it.
func (s *Store) DeactivateKnowledge(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE knowledge_entries SET active = false WHERE id = $1`, id)
	return err
}

// SimilarKnowledge returns the nearest active knowledge entries to the query
// embedding by cosine distance, for the context engine's retrieval
// (spec.md §4.6).
func (s *Store) SimilarKnowledge(ctx context.Context, category string, queryEmbedding []float32, limit int) ([]*model.KnowledgeEntry, error) {
	q := pgvector.NewVector(queryEmbedding)
	rows, err := s.pool.Query(ctx, `
		SELECT id, category, content, source, active, confidence, embedding, supersedes_id, created_at
		FROM knowledge_entries
		WHERE active = true AND ($1 = '' OR category = $1)
		ORDER BY embedding <=> $2 LIMIT $3`, category, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.KnowledgeEntry
	for rows.Next() {
		var k model.KnowledgeEntry
		var emb *pgvector.Vector
		if err := rows.Scan(&k.ID, &k.Category, &k.Content, &k.Source, &k.Active, &k.Confidence,
			&emb, &k.SupersedesID, &k.CreatedAt); err != nil {
			return nil, err
		}
		if emb != nil {
			k.Embedding = emb.Slice()
		}
		out = append(out, &k)
	}
	return out, rows.Err()
}

// InsertIncident records a resolved incident for future similarity retrieval.
func (s *Store) InsertIncident(ctx context.Context, inc *model.Incident) error {
	var emb *pgvector.Vector
	if len(inc.Embedding) > 0 {
		v := pgvector.NewVector(inc.Embedding)
		emb = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO incidents (id, category, description, resolution, market, systems_involved,
			tags, embedding, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inc.ID, inc.Category, inc.Description, inc.Resolution, inc.Market, inc.SystemsInvolved,
		inc.Tags, emb, inc.Timestamp)
	return err
}

// SimilarIncidents returns the nearest incidents to the query embedding.
func (s *Store) SimilarIncidents(ctx context.Context, queryEmbedding []float32, limit int) ([]*model.Incident, error) {
	q := pgvector.NewVector(queryEmbedding)
	rows, err := s.pool.Query(ctx, `
		SELECT id, category, description, resolution, market, systems_involved, tags, embedding, "timestamp"
		FROM incidents ORDER BY embedding <=> $1 LIMIT $2`, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Incident
	for rows.Next() {
		var inc model.Incident
		var emb *pgvector.Vector
		if err := rows.Scan(&inc.ID, &inc.Category, &inc.Description, &inc.Resolution, &inc.Market,
			&inc.SystemsInvolved, &inc.Tags, &emb, &inc.Timestamp); err != nil {
			return nil, err
		}
		if emb != nil {
			inc.Embedding = emb.Slice()
		}
		out = append(out, &inc)
	}
	return out, rows.Err()
}

// InsertActionLog appends one audit record. The log is append-only; there
// is no update or delete path (spec.md §9).
func (s *Store) InsertActionLog(ctx context.Context, a *model.ActionLogEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO actions_log ("timestamp", system, action_type, outcome, model_used,
			input_tokens, output_tokens, latency_ms, details, event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.Timestamp, a.System, a.ActionType, a.Outcome, a.ModelUsed,
		a.InputTokens, a.OutputTokens, a.LatencyMS, a.Details, a.EventID)
	return err
}

// SenderHistory returns recent action-log entries touching a given system
// (e.g. a sender's email domain), for the context engine's sender-history
// retrieval.
func (s *Store) SenderHistory(ctx context.Context, system string, limit int) ([]*model.ActionLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, "timestamp", system, action_type, outcome, model_used, input_tokens,
			output_tokens, latency_ms, details, event_id
		FROM actions_log WHERE system = $1 ORDER BY "timestamp" DESC LIMIT $2`, system, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ActionLogEntry
	for rows.Next() {
		var a model.ActionLogEntry
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.System, &a.ActionType, &a.Outcome, &a.ModelUsed,
			&a.InputTokens, &a.OutputTokens, &a.LatencyMS, &a.Details, &a.EventID); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
