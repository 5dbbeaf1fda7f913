package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

// InsertProposal persists a new generalized approval-workflow item. Callers
// must have already rejected unknown ProposalTypes (spec.md §4.13).
func (s *Store) InsertProposal(ctx context.Context, p *model.Proposal) error {
	config, err := json.Marshal(p.Config)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO proposals (id, type, title, description, evidence, code, config, confidence,
			status, created_at, expires_at, related_event_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Type, p.Title, p.Description, p.Evidence, p.Code, config, p.Confidence,
		p.Status, p.CreatedAt, p.ExpiresAt, p.RelatedEventIDs)
	return err
}

// GetProposal fetches a proposal by id.
func (s *Store) GetProposal(ctx context.Context, id uuid.UUID) (*model.Proposal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, type, title, description, evidence, code, config, confidence, status,
			created_at, reviewed_at, reviewed_by, review_notes, expires_at, related_event_ids
		FROM proposals WHERE id = $1`, id)
	return scanProposal(row)
}

// ListProposals returns proposals in a given status (or all, if status is
// ""), newest first.
func (s *Store) ListProposals(ctx context.Context, status model.ProposalStatus, limit int) ([]*model.Proposal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, title, description, evidence, code, config, confidence, status,
			created_at, reviewed_at, reviewed_by, review_notes, expires_at, related_event_ids
		FROM proposals
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListExpiredProposals returns still-pending proposals whose expiry has
// passed, for the scheduler's periodic expiry sweep.
func (s *Store) ListExpiredProposals(ctx context.Context) ([]*model.Proposal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, title, description, evidence, code, config, confidence, status,
			created_at, reviewed_at, reviewed_by, review_notes, expires_at, related_event_ids
		FROM proposals
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < now()`, model.ProposalPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProposal(row rowScanner) (*model.Proposal, error) {
	var p model.Proposal
	var config []byte
	if err := row.Scan(&p.ID, &p.Type, &p.Title, &p.Description, &p.Evidence, &p.Code, &config,
		&p.Confidence, &p.Status, &p.CreatedAt, &p.ReviewedAt, &p.ReviewedBy, &p.ReviewNotes,
		&p.ExpiresAt, &p.RelatedEventIDs); err != nil {
		return nil, err
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &p.Config); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// ReviewProposal records the operator's verdict. ExecuteApproval (in
// internal/approval) calls this after successfully applying an approved
// proposal's effect.
func (s *Store) ReviewProposal(ctx context.Context, id uuid.UUID, status model.ProposalStatus, reviewedBy, notes string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE proposals SET status = $2, reviewed_at = now(), reviewed_by = $3, review_notes = $4
		WHERE id = $1 AND status = $5`, id, status, reviewedBy, notes, model.ProposalPending)
	return err
}

// InsertSolution persists the executable form of an approved tool_creation
// or automation proposal.
func (s *Store) InsertSolution(ctx context.Context, sol *model.Solution) error {
	config, err := json.Marshal(sol.Config)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO solutions (id, name, description, solution_type, code, config, status,
			active, approved_at, approved_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sol.ID, sol.Name, sol.Description, sol.Type, sol.Code, config, sol.Status,
		sol.Active, sol.ApprovedAt, sol.ApprovedBy, sol.CreatedAt)
	return err
}

// ListActiveSolutions returns all solutions currently eligible for dynamic
// tool registration (spec.md §4.9 dynamic tools).
func (s *Store) ListActiveSolutions(ctx context.Context) ([]*model.Solution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, solution_type, code, config, status, active,
			approved_at, approved_by, created_at
		FROM solutions WHERE active = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Solution
	for rows.Next() {
		var sol model.Solution
		var config []byte
		if err := rows.Scan(&sol.ID, &sol.Name, &sol.Description, &sol.Type, &sol.Code, &config,
			&sol.Status, &sol.Active, &sol.ApprovedAt, &sol.ApprovedBy, &sol.CreatedAt); err != nil {
			return nil, err
		}
		if len(config) > 0 {
			if err := json.Unmarshal(config, &sol.Config); err != nil {
				return nil, err
			}
		}
		out = append(out, &sol)
	}
	return out, rows.Err()
}

// DeactivateSolution flips a solution's active flag off, used when a
// dynamic tool is revoked.
func (s *Store) DeactivateSolution(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE solutions SET active = false WHERE id = $1`, id)
	return err
}
