package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

// InsertDraft persists a newly generated outbound reply draft awaiting
// approval.
func (s *Store) InsertDraft(ctx context.Context, d *model.Draft) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO email_drafts (id, source_message_ref, "from", "to", subject, original_body,
			draft_body, status, classification, contextual_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.SourceMessageRef, d.From, d.To, d.Subject, d.OriginalBody, d.DraftBody,
		d.Status, d.Classification, d.ContextualNotes, d.CreatedAt)
	return err
}

// GetDraft fetches a draft by id.
func (s *Store) GetDraft(ctx context.Context, id uuid.UUID) (*model.Draft, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_message_ref, "from", "to", subject, original_body, draft_body,
			edited_body, status, classification, contextual_notes, created_at, approved_at, sent_at
		FROM email_drafts WHERE id = $1`, id)
	return scanDraft(row)
}

// ListDrafts returns drafts in a given status (or all, if status is ""),
// newest first, for the /admin/drafts endpoint.
func (s *Store) ListDrafts(ctx context.Context, status model.DraftStatus, limit int) ([]*model.Draft, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_message_ref, "from", "to", subject, original_body, draft_body,
			edited_body, status, classification, contextual_notes, created_at, approved_at, sent_at
		FROM email_drafts
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDraft(row rowScanner) (*model.Draft, error) {
	var d model.Draft
	if err := row.Scan(&d.ID, &d.SourceMessageRef, &d.From, &d.To, &d.Subject, &d.OriginalBody,
		&d.DraftBody, &d.EditedBody, &d.Status, &d.Classification, &d.ContextualNotes,
		&d.CreatedAt, &d.ApprovedAt, &d.SentAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// ApproveDraft transitions pending -> approved.
func (s *Store) ApproveDraft(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE email_drafts SET status = $2, approved_at = now()
		WHERE id = $1 AND status = $3`, id, model.DraftApproved, model.DraftPending)
	return err
}

// RejectDraft transitions pending -> rejected.
func (s *Store) RejectDraft(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE email_drafts SET status = $2
		WHERE id = $1 AND status = $3`, id, model.DraftRejected, model.DraftPending)
	return err
}

// EditDraft records an operator's edited body and transitions approved -> edited.
func (s *Store) EditDraft(ctx context.Context, id uuid.UUID, editedBody string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE email_drafts SET edited_body = $2, status = $3
		WHERE id = $1 AND status = $4`, id, editedBody, model.DraftEdited, model.DraftApproved)
	return err
}

// MarkDraftSent transitions approved/edited -> sent.
func (s *Store) MarkDraftSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE email_drafts SET status = $2, sent_at = now()
		WHERE id = $1 AND status IN ($3, $4)`,
		id, model.DraftSent, model.DraftApproved, model.DraftEdited)
	return err
}

// InsertDraftFeedback records the edit-distance metrics computed when an
// operator edits a draft, feeding the qualitative-learning pass.
func (s *Store) InsertDraftFeedback(ctx context.Context, f *model.DraftFeedback) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO draft_feedback (draft_id, sender_domain, category, edit_distance, edit_ratio,
			original_length, edited_length, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.DraftID, f.SenderDomain, f.Category, f.EditDistance, f.EditRatio,
		f.OriginalLength, f.EditedLength, f.CreatedAt)
	return err
}

// DraftFeedbackPatterns groups edit history by sender domain and category,
// matching analyzer.py's analyze_edit_patterns: only groups with at least
// minEdits samples and an average edit ratio above the "worth noticing"
// threshold are returned, worst-edited first.
func (s *Store) DraftFeedbackPatterns(ctx context.Context, minEdits int) ([]model.EditPattern, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sender_domain, category,
			COUNT(*) AS edit_count,
			AVG(edit_ratio) AS avg_edit_ratio,
			AVG(edit_distance) AS avg_edit_distance
		FROM draft_feedback
		GROUP BY sender_domain, category
		HAVING COUNT(*) >= $1 AND AVG(edit_ratio) > 0.1
		ORDER BY avg_edit_ratio DESC`, minEdits)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EditPattern
	for rows.Next() {
		var p model.EditPattern
		if err := rows.Scan(&p.SenderDomain, &p.Category, &p.EditCount, &p.AvgEditRatio, &p.AvgEditDistance); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
