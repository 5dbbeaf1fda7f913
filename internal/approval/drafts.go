// Package approval implements the human-in-the-loop workflows spec.md
// §4.11/§9 describe — outbound reply drafts and the generalized proposal
// system — grounded on
// original_source/src/agent1/intelligence/proposals.py and the drafts
// tables original_source/_INDEX.md lists alongside it.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sukru-can1/agent1go/internal/model"
)

// draftStore is the subset of *store.Store draft review needs.
type draftStore interface {
	GetDraft(ctx context.Context, id uuid.UUID) (*model.Draft, error)
	ApproveDraft(ctx context.Context, id uuid.UUID) error
	RejectDraft(ctx context.Context, id uuid.UUID) error
	EditDraft(ctx context.Context, id uuid.UUID, editedBody string) error
	MarkDraftSent(ctx context.Context, id uuid.UUID) error
	InsertDraftFeedback(ctx context.Context, f *model.DraftFeedback) error
}

// Sender sends a draft's final body through the real mail tool once
// approved, decoupling approval package from internal/tool to avoid an
// import cycle (mirrors internal/reason.ToolProvider's narrow-interface
// pattern).
type Sender interface {
	SendDraft(ctx context.Context, d *model.Draft) error
}

// DraftReviewer applies operator verdicts to outbound reply drafts.
type DraftReviewer struct {
	store  draftStore
	sender Sender
}

// NewDraftReviewer constructs a DraftReviewer. sender may be nil, in which
// case ApproveAndSend only flips status without actually delivering — used
// in tests and when the mail tool isn't wired.
func NewDraftReviewer(st draftStore, sender Sender) *DraftReviewer {
	return &DraftReviewer{store: st, sender: sender}
}

// Approve transitions a pending draft to approved.
func (r *DraftReviewer) Approve(ctx context.Context, id uuid.UUID) error {
	return r.store.ApproveDraft(ctx, id)
}

// Reject transitions a pending draft to rejected.
func (r *DraftReviewer) Reject(ctx context.Context, id uuid.UUID) error {
	return r.store.RejectDraft(ctx, id)
}

// Edit records the operator's rewritten body, computes edit-distance
// feedback for the qualitative-learning pass, and transitions the draft to
// edited (spec.md §4.11 "edit distance feeds learning").
func (r *DraftReviewer) Edit(ctx context.Context, id uuid.UUID, editedBody string) error {
	d, err := r.store.GetDraft(ctx, id)
	if err != nil {
		return fmt.Errorf("approval: loading draft %s: %w", id, err)
	}
	if err := r.store.EditDraft(ctx, id, editedBody); err != nil {
		return fmt.Errorf("approval: editing draft %s: %w", id, err)
	}

	feedback := buildDraftFeedback(d, editedBody)
	if err := r.store.InsertDraftFeedback(ctx, feedback); err != nil {
		return fmt.Errorf("approval: recording feedback for draft %s: %w", id, err)
	}
	return nil
}

// Send delivers an approved/edited draft's final body and marks it sent.
func (r *DraftReviewer) Send(ctx context.Context, id uuid.UUID) error {
	d, err := r.store.GetDraft(ctx, id)
	if err != nil {
		return fmt.Errorf("approval: loading draft %s: %w", id, err)
	}
	if d.Status != model.DraftApproved && d.Status != model.DraftEdited {
		return fmt.Errorf("approval: draft %s is not approved (status=%s)", id, d.Status)
	}
	if r.sender != nil {
		if err := r.sender.SendDraft(ctx, d); err != nil {
			return fmt.Errorf("approval: sending draft %s: %w", id, err)
		}
	}
	return r.store.MarkDraftSent(ctx, id)
}

func buildDraftFeedback(d *model.Draft, editedBody string) *model.DraftFeedback {
	distance := levenshtein(d.DraftBody, editedBody)
	originalLen := len(d.DraftBody)
	ratio := 0.0
	if originalLen > 0 {
		ratio = float64(distance) / float64(originalLen)
	} else if len(editedBody) > 0 {
		ratio = 1.0
	}
	return &model.DraftFeedback{
		DraftID:        d.ID,
		SenderDomain:   senderDomain(d.From),
		Category:       d.Classification,
		EditDistance:   distance,
		EditRatio:      ratio,
		OriginalLength: originalLen,
		EditedLength:   len(editedBody),
		CreatedAt:      time.Now().UTC(),
	}
}

func senderDomain(address string) string {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == '@' {
			return address[i+1:]
		}
	}
	return address
}

// levenshtein computes the classic edit distance between two strings at
// rune granularity, using the standard two-row dynamic-programming table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
