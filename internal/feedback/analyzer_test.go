package feedback_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukru-can1/agent1go/internal/feedback"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/store"
	"github.com/sukru-can1/agent1go/internal/storetest"
)

func insertEditedDraft(t *testing.T, db *store.Store, senderDomain, category string, editRatio float64) {
	t.Helper()
	d := &model.Draft{
		ID:               uuid.New(),
		SourceMessageRef: "msg-1",
		From:             "someone@" + senderDomain,
		To:               []string{"ops@example.com"},
		Subject:          "test",
		OriginalBody:     "original",
		DraftBody:        "original",
		Status:           model.DraftPending,
		Classification:   category,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, db.InsertDraft(t.Context(), d))
	require.NoError(t, db.InsertDraftFeedback(t.Context(), &model.DraftFeedback{
		DraftID:        d.ID,
		SenderDomain:   senderDomain,
		Category:       category,
		EditDistance:   int(editRatio * 100),
		EditRatio:      editRatio,
		OriginalLength: 100,
		EditedLength:   100,
		CreatedAt:      time.Now().UTC(),
	}))
}

func TestAnalyzeEditPatternsStoresKnowledgeForQualifyingGroups(t *testing.T) {
	db := storetest.New(t)

	for i := 0; i < 4; i++ {
		insertEditedDraft(t, db, "acme.com", "complaint", 0.4)
	}
	// below min_edits threshold, should not surface.
	insertEditedDraft(t, db, "rare.com", "inquiry", 0.9)

	analyzer := feedback.New(db, nil)
	require.NoError(t, analyzer.AnalyzeEditPatterns(t.Context(), 3))

	knowledge, err := db.ListActiveKnowledge(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, knowledge, 1)
	assert.Equal(t, "edit_pattern", knowledge[0].Category)
	assert.Equal(t, "feedback:acme.com", knowledge[0].Source)
	assert.Contains(t, knowledge[0].Content, "acme.com")
	assert.Contains(t, knowledge[0].Content, "complaint")
}

func TestAnalyzeEditPatternsSkipsWhenAlreadyStored(t *testing.T) {
	db := storetest.New(t)
	for i := 0; i < 4; i++ {
		insertEditedDraft(t, db, "acme.com", "complaint", 0.4)
	}

	analyzer := feedback.New(db, nil)
	require.NoError(t, analyzer.AnalyzeEditPatterns(t.Context(), 3))
	require.NoError(t, analyzer.AnalyzeEditPatterns(t.Context(), 3))

	knowledge, err := db.ListActiveKnowledge(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, knowledge, 1, "second run must not duplicate the same pattern")
}

func TestAnalyzeEditPatternsNoopWhenNoEdits(t *testing.T) {
	db := storetest.New(t)
	analyzer := feedback.New(db, nil)
	require.NoError(t, analyzer.AnalyzeEditPatterns(t.Context(), 3))

	knowledge, err := db.ListActiveKnowledge(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, knowledge)
}
