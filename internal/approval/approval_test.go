package approval

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukru-can1/agent1go/internal/model"
)

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("same", "same"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 4, levenshtein("", "abcd"))
	assert.Equal(t, 4, levenshtein("abcd", ""))
}

func TestSenderDomain(t *testing.T) {
	assert.Equal(t, "example.com", senderDomain("ops@example.com"))
	assert.Equal(t, "no-at-sign", senderDomain("no-at-sign"))
}

func TestBuildDraftFeedback(t *testing.T) {
	d := &model.Draft{
		ID:             uuid.New(),
		From:           "customer@acme.test",
		DraftBody:      "Hello, your order shipped.",
		Classification: "shipping_update",
	}
	fb := buildDraftFeedback(d, "Hello, your order has shipped today!")

	assert.Equal(t, d.ID, fb.DraftID)
	assert.Equal(t, "acme.test", fb.SenderDomain)
	assert.Equal(t, "shipping_update", fb.Category)
	assert.Greater(t, fb.EditDistance, 0)
	assert.Greater(t, fb.EditRatio, 0.0)
}

func TestBuildDraftFeedbackEmptyOriginal(t *testing.T) {
	d := &model.Draft{ID: uuid.New(), From: "a@b.com", DraftBody: ""}
	fb := buildDraftFeedback(d, "new content")
	assert.Equal(t, 1.0, fb.EditRatio)
}

// --- fakes for DraftReviewer ---

type fakeDraftStore struct {
	drafts   map[uuid.UUID]*model.Draft
	feedback []*model.DraftFeedback
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{drafts: map[uuid.UUID]*model.Draft{}}
}

func (f *fakeDraftStore) GetDraft(_ context.Context, id uuid.UUID) (*model.Draft, error) {
	return f.drafts[id], nil
}
func (f *fakeDraftStore) ApproveDraft(_ context.Context, id uuid.UUID) error {
	f.drafts[id].Status = model.DraftApproved
	return nil
}
func (f *fakeDraftStore) RejectDraft(_ context.Context, id uuid.UUID) error {
	f.drafts[id].Status = model.DraftRejected
	return nil
}
func (f *fakeDraftStore) EditDraft(_ context.Context, id uuid.UUID, body string) error {
	f.drafts[id].EditedBody = &body
	f.drafts[id].Status = model.DraftEdited
	return nil
}
func (f *fakeDraftStore) MarkDraftSent(_ context.Context, id uuid.UUID) error {
	f.drafts[id].Status = model.DraftSent
	return nil
}
func (f *fakeDraftStore) InsertDraftFeedback(_ context.Context, fb *model.DraftFeedback) error {
	f.feedback = append(f.feedback, fb)
	return nil
}

type fakeSender struct {
	sent []*model.Draft
}

func (s *fakeSender) SendDraft(_ context.Context, d *model.Draft) error {
	s.sent = append(s.sent, d)
	return nil
}

func TestDraftReviewerApproveEditSend(t *testing.T) {
	st := newFakeDraftStore()
	id := uuid.New()
	st.drafts[id] = &model.Draft{ID: id, From: "a@b.com", DraftBody: "hi there", Status: model.DraftPending}

	sender := &fakeSender{}
	reviewer := NewDraftReviewer(st, sender)

	require.NoError(t, reviewer.Approve(context.Background(), id))
	assert.Equal(t, model.DraftApproved, st.drafts[id].Status)

	require.NoError(t, reviewer.Edit(context.Background(), id, "hi there friend"))
	assert.Equal(t, model.DraftEdited, st.drafts[id].Status)
	require.Len(t, st.feedback, 1)

	require.NoError(t, reviewer.Send(context.Background(), id))
	assert.Equal(t, model.DraftSent, st.drafts[id].Status)
	assert.Len(t, sender.sent, 1)
}

func TestDraftReviewerSendRejectsUnapproved(t *testing.T) {
	st := newFakeDraftStore()
	id := uuid.New()
	st.drafts[id] = &model.Draft{ID: id, Status: model.DraftPending}

	reviewer := NewDraftReviewer(st, nil)
	err := reviewer.Send(context.Background(), id)
	assert.Error(t, err)
}

// --- fakes for ProposalReviewer ---

type fakeProposalStore struct {
	proposals  map[uuid.UUID]*model.Proposal
	knowledge  []*model.KnowledgeEntry
	solutions  []*model.Solution
	configVals map[string]string
}

func newFakeProposalStore() *fakeProposalStore {
	return &fakeProposalStore{
		proposals:  map[uuid.UUID]*model.Proposal{},
		configVals: map[string]string{},
	}
}

func (f *fakeProposalStore) GetProposal(_ context.Context, id uuid.UUID) (*model.Proposal, error) {
	return f.proposals[id], nil
}
func (f *fakeProposalStore) ReviewProposal(_ context.Context, id uuid.UUID, status model.ProposalStatus, reviewedBy, notes string) error {
	f.proposals[id].Status = status
	f.proposals[id].ReviewedBy = reviewedBy
	f.proposals[id].ReviewNotes = notes
	return nil
}
func (f *fakeProposalStore) InsertKnowledge(_ context.Context, k *model.KnowledgeEntry) error {
	f.knowledge = append(f.knowledge, k)
	return nil
}
func (f *fakeProposalStore) InsertSolution(_ context.Context, sol *model.Solution) error {
	f.solutions = append(f.solutions, sol)
	return nil
}
func (f *fakeProposalStore) SetConfigValue(_ context.Context, key, value string) error {
	f.configVals[key] = value
	return nil
}

type fakeToolActivator struct {
	activated []*model.Solution
}

func (f *fakeToolActivator) ActivateTool(_ context.Context, sol *model.Solution, _ map[string]any) error {
	f.activated = append(f.activated, sol)
	return nil
}

type fakePublisher struct {
	published []*model.Event
}

func (f *fakePublisher) Publish(_ context.Context, ev *model.Event) (bool, error) {
	f.published = append(f.published, ev)
	return true, nil
}

func newPendingProposal(typ model.ProposalType) *model.Proposal {
	return &model.Proposal{
		ID:          uuid.New(),
		Type:        typ,
		Title:       "t",
		Description: "d",
		Status:      model.ProposalPending,
		Confidence:  0.9,
	}
}

func TestProposalReviewerLearnedRule(t *testing.T) {
	st := newFakeProposalStore()
	p := newPendingProposal(model.ProposalLearnedRule)
	st.proposals[p.ID] = p

	r := NewProposalReviewer(st, nil, nil, nil)
	require.NoError(t, r.Approve(context.Background(), p.ID, "op", "", ""))

	assert.Equal(t, model.ProposalApproved, st.proposals[p.ID].Status)
	require.Len(t, st.knowledge, 1)
	assert.Equal(t, "approved_rule", st.knowledge[0].Category)
}

func TestProposalReviewerGuardrailOverride(t *testing.T) {
	st := newFakeProposalStore()
	p := newPendingProposal(model.ProposalGuardrailOverride)
	p.Config = map[string]any{"event_id": "evt-123", "rule_name": "no_refunds_over_100"}
	st.proposals[p.ID] = p

	pub := &fakePublisher{}
	r := NewProposalReviewer(st, nil, pub, nil)
	require.NoError(t, r.Approve(context.Background(), p.ID, "op", "", ""))

	require.Len(t, pub.published, 1)
	assert.Equal(t, true, pub.published[0].Payload["skip_guardrails"])
}

func TestProposalReviewerToolCreation(t *testing.T) {
	st := newFakeProposalStore()
	code := "def run(**kwargs):\n    return {}\n"
	p := newPendingProposal(model.ProposalToolCreation)
	p.Code = &code
	st.proposals[p.ID] = p

	activator := &fakeToolActivator{}
	r := NewProposalReviewer(st, activator, nil, nil)
	require.NoError(t, r.Approve(context.Background(), p.ID, "op", "", ""))

	require.Len(t, st.solutions, 1)
	require.Len(t, activator.activated, 1)
	assert.Equal(t, model.SolutionTool, st.solutions[0].Type)
}

func TestProposalReviewerAutomation(t *testing.T) {
	st := newFakeProposalStore()
	p := newPendingProposal(model.ProposalAutomation)
	p.Config = map[string]any{"trigger_type": "schedule", "cron": "0 * * * *"}
	st.proposals[p.ID] = p

	r := NewProposalReviewer(st, nil, nil, nil)
	require.NoError(t, r.Approve(context.Background(), p.ID, "op", "", ""))

	require.Len(t, st.solutions, 1)
	assert.Equal(t, model.SolutionAutomation, st.solutions[0].Type)
	assert.True(t, st.solutions[0].Active)
}

func TestProposalReviewerThresholdAdjustmentFallback(t *testing.T) {
	st := newFakeProposalStore()
	p := newPendingProposal(model.ProposalThresholdAdjustment)
	p.Config = map[string]any{"error_rate_multiplier": 3.0}
	st.proposals[p.ID] = p

	r := NewProposalReviewer(st, nil, nil, nil)
	require.NoError(t, r.Approve(context.Background(), p.ID, "op", "", ""))

	assert.Len(t, st.configVals, 1)
}

func TestProposalReviewerManualTypesNoop(t *testing.T) {
	st := newFakeProposalStore()
	p := newPendingProposal(model.ProposalExternalToolServer)
	st.proposals[p.ID] = p

	r := NewProposalReviewer(st, nil, nil, nil)
	require.NoError(t, r.Approve(context.Background(), p.ID, "op", "", ""))
	assert.Equal(t, model.ProposalApproved, st.proposals[p.ID].Status)
}

func TestProposalReviewerRejectsAlreadyReviewed(t *testing.T) {
	st := newFakeProposalStore()
	p := newPendingProposal(model.ProposalLearnedRule)
	p.Status = model.ProposalApproved
	st.proposals[p.ID] = p

	r := NewProposalReviewer(st, nil, nil, nil)
	err := r.Approve(context.Background(), p.ID, "op", "", "")
	assert.Error(t, err)
}

func TestProposalReviewerReject(t *testing.T) {
	st := newFakeProposalStore()
	p := newPendingProposal(model.ProposalLearnedRule)
	st.proposals[p.ID] = p

	r := NewProposalReviewer(st, nil, nil, nil)
	require.NoError(t, r.Reject(context.Background(), p.ID, "op", "not convincing"))
	assert.Equal(t, model.ProposalRejected, st.proposals[p.ID].Status)
}
