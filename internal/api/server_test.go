package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicebob/miniredis/v2"

	"github.com/sukru-can1/agent1go/internal/api"
	"github.com/sukru-can1/agent1go/internal/approval"
	"github.com/sukru-can1/agent1go/internal/config"
	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/queue"
	"github.com/sukru-can1/agent1go/internal/store"
	"github.com/sukru-can1/agent1go/internal/storetest"
)

func newTestServer(t *testing.T) (*api.Server, *store.Store) {
	t.Helper()
	db := storetest.New(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kvStore := kv.New(rdb)
	publisher := queue.NewPublisher(kvStore, db)
	draftReviewer := approval.NewDraftReviewer(db, nil)
	proposalReviewer := approval.NewProposalReviewer(db, nil, nil, nil)
	srv := api.NewServer(db, kvStore, publisher, draftReviewer, proposalReviewer, &config.Config{}, slog.Default())
	return srv, db
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleStatusReportsQueueAndCounts(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/admin/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, float64(0), out["queue_depth"])
	assert.Equal(t, false, out["is_paused"])
}

func TestHandleListEventsAndGetEvent(t *testing.T) {
	srv, db := newTestServer(t)

	ev := model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{"subject": "hi"})
	_, err := db.InsertEvent(t.Context(), ev)
	require.NoError(t, err)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/admin/events?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []*model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, ev.ID, events[0].ID)

	rec = doJSON(t, srv.Router(), http.MethodGet, "/admin/events/"+ev.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Router(), http.MethodGet, "/admin/events/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleApproveDraftFlipsStatus(t *testing.T) {
	srv, db := newTestServer(t)

	draft := &model.Draft{
		ID:           uuid.New(),
		Status:       model.DraftPending,
		From:         "ops@example.com",
		To:           []string{"customer@example.com"},
		OriginalBody: "original body",
		DraftBody:    "drafted reply",
		Subject:      "re: question",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.InsertDraft(t.Context(), draft))

	rec := doJSON(t, srv.Router(), http.MethodPost, "/admin/drafts/"+draft.ID.String()+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	fetched, err := db.GetDraft(t.Context(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftApproved, fetched.Status)

	// Re-approving an already-approved draft must 404, not double-apply.
	rec = doJSON(t, srv.Router(), http.MethodPost, "/admin/drafts/"+draft.ID.String()+"/approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRejectDraft(t *testing.T) {
	srv, db := newTestServer(t)

	draft := &model.Draft{
		ID:           uuid.New(),
		Status:       model.DraftPending,
		From:         "ops@example.com",
		To:           []string{"customer@example.com"},
		OriginalBody: "original body",
		DraftBody:    "drafted reply",
		Subject:      "re: question",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.InsertDraft(t.Context(), draft))

	rec := doJSON(t, srv.Router(), http.MethodPost, "/admin/drafts/"+draft.ID.String()+"/reject", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	fetched, err := db.GetDraft(t.Context(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftRejected, fetched.Status)
}

func TestHandleInjectEventPublishesAndPersists(t *testing.T) {
	srv, db := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/admin/inject-event", map[string]any{
		"source":     "chat",
		"event_type": "chat_message",
		"text":       "ping the bot",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	eventID := out["event_id"].(string)

	events, err := db.ListEventsByStatus(t.Context(), model.StatusPending, 10)
	require.NoError(t, err)
	found := false
	for _, e := range events {
		if e.ID.String() == eventID {
			found = true
		}
	}
	assert.True(t, found, "injected event should be persisted")
}

func TestHandleInjectEventRequiresText(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/admin/inject-event", map[string]any{"source": "chat"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConfigRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/admin/config/max_retries", map[string]any{"value": "5"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Router(), http.MethodGet, "/admin/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "max_retries")
}
