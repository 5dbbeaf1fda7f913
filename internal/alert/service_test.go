package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukru-can1/agent1go/internal/model"
)

func TestNewServiceReturnsNilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewService(ServiceConfig{Token: "", Channel: "C123"}))
	assert.Nil(t, NewService(ServiceConfig{Token: "xoxb-test", Channel: ""}))
	assert.NotNil(t, NewService(ServiceConfig{Token: "xoxb-test", Channel: "C123"}))
}

func TestServiceNilReceiverIsNoop(t *testing.T) {
	var s *Service

	assert.NotPanics(t, func() {
		s.NotifyDeadLetter(context.Background(), &model.DeadLetterEvent{})
	})
	assert.NotPanics(t, func() {
		s.NotifyPattern(context.Background(), model.SourceMail, "message_received", 5, nil)
	})
}

func newMockSlackServer(t *testing.T) (*httptest.Server, chan map[string]any) {
	t.Helper()
	posted := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		var body map[string]any
		if blocks := r.FormValue("blocks"); blocks != "" {
			require.NoError(t, json.Unmarshal([]byte(blocks), &body))
		}
		posted <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1234.5678"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, posted
}

func TestNotifyDeadLetterPostsMessage(t *testing.T) {
	srv, posted := newMockSlackServer(t)
	client := NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	svc := NewServiceWithClient(client)

	d := &model.DeadLetterEvent{
		OriginalEventID: uuid.New(),
		Source:          model.SourceMail,
		EventType:       "message_received",
		Priority:        model.PriorityHigh,
		RetryCount:      3,
		ErrorHistory: []model.ErrorHistoryEntry{
			{Retry: 1, Error: "timeout calling tool"},
		},
	}
	svc.NotifyDeadLetter(context.Background(), d)

	select {
	case <-posted:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a message to be posted")
	}
}

func TestNotifyPatternPostsMessageWithBaseline(t *testing.T) {
	srv, posted := newMockSlackServer(t)
	client := NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	svc := NewServiceWithClient(client)

	baseline := &model.Baseline{MeanCount: 2.5, StddevCount: 0.8}
	svc.NotifyPattern(context.Background(), model.SourceChat, "chat_message", 9, baseline)

	select {
	case <-posted:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a message to be posted")
	}
}

func TestNotifyPatternHandlesNilBaseline(t *testing.T) {
	srv, posted := newMockSlackServer(t)
	client := NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	svc := NewServiceWithClient(client)

	svc.NotifyPattern(context.Background(), model.SourceDrive, "file_shared", 4, nil)

	select {
	case <-posted:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a message to be posted")
	}
}
