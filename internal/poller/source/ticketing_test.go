package source

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicketingTestServer(t *testing.T, tickets []ticketingTicket) (*httptest.Server, *Ticketing) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.True(t, strings.Contains(r.URL.Path, "/api/v2/tickets"))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(tickets))
	}))
	t.Cleanup(srv.Close)

	domain := strings.TrimPrefix(srv.URL, "https://")
	tk := NewTicketing(TicketingConfig{Domain: domain, APIKey: "test-key", Client: srv.Client()})
	return srv, tk
}

func TestTicketingPollMapsPriorityAndBuildsDedupKey(t *testing.T) {
	_, tk := newTicketingTestServer(t, []ticketingTicket{
		{ID: 7, UpdatedAt: "2026-07-30T10:00:00Z", Subject: "billing issue", Status: 2, Priority: 4},
	})

	candidates, err := tk.Poll(t.Context())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "7:2026-07-30T10:00:00Z", candidates[0].DedupKey)
	assert.Equal(t, "ticketing:7:2026-07-30T10:00:00Z", candidates[0].Event.IdempotencyKey)
}

func TestTicketingPollFallsBackToMediumForUnknownPriority(t *testing.T) {
	_, tk := newTicketingTestServer(t, []ticketingTicket{
		{ID: 9, UpdatedAt: "2026-07-30T11:00:00Z", Subject: "question", Status: 2, Priority: 99},
	})

	candidates, err := tk.Poll(t.Context())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "question", candidates[0].Event.Payload["subject"])
}

func TestTicketingPollEmptyResponse(t *testing.T) {
	_, tk := newTicketingTestServer(t, nil)

	candidates, err := tk.Poll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestNewTicketingReturnsNilWithoutAPIKey(t *testing.T) {
	assert.Nil(t, NewTicketing(TicketingConfig{Domain: "example.freshdesk.com"}))
}

func TestTicketingPollErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	domain := strings.TrimPrefix(srv.URL, "https://")
	tk := NewTicketing(TicketingConfig{Domain: domain, APIKey: "test-key", Client: srv.Client()})

	_, err := tk.Poll(t.Context())
	assert.Error(t, err)
}
