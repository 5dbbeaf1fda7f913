package poller_test

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicebob/miniredis/v2"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/poller"
	"github.com/sukru-can1/agent1go/internal/queue"
	"github.com/sukru-can1/agent1go/internal/storetest"
)

func newTestRunner(t *testing.T) (*poller.Runner, *kv.Store) {
	t.Helper()
	db := storetest.New(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kvStore := kv.New(rdb)
	pub := queue.NewPublisher(kvStore, db)
	return poller.NewRunner(kvStore, pub), kvStore
}

type listSource struct {
	name       string
	candidates []poller.Candidate
	err        error
}

func (s *listSource) Name() string { return s.name }

func (s *listSource) Poll(ctx context.Context) ([]poller.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func candidate(dedupKey string) poller.Candidate {
	return poller.Candidate{
		Event:    model.NewEvent(model.SourceMail, "message_received", model.PriorityMedium, map[string]any{"subject": dedupKey}),
		DedupKey: dedupKey,
	}
}

func TestRunnerPublishesNonDuplicateCandidates(t *testing.T) {
	runner, _ := newTestRunner(t)
	src := &listSource{name: "mail", candidates: []poller.Candidate{candidate("msg-1"), candidate("msg-2")}}

	n, err := runner.Run(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunnerSkipsAlreadySeenDedupKey(t *testing.T) {
	runner, _ := newTestRunner(t)
	src := &listSource{name: "mail", candidates: []poller.Candidate{candidate("msg-1")}}

	n, err := runner.Run(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same dedup key surfacing a second time (e.g. a re-poll overlapping
	// the look-back window) must not publish again.
	n, err = runner.Run(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRunnerPropagatesPollError(t *testing.T) {
	runner, _ := newTestRunner(t)
	src := &listSource{name: "mail", err: errors.New("upstream API unavailable")}

	_, err := runner.Run(t.Context(), src)
	assert.Error(t, err)
}

func TestRunnerHandlesEmptyCandidateList(t *testing.T) {
	runner, _ := newTestRunner(t)
	src := &listSource{name: "mail"}

	n, err := runner.Run(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
