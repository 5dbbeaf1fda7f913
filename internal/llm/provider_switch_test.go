package llm_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicebob/miniredis/v2"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/llm"
)

type stubClient struct{ name string }

func (c *stubClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{Text: c.name}, nil
}

func newTestKV(t *testing.T) *kv.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return kv.New(rdb)
}

func TestProviderSwitchDefaultsWithNoOverride(t *testing.T) {
	kvStore := newTestKV(t)
	ps := llm.NewProviderSwitch(kvStore, llm.ProviderAnthropic, map[string]llm.Client{
		llm.ProviderAnthropic: &stubClient{name: "anthropic"},
		llm.ProviderBedrock:   &stubClient{name: "bedrock"},
	})

	client, name, err := ps.Active(t.Context())
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderAnthropic, name)
	resp, _ := client.Generate(t.Context(), llm.Request{})
	assert.Equal(t, "anthropic", resp.Text)
}

func TestProviderSwitchHonorsRedisOverride(t *testing.T) {
	kvStore := newTestKV(t)
	ps := llm.NewProviderSwitch(kvStore, llm.ProviderAnthropic, map[string]llm.Client{
		llm.ProviderAnthropic: &stubClient{name: "anthropic"},
		llm.ProviderBedrock:   &stubClient{name: "bedrock"},
	})

	require.NoError(t, ps.SetOverride(t.Context(), llm.ProviderBedrock))

	_, name, err := ps.Active(t.Context())
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderBedrock, name)
}

func TestProviderSwitchIncrementsGenerationOnChange(t *testing.T) {
	kvStore := newTestKV(t)
	ps := llm.NewProviderSwitch(kvStore, llm.ProviderAnthropic, map[string]llm.Client{
		llm.ProviderAnthropic: &stubClient{name: "anthropic"},
		llm.ProviderBedrock:   &stubClient{name: "bedrock"},
	})

	_, _, err := ps.Active(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, ps.Generation())

	require.NoError(t, ps.SetOverride(t.Context(), llm.ProviderBedrock))
	_, _, err = ps.Active(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, ps.Generation())

	// Calling Active again with the same resolved name must not bump it further.
	_, _, err = ps.Active(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, ps.Generation())
}

func TestProviderSwitchErrorsOnUnconfiguredProvider(t *testing.T) {
	kvStore := newTestKV(t)
	ps := llm.NewProviderSwitch(kvStore, llm.ProviderAnthropic, map[string]llm.Client{
		llm.ProviderAnthropic: &stubClient{name: "anthropic"},
	})

	require.NoError(t, ps.SetOverride(t.Context(), llm.ProviderBedrock))
	_, _, err := ps.Active(t.Context())
	assert.Error(t, err)
}

func TestProviderSwitchSkipsNilClients(t *testing.T) {
	kvStore := newTestKV(t)
	ps := llm.NewProviderSwitch(kvStore, llm.ProviderAnthropic, map[string]llm.Client{
		llm.ProviderAnthropic: &stubClient{name: "anthropic"},
		llm.ProviderBedrock:   nil,
	})

	require.NoError(t, ps.SetOverride(t.Context(), llm.ProviderBedrock))
	_, _, err := ps.Active(t.Context())
	assert.Error(t, err, "nil client must not be registered as available")
}

func TestTierModelsResolveFallsBackToDefault(t *testing.T) {
	tm := llm.TierModels{Default: "claude-default", Fast: "claude-fast"}

	assert.Equal(t, "claude-fast", tm.Resolve(llm.TierFast))
	assert.Equal(t, "claude-default", tm.Resolve(llm.TierPro))
	assert.Equal(t, "claude-default", tm.Resolve(llm.TierFlash))
}
