package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sukru-can1/agent1go/internal/kv"
)

// Recognized provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// ProviderSwitch is a singleton-with-generation-count provider selector,
// grounded on _factory.py's module-level `_provider`/`_cached_provider_name`
// pair: it caches the active client by provider name and only re-resolves
// when the Redis override (kv.LLMProviderOverride) changes, so webhook and
// worker processes converge on the same provider without a shared process.
type ProviderSwitch struct {
	kv *kv.Store

	clients map[string]Client
	// defaultName is used when no Redis override is set (spec.md §6
	// "provider selection").
	defaultName string

	mu         sync.Mutex
	cachedName string
	generation int
}

// NewProviderSwitch constructs a ProviderSwitch over the given provider
// clients, keyed by provider name (ProviderAnthropic, ProviderBedrock).
// Only non-nil clients are registered — a provider with no configured
// credentials is simply unavailable.
func NewProviderSwitch(kvStore *kv.Store, defaultName string, clients map[string]Client) *ProviderSwitch {
	registered := make(map[string]Client, len(clients))
	for name, c := range clients {
		if c != nil {
			registered[name] = c
		}
	}
	return &ProviderSwitch{kv: kvStore, defaultName: defaultName, clients: registered}
}

// Active resolves the current provider: a Redis override if set, else the
// configured default. The client is cached until the active name changes,
// at which point Generation is incremented — callers that want to observe
// provider switches (e.g. /admin/status) can poll Generation().
func (p *ProviderSwitch) Active(ctx context.Context) (Client, string, error) {
	name, err := p.activeName(ctx)
	if err != nil {
		return nil, "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if name != p.cachedName {
		p.cachedName = name
		p.generation++
	}

	client, ok := p.clients[name]
	if !ok {
		return nil, name, fmt.Errorf("llm: provider %q is not configured", name)
	}
	return client, name, nil
}

func (p *ProviderSwitch) activeName(ctx context.Context) (string, error) {
	override, err := p.kv.LLMProviderOverride(ctx)
	if err != nil {
		return "", fmt.Errorf("llm: reading provider override: %w", err)
	}
	if override != "" {
		return strings.ToLower(override), nil
	}
	return strings.ToLower(p.defaultName), nil
}

// SetOverride sets or clears (empty string) the runtime provider override,
// visible to every process sharing Redis.
func (p *ProviderSwitch) SetOverride(ctx context.Context, name string) error {
	return p.kv.SetLLMProviderOverride(ctx, name)
}

// Generation returns how many times the active provider has changed since
// process start, for status/observability endpoints.
func (p *ProviderSwitch) Generation() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}
