// Package tool implements the unified tool registry spec.md §4.8 and §9
// ("tool registry polymorphism") require: built-in, dynamic, and
// external-server tools all resolve to one Tool record, grounded on
// original_source/src/agent1/tools/{registry,base,groups}.py.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
)

// Handler executes a tool call and returns a JSON-serializable result.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is the record every tool source — built-in, dynamic, external-server
// — adapts into (spec.md §9 "Tool registry polymorphism").
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Group       string
	Handler     Handler

	schema *jsonschema.Schema
}

func (t *Tool) compile() error {
	if t.InputSchema == nil {
		return nil
	}
	c := jsonschema.NewCompiler()
	resourceName := t.Name + ".schema.json"
	if err := c.AddResource(resourceName, t.InputSchema); err != nil {
		return fmt.Errorf("tool %q: add schema resource: %w", t.Name, err)
	}
	schema, err := c.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("tool %q: compile schema: %w", t.Name, err)
	}
	t.schema = schema
	return nil
}

func (t *Tool) validate(args map[string]any) error {
	if t.schema == nil {
		return nil
	}
	// Round-trip through JSON so numeric/map types match what the compiled
	// schema expects, matching registry.go's validatePayloadJSONAgainstSchema.
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("tool %q: marshal args: %w", t.Name, err)
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return fmt.Errorf("tool %q: unmarshal args: %w", t.Name, err)
	}
	return t.schema.Validate(doc)
}

func (t *Tool) definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}
}

// RateLimiter is the subset of internal/guardrail.Engine the registry needs
// for per-tool rate limiting (spec.md §4.5, §4.8).
type RateLimiter interface {
	CheckToolRateLimit(ctx context.Context, tool string) (bool, error)
}

// CredentialChecker reports whether a tool group's required credentials are
// configured, generalizing groups.py's get_available_groups from a
// hard-coded settings check into an injected predicate (internal/config
// supplies the real one).
type CredentialChecker func(group string) bool

// Registry holds every registered tool and filters/dispatches by event
// source, matching registry.py + groups.py combined.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*Tool
	available CredentialChecker
	limiter   RateLimiter
}

// New constructs an empty Registry. available may be nil, in which case
// every group is considered available (useful in tests). limiter may be
// nil, in which case no rate limiting is applied.
func New(available CredentialChecker, limiter RateLimiter) *Registry {
	return &Registry{
		tools:     make(map[string]*Tool),
		available: available,
		limiter:   limiter,
	}
}

// Register adds or replaces a tool, compiling its input schema once.
func (r *Registry) Register(t *Tool) error {
	if err := t.compile(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	return nil
}

// Unregister removes a tool by name, used when a dynamic tool's backing
// solution is deactivated.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tool definitions the LLM should see for events
// from source, after group filtering and credential-availability
// filtering (spec.md §4.8 "Source-scoped selection"). Group membership is
// read from each registered tool's own Group field rather than the static
// ToolGroups table, so tools registered at runtime (create_dynamic_tool)
// are discoverable without updating that table.
func (r *Registry) Definitions(source model.Source) []llm.ToolDefinition {
	allowed := r.allowedGroups(source)

	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		if allowed[t.Group] {
			defs = append(defs, t.definition())
		}
	}
	return defs
}

func (r *Registry) allowedGroups(source model.Source) map[string]bool {
	groups := make(map[string]bool)
	for _, g := range AlwaysIncluded {
		groups[g] = true
	}
	for _, g := range SourceGroups[source] {
		groups[g] = true
	}
	for g := range groups {
		if r.available != nil && !r.available(g) {
			delete(groups, g)
		}
	}
	return groups
}

// Execute validates args against the tool's schema, enforces its rate
// limit, and dispatches to its handler.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool: unknown tool %q", name)
	}

	if err := t.validate(args); err != nil {
		return nil, fmt.Errorf("tool %q: invalid arguments: %w", name, err)
	}

	if r.limiter != nil {
		allowed, err := r.limiter.CheckToolRateLimit(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("tool %q: rate limit check: %w", name, err)
		}
		if !allowed {
			return nil, fmt.Errorf("tool %q: rate limit exceeded", name)
		}
	}

	return t.Handler(ctx, args)
}
