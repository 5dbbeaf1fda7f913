// Package guardrail runs the two-stage check spec.md §4.5 requires before
// an event reaches the reasoning engine: business rules (OPA/Rego policy)
// and per-tool rate limits (Redis counter-with-TTL), grounded on
// original_source/src/agent1/guardrails/{rules,rate_limits}.py.
package guardrail

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
)

//go:embed policy.rego
var policySource string

// Verdict is the outcome of a guardrail check.
type Verdict struct {
	Allowed bool
	Rule    string
	Reason  string
}

// RateLimit configures one tool's sliding-window cap.
type RateLimit struct {
	Max    int
	Window time.Duration
}

// Engine evaluates business rules and tool rate limits.
type Engine struct {
	kv               *kv.Store
	prepared         rego.PreparedEvalQuery
	restrictedLower  []string
	rateLimits       map[string]RateLimit
}

// New compiles the embedded Rego policy and constructs an Engine.
// restrictedContacts is compared case-insensitively against a payload's
// sender address. rateLimits maps tool name to its (max, window) cap, per
// spec.md §4.5 (generalized from rate_limits.py's hard-coded map into
// config, per SPEC_FULL.md's expansion).
func New(ctx context.Context, kvStore *kv.Store, restrictedContacts []string, rateLimits map[string]RateLimit) (*Engine, error) {
	r := rego.New(
		rego.Query("data.agent1.guardrails"),
		rego.Module("policy.rego", policySource),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("guardrail: compiling policy: %w", err)
	}

	lower := make([]string, len(restrictedContacts))
	for i, c := range restrictedContacts {
		lower[i] = strings.ToLower(c)
	}

	return &Engine{
		kv:              kvStore,
		prepared:        prepared,
		restrictedLower: lower,
		rateLimits:      rateLimits,
	}, nil
}

// CheckBusinessRules evaluates the restricted-contact rule and surfaces
// (without blocking) the VIP/financial signal so the reasoning prompt can
// request approval instead of acting autonomously.
func (e *Engine) CheckBusinessRules(ctx context.Context, ev *model.Event, classification model.ClassificationResult) (Verdict, error) {
	sender := senderAddress(ev.Payload)

	input := map[string]any{
		"sender":              sender,
		"restricted_contacts": e.restrictedLower,
	}

	results, err := e.prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Verdict{}, fmt.Errorf("guardrail: policy eval: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Verdict{Allowed: true}, nil
	}

	doc, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Verdict{Allowed: true}, nil
	}

	verdict := Verdict{Allowed: true}
	if allowed, ok := doc["allow"].(bool); ok {
		verdict.Allowed = allowed
	}
	if rule, ok := doc["rule"].(string); ok {
		verdict.Rule = rule
	}
	if reason, ok := doc["reason"].(string); ok {
		verdict.Reason = reason
	}

	if !verdict.Allowed {
		slog.Info("guardrail blocked event",
			"event_id", ev.ID, "rule", verdict.Rule, "reason", verdict.Reason)
	}
	return verdict, nil
}

// senderAddress extracts the payload field pollers/webhooks use for the
// originating address, matching rules.py's sender_email/from_address
// fallback.
func senderAddress(payload map[string]any) string {
	if v, ok := payload["sender_email"].(string); ok && v != "" {
		return v
	}
	if v, ok := payload["from_address"].(string); ok && v != "" {
		return v
	}
	return ""
}

// CheckToolRateLimit reports whether invoking tool is within its
// configured sliding window. Tools with no configured limit are always
// allowed.
func (e *Engine) CheckToolRateLimit(ctx context.Context, tool string) (bool, error) {
	limit, ok := e.rateLimits[tool]
	if !ok {
		return true, nil
	}
	allowed, err := e.kv.AllowRateLimit(ctx, tool, limit.Max, limit.Window)
	if err != nil {
		return false, fmt.Errorf("guardrail: rate limit check for %q: %w", tool, err)
	}
	return allowed, nil
}
