// Package reason implements the tool-calling reasoning loop that turns a
// classified event into a drafted action, grounded on
// original_source/src/agent1/reasoning/engine.py.
package reason

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	ctxengine "github.com/sukru-can1/agent1go/internal/context"
	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
)

//go:embed prompts/ops_playbook.md
var opsPlaybook string

// MaxTurns bounds the function-calling loop, matching engine.py's
// hard-coded max_turns.
const MaxTurns = 10

// maxResponseTokens caps each provider call's output, matching engine.py's
// max_tokens=4096.
const maxResponseTokens = 4096

// ToolProvider is the subset of internal/tool.Registry the reasoning loop
// needs: the tool definitions visible to a given event source, and
// dispatch by name.
type ToolProvider interface {
	Definitions(source model.Source) []llm.ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// Outcome is what ReasonAndAct returns, mirroring engine.py's result dict.
type Outcome struct {
	ModelUsed    string
	InputTokens  int
	OutputTokens int
	Result       string
	Turns        int
	ToolsCalled  []string
}

// Engine runs the multi-turn tool-calling loop against the active LLM
// provider, one circuit breaker per provider name so a failing provider
// trips independently of the others.
type Engine struct {
	providers *llm.ProviderSwitch
	tools     ToolProvider

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// New constructs an Engine. tools may be nil during early bring-up — the
// loop simply offers no tools and every turn ends on the first response.
func New(providers *llm.ProviderSwitch, tools ToolProvider) *Engine {
	return &Engine{
		providers: providers,
		tools:     tools,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
}

// ReasonAndAct sends the event (plus classification and any retrieved
// context) to the active provider, executing tool calls in a loop until the
// model stops calling tools or MaxTurns is reached. history carries prior
// turns from internal/session.Manager.LoadHistory for session-scoped
// sources (chat, dashboard); it is empty for one-shot sources like mail or
// tickets.
func (e *Engine) ReasonAndAct(ctx context.Context, ev *model.Event, classification model.ClassificationResult, enriched *ctxengine.EnrichedContext, history []llm.Message) (*Outcome, error) {
	client, providerName, err := e.providers.Active(ctx)
	if err != nil {
		slog.Warn("reason: no provider available, skipping", "event_id", ev.ID, "error", err)
		return &Outcome{ModelUsed: "none", Result: "skipped"}, nil
	}

	tier := selectTier(classification, ev)
	var toolDefs []llm.ToolDefinition
	if e.tools != nil {
		toolDefs = e.tools.Definitions(ev.Source)
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: buildContextMessage(ev, classification, enriched)})

	var totalInput, totalOutput int
	var toolsCalled []string

	for turn := 0; turn < MaxTurns; turn++ {
		resp, err := e.generate(ctx, client, providerName, llm.Request{
			Tier:      tier,
			System:    opsPlaybook,
			Messages:  messages,
			Tools:     toolDefs,
			MaxTokens: maxResponseTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("reason: provider call (turn %d): %w", turn, err)
		}
		totalInput += resp.Usage.InputTokens
		totalOutput += resp.Usage.OutputTokens

		if len(resp.ToolCalls) == 0 {
			slog.Info("reason: complete", "event_id", ev.ID, "provider", providerName,
				"tier", tier, "turns", turn+1)
			return &Outcome{
				ModelUsed:    modelLabel(providerName, tier),
				InputTokens:  totalInput,
				OutputTokens: totalOutput,
				Result:       resp.Text,
				Turns:        turn + 1,
				ToolsCalled:  toolsCalled,
			}, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			toolsCalled = append(toolsCalled, tc.Name)
			slog.Info("reason: tool_call", "event_id", ev.ID, "tool", tc.Name)

			resultText, isError := e.runTool(ctx, tc)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    resultText,
				ToolCallID: tc.ID,
				Name:       tc.Name,
				IsError:    isError,
			})
		}
	}

	slog.Warn("reason: max_turns_reached", "event_id", ev.ID, "provider", providerName, "turns", MaxTurns)
	return &Outcome{
		ModelUsed:    modelLabel(providerName, tier),
		InputTokens:  totalInput,
		OutputTokens: totalOutput,
		Result:       "max_turns_reached",
		Turns:        MaxTurns,
		ToolsCalled:  toolsCalled,
	}, nil
}

func (e *Engine) runTool(ctx context.Context, tc llm.ToolCall) (text string, isError bool) {
	if e.tools == nil {
		return `{"error":"no tool registry configured"}`, true
	}
	result, err := e.tools.Execute(ctx, tc.Name, tc.Arguments)
	if err != nil {
		slog.Error("reason: tool_execution_error", "tool", tc.Name, "error", err)
		encoded, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(encoded), true
	}
	if s, ok := result.(string); ok {
		return s, false
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error()), true
	}
	return string(encoded), false
}

// generate wraps a single provider call in the per-provider circuit
// breaker, tripping after repeated consecutive failures so a degraded
// provider stops being hammered (SPEC_FULL.md §4.7).
func (e *Engine) generate(ctx context.Context, client llm.Client, providerName string, req llm.Request) (*llm.Response, error) {
	cb := e.breakerFor(providerName)
	result, err := cb.Execute(func() (any, error) {
		return client.Generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*llm.Response), nil
}

func (e *Engine) breakerFor(providerName string) *gobreaker.CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cb, ok := e.breakers[providerName]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        providerName,
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("reason: circuit breaker state change", "provider", name, "from", from, "to", to)
		},
	})
	e.breakers[providerName] = cb
	return cb
}

func modelLabel(providerName string, tier llm.Tier) string {
	return providerName + ":" + string(tier)
}
