// Package classify runs the fast, cheap event classification call that
// precedes guardrails and the reasoning loop, grounded on
// original_source/src/agent1/reasoning/classifier.py.
package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/itchyny/gojq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
)

var tracer = otel.Tracer("agent1go/classify")

// SystemPrompt is the operator-authored classification instruction. It is
// deliberately terse: the model is asked for JSON only, no prose.
const SystemPrompt = `You are a fast event triage classifier. Given an event's source, type, and ` +
	`payload, respond with ONLY a JSON object with these fields: category (string), ` +
	`urgency (one of "critical","high","medium","low","background"), complexity (one of ` +
	`"simple","moderate","complex"), involves_vip (bool), involves_financial (bool), ` +
	`needs_response (bool), is_teachable_rule (bool), confidence (0-1 float), ` +
	`detected_language (ISO 639-1 code). No other text.`

var urgencyByName = map[string]model.Priority{
	"critical":   model.PriorityCritical,
	"high":       model.PriorityHigh,
	"medium":     model.PriorityMedium,
	"low":        model.PriorityLow,
	"background": model.PriorityBackground,
}

// Classifier calls the fast model tier to produce a ClassificationResult.
type Classifier struct {
	client llm.Client
	tier   llm.Tier
}

// New constructs a Classifier. tier is normally llm.TierFast; tests may
// substitute any configured tier.
func New(client llm.Client, tier llm.Tier) *Classifier {
	if tier == "" {
		tier = llm.TierFast
	}
	return &Classifier{client: client, tier: tier}
}

// Classify produces a structured classification for ev. It never returns an
// error to the caller — on provider failure, timeout, or an unparseable
// response it falls back to model.SafeDefault, matching
// classifier.py's except-all behavior.
func (c *Classifier) Classify(ctx context.Context, ev *model.Event) model.ClassificationResult {
	ctx, span := tracer.Start(ctx, "classify_event", trace.WithAttributes(
		attribute.String("event.id", ev.ID.String()),
		attribute.String("event.source", string(ev.Source)),
		attribute.String("event.type", ev.EventType),
	))
	defer span.End()

	if c.client == nil {
		return model.SafeDefault(ev.EventType, ev.Priority)
	}

	contextJSON, err := json.Marshal(map[string]any{
		"source":     ev.Source,
		"event_type": ev.EventType,
		"payload":    ev.Payload,
	})
	if err != nil {
		slog.Error("classify: marshal context failed", "event_id", ev.ID, "error", err)
		return model.SafeDefault(ev.EventType, ev.Priority)
	}

	resp, err := c.client.Generate(ctx, llm.Request{
		Tier:      c.tier,
		System:    SystemPrompt,
		MaxTokens: 500,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Classify this event:\n\n" + string(contextJSON)},
		},
	})
	if err != nil {
		slog.Error("classify: provider call failed", "event_id", ev.ID, "error", err)
		span.RecordError(err)
		return model.SafeDefault(ev.EventType, ev.Priority)
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
		attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
	)

	result, ok := parseClassification(stripFences(resp.Text), ev)
	if !ok {
		slog.Warn("classify: unparseable response, using safe default", "event_id", ev.ID)
		return model.SafeDefault(ev.EventType, ev.Priority)
	}
	return result
}

// stripFences removes a single leading/trailing markdown code fence
// (```json ... ``` or ``` ... ```), matching classifier.py's fenced-code
// recovery.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	parts := strings.SplitN(text, "```", 3)
	if len(parts) < 2 {
		return text
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

type rawClassification struct {
	Category          string  `json:"category"`
	Urgency           string  `json:"urgency"`
	Complexity        string  `json:"complexity"`
	InvolvesVIP       bool    `json:"involves_vip"`
	InvolvesFinancial bool    `json:"involves_financial"`
	NeedsResponse     *bool   `json:"needs_response"`
	IsTeachableRule   bool    `json:"is_teachable_rule"`
	Confidence        float64 `json:"confidence"`
	DetectedLanguage  string  `json:"detected_language"`
}

// parseClassification tries a direct unmarshal first; if the shape doesn't
// match (e.g. urgency sent as a number, or stray trailing text after the
// JSON value), it falls back to decoding the leading JSON value generically
// and pulling each field defensively through gojq so one malformed field
// doesn't discard the whole response.
func parseClassification(text string, ev *model.Event) (model.ClassificationResult, bool) {
	var raw rawClassification
	if err := json.Unmarshal([]byte(text), &raw); err == nil {
		return toResult(raw, ev), true
	}

	generic, ok := decodeLeadingJSON(text)
	if !ok {
		return model.ClassificationResult{}, false
	}

	raw = rawClassification{
		Category:         queryString(generic, ".category", ev.EventType),
		Urgency:          queryString(generic, ".urgency", ""),
		Complexity:       queryString(generic, ".complexity", "moderate"),
		DetectedLanguage: queryString(generic, ".detected_language", ""),
		Confidence:       queryFloat(generic, ".confidence", 0.5),
	}
	raw.InvolvesVIP = queryBool(generic, ".involves_vip")
	raw.InvolvesFinancial = queryBool(generic, ".involves_financial")
	raw.IsTeachableRule = queryBool(generic, ".is_teachable_rule")
	needsResponse := queryBoolDefault(generic, ".needs_response", true)
	raw.NeedsResponse = &needsResponse

	return toResult(raw, ev), true
}

// decodeLeadingJSON decodes the first JSON value in text, ignoring any
// trailing prose the model appended after it.
func decodeLeadingJSON(text string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

func toResult(raw rawClassification, ev *model.Event) model.ClassificationResult {
	urgency, ok := urgencyByName[strings.ToLower(raw.Urgency)]
	if !ok {
		urgency = ev.Priority
	}
	complexity := model.Complexity(strings.ToLower(raw.Complexity))
	switch complexity {
	case model.ComplexitySimple, model.ComplexityModerate, model.ComplexityComplex:
	default:
		complexity = model.ComplexityModerate
	}
	needsResponse := true
	if raw.NeedsResponse != nil {
		needsResponse = *raw.NeedsResponse
	}
	category := raw.Category
	if category == "" {
		category = ev.EventType
	}
	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return model.ClassificationResult{
		Category:          category,
		Urgency:           urgency,
		Complexity:        complexity,
		InvolvesVIP:       raw.InvolvesVIP,
		InvolvesFinancial: raw.InvolvesFinancial,
		NeedsResponse:     needsResponse,
		IsTeachableRule:   raw.IsTeachableRule,
		Confidence:        confidence,
		DetectedLanguage:  raw.DetectedLanguage,
	}
}

func runQuery(input any, query string) (any, bool) {
	q, err := gojq.Parse(query)
	if err != nil {
		return nil, false
	}
	iter := q.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, false
	}
	if err, isErr := v.(error); isErr {
		_ = err
		return nil, false
	}
	return v, true
}

func queryString(input any, query, fallback string) string {
	v, ok := runQuery(input, query)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

func queryFloat(input any, query string, fallback float64) float64 {
	v, ok := runQuery(input, query)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return fallback
	}
}

func queryBool(input any, query string) bool {
	return queryBoolDefault(input, query, false)
}

func queryBoolDefault(input any, query string, fallback bool) bool {
	v, ok := runQuery(input, query)
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}
