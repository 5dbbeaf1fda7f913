package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// messagesClient captures the subset of the Anthropic SDK used by the
// adapter, satisfied by *sdk.MessageService, so tests can substitute a
// fake — grounded on features/model/anthropic/client.go's MessagesClient.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements Client on top of the Anthropic Messages API.
type AnthropicClient struct {
	msg    messagesClient
	models TierModels
}

// NewAnthropicClient builds an adapter from an API key and the tier→model
// mapping loaded from config.
func NewAnthropicClient(apiKey string, models TierModels) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("llm: anthropic api key is required")
	}
	if models.Default == "" {
		return nil, errors.New("llm: anthropic default model identifier is required")
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{msg: &client.Messages, models: models}, nil
}

// Generate issues a non-streaming Messages.New call.
func (c *AnthropicClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("llm: anthropic request requires at least one message")
	}
	modelID := c.models.Resolve(req.Tier)

	msgs, system, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	if req.System != "" {
		system = append([]sdk.TextBlockParam{{Text: req.System}}, system...)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if tools := encodeTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		if isAnthropicRateLimit(err) {
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("llm: anthropic messages.new: %w", err)
	}
	return translateAnthropicResponse(msg), nil
}

func encodeMessages(msgs []Message) ([]sdk.MessageParam, []sdk.TextBlockParam, error) {
	out := make([]sdk.MessageParam, 0, len(msgs))
	system := make([]sdk.TextBlockParam, 0)

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			if m.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content})
			}
		case RoleUser:
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case RoleAssistant:
			blocks := make([]sdk.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, sdk.NewAssistantMessage(blocks...))
			}
		case RoleTool:
			content := m.Content
			out = append(out, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolCallID, content, m.IsError)))
		default:
			return nil, nil, fmt.Errorf("llm: anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(out) == 0 {
		return nil, nil, errors.New("llm: anthropic: at least one user/assistant/tool message is required")
	}
	return out, system, nil
}

func encodeTools(defs []ToolDefinition) []sdk.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := sdk.ToolInputSchemaParam{ExtraFields: def.InputSchema}
		tool := sdk.ToolUnionParamOfTool(schema, def.Name)
		if tool.OfTool != nil {
			tool.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, tool)
	}
	return out
}

func translateAnthropicResponse(msg *sdk.Message) *Response {
	resp := &Response{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Text += block.Text
		case "tool_use":
			var args map[string]any
			if raw, err := json.Marshal(block.Input); err == nil {
				_ = json.Unmarshal(raw, &args)
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID: block.ID, Name: block.Name, Arguments: args,
			})
		}
	}
	resp.Usage = TokenUsage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	return resp
}

// isAnthropicRateLimit reports whether err came from a 429 response. The
// SDK surfaces this as an *sdk.Error whose Error() text includes the status
// code; matching on that substring avoids depending on SDK-internal error
// struct fields that may shift between versions.
func isAnthropicRateLimit(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	return strings.Contains(err.Error(), "429")
}
