package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// runtimeClient mirrors the subset of the AWS Bedrock runtime client the
// adapter needs, satisfied by *bedrockruntime.Client — grounded on
// features/model/bedrock/client.go's RuntimeClient.
type runtimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient implements Client on top of the AWS Bedrock Converse API.
type BedrockClient struct {
	runtime runtimeClient
	models  TierModels
}

// NewBedrockClient wraps an already-configured Bedrock runtime client. The
// runtime client itself is built from bedrockruntime.NewFromConfig against
// an aws.Config loaded by internal/config, matching how the rest of the
// pack keeps AWS credential resolution outside the adapter.
func NewBedrockClient(runtime *bedrockruntime.Client, models TierModels) (*BedrockClient, error) {
	if runtime == nil {
		return nil, errors.New("llm: bedrock runtime client is required")
	}
	if models.Default == "" {
		return nil, errors.New("llm: bedrock default model identifier is required")
	}
	return &BedrockClient{runtime: runtime, models: models}, nil
}

// Generate issues a Converse request.
func (c *BedrockClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("llm: bedrock request requires at least one message")
	}
	modelID := c.models.Resolve(req.Tier)

	messages, system, err := encodeBedrockMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	if req.System != "" {
		system = append([]brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: req.System},
		}, system...)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: messages,
	}
	if len(system) > 0 {
		input.System = system
	}
	if toolConfig := encodeBedrockTools(req.Tools); toolConfig != nil {
		input.ToolConfig = toolConfig
	}
	if cfg := inferenceConfig(req.MaxTokens); cfg != nil {
		input.InferenceConfig = cfg
	}

	output, err := c.runtime.Converse(ctx, input)
	if err != nil {
		if isBedrockRateLimit(err) {
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("llm: bedrock converse: %w", err)
	}
	return translateBedrockResponse(output)
}

func encodeBedrockMessages(msgs []Message) ([]brtypes.Message, []brtypes.SystemContentBlock, error) {
	conversation := make([]brtypes.Message, 0, len(msgs))
	system := make([]brtypes.SystemContentBlock, 0)

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			if m.Content != "" {
				system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Content})
			}
		case RoleUser:
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
			})
		case RoleAssistant:
			blocks := make([]brtypes.ContentBlock, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: m.Content})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     toDocument(tc.Arguments),
					},
				})
			}
			if len(blocks) > 0 {
				conversation = append(conversation, brtypes.Message{
					Role:    brtypes.ConversationRoleAssistant,
					Content: blocks,
				})
			}
		case RoleTool:
			conversation = append(conversation, brtypes.Message{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberToolResult{
					Value: brtypes.ToolResultBlock{
						ToolUseId: aws.String(m.ToolCallID),
						Content: []brtypes.ToolResultContentBlock{
							&brtypes.ToolResultContentBlockMemberText{Value: m.Content},
						},
					},
				}},
			})
		default:
			return nil, nil, fmt.Errorf("llm: bedrock: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, nil, errors.New("llm: bedrock: at least one user/assistant/tool message is required")
	}
	return conversation, system, nil
}

func encodeBedrockTools(defs []ToolDefinition) *brtypes.ToolConfiguration {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]brtypes.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(def.Name),
				Description: aws.String(def.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: toDocument(def.InputSchema)},
			},
		})
	}
	return &brtypes.ToolConfiguration{Tools: tools}
}

func inferenceConfig(maxTokens int) *brtypes.InferenceConfiguration {
	if maxTokens <= 0 {
		return nil
	}
	return &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(int32(maxTokens))}
}

func toDocument(v any) document.Interface {
	if v == nil {
		v = map[string]any{"type": "object"}
	}
	return document.NewLazyDocument(v)
}

func translateBedrockResponse(output *bedrockruntime.ConverseOutput) (*Response, error) {
	if output == nil {
		return nil, errors.New("llm: bedrock response is nil")
	}
	resp := &Response{}
	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			switch v := block.(type) {
			case *brtypes.ContentBlockMemberText:
				resp.Text += v.Value
			case *brtypes.ContentBlockMemberToolUse:
				var args map[string]any
				if v.Value.Input != nil {
					if raw, err := v.Value.Input.MarshalSmithyDocument(); err == nil {
						_ = json.Unmarshal(raw, &args)
					}
				}
				name := ""
				if v.Value.Name != nil {
					name = *v.Value.Name
				}
				id := ""
				if v.Value.ToolUseId != nil {
					id = *v.Value.ToolUseId
				}
				resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: id, Name: name, Arguments: args})
			}
		}
	}
	resp.StopReason = string(output.StopReason)
	if usage := output.Usage; usage != nil {
		resp.Usage = TokenUsage{
			InputTokens:  int(ptrOrZero(usage.InputTokens)),
			OutputTokens: int(ptrOrZero(usage.OutputTokens)),
		}
	}
	return resp, nil
}

func ptrOrZero(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}

// isBedrockRateLimit reports whether err represents Bedrock throttling
// (HTTP 429 or a ThrottlingException/TooManyRequestsException error code).
func isBedrockRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 429 {
		return true
	}
	return false
}
