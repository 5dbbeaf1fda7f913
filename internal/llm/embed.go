package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Embedder turns search text into a dense vector for pgvector similarity
// queries. spec.md §1 assumes "at least one external embedding provider" —
// this module exercises Bedrock's Titan embedding model, consistent with
// the anthropic/bedrock provider redesign (SPEC_FULL.md DOMAIN STACK).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// invokeModelClient is the subset of *bedrockruntime.Client the embedder
// needs.
type invokeModelClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbedder calls Amazon Titan Text Embeddings V2 via InvokeModel —
// Converse does not carry an embeddings operation, so this bypasses the
// chat-completion surface the rest of this package uses.
type BedrockEmbedder struct {
	runtime invokeModelClient
	modelID string
}

// NewBedrockEmbedder constructs a BedrockEmbedder. modelID is typically
// "amazon.titan-embed-text-v2:0".
func NewBedrockEmbedder(runtime *bedrockruntime.Client, modelID string) *BedrockEmbedder {
	if modelID == "" {
		modelID = "amazon.titan-embed-text-v2:0"
	}
	return &BedrockEmbedder{runtime: runtime, modelID: modelID}
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// Embed returns the Titan embedding vector for text.
func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal titan request: %w", err)
	}

	out, err := e.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &e.modelID,
		ContentType: strPtr("application/json"),
		Accept:      strPtr("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: titan embed invoke: %w", err)
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("llm: decode titan response: %w", err)
	}
	return resp.Embedding, nil
}

func strPtr(s string) *string { return &s }
