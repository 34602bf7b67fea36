package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/botdesk/internal/core"
)

const defaultGeminiEmbedModel = "text-embedding-004"

// GeminiEmbedder produces 768-dimension vectors. Without an API key it never
// builds a client and every call fails with core.ErrConfiguration.
type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string) (*GeminiEmbedder, error) {
	if modelName == "" {
		modelName = defaultGeminiEmbedModel
	}
	g := &GeminiEmbedder{modelName: modelName}
	if apiKey == "" {
		return g, nil
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	g.client = cl
	return g, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Embed makes a single EmbedContent call. No batching, retry or caching.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.client == nil {
		return nil, fmt.Errorf("gemini embed: missing API key: %w", core.ErrConfiguration)
	}
	text = normalizeWhitespace(text)
	if text == "" {
		return nil, fmt.Errorf("gemini embed: empty text: %w", core.ErrConfiguration)
	}

	resp, err := g.client.EmbeddingModel(g.modelName).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w: %v", core.ErrUpstream, err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: empty embedding: %w", core.ErrUpstream)
	}
	return resp.Embedding.Values, nil
}

// normalizeWhitespace collapses every whitespace run to a single space.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
