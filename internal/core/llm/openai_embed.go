package llm

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/markdave123-py/botdesk/internal/core"
)

const defaultOpenAIEmbedModel = "text-embedding-3-small"

// OpenAIEmbedder calls an OpenAI compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIEmbedder never fails. An empty apiKey produces an embedder that
// rejects every call before touching the network.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dim int) *OpenAIEmbedder {
	if model == "" {
		model = defaultOpenAIEmbedModel
	}
	e := &OpenAIEmbedder{model: model, dim: dim}
	if apiKey != "" {
		e.client = newOpenAIClient(apiKey, baseURL)
	}
	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.client == nil {
		return nil, fmt.Errorf("openai embed: missing API key: %w", core.ErrConfiguration)
	}
	text = normalizeWhitespace(text)
	if text == "" {
		return nil, fmt.Errorf("openai embed: empty text: %w", core.ErrConfiguration)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w: %v", core.ErrUpstream, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embed: no embeddings returned: %w", core.ErrUpstream)
	}
	return resp.Data[0].Embedding, nil
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}

var _ core.EmbeddingProvider = (*OpenAIEmbedder)(nil)
