package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/botdesk/internal/core"
)

const defaultGeminiModel = "gemini-1.5-flash"

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	g := &GeminiLLM{modelName: modelName}
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

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("gemini complete: missing API key: %w", core.ErrConfiguration)
	}

	m := g.client.GenerativeModel(g.modelName)
	if sys := req.SystemText(); sys != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(sys)},
		}
	}
	if req.JSONResponse {
		m.ResponseMIMEType = "application/json"
	}

	cs := m.StartChat()
	cs.History = geminiHistory(req.History)

	resp, err := cs.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini complete: %w: %v", core.ErrUpstream, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini complete: no candidates: %w", core.ErrUpstream)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// geminiHistory maps turns onto user/model roles. Gemini requires the history
// to open with a user turn, so leading assistant turns are dropped.
func geminiHistory(turns []core.ChatTurn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == core.RoleAssistant {
			if len(out) == 0 {
				continue
			}
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return out
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
