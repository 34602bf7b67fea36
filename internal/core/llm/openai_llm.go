package llm

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/markdave123-py/botdesk/internal/core"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAILLM struct {
	client *openai.Client
	model  string
}

func NewOpenAILLM(apiKey, baseURL, model string) *OpenAILLM {
	if model == "" {
		model = defaultOpenAIModel
	}
	o := &OpenAILLM{model: model}
	if apiKey != "" {
		o.client = newOpenAIClient(apiKey, baseURL)
	}
	return o
}

func (o *OpenAILLM) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if o.client == nil {
		return "", fmt.Errorf("openai complete: missing API key: %w", core.ErrConfiguration)
	}

	resp, err := o.client.CreateChatCompletion(ctx, o.toOpenAIRequest(req))
	if err != nil {
		return "", fmt.Errorf("openai complete: %w: %v", core.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai complete: no choices: %w", core.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAILLM) toOpenAIRequest(req core.CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if sys := req.SystemText(); sys != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sys,
		})
	}
	for _, t := range req.History {
		role := openai.ChatMessageRoleUser
		if t.Role == core.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	out := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
	if req.JSONResponse {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}

var _ core.LLMProvider = (*OpenAILLM)(nil)
