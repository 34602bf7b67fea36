package llm

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/markdave123-py/botdesk/internal/core"
)

// WhisperTranscriber asks the transcription endpoint for plain text.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisperTranscriber(apiKey, baseURL, model string) *WhisperTranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	w := &WhisperTranscriber{model: model}
	if apiKey != "" {
		w.client = newOpenAIClient(apiKey, baseURL)
	}
	return w
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if w.client == nil {
		return "", fmt.Errorf("transcribe: missing API key: %w", core.ErrConfiguration)
	}
	if filename == "" {
		filename = "recording.webm"
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w: %v", core.ErrUpstream, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

var _ core.Transcriber = (*WhisperTranscriber)(nil)
