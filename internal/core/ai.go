package core

import "context"

// EmbeddingProvider turns one text into one vector. Implementations make
// exactly one upstream call per invocation.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatTurn struct {
	Role    Role
	Content string
}

// CompletionRequest follows the system-prompt-plus-context pattern.
type CompletionRequest struct {
	SystemPrompt string
	// Context is the retrieved knowledge block. Empty means none.
	Context string
	History []ChatTurn
	Prompt  string
	// JSONResponse asks the model for a strict JSON object.
	JSONResponse bool
}

// SystemText joins the system prompt and the context block.
func (r CompletionRequest) SystemText() string {
	if r.Context == "" {
		return r.SystemPrompt
	}
	return r.SystemPrompt + "\n\nUse the following context to answer when relevant:\n" + r.Context
}

type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Transcriber converts recorded audio into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// SpeechSynthesizer converts text into audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (audio []byte, contentType string, err error)
}
