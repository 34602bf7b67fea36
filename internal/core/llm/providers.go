package llm

import (
	"context"

	"github.com/markdave123-py/botdesk/internal/config"
	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
)

// Providers bundles the hosted model clients selected by configuration.
type Providers struct {
	Embedder    core.EmbeddingProvider
	LLM         core.LLMProvider
	Transcriber core.Transcriber
	Synthesizer core.SpeechSynthesizer

	closers []func() error
}

// Features reports which credential-backed features are usable.
type Features struct {
	Chat       bool `json:"chat"`
	Embeddings bool `json:"embeddings"`
	Voice      bool `json:"voice"`
	Speech     bool `json:"speech"`
}

// NewProviders wires the embedding and chat clients for LLM_PROVIDER.
// Transcription always uses the OpenAI compatible endpoint. Missing keys
// produce clients that fail with core.ErrConfiguration.
func NewProviders(ctx context.Context, cfg *config.Config) (*Providers, error) {
	p := &Providers{
		Transcriber: NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.TranscribeModel),
		Synthesizer: NewElevenLabsSynthesizer(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID),
	}

	switch cfg.LLMProvider {
	case "openai":
		p.Embedder = NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbedModel, cfg.EmbedDim)
		p.LLM = NewOpenAILLM(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.GenModel)
	default:
		emb, err := NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, err
		}
		gen, err := NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.GenModel)
		if err != nil {
			_ = emb.Close()
			return nil, err
		}
		p.Embedder, p.LLM = emb, gen
		p.closers = append(p.closers, emb.Close, gen.Close)
	}

	f := FeaturesFor(cfg)
	logger.L().WithField("provider", cfg.LLMProvider).
		WithField("chat", f.Chat).
		WithField("voice", f.Voice).
		WithField("speech", f.Speech).
		Info("model providers ready")
	return p, nil
}

func FeaturesFor(cfg *config.Config) Features {
	hasLLM := cfg.LLMAPIKey() != ""
	return Features{
		Chat:       hasLLM,
		Embeddings: hasLLM,
		Voice:      cfg.OpenAIAPIKey != "",
		Speech:     cfg.ElevenLabsAPIKey != "",
	}
}

func (p *Providers) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
