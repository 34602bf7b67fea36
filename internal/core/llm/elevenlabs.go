package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haguro/elevenlabs-go"

	"github.com/markdave123-py/botdesk/internal/core"
)

// Fixed voice parameters applied to every synthesis request.
const (
	voiceStability       = 0.5
	voiceSimilarityBoost = 0.75
	voiceStyle           = 0.0
	elevenLabsModel      = "eleven_multilingual_v2"
	synthesisTimeout     = 60 * time.Second
)

type ttsFunc func(ctx context.Context, voiceID string, req elevenlabs.TextToSpeechRequest) ([]byte, error)

// ElevenLabsSynthesizer turns replies into mp3 speech with one fixed voice.
type ElevenLabsSynthesizer struct {
	apiKey  string
	voiceID string
	tts     ttsFunc
}

func NewElevenLabsSynthesizer(apiKey, voiceID string) *ElevenLabsSynthesizer {
	return &ElevenLabsSynthesizer{
		apiKey:  apiKey,
		voiceID: voiceID,
		tts: func(ctx context.Context, voiceID string, req elevenlabs.TextToSpeechRequest) ([]byte, error) {
			// the client binds its context at construction
			return elevenlabs.NewClient(ctx, apiKey, synthesisTimeout).TextToSpeech(voiceID, req)
		},
	}
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if s.apiKey == "" {
		return nil, "", fmt.Errorf("synthesize: missing API key: %w", core.ErrConfiguration)
	}
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("synthesize: empty text: %w", core.ErrValidation)
	}

	audio, err := s.tts(ctx, s.voiceID, elevenlabs.TextToSpeechRequest{
		Text:    text,
		ModelID: elevenLabsModel,
		VoiceSettings: &elevenlabs.VoiceSettings{
			Stability:       voiceStability,
			SimilarityBoost: voiceSimilarityBoost,
			Style:           voiceStyle,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("synthesize: %w: %v", core.ErrUpstream, err)
	}
	if len(audio) == 0 {
		return nil, "", fmt.Errorf("synthesize: empty audio: %w", core.ErrUpstream)
	}
	return audio, "audio/mpeg", nil
}

var _ core.SpeechSynthesizer = (*ElevenLabsSynthesizer)(nil)
