package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/models"
)

const sentimentInstruction = `You analyse customer support conversations.
Classify the overall sentiment of the user's recent messages.
Respond with a single JSON object and nothing else:
{"sentiment": "happy" | "neutral" | "unhappy", "confidence": <number between 0 and 1>, "escalate": <true | false>}
Recommend escalation only when the user is clearly frustrated, angry, or asks for a human.`

type SentimentResult struct {
	Sentiment  models.Sentiment `json:"sentiment"`
	Confidence float64          `json:"confidence"`
	Escalate   bool             `json:"escalate"`
}

// Neutral is returned whenever analysis cannot produce a valid result.
func Neutral() SentimentResult {
	return SentimentResult{Sentiment: models.SentimentNeutral}
}

// SentimentAnalyzer classifies recent user messages.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, userMessages []string) SentimentResult
}

type SentimentMonitor struct {
	llm core.LLMProvider
}

func NewSentimentMonitor(llm core.LLMProvider) *SentimentMonitor {
	return &SentimentMonitor{llm: llm}
}

// Analyze never fails: upstream, parse and validation errors all yield
// Neutral.
func (m *SentimentMonitor) Analyze(ctx context.Context, userMessages []string) SentimentResult {
	if m.llm == nil || len(userMessages) == 0 {
		return Neutral()
	}

	var b strings.Builder
	b.WriteString("Recent user messages:\n")
	for i, msg := range userMessages {
		fmt.Fprintf(&b, "%d. %s\n", i+1, msg)
	}

	raw, err := m.llm.Complete(ctx, core.CompletionRequest{
		SystemPrompt: sentimentInstruction,
		Prompt:       b.String(),
		JSONResponse: true,
	})
	log := logger.FromContext(ctx)
	if err != nil {
		if errors.Is(err, core.ErrConfiguration) {
			log.Debug("sentiment analysis disabled")
		} else {
			log.WithError(err).Warn("sentiment analysis failed")
		}
		return Neutral()
	}

	res, err := ParseSentiment(raw)
	if err != nil {
		log.WithError(err).Warn("discarding sentiment response")
		return Neutral()
	}
	return res
}

// ParseSentiment decodes and validates the model's JSON answer. Markdown
// code fences around the object are tolerated.
func ParseSentiment(raw string) (SentimentResult, error) {
	raw = stripFences(raw)

	var wire struct {
		Sentiment  *string  `json:"sentiment"`
		Confidence *float64 `json:"confidence"`
		Escalate   *bool    `json:"escalate"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Neutral(), fmt.Errorf("sentiment json: %w: %v", core.ErrValidation, err)
	}
	if wire.Sentiment == nil || wire.Confidence == nil || wire.Escalate == nil {
		return Neutral(), fmt.Errorf("sentiment json missing fields: %w", core.ErrValidation)
	}

	s := models.Sentiment(strings.ToLower(strings.TrimSpace(*wire.Sentiment)))
	if !s.Valid() {
		return Neutral(), fmt.Errorf("unknown sentiment %q: %w", *wire.Sentiment, core.ErrValidation)
	}
	if *wire.Confidence < 0 || *wire.Confidence > 1 {
		return Neutral(), fmt.Errorf("confidence %v out of range: %w", *wire.Confidence, core.ErrValidation)
	}
	return SentimentResult{Sentiment: s, Confidence: *wire.Confidence, Escalate: *wire.Escalate}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ SentimentAnalyzer = (*SentimentMonitor)(nil)
