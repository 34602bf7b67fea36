package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/core/retrieval"
	"github.com/markdave123-py/botdesk/internal/models"
)

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	replies []string
	reqs    []core.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req core.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) > 0 {
		r := f.replies[0]
		f.replies = f.replies[1:]
		return r, nil
	}
	return f.reply, nil
}

type fakeMessages struct {
	mu           sync.Mutex
	messages     []models.ConversationMessage
	interactions []models.UserInteraction
	addErr       error
	failOnRole   models.MessageRole
}

func (f *fakeMessages) AddSessionMessage(_ context.Context, msg *models.ConversationMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil && (f.failOnRole == "" || f.failOnRole == msg.Role) {
		return f.addErr
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessages) ListSessionMessages(_ context.Context, chatbotID, sessionID string) ([]models.ConversationMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ConversationMessage
	for _, m := range f.messages {
		if m.ChatbotID == chatbotID && m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) CreateUserInteraction(_ context.Context, in *models.UserInteraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactions = append(f.interactions, *in)
	return nil
}

type fakeSearcher struct {
	calls  int
	scopes []retrieval.Scope
	result []models.MatchedChunk
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int, scope retrieval.Scope) []models.MatchedChunk {
	f.calls++
	f.scopes = append(f.scopes, scope)
	return f.result
}

type scriptedSentiment struct {
	results []SentimentResult
	calls   int
}

func (s *scriptedSentiment) Analyze(context.Context, []string) SentimentResult {
	defer func() { s.calls++ }()
	if s.calls < len(s.results) {
		return s.results[s.calls]
	}
	return Neutral()
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
