package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/models"
)

type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

type stubChunks struct {
	matchErr, keywordErr error
	calls                []string
}

func (s *stubChunks) hit(name string) []models.MatchedChunk {
	s.calls = append(s.calls, name)
	return []models.MatchedChunk{{ID: name, Content: "from " + name}}
}

func (s *stubChunks) MatchDocumentChunks(_ context.Context, _ []float32, _ int, _ string) ([]models.MatchedChunk, error) {
	if s.matchErr != nil {
		s.calls = append(s.calls, "match-owner")
		return nil, s.matchErr
	}
	return s.hit("match-owner"), nil
}

func (s *stubChunks) PublicMatchDocumentChunks(_ context.Context, _ string, _ []float32, _ int) ([]models.MatchedChunk, error) {
	if s.matchErr != nil {
		s.calls = append(s.calls, "match-chatbot")
		return nil, s.matchErr
	}
	return s.hit("match-chatbot"), nil
}

func (s *stubChunks) KeywordSearchByOwner(_ context.Context, _ string, _ int, _ string) ([]models.MatchedChunk, error) {
	if s.keywordErr != nil {
		return nil, s.keywordErr
	}
	return s.hit("keyword-owner"), nil
}

func (s *stubChunks) KeywordSearchByChatbot(_ context.Context, _ string, _ int, _ string) ([]models.MatchedChunk, error) {
	if s.keywordErr != nil {
		return nil, s.keywordErr
	}
	return s.hit("keyword-chatbot"), nil
}

func TestSearch_ScopeSelectsFunction(t *testing.T) {
	ctx := context.Background()

	chunks := &stubChunks{}
	r := NewRetriever(&stubEmbedder{}, chunks)

	got := r.Search(ctx, "refund policy", 5, OwnerScope("u1"))
	assert.Equal(t, "match-owner", got[0].ID)

	got = r.Search(ctx, "refund policy", 5, ChatbotScope("b1"))
	assert.Equal(t, "match-chatbot", got[0].ID)
}

func TestSearch_FallsBackToKeyword(t *testing.T) {
	chunks := &stubChunks{matchErr: errors.New("function missing")}
	r := NewRetriever(&stubEmbedder{}, chunks)

	got := r.Search(context.Background(), "refund policy", 5, ChatbotScope("b1"))
	assert.Equal(t, "keyword-chatbot", got[0].ID)
	assert.Equal(t, []string{"match-chatbot", "keyword-chatbot"}, chunks.calls)
}

func TestSearch_EmbeddingFailureFallsBack(t *testing.T) {
	chunks := &stubChunks{}
	r := NewRetriever(&stubEmbedder{err: core.ErrConfiguration}, chunks)

	got := r.Search(context.Background(), "hours", 5, OwnerScope("u1"))
	assert.Equal(t, "keyword-owner", got[0].ID)
}

func TestSearch_TotalFailureIsEmpty(t *testing.T) {
	chunks := &stubChunks{matchErr: errors.New("a"), keywordErr: errors.New("b")}
	r := NewRetriever(&stubEmbedder{}, chunks)

	assert.Empty(t, r.Search(context.Background(), "hours", 5, OwnerScope("u1")))
}

func TestSearch_InvalidInput(t *testing.T) {
	emb := &stubEmbedder{}
	r := NewRetriever(emb, &stubChunks{})

	assert.Empty(t, r.Search(context.Background(), "hours", 5, Scope{}))
	assert.Empty(t, r.Search(context.Background(), "hours", 5, Scope{OwnerID: "a", ChatbotID: "b"}))
	assert.Empty(t, r.Search(context.Background(), "   ", 5, OwnerScope("a")))
	assert.Equal(t, 0, emb.calls)
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))
	assert.Equal(t,
		"[Source 1]\nalpha\n\n[Source 2]\nbeta",
		FormatContext([]models.MatchedChunk{{Content: "alpha"}, {Content: "beta"}}))
}
