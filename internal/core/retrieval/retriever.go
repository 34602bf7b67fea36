// Package retrieval finds the stored chunks most relevant to a query.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/models"
)

const DefaultTopK = 5

// Scope restricts candidates to one owner's documents or to the documents
// linked to one chatbot. Exactly one field is set.
type Scope struct {
	OwnerID   string
	ChatbotID string
}

func OwnerScope(ownerID string) Scope     { return Scope{OwnerID: ownerID} }
func ChatbotScope(chatbotID string) Scope { return Scope{ChatbotID: chatbotID} }

func (s Scope) validate() error {
	if (s.OwnerID == "") == (s.ChatbotID == "") {
		return fmt.Errorf("retrieval scope needs exactly one of owner or chatbot: %w", core.ErrValidation)
	}
	return nil
}

// Searcher is what the turn handler depends on.
type Searcher interface {
	Search(ctx context.Context, query string, k int, scope Scope) []models.MatchedChunk
}

type Retriever struct {
	embedder core.EmbeddingProvider
	chunks   core.ChunkSearcher
}

func NewRetriever(embedder core.EmbeddingProvider, chunks core.ChunkSearcher) *Retriever {
	return &Retriever{embedder: embedder, chunks: chunks}
}

// Search never fails. Similarity search errors fall back to keyword search in
// the same scope, and if that fails too the result is empty.
func (r *Retriever) Search(ctx context.Context, query string, k int, scope Scope) []models.MatchedChunk {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"owner_id":   scope.OwnerID,
		"chatbot_id": scope.ChatbotID,
	})
	if err := scope.validate(); err != nil {
		log.WithError(err).Error("invalid retrieval scope")
		return nil
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	matches, err := r.similarity(ctx, query, k, scope)
	if err == nil {
		return matches
	}
	log.WithError(err).Warn("similarity search failed, using keyword search")

	matches, err = r.keyword(ctx, query, k, scope)
	if err != nil {
		log.WithError(err).Warn("keyword search failed, continuing without context")
		return nil
	}
	return matches
}

func (r *Retriever) similarity(ctx context.Context, query string, k int, scope Scope) ([]models.MatchedChunk, error) {
	if r.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if scope.OwnerID != "" {
		return r.chunks.MatchDocumentChunks(ctx, vec, k, scope.OwnerID)
	}
	return r.chunks.PublicMatchDocumentChunks(ctx, scope.ChatbotID, vec, k)
}

func (r *Retriever) keyword(ctx context.Context, query string, k int, scope Scope) ([]models.MatchedChunk, error) {
	if scope.OwnerID != "" {
		return r.chunks.KeywordSearchByOwner(ctx, query, k, scope.OwnerID)
	}
	return r.chunks.KeywordSearchByChatbot(ctx, query, k, scope.ChatbotID)
}

// FormatContext labels each chunk [Source N], starting at 1.
func FormatContext(chunks []models.MatchedChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d]\n%s", i+1, c.Content)
	}
	return b.String()
}

var _ Searcher = (*Retriever)(nil)
