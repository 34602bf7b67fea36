package db

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/botdesk/internal/models"
)

// MatchDocumentChunks runs the owner-scoped similarity function.
func (c *DatabaseClient) MatchDocumentChunks(ctx context.Context, embedding []float32, k int, ownerID string) ([]models.MatchedChunk, error) {
	const q = `
		SELECT id, document_id, chunk_index, content, similarity
		FROM match_document_chunks($1, $2, $3)
	`
	rows, err := c.db.QueryContext(ctx, q, pgvector.NewVector(embedding), k, ownerID)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

// PublicMatchDocumentChunks runs the chatbot-scoped similarity function used
// by embedded widgets.
func (c *DatabaseClient) PublicMatchDocumentChunks(ctx context.Context, chatbotID string, embedding []float32, k int) ([]models.MatchedChunk, error) {
	const q = `
		SELECT id, document_id, chunk_index, content, similarity
		FROM public_match_document_chunks($1, $2, $3)
	`
	rows, err := c.db.QueryContext(ctx, q, chatbotID, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

func (c *DatabaseClient) KeywordSearchByOwner(ctx context.Context, query string, k int, ownerID string) ([]models.MatchedChunk, error) {
	const q = `
		SELECT c.id, c.document_id, c.chunk_index, c.content,
		       ts_rank(to_tsvector('english', c.content), plainto_tsquery('english', $1))::float8 AS similarity
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.owner_id = $3
		  AND to_tsvector('english', c.content) @@ plainto_tsquery('english', $1)
		ORDER BY similarity DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, query, k, ownerID)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

func (c *DatabaseClient) KeywordSearchByChatbot(ctx context.Context, query string, k int, chatbotID string) ([]models.MatchedChunk, error) {
	const q = `
		SELECT c.id, c.document_id, c.chunk_index, c.content,
		       ts_rank(to_tsvector('english', c.content), plainto_tsquery('english', $1))::float8 AS similarity
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		JOIN chatbots b ON b.knowledge_base_id = d.knowledge_base_id
		WHERE b.id = $3
		  AND to_tsvector('english', c.content) @@ plainto_tsquery('english', $1)
		ORDER BY similarity DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, query, k, chatbotID)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]models.MatchedChunk, error) {
	defer rows.Close()

	var out []models.MatchedChunk
	for rows.Next() {
		var m models.MatchedChunk
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.ChunkIndex, &m.Content, &m.Similarity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
