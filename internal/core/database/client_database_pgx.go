package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/botdesk/internal/config"
	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

// NewDatabaseClient opens the pool, checks connectivity and applies
// migrations.
func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty: %w", core.ErrConfiguration)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := RunMigrations(cfg.DatabaseURL); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, q, user.ID, user.FirstName, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	return storageErr("create user", err)
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, readErr("user", err)
	}
	return &u, nil
}

// Knowledge bases

func (c *DatabaseClient) CreateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error {
	const q = `
		INSERT INTO knowledge_bases (id, owner_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := c.db.QueryRowContext(ctx, q, kb.ID, kb.OwnerID, kb.Name, kb.Description).Scan(&kb.CreatedAt)
	return storageErr("create knowledge base", err)
}

func (c *DatabaseClient) GetKnowledgeBase(ctx context.Context, id string) (*models.KnowledgeBase, error) {
	const q = `
		SELECT id, owner_id, name, description, created_at
		FROM knowledge_bases WHERE id = $1
	`
	var kb models.KnowledgeBase
	err := c.db.QueryRowContext(ctx, q, id).Scan(&kb.ID, &kb.OwnerID, &kb.Name, &kb.Description, &kb.CreatedAt)
	if err != nil {
		return nil, readErr("knowledge base", err)
	}
	return &kb, nil
}

func (c *DatabaseClient) ListKnowledgeBases(ctx context.Context, ownerID string) ([]models.KnowledgeBase, error) {
	const q = `
		SELECT id, owner_id, name, description, created_at
		FROM knowledge_bases WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.KnowledgeBase
	for rows.Next() {
		var kb models.KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.OwnerID, &kb.Name, &kb.Description, &kb.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, kb)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteKnowledgeBase(ctx context.Context, id, ownerID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM knowledge_bases WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return affectedOne("knowledge base", res, err)
}

// Documents

const documentColumns = `id, owner_id, knowledge_base_id, file_name, storage_key, size_bytes,
	content_type, status, processed_at, created_at, updated_at`

func scanDocument(s interface{ Scan(...any) error }, d *models.Document) error {
	return s.Scan(
		&d.ID, &d.OwnerID, &d.KnowledgeBaseID, &d.FileName, &d.StorageKey, &d.SizeBytes,
		&d.ContentType, &d.Status, &d.ProcessedAt, &d.CreatedAt, &d.UpdatedAt,
	)
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, owner_id, knowledge_base_id, file_name, storage_key, size_bytes, content_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, q,
		doc.ID, doc.OwnerID, doc.KnowledgeBaseID, doc.FileName, doc.StorageKey, doc.SizeBytes, doc.ContentType, doc.Status,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	return storageErr("create document", err)
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var d models.Document
	if err := scanDocument(c.db.QueryRowContext(ctx, q, id), &d); err != nil {
		return nil, readErr("document", err)
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListDocumentsByStatus returns every document in status, oldest first.
func (c *DatabaseClient) ListDocumentsByStatus(ctx context.Context, status models.DocumentStatus) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE status = $1 ORDER BY created_at ASC`
	rows, err := c.db.QueryContext(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	return affectedOne("document", res, err)
}

func (c *DatabaseClient) MarkDocumentProcessed(ctx context.Context, id string) error {
	const q = `
		UPDATE documents
		SET status = 'processed', processed_at = now(), updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id)
	return affectedOne("document", res, err)
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id, ownerID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return affectedOne("document", res, err)
}

// Chunks

func (c *DatabaseClient) InsertDocumentChunk(ctx context.Context, ch *models.DocumentChunk) error {
	const q = `
		INSERT INTO document_chunks (id, document_id, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := c.db.QueryRowContext(ctx, q,
		ch.ID, ch.DocumentID, ch.ChunkIndex, ch.Content, pgvector.NewVector(ch.Embedding),
	).Scan(&ch.CreatedAt)
	return storageErr("insert chunk", err)
}

func (c *DatabaseClient) DeleteChunksByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, storageErr("delete chunks", err)
	}
	return res.RowsAffected()
}

func (c *DatabaseClient) GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	const q = `
		SELECT id, document_id, chunk_index, content, embedding, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var (
			ch  models.DocumentChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.ChunkIndex, &ch.Content, &emb, &ch.CreatedAt); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}
