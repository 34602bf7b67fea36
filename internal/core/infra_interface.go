package core

import (
	"context"
	"io"

	"github.com/markdave123-py/botdesk/internal/models"
)

// UserStore persists dashboard owners.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type KnowledgeBaseStore interface {
	CreateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error
	GetKnowledgeBase(ctx context.Context, id string) (*models.KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context, ownerID string) ([]models.KnowledgeBase, error)
	DeleteKnowledgeBase(ctx context.Context, id, ownerID string) error
}

// DocumentStore covers documents and their chunk rows. Deleting a document
// cascades to its chunks.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)
	ListDocumentsByStatus(ctx context.Context, status models.DocumentStatus) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error
	MarkDocumentProcessed(ctx context.Context, id string) error
	DeleteDocument(ctx context.Context, id, ownerID string) error

	InsertDocumentChunk(ctx context.Context, chunk *models.DocumentChunk) error
	DeleteChunksByDocument(ctx context.Context, documentID string) (int64, error)
	GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
}

// ChunkSearcher runs the similarity and keyword searches used by retrieval.
type ChunkSearcher interface {
	MatchDocumentChunks(ctx context.Context, embedding []float32, k int, ownerID string) ([]models.MatchedChunk, error)
	PublicMatchDocumentChunks(ctx context.Context, chatbotID string, embedding []float32, k int) ([]models.MatchedChunk, error)
	KeywordSearchByOwner(ctx context.Context, query string, k int, ownerID string) ([]models.MatchedChunk, error)
	KeywordSearchByChatbot(ctx context.Context, query string, k int, chatbotID string) ([]models.MatchedChunk, error)
}

type ChatbotStore interface {
	CreateChatbot(ctx context.Context, bot *models.Chatbot) error
	GetChatbot(ctx context.Context, id string) (*models.Chatbot, error)
	ListChatbots(ctx context.Context, ownerID string) ([]models.Chatbot, error)
	UpdateChatbot(ctx context.Context, bot *models.Chatbot) error
	DeleteChatbot(ctx context.Context, id, ownerID string) error
}

// DomainStore manages the embed allow-list.
type DomainStore interface {
	CreateChatbotDomain(ctx context.Context, d *models.ChatbotDomain) error
	ListChatbotDomains(ctx context.Context, chatbotID string) ([]models.ChatbotDomain, error)
	GetChatbotDomain(ctx context.Context, id string) (*models.ChatbotDomain, error)
	// FindActiveChatbotDomain returns ErrNotFound unless every field matches
	// an active row.
	FindActiveChatbotDomain(ctx context.Context, chatbotID, domain, token string) (*models.ChatbotDomain, error)
	// RegenerateDomainToken swaps the token in a single statement so the old
	// value stops matching immediately.
	RegenerateDomainToken(ctx context.Context, id, token string) error
	SetChatbotDomainActive(ctx context.Context, id string, active bool) error
	DeleteChatbotDomain(ctx context.Context, id string) error
}

// MessageStore is the session-scoped transcript and interaction log.
type MessageStore interface {
	AddSessionMessage(ctx context.Context, msg *models.ConversationMessage) error
	ListSessionMessages(ctx context.Context, chatbotID, sessionID string) ([]models.ConversationMessage, error)
	CreateUserInteraction(ctx context.Context, in *models.UserInteraction) error
}

// DbClient is the full persistence surface. Higher layers depend on the
// narrow interfaces above.
type DbClient interface {
	UserStore
	KnowledgeBaseStore
	DocumentStore
	ChunkSearcher
	ChatbotStore
	DomainStore
	MessageStore

	Close() error
}

// ObjectClient abstracts S3 compatible blob storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, size int64, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
