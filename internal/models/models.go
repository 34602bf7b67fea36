package models

import (
	"time"
)

// User represents an authenticated dashboard owner.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// KnowledgeBase groups documents a chatbot may draw on.
type KnowledgeBase struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentProcessed  DocumentStatus = "processed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document represents an uploaded file. Only the ingestion pipeline changes
// its status.
type Document struct {
	ID              string         `db:"id" json:"id"`
	OwnerID         string         `db:"owner_id" json:"owner_id"`
	KnowledgeBaseID *string        `db:"knowledge_base_id" json:"knowledge_base_id,omitempty"`
	FileName        string         `db:"file_name" json:"file_name"`
	StorageKey      string         `db:"storage_key" json:"storage_key"`
	SizeBytes       int64          `db:"size_bytes" json:"size_bytes"`
	ContentType     string         `db:"content_type" json:"content_type"`
	Status          DocumentStatus `db:"status" json:"status"`
	ProcessedAt     *time.Time     `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// DocumentChunk is one overlapping slice of a document's text.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"`
	Content    string    `db:"content" json:"content"`
	Embedding  []float32 `db:"embedding" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MatchedChunk is a retrieval hit.
type MatchedChunk struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

type ChatbotStatus string

const (
	ChatbotActive   ChatbotStatus = "active"
	ChatbotInactive ChatbotStatus = "inactive"
	ChatbotTraining ChatbotStatus = "training"
)

func (s ChatbotStatus) Valid() bool {
	switch s {
	case ChatbotActive, ChatbotInactive, ChatbotTraining:
		return true
	}
	return false
}

type Chatbot struct {
	ID              string        `db:"id" json:"id"`
	OwnerID         string        `db:"owner_id" json:"owner_id"`
	Name            string        `db:"name" json:"name"`
	Status          ChatbotStatus `db:"status" json:"status"`
	KnowledgeBaseID *string       `db:"knowledge_base_id" json:"knowledge_base_id,omitempty"`
	Config          ChatbotConfig `db:"configuration" json:"configuration"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// HasKnowledgeBase reports whether retrieval applies to this chatbot.
func (c *Chatbot) HasKnowledgeBase() bool {
	return c.KnowledgeBaseID != nil && *c.KnowledgeBaseID != ""
}

// ChatbotDomain is one allow-list entry for embedded use.
type ChatbotDomain struct {
	ID        string    `db:"id" json:"id"`
	ChatbotID string    `db:"chatbot_id" json:"chatbot_id"`
	Domain    string    `db:"domain" json:"domain"`
	Token     string    `db:"token" json:"token"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ConversationMessage is append-only.
type ConversationMessage struct {
	ID        string      `db:"id" json:"id"`
	ChatbotID string      `db:"chatbot_id" json:"chatbot_id"`
	SessionID string      `db:"session_id" json:"session_id"`
	Role      MessageRole `db:"role" json:"role"`
	Content   string      `db:"content" json:"content"`
	IPAddress string      `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent string      `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

type Sentiment string

const (
	SentimentHappy   Sentiment = "happy"
	SentimentNeutral Sentiment = "neutral"
	SentimentUnhappy Sentiment = "unhappy"
)

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentHappy, SentimentNeutral, SentimentUnhappy:
		return true
	}
	return false
}

// UserInteraction is a point-in-time snapshot of sentiment and optional
// contact details.
type UserInteraction struct {
	ID         string    `db:"id" json:"id"`
	ChatbotID  string    `db:"chatbot_id" json:"chatbot_id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Sentiment  Sentiment `db:"sentiment" json:"sentiment,omitempty"`
	Confidence float64   `db:"confidence" json:"confidence,omitempty"`
	Escalated  bool      `db:"escalated" json:"escalated"`
	Name       string    `db:"name" json:"name,omitempty"`
	Email      string    `db:"email" json:"email,omitempty"`
	Phone      string    `db:"phone" json:"phone,omitempty"`
	Transcript string    `db:"transcript" json:"transcript,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
