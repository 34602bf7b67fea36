package db

import (
	"context"
	"database/sql"

	"github.com/markdave123-py/botdesk/internal/models"
)

// AddSessionMessage goes through the add_session_message function, which
// upserts the conversation row for the session before appending.
func (c *DatabaseClient) AddSessionMessage(ctx context.Context, msg *models.ConversationMessage) error {
	const q = `SELECT add_session_message($1, $2, $3, $4, $5, $6)`
	err := c.db.QueryRowContext(ctx, q,
		msg.ChatbotID, msg.SessionID, msg.Content, msg.Role,
		nullString(msg.IPAddress), nullString(msg.UserAgent),
	).Scan(&msg.ID)
	return storageErr("add session message", err)
}

func (c *DatabaseClient) ListSessionMessages(ctx context.Context, chatbotID, sessionID string) ([]models.ConversationMessage, error) {
	const q = `
		SELECT m.id, cv.chatbot_id, cv.session_id, m.role, m.content,
		       COALESCE(cv.ip_address, ''), COALESCE(cv.user_agent, ''), m.created_at
		FROM messages m
		JOIN conversations cv ON cv.id = m.conversation_id
		WHERE cv.chatbot_id = $1 AND cv.session_id = $2
		ORDER BY m.created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, chatbotID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ConversationMessage
	for rows.Next() {
		var m models.ConversationMessage
		if err := rows.Scan(&m.ID, &m.ChatbotID, &m.SessionID, &m.Role, &m.Content, &m.IPAddress, &m.UserAgent, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CreateUserInteraction(ctx context.Context, in *models.UserInteraction) error {
	const q = `
		INSERT INTO user_interactions
			(id, chatbot_id, session_id, sentiment, confidence, escalated, name, email, phone, transcript)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := c.db.QueryRowContext(ctx, q,
		in.ID, in.ChatbotID, in.SessionID, nullString(string(in.Sentiment)), in.Confidence, in.Escalated,
		nullString(in.Name), nullString(in.Email), nullString(in.Phone), nullString(in.Transcript),
	).Scan(&in.CreatedAt)
	return storageErr("create interaction", err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
