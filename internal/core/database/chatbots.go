package db

import (
	"context"
	"fmt"

	"github.com/markdave123-py/botdesk/internal/models"
)

const chatbotColumns = `id, owner_id, name, status, knowledge_base_id, configuration, created_at, updated_at`

func scanChatbot(s interface{ Scan(...any) error }, b *models.Chatbot) error {
	var raw []byte
	if err := s.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Status, &b.KnowledgeBaseID, &raw, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	cfg, err := models.UnmarshalChatbotConfig(raw)
	if err != nil {
		return fmt.Errorf("decode configuration for chatbot %s: %w", b.ID, err)
	}
	b.Config = cfg
	return nil
}

func (c *DatabaseClient) CreateChatbot(ctx context.Context, bot *models.Chatbot) error {
	raw, err := bot.Config.MarshalColumn()
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO chatbots (id, owner_id, name, status, knowledge_base_id, configuration)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err = c.db.QueryRowContext(ctx, q, bot.ID, bot.OwnerID, bot.Name, bot.Status, bot.KnowledgeBaseID, raw).
		Scan(&bot.CreatedAt, &bot.UpdatedAt)
	return storageErr("create chatbot", err)
}

func (c *DatabaseClient) GetChatbot(ctx context.Context, id string) (*models.Chatbot, error) {
	q := `SELECT ` + chatbotColumns + ` FROM chatbots WHERE id = $1`
	var b models.Chatbot
	if err := scanChatbot(c.db.QueryRowContext(ctx, q, id), &b); err != nil {
		return nil, readErr("chatbot", err)
	}
	return &b, nil
}

func (c *DatabaseClient) ListChatbots(ctx context.Context, ownerID string) ([]models.Chatbot, error) {
	q := `SELECT ` + chatbotColumns + ` FROM chatbots WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chatbot
	for rows.Next() {
		var b models.Chatbot
		if err := scanChatbot(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateChatbot(ctx context.Context, bot *models.Chatbot) error {
	raw, err := bot.Config.MarshalColumn()
	if err != nil {
		return err
	}
	const q = `
		UPDATE chatbots
		SET name = $3, status = $4, knowledge_base_id = $5, configuration = $6, updated_at = now()
		WHERE id = $1 AND owner_id = $2
	`
	res, err := c.db.ExecContext(ctx, q, bot.ID, bot.OwnerID, bot.Name, bot.Status, bot.KnowledgeBaseID, raw)
	return affectedOne("chatbot", res, err)
}

func (c *DatabaseClient) DeleteChatbot(ctx context.Context, id, ownerID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM chatbots WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return affectedOne("chatbot", res, err)
}

// Domains

const domainColumns = `id, chatbot_id, domain, token, is_active, created_at, updated_at`

func scanDomain(s interface{ Scan(...any) error }, d *models.ChatbotDomain) error {
	return s.Scan(&d.ID, &d.ChatbotID, &d.Domain, &d.Token, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
}

func (c *DatabaseClient) CreateChatbotDomain(ctx context.Context, d *models.ChatbotDomain) error {
	const q = `
		INSERT INTO chatbot_domains (id, chatbot_id, domain, token, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, q, d.ID, d.ChatbotID, d.Domain, d.Token, d.IsActive).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	return storageErr("create domain", err)
}

func (c *DatabaseClient) ListChatbotDomains(ctx context.Context, chatbotID string) ([]models.ChatbotDomain, error) {
	q := `SELECT ` + domainColumns + ` FROM chatbot_domains WHERE chatbot_id = $1 ORDER BY created_at ASC`
	rows, err := c.db.QueryContext(ctx, q, chatbotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatbotDomain
	for rows.Next() {
		var d models.ChatbotDomain
		if err := scanDomain(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetChatbotDomain(ctx context.Context, id string) (*models.ChatbotDomain, error) {
	q := `SELECT ` + domainColumns + ` FROM chatbot_domains WHERE id = $1`
	var d models.ChatbotDomain
	if err := scanDomain(c.db.QueryRowContext(ctx, q, id), &d); err != nil {
		return nil, readErr("domain", err)
	}
	return &d, nil
}

func (c *DatabaseClient) FindActiveChatbotDomain(ctx context.Context, chatbotID, domain, token string) (*models.ChatbotDomain, error) {
	q := `SELECT ` + domainColumns + `
		FROM chatbot_domains
		WHERE chatbot_id = $1 AND domain = $2 AND token = $3 AND is_active = true`
	var d models.ChatbotDomain
	if err := scanDomain(c.db.QueryRowContext(ctx, q, chatbotID, domain, token), &d); err != nil {
		return nil, readErr("domain", err)
	}
	return &d, nil
}

func (c *DatabaseClient) RegenerateDomainToken(ctx context.Context, id, token string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE chatbot_domains SET token = $2, updated_at = now() WHERE id = $1`, id, token)
	return affectedOne("domain", res, err)
}

func (c *DatabaseClient) SetChatbotDomainActive(ctx context.Context, id string, active bool) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE chatbot_domains SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	return affectedOne("domain", res, err)
}

func (c *DatabaseClient) DeleteChatbotDomain(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM chatbot_domains WHERE id = $1`, id)
	return affectedOne("domain", res, err)
}
