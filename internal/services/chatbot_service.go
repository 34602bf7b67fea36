package services

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/embedscript"
	"github.com/markdave123-py/botdesk/internal/models"
)

const maxLogoBytes = 2 << 20

type ChatbotService struct {
	bots     core.ChatbotStore
	domains  core.DomainStore
	messages core.MessageStore
	storage  core.ObjectClient
	kbs      *KnowledgeBaseService

	logosBucket string
	baseURL     string
}

func NewChatbotService(
	bots core.ChatbotStore,
	domains core.DomainStore,
	messages core.MessageStore,
	storage core.ObjectClient,
	kbs *KnowledgeBaseService,
	logosBucket, baseURL string,
) *ChatbotService {
	return &ChatbotService{
		bots:        bots,
		domains:     domains,
		messages:    messages,
		storage:     storage,
		kbs:         kbs,
		logosBucket: logosBucket,
		baseURL:     baseURL,
	}
}

func (s *ChatbotService) Create(ctx context.Context, ownerID, name string, kbID *string) (*models.Chatbot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("chatbot name is required: %w", core.ErrValidation)
	}
	if err := s.kbs.checkOwned(ctx, kbID, ownerID); err != nil {
		return nil, err
	}
	now := time.Now()
	bot := &models.Chatbot{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Name:            name,
		Status:          models.ChatbotActive,
		KnowledgeBaseID: emptyToNil(kbID),
		Config:          models.DefaultChatbotConfig(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.bots.CreateChatbot(ctx, bot); err != nil {
		return nil, err
	}
	return bot, nil
}

func (s *ChatbotService) Get(ctx context.Context, id, ownerID string) (*models.Chatbot, error) {
	bot, err := s.bots.GetChatbot(ctx, id)
	if err != nil {
		return nil, err
	}
	if bot.OwnerID != ownerID {
		return nil, fmt.Errorf("chatbot %s: %w", id, core.ErrNotFound)
	}
	return bot, nil
}

// Public returns a chatbot for embedded visitors. Inactive chatbots are
// reported as missing.
func (s *ChatbotService) Public(ctx context.Context, id string) (*models.Chatbot, error) {
	bot, err := s.bots.GetChatbot(ctx, id)
	if err != nil {
		return nil, err
	}
	if bot.Status == models.ChatbotInactive {
		return nil, fmt.Errorf("chatbot %s is inactive: %w", id, core.ErrNotFound)
	}
	return bot, nil
}

func (s *ChatbotService) List(ctx context.Context, ownerID string) ([]models.Chatbot, error) {
	return s.bots.ListChatbots(ctx, ownerID)
}

// ChatbotUpdate carries the fields an owner may change. Nil means keep; an
// empty KnowledgeBaseID detaches the knowledge base.
type ChatbotUpdate struct {
	Name            *string               `json:"name"`
	Status          *models.ChatbotStatus `json:"status"`
	KnowledgeBaseID *string               `json:"knowledge_base_id"`
}

func (s *ChatbotService) Update(ctx context.Context, id, ownerID string, u ChatbotUpdate) (*models.Chatbot, error) {
	bot, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, fmt.Errorf("chatbot name is required: %w", core.ErrValidation)
		}
		bot.Name = name
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return nil, fmt.Errorf("unknown status %q: %w", *u.Status, core.ErrValidation)
		}
		bot.Status = *u.Status
	}
	if u.KnowledgeBaseID != nil {
		if err := s.kbs.checkOwned(ctx, u.KnowledgeBaseID, ownerID); err != nil {
			return nil, err
		}
		bot.KnowledgeBaseID = emptyToNil(u.KnowledgeBaseID)
	}
	return s.save(ctx, bot)
}

// PatchConfig merges a partial configuration document into the chatbot's.
func (s *ChatbotService) PatchConfig(ctx context.Context, id, ownerID string, raw []byte) (*models.Chatbot, error) {
	bot, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	cfg, err := bot.Config.Patch(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	bot.Config = cfg
	return s.save(ctx, bot)
}

func (s *ChatbotService) Delete(ctx context.Context, id, ownerID string) error {
	return s.bots.DeleteChatbot(ctx, id, ownerID)
}

// UploadLogo stores an avatar image under a random name and points the
// chatbot's configuration at it.
func (s *ChatbotService) UploadLogo(ctx context.Context, id, ownerID, contentType string, data []byte) (*models.Chatbot, error) {
	bot, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	ext, err := imageExtension(contentType)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data) > maxLogoBytes {
		return nil, fmt.Errorf("logo must be between 1 byte and %d bytes: %w", maxLogoBytes, core.ErrValidation)
	}

	key := uuid.NewString() + ext
	url, err := s.storage.UploadFile(ctx, s.logosBucket, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return nil, err
	}
	bot.Config.AvatarURL = url
	return s.save(ctx, bot)
}

// EmbedSnippet renders the loader for the chatbot. With domain security on,
// the snippet carries the token of the given (or first active) domain.
func (s *ChatbotService) EmbedSnippet(ctx context.Context, id, ownerID, domainID string) (string, error) {
	bot, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return "", err
	}
	params := embedscript.SnippetParams{BaseURL: s.baseURL, ChatbotID: bot.ID}

	if bot.Config.DomainSecurity {
		domains, err := s.domains.ListChatbotDomains(ctx, bot.ID)
		if err != nil {
			return "", err
		}
		for _, d := range domains {
			if (domainID != "" && d.ID == domainID) || (domainID == "" && d.IsActive) {
				params.Token, params.Domain = d.Token, d.Domain
				break
			}
		}
		if params.Token == "" {
			return "", fmt.Errorf("domain security is on but no matching domain is registered: %w", core.ErrValidation)
		}
	}
	return embedscript.RenderSnippet(params)
}

// ContactInfo is what the capture form submits.
type ContactInfo struct {
	SessionID  string `json:"session_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Transcript string `json:"-"`
}

func (s *ChatbotService) CaptureContact(ctx context.Context, bot *models.Chatbot, c ContactInfo) (*models.UserInteraction, error) {
	if strings.TrimSpace(c.Name+c.Email+c.Phone) == "" {
		return nil, fmt.Errorf("contact details are empty: %w", core.ErrValidation)
	}
	in := &models.UserInteraction{
		ID:         uuid.NewString(),
		ChatbotID:  bot.ID,
		SessionID:  c.SessionID,
		Name:       strings.TrimSpace(c.Name),
		Email:      strings.TrimSpace(c.Email),
		Phone:      strings.TrimSpace(c.Phone),
		Transcript: c.Transcript,
		CreatedAt:  time.Now(),
	}
	if err := s.messages.CreateUserInteraction(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *ChatbotService) save(ctx context.Context, bot *models.Chatbot) (*models.Chatbot, error) {
	bot.UpdatedAt = time.Now()
	if err := s.bots.UpdateChatbot(ctx, bot); err != nil {
		return nil, err
	}
	return bot, nil
}

func imageExtension(contentType string) (string, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("invalid content type: %w", core.ErrValidation)
	}
	switch mt {
	case "image/png":
		return ".png", nil
	case "image/jpeg":
		return ".jpg", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "image/svg+xml":
		return ".svg", nil
	}
	return "", fmt.Errorf("logo must be an image, got %s: %w", mt, core.ErrValidation)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
