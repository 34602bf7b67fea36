package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/models"
)

type KnowledgeBaseService struct {
	kbs core.KnowledgeBaseStore
}

func NewKnowledgeBaseService(kbs core.KnowledgeBaseStore) *KnowledgeBaseService {
	return &KnowledgeBaseService{kbs: kbs}
}

func (s *KnowledgeBaseService) Create(ctx context.Context, ownerID, name, description string) (*models.KnowledgeBase, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("knowledge base name is required: %w", core.ErrValidation)
	}
	kb := &models.KnowledgeBase{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now(),
	}
	if err := s.kbs.CreateKnowledgeBase(ctx, kb); err != nil {
		return nil, err
	}
	return kb, nil
}

// Get returns the knowledge base only if ownerID owns it.
func (s *KnowledgeBaseService) Get(ctx context.Context, id, ownerID string) (*models.KnowledgeBase, error) {
	kb, err := s.kbs.GetKnowledgeBase(ctx, id)
	if err != nil {
		return nil, err
	}
	if kb.OwnerID != ownerID {
		return nil, fmt.Errorf("knowledge base %s: %w", id, core.ErrNotFound)
	}
	return kb, nil
}

func (s *KnowledgeBaseService) List(ctx context.Context, ownerID string) ([]models.KnowledgeBase, error) {
	return s.kbs.ListKnowledgeBases(ctx, ownerID)
}

func (s *KnowledgeBaseService) Delete(ctx context.Context, id, ownerID string) error {
	return s.kbs.DeleteKnowledgeBase(ctx, id, ownerID)
}

// checkOwned validates an optional knowledge base reference.
func (s *KnowledgeBaseService) checkOwned(ctx context.Context, id *string, ownerID string) error {
	if id == nil || *id == "" {
		return nil
	}
	_, err := s.Get(ctx, *id, ownerID)
	return err
}
