package services

import (
	"context"
	"fmt"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/core/ingestion_engine"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/models"
)

type DocumentService struct {
	db       core.DocumentStore
	storage  core.ObjectClient
	bucket   string
	ingestor ingestion_engine.Ingestor
	kbs      *KnowledgeBaseService
}

func NewDocumentService(
	db core.DocumentStore,
	storage core.ObjectClient,
	bucket string,
	ingestor ingestion_engine.Ingestor,
	kbs *KnowledgeBaseService,
) *DocumentService {
	return &DocumentService{
		db:       db,
		storage:  storage,
		bucket:   bucket,
		ingestor: ingestor,
		kbs:      kbs,
	}
}

// Upload stores one file and hands it to the ingestion workers.
func (s *DocumentService) Upload(ctx context.Context, up ingestion_engine.Upload) (*models.Document, error) {
	if err := s.kbs.checkOwned(ctx, up.KnowledgeBaseID, up.OwnerID); err != nil {
		return nil, err
	}
	return s.ingestor.Submit(ctx, up)
}

// UploadBatch stores several files for one knowledge base.
func (s *DocumentService) UploadBatch(ctx context.Context, ownerID, kbID string, uploads []ingestion_engine.Upload) (*ingestion_engine.Batch, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("no files: %w", core.ErrValidation)
	}
	if err := s.kbs.checkOwned(ctx, &kbID, ownerID); err != nil {
		return nil, err
	}
	for idx := range uploads {
		uploads[idx].OwnerID = ownerID
		uploads[idx].KnowledgeBaseID = &kbID
	}

	return s.ingestor.SubmitBatch(ctx, uploads)
}

// CancelBatch aborts an owner's in-flight batch. Another owner's batch and a
// finished one are both not found.
func (s *DocumentService) CancelBatch(ownerID, batchID string) error {
	if !s.ingestor.CancelBatch(ownerID, batchID) {
		return fmt.Errorf("batch %s: %w", batchID, core.ErrNotFound)
	}
	return nil
}

func (s *DocumentService) Get(ctx context.Context, id, ownerID string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	return doc, nil
}

func (s *DocumentService) ListByUser(ctx context.Context, ownerID string) ([]models.Document, error) {
	return s.db.ListDocumentsByUser(ctx, ownerID)
}

// Delete removes the row (chunks cascade) and then the blob. A blob that
// cannot be removed is logged and left behind.
func (s *DocumentService) Delete(ctx context.Context, id, ownerID string) error {
	doc, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.db.DeleteDocument(ctx, id, ownerID); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := s.storage.DeleteFile(ctx, s.bucket, doc.StorageKey); err != nil {
			logger.FromContext(ctx).WithField("document_id", id).WithError(err).Warn("document blob not removed")
		}
	}
	return nil
}

func (s *DocumentService) Reprocess(ctx context.Context, id, ownerID string) (*models.Document, error) {
	return s.ingestor.Reprocess(ctx, id, ownerID)
}

// Chunks lists the stored chunks of an owned document.
func (s *DocumentService) Chunks(ctx context.Context, id, ownerID string) ([]models.DocumentChunk, error) {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return nil, err
	}
	return s.db.GetChunksByDocument(ctx, id)
}
