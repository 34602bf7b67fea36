package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/botdesk/internal/models"
)

// Ingestor is what the HTTP layer needs from the pipeline.
type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Submit(ctx context.Context, up Upload) (*models.Document, error)
	SubmitBatch(ctx context.Context, uploads []Upload) (*Batch, error)
	CancelBatch(ownerID, batchID string) bool
	Reprocess(ctx context.Context, docID, ownerID string) (*models.Document, error)
	ProcessOne(ctx context.Context, docID string) error
}

// Upload is one raw file handed to the pipeline.
type Upload struct {
	OwnerID         string
	KnowledgeBaseID *string
	FileName        string
	ContentType     string
	Data            []byte
}

var _ Ingestor = (*DocumentIngestor)(nil)
