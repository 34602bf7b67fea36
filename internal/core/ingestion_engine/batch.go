package ingestion_engine

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/models"
)

// Batch is the result of storing several uploads at once. Processing keeps
// running in the background until it finishes or CancelBatch is called.
type Batch struct {
	ID        string            `json:"batch_id"`
	Documents []models.Document `json:"documents"`
	// Errors maps file name to the reason it was not stored.
	Errors map[string]string `json:"errors,omitempty"`
}

type batchHandle struct {
	owner  string
	cancel context.CancelFunc
}

// SubmitBatch stores every upload concurrently, then processes the stored
// documents under one cancellable context. A file that fails to store does
// not stop the others.
func (i *DocumentIngestor) SubmitBatch(ctx context.Context, uploads []Upload) (*Batch, error) {
	docs := make([]*models.Document, len(uploads))
	errs := make([]error, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.BatchParallelism)
	for idx, up := range uploads {
		g.Go(func() error {
			docs[idx], errs[idx] = i.store(gctx, up)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &Batch{ID: uuid.NewString()}
	var ids []string
	for idx, d := range docs {
		if errs[idx] != nil {
			if batch.Errors == nil {
				batch.Errors = make(map[string]string)
			}
			batch.Errors[uploads[idx].FileName] = errs[idx].Error()
			continue
		}
		batch.Documents = append(batch.Documents, *d)
		ids = append(ids, d.ID)
	}
	if len(ids) == 0 {
		return batch, nil
	}

	batchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	i.mu.Lock()
	i.batches[batch.ID] = batchHandle{owner: uploads[0].OwnerID, cancel: cancel}
	i.mu.Unlock()

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		defer i.forgetBatch(batch.ID)
		i.processBatch(batchCtx, batch.ID, ids)
	}()

	return batch, nil
}

func (i *DocumentIngestor) processBatch(ctx context.Context, batchID string, ids []string) {
	log := logger.FromContext(ctx).WithField("batch_id", batchID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.BatchParallelism)
	for _, id := range ids {
		g.Go(func() error {
			if err := i.ProcessOne(gctx, id); err != nil {
				log.WithField("document_id", id).WithError(err).Warn("batch document failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		log.Info("batch cancelled")
		return
	}
	log.WithField("documents", len(ids)).Info("batch finished")
}

// CancelBatch aborts every outstanding document of the owner's batch. Chunks
// already written stay until the document is reprocessed. Finished batches
// are forgotten and report false.
func (i *DocumentIngestor) CancelBatch(ownerID, batchID string) bool {
	i.mu.Lock()
	h, ok := i.batches[batchID]
	i.mu.Unlock()
	if !ok || h.owner != ownerID {
		return false
	}
	h.cancel()
	return true
}

func (i *DocumentIngestor) forgetBatch(batchID string) {
	i.mu.Lock()
	h, ok := i.batches[batchID]
	delete(i.batches, batchID)
	i.mu.Unlock()
	if ok {
		h.cancel()
	}
}
