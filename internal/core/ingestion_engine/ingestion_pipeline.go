package ingestion_engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/models"
)

// DocumentIngestor runs extraction, segmentation, embedding and persistence
// for uploaded documents.
//
// db:        documents and chunk rows.
// obj:       raw uploads.
// embedder:  one vector per chunk, one call at a time.
// jobs:      in-memory queue of document IDs.
// batches:   owner and cancel handle of in-flight batch uploads.
type DocumentIngestor struct {
	db        core.DocumentStore
	obj       core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	segmenter TextSegmenter
	cfg       IngestConfig
	jobs      chan string
	now       func() time.Time

	mu      sync.Mutex
	batches map[string]batchHandle
	wg      sync.WaitGroup
}

func NewDocumentIngestor(
	db core.DocumentStore,
	obj core.ObjectClient,
	emb core.EmbeddingProvider,
	extractor core.DocumentExtractor,
	segmenter TextSegmenter,
	cfg IngestConfig,
) *DocumentIngestor {
	cfg = cfg.withDefaults()
	if segmenter == nil {
		segmenter = NewSentenceWindowSegmenter()
	}
	return &DocumentIngestor{
		db:        db,
		obj:       obj,
		embedder:  emb,
		extractor: extractor,
		segmenter: segmenter,
		cfg:       cfg,
		jobs:      make(chan string, cfg.QueueSize),
		now:       time.Now,
		batches:   make(map[string]batchHandle),
	}
}

// Start launches numWorkers goroutines draining the queue until ctx is done.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = i.cfg.Workers
	}
	for w := 1; w <= numWorkers; w++ {
		i.wg.Add(1)
		go func(w int) {
			defer i.wg.Done()
			log := logger.L().WithField("worker", w)
			for {
				select {
				case <-ctx.Done():
					log.Debug("ingest worker shutting down")
					return
				case docID := <-i.jobs:
					if err := i.ProcessOne(ctx, docID); err != nil {
						log.WithField("document_id", docID).WithError(err).Error("document ingestion failed")
					}
				}
			}
		}(w)
	}
}

// Wait blocks until every worker and batch goroutine has returned.
func (i *DocumentIngestor) Wait() {
	i.wg.Wait()
}

// Enqueue schedules a document ID, blocking while the queue is full.
func (i *DocumentIngestor) Enqueue(ctx context.Context, docID string) error {
	select {
	case i.jobs <- docID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit stores the raw file, records the document as processing and queues
// it. The returned document is visible to callers before extraction starts.
func (i *DocumentIngestor) Submit(ctx context.Context, up Upload) (*models.Document, error) {
	doc, err := i.store(ctx, up)
	if err != nil {
		return nil, err
	}
	if err := i.Enqueue(ctx, doc.ID); err != nil {
		i.markFailed(ctx, doc.ID)
		return nil, fmt.Errorf("enqueue document %s: %w", doc.ID, err)
	}
	return doc, nil
}

// store uploads the blob then inserts the row. A failed upload leaves no row.
func (i *DocumentIngestor) store(ctx context.Context, up Upload) (*models.Document, error) {
	if !SupportedMediaType(up.ContentType) {
		return nil, fmt.Errorf("unsupported media type %q: %w", up.ContentType, core.ErrExtraction)
	}
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("empty file %q: %w", up.FileName, core.ErrExtraction)
	}

	id := uuid.NewString()
	key := i.storageKey(up, id)
	if _, err := i.obj.UploadFile(ctx, i.cfg.Bucket, key, bytes.NewReader(up.Data), int64(len(up.Data)), up.ContentType); err != nil {
		if errors.Is(err, core.ErrStorage) || errors.Is(err, core.ErrConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("upload %s: %w: %v", key, core.ErrStorage, err)
	}

	doc := &models.Document{
		ID:              id,
		OwnerID:         up.OwnerID,
		KnowledgeBaseID: up.KnowledgeBaseID,
		FileName:        up.FileName,
		StorageKey:      key,
		SizeBytes:       int64(len(up.Data)),
		ContentType:     baseMediaType(up.ContentType),
		Status:          models.DocumentProcessing,
	}
	if err := i.db.CreateDocument(ctx, doc); err != nil {
		if derr := i.obj.DeleteFile(context.WithoutCancel(ctx), i.cfg.Bucket, key); derr != nil {
			logger.FromContext(ctx).WithField("key", key).WithError(derr).Warn("orphaned upload")
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"document_id": doc.ID,
		"key":         key,
		"size":        doc.SizeBytes,
	}).Info("document stored")
	return doc, nil
}

// storageKey is {owner}/{unix millis}-{document id}.{ext}. The id keeps
// uploads stored in the same millisecond apart.
func (i *DocumentIngestor) storageKey(up Upload, docID string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(up.FileName)), ".")
	if ext == "" {
		ext = "txt"
		if baseMediaType(up.ContentType) == core.MediaTypePDF {
			ext = "pdf"
		}
	}
	return fmt.Sprintf("%s/%d-%s.%s", up.OwnerID, i.now().UnixMilli(), docID, ext)
}

// Recover re-queues documents left in processing by a previous run, whose
// queue did not survive the restart. Call it after Start and before new
// uploads are accepted; it blocks while the queue is full.
func (i *DocumentIngestor) Recover(ctx context.Context) (int, error) {
	docs, err := i.db.ListDocumentsByStatus(ctx, models.DocumentProcessing)
	if err != nil {
		return 0, fmt.Errorf("list interrupted documents: %w", err)
	}
	for n, d := range docs {
		if err := i.Enqueue(ctx, d.ID); err != nil {
			return n, err
		}
	}
	if len(docs) > 0 {
		logger.FromContext(ctx).WithField("documents", len(docs)).Info("re-queued interrupted documents")
	}
	return len(docs), nil
}

// Reprocess re-queues a document that is not currently processing.
func (i *DocumentIngestor) Reprocess(ctx context.Context, docID, ownerID string) (*models.Document, error) {
	doc, err := i.db.GetDocumentByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, fmt.Errorf("document %s: %w", docID, core.ErrNotFound)
	}
	if doc.Status == models.DocumentProcessing {
		return nil, fmt.Errorf("document %s is already processing: %w", docID, core.ErrValidation)
	}

	if err := i.db.UpdateDocumentStatus(ctx, docID, models.DocumentProcessing); err != nil {
		return nil, err
	}
	doc.Status = models.DocumentProcessing
	if err := i.Enqueue(ctx, docID); err != nil {
		i.markFailed(ctx, docID)
		return nil, err
	}
	return doc, nil
}

// ProcessOne fetches, extracts, segments, embeds and persists one document.
// Existing chunks are removed first so a retry never leaves a mix of old and
// new rows. Chunks are embedded and inserted strictly in order.
func (i *DocumentIngestor) ProcessOne(ctx context.Context, docID string) error {
	if i.cfg.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.cfg.ProcessTimeout)
		defer cancel()
	}
	log := logger.FromContext(ctx).WithField("document_id", docID)
	ctx = logger.WithContext(ctx, log)
	started := i.now()

	doc, err := i.db.GetDocumentByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	fail := func(stage string, err error) error {
		i.markFailed(ctx, docID)
		log.WithField("stage", stage).WithError(err).Warn("document marked failed")
		return fmt.Errorf("%s: %w", stage, err)
	}

	data, err := i.obj.GetFile(ctx, i.cfg.Bucket, doc.StorageKey)
	if err != nil {
		return fail("fetch", err)
	}

	if removed, err := i.db.DeleteChunksByDocument(ctx, docID); err != nil {
		return fail("reset chunks", err)
	} else if removed > 0 {
		log.WithField("removed", removed).Info("cleared chunks from previous attempt")
	}

	text, err := i.extractor.Extract(ctx, data, doc.ContentType, core.ExtractOptions{})
	if err != nil {
		return fail("extract", err)
	}

	segments := i.segmenter.Segment(text)
	if len(segments) == 0 {
		log.Warn("document produced no chunks")
	}

	for idx, seg := range segments {
		if err := ctx.Err(); err != nil {
			return fail("embed", err)
		}
		vec, err := i.embedder.Embed(ctx, seg)
		if err != nil {
			return fail(fmt.Sprintf("embed chunk %d", idx), err)
		}
		chunk := &models.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			ChunkIndex: idx,
			Content:    seg,
			Embedding:  vec,
		}
		if err := i.db.InsertDocumentChunk(ctx, chunk); err != nil {
			return fail(fmt.Sprintf("insert chunk %d", idx), err)
		}
	}

	if err := i.db.MarkDocumentProcessed(ctx, docID); err != nil {
		return fail("finalize", err)
	}

	log.WithFields(logrus.Fields{
		"chunks":   len(segments),
		"duration": i.now().Sub(started).String(),
	}).Info("document processed")
	return nil
}

// markFailed records the terminal status even when ctx is already cancelled.
func (i *DocumentIngestor) markFailed(ctx context.Context, docID string) {
	if err := i.db.UpdateDocumentStatus(context.WithoutCancel(ctx), docID, models.DocumentFailed); err != nil {
		logger.FromContext(ctx).WithField("document_id", docID).WithError(err).Error("could not mark document failed")
	}
}
