package ingestion_engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/models"
)

type pipelineFixture struct {
	store    *fakeDocStore
	objects  *fakeObjects
	embedder *fakeEmbedder
	ing      *DocumentIngestor
}

func newFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		store:    newFakeDocStore(),
		objects:  newFakeObjects(),
		embedder: &fakeEmbedder{},
	}
	f.ing = NewDocumentIngestor(f.store, f.objects, f.embedder, NewDocumentExtractor(), nil, IngestConfig{Bucket: "documents"})
	f.ing.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return f
}

func textUpload(owner string, n int) Upload {
	return Upload{
		OwnerID:     owner,
		FileName:    "faq.txt",
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(wordsText(n)),
	}
}

func TestSubmit_StoresAndQueues(t *testing.T) {
	f := newFixture(t)

	doc, err := f.ing.Submit(context.Background(), textUpload("owner-1", 2000))
	require.NoError(t, err)

	assert.Equal(t, models.DocumentProcessing, doc.Status)
	assert.Equal(t, "owner-1/1700000000123-"+doc.ID+".txt", doc.StorageKey)
	assert.Equal(t, "text/plain", doc.ContentType)
	assert.Equal(t, int64(2000), doc.SizeBytes)
	assert.Contains(t, f.objects.files, "documents/"+doc.StorageKey)

	select {
	case id := <-f.ing.jobs:
		assert.Equal(t, doc.ID, id)
	default:
		t.Fatal("document was not queued")
	}
}

func TestSubmit_UploadFailureCreatesNoRow(t *testing.T) {
	f := newFixture(t)
	f.objects.uploadErr = errors.New("connection reset")

	_, err := f.ing.Submit(context.Background(), textUpload("owner-1", 2000))
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.Empty(t, f.store.docs)
}

func TestSubmit_RejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)

	_, err := f.ing.Submit(context.Background(), Upload{OwnerID: "o", FileName: "a.png", ContentType: "image/png", Data: []byte{1}})
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.Empty(t, f.objects.files)
}

func TestProcessOne_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.ing.Submit(ctx, textUpload("owner-1", 2000))
	require.NoError(t, err)

	require.NoError(t, f.ing.ProcessOne(ctx, doc.ID))

	assert.Equal(t, models.DocumentProcessed, f.store.status(doc.ID))
	chunks, _ := f.store.GetChunksByDocument(ctx, doc.ID)
	require.Len(t, chunks, 4)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, f.embedder.calls[i], ch.Content)
	}
	assert.Equal(t, 4, f.embedder.count())
}

func TestProcessOne_EmbedFailureKeepsEarlierChunksAndFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.embedder.failAt = 3

	doc, err := f.ing.Submit(ctx, textUpload("owner-1", 2000))
	require.NoError(t, err)

	err = f.ing.ProcessOne(ctx, doc.ID)
	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.Equal(t, models.DocumentFailed, f.store.status(doc.ID))

	chunks, _ := f.store.GetChunksByDocument(ctx, doc.ID)
	assert.Len(t, chunks, 2)
	assert.Equal(t, 3, f.embedder.count(), "no chunk after the failing one is embedded")
}

func TestReprocess_ClearsPartialChunks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.embedder.failAt = 2

	doc, err := f.ing.Submit(ctx, textUpload("owner-1", 2000))
	require.NoError(t, err)
	<-f.ing.jobs
	require.Error(t, f.ing.ProcessOne(ctx, doc.ID))

	f.embedder.failAt = 0
	_, err = f.ing.Reprocess(ctx, doc.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, <-f.ing.jobs)

	require.NoError(t, f.ing.ProcessOne(ctx, doc.ID))
	chunks, _ := f.store.GetChunksByDocument(ctx, doc.ID)
	assert.Len(t, chunks, 4)
	assert.Equal(t, models.DocumentProcessed, f.store.status(doc.ID))
}

func TestReprocess_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.ing.Submit(ctx, textUpload("owner-1", 2000))
	require.NoError(t, err)

	_, err = f.ing.Reprocess(ctx, doc.ID, "someone-else")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.ing.Reprocess(ctx, doc.ID, "owner-1")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRecover_RequeuesInterruptedDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.ing.Submit(ctx, textUpload("owner-1", 2000))
	require.NoError(t, err)
	done, err := f.ing.Submit(ctx, textUpload("owner-1", 2000))
	require.NoError(t, err)
	require.NoError(t, f.store.MarkDocumentProcessed(ctx, done.ID))

	// a new process on the same store starts with an empty queue
	restarted := NewDocumentIngestor(f.store, f.objects, f.embedder, NewDocumentExtractor(), nil, IngestConfig{Bucket: "documents"})
	n, err := restarted.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, doc.ID, <-restarted.jobs)
	assert.Empty(t, restarted.jobs)

	require.NoError(t, restarted.ProcessOne(ctx, doc.ID))
	assert.Equal(t, models.DocumentProcessed, f.store.status(doc.ID))
}

func TestProcessOne_ExtractionFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.ing.Submit(ctx, Upload{OwnerID: "o", FileName: "blank.txt", ContentType: "text/plain", Data: []byte("   ")})
	require.NoError(t, err)

	err = f.ing.ProcessOne(ctx, doc.ID)
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.Equal(t, []models.DocumentStatus{models.DocumentProcessing, models.DocumentFailed}, f.store.history[doc.ID])
}

func TestProcessOne_CancelledContextStillMarksFailed(t *testing.T) {
	f := newFixture(t)

	doc, err := f.ing.Submit(context.Background(), textUpload("owner-1", 2000))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	f.store.insertFn = func(*models.DocumentChunk) error {
		cancel()
		return nil
	}

	err = f.ing.ProcessOne(ctx, doc.ID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.DocumentFailed, f.store.status(doc.ID))
	assert.Equal(t, 1, f.embedder.count())
}

func TestWorkers_DrainQueue(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.ing.Start(ctx, 2)
	doc, err := f.ing.Submit(ctx, textUpload("owner-1", 2000))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return f.store.status(doc.ID) == models.DocumentProcessed
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	f.ing.Wait()
}

func TestSubmitBatch_PartialFailureAndProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kb := "kb-1"

	ups := []Upload{
		{OwnerID: "o", KnowledgeBaseID: &kb, FileName: "a.txt", ContentType: "text/plain", Data: []byte(wordsText(1000))},
		{OwnerID: "o", KnowledgeBaseID: &kb, FileName: "b.exe", ContentType: "application/octet-stream", Data: []byte{1}},
	}
	batch, err := f.ing.SubmitBatch(ctx, ups)
	require.NoError(t, err)
	require.Len(t, batch.Documents, 1)
	assert.Contains(t, batch.Errors, "b.exe")
	assert.Equal(t, &kb, batch.Documents[0].KnowledgeBaseID)

	f.ing.Wait()
	assert.Equal(t, models.DocumentProcessed, f.store.status(batch.Documents[0].ID))
	assert.False(t, f.ing.CancelBatch("o", batch.ID), "finished batches are forgotten")
	assert.Empty(t, f.ing.batches)
}

func TestSubmitBatch_SameMillisecondKeepsFilesApart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := strings.Repeat("Alpha apples are tasty. ", 20)
	bravo := strings.Repeat("Bravo bananas are ripe. ", 20)

	batch, err := f.ing.SubmitBatch(ctx, []Upload{
		{OwnerID: "o", FileName: "a.txt", ContentType: "text/plain", Data: []byte(alpha)},
		{OwnerID: "o", FileName: "b.txt", ContentType: "text/plain", Data: []byte(bravo)},
	})
	require.NoError(t, err)
	require.Len(t, batch.Documents, 2)
	f.ing.Wait()

	keys := map[string]bool{}
	for _, d := range batch.Documents {
		keys[d.StorageKey] = true
		assert.True(t, strings.HasPrefix(d.StorageKey, "o/1700000000123-"))

		chunks, _ := f.store.GetChunksByDocument(ctx, d.ID)
		require.NotEmpty(t, chunks, d.FileName)
		want := "Alpha"
		if d.FileName == "b.txt" {
			want = "Bravo"
		}
		for _, ch := range chunks {
			assert.True(t, strings.HasPrefix(ch.Content, want), "%s chunk %q", d.FileName, ch.Content)
		}
	}
	assert.Len(t, keys, 2)
	assert.Len(t, f.objects.files, 2)
}

func TestCancelBatch_AbortsOutstandingDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	f.store.insertFn = func(*models.DocumentChunk) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}

	batch, err := f.ing.SubmitBatch(ctx, []Upload{textUpload("o", 2000)})
	require.NoError(t, err)

	<-started
	assert.False(t, f.ing.CancelBatch("someone-else", batch.ID))
	assert.True(t, f.ing.CancelBatch("o", batch.ID))
	close(release)
	f.ing.Wait()

	assert.Equal(t, models.DocumentFailed, f.store.status(batch.Documents[0].ID))
}

func TestStorageKey_ExtensionFromMediaType(t *testing.T) {
	f := newFixture(t)
	key := f.ing.storageKey(Upload{OwnerID: "o", FileName: "report", ContentType: "application/pdf"}, "doc-1")
	assert.True(t, strings.HasSuffix(key, "-doc-1.pdf"))
	assert.True(t, strings.HasPrefix(key, "o/"))
}
