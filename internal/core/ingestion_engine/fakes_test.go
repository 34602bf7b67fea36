package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/models"
)

type fakeDocStore struct {
	mu       sync.Mutex
	docs     map[string]*models.Document
	chunks   map[string][]models.DocumentChunk
	history  map[string][]models.DocumentStatus
	insertFn func(chunk *models.DocumentChunk) error
	deletes  int
	createFn func(doc *models.Document) error
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		docs:    map[string]*models.Document{},
		chunks:  map[string][]models.DocumentChunk{},
		history: map[string][]models.DocumentStatus{},
	}
}

func (s *fakeDocStore) CreateDocument(_ context.Context, doc *models.Document) error {
	if s.createFn != nil {
		if err := s.createFn(doc); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[doc.ID] = &cp
	s.history[doc.ID] = append(s.history[doc.ID], doc.Status)
	return nil
}

func (s *fakeDocStore) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document: %w", core.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *fakeDocStore) ListDocumentsByUser(_ context.Context, userID string) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Document
	for _, d := range s.docs {
		if d.OwnerID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeDocStore) ListDocumentsByStatus(_ context.Context, status models.DocumentStatus) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Document
	for _, d := range s.docs {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeDocStore) UpdateDocumentStatus(_ context.Context, id string, status models.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return core.ErrNotFound
	}
	d.Status = status
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *fakeDocStore) MarkDocumentProcessed(ctx context.Context, id string) error {
	return s.UpdateDocumentStatus(ctx, id, models.DocumentProcessed)
}

func (s *fakeDocStore) DeleteDocument(_ context.Context, id, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

func (s *fakeDocStore) InsertDocumentChunk(_ context.Context, ch *models.DocumentChunk) error {
	if s.insertFn != nil {
		if err := s.insertFn(ch); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[ch.DocumentID] = append(s.chunks[ch.DocumentID], *ch)
	return nil
}

func (s *fakeDocStore) DeleteChunksByDocument(_ context.Context, documentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	n := int64(len(s.chunks[documentID]))
	delete(s.chunks, documentID)
	return n, nil
}

func (s *fakeDocStore) GetChunksByDocument(_ context.Context, documentID string) ([]models.DocumentChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DocumentChunk(nil), s.chunks[documentID]...), nil
}

func (s *fakeDocStore) status(id string) models.DocumentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[id]; ok {
		return d.Status
	}
	return ""
}

type fakeObjects struct {
	mu        sync.Mutex
	files     map[string][]byte
	uploadErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{files: map[string][]byte{}}
}

func (o *fakeObjects) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ int64, _ string) (string, error) {
	if o.uploadErr != nil {
		return "", o.uploadErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[bucket+"/"+key] = b
	return "mem://" + bucket + "/" + key, nil
}

func (o *fakeObjects) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.files[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("missing %s: %w", key, core.ErrStorage)
	}
	return bytes.Clone(b), nil
}

func (o *fakeObjects) DeleteFile(_ context.Context, bucket, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.files, bucket+"/"+key)
	return nil
}

// fakeEmbedder records call order and can fail on the nth call (1-based).
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  []string
	failAt int
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if e.failAt > 0 && len(e.calls) == e.failAt {
		return nil, fmt.Errorf("embed: %w", core.ErrUpstream)
	}
	return []float32{float32(len(text)), 1}, nil
}

func (e *fakeEmbedder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fakePDF struct {
	pages   []string
	pageErr map[int]error
	panicAt int
}

func (p fakePDF) NumPage() int { return len(p.pages) }

func (p fakePDF) PageText(i int) (string, error) {
	if i == p.panicAt {
		panic("malformed content stream")
	}
	if err := p.pageErr[i]; err != nil {
		return "", err
	}
	return p.pages[i-1], nil
}
