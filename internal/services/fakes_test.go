package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/core/ingestion_engine"
	"github.com/markdave123-py/botdesk/internal/models"
)

// memStore is an in-memory stand-in for the database client.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*models.User
	kbs          map[string]*models.KnowledgeBase
	bots         map[string]*models.Chatbot
	domains      map[string]*models.ChatbotDomain
	docs         map[string]*models.Document
	interactions []models.UserInteraction
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*models.User{},
		kbs:     map[string]*models.KnowledgeBase{},
		bots:    map[string]*models.Chatbot{},
		domains: map[string]*models.ChatbotDomain{},
		docs:    map[string]*models.Document{},
	}
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("user: %w", core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateKnowledgeBase(_ context.Context, kb *models.KnowledgeBase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *kb
	m.kbs[kb.ID] = &cp
	return nil
}

func (m *memStore) GetKnowledgeBase(_ context.Context, id string) (*models.KnowledgeBase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kb, ok := m.kbs[id]
	if !ok {
		return nil, fmt.Errorf("knowledge base: %w", core.ErrNotFound)
	}
	cp := *kb
	return &cp, nil
}

func (m *memStore) ListKnowledgeBases(_ context.Context, ownerID string) ([]models.KnowledgeBase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.KnowledgeBase
	for _, kb := range m.kbs {
		if kb.OwnerID == ownerID {
			out = append(out, *kb)
		}
	}
	return out, nil
}

func (m *memStore) DeleteKnowledgeBase(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kb, ok := m.kbs[id]
	if !ok || kb.OwnerID != ownerID {
		return fmt.Errorf("knowledge base: %w", core.ErrNotFound)
	}
	delete(m.kbs, id)
	return nil
}

func (m *memStore) CreateChatbot(_ context.Context, b *models.Chatbot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bots[b.ID] = &cp
	return nil
}

func (m *memStore) GetChatbot(_ context.Context, id string) (*models.Chatbot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bots[id]
	if !ok {
		return nil, fmt.Errorf("chatbot: %w", core.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) ListChatbots(_ context.Context, ownerID string) ([]models.Chatbot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Chatbot
	for _, b := range m.bots {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) UpdateChatbot(_ context.Context, b *models.Chatbot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bots[b.ID]; !ok {
		return fmt.Errorf("chatbot: %w", core.ErrNotFound)
	}
	cp := *b
	m.bots[b.ID] = &cp
	return nil
}

func (m *memStore) DeleteChatbot(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bots[id]
	if !ok || b.OwnerID != ownerID {
		return fmt.Errorf("chatbot: %w", core.ErrNotFound)
	}
	delete(m.bots, id)
	return nil
}

func (m *memStore) CreateChatbotDomain(_ context.Context, d *models.ChatbotDomain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.domains[d.ID] = &cp
	return nil
}

func (m *memStore) ListChatbotDomains(_ context.Context, chatbotID string) ([]models.ChatbotDomain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatbotDomain
	for _, d := range m.domains {
		if d.ChatbotID == chatbotID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) GetChatbotDomain(context.Context, string) (*models.ChatbotDomain, error) {
	return nil, core.ErrNotFound
}

func (m *memStore) FindActiveChatbotDomain(context.Context, string, string, string) (*models.ChatbotDomain, error) {
	return nil, core.ErrNotFound
}

func (m *memStore) RegenerateDomainToken(context.Context, string, string) error { return nil }
func (m *memStore) SetChatbotDomainActive(context.Context, string, bool) error { return nil }
func (m *memStore) DeleteChatbotDomain(context.Context, string) error { return nil }
func (m *memStore) AddSessionMessage(context.Context, *models.ConversationMessage) error { return nil }

func (m *memStore) ListSessionMessages(context.Context, string, string) ([]models.ConversationMessage, error) {
	return nil, nil
}

func (m *memStore) CreateUserInteraction(_ context.Context, in *models.UserInteraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions = append(m.interactions, *in)
	return nil
}

func (m *memStore) CreateDocument(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *memStore) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document: %w", core.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) ListDocumentsByUser(_ context.Context, ownerID string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for _, d := range m.docs {
		if d.OwnerID == ownerID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) ListDocumentsByStatus(context.Context, models.DocumentStatus) ([]models.Document, error) {
	return nil, nil
}

func (m *memStore) UpdateDocumentStatus(context.Context, string, models.DocumentStatus) error {
	return nil
}
func (m *memStore) MarkDocumentProcessed(context.Context, string) error { return nil }

func (m *memStore) DeleteDocument(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memStore) InsertDocumentChunk(context.Context, *models.DocumentChunk) error { return nil }
func (m *memStore) DeleteChunksByDocument(context.Context, string) (int64, error) { return 0, nil }
func (m *memStore) GetChunksByDocument(context.Context, string) ([]models.DocumentChunk, error) {
	return nil, nil
}

type fakeObjects struct {
	mu      sync.Mutex
	uploads map[string][]byte
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{uploads: map[string][]byte{}}
}

func (f *fakeObjects) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[bucket+"/"+key] = b
	return "https://blobs.example.com/" + bucket + "/" + key, nil
}

func (f *fakeObjects) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.uploads[bucket+"/"+key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return b, nil
}

func (f *fakeObjects) DeleteFile(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, bucket+"/"+key)
	return nil
}

type fakeIngestor struct {
	submitted []ingestion_engine.Upload
	batch     *ingestion_engine.Batch
	owners    map[string]string
	cancelled []string
}

func (f *fakeIngestor) Start(context.Context, int) {}

func (f *fakeIngestor) Submit(_ context.Context, up ingestion_engine.Upload) (*models.Document, error) {
	f.submitted = append(f.submitted, up)
	return &models.Document{ID: "doc-1", OwnerID: up.OwnerID, Status: models.DocumentProcessing}, nil
}

func (f *fakeIngestor) SubmitBatch(_ context.Context, ups []ingestion_engine.Upload) (*ingestion_engine.Batch, error) {
	f.submitted = append(f.submitted, ups...)
	if f.batch != nil && len(ups) > 0 {
		if f.owners == nil {
			f.owners = map[string]string{}
		}
		f.owners[f.batch.ID] = ups[0].OwnerID
	}
	return f.batch, nil
}

// finish mimics a batch completing on its own.
func (f *fakeIngestor) finish(id string) { delete(f.owners, id) }

func (f *fakeIngestor) CancelBatch(ownerID, id string) bool {
	owner, ok := f.owners[id]
	if !ok || owner != ownerID {
		return false
	}
	delete(f.owners, id)
	f.cancelled = append(f.cancelled, id)
	return true
}

func (f *fakeIngestor) Reprocess(context.Context, string, string) (*models.Document, error) {
	return nil, nil
}

func (f *fakeIngestor) ProcessOne(context.Context, string) error { return nil }
