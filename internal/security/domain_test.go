package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/models"
)

type fakeDomains struct {
	rows    map[string]*models.ChatbotDomain
	findErr error
}

func newFakeDomains(rows ...models.ChatbotDomain) *fakeDomains {
	f := &fakeDomains{rows: map[string]*models.ChatbotDomain{}}
	for i := range rows {
		r := rows[i]
		f.rows[r.ID] = &r
	}
	return f
}

func (f *fakeDomains) CreateChatbotDomain(_ context.Context, d *models.ChatbotDomain) error {
	cp := *d
	f.rows[d.ID] = &cp
	return nil
}

func (f *fakeDomains) ListChatbotDomains(_ context.Context, chatbotID string) ([]models.ChatbotDomain, error) {
	var out []models.ChatbotDomain
	for _, r := range f.rows {
		if r.ChatbotID == chatbotID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeDomains) GetChatbotDomain(_ context.Context, id string) (*models.ChatbotDomain, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeDomains) FindActiveChatbotDomain(_ context.Context, chatbotID, domain, token string) (*models.ChatbotDomain, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, r := range f.rows {
		if r.ChatbotID == chatbotID && r.Domain == domain && r.Token == token && r.IsActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeDomains) RegenerateDomainToken(_ context.Context, id, token string) error {
	r, ok := f.rows[id]
	if !ok {
		return core.ErrNotFound
	}
	r.Token = token
	return nil
}

func (f *fakeDomains) SetChatbotDomainActive(_ context.Context, id string, active bool) error {
	r, ok := f.rows[id]
	if !ok {
		return core.ErrNotFound
	}
	r.IsActive = active
	return nil
}

func (f *fakeDomains) DeleteChatbotDomain(_ context.Context, id string) error {
	delete(f.rows, id)
	return nil
}

type fakeChatbots struct {
	bots map[string]models.Chatbot
}

func (f *fakeChatbots) CreateChatbot(context.Context, *models.Chatbot) error { return nil }

func (f *fakeChatbots) GetChatbot(_ context.Context, id string) (*models.Chatbot, error) {
	b, ok := f.bots[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &b, nil
}

func (f *fakeChatbots) ListChatbots(context.Context, string) ([]models.Chatbot, error) { return nil, nil }
func (f *fakeChatbots) UpdateChatbot(context.Context, *models.Chatbot) error { return nil }
func (f *fakeChatbots) DeleteChatbot(context.Context, string, string) error { return nil }

func TestNormalizeDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.Example.com/pricing?x=1": "example.com",
		"example.com/":                        "example.com",
		"  WWW.shop.example.org.  ":           "shop.example.org",
		"http://user@example.com:8080/a":      "example.com:8080",
		"www.www.example.com":                 "example.com",
		"":                                    "",
	}
	for in, want := range tests {
		got := NormalizeDomain(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, got, NormalizeDomain(got), "idempotent for %q", in)
	}
}

func TestDomainFromHeaders(t *testing.T) {
	assert.Equal(t, "example.com", DomainFromHeaders("https://www.example.com", ""))
	assert.Equal(t, "blog.example.com", DomainFromHeaders("", "https://blog.example.com/post/1"))
	assert.Equal(t, "a.com", DomainFromHeaders("null", "http://a.com/"))
	assert.Empty(t, DomainFromHeaders("", ""))
}

func TestNewDomainToken(t *testing.T) {
	a, b := NewDomainToken(), NewDomainToken()
	assert.Len(t, a, 64)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}

func TestDomainGate_Validate(t *testing.T) {
	store := newFakeDomains(
		models.ChatbotDomain{ID: "d1", ChatbotID: "bot", Domain: "example.com", Token: "T", IsActive: true},
		models.ChatbotDomain{ID: "d2", ChatbotID: "bot", Domain: "off.com", Token: "T2", IsActive: false},
	)
	gate := NewDomainGate(store)
	ctx := context.Background()

	assert.NoError(t, gate.Validate(ctx, "https://www.example.com/page", "T", "bot"))
	assert.NoError(t, gate.Validate(ctx, "anything.com", "", "bot"), "no token falls back to allow")

	for name, args := range map[string][3]string{
		"wrong domain":   {"evil.com", "T", "bot"},
		"wrong token":    {"example.com", "X", "bot"},
		"wrong chatbot":  {"example.com", "T", "other"},
		"inactive":       {"off.com", "T2", "bot"},
		"missing domain": {"", "T", "bot"},
	} {
		t.Run(name, func(t *testing.T) {
			err := gate.Validate(ctx, args[0], args[1], args[2])
			assert.ErrorIs(t, err, ErrAccessDenied)
			assert.ErrorIs(t, err, core.ErrPermission)
		})
	}
}

func TestDomainGate_LookupErrorDenies(t *testing.T) {
	store := newFakeDomains()
	store.findErr = errors.New("connection reset")

	err := NewDomainGate(store).Validate(context.Background(), "example.com", "T", "bot")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.NotContains(t, err.Error(), "connection reset")
}

func TestDomainManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := newFakeDomains()
	bots := &fakeChatbots{bots: map[string]models.Chatbot{"bot": {ID: "bot", OwnerID: "alice"}}}
	m := NewDomainManager(bots, store)
	gate := NewDomainGate(store)

	d, err := m.Add(ctx, "alice", "bot", "https://www.Example.com/")
	require.NoError(t, err)
	assert.Equal(t, "example.com", d.Domain)
	assert.True(t, d.IsActive)
	require.NoError(t, gate.Validate(ctx, "example.com", d.Token, "bot"))

	oldToken := d.Token
	d, err = m.Regenerate(ctx, "alice", d.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, d.Token)
	assert.ErrorIs(t, gate.Validate(ctx, "example.com", oldToken, "bot"), ErrAccessDenied)
	assert.NoError(t, gate.Validate(ctx, "example.com", d.Token, "bot"))

	_, err = m.SetActive(ctx, "alice", d.ID, false)
	require.NoError(t, err)
	assert.ErrorIs(t, gate.Validate(ctx, "example.com", d.Token, "bot"), ErrAccessDenied)

	list, err := m.List(ctx, "alice", "bot")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, m.Delete(ctx, "alice", d.ID))
	list, err = m.List(ctx, "alice", "bot")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDomainManager_OwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	store := newFakeDomains(models.ChatbotDomain{ID: "d1", ChatbotID: "bot", Domain: "example.com", Token: "T", IsActive: true})
	bots := &fakeChatbots{bots: map[string]models.Chatbot{"bot": {ID: "bot", OwnerID: "alice"}}}
	m := NewDomainManager(bots, store)

	_, err := m.Add(ctx, "mallory", "bot", "evil.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = m.Regenerate(ctx, "mallory", "d1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "mallory", "d1"), core.ErrNotFound)
	_, err = m.Add(ctx, "alice", "bot", "  ")
	assert.ErrorIs(t, err, core.ErrValidation)
}
