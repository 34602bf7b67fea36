// Package security decides whether an embedding website may talk to a
// chatbot.
package security

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/models"
)

// ErrAccessDenied is the only reason the gate ever reports to clients.
var ErrAccessDenied = fmt.Errorf("access denied for this website: %w", core.ErrPermission)

// NormalizeDomain reduces a URL or host to a bare lowercase host name
// without scheme, credentials, path, leading "www." or trailing dot.
// Applying it twice gives the same result.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(raw)
	for {
		next := normalizeStep(d)
		if next == d {
			return d
		}
		d = next
	}
}

func normalizeStep(d string) string {
	d = strings.TrimSpace(d)
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	d = strings.TrimRight(d, ".")
	return strings.TrimPrefix(d, "www.")
}

// DomainFromHeaders infers the embedding site from Origin, then Referer.
func DomainFromHeaders(origin, referer string) string {
	for _, v := range []string{origin, referer} {
		if v == "" || v == "null" {
			continue
		}
		if u, err := url.Parse(v); err == nil && u.Host != "" {
			return NormalizeDomain(u.Host)
		}
		if d := NormalizeDomain(v); d != "" {
			return d
		}
	}
	return ""
}

// NewDomainToken returns 64 hex characters built from two random UUIDs.
func NewDomainToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

type DomainGate struct {
	domains core.DomainStore
}

func NewDomainGate(domains core.DomainStore) *DomainGate {
	return &DomainGate{domains: domains}
}

// Validate allows a request when the token is empty (embedding without a
// token is permitted), or when an active registration matches all of
// chatbot, domain and token. Any other outcome is ErrAccessDenied.
func (g *DomainGate) Validate(ctx context.Context, domain, token, chatbotID string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"chatbot_id": chatbotID,
		"domain":     domain,
	})
	d := NormalizeDomain(domain)
	if d == "" || chatbotID == "" {
		log.Info("embed token without domain")
		return ErrAccessDenied
	}

	_, err := g.domains.FindActiveChatbotDomain(ctx, chatbotID, d, token)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			log.WithError(err).Error("domain lookup failed")
		} else {
			log.Info("embed token rejected")
		}
		return ErrAccessDenied
	}
	return nil
}

// DomainManager administers the allow-list of a chatbot on behalf of its
// owner.
type DomainManager struct {
	chatbots core.ChatbotStore
	domains  core.DomainStore
	newToken func() string
	newID    func() string
}

func NewDomainManager(chatbots core.ChatbotStore, domains core.DomainStore) *DomainManager {
	return &DomainManager{
		chatbots: chatbots,
		domains:  domains,
		newToken: NewDomainToken,
		newID:    uuid.NewString,
	}
}

func (m *DomainManager) ownedChatbot(ctx context.Context, chatbotID, ownerID string) error {
	bot, err := m.chatbots.GetChatbot(ctx, chatbotID)
	if err != nil {
		return err
	}
	if bot.OwnerID != ownerID {
		return fmt.Errorf("chatbot %s: %w", chatbotID, core.ErrNotFound)
	}
	return nil
}

// ownedDomain loads a registration and checks it belongs to one of the
// owner's chatbots.
func (m *DomainManager) ownedDomain(ctx context.Context, domainID, ownerID string) (*models.ChatbotDomain, error) {
	d, err := m.domains.GetChatbotDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if err := m.ownedChatbot(ctx, d.ChatbotID, ownerID); err != nil {
		return nil, err
	}
	return d, nil
}

func (m *DomainManager) Add(ctx context.Context, ownerID, chatbotID, domain string) (*models.ChatbotDomain, error) {
	d := NormalizeDomain(domain)
	if d == "" {
		return nil, fmt.Errorf("domain is required: %w", core.ErrValidation)
	}
	if err := m.ownedChatbot(ctx, chatbotID, ownerID); err != nil {
		return nil, err
	}
	rec := &models.ChatbotDomain{
		ID:        m.newID(),
		ChatbotID: chatbotID,
		Domain:    d,
		Token:     m.newToken(),
		IsActive:  true,
	}
	if err := m.domains.CreateChatbotDomain(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (m *DomainManager) List(ctx context.Context, ownerID, chatbotID string) ([]models.ChatbotDomain, error) {
	if err := m.ownedChatbot(ctx, chatbotID, ownerID); err != nil {
		return nil, err
	}
	return m.domains.ListChatbotDomains(ctx, chatbotID)
}

// Regenerate replaces the token; the previous one stops working at once.
func (m *DomainManager) Regenerate(ctx context.Context, ownerID, domainID string) (*models.ChatbotDomain, error) {
	d, err := m.ownedDomain(ctx, domainID, ownerID)
	if err != nil {
		return nil, err
	}
	token := m.newToken()
	if err := m.domains.RegenerateDomainToken(ctx, domainID, token); err != nil {
		return nil, err
	}
	d.Token = token
	return d, nil
}

func (m *DomainManager) SetActive(ctx context.Context, ownerID, domainID string, active bool) (*models.ChatbotDomain, error) {
	d, err := m.ownedDomain(ctx, domainID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := m.domains.SetChatbotDomainActive(ctx, domainID, active); err != nil {
		return nil, err
	}
	d.IsActive = active
	return d, nil
}

func (m *DomainManager) Delete(ctx context.Context, ownerID, domainID string) error {
	if _, err := m.ownedDomain(ctx, domainID, ownerID); err != nil {
		return err
	}
	return m.domains.DeleteChatbotDomain(ctx, domainID)
}
