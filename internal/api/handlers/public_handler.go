package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/core/conversation"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/models"
	"github.com/markdave123-py/botdesk/internal/services"
)

// PublicChatbots is the slice of the chatbot service embedded visitors use.
type PublicChatbots interface {
	Public(ctx context.Context, id string) (*models.Chatbot, error)
	CaptureContact(ctx context.Context, bot *models.Chatbot, c services.ContactInfo) (*models.UserInteraction, error)
}

// PublicHandler serves the embedded widget. Every route sits behind the
// embed gate.
type PublicHandler struct {
	bots  PublicChatbots
	convo *conversation.Service
}

func NewPublicHandler(bots PublicChatbots, convo *conversation.Service) *PublicHandler {
	return &PublicHandler{bots: bots, convo: convo}
}

type publicConfig struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	WelcomeMessage string `json:"welcome_message"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	VoiceEnabled   bool   `json:"voice_enabled"`
	CollectContact bool   `json:"collect_contact_info"`
}

func loadPublicChatbot(w http.ResponseWriter, r *http.Request, bots PublicChatbots) (*models.Chatbot, bool) {
	bot, err := bots.Public(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return bot, true
}

// Config returns the presentation settings; the personality prompt stays
// server-side.
func (h *PublicHandler) Config(w http.ResponseWriter, r *http.Request) {
	bot, ok := loadPublicChatbot(w, r, h.bots)
	if !ok {
		return
	}
	cfg := bot.Config.WithDefaults()
	writeJSON(w, http.StatusOK, publicConfig{
		ID:             bot.ID,
		Name:           bot.Name,
		PrimaryColor:   cfg.PrimaryColor,
		SecondaryColor: cfg.SecondaryColor,
		WelcomeMessage: cfg.WelcomeMessage,
		AvatarURL:      cfg.AvatarURL,
		VoiceEnabled:   cfg.VoiceEnabled,
		CollectContact: cfg.CollectContactInfo,
	})
}

func (h *PublicHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bot, ok := loadPublicChatbot(w, r, h.bots)
	if !ok {
		return
	}

	conv := &conversation.ConversationContext{Chatbot: bot, Public: true, IPAddress: clientIP(r), UserAgent: r.UserAgent()}
	st, res, err := h.convo.Send(r.Context(), conv, strings.TrimSpace(req.SessionID), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newChatResponse(st, res))
}

// Reset starts a new chat and returns its session id.
func (h *PublicHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bot, ok := loadPublicChatbot(w, r, h.bots)
	if !ok {
		return
	}
	st, err := h.convo.Reset(r.Context(), bot.ID, strings.TrimSpace(req.SessionID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": st.SessionID})
}

// CaptureContact stores the visitor's contact details with the transcript
// so far.
func (h *PublicHandler) CaptureContact(w http.ResponseWriter, r *http.Request) {
	var req services.ContactInfo
	if !decodeJSON(w, r, &req) {
		return
	}
	bot, ok := loadPublicChatbot(w, r, h.bots)
	if !ok {
		return
	}

	if req.SessionID != "" {
		st, err := h.convo.State(r.Context(), bot.ID, req.SessionID)
		switch {
		case err == nil:
			req.Transcript = st.Transcript()
		case !errors.Is(err, core.ErrNotFound):
			logger.FromContext(r.Context()).WithError(err).Warn("transcript unavailable for contact capture")
		}
	}

	in, err := h.bots.CaptureContact(r.Context(), bot, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": in.ID})
}
