package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/botdesk/internal/core/conversation"
	"github.com/markdave123-py/botdesk/internal/services"
)

const maxLogoUpload = 4 << 20

type ChatbotHandler struct {
	bots  *services.ChatbotService
	convo *conversation.Service
}

func NewChatbotHandler(bots *services.ChatbotService, convo *conversation.Service) *ChatbotHandler {
	return &ChatbotHandler{bots: bots, convo: convo}
}

type createChatbotRequest struct {
	Name            string  `json:"name"`
	KnowledgeBaseID *string `json:"knowledge_base_id"`
}

func (h *ChatbotHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req createChatbotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bot, err := h.bots.Create(r.Context(), userID, req.Name, req.KnowledgeBaseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bot)
}

func (h *ChatbotHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	bots, err := h.bots.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bots)
}

func (h *ChatbotHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	bot, err := h.bots.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (h *ChatbotHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req services.ChatbotUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	bot, err := h.bots.Update(r.Context(), chi.URLParam(r, "id"), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

// PatchConfig merges the request body into the chatbot's configuration.
func (h *ChatbotHandler) PatchConfig(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		badRequest(w, "invalid body")
		return
	}
	bot, err := h.bots.PatchConfig(r.Context(), chi.URLParam(r, "id"), userID, raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (h *ChatbotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.bots.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatbotHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoUpload)
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequest(w, "invalid file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "invalid file")
		return
	}
	bot, err := h.bots.UploadLogo(r.Context(), chi.URLParam(r, "id"), userID,
		detectContentType(header.Header.Get("Content-Type"), data), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (h *ChatbotHandler) EmbedSnippet(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	snippet, err := h.bots.EmbedSnippet(r.Context(), chi.URLParam(r, "id"), userID, r.URL.Query().Get("domain_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"snippet": snippet})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string                        `json:"session_id"`
	Escalated bool                          `json:"escalated"`
	Messages  []conversation.Message        `json:"messages"`
	Sentiment *conversation.SentimentResult `json:"sentiment,omitempty"`
}

// newChatResponse lists the messages the turn added, in transcript order.
func newChatResponse(st conversation.State, res conversation.Result) chatResponse {
	msgs := []conversation.Message{res.UserMessage}
	if res.Escalation != nil {
		msgs = append(msgs, *res.Escalation)
	}
	msgs = append(msgs, res.Reply)
	return chatResponse{SessionID: st.SessionID, Escalated: st.Escalated, Messages: msgs, Sentiment: res.Sentiment}
}

// Chat lets the owner preview the chatbot. Retrieval covers all of the
// owner's documents.
func (h *ChatbotHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bot, err := h.bots.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conv := &conversation.ConversationContext{Chatbot: bot, IPAddress: clientIP(r), UserAgent: r.UserAgent()}
	st, res, err := h.convo.Send(r.Context(), conv, strings.TrimSpace(req.SessionID), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newChatResponse(st, res))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
