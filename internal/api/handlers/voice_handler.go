package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/core/conversation"
	"github.com/markdave123-py/botdesk/internal/models"
	"github.com/markdave123-py/botdesk/internal/voice"
)

var errVoiceDisabled = fmt.Errorf("voice is disabled for this chatbot: %w", core.ErrValidation)

type VoiceHandler struct {
	bots        PublicChatbots
	convo       *conversation.Service
	recorder    *voice.Recorder
	transcriber core.Transcriber
	speech      *voice.SpeechService
	player      *voice.Player
}

func NewVoiceHandler(
	bots PublicChatbots,
	convo *conversation.Service,
	recorder *voice.Recorder,
	transcriber core.Transcriber,
	speech *voice.SpeechService,
	player *voice.Player,
) *VoiceHandler {
	return &VoiceHandler{
		bots:        bots,
		convo:       convo,
		recorder:    recorder,
		transcriber: transcriber,
		speech:      speech,
		player:      player,
	}
}

func (h *VoiceHandler) voiceChatbot(w http.ResponseWriter, r *http.Request) (*models.Chatbot, bool) {
	bot, ok := loadPublicChatbot(w, r, h.bots)
	if !ok {
		return nil, false
	}
	if !bot.Config.VoiceEnabled {
		writeError(w, r, errVoiceDisabled)
		return nil, false
	}
	return bot, true
}

func (h *VoiceHandler) StartRecording(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID   string `json:"session_id"`
		ContentType string `json:"content_type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := h.voiceChatbot(w, r); !ok {
		return
	}
	id := h.recorder.Start(strings.TrimSpace(req.SessionID), req.ContentType)
	writeJSON(w, http.StatusCreated, map[string]string{"recording_id": id})
}

// AppendChunk adds the raw request body to the recording.
func (h *VoiceHandler) AppendChunk(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, voice.MaxRecordingBytes))
	if err != nil {
		writeError(w, r, voice.ErrRecordingLimit)
		return
	}
	if err := h.recorder.Append(chi.URLParam(r, "rid"), chunk); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StopRecording transcribes the clip and runs it as a chat turn.
func (h *VoiceHandler) StopRecording(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.voiceChatbot(w, r)
	if !ok {
		return
	}
	clip, err := h.recorder.Stop(chi.URLParam(r, "rid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, err := voice.Transcribe(r.Context(), h.transcriber, clip)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conv := &conversation.ConversationContext{Chatbot: bot, Public: true, IPAddress: clientIP(r), UserAgent: r.UserAgent()}
	st, res, err := h.convo.Send(r.Context(), conv, clip.SessionID, text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Transcript string `json:"transcript"`
		chatResponse
	}{Transcript: text, chatResponse: newChatResponse(st, res)})
}

// Speech returns audio for an assistant message. X-Pause-Message-Id names the
// clip the widget must pause before playing this one.
func (h *VoiceHandler) Speech(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bot, ok := h.voiceChatbot(w, r)
	if !ok {
		return
	}

	st, err := h.convo.State(r.Context(), bot.ID, req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msgID := chi.URLParam(r, "mid")
	msg, found := st.Message(msgID)
	if !found || msg.Role != models.RoleAssistant {
		writeError(w, r, fmt.Errorf("message %s: %w", msgID, core.ErrNotFound))
		return
	}

	audio, err := h.speech.Synthesize(r.Context(), st.SessionID, msg.ID, msg.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if pause := h.player.Play(st.SessionID, msg.ID); pause != "" {
		w.Header().Set("X-Pause-Message-Id", pause)
	}
	w.Header().Set("Content-Type", audio.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
}
