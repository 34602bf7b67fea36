package handlers

import (
	"net/http"

	"github.com/markdave123-py/botdesk/internal/core/llm"
	"github.com/markdave123-py/botdesk/internal/embedscript"
)

type SystemHandler struct {
	features llm.Features
}

func NewSystemHandler(features llm.Features) *SystemHandler {
	return &SystemHandler{features: features}
}

// Features tells the dashboard which credential-backed features to show.
func (h *SystemHandler) Features(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.features)
}

func (h *SystemHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SystemHandler) EmbedJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(embedscript.Script())
}
