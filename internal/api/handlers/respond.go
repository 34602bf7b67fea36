package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/markdave123-py/botdesk/internal/api/middlewares"
	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/services"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, core.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and sends a one-line message. Server-side failures
// never leak their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	log := logger.FromContext(r.Context()).WithError(err)
	switch {
	case status == http.StatusServiceUnavailable:
		msg = "this feature is not configured"
		log.Warn("feature unavailable")
	case status == http.StatusForbidden:
		msg = "access denied"
		log.Info("request forbidden")
	case status >= 500:
		msg = http.StatusText(status)
		log.Error("request failed")
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid body")
		return false
	}
	return true
}

// ownerID reads the authenticated user. Routes using it sit behind the JWT
// middleware, so a miss is a wiring bug reported as 401.
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	return id, ok
}
