package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/botdesk/internal/config"
)

func preflight(t *testing.T, h http.Handler, path, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodOptions, path, nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Embed-Token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_CORS(t *testing.T) {
	cfg := &config.Config{CORSOrigins: []string{"https://dashboard.example.com/"}, RetrievalTopK: 5}
	h := NewRouter(cfg, Deps{})

	tests := []struct {
		name   string
		path   string
		origin string
		allow  bool
	}{
		{"widget route from a customer site", "/api/public/chatbots/bot-1/chat", "https://shop.example.com", true},
		{"widget voice route", "/api/public/chatbots/bot-1/recordings", "https://blog.example.org", true},
		{"dashboard route from the dashboard", "/api/chatbots", "https://dashboard.example.com", true},
		{"dashboard route from a customer site", "/api/chatbots", "https://shop.example.com", false},
		{"login from a customer site", "/api/login", "https://shop.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := preflight(t, h, tt.path, tt.origin)
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allow {
				assert.Equal(t, tt.origin, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestRouter_EmbedScriptIsCrossOrigin(t *testing.T) {
	h := NewRouter(&config.Config{CORSOrigins: []string{"https://dashboard.example.com"}}, Deps{})

	req := httptest.NewRequest(http.MethodGet, "/embed.js", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
