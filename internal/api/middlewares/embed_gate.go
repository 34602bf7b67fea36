package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/botdesk/internal/security"
)

// DomainValidator is satisfied by security.DomainGate.
type DomainValidator interface {
	Validate(ctx context.Context, domain, token, chatbotID string) error
}

// EmbedGate admits embedded requests for the chatbot in the {id} route
// parameter. The token comes from ?token= or X-Embed-Token, the domain from
// ?domain=, X-Embed-Domain, Origin or Referer, in that order.
func EmbedGate(v DomainValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			token := firstNonEmpty(q.Get("token"), r.Header.Get("X-Embed-Token"))
			domain := firstNonEmpty(
				q.Get("domain"),
				r.Header.Get("X-Embed-Domain"),
				security.DomainFromHeaders(r.Header.Get("Origin"), r.Header.Get("Referer")),
			)

			if err := v.Validate(r.Context(), domain, token, chi.URLParam(r, "id")); err != nil {
				deny(w, http.StatusForbidden, "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
