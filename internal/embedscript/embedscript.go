// Package embedscript serves the website loader script and renders the
// snippet owners paste into their pages.
package embedscript

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/markdave123-py/botdesk/internal/core"
)

// ContainerID guards embed.js against building the widget twice.
const ContainerID = "botdesk-chatbot-container"

// LoaderID is set on the script tag the snippet injects, so a snippet pasted
// twice adds one tag even before embed.js has loaded.
const LoaderID = "botdesk-chatbot-loader"

//go:embed static/embed.js
var static embed.FS

// Script returns the loader served at /embed.js.
func Script() []byte {
	b, err := static.ReadFile("static/embed.js")
	if err != nil {
		panic(fmt.Sprintf("embed.js missing from binary: %v", err))
	}
	return b
}

var snippetTmpl = template.Must(template.New("snippet").Parse(`<!-- Chatbot widget -->
<script>
(function () {
  if (document.getElementById({{printf "%q" .LoaderID}}) || document.getElementById({{printf "%q" .ContainerID}})) return;
  var s = document.createElement("script");
  s.id = {{printf "%q" .LoaderID}};
  s.src = {{printf "%q" .ScriptURL}};
  s.async = true;
  s.setAttribute("data-chatbot-id", {{printf "%q" .ChatbotID}});
{{- if .Token}}
  s.setAttribute("data-token", {{printf "%q" .Token}});
{{- end}}
{{- if .Domain}}
  s.setAttribute("data-domain", {{printf "%q" .Domain}});
{{- end}}
  document.body.appendChild(s);
})();
</script>
`))

type SnippetParams struct {
	BaseURL   string
	ChatbotID string
	Token     string
	Domain    string
}

// RenderSnippet produces the self-invoking loader for a chatbot. Token and
// domain are optional.
func RenderSnippet(p SnippetParams) (string, error) {
	if p.ChatbotID == "" || p.BaseURL == "" {
		return "", fmt.Errorf("snippet needs chatbot id and base url: %w", core.ErrValidation)
	}
	var buf bytes.Buffer
	err := snippetTmpl.Execute(&buf, struct {
		SnippetParams
		ContainerID string
		LoaderID    string
		ScriptURL   string
	}{
		SnippetParams: p,
		ContainerID:   ContainerID,
		LoaderID:      LoaderID,
		ScriptURL:     strings.TrimRight(p.BaseURL, "/") + "/embed.js",
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
