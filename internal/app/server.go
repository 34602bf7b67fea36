package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/botdesk/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/botdesk/internal/api/middlewares"
	"github.com/markdave123-py/botdesk/internal/config"
	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/core/conversation"
	"github.com/markdave123-py/botdesk/internal/core/llm"
	"github.com/markdave123-py/botdesk/internal/core/retrieval"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/security"
	"github.com/markdave123-py/botdesk/internal/services"
	"github.com/markdave123-py/botdesk/internal/voice"
)

// Deps is everything the routes need.
type Deps struct {
	Users       *services.UserService
	KBs         *services.KnowledgeBaseService
	Documents   *services.DocumentService
	Attachments *services.AttachmentService
	Chatbots    *services.ChatbotService
	Domains     *security.DomainManager
	Gate        *security.DomainGate
	Searcher    retrieval.Searcher
	Convo       *conversation.Service
	Recorder    *voice.Recorder
	Transcriber core.Transcriber
	Speech      *voice.SpeechService
	Player      *voice.Player
	Features    llm.Features
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, d Deps) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, d),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func NewRouter(cfg *config.Config, d Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(d.Users)
	kbHandler := handlers.NewKnowledgeBaseHandler(d.KBs)
	docHandler := handlers.NewDocumentHandler(d.Documents, d.Attachments, d.Searcher, cfg.RetrievalTopK)
	botHandler := handlers.NewChatbotHandler(d.Chatbots, d.Convo)
	domainHandler := handlers.NewDomainHandler(d.Domains)
	publicHandler := handlers.NewPublicHandler(d.Chatbots, d.Convo)
	voiceHandler := handlers.NewVoiceHandler(d.Chatbots, d.Convo, d.Recorder, d.Transcriber, d.Speech, d.Player)
	systemHandler := handlers.NewSystemHandler(d.Features)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Embed-Token", "X-Embed-Domain"},
		ExposedHeaders:   []string{"X-Pause-Message-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", systemHandler.Healthz)
	r.Get("/embed.js", systemHandler.EmbedJS)

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)
		api.Get("/features", systemHandler.Features)

		// embedded widget; the gate decides which sites may call these
		api.Route("/public/chatbots/{id}", func(pub chi.Router) {
			pub.Use(appMiddleware.EmbedGate(d.Gate))
			pub.Get("/config", publicHandler.Config)
			pub.Post("/chat", publicHandler.Chat)
			pub.Post("/reset", publicHandler.Reset)
			pub.Post("/interactions", publicHandler.CaptureContact)
			pub.Post("/recordings", voiceHandler.StartRecording)
			pub.Post("/recordings/{rid}/chunks", voiceHandler.AppendChunk)
			pub.Post("/recordings/{rid}/stop", voiceHandler.StopRecording)
			pub.Post("/messages/{mid}/speech", voiceHandler.Speech)
		})

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(d.Users))

			protected.Post("/knowledge-bases", kbHandler.Create)
			protected.Get("/knowledge-bases", kbHandler.List)
			protected.Get("/knowledge-bases/{id}", kbHandler.Get)
			protected.Delete("/knowledge-bases/{id}", kbHandler.Delete)
			protected.Post("/knowledge-bases/{id}/uploads", docHandler.UploadBatch)
			protected.Delete("/uploads/{batchID}", docHandler.CancelBatch)

			protected.Post("/documents/upload", docHandler.UploadDocument)
			protected.Get("/documents", docHandler.GetDocuments)
			protected.Get("/documents/{id}/chunks", docHandler.GetChunks)
			protected.Delete("/documents/{id}", docHandler.DeleteDocument)
			protected.Post("/documents/{id}/reprocess", docHandler.Reprocess)
			protected.Post("/search", docHandler.Search)
			protected.Post("/chat/attachments", docHandler.ExtractAttachment)

			protected.Post("/chatbots", botHandler.Create)
			protected.Get("/chatbots", botHandler.List)
			protected.Get("/chatbots/{id}", botHandler.Get)
			protected.Patch("/chatbots/{id}", botHandler.Update)
			protected.Delete("/chatbots/{id}", botHandler.Delete)
			protected.Patch("/chatbots/{id}/config", botHandler.PatchConfig)
			protected.Post("/chatbots/{id}/logo", botHandler.UploadLogo)
			protected.Get("/chatbots/{id}/embed-snippet", botHandler.EmbedSnippet)
			protected.Post("/chatbots/{id}/chat", botHandler.Chat)

			protected.Get("/chatbots/{id}/domains", domainHandler.List)
			protected.Post("/chatbots/{id}/domains", domainHandler.Add)
			protected.Post("/domains/{domainID}/regenerate", domainHandler.Regenerate)
			protected.Patch("/domains/{domainID}", domainHandler.Toggle)
			protected.Delete("/domains/{domainID}", domainHandler.Delete)
		})
	})

	return r
}

// allowOrigin admits any site on the widget routes and embed.js, and only
// the configured dashboard origins everywhere else.
func allowOrigin(origins []string) func(r *http.Request, origin string) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return func(r *http.Request, origin string) bool {
		if r.URL.Path == "/embed.js" || strings.HasPrefix(r.URL.Path, "/api/public/") {
			return true
		}
		return allowed["*"] || allowed[origin]
	}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	logger.L().WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.L().Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
