package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/markdave123-py/botdesk/internal/config"
	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/core/conversation"
	db "github.com/markdave123-py/botdesk/internal/core/database"
	"github.com/markdave123-py/botdesk/internal/core/ingestion_engine"
	"github.com/markdave123-py/botdesk/internal/core/llm"
	objectclient "github.com/markdave123-py/botdesk/internal/core/object-client"
	"github.com/markdave123-py/botdesk/internal/core/retrieval"
	"github.com/markdave123-py/botdesk/internal/logger"
	"github.com/markdave123-py/botdesk/internal/security"
	"github.com/markdave123-py/botdesk/internal/services"
	"github.com/markdave123-py/botdesk/internal/voice"
)

const recordingMaxAge = 10 * time.Minute

type App struct {
	Config       *config.Config
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Providers    *llm.Providers
	DocProcessor *ingestion_engine.DocumentIngestor
	Server       *Server

	redis *redis.Client
}

// NewApp connects to every backing service and wires the HTTP layer.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	log := logger.L()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database initialized and ready")

	a := &App{Config: cfg, DBClient: dbClient}

	objClient, err := objectclient.NewObjectClient(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ObjectClient = objClient
	log.WithField("backend", cfg.BlobBackend).Info("object client initialized")

	providers, err := llm.NewProviders(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize model providers: %w", err)
	}
	a.Providers = providers

	states, err := a.stateStore(appCtx)
	if err != nil {
		a.Close()
		return nil, err
	}

	segmenter := ingestion_engine.NewSentenceWindowSegmenter(
		ingestion_engine.WithChunkSize(cfg.ChunkSize),
		ingestion_engine.WithChunkOverlap(cfg.ChunkOverlap),
	)
	extractor := ingestion_engine.NewDocumentExtractor()
	a.DocProcessor = ingestion_engine.NewDocumentIngestor(dbClient, objClient, providers.Embedder, extractor, segmenter,
		ingestion_engine.IngestConfig{
			Bucket:    cfg.DocumentsBucket,
			Workers:   cfg.IngestWorkers,
			QueueSize: cfg.IngestQueue,
		})

	retriever := retrieval.NewRetriever(providers.Embedder, dbClient)
	turns := conversation.NewTurnHandler(dbClient, retriever, providers.LLM,
		conversation.NewSentimentMonitor(providers.LLM),
		conversation.TurnConfig{
			HistoryWindow:   cfg.HistoryWindow,
			TopK:            cfg.RetrievalTopK,
			SentimentEvery:  cfg.SentimentEvery,
			SentimentWindow: cfg.SentimentWindow,
		})
	convo := conversation.NewService(turns, states)

	speech := voice.NewSpeechService(providers.Synthesizer, cfg.ConversationTTL)
	player := voice.NewPlayer(cfg.ConversationTTL)
	convo.OnReset(func(_, sessionID string) {
		speech.Forget(sessionID)
		player.Forget(sessionID)
	})

	users := services.NewUserService(dbClient, cfg.JWTSecret)
	kbs := services.NewKnowledgeBaseService(dbClient)

	a.Server = NewServer(cfg, Deps{
		Users:       users,
		KBs:         kbs,
		Documents:   services.NewDocumentService(dbClient, objClient, cfg.DocumentsBucket, a.DocProcessor, kbs),
		Attachments: services.NewAttachmentService(extractor, cfg.AttachmentMaxPages),
		Chatbots:    services.NewChatbotService(dbClient, dbClient, dbClient, objClient, kbs, cfg.LogosBucket, cfg.PublicBaseURL),
		Domains:     security.NewDomainManager(dbClient, dbClient),
		Gate:        security.NewDomainGate(dbClient),
		Searcher:    retriever,
		Convo:       convo,
		Recorder:    voice.NewRecorder(recordingMaxAge),
		Transcriber: providers.Transcriber,
		Speech:      speech,
		Player:      player,
		Features:    llm.FeaturesFor(cfg),
	})
	return a, nil
}

// stateStore uses Redis when REDIS_ADDR is set and process memory otherwise.
func (a *App) stateStore(ctx context.Context) (conversation.StateStore, error) {
	if a.Config.RedisAddr == "" {
		logger.L().Info("conversation state kept in memory")
		return conversation.NewMemoryStore(a.Config.ConversationTTL), nil
	}
	rdb, err := conversation.DialRedis(ctx, a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
	if err != nil {
		return nil, err
	}
	a.redis = rdb
	logger.L().WithField("addr", a.Config.RedisAddr).Info("conversation state kept in redis")
	return conversation.NewRedisStore(rdb, a.Config.ConversationTTL), nil
}

func (a *App) Close() {
	log := logger.L()
	if a.Providers != nil {
		if err := a.Providers.Close(); err != nil {
			log.WithError(err).Warn("closing model providers")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.WithError(err).Warn("closing redis")
		}
	}
	if a.DBClient != nil {
		if err := a.DBClient.Close(); err != nil {
			log.WithError(err).Warn("closing database")
		}
	}
}
