package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          string   `env:"PORT" envDefault:"8080"`
	DatabaseURL   string   `env:"DATABASE_URL"`
	JWTSecret     string   `env:"JWT_SECRET"`
	PublicBaseURL string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	LogLevel      string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string   `env:"LOG_FORMAT" envDefault:"json"`

	// Blob storage
	BlobBackend     string `env:"BLOB_BACKEND" envDefault:"s3"`
	AwsAccessKey    string `env:"AWS_ACCESS_KEY"`
	AwsSecretKey    string `env:"AWS_SECRET_KEY"`
	AwsRegion       string `env:"AWS_REGION" envDefault:"us-east-2"`
	DocumentsBucket string `env:"DOCUMENTS_BUCKET" envDefault:"documents"`
	LogosBucket     string `env:"LOGOS_BUCKET" envDefault:"chatbot-logos"`
	MinioEndpoint   string `env:"MINIO_ENDPOINT"`
	MinioSecure     bool   `env:"MINIO_SECURE" envDefault:"true"`

	// Hosted models
	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	EmbedModel      string `env:"EMBED_MODEL"`
	EmbedDim        int    `env:"EMBED_DIM" envDefault:"768"`
	GenModel        string `env:"GEN_MODEL"`
	TranscribeModel string `env:"TRANSCRIBE_MODEL" envDefault:"whisper-1"`

	// Speech synthesis
	ElevenLabsAPIKey  string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID string `env:"ELEVENLABS_VOICE_ID" envDefault:"21m00Tcm4TlvDq8ikWAM"`

	// Conversation state
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ConversationTTL time.Duration `env:"CONVERSATION_TTL" envDefault:"24h"`

	// Ingestion
	ChunkSize          int `env:"CHUNK_SIZE" envDefault:"800"`
	ChunkOverlap       int `env:"CHUNK_OVERLAP" envDefault:"300"`
	IngestWorkers      int `env:"INGEST_WORKERS" envDefault:"4"`
	IngestQueue        int `env:"INGEST_QUEUE" envDefault:"64"`
	AttachmentMaxPages int `env:"ATTACHMENT_MAX_PAGES" envDefault:"5"`

	// Chat
	HistoryWindow   int `env:"HISTORY_WINDOW" envDefault:"5"`
	RetrievalTopK   int `env:"RETRIEVAL_TOP_K" envDefault:"5"`
	SentimentEvery  int `env:"SENTIMENT_EVERY" envDefault:"1"`
	SentimentWindow int `env:"SENTIMENT_WINDOW" envDefault:"5"`
}

// LoadConfig reads an optional .env file and then decodes the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL not set")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	switch c.BlobBackend {
	case "s3", "minio":
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	switch c.LLMProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

// LLMAPIKey returns the credential of the selected chat/embedding provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}
