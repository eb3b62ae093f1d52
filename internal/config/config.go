package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "MSASSIST"

// VectorDimensions is the size of the document_chunks embedding column.
const VectorDimensions = 1536

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMinConns int32  `envconfig:"DATABASE_MIN_CONNS" default:"1"`
	MigrationsPath   string `envconfig:"MIGRATIONS_PATH" default:"file://migrations"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"msassist-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIChatModel     string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o"`
	OpenAIEmbedModel    string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	// Generator selects the chat backend: "openai" or "gemini".
	Generator       string `envconfig:"GENERATOR" default:"openai"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiChatModel string `envconfig:"GEMINI_CHAT_MODEL" default:"gemini-1.5-flash-latest"`

	Temperature       float32       `envconfig:"TEMPERATURE" default:"0.7"`
	ChatMaxTokens     int           `envconfig:"CHAT_MAX_TOKENS" default:"1000"`
	AnalysisMaxTokens int           `envconfig:"ANALYSIS_MAX_TOKENS" default:"800"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"60s"`
	TitleTimeout      time.Duration `envconfig:"TITLE_TIMEOUT" default:"5s"`
	GenerateTitles    bool          `envconfig:"GENERATE_TITLES" default:"true"`

	RAGTopK          int           `envconfig:"RAG_TOP_K" default:"4"`
	RAGMaxChunkChars int           `envconfig:"RAG_MAX_CHUNK_CHARS" default:"500"`
	HistoryWindow    int           `envconfig:"HISTORY_WINDOW" default:"10"`
	QueryCacheTTL    time.Duration `envconfig:"QUERY_CACHE_TTL" default:"10m"`

	ChunkSize        int   `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap     int   `envconfig:"CHUNK_OVERLAP" default:"200"`
	IngestBatchSize  int   `envconfig:"INGEST_BATCH_SIZE" default:"32"`
	MaxUploadBytes   int64 `envconfig:"MAX_UPLOAD_BYTES" default:"26214400"`
	EmbedRetries     uint  `envconfig:"EMBED_RETRIES" default:"3"`
	IngestionWorker  bool  `envconfig:"INGESTION_WORKER" default:"true"`

	IngestionPollInterval time.Duration `envconfig:"INGESTION_POLL_INTERVAL" default:"10s"`

	SymptomsFile string `envconfig:"SYMPTOMS_FILE"`

	// UniDocLicenseKey enables DOCX extraction and export.
	UniDocLicenseKey string `envconfig:"UNIDOC_LICENSE_API_KEY"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`

	SentryDSN        string  `envconfig:"SENTRY_DSN"`
	SentrySampleRate float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	if cfg.EmbeddingDimensions != VectorDimensions {
		return nil, fmt.Errorf("embedding dimensions must be %d to match the chunks table, got %d",
			VectorDimensions, cfg.EmbeddingDimensions)
	}

	switch cfg.Generator {
	case "openai", "gemini":
	default:
		return nil, fmt.Errorf("unknown generator %q", cfg.Generator)
	}

	return &cfg, nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// TracesSampleRate falls back to full sampling in development and 10% elsewhere.
func (c *Config) TracesSampleRate() float64 {
	if c.SentrySampleRate > 0 {
		return c.SentrySampleRate
	}
	if c.Environment == "development" {
		return 1.0
	}
	return 0.1
}
