// Package admin implements the msassistd commands.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cloo-solutions/msassist/internal/config"
	"github.com/cloo-solutions/msassist/internal/database"
	"github.com/cloo-solutions/msassist/internal/extract"
	"github.com/cloo-solutions/msassist/internal/gemini"
	"github.com/cloo-solutions/msassist/internal/logger"
	"github.com/cloo-solutions/msassist/internal/openai"
	"github.com/cloo-solutions/msassist/internal/repository"
	"github.com/cloo-solutions/msassist/internal/service"
	"github.com/cloo-solutions/msassist/internal/storage"
	"github.com/cloo-solutions/msassist/internal/symptoms"
	"github.com/jackc/pgx/v5/pgxpool"
	gogpt "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// runtime is what every database-backed command needs.
type runtime struct {
	cfg  *config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
}

func (rt *runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
	_ = rt.log.Sync()
}

// newRuntime loads config, builds the logger and connects to the database.
// The returned context carries the logger.
func newRuntime(ctx context.Context) (context.Context, *runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		Production: cfg.Environment != "development",
	})
	ctx = logger.ToContext(ctx, log)

	if err := extract.SetOfficeLicense(cfg.UniDocLicenseKey); err != nil {
		log.Warn("docx support disabled", zap.Error(err))
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		_ = log.Sync()
		return ctx, nil, err
	}

	return ctx, &runtime{cfg: cfg, log: log, pool: pool}, nil
}

// app holds the wired services.
type app struct {
	symptoms   *symptoms.Table
	auth       *service.AuthService
	chat       *service.ChatService
	sessions   *service.ConversationService
	ingestion  *service.IngestionService
	uploads    *service.UploadService
	exporter   *service.ExportService
	jobs       *repository.IngestionJobRepository
	objects    *storage.S3Client
	closers    []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// buildApp wires repositories, AI clients, object storage and services.
func buildApp(ctx context.Context, rt *runtime) (*app, error) {
	cfg := rt.cfg
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("MSASSIST_OPENAI_API_KEY is required for embeddings")
	}

	table, err := symptoms.LoadOrDefault(cfg.SymptomsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load symptom table: %w", err)
	}

	a := &app{symptoms: table}

	ai := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      gogpt.EmbeddingModel(cfg.OpenAIEmbedModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.OpenAIChatModel,
		Retries:             cfg.EmbedRetries,
	})

	var generator service.Generator = ai
	var titles service.TitleGenerator = ai
	if cfg.Generator == "gemini" {
		g, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiChatModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		generator, titles = g, g
	}
	if !cfg.GenerateTitles {
		titles = nil
	}

	var archiver service.ObjectArchiver
	var uploadStorage service.ObjectStorage
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
			MaxObjectBytes:  cfg.MaxUploadBytes,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		rt.log.Info("object storage ready", zap.String("bucket", cfg.S3Bucket))
		a.objects = s3Client
		archiver, uploadStorage = s3Client, s3Client
	}

	chunks := repository.NewChunkRepository(rt.pool)
	txRunner := repository.NewTxRunner(rt.pool)
	a.jobs = repository.NewIngestionJobRepository(rt.pool)

	a.auth = newAuthService(rt)
	a.sessions = service.NewConversationService(
		repository.NewSessionRepository(rt.pool), repository.NewMessageRepository(rt.pool), txRunner)

	responder := service.NewResponder(ai, chunks, generator, table, service.ResponderConfig{
		TopK:              cfg.RAGTopK,
		MaxChunkChars:     cfg.RAGMaxChunkChars,
		HistoryWindow:     cfg.HistoryWindow,
		GenerationTimeout: cfg.GenerationTimeout,
		ChatMaxTokens:     cfg.ChatMaxTokens,
		AnalysisMaxTokens: cfg.AnalysisMaxTokens,
		Temperature:       cfg.Temperature,
		QueryCacheTTL:     cfg.QueryCacheTTL,
	})
	a.chat = service.NewChatService(a.sessions, responder, titles, cfg.TitleTimeout)
	a.exporter = service.NewExportService(a.sessions)

	a.ingestion = service.NewIngestionService(repository.NewDocumentRepository(rt.pool), txRunner, ai, archiver,
		service.IngestConfig{
			Chunk:     service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
			BatchSize: cfg.IngestBatchSize,
		})
	a.uploads = service.NewUploadService(uploadStorage, a.jobs, cfg.MaxUploadBytes)

	return a, nil
}

func newAuthService(rt *runtime) *service.AuthService {
	return service.NewAuthService(repository.NewUserRepository(rt.pool), service.AuthConfig{
		Secret:   []byte(rt.cfg.JWTSecret),
		TokenTTL: rt.cfg.JWTTTL,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
