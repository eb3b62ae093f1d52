package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/logger"
	"github.com/cloo-solutions/msassist/internal/telemetry"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeSearcher runs a top-k similarity search over document chunks.
type KnowledgeSearcher interface {
	Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error)
}

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float32
}

// Generator produces a completion for a prompt. Implementations must honour
// ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt, opts GenerateOptions) (string, error)
}

// SymptomMatcher finds reference symptoms mentioned in free text.
type SymptomMatcher interface {
	Match(text string) []domain.SymptomEntry
}

// ResponderConfig holds the retrieval and generation limits.
type ResponderConfig struct {
	TopK              int
	MaxChunkChars     int
	HistoryWindow     int
	GenerationTimeout time.Duration
	ChatMaxTokens     int
	AnalysisMaxTokens int
	Temperature       float32
	QueryCacheTTL     time.Duration
}

// DefaultResponderConfig returns the stock limits.
func DefaultResponderConfig() ResponderConfig {
	return ResponderConfig{
		TopK:              4,
		MaxChunkChars:     defaultMaxChunkChars,
		HistoryWindow:     defaultHistoryWindow,
		GenerationTimeout: 60 * time.Second,
		ChatMaxTokens:     1000,
		AnalysisMaxTokens: 800,
		Temperature:       0.7,
		QueryCacheTTL:     10 * time.Minute,
	}
}

// RespondInput is a chat question with its conversation so far.
type RespondInput struct {
	SessionID string
	Query     string
	History   []*domain.Message
	// Timeout overrides the configured generation timeout when positive.
	Timeout time.Duration
}

// AnalyzeInput is a clinical narrative for symptom analysis.
type AnalyzeInput struct {
	ClinicalText string
	Timeout      time.Duration
}

// Answer is a generated response with the context that grounded it.
type Answer struct {
	Text            string
	Sources         []domain.ScoredChunk
	MatchedSymptoms []domain.SymptomEntry
}

// Responder answers questions with retrieval-augmented generation.
type Responder struct {
	embedder   Embedder
	searcher   KnowledgeSearcher
	generator  Generator
	symptoms   SymptomMatcher
	cfg        ResponderConfig
	queryCache *cache.Cache
}

// NewResponder creates a new Responder instance
func NewResponder(embedder Embedder, searcher KnowledgeSearcher, generator Generator, symptoms SymptomMatcher, cfg ResponderConfig) *Responder {
	def := DefaultResponderConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = def.GenerationTimeout
	}
	if cfg.QueryCacheTTL <= 0 {
		cfg.QueryCacheTTL = def.QueryCacheTTL
	}
	return &Responder{
		embedder:   embedder,
		searcher:   searcher,
		generator:  generator,
		symptoms:   symptoms,
		cfg:        cfg,
		queryCache: cache.New(cfg.QueryCacheTTL, 2*cfg.QueryCacheTTL),
	}
}

// Respond answers a chat question. A generation failure or timeout returns
// ErrGenerationUnavailable; retrieval failures only degrade the context.
func (r *Responder) Respond(ctx context.Context, in RespondInput) (*Answer, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "responder.respond", telemetry.SpanAttributes{
		SessionID: in.SessionID,
		Operation: "respond",
	})
	defer span.End()

	chunks := r.retrieve(ctx, in.Query)
	matched := r.matchSymptoms(in.Query)

	prompt := BuildPrompt(PromptInput{
		Mode:          PromptModeChat,
		Query:         in.Query,
		Chunks:        chunks,
		Symptoms:      matched,
		History:       in.History,
		MaxChunkChars: r.cfg.MaxChunkChars,
		HistoryWindow: r.cfg.HistoryWindow,
	})

	text, err := r.generate(ctx, prompt, in.Timeout, r.cfg.ChatMaxTokens)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &Answer{Text: text, Sources: chunks, MatchedSymptoms: matched}, nil
}

// AnalyzeSymptoms runs the symptom-analysis prompt over a clinical narrative.
func (r *Responder) AnalyzeSymptoms(ctx context.Context, in AnalyzeInput) (*Answer, error) {
	if strings.TrimSpace(in.ClinicalText) == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "responder.analyze", telemetry.SpanAttributes{Operation: "analyze"})
	defer span.End()

	chunks := r.retrieve(ctx, in.ClinicalText)
	matched := r.matchSymptoms(in.ClinicalText)

	prompt := BuildPrompt(PromptInput{
		Mode:          PromptModeAnalysis,
		Query:         in.ClinicalText,
		Chunks:        chunks,
		Symptoms:      matched,
		MaxChunkChars: r.cfg.MaxChunkChars,
	})

	text, err := r.generate(ctx, prompt, in.Timeout, r.cfg.AnalysisMaxTokens)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &Answer{Text: text, Sources: chunks, MatchedSymptoms: matched}, nil
}

func (r *Responder) matchSymptoms(text string) []domain.SymptomEntry {
	if r.symptoms == nil {
		return nil
	}
	return r.symptoms.Match(text)
}

// retrieve never fails: an unreachable knowledge base only means the prompt
// carries no reference documents.
func (r *Responder) retrieve(ctx context.Context, query string) []domain.ScoredChunk {
	if r.embedder == nil || r.searcher == nil {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "responder.retrieve", telemetry.SpanAttributes{Operation: "retrieve"})
	defer span.End()

	log := logger.FromContext(ctx)

	embedding, err := r.embedQuery(ctx, query)
	if err != nil {
		log.Warn("query embedding failed, continuing without context", zap.Error(err))
		return nil
	}

	chunks, err := r.searcher.Query(ctx, embedding, r.cfg.TopK)
	if err != nil {
		log.Warn("knowledge search failed, continuing without context", zap.Error(err))
		return nil
	}

	span.SetData("chunks", len(chunks))
	return chunks
}

func (r *Responder) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := normalizeQuery(query)
	if cached, ok := r.queryCache.Get(key); ok {
		return cached.([]float32), nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	r.queryCache.SetDefault(key, embedding)
	return embedding, nil
}

func (r *Responder) generate(ctx context.Context, prompt Prompt, timeout time.Duration, maxTokens int) (string, error) {
	if timeout <= 0 {
		timeout = r.cfg.GenerationTimeout
	}

	ctx, span := telemetry.StartSpan(ctx, "responder.generate", telemetry.SpanAttributes{Operation: "generate"})
	defer span.End()

	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := r.generator.Generate(genCtx, prompt, GenerateOptions{
		MaxTokens:   maxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("generator returned an empty completion")
	}
	if err != nil {
		if genCtx.Err() != nil {
			err = fmt.Errorf("generation timed out after %s: %w", timeout, err)
		}
		logger.FromContext(ctx).Error("generation failed",
			zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", domain.WithCause(domain.ErrGenerationUnavailable, err)
	}

	logger.FromContext(ctx).Debug("generation completed", zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
