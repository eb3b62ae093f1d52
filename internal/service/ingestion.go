package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/extract"
	"github.com/cloo-solutions/msassist/internal/logger"
	"github.com/cloo-solutions/msassist/internal/pagination"
	"github.com/cloo-solutions/msassist/internal/telemetry"
	"go.uber.org/zap"
)

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	// Upsert inserts the document or refreshes its metadata, keeping the
	// original creation time and chunk count.
	Upsert(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.Document, error)
	// RefreshChunkCount recomputes chunk_count from the stored chunks.
	RefreshChunkCount(ctx context.Context, id string) error
}

// ChunkRepository is the knowledge store of embedded document chunks.
type ChunkRepository interface {
	// Upsert writes chunks keyed by (document ID, offset) and returns how
	// many were written.
	Upsert(ctx context.Context, chunks []domain.DocumentChunk) (int, error)
	Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
}

// BatchEmbedder embeds many texts in one call, in input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ObjectArchiver keeps a copy of the raw upload.
type ObjectArchiver interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) error
}

// IngestConfig controls chunking and write batching.
type IngestConfig struct {
	Chunk     ChunkConfig
	BatchSize int
}

// IngestInput is one uploaded document.
type IngestInput struct {
	UserID      string
	Filename    string
	Title       string
	Description string
	Data        []byte
	// StorageKey is set when the bytes already live in object storage.
	StorageKey string
}

// IngestResult reports what reached the knowledge store. ChunksIndexed is
// the number of chunks actually committed, also when an error is returned.
type IngestResult struct {
	DocumentID    string
	Filename      string
	ChunksIndexed int
}

// IngestionService turns documents into embedded chunks.
type IngestionService struct {
	documents DocumentRepository
	txRunner  TxRunner
	embedder  BatchEmbedder
	archiver  ObjectArchiver
	cfg       IngestConfig
	now       Clock
}

// NewIngestionService creates a new IngestionService. archiver may be nil.
func NewIngestionService(
	documents DocumentRepository,
	txRunner TxRunner,
	embedder BatchEmbedder,
	archiver ObjectArchiver,
	cfg IngestConfig,
) *IngestionService {
	if cfg.Chunk.Size <= 0 {
		cfg.Chunk = DefaultChunkConfig()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &IngestionService{
		documents: documents,
		txRunner:  txRunner,
		embedder:  embedder,
		archiver:  archiver,
		cfg:       cfg,
		now:       utcNow,
	}
}

// Ingest extracts, chunks, embeds and stores a document. Nothing is written
// unless every chunk was embedded; a failed write batch leaves the earlier
// batches committed and reports their count.
func (s *IngestionService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	result := &IngestResult{Filename: in.Filename}

	format, err := domain.FormatFromFilename(in.Filename)
	if err != nil {
		return result, err
	}
	if len(in.Data) == 0 {
		return result, domain.ErrEmptyDocument
	}

	sum := sha256.Sum256(in.Data)
	result.DocumentID = hex.EncodeToString(sum[:])

	ctx, span := telemetry.StartSpan(ctx, "ingestion.ingest", telemetry.SpanAttributes{
		UserID:     in.UserID,
		DocumentID: result.DocumentID,
		Operation:  "ingest",
	})
	defer span.End()

	ctx = logger.AddFields(ctx, zap.String("document_id", result.DocumentID), zap.String("filename", in.Filename))
	log := logger.FromContext(ctx)

	text, err := extract.Text(format, in.Data)
	if err != nil {
		span.SetError(err)
		return result, domain.WithCause(domain.ErrIngestionFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return result, domain.ErrEmptyDocument
	}

	pieces := chunkText(text, s.cfg.Chunk)
	if len(pieces) == 0 {
		return result, domain.ErrEmptyDocument
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		span.SetError(err)
		return result, domain.WithCause(domain.ErrIngestionFailed, fmt.Errorf("embedding failed: %w", err))
	}
	if len(embeddings) != len(pieces) {
		return result, domain.WithCause(domain.ErrIngestionFailed,
			fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(pieces)))
	}

	now := s.now()
	doc := &domain.Document{
		ID:          result.DocumentID,
		Filename:    in.Filename,
		Format:      format,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		UploadedBy:  in.UserID,
		StorageKey:  in.StorageKey,
		SizeBytes:   int64(len(in.Data)),
		CreatedAt:   now,
	}
	if doc.Title == "" {
		doc.Title = in.Filename
	}
	if doc.StorageKey == "" {
		doc.StorageKey = s.archive(ctx, doc, in.Data)
	}

	chunks := make([]domain.DocumentChunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.DocumentChunk{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Offset:     p.Offset,
			Content:    p.Content,
			Embedding:  embeddings[i],
			CreatedAt:  now,
		}
	}

	for start := 0; start < len(chunks); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(chunks))
		batch := chunks[start:end]

		var written int
		err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			// The document row commits with the first batch, so a document
			// never becomes visible without chunks.
			if start == 0 {
				if err := repos.Documents().Upsert(ctx, doc); err != nil {
					return fmt.Errorf("failed to store document: %w", err)
				}
			}
			n, err := repos.Chunks().Upsert(ctx, batch)
			if err != nil {
				return err
			}
			written = n
			return repos.Documents().RefreshChunkCount(ctx, doc.ID)
		})
		if err != nil {
			log.Error("chunk batch failed",
				zap.Int("committed", result.ChunksIndexed), zap.Int("batch_start", start), zap.Error(err))
			span.SetError(err)
			return result, domain.WithCause(domain.ErrIngestionFailed,
				fmt.Errorf("failed to store chunks %d-%d: %w", start, end-1, err))
		}
		result.ChunksIndexed += written
	}

	span.SetData("chunks", result.ChunksIndexed)
	log.Info("document ingested", zap.Int("chunks", result.ChunksIndexed))
	return result, nil
}

// GetDocument returns a document's metadata.
func (s *IngestionService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.documents.GetByID(ctx, id)
}

// ListDocuments returns one newest-first page of documents.
func (s *IngestionService) ListDocuments(ctx context.Context, cursor string, limit int) (pagination.Page[*domain.Document], error) {
	c, err := pagination.Decode(cursor)
	if err != nil {
		return pagination.Page[*domain.Document]{}, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit = pagination.ClampLimit(limit)
	docs, err := s.documents.List(ctx, c, limit+1)
	if err != nil {
		return pagination.Page[*domain.Document]{}, fmt.Errorf("failed to list documents: %w", err)
	}

	return pagination.NewPage(docs, limit, func(d *domain.Document) (string, time.Time) {
		return d.ID, d.CreatedAt
	}), nil
}

// archive stores the raw bytes when object storage is configured. Failures
// are logged and ingestion continues without an archived copy.
func (s *IngestionService) archive(ctx context.Context, doc *domain.Document, data []byte) string {
	if s.archiver == nil {
		return ""
	}

	key := fmt.Sprintf("documents/%s/%s", doc.ID, doc.Filename)
	if err := s.archiver.PutObject(ctx, key, contentTypeFor(doc.Format), data); err != nil {
		logger.FromContext(ctx).Warn("document archive failed", zap.String("key", key), zap.Error(err))
		telemetry.CaptureError(ctx, err)
		return ""
	}
	return key
}

func contentTypeFor(format domain.DocumentFormat) string {
	switch format {
	case domain.FormatPDF:
		return "application/pdf"
	case domain.FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case domain.FormatRTF:
		return "application/rtf"
	case domain.FormatCSV:
		return "text/csv"
	case domain.FormatTSV:
		return "text/tab-separated-values"
	case domain.FormatJSON:
		return "application/json"
	case domain.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
