package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository is the pgvector-backed knowledge store.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// Upsert writes chunks keyed by (document_id, chunk_offset). An existing
// chunk keeps its seq, so search tie-breaking is stable across re-ingestion.
func (r *ChunkRepository) Upsert(ctx context.Context, chunks []domain.DocumentChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		batch.Queue(
			`INSERT INTO document_chunks (document_id, filename, chunk_offset, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (document_id, chunk_offset) DO UPDATE SET
			     filename = EXCLUDED.filename,
			     content = EXCLUDED.content,
			     embedding = EXCLUDED.embedding`,
			c.DocumentID, c.Filename, c.Offset, c.Content, pgvector.NewVector(c.Embedding), createdAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for i := range chunks {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("chunk %d: %w", i, err)
		}
		written++
	}
	return written, nil
}

// Query returns the k chunks most similar to embedding by cosine similarity.
// Equal scores are ordered by insertion.
func (r *ChunkRepository) Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT document_id, filename, chunk_offset, content, created_at,
		        1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 ORDER BY embedding <=> $1 ASC, seq ASC
		 LIMIT $2`,
		pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, k)
	for rows.Next() {
		var sc domain.ScoredChunk
		if err := rows.Scan(&sc.Chunk.DocumentID, &sc.Chunk.Filename, &sc.Chunk.Offset,
			&sc.Chunk.Content, &sc.Chunk.CreatedAt, &sc.Score); err != nil {
			return nil, err
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`, documentID).Scan(&n)
	return n, err
}

// Reset deletes every chunk and document.
func (r *ChunkRepository) Reset(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM document_chunks`)
	if err != nil {
		return 0, err
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM documents`); err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
