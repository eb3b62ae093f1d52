package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, filename, format, title, description, uploaded_by, storage_key, size_bytes, chunk_count, created_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// Upsert inserts the document or refreshes its descriptive metadata. The
// original creation time and chunk count are kept and written back into d.
func (r *DocumentRepository) Upsert(ctx context.Context, d *domain.Document) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     filename = EXCLUDED.filename,
		     title = EXCLUDED.title,
		     description = EXCLUDED.description,
		     storage_key = COALESCE(EXCLUDED.storage_key, documents.storage_key)
		 RETURNING chunk_count, created_at`,
		d.ID, d.Filename, d.Format, d.Title, d.Description, nullableString(d.UploadedBy),
		nullableString(d.StorageKey), d.SizeBytes, d.CreatedAt,
	).Scan(&d.ChunkCount, &d.CreatedAt)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

// List returns documents newest first, starting after cursor.
func (r *DocumentRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	args := []any{}

	if cursor != nil {
		query += ` WHERE (created_at, id) < ($1, $2)`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + placeholder(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*domain.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// RefreshChunkCount recomputes chunk_count from the stored chunks.
func (r *DocumentRepository) RefreshChunkCount(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET chunk_count = (SELECT COUNT(*) FROM document_chunks WHERE document_id = $1)
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var format string
	var uploadedBy, storageKey *string
	if err := row.Scan(&d.ID, &d.Filename, &format, &d.Title, &d.Description, &uploadedBy,
		&storageKey, &d.SizeBytes, &d.ChunkCount, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Format = domain.DocumentFormat(format)
	d.UploadedBy = stringOrEmpty(uploadedBy)
	d.StorageKey = stringOrEmpty(storageKey)
	return &d, nil
}
