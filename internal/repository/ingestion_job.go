package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, user_id, storage_key, filename, title, description, status, retries, error, document_id, chunks_indexed, created_at, processed_at`

type IngestionJobRepository struct {
	db dbtx
}

func NewIngestionJobRepository(pool *pgxpool.Pool) *IngestionJobRepository {
	return &IngestionJobRepository{db: pool}
}

func NewIngestionJobRepositoryWithTx(tx pgx.Tx) *IngestionJobRepository {
	return &IngestionJobRepository{db: tx}
}

func (r *IngestionJobRepository) Create(ctx context.Context, job *domain.IngestionJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ingestion_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.UserID, job.StorageKey, job.Filename, job.Title, job.Description, job.Status,
		job.Retries, nullableString(job.Error), nullableString(job.DocumentID), job.ChunksIndexed,
		job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *IngestionJobRepository) GetByID(ctx context.Context, id string) (*domain.IngestionJob, error) {
	job, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM ingestion_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending moves up to limit pending jobs to processing and returns them.
// Rows locked by another worker are skipped.
func (r *IngestionJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IngestionJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM ingestion_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE ingestion_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE ingestion_jobs.id = cte.id
		 RETURNING ingestion_jobs.id, ingestion_jobs.user_id, ingestion_jobs.storage_key, ingestion_jobs.filename,
		           ingestion_jobs.title, ingestion_jobs.description, ingestion_jobs.status, ingestion_jobs.retries,
		           ingestion_jobs.error, ingestion_jobs.document_id, ingestion_jobs.chunks_indexed,
		           ingestion_jobs.created_at, ingestion_jobs.processed_at`,
		domain.IngestionJobPending, limit, domain.IngestionJobProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.IngestionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Complete marks the job completed with the document it produced.
func (r *IngestionJobRepository) Complete(ctx context.Context, id, documentID string, chunksIndexed int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_jobs
		 SET status = $1, error = NULL, document_id = $2, chunks_indexed = $3, processed_at = $4
		 WHERE id = $5`,
		domain.IngestionJobCompleted, documentID, chunksIndexed, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// UpdateStatus sets the status and error message. Terminal statuses also
// stamp processed_at.
func (r *IngestionJobRepository) UpdateStatus(ctx context.Context, id string, status domain.IngestionJobStatus, errMsg string) error {
	if !status.Valid() {
		return domain.ErrInvalidJobStatus
	}

	var processedAt *time.Time
	if status.Terminal() {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// RecordProgress stores how many chunks a failed run managed to commit.
func (r *IngestionJobRepository) RecordProgress(ctx context.Context, id, documentID string, chunksIndexed int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_jobs SET document_id = $1, chunks_indexed = $2 WHERE id = $3`,
		nullableString(documentID), chunksIndexed, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *IngestionJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.IngestionJob, error) {
	var job domain.IngestionJob
	var status string
	var errMsg, documentID pgtype.Text
	if err := row.Scan(&job.ID, &job.UserID, &job.StorageKey, &job.Filename, &job.Title, &job.Description,
		&status, &job.Retries, &errMsg, &documentID, &job.ChunksIndexed, &job.CreatedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	job.Status = domain.IngestionJobStatus(status)
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if documentID.Valid {
		job.DocumentID = documentID.String
	}
	return &job, nil
}
