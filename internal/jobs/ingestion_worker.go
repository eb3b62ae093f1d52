package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/logger"
	"github.com/cloo-solutions/msassist/internal/service"
	"github.com/cloo-solutions/msassist/internal/telemetry"
	"go.uber.org/zap"
)

const (
	// MaxRetries is the maximum number of attempts for a failed job
	MaxRetries = 3

	claimBatchSize = 10
)

// IngestionJobRepository is the job queue the worker drains.
type IngestionJobRepository interface {
	// ClaimPending moves pending jobs to processing and returns them.
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestionJob, error)
	Complete(ctx context.Context, id, documentID string, chunksIndexed int) error
	UpdateStatus(ctx context.Context, id string, status domain.IngestionJobStatus, errMsg string) error
	RecordProgress(ctx context.Context, id, documentID string, chunksIndexed int) error
	IncrementRetries(ctx context.Context, id string) error
}

// ObjectFetcher downloads uploaded objects.
type ObjectFetcher interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// Ingester runs the ingestion pipeline on one document.
type Ingester interface {
	Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error)
}

// IngestionWorker ingests documents uploaded straight to object storage.
type IngestionWorker struct {
	repo     IngestionJobRepository
	objects  ObjectFetcher
	ingester Ingester
}

// NewIngestionWorker creates a new IngestionWorker instance
func NewIngestionWorker(repo IngestionJobRepository, objects ObjectFetcher, ingester Ingester) *IngestionWorker {
	return &IngestionWorker{
		repo:     repo,
		objects:  objects,
		ingester: ingester,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestionWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	logger.FromContext(ctx).Info("processing ingestion jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			logger.FromContext(ctx).Error("ingestion job bookkeeping failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	return nil
}

func (w *IngestionWorker) processJob(ctx context.Context, job *domain.IngestionJob) error {
	ctx = logger.AddFields(ctx, zap.String("job_id", job.ID), zap.String("user_id", job.UserID))
	ctx, span := telemetry.StartTransaction(ctx, "ingestion.job", "queue.process", telemetry.SpanAttributes{
		UserID: job.UserID,
		JobID:  job.ID,
	})
	defer span.End()

	data, err := w.objects.GetObject(ctx, job.StorageKey)
	if err != nil {
		return w.handleJobFailure(ctx, job, nil, fmt.Errorf("failed to download object: %w", err))
	}

	result, err := w.ingester.Ingest(ctx, service.IngestInput{
		UserID:      job.UserID,
		Filename:    job.Filename,
		Title:       job.Title,
		Description: job.Description,
		Data:        data,
		StorageKey:  job.StorageKey,
	})
	if err != nil {
		return w.handleJobFailure(ctx, job, result, err)
	}

	if err := w.repo.Complete(ctx, job.ID, result.DocumentID, result.ChunksIndexed); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	logger.FromContext(ctx).Info("ingestion job completed",
		zap.String("document_id", result.DocumentID), zap.Int("chunks", result.ChunksIndexed))
	return nil
}

// handleJobFailure requeues the job until MaxRetries attempts have been made.
// Errors that cannot succeed on retry fail the job at once.
func (w *IngestionWorker) handleJobFailure(ctx context.Context, job *domain.IngestionJob, result *service.IngestResult, jobErr error) error {
	log := logger.FromContext(ctx)
	log.Warn("ingestion job failed", zap.Error(jobErr))

	if result != nil && result.ChunksIndexed > 0 {
		if err := w.repo.RecordProgress(ctx, job.ID, result.DocumentID, result.ChunksIndexed); err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}
	}

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if permanent(jobErr) || job.Retries+1 >= MaxRetries {
		telemetry.CaptureError(ctx, jobErr)
		log.Error("ingestion job marked failed", zap.Int32("attempts", job.Retries+1))
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobFailed, jobErr.Error()); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}

func permanent(err error) bool {
	switch {
	case domain.ErrorCode(err) == domain.ErrCodeUnsupportedFormat:
		return true
	case errors.Is(err, domain.ErrEmptyDocument), errors.Is(err, domain.ErrObjectNotFound):
		return true
	}
	return false
}
