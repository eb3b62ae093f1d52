package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloo-solutions/msassist/internal/domain"
)

// ObjectStorage is the presigned-upload side of object storage.
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	HeadObject(ctx context.Context, key string) (*ObjectMetadata, error)
}

// ObjectMetadata describes a stored object.
type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	ETag          string
}

// IngestionJobRepository persists asynchronous ingestion requests.
type IngestionJobRepository interface {
	Create(ctx context.Context, job *domain.IngestionJob) error
	GetByID(ctx context.Context, id string) (*domain.IngestionJob, error)
}

type InitUploadInput struct {
	UserID      string
	Filename    string
	ContentType string
}

type InitUploadResult struct {
	JobID      string
	StorageKey string
	UploadURL  string
}

type CompleteUploadInput struct {
	UserID      string
	JobID       string
	StorageKey  string
	Filename    string
	Title       string
	Description string
}

// UploadService issues presigned uploads and queues them for ingestion.
type UploadService struct {
	storage  ObjectStorage
	jobs     IngestionJobRepository
	uuidGen  UUIDGenerator
	now      Clock
	maxBytes int64
}

// NewUploadService creates a new UploadService. storage may be nil when S3 is
// not configured; every call then fails with ErrStorageNotConfigured.
func NewUploadService(storage ObjectStorage, jobs IngestionJobRepository, maxBytes int64) *UploadService {
	return NewUploadServiceWithDeps(storage, jobs, maxBytes, &DefaultUUIDGenerator{}, utcNow)
}

// NewUploadServiceWithDeps creates an UploadService with custom id and time sources (for testing)
func NewUploadServiceWithDeps(storage ObjectStorage, jobs IngestionJobRepository, maxBytes int64, uuidGen UUIDGenerator, now Clock) *UploadService {
	return &UploadService{
		storage:  storage,
		jobs:     jobs,
		uuidGen:  uuidGen,
		now:      now,
		maxBytes: maxBytes,
	}
}

// InitUpload reserves a job ID and returns a URL the client PUTs the file to.
func (s *UploadService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	if s.storage == nil {
		return nil, domain.ErrStorageNotConfigured
	}
	if _, err := domain.FormatFromFilename(input.Filename); err != nil {
		return nil, err
	}

	jobID := s.uuidGen.NewString()
	storageKey := buildUploadKey(input.UserID, jobID, input.Filename)

	uploadURL, err := s.storage.GenerateUploadURL(ctx, storageKey, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return &InitUploadResult{
		JobID:      jobID,
		StorageKey: storageKey,
		UploadURL:  uploadURL,
	}, nil
}

// CompleteUpload checks the object landed and queues it for the worker.
func (s *UploadService) CompleteUpload(ctx context.Context, input CompleteUploadInput) (*domain.IngestionJob, error) {
	if s.storage == nil {
		return nil, domain.ErrStorageNotConfigured
	}
	if input.JobID == "" || input.StorageKey == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if _, err := domain.FormatFromFilename(input.Filename); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(input.StorageKey, uploadPrefix(input.UserID, input.JobID)) {
		return nil, domain.ErrJobForbidden
	}

	meta, err := s.storage.HeadObject(ctx, input.StorageKey)
	if err != nil {
		return nil, domain.WithCause(domain.ErrObjectNotFound, err)
	}
	if s.maxBytes > 0 && meta.ContentLength > s.maxBytes {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("uploaded file exceeds %d bytes", s.maxBytes))
	}

	job := domain.NewIngestionJob(input.JobID, input.UserID, input.StorageKey, input.Filename, s.now())
	job.Title = strings.TrimSpace(input.Title)
	job.Description = strings.TrimSpace(input.Description)
	if err := domain.ValidateIngestionJob(job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid ingestion job", err)
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob returns an ingestion job owned by userID.
func (s *UploadService) GetJob(ctx context.Context, userID, jobID string) (*domain.IngestionJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.ErrJobForbidden
	}
	return job, nil
}

func uploadPrefix(userID, jobID string) string {
	return fmt.Sprintf("uploads/%s/%s/", userID, jobID)
}

func buildUploadKey(userID, jobID, filename string) string {
	return uploadPrefix(userID, jobID) + path.Base(strings.ReplaceAll(filename, "\\", "/"))
}
