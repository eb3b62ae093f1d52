package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var uploadNow = time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

func newUploadFixture(ids ...string) (*UploadService, *MockObjectStorage, *MockIngestionJobRepository) {
	storage := new(MockObjectStorage)
	jobs := new(MockIngestionJobRepository)
	svc := NewUploadServiceWithDeps(storage, jobs, 1<<20, NewMockUUIDGenerator(ids...), fixedClock(uploadNow))
	return svc, storage, jobs
}

func TestUploadService_InitUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("presigns key under user and job", func(t *testing.T) {
		svc, storage, _ := newUploadFixture("job-1")
		storage.On("GenerateUploadURL", mock.Anything, "uploads/user-1/job-1/guide.pdf", "application/pdf").
			Return("https://s3.example.com/presigned", nil)

		result, err := svc.InitUpload(ctx, InitUploadInput{UserID: "user-1", Filename: `C:\docs\guide.pdf`, ContentType: "application/pdf"})
		require.NoError(t, err)
		assert.Equal(t, "job-1", result.JobID)
		assert.Equal(t, "uploads/user-1/job-1/guide.pdf", result.StorageKey)
		assert.Equal(t, "https://s3.example.com/presigned", result.UploadURL)
	})

	t.Run("unsupported format", func(t *testing.T) {
		svc, storage, _ := newUploadFixture("job-1")

		_, err := svc.InitUpload(ctx, InitUploadInput{UserID: "user-1", Filename: "setup.exe"})
		assert.Equal(t, domain.ErrCodeUnsupportedFormat, domain.ErrorCode(err))
		storage.AssertNotCalled(t, "GenerateUploadURL", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("presign failure", func(t *testing.T) {
		svc, storage, _ := newUploadFixture("job-1")
		storage.On("GenerateUploadURL", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("no credentials"))

		_, err := svc.InitUpload(ctx, InitUploadInput{UserID: "user-1", Filename: "a.txt"})
		assert.ErrorContains(t, err, "no credentials")
	})

	t.Run("storage not configured", func(t *testing.T) {
		svc := NewUploadService(nil, new(MockIngestionJobRepository), 0)

		_, err := svc.InitUpload(ctx, InitUploadInput{UserID: "user-1", Filename: "a.txt"})
		assert.ErrorIs(t, err, domain.ErrStorageNotConfigured)
	})
}

func TestUploadService_CompleteUpload(t *testing.T) {
	ctx := context.Background()
	key := "uploads/user-1/job-1/guide.pdf"
	valid := CompleteUploadInput{UserID: "user-1", JobID: "job-1", StorageKey: key, Filename: "guide.pdf", Title: " MS guide "}

	t.Run("queues pending job", func(t *testing.T) {
		svc, storage, jobs := newUploadFixture()
		storage.On("HeadObject", mock.Anything, key).Return(&ObjectMetadata{ContentLength: 2048}, nil)
		jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.IngestionJob) bool {
			return j.ID == "job-1" && j.Status == domain.IngestionJobPending && j.StorageKey == key
		})).Return(nil)

		job, err := svc.CompleteUpload(ctx, valid)
		require.NoError(t, err)
		assert.Equal(t, "MS guide", job.Title)
		assert.Equal(t, uploadNow, job.CreatedAt)
		jobs.AssertExpectations(t)
	})

	tests := []struct {
		name     string
		input    CompleteUploadInput
		setup    func(storage *MockObjectStorage)
		wantCode string
	}{
		{
			name:     "missing job id",
			input:    CompleteUploadInput{UserID: "user-1", StorageKey: key, Filename: "guide.pdf"},
			wantCode: domain.ErrCodeValidation,
		},
		{
			name:     "key of another user",
			input:    CompleteUploadInput{UserID: "user-2", JobID: "job-1", StorageKey: key, Filename: "guide.pdf"},
			wantCode: domain.ErrCodeForbidden,
		},
		{
			name:     "unsupported filename",
			input:    CompleteUploadInput{UserID: "user-1", JobID: "job-1", StorageKey: key, Filename: "guide.exe"},
			wantCode: domain.ErrCodeUnsupportedFormat,
		},
		{
			name:  "object missing",
			input: valid,
			setup: func(storage *MockObjectStorage) {
				storage.On("HeadObject", mock.Anything, key).Return(nil, errors.New("NotFound"))
			},
			wantCode: domain.ErrCodeNotFound,
		},
		{
			name:  "object too large",
			input: valid,
			setup: func(storage *MockObjectStorage) {
				storage.On("HeadObject", mock.Anything, key).Return(&ObjectMetadata{ContentLength: 2 << 20}, nil)
			},
			wantCode: domain.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, storage, jobs := newUploadFixture()
			if tt.setup != nil {
				tt.setup(storage)
			}

			_, err := svc.CompleteUpload(ctx, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestUploadService_GetJob(t *testing.T) {
	ctx := context.Background()
	svc, _, jobs := newUploadFixture()
	job := domain.NewIngestionJob("job-1", "user-1", "uploads/user-1/job-1/a.txt", "a.txt", uploadNow)
	jobs.On("GetByID", mock.Anything, "job-1").Return(job, nil)
	jobs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrJobNotFound)

	got, err := svc.GetJob(ctx, "user-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, job, got)

	_, err = svc.GetJob(ctx, "user-2", "job-1")
	assert.ErrorIs(t, err, domain.ErrJobForbidden)

	_, err = svc.GetJob(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
