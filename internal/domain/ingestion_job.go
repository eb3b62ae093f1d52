package domain

import (
	"fmt"
	"time"
)

// IngestionJobStatus represents the lifecycle state of an asynchronous ingestion
type IngestionJobStatus string

const (
	IngestionJobPending    IngestionJobStatus = "pending"
	IngestionJobProcessing IngestionJobStatus = "processing"
	IngestionJobCompleted  IngestionJobStatus = "completed"
	IngestionJobFailed     IngestionJobStatus = "failed"
)

// Valid reports whether s is a known status.
func (s IngestionJobStatus) Valid() bool {
	switch s {
	case IngestionJobPending, IngestionJobProcessing, IngestionJobCompleted, IngestionJobFailed:
		return true
	}
	return false
}

// Terminal reports whether no further processing will happen.
func (s IngestionJobStatus) Terminal() bool {
	return s == IngestionJobCompleted || s == IngestionJobFailed
}

// IngestionJob tracks a document uploaded straight to object storage and
// ingested by the background worker.
type IngestionJob struct {
	ID            string
	UserID        string
	StorageKey    string
	Filename      string
	Title         string
	Description   string
	Status        IngestionJobStatus
	Retries       int32
	Error         string
	DocumentID    string
	ChunksIndexed int
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// NewIngestionJob creates a pending IngestionJob
func NewIngestionJob(id, userID, storageKey, filename string, createdAt time.Time) *IngestionJob {
	return &IngestionJob{
		ID:         id,
		UserID:     userID,
		StorageKey: storageKey,
		Filename:   filename,
		Status:     IngestionJobPending,
		CreatedAt:  createdAt,
	}
}

// ValidateIngestionJob validates an IngestionJob instance
func ValidateIngestionJob(j *IngestionJob) error {
	if j == nil {
		return fmt.Errorf("ingestion job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("ingestion job ID is required")
	}

	if j.UserID == "" {
		return fmt.Errorf("ingestion job UserID is required")
	}

	if j.StorageKey == "" {
		return fmt.Errorf("ingestion job StorageKey is required")
	}

	if _, err := FormatFromFilename(j.Filename); err != nil {
		return fmt.Errorf("ingestion job Filename is not ingestible: %s", j.Filename)
	}

	if !j.Status.Valid() {
		return fmt.Errorf("ingestion job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("ingestion job Retries cannot be negative")
	}

	return nil
}
