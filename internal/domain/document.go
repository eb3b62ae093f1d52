package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DocumentFormat is a whitelisted ingestion format.
type DocumentFormat string

const (
	FormatText     DocumentFormat = "txt"
	FormatMarkdown DocumentFormat = "md"
	FormatPDF      DocumentFormat = "pdf"
	FormatDOCX     DocumentFormat = "docx"
	FormatRTF      DocumentFormat = "rtf"
	FormatCSV      DocumentFormat = "csv"
	FormatTSV      DocumentFormat = "tsv"
	FormatJSON     DocumentFormat = "json"
)

var formatsByExtension = map[string]DocumentFormat{
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".rtf":      FormatRTF,
	".csv":      FormatCSV,
	".tsv":      FormatTSV,
	".json":     FormatJSON,
}

// FormatFromFilename resolves the ingestion format from a file extension.
func FormatFromFilename(filename string) (DocumentFormat, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if format, ok := formatsByExtension[ext]; ok {
		return format, nil
	}
	if ext == "" {
		return "", NewDomainErrorWithCause(ErrCodeUnsupportedFormat, ErrUnsupportedFormat.Message,
			fmt.Errorf("file %q has no extension", filename))
	}
	return "", NewDomainErrorWithCause(ErrCodeUnsupportedFormat, ErrUnsupportedFormat.Message,
		fmt.Errorf("extension %q is not accepted", ext))
}

// Document is the metadata of one ingested file. ID is the hex sha256 of the
// raw bytes, so identical uploads resolve to the same document.
type Document struct {
	ID          string
	Filename    string
	Format      DocumentFormat
	Title       string
	Description string
	UploadedBy  string
	StorageKey  string
	SizeBytes   int64
	ChunkCount  int
	CreatedAt   time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if len(d.ID) != 64 {
		return fmt.Errorf("document ID must be a sha256 hex digest")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if _, err := FormatFromFilename("x." + string(d.Format)); err != nil {
		return fmt.Errorf("document Format is invalid: %s", d.Format)
	}

	return nil
}

// DocumentChunk is a span of a document's extracted text with its embedding.
// Identity is (DocumentID, Offset); Offset counts runes into the extracted text.
type DocumentChunk struct {
	DocumentID string
	Filename   string
	Offset     int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredChunk is a similarity search hit.
type ScoredChunk struct {
	Chunk DocumentChunk
	Score float64
}
