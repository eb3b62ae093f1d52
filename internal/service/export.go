package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloo-solutions/msassist/internal/export"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ExportResult is a rendered transcript file.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ExportService renders session transcripts for download.
type ExportService struct {
	conversations Conversations
}

// NewExportService creates a new ExportService instance
func NewExportService(conversations Conversations) *ExportService {
	return &ExportService{conversations: conversations}
}

// Export renders the session's messages in the requested format. Only the
// session owner may export it.
func (s *ExportService) Export(ctx context.Context, userID, sessionID string, format export.Format) (*ExportResult, error) {
	formatter, err := export.New(format)
	if err != nil {
		return nil, err
	}

	session, err := s.conversations.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.conversations.ListMessages(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	data, err := formatter.Format(session, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to export session: %w", err)
	}

	name := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.ToLower(session.Title), "-"), "-")
	if name == "" {
		name = "chat-session"
	}

	return &ExportResult{
		Data:        data,
		ContentType: formatter.ContentType(),
		Filename:    name + formatter.FileExtension(),
	}, nil
}
