package service

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExportService_Export(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	session := domain.NewSession("s1", "user-1", "Fatigue & heat?", now)
	messages := []*domain.Message{
		domain.NewMessage("m1", "s1", domain.RoleUser, "Why does heat make it worse?", now),
		domain.NewMessage("m2", "s1", domain.RoleAssistant, "Heat slows nerve conduction.", now),
	}

	t.Run("markdown", func(t *testing.T) {
		conversations := new(MockConversations)
		conversations.On("GetSession", mock.Anything, "user-1", "s1").Return(session, nil)
		conversations.On("ListMessages", mock.Anything, "user-1", "s1").Return(messages, nil)

		result, err := NewExportService(conversations).Export(ctx, "user-1", "s1", export.FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, "fatigue-heat.md", result.Filename)
		assert.Equal(t, "text/markdown; charset=utf-8", result.ContentType)
		assert.Contains(t, string(result.Data), "Heat slows nerve conduction.")
	})

	t.Run("untitled session", func(t *testing.T) {
		conversations := new(MockConversations)
		conversations.On("GetSession", mock.Anything, "user-1", "s2").Return(domain.NewSession("s2", "user-1", "???", now), nil)
		conversations.On("ListMessages", mock.Anything, "user-1", "s2").Return([]*domain.Message{}, nil)

		result, err := NewExportService(conversations).Export(ctx, "user-1", "s2", export.FormatPDF)
		require.NoError(t, err)
		assert.Equal(t, "chat-session.pdf", result.Filename)
		assert.Equal(t, "%PDF", string(result.Data[:4]))
	})

	t.Run("invalid format", func(t *testing.T) {
		conversations := new(MockConversations)

		_, err := NewExportService(conversations).Export(ctx, "user-1", "s1", export.Format("html"))
		assert.ErrorIs(t, err, domain.ErrInvalidExportFormat)
		conversations.AssertNotCalled(t, "GetSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("foreign session", func(t *testing.T) {
		conversations := new(MockConversations)
		conversations.On("GetSession", mock.Anything, "user-2", "s1").Return(nil, domain.ErrSessionForbidden)

		_, err := NewExportService(conversations).Export(ctx, "user-2", "s1", export.FormatMarkdown)
		assert.ErrorIs(t, err, domain.ErrSessionForbidden)
	})
}
