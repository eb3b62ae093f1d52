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

type chatFixture struct {
	conversations *MockConversations
	answers       *MockAnswerProvider
	titles        *MockTitleGenerator
	service       *ChatService
}

func newChatFixture(withTitles bool) *chatFixture {
	f := &chatFixture{
		conversations: new(MockConversations),
		answers:       new(MockAnswerProvider),
		titles:        new(MockTitleGenerator),
	}
	var titles TitleGenerator
	if withTitles {
		titles = f.titles
	}
	f.service = NewChatService(f.conversations, f.answers, titles, time.Second)
	return f
}

func exchange(sessionID, q, a string) (*domain.Message, *domain.Message) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := domain.NewMessage("m1", sessionID, domain.RoleUser, q, now)
	u.Position = 1
	as := domain.NewMessage("m2", sessionID, domain.RoleAssistant, a, now)
	as.Position = 2
	return u, as
}

func TestChatService_Send_NewSession(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(true)
	query := "I feel numbness in my arm"
	session := domain.NewSession("s1", "user-1", "Arm numbness", time.Now())
	answer := &Answer{Text: "Numbness is a common MS symptom.", MatchedSymptoms: []domain.SymptomEntry{{Name: "Numbness or tingling"}}}
	u, a := exchange("s1", query, answer.Text)

	f.titles.On("GenerateTitle", mock.Anything, query).Return(`"Arm numbness"`, nil)
	f.conversations.On("CreateSession", mock.Anything, "user-1", "Arm numbness").Return(session, nil)
	f.answers.On("Respond", mock.Anything, RespondInput{SessionID: "s1", Query: query}).Return(answer, nil)
	f.conversations.On("AppendExchange", mock.Anything, "user-1", "s1", query, answer.Text).Return(u, a, nil)

	result, err := f.service.Send(ctx, SendInput{UserID: "user-1", Query: query})
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, session, result.Session)
	assert.Equal(t, domain.RoleUser, result.UserMessage.Role)
	assert.Equal(t, domain.RoleAssistant, result.AssistantMessage.Role)
	assert.Len(t, result.MatchedSymptoms, 1)

	// a brand new session has no history to load
	f.conversations.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything)
	f.conversations.AssertExpectations(t)
	f.answers.AssertExpectations(t)
}

func TestChatService_Send_TitleFallback(t *testing.T) {
	ctx := context.Background()
	query := "What helps with MS fatigue? I am tired every afternoon."

	tests := []struct {
		name       string
		withTitles bool
		title      string
		titleErr   error
	}{
		{name: "generator disabled", withTitles: false},
		{name: "generator error", withTitles: true, titleErr: errors.New("rate limited")},
		{name: "blank title", withTitles: true, title: "  \"\" "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(tt.withTitles)
			session := domain.NewSession("s1", "user-1", "What helps with MS fatigue...", time.Now())
			u, a := exchange("s1", query, "Pacing.")

			f.titles.On("GenerateTitle", mock.Anything, query).Return(tt.title, tt.titleErr)
			f.conversations.On("CreateSession", mock.Anything, "user-1", "What helps with MS fatigue...").Return(session, nil)
			f.answers.On("Respond", mock.Anything, mock.Anything).Return(&Answer{Text: "Pacing."}, nil)
			f.conversations.On("AppendExchange", mock.Anything, "user-1", "s1", query, "Pacing.").Return(u, a, nil)

			_, err := f.service.Send(ctx, SendInput{UserID: "user-1", Query: query})
			require.NoError(t, err)
			f.conversations.AssertExpectations(t)
		})
	}
}

func TestChatService_Send_ExistingSessionLoadsHistory(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(true)
	session := domain.NewSession("s1", "user-1", "Fatigue", time.Now())
	history := historyOf(4)
	u, a := exchange("s1", "and at night?", "Try a cool room.")

	f.conversations.On("GetSession", mock.Anything, "user-1", "s1").Return(session, nil)
	f.conversations.On("ListMessages", mock.Anything, "user-1", "s1").Return(history, nil)
	f.answers.On("Respond", mock.Anything, RespondInput{SessionID: "s1", Query: "and at night?", History: history}).
		Return(&Answer{Text: "Try a cool room."}, nil)
	f.conversations.On("AppendExchange", mock.Anything, "user-1", "s1", "and at night?", "Try a cool room.").Return(u, a, nil)

	result, err := f.service.Send(ctx, SendInput{UserID: "user-1", SessionID: "s1", Query: "and at night?"})
	require.NoError(t, err)
	assert.False(t, result.Created)
	f.titles.AssertNotCalled(t, "GenerateTitle", mock.Anything, mock.Anything)
	f.conversations.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Send_GenerationFailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(false)
	session := domain.NewSession("s1", "user-1", "Fatigue", time.Now())

	f.conversations.On("GetSession", mock.Anything, "user-1", "s1").Return(session, nil)
	f.conversations.On("ListMessages", mock.Anything, "user-1", "s1").Return([]*domain.Message{}, nil)
	f.answers.On("Respond", mock.Anything, mock.Anything).
		Return(nil, domain.WithCause(domain.ErrGenerationUnavailable, context.DeadlineExceeded))

	result, err := f.service.Send(ctx, SendInput{UserID: "user-1", SessionID: "s1", Query: "hello", Timeout: time.Millisecond})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, domain.ErrCodeGenerationUnavailable, domain.ErrorCode(err))
	f.conversations.AssertNotCalled(t, "AppendExchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Send_SessionErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
	}{
		{name: "foreign session", err: domain.ErrSessionForbidden},
		{name: "missing session", err: domain.ErrSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(false)
			f.conversations.On("GetSession", mock.Anything, "user-1", "s1").Return(nil, tt.err)

			_, err := f.service.Send(ctx, SendInput{UserID: "user-1", SessionID: "s1", Query: "hello"})
			assert.ErrorIs(t, err, tt.err)
			f.answers.AssertNotCalled(t, "Respond", mock.Anything, mock.Anything)
		})
	}
}

func TestChatService_Send_EmptyQuery(t *testing.T) {
	f := newChatFixture(false)

	_, err := f.service.Send(context.Background(), SendInput{UserID: "user-1", Query: "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	f.conversations.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Analyze(t *testing.T) {
	ctx := context.Background()
	text := "Blurred vision and numb feet since last week"
	answer := &Answer{Text: "1. Symptom identification: ...", MatchedSymptoms: []domain.SymptomEntry{{Name: "Vision problems"}}}

	t.Run("stateless", func(t *testing.T) {
		f := newChatFixture(false)
		f.answers.On("AnalyzeSymptoms", mock.Anything, AnalyzeInput{ClinicalText: text}).Return(answer, nil)

		result, err := f.service.Analyze(ctx, AnalyzeRequest{UserID: "user-1", ClinicalText: text})
		require.NoError(t, err)
		assert.Equal(t, answer.Text, result.Analysis)
		assert.Nil(t, result.Session)
		assert.Nil(t, result.UserMessage)
		f.conversations.AssertNotCalled(t, "AppendExchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("recorded in session", func(t *testing.T) {
		f := newChatFixture(false)
		session := domain.NewSession("s1", "user-1", "Symptoms", time.Now())
		u, a := exchange("s1", text, answer.Text)

		f.conversations.On("GetSession", mock.Anything, "user-1", "s1").Return(session, nil)
		f.answers.On("AnalyzeSymptoms", mock.Anything, AnalyzeInput{ClinicalText: text}).Return(answer, nil)
		f.conversations.On("AppendExchange", mock.Anything, "user-1", "s1", text, answer.Text).Return(u, a, nil)

		result, err := f.service.Analyze(ctx, AnalyzeRequest{UserID: "user-1", SessionID: "s1", ClinicalText: text})
		require.NoError(t, err)
		assert.Equal(t, session, result.Session)
		assert.Equal(t, u, result.UserMessage)
		assert.Equal(t, a, result.AssistantMessage)
	})

	t.Run("foreign session", func(t *testing.T) {
		f := newChatFixture(false)
		f.conversations.On("GetSession", mock.Anything, "user-2", "s1").Return(nil, domain.ErrSessionForbidden)

		_, err := f.service.Analyze(ctx, AnalyzeRequest{UserID: "user-2", SessionID: "s1", ClinicalText: text})
		assert.ErrorIs(t, err, domain.ErrSessionForbidden)
		f.answers.AssertNotCalled(t, "AnalyzeSymptoms", mock.Anything, mock.Anything)
	})
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Arm numbness", cleanTitle(" \"Arm   numbness\"\n"))
	assert.Equal(t, "", cleanTitle("``"))
	long := cleanTitle("aaaaaaaaaa bbbbbbbbbb cccccccccc dddddddddd eeeeeeeeee ffffffffff gggg")
	assert.LessOrEqual(t, len([]rune(long)), maxGeneratedTitleRunes)
}
