package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/logger"
	"go.uber.org/zap"
)

const maxGeneratedTitleRunes = 60

// TitleGenerator names a new session after its first message.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
}

// Conversations is the conversation store used by the chat flow.
type Conversations interface {
	CreateSession(ctx context.Context, userID, title string) (*domain.Session, error)
	GetSession(ctx context.Context, userID, sessionID string) (*domain.Session, error)
	ListMessages(ctx context.Context, userID, sessionID string) ([]*domain.Message, error)
	AppendExchange(ctx context.Context, userID, sessionID, userText, assistantText string) (*domain.Message, *domain.Message, error)
}

// AnswerProvider produces grounded answers.
type AnswerProvider interface {
	Respond(ctx context.Context, in RespondInput) (*Answer, error)
	AnalyzeSymptoms(ctx context.Context, in AnalyzeInput) (*Answer, error)
}

// SendInput is one chat turn. An empty SessionID starts a new session.
type SendInput struct {
	UserID    string
	SessionID string
	Query     string
	Timeout   time.Duration
}

// SendResult is the persisted turn.
type SendResult struct {
	Session          *domain.Session
	UserMessage      *domain.Message
	AssistantMessage *domain.Message
	Sources          []domain.ScoredChunk
	MatchedSymptoms  []domain.SymptomEntry
	// Created reports whether the session was started by this turn.
	Created bool
}

// AnalyzeRequest is a symptom analysis, optionally recorded in a session.
type AnalyzeRequest struct {
	UserID       string
	SessionID    string
	ClinicalText string
	Timeout      time.Duration
}

// AnalyzeResult holds the analysis; the session fields are nil for
// stateless requests.
type AnalyzeResult struct {
	Analysis         string
	MatchedSymptoms  []domain.SymptomEntry
	Sources          []domain.ScoredChunk
	Session          *domain.Session
	UserMessage      *domain.Message
	AssistantMessage *domain.Message
}

// ChatService runs chat turns end to end: session, answer, persistence.
type ChatService struct {
	conversations Conversations
	answers       AnswerProvider
	titles        TitleGenerator
	titleTimeout  time.Duration
}

// NewChatService creates a new ChatService. titles may be nil, in which case
// sessions are named heuristically.
func NewChatService(conversations Conversations, answers AnswerProvider, titles TitleGenerator, titleTimeout time.Duration) *ChatService {
	if titleTimeout <= 0 {
		titleTimeout = 5 * time.Second
	}
	return &ChatService{
		conversations: conversations,
		answers:       answers,
		titles:        titles,
		titleTimeout:  titleTimeout,
	}
}

// Send answers a question and appends the user/assistant pair to the session.
// Nothing is appended when answering fails.
func (s *ChatService) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	session, created, err := s.resolveSession(ctx, in.UserID, in.SessionID, in.Query)
	if err != nil {
		return nil, err
	}
	ctx = logger.AddFields(ctx, zap.String("session_id", session.ID))

	var history []*domain.Message
	if !created {
		history, err = s.conversations.ListMessages(ctx, in.UserID, session.ID)
		if err != nil {
			return nil, err
		}
	}

	answer, err := s.answers.Respond(ctx, RespondInput{
		SessionID: session.ID,
		Query:     in.Query,
		History:   history,
		Timeout:   in.Timeout,
	})
	if err != nil {
		return nil, err
	}

	userMsg, assistantMsg, err := s.conversations.AppendExchange(ctx, in.UserID, session.ID, in.Query, answer.Text)
	if err != nil {
		return nil, err
	}

	return &SendResult{
		Session:          session,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Sources:          answer.Sources,
		MatchedSymptoms:  answer.MatchedSymptoms,
		Created:          created,
	}, nil
}

// Analyze runs symptom analysis. With a SessionID the narrative and the
// analysis are recorded as a turn of that session.
func (s *ChatService) Analyze(ctx context.Context, in AnalyzeRequest) (*AnalyzeResult, error) {
	if strings.TrimSpace(in.ClinicalText) == "" {
		return nil, domain.ErrEmptyQuery
	}

	var session *domain.Session
	if in.SessionID != "" {
		var err error
		if session, err = s.conversations.GetSession(ctx, in.UserID, in.SessionID); err != nil {
			return nil, err
		}
	}

	answer, err := s.answers.AnalyzeSymptoms(ctx, AnalyzeInput{ClinicalText: in.ClinicalText, Timeout: in.Timeout})
	if err != nil {
		return nil, err
	}

	result := &AnalyzeResult{
		Analysis:        answer.Text,
		MatchedSymptoms: answer.MatchedSymptoms,
		Sources:         answer.Sources,
		Session:         session,
	}
	if session == nil {
		return result, nil
	}

	result.UserMessage, result.AssistantMessage, err = s.conversations.AppendExchange(ctx, in.UserID, session.ID, in.ClinicalText, answer.Text)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ChatService) resolveSession(ctx context.Context, userID, sessionID, firstMessage string) (*domain.Session, bool, error) {
	if sessionID != "" {
		session, err := s.conversations.GetSession(ctx, userID, sessionID)
		return session, false, err
	}

	session, err := s.conversations.CreateSession(ctx, userID, s.title(ctx, firstMessage))
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

func (s *ChatService) title(ctx context.Context, firstMessage string) string {
	if s.titles == nil {
		return domain.HeuristicTitle(firstMessage)
	}

	titleCtx, cancel := context.WithTimeout(ctx, s.titleTimeout)
	defer cancel()

	title, err := s.titles.GenerateTitle(titleCtx, firstMessage)
	title = cleanTitle(title)
	if err != nil || title == "" {
		logger.FromContext(ctx).Warn("title generation failed, using heuristic title", zap.Error(err))
		return domain.HeuristicTitle(firstMessage)
	}
	return title
}

func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, "\"'`")
	title = strings.Join(strings.Fields(title), " ")
	if runes := []rune(title); len(runes) > maxGeneratedTitleRunes {
		title = strings.TrimSpace(string(runes[:maxGeneratedTitleRunes]))
	}
	return title
}
