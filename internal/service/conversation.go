package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/logger"
	"go.uber.org/zap"
)

// SessionRepository persists chat sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetByIDForUpdate locks the session row until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
}

// MessageRepository persists chat messages.
type MessageRepository interface {
	// Append stores m with the next position of its session. CreatedAt is
	// raised to the session's latest timestamp when it would go backwards;
	// the stored position and timestamp are written back into m.
	Append(ctx context.Context, m *domain.Message) error
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Message, error)
}

// ConversationService owns sessions and their message history.
type ConversationService struct {
	sessions SessionRepository
	messages MessageRepository
	txRunner TxRunner
	uuidGen  UUIDGenerator
	now      Clock
}

// NewConversationService creates a new ConversationService instance
func NewConversationService(sessions SessionRepository, messages MessageRepository, txRunner TxRunner) *ConversationService {
	return NewConversationServiceWithDeps(sessions, messages, txRunner, &DefaultUUIDGenerator{}, utcNow)
}

// NewConversationServiceWithDeps creates a ConversationService with custom id and time sources (for testing)
func NewConversationServiceWithDeps(
	sessions SessionRepository,
	messages MessageRepository,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
	now Clock,
) *ConversationService {
	return &ConversationService{
		sessions: sessions,
		messages: messages,
		txRunner: txRunner,
		uuidGen:  uuidGen,
		now:      now,
	}
}

// CreateSession starts a new, empty session for userID.
func (s *ConversationService) CreateSession(ctx context.Context, userID, title string) (*domain.Session, error) {
	if userID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	session := domain.NewSession(s.uuidGen.NewString(), userID, title, s.now())
	if err := domain.ValidateSession(session); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid session", err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger.FromContext(ctx).Info("session created", zap.String("session_id", session.ID))
	return session, nil
}

// GetSession returns the session if userID owns it.
func (s *ConversationService) GetSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.OwnedBy(userID) {
		return nil, domain.ErrSessionForbidden
	}
	return session, nil
}

// ListSessions returns the user's sessions grouped by recency.
func (s *ConversationService) ListSessions(ctx context.Context, userID string) (domain.SessionGroups, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return domain.SessionGroups{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	return domain.GroupSessionsByRecency(sessions, s.now().Local()), nil
}

// ListMessages returns the session history, oldest first.
func (s *ConversationService) ListMessages(ctx context.Context, userID, sessionID string) ([]*domain.Message, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// AppendMessage adds one message to a session the user owns.
func (s *ConversationService) AppendMessage(ctx context.Context, userID, sessionID string, role domain.Role, text string) (*domain.Message, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyMessage
	}

	var appended *domain.Message
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := lockOwnedSession(ctx, repos.Sessions(), userID, sessionID); err != nil {
			return err
		}
		msg, err := s.append(ctx, repos.Messages(), sessionID, role, text)
		if err != nil {
			return err
		}
		appended = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appended, nil
}

// AppendExchange stores a user message and the assistant reply as one unit.
// Readers never observe only half of the exchange.
func (s *ConversationService) AppendExchange(ctx context.Context, userID, sessionID, userText, assistantText string) (*domain.Message, *domain.Message, error) {
	if strings.TrimSpace(userText) == "" || strings.TrimSpace(assistantText) == "" {
		return nil, nil, domain.ErrEmptyMessage
	}

	var userMsg, assistantMsg *domain.Message
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := lockOwnedSession(ctx, repos.Sessions(), userID, sessionID); err != nil {
			return err
		}

		var err error
		if userMsg, err = s.append(ctx, repos.Messages(), sessionID, domain.RoleUser, userText); err != nil {
			return err
		}
		if assistantMsg, err = s.append(ctx, repos.Messages(), sessionID, domain.RoleAssistant, assistantText); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return userMsg, assistantMsg, nil
}

func (s *ConversationService) append(ctx context.Context, repo MessageRepository, sessionID string, role domain.Role, text string) (*domain.Message, error) {
	msg := domain.NewMessage(s.uuidGen.NewString(), sessionID, role, text, s.now())
	if err := domain.ValidateMessage(msg); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid message", err)
	}
	if err := repo.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return msg, nil
}

func lockOwnedSession(ctx context.Context, repo SessionRepository, userID, sessionID string) error {
	if sessionID == "" {
		return domain.ErrSessionNotFound
	}
	session, err := repo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.OwnedBy(userID) {
		return domain.ErrSessionForbidden
	}
	return nil
}
