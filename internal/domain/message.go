package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is an immutable entry in a session. Position is 1-based and dense
// within the session.
type Message struct {
	ID        string
	SessionID string
	Role      Role
	Content   string
	Position  int
	CreatedAt time.Time
}

// NewMessage creates a new Message instance
func NewMessage(id, sessionID string, role Role, content string, createdAt time.Time) *Message {
	return &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
	}
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("message ID is required")
	}

	if m.SessionID == "" {
		return fmt.Errorf("message SessionID is required")
	}

	if !m.Role.Valid() {
		return fmt.Errorf("message Role is invalid: %s", m.Role)
	}

	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("message Content is required")
	}

	return nil
}

// RecentHistory returns the last n messages in their original order.
func RecentHistory(messages []*Message, n int) []*Message {
	if n <= 0 {
		return nil
	}
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
