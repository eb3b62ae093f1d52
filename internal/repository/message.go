package repository

import (
	"context"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db dbtx
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: pool}
}

func NewMessageRepositoryWithTx(tx pgx.Tx) *MessageRepository {
	return &MessageRepository{db: tx}
}

// Append stores m at the session's next position. The timestamp never goes
// below the session's latest message, so position and time order agree.
// Callers serialize appends per session by locking the session row.
func (r *MessageRepository) Append(ctx context.Context, m *domain.Message) error {
	return r.db.QueryRow(ctx,
		`WITH last AS (
			 SELECT COALESCE(MAX(position), 0) AS position, MAX(created_at) AS created_at
			 FROM chat_messages
			 WHERE session_id = $2
		 )
		 INSERT INTO chat_messages (id, session_id, role, content, position, created_at)
		 SELECT $1, $2, $3, $4, last.position + 1, GREATEST($5::timestamptz, COALESCE(last.created_at, $5::timestamptz))
		 FROM last
		 RETURNING position, created_at`,
		m.ID, m.SessionID, m.Role, m.Content, m.CreatedAt,
	).Scan(&m.Position, &m.CreatedAt)
}

// ListBySession returns the session's messages in append order.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, role, content, position, created_at
		 FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY position ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.Position, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
