package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	db dbtx
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: pool}
}

func NewSessionRepositoryWithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, user_id, title, created_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.Title, s.CreatedAt,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.get(ctx, `SELECT id, user_id, title, created_at FROM chat_sessions WHERE id = $1`, id)
}

// GetByIDForUpdate locks the row; only meaningful inside a transaction.
func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Session, error) {
	return r.get(ctx, `SELECT id, user_id, title, created_at FROM chat_sessions WHERE id = $1 FOR UPDATE`, id)
}

func (r *SessionRepository) get(ctx context.Context, query, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByUser returns the user's sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, title, created_at
		 FROM chat_sessions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*domain.Session, 0)
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}
