package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/repository"
)

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Ensure(ctx context.Context, token string) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")

	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (token) VALUES (?)
ON CONFLICT(token) DO NOTHING
`, token)
	if err != nil {
		log.Error("failed to ensure session: %v", err)
	}
	return err
}

func (r *sessionRepository) Exists(ctx context.Context, token string) (bool, error) {
	var t string
	err := r.db.QueryRowContext(ctx, `SELECT token FROM sessions WHERE token = ?`, token).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
