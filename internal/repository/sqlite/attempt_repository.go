package sqlite

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

type attemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository creates a new AttemptRepository implementation
func NewAttemptRepository(db *sql.DB) repository.AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Count(ctx context.Context, playerKey models.PlayerKey, puzzleID int64) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("attempt_repo")

	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM attempts
WHERE player_key = ? AND puzzle_id = ?
`, playerKey, puzzleID).Scan(&count)
	if err != nil {
		log.Error("failed to count attempts: %v", err)
		return 0, err
	}
	return count, nil
}

func (r *attemptRepository) Insert(ctx context.Context, a models.Attempt) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("attempt_repo")
	log.Debug("inserting attempt: player=%s, puzzle=%d, number=%d", a.PlayerKey, a.PuzzleID, a.AttemptNumber)

	// The (player_key, puzzle_id, attempt_number) unique index is the
	// serialization point for concurrent guesses on the same pair.
	res, err := r.db.ExecContext(ctx, `
INSERT INTO attempts (player_key, puzzle_id, statement_id, attempt_number, is_correct)
VALUES (?, ?, ?, ?, ?)
`, a.PlayerKey, a.PuzzleID, a.StatementID, a.AttemptNumber, a.IsCorrect)
	if err != nil {
		if translated := translateConstraint(err); translated == repository.ErrDuplicate {
			log.Debug("attempt number %d already taken for player=%s puzzle=%d", a.AttemptNumber, a.PlayerKey, a.PuzzleID)
			return 0, translated
		}
		log.Error("failed to insert attempt: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get attempt id: %v", err)
		return 0, err
	}
	log.Debug("attempt inserted: id=%d", id)
	return id, nil
}

func (r *attemptRepository) List(ctx context.Context, filter models.AttemptFilter) ([]models.Attempt, error) {
	log := logger.FromContext(ctx).WithPrefix("attempt_repo")
	log.Debug("listing attempts: player=%s, puzzle=%d", filter.PlayerKey, filter.PuzzleID)

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query := sqlBuilder.Select(
		"id", "player_key", "puzzle_id", "statement_id", "attempt_number", "is_correct", "created_at",
	).From("attempts").
		Where(squirrel.Eq{"player_key": filter.PlayerKey})

	if filter.PuzzleID != 0 {
		query = query.Where(squirrel.Eq{"puzzle_id": filter.PuzzleID})
	}

	query = query.OrderBy("puzzle_id ASC", "attempt_number ASC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query = query.Limit(uint64(limit)).Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list attempts: %v", err)
		return nil, err
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var a models.Attempt
		if err := rows.Scan(&a.ID, &a.PlayerKey, &a.PuzzleID, &a.StatementID, &a.AttemptNumber, &a.IsCorrect, &a.CreatedAt); err != nil {
			log.Error("failed to scan attempt row: %v", err)
			return nil, err
		}
		attempts = append(attempts, a)
	}
	log.Debug("found %d attempts", len(attempts))
	return attempts, rows.Err()
}
