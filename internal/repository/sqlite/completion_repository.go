package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/repository"
)

type completionRepository struct {
	db *sql.DB
}

// NewCompletionRepository creates a new CompletionRepository implementation
func NewCompletionRepository(db *sql.DB) repository.CompletionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) Get(ctx context.Context, playerKey models.PlayerKey, puzzleID int64) (*models.Completion, error) {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")
	log.Debug("getting completion: player=%s, puzzle=%d", playerKey, puzzleID)

	var c models.Completion
	err := r.db.QueryRowContext(ctx, `
SELECT id, player_key, puzzle_id, attempts_used, solved, score_tier, completed_at
FROM completions
WHERE player_key = ? AND puzzle_id = ?
`, playerKey, puzzleID).Scan(&c.ID, &c.PlayerKey, &c.PuzzleID, &c.AttemptsUsed, &c.Solved, &c.ScoreTier, &c.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get completion: %v", err)
		return nil, err
	}
	return &c, nil
}

func (r *completionRepository) Upsert(ctx context.Context, c models.Completion) (*models.Completion, error) {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")
	log.Debug("upserting completion: player=%s, puzzle=%d, solved=%t, tier=%s", c.PlayerKey, c.PuzzleID, c.Solved, c.ScoreTier)

	// Keyed on the (player_key, puzzle_id) unique index rather than a
	// check-then-insert, so concurrent finalizations cannot produce two
	// rows. completed_at is preserved on replays of the same outcome.
	var out models.Completion
	err := r.db.QueryRowContext(ctx, `
INSERT INTO completions (player_key, puzzle_id, attempts_used, solved, score_tier)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(player_key, puzzle_id) DO UPDATE SET
    attempts_used = excluded.attempts_used,
    solved = excluded.solved,
    score_tier = excluded.score_tier
RETURNING id, player_key, puzzle_id, attempts_used, solved, score_tier, completed_at
`, c.PlayerKey, c.PuzzleID, c.AttemptsUsed, c.Solved, c.ScoreTier).
		Scan(&out.ID, &out.PlayerKey, &out.PuzzleID, &out.AttemptsUsed, &out.Solved, &out.ScoreTier, &out.CompletedAt)
	if err != nil {
		log.Error("failed to upsert completion: %v", err)
		return nil, err
	}
	log.Debug("completion upserted: id=%d", out.ID)
	return &out, nil
}

func (r *completionRepository) ListByPlayer(ctx context.Context, playerKey models.PlayerKey) ([]models.Completion, error) {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")
	log.Debug("listing completions: player=%s", playerKey)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, player_key, puzzle_id, attempts_used, solved, score_tier, completed_at
FROM completions
WHERE player_key = ?
ORDER BY completed_at DESC
`, playerKey)
	if err != nil {
		log.Error("failed to list completions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var completions []models.Completion
	for rows.Next() {
		var c models.Completion
		if err := rows.Scan(&c.ID, &c.PlayerKey, &c.PuzzleID, &c.AttemptsUsed, &c.Solved, &c.ScoreTier, &c.CompletedAt); err != nil {
			log.Error("failed to scan completion row: %v", err)
			return nil, err
		}
		completions = append(completions, c)
	}
	log.Debug("found %d completions", len(completions))
	return completions, rows.Err()
}

func (r *completionRepository) SolvedDays(ctx context.Context, playerKey models.PlayerKey) ([]string, error) {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")

	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT DATE(completed_at)
FROM completions
WHERE player_key = ? AND solved = 1
ORDER BY 1 DESC
`, playerKey)
	if err != nil {
		log.Error("failed to query solved days: %v", err)
		return nil, err
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			log.Error("failed to scan solved day: %v", err)
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
