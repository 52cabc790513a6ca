package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/repository"
)

type statsRepository struct {
	db *sql.DB
}

// NewPuzzleStatsRepository creates a new PuzzleStatsRepository implementation
func NewPuzzleStatsRepository(db *sql.DB) repository.PuzzleStatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Recompute(ctx context.Context, puzzleID int64) (*models.PuzzleStats, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("recomputing puzzle stats: puzzle=%d", puzzleID)

	// Read-aggregate-write over all players. Always a full recompute so
	// the counters cannot drift from the source tables.
	var s models.PuzzleStats
	s.PuzzleID = puzzleID
	err := r.db.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM attempts WHERE puzzle_id = ?),
       (SELECT COUNT(*) FROM completions WHERE puzzle_id = ?),
       (SELECT COALESCE(SUM(solved), 0) FROM completions WHERE puzzle_id = ?),
       (SELECT COALESCE(AVG(attempts_used), 0) FROM completions WHERE puzzle_id = ?)
`, puzzleID, puzzleID, puzzleID, puzzleID).
		Scan(&s.TotalAttempts, &s.TotalCompletions, &s.SolvedCount, &s.AvgAttempts)
	if err != nil {
		log.Error("failed to aggregate puzzle stats: %v", err)
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, `
INSERT INTO puzzle_stats (puzzle_id, total_attempts, total_completions, solved_count, avg_attempts, updated_at)
VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(puzzle_id) DO UPDATE SET
    total_attempts = excluded.total_attempts,
    total_completions = excluded.total_completions,
    solved_count = excluded.solved_count,
    avg_attempts = excluded.avg_attempts,
    updated_at = CURRENT_TIMESTAMP
RETURNING updated_at
`, s.PuzzleID, s.TotalAttempts, s.TotalCompletions, s.SolvedCount, s.AvgAttempts).Scan(&s.UpdatedAt)
	if err != nil {
		log.Error("failed to upsert puzzle stats: %v", err)
		return nil, err
	}
	log.Debug("puzzle stats recomputed: attempts=%d, completions=%d, solved=%d",
		s.TotalAttempts, s.TotalCompletions, s.SolvedCount)
	return &s, nil
}

func (r *statsRepository) Get(ctx context.Context, puzzleID int64) (*models.PuzzleStats, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")

	var s models.PuzzleStats
	err := r.db.QueryRowContext(ctx, `
SELECT puzzle_id, total_attempts, total_completions, solved_count, avg_attempts, updated_at
FROM puzzle_stats
WHERE puzzle_id = ?
`, puzzleID).Scan(&s.PuzzleID, &s.TotalAttempts, &s.TotalCompletions, &s.SolvedCount, &s.AvgAttempts, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get puzzle stats: %v", err)
		return nil, err
	}
	return &s, nil
}
