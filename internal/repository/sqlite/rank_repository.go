package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/rank"
	"github.com/marlow/casefile/internal/repository"
)

type rankRepository struct {
	db *sql.DB
}

// NewRankRepository creates a new RankRepository implementation
func NewRankRepository(db *sql.DB) repository.RankRepository {
	return &rankRepository{db: db}
}

func (r *rankRepository) Get(ctx context.Context, playerKey models.PlayerKey) (*models.RankRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("rank_repo")
	log.Debug("getting rank record: player=%s", playerKey)

	var rec models.RankRecord
	err := r.db.QueryRowContext(ctx, `
SELECT player_key, rank_level, rank_name, total_completions, easy_count, medium_count, hard_count,
       perfect_count, solved_count, total_attempts, current_streak, best_streak, last_activity_date, updated_at
FROM rank_records
WHERE player_key = ?
`, playerKey).Scan(&rec.PlayerKey, &rec.RankLevel, &rec.RankName, &rec.TotalCompletions,
		&rec.EasyCount, &rec.MediumCount, &rec.HardCount, &rec.PerfectCount, &rec.SolvedCount,
		&rec.TotalAttempts, &rec.CurrentStreak, &rec.BestStreak, &rec.LastActivityDate, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get rank record: %v", err)
		return nil, err
	}
	return &rec, nil
}

func (r *rankRepository) Save(ctx context.Context, rec models.RankRecord) error {
	log := logger.FromContext(ctx).WithPrefix("rank_repo")
	log.Debug("saving rank record: player=%s, level=%d", rec.PlayerKey, rec.RankLevel)

	// Full overwrite keyed on player_key. The record is a cache of the
	// completion history, never patched field by field.
	_, err := r.db.ExecContext(ctx, `
INSERT INTO rank_records (player_key, rank_level, rank_name, total_completions, easy_count, medium_count,
                          hard_count, perfect_count, solved_count, total_attempts, current_streak,
                          best_streak, last_activity_date, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(player_key) DO UPDATE SET
    rank_level = excluded.rank_level,
    rank_name = excluded.rank_name,
    total_completions = excluded.total_completions,
    easy_count = excluded.easy_count,
    medium_count = excluded.medium_count,
    hard_count = excluded.hard_count,
    perfect_count = excluded.perfect_count,
    solved_count = excluded.solved_count,
    total_attempts = excluded.total_attempts,
    current_streak = excluded.current_streak,
    best_streak = excluded.best_streak,
    last_activity_date = excluded.last_activity_date,
    updated_at = CURRENT_TIMESTAMP
`, rec.PlayerKey, rec.RankLevel, rec.RankName, rec.TotalCompletions, rec.EasyCount, rec.MediumCount,
		rec.HardCount, rec.PerfectCount, rec.SolvedCount, rec.TotalAttempts, rec.CurrentStreak,
		rec.BestStreak, rec.LastActivityDate)
	if err != nil {
		log.Error("failed to save rank record: %v", err)
	}
	return err
}

func (r *rankRepository) Totals(ctx context.Context, playerKey models.PlayerKey) (rank.Totals, error) {
	log := logger.FromContext(ctx).WithPrefix("rank_repo")
	log.Debug("aggregating completion totals: player=%s", playerKey)

	var t rank.Totals
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN p.difficulty = 'easy' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN p.difficulty = 'medium' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN p.difficulty = 'hard' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN c.score_tier = 'perfect' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(c.solved), 0),
       COALESCE(SUM(c.attempts_used), 0)
FROM completions c
JOIN puzzles p ON p.id = c.puzzle_id
WHERE c.player_key = ?
`, playerKey).Scan(&t.Completions, &t.Easy, &t.Medium, &t.Hard, &t.Perfect, &t.Solved, &t.TotalAttempts)
	if err != nil {
		log.Error("failed to aggregate totals: %v", err)
		return rank.Totals{}, err
	}
	return t, nil
}
