package repository

import (
	"context"
	"errors"

	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/rank"
)

// ErrDuplicate is returned when an insert loses a uniqueness race. Callers
// re-read and retry once before surfacing a conflict.
var ErrDuplicate = errors.New("duplicate row")

// PuzzleRepository reads the minimal puzzle content the engine needs. The
// engine never mutates content; Insert exists for seeding and tests.
type PuzzleRepository interface {
	Get(ctx context.Context, id int64) (*models.Puzzle, error)
	GetByDate(ctx context.Context, date string) (*models.Puzzle, error)
	Statements(ctx context.Context, puzzleID int64) ([]models.Statement, error)
	// IsCorrectStatement reports whether the statement is the puzzle's
	// designated contradiction. Returns sql.ErrNoRows when the statement
	// does not belong to the puzzle.
	IsCorrectStatement(ctx context.Context, puzzleID, statementID int64) (bool, error)
	Insert(ctx context.Context, puzzle models.Puzzle, statements []models.Statement) (int64, error)
}

// SessionRepository persists anonymous session tokens. A session row must
// exist before any progression row references its token.
type SessionRepository interface {
	Ensure(ctx context.Context, token string) error
	Exists(ctx context.Context, token string) (bool, error)
}

// AttemptRepository handles the immutable guess log.
type AttemptRepository interface {
	Count(ctx context.Context, playerKey models.PlayerKey, puzzleID int64) (int, error)
	Insert(ctx context.Context, attempt models.Attempt) (int64, error)
	List(ctx context.Context, filter models.AttemptFilter) ([]models.Attempt, error)
}

// CompletionRepository handles the per-(player, puzzle) outcome ledger.
type CompletionRepository interface {
	Get(ctx context.Context, playerKey models.PlayerKey, puzzleID int64) (*models.Completion, error)
	Upsert(ctx context.Context, completion models.Completion) (*models.Completion, error)
	ListByPlayer(ctx context.Context, playerKey models.PlayerKey) ([]models.Completion, error)
	// SolvedDays returns the distinct calendar days (YYYY-MM-DD) with at
	// least one solved completion, most recent first.
	SolvedDays(ctx context.Context, playerKey models.PlayerKey) ([]string, error)
}

// RankRepository persists the derived rank cache and the aggregates it is
// recomputed from.
type RankRepository interface {
	Get(ctx context.Context, playerKey models.PlayerKey) (*models.RankRecord, error)
	Save(ctx context.Context, record models.RankRecord) error
	Totals(ctx context.Context, playerKey models.PlayerKey) (rank.Totals, error)
}

// IdentityMigrationRepository folds anonymous progress into an account.
type IdentityMigrationRepository interface {
	IsMigrated(ctx context.Context, sessionToken, accountID string) (bool, error)
	// Migrate records the migration marker and rewrites attempt/completion
	// rows in one transaction, skipping puzzles the account already
	// completed. A no-op returning AlreadyMigrated when the marker exists.
	Migrate(ctx context.Context, sessionToken, accountID string) (models.MigrationResult, error)
}

// PuzzleStatsRepository maintains the per-puzzle aggregate counters.
type PuzzleStatsRepository interface {
	Recompute(ctx context.Context, puzzleID int64) (*models.PuzzleStats, error)
	Get(ctx context.Context, puzzleID int64) (*models.PuzzleStats, error)
}
