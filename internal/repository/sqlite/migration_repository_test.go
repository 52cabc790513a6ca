package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/repository"
	"github.com/marlow/casefile/internal/repository/sqlite"
	"github.com/marlow/casefile/internal/testutil"
)

type MigrationRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.IdentityMigrationRepository

	puzzleA int64
	puzzleB int64
}

func (s *MigrationRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewIdentityMigrationRepository(s.db)
	s.puzzleA, _ = testutil.InsertPuzzle(s.T(), s.db, "2026-03-01", "easy")
	s.puzzleB, _ = testutil.InsertPuzzle(s.T(), s.db, "2026-03-02", "hard")
}

func (s *MigrationRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *MigrationRepositorySuite) insertCompletion(key models.PlayerKey, puzzleID int64, tier string) {
	_, err := s.db.Exec(`
		INSERT INTO completions (player_key, puzzle_id, attempts_used, solved, score_tier)
		VALUES (?, ?, 1, 1, ?)
	`, key, puzzleID, tier)
	s.Require().NoError(err)
}

func (s *MigrationRepositorySuite) insertAttempt(key models.PlayerKey, puzzleID int64, number int) {
	var statementID int64
	err := s.db.QueryRow(`SELECT id FROM statements WHERE puzzle_id = ? LIMIT 1`, puzzleID).Scan(&statementID)
	s.Require().NoError(err)

	_, err = s.db.Exec(`
		INSERT INTO attempts (player_key, puzzle_id, statement_id, attempt_number, is_correct)
		VALUES (?, ?, ?, ?, 1)
	`, key, puzzleID, statementID, number)
	s.Require().NoError(err)
}

func (s *MigrationRepositorySuite) TestMigrateMovesProgress() {
	ctx := context.Background()
	sessionKey := testutil.InsertSession(s.T(), s.db, "anon-token")

	s.insertAttempt(sessionKey, s.puzzleA, 1)
	s.insertCompletion(sessionKey, s.puzzleA, models.TierPerfect)

	result, err := s.repo.Migrate(ctx, "anon-token", "acct-9")
	s.Require().NoError(err)
	s.Assert().False(result.AlreadyMigrated)
	s.Assert().Equal(1, result.CompletionsMoved)
	s.Assert().Equal(1, result.AttemptsMoved)

	accountKey := models.AccountKey("acct-9")
	var count int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM completions WHERE player_key = ?`, accountKey).Scan(&count))
	s.Assert().Equal(1, count)
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM completions WHERE player_key = ?`, sessionKey).Scan(&count))
	s.Assert().Equal(0, count)
}

func (s *MigrationRepositorySuite) TestAccountProgressWins() {
	ctx := context.Background()
	sessionKey := testutil.InsertSession(s.T(), s.db, "anon-token")
	accountKey := models.AccountKey("acct-9")

	// Both identities completed puzzle A; only the session solved B.
	s.insertCompletion(accountKey, s.puzzleA, models.TierClose)
	s.insertCompletion(sessionKey, s.puzzleA, models.TierPerfect)
	s.insertCompletion(sessionKey, s.puzzleB, models.TierPerfect)

	result, err := s.repo.Migrate(ctx, "anon-token", "acct-9")
	s.Require().NoError(err)
	s.Assert().Equal(1, result.DuplicatesSkipped)
	s.Assert().Equal(1, result.CompletionsMoved)

	// The account's pre-existing completion for A is retained unchanged.
	var tier string
	err = s.db.QueryRow(`SELECT score_tier FROM completions WHERE player_key = ? AND puzzle_id = ?`,
		accountKey, s.puzzleA).Scan(&tier)
	s.Require().NoError(err)
	s.Assert().Equal(models.TierClose, tier)

	var count int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM completions WHERE player_key = ?`, accountKey).Scan(&count))
	s.Assert().Equal(2, count)
}

func (s *MigrationRepositorySuite) TestMigrateIdempotent() {
	ctx := context.Background()
	sessionKey := testutil.InsertSession(s.T(), s.db, "anon-token")
	s.insertCompletion(sessionKey, s.puzzleA, models.TierPerfect)

	first, err := s.repo.Migrate(ctx, "anon-token", "acct-9")
	s.Require().NoError(err)
	s.Require().False(first.AlreadyMigrated)

	var rowsBefore int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM completions`).Scan(&rowsBefore))

	second, err := s.repo.Migrate(ctx, "anon-token", "acct-9")
	s.Require().NoError(err)
	s.Assert().True(second.AlreadyMigrated)
	s.Assert().Equal(0, second.CompletionsMoved)

	var rowsAfter int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM completions`).Scan(&rowsAfter))
	s.Assert().Equal(rowsBefore, rowsAfter)

	migrated, err := s.repo.IsMigrated(ctx, "anon-token", "acct-9")
	s.Require().NoError(err)
	s.Assert().True(migrated)
}

func (s *MigrationRepositorySuite) TestIsMigratedDefaultsFalse() {
	migrated, err := s.repo.IsMigrated(context.Background(), "unknown", "acct-1")
	s.Require().NoError(err)
	s.Assert().False(migrated)
}

func TestMigrationRepositorySuite(t *testing.T) {
	suite.Run(t, new(MigrationRepositorySuite))
}
