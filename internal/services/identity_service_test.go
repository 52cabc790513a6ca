package services_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/marlow/casefile/internal/errors"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/repository/sqlite"
	"github.com/marlow/casefile/internal/services"
	"github.com/marlow/casefile/internal/testutil"
)

type IdentityServiceSuite struct {
	suite.Suite
	db       *sql.DB
	identity services.IdentityService
	game     services.GameService
}

func (s *IdentityServiceSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())

	puzzleRepo := sqlite.NewPuzzleRepository(s.db)
	attemptRepo := sqlite.NewAttemptRepository(s.db)
	completionRepo := sqlite.NewCompletionRepository(s.db)
	stats := services.NewStatsService(sqlite.NewPuzzleStatsRepository(s.db), puzzleRepo)
	ranks := services.NewRankService(sqlite.NewRankRepository(s.db), completionRepo)

	s.identity = services.NewIdentityService(sqlite.NewSessionRepository(s.db), sqlite.NewIdentityMigrationRepository(s.db), ranks)
	s.game = services.NewGameService(puzzleRepo, attemptRepo, completionRepo, stats, ranks, 3)
}

func (s *IdentityServiceSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *IdentityServiceSuite) TestMintSessionToken() {
	ctx := context.Background()

	token, err := s.identity.MintSessionToken(ctx)
	s.Require().NoError(err)
	s.Assert().Len(token, 64)

	other, err := s.identity.MintSessionToken(ctx)
	s.Require().NoError(err)
	s.Assert().NotEqual(token, other)

	var count int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count))
	s.Assert().Equal(2, count)
}

func (s *IdentityServiceSuite) TestEnsureSessionRejectsEmptyToken() {
	err := s.identity.EnsureSession(context.Background(), "")
	s.Require().Error(err)
	appErr, ok := err.(*errors.AppError)
	s.Require().True(ok)
	s.Assert().Equal(errors.ErrCodeValidation, appErr.Code)
}

func (s *IdentityServiceSuite) TestEnsureSessionIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.identity.EnsureSession(ctx, "abc"))
	s.Require().NoError(s.identity.EnsureSession(ctx, "abc"))

	var count int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count))
	s.Assert().Equal(1, count)
}

func (s *IdentityServiceSuite) TestMigrateFoldsAnonymousProgress() {
	ctx := context.Background()
	sessionKey := testutil.InsertSession(s.T(), s.db, "anon")
	puzzleID, statementIDs := testutil.InsertPuzzle(s.T(), s.db, "2026-06-01", "easy")

	_, err := s.game.SubmitGuess(ctx, sessionKey, puzzleID, statementIDs[len(statementIDs)-1])
	s.Require().NoError(err)

	result, err := s.identity.Migrate(ctx, "anon", "acct-1")
	s.Require().NoError(err)
	s.Assert().False(result.AlreadyMigrated)
	s.Assert().Equal(1, result.CompletionsMoved)

	// The account now owns the completion, and its rank reflects it.
	accountKey := models.AccountKey("acct-1")
	completion, err := s.game.GetCompletion(ctx, accountKey, puzzleID)
	s.Require().NoError(err)
	s.Require().NotNil(completion)
	s.Assert().Equal(models.TierPerfect, completion.ScoreTier)

	record, err := sqlite.NewRankRepository(s.db).Get(ctx, accountKey)
	s.Require().NoError(err)
	s.Require().NotNil(record)
	s.Assert().Equal(1, record.SolvedCount)

	// The session's side is gone.
	completion, err = s.game.GetCompletion(ctx, sessionKey, puzzleID)
	s.Require().NoError(err)
	s.Assert().Nil(completion)
}

func (s *IdentityServiceSuite) TestMigrateTwiceIsNoOp() {
	ctx := context.Background()
	testutil.InsertSession(s.T(), s.db, "anon")

	first, err := s.identity.Migrate(ctx, "anon", "acct-1")
	s.Require().NoError(err)
	s.Require().False(first.AlreadyMigrated)

	second, err := s.identity.Migrate(ctx, "anon", "acct-1")
	s.Require().NoError(err)
	s.Assert().True(second.AlreadyMigrated)

	migrated, err := s.identity.IsMigrated(ctx, "anon", "acct-1")
	s.Require().NoError(err)
	s.Assert().True(migrated)
}

func (s *IdentityServiceSuite) TestMigrateValidatesInput() {
	_, err := s.identity.Migrate(context.Background(), "", "acct-1")
	s.Require().Error(err)

	_, err = s.identity.Migrate(context.Background(), "anon", "")
	s.Require().Error(err)
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}
