package services_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/marlow/casefile/internal/errors"
	"github.com/marlow/casefile/internal/repository/sqlite"
	"github.com/marlow/casefile/internal/services"
	"github.com/marlow/casefile/internal/testutil"
)

type StatsServiceSuite struct {
	suite.Suite
	db    *sql.DB
	stats services.StatsService
	game  services.GameService
}

func (s *StatsServiceSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())

	puzzleRepo := sqlite.NewPuzzleRepository(s.db)
	completionRepo := sqlite.NewCompletionRepository(s.db)
	s.stats = services.NewStatsService(sqlite.NewPuzzleStatsRepository(s.db), puzzleRepo)
	ranks := services.NewRankService(sqlite.NewRankRepository(s.db), completionRepo)
	s.game = services.NewGameService(puzzleRepo, sqlite.NewAttemptRepository(s.db), completionRepo, s.stats, ranks, 3)
}

func (s *StatsServiceSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *StatsServiceSuite) TestUnknownPuzzle() {
	_, err := s.stats.GetPuzzleStats(context.Background(), 999)
	s.Require().Error(err)
	appErr, ok := err.(*errors.AppError)
	s.Require().True(ok)
	s.Assert().Equal(errors.ErrCodeNotFound, appErr.Code)
}

func (s *StatsServiceSuite) TestFirstReadMaterializesZeroRow() {
	puzzleID, _ := testutil.InsertPuzzle(s.T(), s.db, "2026-07-01", "easy")

	stats, err := s.stats.GetPuzzleStats(context.Background(), puzzleID)
	s.Require().NoError(err)
	s.Assert().Equal(puzzleID, stats.PuzzleID)
	s.Assert().Zero(stats.TotalAttempts)
	s.Assert().Zero(stats.TotalCompletions)
	s.Assert().Zero(stats.SolveRate())
}

func (s *StatsServiceSuite) TestCountersFollowCompletions() {
	ctx := context.Background()
	puzzleID, statementIDs := testutil.InsertPuzzle(s.T(), s.db, "2026-07-01", "medium")
	contradiction := statementIDs[len(statementIDs)-1]

	// One player solves on the first try, another burns all three.
	solver := testutil.InsertSession(s.T(), s.db, "solver")
	_, err := s.game.SubmitGuess(ctx, solver, puzzleID, contradiction)
	s.Require().NoError(err)

	struggler := testutil.InsertSession(s.T(), s.db, "struggler")
	for i := 0; i < 3; i++ {
		_, err := s.game.SubmitGuess(ctx, struggler, puzzleID, statementIDs[i])
		s.Require().NoError(err)
	}

	stats, err := s.stats.GetPuzzleStats(ctx, puzzleID)
	s.Require().NoError(err)
	s.Assert().Equal(4, stats.TotalAttempts)
	s.Assert().Equal(2, stats.TotalCompletions)
	s.Assert().Equal(1, stats.SolvedCount)
	s.Assert().InDelta(2.0, stats.AvgAttempts, 0.001)
	s.Assert().InDelta(0.5, stats.SolveRate(), 0.001)
}

func TestStatsServiceSuite(t *testing.T) {
	suite.Run(t, new(StatsServiceSuite))
}
