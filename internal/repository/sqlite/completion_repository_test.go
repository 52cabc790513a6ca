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

type CompletionRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.CompletionRepository

	puzzleID  int64
	playerKey models.PlayerKey
}

func (s *CompletionRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewCompletionRepository(s.db)
	s.puzzleID, _ = testutil.InsertPuzzle(s.T(), s.db, "2026-03-01", "medium")
	s.playerKey = testutil.InsertSession(s.T(), s.db, "token-completions")
}

func (s *CompletionRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *CompletionRepositorySuite) TestGetAbsent() {
	completion, err := s.repo.Get(context.Background(), s.playerKey, s.puzzleID)
	s.Require().NoError(err)
	s.Assert().Nil(completion)
}

func (s *CompletionRepositorySuite) TestUpsertIdempotent() {
	ctx := context.Background()
	completion := models.Completion{
		PlayerKey:    s.playerKey,
		PuzzleID:     s.puzzleID,
		AttemptsUsed: 3,
		Solved:       true,
		ScoreTier:    models.TierLucky,
	}

	first, err := s.repo.Upsert(ctx, completion)
	s.Require().NoError(err)
	s.Require().NotNil(first)

	// A retried finalize with identical arguments must leave a single
	// row with the same field values.
	second, err := s.repo.Upsert(ctx, completion)
	s.Require().NoError(err)
	s.Assert().Equal(first.ID, second.ID)
	s.Assert().Equal(first.AttemptsUsed, second.AttemptsUsed)
	s.Assert().Equal(first.Solved, second.Solved)
	s.Assert().Equal(first.ScoreTier, second.ScoreTier)

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM completions WHERE player_key = ? AND puzzle_id = ?`,
		s.playerKey, s.puzzleID).Scan(&count)
	s.Require().NoError(err)
	s.Assert().Equal(1, count)
}

func (s *CompletionRepositorySuite) TestUpsertUpdatesInPlace() {
	ctx := context.Background()

	_, err := s.repo.Upsert(ctx, models.Completion{
		PlayerKey:    s.playerKey,
		PuzzleID:     s.puzzleID,
		AttemptsUsed: 3,
		Solved:       false,
		ScoreTier:    models.TierCaseClosed,
	})
	s.Require().NoError(err)

	updated, err := s.repo.Upsert(ctx, models.Completion{
		PlayerKey:    s.playerKey,
		PuzzleID:     s.puzzleID,
		AttemptsUsed: 2,
		Solved:       true,
		ScoreTier:    models.TierClose,
	})
	s.Require().NoError(err)
	s.Assert().True(updated.Solved)
	s.Assert().Equal(models.TierClose, updated.ScoreTier)

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM completions`).Scan(&count)
	s.Require().NoError(err)
	s.Assert().Equal(1, count)
}

func (s *CompletionRepositorySuite) TestSolvedDays() {
	ctx := context.Background()

	otherPuzzle, _ := testutil.InsertPuzzle(s.T(), s.db, "2026-03-02", "hard")
	thirdPuzzle, _ := testutil.InsertPuzzle(s.T(), s.db, "2026-03-03", "easy")

	insert := func(puzzleID int64, solved bool, completedAt string) {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO completions (player_key, puzzle_id, attempts_used, solved, score_tier, completed_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, s.playerKey, puzzleID, 1, solved, tierFor(solved), completedAt)
		s.Require().NoError(err)
	}

	insert(s.puzzleID, true, "2026-03-01 10:00:00")
	insert(otherPuzzle, true, "2026-03-02 23:59:00")
	insert(thirdPuzzle, false, "2026-03-03 08:00:00")

	days, err := s.repo.SolvedDays(ctx, s.playerKey)
	s.Require().NoError(err)
	s.Assert().Equal([]string{"2026-03-02", "2026-03-01"}, days,
		"unsolved completions must not contribute a day")
}

func tierFor(solved bool) string {
	if solved {
		return models.TierPerfect
	}
	return models.TierCaseClosed
}

func TestCompletionRepositorySuite(t *testing.T) {
	suite.Run(t, new(CompletionRepositorySuite))
}
