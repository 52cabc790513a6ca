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

type PuzzleRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.PuzzleRepository
}

func (s *PuzzleRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewPuzzleRepository(s.db)
}

func (s *PuzzleRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *PuzzleRepositorySuite) TestGetAbsent() {
	puzzle, err := s.repo.Get(context.Background(), 999)
	s.Require().NoError(err)
	s.Assert().Nil(puzzle)
}

func (s *PuzzleRepositorySuite) TestGetByDate() {
	ctx := context.Background()
	puzzleID, _ := testutil.InsertPuzzle(s.T(), s.db, "2026-02-14", "hard")

	puzzle, err := s.repo.GetByDate(ctx, "2026-02-14")
	s.Require().NoError(err)
	s.Require().NotNil(puzzle)
	s.Assert().Equal(puzzleID, puzzle.ID)
	s.Assert().Equal(models.DifficultyHard, puzzle.Difficulty)

	puzzle, err = s.repo.GetByDate(ctx, "2026-02-15")
	s.Require().NoError(err)
	s.Assert().Nil(puzzle)
}

func (s *PuzzleRepositorySuite) TestStatementsOrderedByPosition() {
	puzzleID, statementIDs := testutil.InsertPuzzle(s.T(), s.db, "2026-02-14", "easy")

	statements, err := s.repo.Statements(context.Background(), puzzleID)
	s.Require().NoError(err)
	s.Require().Len(statements, len(statementIDs))
	for i, st := range statements {
		s.Assert().Equal(statementIDs[i], st.ID)
		s.Assert().Equal(i+1, st.Position)
	}
}

func (s *PuzzleRepositorySuite) TestIsCorrectStatement() {
	ctx := context.Background()
	puzzleID, statementIDs := testutil.InsertPuzzle(s.T(), s.db, "2026-02-14", "easy")
	contradiction := statementIDs[len(statementIDs)-1]

	correct, err := s.repo.IsCorrectStatement(ctx, puzzleID, contradiction)
	s.Require().NoError(err)
	s.Assert().True(correct)

	correct, err = s.repo.IsCorrectStatement(ctx, puzzleID, statementIDs[0])
	s.Require().NoError(err)
	s.Assert().False(correct)

	// A statement id from another puzzle does not belong here.
	otherID, otherStatements := testutil.InsertPuzzle(s.T(), s.db, "2026-02-15", "easy")
	_, err = s.repo.IsCorrectStatement(ctx, puzzleID, otherStatements[0])
	s.Assert().ErrorIs(err, sql.ErrNoRows)

	_, err = s.repo.IsCorrectStatement(ctx, otherID, contradiction)
	s.Assert().ErrorIs(err, sql.ErrNoRows)
}

func (s *PuzzleRepositorySuite) TestInsertRoundTrip() {
	ctx := context.Background()
	puzzleID, err := s.repo.Insert(ctx, models.Puzzle{
		Difficulty: models.DifficultyMedium,
		PuzzleDate: "2026-02-20",
		Title:      "The Vanished Witness",
		Report:     "The witness was last seen at noon.",
	}, []models.Statement{
		{Position: 1, Text: "The train left on time."},
		{Position: 2, Text: "The platform was empty at noon.", IsContradiction: true},
	})
	s.Require().NoError(err)

	puzzle, err := s.repo.Get(ctx, puzzleID)
	s.Require().NoError(err)
	s.Require().NotNil(puzzle)
	s.Assert().Equal("The Vanished Witness", puzzle.Title)

	statements, err := s.repo.Statements(ctx, puzzleID)
	s.Require().NoError(err)
	s.Require().Len(statements, 2)
	s.Assert().True(statements[1].IsContradiction)
}

func TestPuzzleRepositorySuite(t *testing.T) {
	suite.Run(t, new(PuzzleRepositorySuite))
}
