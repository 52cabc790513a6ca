package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/repository"
)

type puzzleRepository struct {
	db *sql.DB
}

// NewPuzzleRepository creates a new PuzzleRepository implementation
func NewPuzzleRepository(db *sql.DB) repository.PuzzleRepository {
	return &puzzleRepository{db: db}
}

func (r *puzzleRepository) Get(ctx context.Context, id int64) (*models.Puzzle, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("getting puzzle: id=%d", id)

	var p models.Puzzle
	err := r.db.QueryRowContext(ctx, `
SELECT id, difficulty, puzzle_date, title, report, created_at
FROM puzzles
WHERE id = ?
`, id).Scan(&p.ID, &p.Difficulty, &p.PuzzleDate, &p.Title, &p.Report, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("puzzle not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get puzzle: %v", err)
		return nil, err
	}
	return &p, nil
}

func (r *puzzleRepository) GetByDate(ctx context.Context, date string) (*models.Puzzle, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("getting puzzle by date: %s", date)

	var p models.Puzzle
	err := r.db.QueryRowContext(ctx, `
SELECT id, difficulty, puzzle_date, title, report, created_at
FROM puzzles
WHERE puzzle_date = ?
`, date).Scan(&p.ID, &p.Difficulty, &p.PuzzleDate, &p.Title, &p.Report, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("no puzzle for date: %s", date)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get puzzle by date: %v", err)
		return nil, err
	}
	return &p, nil
}

func (r *puzzleRepository) Statements(ctx context.Context, puzzleID int64) ([]models.Statement, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("listing statements: puzzle_id=%d", puzzleID)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, puzzle_id, position, text, is_contradiction
FROM statements
WHERE puzzle_id = ?
ORDER BY position ASC
`, puzzleID)
	if err != nil {
		log.Error("failed to list statements: %v", err)
		return nil, err
	}
	defer rows.Close()

	var statements []models.Statement
	for rows.Next() {
		var st models.Statement
		if err := rows.Scan(&st.ID, &st.PuzzleID, &st.Position, &st.Text, &st.IsContradiction); err != nil {
			log.Error("failed to scan statement row: %v", err)
			return nil, err
		}
		statements = append(statements, st)
	}
	return statements, rows.Err()
}

func (r *puzzleRepository) IsCorrectStatement(ctx context.Context, puzzleID, statementID int64) (bool, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("checking statement: puzzle_id=%d, statement_id=%d", puzzleID, statementID)

	var isContradiction bool
	err := r.db.QueryRowContext(ctx, `
SELECT is_contradiction
FROM statements
WHERE id = ? AND puzzle_id = ?
`, statementID, puzzleID).Scan(&isContradiction)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to check statement: %v", err)
		}
		return false, err
	}
	return isContradiction, nil
}

func (r *puzzleRepository) Insert(ctx context.Context, puzzle models.Puzzle, statements []models.Statement) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("inserting puzzle: date=%s, difficulty=%s", puzzle.PuzzleDate, puzzle.Difficulty)

	var puzzleID int64
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO puzzles (difficulty, puzzle_date, title, report)
VALUES (?, ?, ?, ?)
`, puzzle.Difficulty, puzzle.PuzzleDate, puzzle.Title, puzzle.Report)
		if err != nil {
			log.Error("failed to insert puzzle: %v", err)
			return err
		}
		puzzleID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		for _, st := range statements {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO statements (puzzle_id, position, text, is_contradiction)
VALUES (?, ?, ?, ?)
`, puzzleID, st.Position, st.Text, st.IsContradiction); err != nil {
				log.Error("failed to insert statement: %v", err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Debug("puzzle inserted: id=%d", puzzleID)
	return puzzleID, nil
}
