package db

import (
	"context"
	"time"
)

// Seed inserts a sample case for local development when the puzzle table
// is empty. Production content comes from the authoring pipeline.
func Seed(ctx context.Context, db *DB) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM puzzles`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		db.log.Debug("puzzles present, skipping seed")
		return nil
	}

	db.log.Info("seeding sample puzzle")
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO puzzles (difficulty, puzzle_date, title, report)
VALUES (?, ?, ?, ?)
`, "easy", time.Now().Format("2006-01-02"), "The Locked Gallery",
		"The gallery alarm tripped at 02:14. The night guard reports the building was empty after the 01:00 round and every door stayed locked until police arrived at 02:40.")
	if err != nil {
		return err
	}
	puzzleID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	statements := []struct {
		text          string
		contradiction bool
	}{
		{"The night guard finished a full round of the building at 01:00.", false},
		{"The alarm log shows a single trip at 02:14 on the east wing sensor.", false},
		{"The cleaner says she let herself out through the side door at 01:45.", true},
		{"Police found all doors locked when they arrived at 02:40.", false},
	}
	for i, st := range statements {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO statements (puzzle_id, position, text, is_contradiction)
VALUES (?, ?, ?, ?)
`, puzzleID, i+1, st.text, st.contradiction); err != nil {
			return err
		}
	}
	return tx.Commit()
}
