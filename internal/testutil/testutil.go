package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/marlow/casefile/internal/db"
	"github.com/marlow/casefile/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations
// applied, so tests run against the production schema.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	migrationsFS := db.Migrations()
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	for _, entry := range entries {
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		require.NoError(t, err, "failed to read migration %s", entry.Name())

		_, err = sqlDB.Exec(string(sqlBytes))
		require.NoError(t, err, "failed to apply migration %s", entry.Name())
	}

	return sqlDB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	t.Helper()
	require.NoError(t, closer.Close())
}

// InsertPuzzle inserts a puzzle with four statements, the last one being
// the contradiction. Returns the puzzle id and the statement ids in order.
func InsertPuzzle(t *testing.T, sqlDB *sql.DB, date, difficulty string) (int64, []int64) {
	t.Helper()

	res, err := sqlDB.Exec(`
		INSERT INTO puzzles (difficulty, puzzle_date, title, report)
		VALUES (?, ?, ?, ?)
	`, difficulty, date, "The Missing Ledger", "The shop closed at six.")
	require.NoError(t, err)

	puzzleID, err := res.LastInsertId()
	require.NoError(t, err)

	texts := []string{
		"The clerk left before closing.",
		"The register was balanced at five.",
		"The back door was found locked.",
		"The owner counted the till at seven.",
	}
	ids := make([]int64, 0, len(texts))
	for i, text := range texts {
		res, err := sqlDB.Exec(`
			INSERT INTO statements (puzzle_id, position, text, is_contradiction)
			VALUES (?, ?, ?, ?)
		`, puzzleID, i+1, text, i == len(texts)-1)
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)
		ids = append(ids, id)
	}

	return puzzleID, ids
}

// InsertSession persists a session row for the given token and returns its
// player key.
func InsertSession(t *testing.T, sqlDB *sql.DB, token string) models.PlayerKey {
	t.Helper()
	_, err := sqlDB.Exec(`INSERT INTO sessions (token) VALUES (?)`, token)
	require.NoError(t, err)
	return models.SessionKey(token)
}
