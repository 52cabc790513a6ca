package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/repository"
)

type migrationRepository struct {
	db *sql.DB
}

// NewIdentityMigrationRepository creates a new IdentityMigrationRepository
// implementation
func NewIdentityMigrationRepository(db *sql.DB) repository.IdentityMigrationRepository {
	return &migrationRepository{db: db}
}

func (r *migrationRepository) IsMigrated(ctx context.Context, sessionToken, accountID string) (bool, error) {
	var t string
	err := r.db.QueryRowContext(ctx, `
SELECT session_token FROM identity_migrations
WHERE session_token = ? AND account_id = ?
`, sessionToken, accountID).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *migrationRepository) Migrate(ctx context.Context, sessionToken, accountID string) (models.MigrationResult, error) {
	log := logger.FromContext(ctx).WithPrefix("migration_repo")
	log.Debug("migrating session progress: account=%s", accountID)

	sessionKey := models.SessionKey(sessionToken)
	accountKey := models.AccountKey(accountID)

	var result models.MigrationResult
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		// The marker insert is the at-most-once guard. Losing this race
		// means another request already folded the progress in.
		_, err := tx.ExecContext(ctx, `
INSERT INTO identity_migrations (session_token, account_id) VALUES (?, ?)
`, sessionToken, accountID)
		if err != nil {
			if translateConstraint(err) == repository.ErrDuplicate {
				result.AlreadyMigrated = true
				return nil
			}
			log.Error("failed to insert migration marker: %v", err)
			return err
		}

		// Account progress wins: anonymous rows for puzzles the account
		// already completed are discarded, not merged.
		res, err := tx.ExecContext(ctx, `
DELETE FROM completions
WHERE player_key = ?
AND puzzle_id IN (SELECT puzzle_id FROM completions WHERE player_key = ?)
`, sessionKey, accountKey)
		if err != nil {
			log.Error("failed to drop duplicate completions: %v", err)
			return err
		}
		if n, err := res.RowsAffected(); err == nil {
			result.DuplicatesSkipped = int(n)
		}

		// Also drop anonymous attempts where the account already has its
		// own attempt rows, or the rewrite below would collide with the
		// attempt-number unique index.
		if _, err := tx.ExecContext(ctx, `
DELETE FROM attempts
WHERE player_key = ?
AND puzzle_id IN (
    SELECT puzzle_id FROM completions WHERE player_key = ?
    UNION
    SELECT puzzle_id FROM attempts WHERE player_key = ?
)
`, sessionKey, accountKey, accountKey); err != nil {
			log.Error("failed to drop duplicate attempts: %v", err)
			return err
		}

		res, err = tx.ExecContext(ctx, `
UPDATE completions SET player_key = ? WHERE player_key = ?
`, accountKey, sessionKey)
		if err != nil {
			log.Error("failed to rewrite completions: %v", err)
			return err
		}
		if n, err := res.RowsAffected(); err == nil {
			result.CompletionsMoved = int(n)
		}

		res, err = tx.ExecContext(ctx, `
UPDATE attempts SET player_key = ? WHERE player_key = ?
`, accountKey, sessionKey)
		if err != nil {
			log.Error("failed to rewrite attempts: %v", err)
			return err
		}
		if n, err := res.RowsAffected(); err == nil {
			result.AttemptsMoved = int(n)
		}

		// The session's cached rank is stale by definition now; the
		// account's record is recomputed by the caller.
		if _, err := tx.ExecContext(ctx, `
DELETE FROM rank_records WHERE player_key = ?
`, sessionKey); err != nil {
			log.Error("failed to drop session rank record: %v", err)
			return err
		}

		return nil
	})
	if err != nil {
		return models.MigrationResult{}, err
	}

	if result.AlreadyMigrated {
		log.Debug("migration already recorded, nothing to do")
	} else {
		log.Info("migrated session progress: account=%s, completions=%d, attempts=%d, duplicates=%d",
			accountID, result.CompletionsMoved, result.AttemptsMoved, result.DuplicatesSkipped)
	}
	return result, nil
}
