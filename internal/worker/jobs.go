package worker

import (
	"context"

	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
)

// Migrator is the slice of the identity service the migration job needs.
type Migrator interface {
	Migrate(ctx context.Context, sessionToken, accountID string) (*models.MigrationResult, error)
}

// MigrationJob folds an anonymous session's progress into an account off
// the login path. Failures are logged, never surfaced to the player; the
// job is re-submitted the next time the unmigrated token is seen.
type MigrationJob struct {
	Migrator     Migrator
	SessionToken string
	AccountID    string
}

func (j MigrationJob) Name() string {
	return "identity-migration"
}

func (j MigrationJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	result, err := j.Migrator.Migrate(ctx, j.SessionToken, j.AccountID)
	if err != nil {
		return err
	}
	if result.AlreadyMigrated {
		log.Debug("session already migrated: account=%s", j.AccountID)
		return nil
	}
	log.Info("anonymous progress migrated: account=%s, completions=%d, attempts=%d, duplicates_skipped=%d",
		j.AccountID, result.CompletionsMoved, result.AttemptsMoved, result.DuplicatesSkipped)
	return nil
}
