package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/marlow/casefile/internal/errors"
	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/repository"
)

// IdentityService owns player-key resolution and the one-time fold-in of
// anonymous progress into an account.
type IdentityService interface {
	// MintSessionToken creates a random 256-bit token and persists the
	// session row before returning, so later writes referencing it never
	// dangle.
	MintSessionToken(ctx context.Context) (string, error)
	EnsureSession(ctx context.Context, token string) error
	IsMigrated(ctx context.Context, sessionToken, accountID string) (bool, error)
	Migrate(ctx context.Context, sessionToken, accountID string) (*models.MigrationResult, error)
}

type identityService struct {
	sessionRepo   repository.SessionRepository
	migrationRepo repository.IdentityMigrationRepository
	ranks         RankService
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(
	sessionRepo repository.SessionRepository,
	migrationRepo repository.IdentityMigrationRepository,
	ranks RankService,
) IdentityService {
	return &identityService{
		sessionRepo:   sessionRepo,
		migrationRepo: migrationRepo,
		ranks:         ranks,
	}
}

func (s *identityService) MintSessionToken(ctx context.Context) (string, error) {
	log := logger.FromContext(ctx)

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Error("failed to generate session token: %v", err)
		return "", errors.NewInternalError(err)
	}
	token := hex.EncodeToString(b)

	if err := s.sessionRepo.Ensure(ctx, token); err != nil {
		log.Error("failed to persist session: %v", err)
		return "", errors.NewInternalError(err)
	}
	log.Debug("minted anonymous session")
	return token, nil
}

func (s *identityService) EnsureSession(ctx context.Context, token string) error {
	if token == "" {
		return errors.NewValidationError("token", "cannot be empty")
	}
	if err := s.sessionRepo.Ensure(ctx, token); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *identityService) IsMigrated(ctx context.Context, sessionToken, accountID string) (bool, error) {
	migrated, err := s.migrationRepo.IsMigrated(ctx, sessionToken, accountID)
	if err != nil {
		return false, errors.NewInternalError(err)
	}
	return migrated, nil
}

func (s *identityService) Migrate(ctx context.Context, sessionToken, accountID string) (*models.MigrationResult, error) {
	log := logger.FromContext(ctx)

	if sessionToken == "" {
		return nil, errors.NewValidationError("session_token", "cannot be empty")
	}
	if accountID == "" {
		return nil, errors.NewValidationError("account_id", "cannot be empty")
	}

	// Cheap pre-check; the marker insert inside Migrate is the real
	// at-most-once guard.
	migrated, err := s.migrationRepo.IsMigrated(ctx, sessionToken, accountID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if migrated {
		log.Debug("migration already recorded: account=%s", accountID)
		return &models.MigrationResult{AlreadyMigrated: true}, nil
	}

	result, err := s.migrationRepo.Migrate(ctx, sessionToken, accountID)
	if err != nil {
		log.Error("identity migration failed: account=%s: %v", accountID, err)
		return nil, errors.NewInternalError(err)
	}

	if !result.AlreadyMigrated {
		// The account's cached rank no longer reflects its completion
		// history; rebuild it from scratch.
		if _, err := s.ranks.Recompute(ctx, models.AccountKey(accountID)); err != nil {
			log.Warn("rank recompute after migration failed: %v", err)
		}
	}
	return &result, nil
}
