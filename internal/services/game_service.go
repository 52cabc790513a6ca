package services

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/marlow/casefile/internal/errors"
	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/rank"
	"github.com/marlow/casefile/internal/repository"
)

// GameService records guesses and owns the completion ledger.
type GameService interface {
	SubmitGuess(ctx context.Context, playerKey models.PlayerKey, puzzleID, statementID int64) (*models.AttemptResult, error)
	GetCompletion(ctx context.Context, playerKey models.PlayerKey, puzzleID int64) (*models.Completion, error)
	AttemptHistory(ctx context.Context, filter models.AttemptFilter) ([]models.Attempt, error)
	GetPuzzle(ctx context.Context, id int64) (*models.Puzzle, []models.Statement, error)
	TodayPuzzle(ctx context.Context, date string) (*models.Puzzle, []models.Statement, error)
}

type gameService struct {
	puzzleRepo     repository.PuzzleRepository
	attemptRepo    repository.AttemptRepository
	completionRepo repository.CompletionRepository
	stats          StatsService
	ranks          RankService
	maxAttempts    int
}

// NewGameService creates a new GameService
func NewGameService(
	puzzleRepo repository.PuzzleRepository,
	attemptRepo repository.AttemptRepository,
	completionRepo repository.CompletionRepository,
	stats StatsService,
	ranks RankService,
	maxAttempts int,
) GameService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &gameService{
		puzzleRepo:     puzzleRepo,
		attemptRepo:    attemptRepo,
		completionRepo: completionRepo,
		stats:          stats,
		ranks:          ranks,
		maxAttempts:    maxAttempts,
	}
}

func (s *gameService) SubmitGuess(ctx context.Context, playerKey models.PlayerKey, puzzleID, statementID int64) (*models.AttemptResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("submitting guess: player=%s, puzzle=%d, statement=%d", playerKey, puzzleID, statementID)

	puzzle, err := s.puzzleRepo.Get(ctx, puzzleID)
	if err != nil {
		log.Error("failed to load puzzle: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if puzzle == nil {
		return nil, errors.NewNotFoundError("puzzle", puzzleID)
	}

	completion, err := s.completionRepo.Get(ctx, playerKey, puzzleID)
	if err != nil {
		log.Error("failed to check completion: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if completion != nil {
		log.Debug("puzzle already completed: player=%s, puzzle=%d", playerKey, puzzleID)
		return nil, errors.NewAlreadyCompletedError(puzzleID)
	}

	isCorrect, err := s.puzzleRepo.IsCorrectStatement(ctx, puzzleID, statementID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("statement", statementID)
		}
		log.Error("failed to check statement: %v", err)
		return nil, errors.NewInternalError(err)
	}

	// Two concurrent guesses can both read the same count; the unique
	// index on attempt_number breaks the tie and the loser retries with a
	// fresh count exactly once.
	var attemptNumber int
	for tries := 0; ; tries++ {
		if tries > 0 {
			// The winner of the race may have completed the puzzle
			// between our count and the failed insert.
			completion, err := s.completionRepo.Get(ctx, playerKey, puzzleID)
			if err != nil {
				log.Error("failed to re-check completion: %v", err)
				return nil, errors.NewInternalError(err)
			}
			if completion != nil {
				return nil, errors.NewAlreadyCompletedError(puzzleID)
			}
		}

		count, err := s.attemptRepo.Count(ctx, playerKey, puzzleID)
		if err != nil {
			log.Error("failed to count attempts: %v", err)
			return nil, errors.NewInternalError(err)
		}

		attemptNumber = count + 1
		if attemptNumber > s.maxAttempts {
			log.Debug("attempt ceiling reached: player=%s, puzzle=%d", playerKey, puzzleID)
			// Attempts at the ceiling with no completion row means a
			// finalize never ran. Repair the ledger from the stored
			// attempts before rejecting the guess.
			if err := s.ensureFinalized(ctx, playerKey, puzzleID); err != nil {
				return nil, err
			}
			return nil, errors.NewAttemptsExhaustedError(puzzleID)
		}

		_, err = s.attemptRepo.Insert(ctx, models.Attempt{
			PlayerKey:     playerKey,
			PuzzleID:      puzzleID,
			StatementID:   statementID,
			AttemptNumber: attemptNumber,
			IsCorrect:     isCorrect,
		})
		if err == nil {
			break
		}
		if stderrors.Is(err, repository.ErrDuplicate) && tries == 0 {
			log.Debug("attempt number race lost, retrying: player=%s, puzzle=%d", playerKey, puzzleID)
			continue
		}
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.NewConflictError(err)
		}
		log.Error("failed to insert attempt: %v", err)
		return nil, errors.NewInternalError(err)
	}

	if isCorrect || attemptNumber == s.maxAttempts {
		if err := s.finalize(ctx, playerKey, puzzleID, attemptNumber, isCorrect); err != nil {
			return nil, err
		}
	}

	result := &models.AttemptResult{
		IsCorrect:         isCorrect,
		AttemptNumber:     attemptNumber,
		AttemptsRemaining: s.maxAttempts - attemptNumber,
	}
	log.Info("guess recorded: player=%s, puzzle=%d, attempt=%d, correct=%t",
		playerKey, puzzleID, attemptNumber, isCorrect)
	return result, nil
}

// ensureFinalized backfills a missing completion for a player who already
// holds a full set of attempts, deriving the outcome from the attempt log.
// A crash between the last attempt insert and finalize leaves exactly this
// state behind.
func (s *gameService) ensureFinalized(ctx context.Context, playerKey models.PlayerKey, puzzleID int64) error {
	log := logger.FromContext(ctx)

	completion, err := s.completionRepo.Get(ctx, playerKey, puzzleID)
	if err != nil {
		log.Error("failed to check completion: %v", err)
		return errors.NewInternalError(err)
	}
	if completion != nil {
		return nil
	}

	attempts, err := s.attemptRepo.List(ctx, models.AttemptFilter{PlayerKey: playerKey, PuzzleID: puzzleID})
	if err != nil {
		log.Error("failed to list attempts: %v", err)
		return errors.NewInternalError(err)
	}
	solved := false
	for _, a := range attempts {
		if a.IsCorrect {
			solved = true
			break
		}
	}

	log.Warn("backfilling missing completion: player=%s, puzzle=%d, solved=%t", playerKey, puzzleID, solved)
	return s.finalize(ctx, playerKey, puzzleID, s.maxAttempts, solved)
}

// finalize writes the completion and refreshes the derived state. It is
// idempotent: replays of the same outcome leave the ledger unchanged.
func (s *gameService) finalize(ctx context.Context, playerKey models.PlayerKey, puzzleID int64, attemptsUsed int, solved bool) error {
	log := logger.FromContext(ctx)

	completion := models.Completion{
		PlayerKey:    playerKey,
		PuzzleID:     puzzleID,
		AttemptsUsed: attemptsUsed,
		Solved:       solved,
		ScoreTier:    rank.ScoreTier(solved, attemptsUsed),
	}
	if _, err := s.completionRepo.Upsert(ctx, completion); err != nil {
		log.Error("failed to upsert completion: %v", err)
		return errors.NewInternalError(err)
	}

	// Both are full recomputes from the source tables, so a missed run
	// here is corrected by the next trigger rather than compounding.
	if _, err := s.stats.RecomputePuzzle(ctx, puzzleID); err != nil {
		log.Warn("failed to recompute puzzle stats: %v", err)
	}
	if _, err := s.ranks.Recompute(ctx, playerKey); err != nil {
		log.Warn("failed to recompute rank: %v", err)
	}
	return nil
}

func (s *gameService) GetCompletion(ctx context.Context, playerKey models.PlayerKey, puzzleID int64) (*models.Completion, error) {
	completion, err := s.completionRepo.Get(ctx, playerKey, puzzleID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return completion, nil
}

func (s *gameService) AttemptHistory(ctx context.Context, filter models.AttemptFilter) ([]models.Attempt, error) {
	if err := filter.Validate(); err != nil {
		return nil, errors.NewValidationError("filter", err.Error())
	}
	attempts, err := s.attemptRepo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return attempts, nil
}

func (s *gameService) GetPuzzle(ctx context.Context, id int64) (*models.Puzzle, []models.Statement, error) {
	puzzle, err := s.puzzleRepo.Get(ctx, id)
	if err != nil {
		return nil, nil, errors.NewInternalError(err)
	}
	if puzzle == nil {
		return nil, nil, errors.NewNotFoundError("puzzle", id)
	}
	statements, err := s.puzzleRepo.Statements(ctx, id)
	if err != nil {
		return nil, nil, errors.NewInternalError(err)
	}
	return puzzle, statements, nil
}

func (s *gameService) TodayPuzzle(ctx context.Context, date string) (*models.Puzzle, []models.Statement, error) {
	puzzle, err := s.puzzleRepo.GetByDate(ctx, date)
	if err != nil {
		return nil, nil, errors.NewInternalError(err)
	}
	if puzzle == nil {
		return nil, nil, errors.NewNotFoundError("puzzle for date", date)
	}
	statements, err := s.puzzleRepo.Statements(ctx, puzzle.ID)
	if err != nil {
		return nil, nil, errors.NewInternalError(err)
	}
	return puzzle, statements, nil
}
