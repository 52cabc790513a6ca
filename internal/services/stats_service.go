package services

import (
	"context"

	"github.com/marlow/casefile/internal/errors"
	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/repository"
)

// StatsService maintains the per-puzzle aggregate counters.
type StatsService interface {
	RecomputePuzzle(ctx context.Context, puzzleID int64) (*models.PuzzleStats, error)
	GetPuzzleStats(ctx context.Context, puzzleID int64) (*models.PuzzleStats, error)
}

type statsService struct {
	statsRepo  repository.PuzzleStatsRepository
	puzzleRepo repository.PuzzleRepository
}

// NewStatsService creates a new StatsService
func NewStatsService(statsRepo repository.PuzzleStatsRepository, puzzleRepo repository.PuzzleRepository) StatsService {
	return &statsService{statsRepo: statsRepo, puzzleRepo: puzzleRepo}
}

func (s *statsService) RecomputePuzzle(ctx context.Context, puzzleID int64) (*models.PuzzleStats, error) {
	log := logger.FromContext(ctx)
	log.Debug("recomputing puzzle stats: puzzle=%d", puzzleID)

	stats, err := s.statsRepo.Recompute(ctx, puzzleID)
	if err != nil {
		log.Error("failed to recompute puzzle stats: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return stats, nil
}

func (s *statsService) GetPuzzleStats(ctx context.Context, puzzleID int64) (*models.PuzzleStats, error) {
	log := logger.FromContext(ctx)

	puzzle, err := s.puzzleRepo.Get(ctx, puzzleID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if puzzle == nil {
		return nil, errors.NewNotFoundError("puzzle", puzzleID)
	}

	stats, err := s.statsRepo.Get(ctx, puzzleID)
	if err != nil {
		log.Error("failed to get puzzle stats: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if stats == nil {
		// First read before any completion: materialize the zero row.
		return s.RecomputePuzzle(ctx, puzzleID)
	}
	return stats, nil
}
