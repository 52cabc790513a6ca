package services

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marlow/casefile/internal/errors"
	"github.com/marlow/casefile/internal/logger"
	"github.com/marlow/casefile/internal/models"
	"github.com/marlow/casefile/internal/rank"
	"github.com/marlow/casefile/internal/repository"
)

// RankService derives the player's rank standing from the completion
// ledger. The rank record is a cache: every recompute rebuilds it from
// scratch, so concurrent or repeated recomputes cannot make it drift.
type RankService interface {
	Recompute(ctx context.Context, playerKey models.PlayerKey) (*models.RankRecord, error)
	GetRecord(ctx context.Context, playerKey models.PlayerKey) (*models.RankRecord, error)
	Progress(ctx context.Context, playerKey models.PlayerKey) (*models.RankProgress, error)
	CurrentStreak(ctx context.Context, playerKey models.PlayerKey) (int, error)
}

type rankService struct {
	rankRepo       repository.RankRepository
	completionRepo repository.CompletionRepository
	group          singleflight.Group
	now            func() time.Time
}

// NewRankService creates a new RankService
func NewRankService(rankRepo repository.RankRepository, completionRepo repository.CompletionRepository) RankService {
	return &rankService{
		rankRepo:       rankRepo,
		completionRepo: completionRepo,
		now:            time.Now,
	}
}

func (s *rankService) Recompute(ctx context.Context, playerKey models.PlayerKey) (*models.RankRecord, error) {
	log := logger.FromContext(ctx)
	log.Debug("recomputing rank: player=%s", playerKey)

	// Coalesce concurrent recomputes for the same player; every caller
	// gets the same freshly derived record.
	v, err, _ := s.group.Do(playerKey.String(), func() (interface{}, error) {
		return s.recompute(ctx, playerKey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.RankRecord), nil
}

func (s *rankService) recompute(ctx context.Context, playerKey models.PlayerKey) (*models.RankRecord, error) {
	log := logger.FromContext(ctx)

	totals, err := s.rankRepo.Totals(ctx, playerKey)
	if err != nil {
		log.Error("failed to aggregate totals: %v", err)
		return nil, errors.NewInternalError(err)
	}

	solvedDays, err := s.completionRepo.SolvedDays(ctx, playerKey)
	if err != nil {
		log.Error("failed to load solved days: %v", err)
		return nil, errors.NewInternalError(err)
	}

	currentStreak := rank.CurrentStreak(solvedDays, s.now())
	bestStreak := rank.BestStreak(solvedDays)
	level, name := rank.Level(totals, currentStreak)

	lastActivity := ""
	completions, err := s.completionRepo.ListByPlayer(ctx, playerKey)
	if err != nil {
		log.Error("failed to list completions: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if len(completions) > 0 {
		lastActivity = completions[0].CompletedAt.Format(rank.DateLayout)
	}

	record := models.RankRecord{
		PlayerKey:        playerKey,
		RankLevel:        level,
		RankName:         name,
		TotalCompletions: totals.Completions,
		EasyCount:        totals.Easy,
		MediumCount:      totals.Medium,
		HardCount:        totals.Hard,
		PerfectCount:     totals.Perfect,
		SolvedCount:      totals.Solved,
		TotalAttempts:    totals.TotalAttempts,
		CurrentStreak:    currentStreak,
		BestStreak:       bestStreak,
		LastActivityDate: lastActivity,
	}

	if err := s.rankRepo.Save(ctx, record); err != nil {
		log.Error("failed to save rank record: %v", err)
		return nil, errors.NewInternalError(err)
	}

	log.Debug("rank recomputed: player=%s, level=%d (%s), streak=%d", playerKey, level, name, currentStreak)
	return &record, nil
}

func (s *rankService) GetRecord(ctx context.Context, playerKey models.PlayerKey) (*models.RankRecord, error) {
	record, err := s.rankRepo.Get(ctx, playerKey)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if record == nil {
		// Lazily created on first read.
		return s.Recompute(ctx, playerKey)
	}
	return record, nil
}

func (s *rankService) Progress(ctx context.Context, playerKey models.PlayerKey) (*models.RankProgress, error) {
	record, err := s.GetRecord(ctx, playerKey)
	if err != nil {
		return nil, err
	}

	progress, needed, percentage := rank.ProgressToNext(record.RankLevel, record.SolvedCount)
	out := &models.RankProgress{
		CurrentRank: record.RankLevel,
		RankName:    record.RankName,
		Progress:    progress,
		Needed:      needed,
		Percentage:  percentage,
	}
	if next := rank.NextThreshold(record.RankLevel); next != nil {
		out.NextRank = &next.Level
		out.NextName = next.Name
	}
	return out, nil
}

func (s *rankService) CurrentStreak(ctx context.Context, playerKey models.PlayerKey) (int, error) {
	solvedDays, err := s.completionRepo.SolvedDays(ctx, playerKey)
	if err != nil {
		return 0, errors.NewInternalError(err)
	}
	return rank.CurrentStreak(solvedDays, s.now()), nil
}
