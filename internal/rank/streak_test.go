package rank_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marlow/casefile/internal/rank"
)

func day(t time.Time) string {
	return t.Format(rank.DateLayout)
}

func TestCurrentStreak_Empty(t *testing.T) {
	assert.Equal(t, 0, rank.CurrentStreak(nil, time.Now()))
}

func TestCurrentStreak_ConsecutiveDays(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	days := []string{
		day(today),
		day(today.AddDate(0, 0, -1)),
		day(today.AddDate(0, 0, -2)),
		// gap at D-3
		day(today.AddDate(0, 0, -5)),
	}

	assert.Equal(t, 3, rank.CurrentStreak(days, today))
}

func TestCurrentStreak_GraceDay(t *testing.T) {
	today := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	days := []string{
		day(today.AddDate(0, 0, -1)),
		day(today.AddDate(0, 0, -2)),
		day(today.AddDate(0, 0, -3)),
	}

	// Last solve was yesterday: the streak survives today.
	assert.Equal(t, 3, rank.CurrentStreak(days, today))

	// Two days without a solve and it is gone.
	assert.Equal(t, 0, rank.CurrentStreak(days, today.AddDate(0, 0, 1)))
}

func TestCurrentStreak_SingleDay(t *testing.T) {
	today := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	days := []string{day(today)}

	assert.Equal(t, 1, rank.CurrentStreak(days, today))
	assert.Equal(t, 1, rank.CurrentStreak(days, today.AddDate(0, 0, 1)))
	assert.Equal(t, 0, rank.CurrentStreak(days, today.AddDate(0, 0, 2)))
}

func TestCurrentStreak_StaleHistory(t *testing.T) {
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	days := []string{
		day(today.AddDate(0, 0, -10)),
		day(today.AddDate(0, 0, -11)),
		day(today.AddDate(0, 0, -12)),
	}

	assert.Equal(t, 0, rank.CurrentStreak(days, today))
}

func TestCurrentStreak_UnorderedInput(t *testing.T) {
	today := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	days := []string{
		day(today.AddDate(0, 0, -2)),
		day(today),
		day(today.AddDate(0, 0, -1)),
	}

	assert.Equal(t, 3, rank.CurrentStreak(days, today))
}

func TestBestStreak(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0, rank.BestStreak(nil))
	})

	t.Run("single run", func(t *testing.T) {
		days := []string{day(base), day(base.AddDate(0, 0, 1)), day(base.AddDate(0, 0, 2))}
		assert.Equal(t, 3, rank.BestStreak(days))
	})

	t.Run("longest of several runs", func(t *testing.T) {
		days := []string{
			day(base),
			day(base.AddDate(0, 0, 1)),
			// gap
			day(base.AddDate(0, 0, 5)),
			day(base.AddDate(0, 0, 6)),
			day(base.AddDate(0, 0, 7)),
			day(base.AddDate(0, 0, 8)),
			// gap
			day(base.AddDate(0, 0, 20)),
		}
		assert.Equal(t, 4, rank.BestStreak(days))
	})

	t.Run("old run beats current", func(t *testing.T) {
		days := []string{
			day(base),
			day(base.AddDate(0, 0, 1)),
			day(base.AddDate(0, 0, 2)),
			day(base.AddDate(0, 0, 30)),
		}
		assert.Equal(t, 3, rank.BestStreak(days))
	})
}
