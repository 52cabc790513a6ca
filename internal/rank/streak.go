package rank

import "time"

// DateLayout is the calendar-day format streaks are computed over.
const DateLayout = "2006-01-02"

func dayOf(t time.Time) string {
	return t.Format(DateLayout)
}

// CurrentStreak returns the length of the maximal run of consecutive
// calendar days, ending today or yesterday, on which the player solved at
// least one puzzle. solvedDays holds distinct "2006-01-02" strings in any
// order; days with only unsolved completions must not be included.
func CurrentStreak(solvedDays []string, today time.Time) int {
	if len(solvedDays) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(solvedDays))
	for _, d := range solvedDays {
		seen[d] = true
	}

	day := today
	if !seen[dayOf(day)] {
		// One grace day: a streak survives until the day after the last solve.
		day = day.AddDate(0, 0, -1)
		if !seen[dayOf(day)] {
			return 0
		}
	}

	streak := 0
	for seen[dayOf(day)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// BestStreak returns the longest run of consecutive solved days anywhere
// in the history, regardless of how long ago it ended.
func BestStreak(solvedDays []string) int {
	if len(solvedDays) == 0 {
		return 0
	}

	days := make(map[string]time.Time, len(solvedDays))
	for _, d := range solvedDays {
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			continue
		}
		days[d] = t
	}

	best := 0
	for d, t := range days {
		// Only start counting at the beginning of a run.
		if _, ok := days[dayOf(t.AddDate(0, 0, -1))]; ok {
			continue
		}
		length := 0
		for {
			if _, ok := days[d]; !ok {
				break
			}
			length++
			t = t.AddDate(0, 0, 1)
			d = dayOf(t)
		}
		if length > best {
			best = length
		}
	}
	return best
}
