package rank

// MaxLevel is the rank ceiling. Bonuses never push past it.
const MaxLevel = 10

// Threshold maps a minimum solved count to a rank level. The table must
// stay strictly increasing in MinSolved.
type Threshold struct {
	Level     int
	Name      string
	MinSolved int
}

// Levels is the rank ladder, tunable policy rather than invariant.
var Levels = []Threshold{
	{Level: 1, Name: "Novice", MinSolved: 0},
	{Level: 2, Name: "Trainee Detective", MinSolved: 5},
	{Level: 3, Name: "Junior Detective", MinSolved: 15},
	{Level: 4, Name: "Detective", MinSolved: 30},
	{Level: 5, Name: "Sergeant", MinSolved: 60},
	{Level: 6, Name: "Inspector", MinSolved: 100},
	{Level: 7, Name: "Chief Inspector", MinSolved: 160},
	{Level: 8, Name: "Superintendent", MinSolved: 240},
	{Level: 9, Name: "Master Detective", MinSolved: 350},
	{Level: 10, Name: "Legendary Sleuth", MinSolved: 500},
}

// Bonus rule cutoffs.
const (
	bonusHardCompletions = 50
	bonusHardSolveRate   = 0.8
	bonusPerfectCount    = 100
	bonusStreakDays      = 30
)

// ScoreTier buckets an outcome by attempts used. Any solved completion
// past attempt 2 is "lucky"; an unsolved one is "case_closed".
func ScoreTier(solved bool, attemptsUsed int) string {
	if !solved {
		return "case_closed"
	}
	switch attemptsUsed {
	case 1:
		return "perfect"
	case 2:
		return "close"
	default:
		return "lucky"
	}
}

// Totals are the aggregates a rank is derived from.
type Totals struct {
	Completions   int
	Easy          int
	Medium        int
	Hard          int
	Perfect       int
	Solved        int
	TotalAttempts int
}

// SolveRate returns solved/completions, 0 when there are no completions.
func (t Totals) SolveRate() float64 {
	if t.Completions == 0 {
		return 0
	}
	return float64(t.Solved) / float64(t.Completions)
}

// BaseLevel maps a solved count onto the ladder.
func BaseLevel(solved int) Threshold {
	current := Levels[0]
	for _, th := range Levels {
		if solved >= th.MinSolved {
			current = th
		}
	}
	return current
}

// Level computes the final rank level and name: base level from solved
// count, plus one level per met bonus condition, capped at MaxLevel.
func Level(t Totals, currentStreak int) (int, string) {
	level := BaseLevel(t.Solved).Level

	if t.Hard >= bonusHardCompletions && t.SolveRate() >= bonusHardSolveRate {
		level++
	}
	if t.Perfect >= bonusPerfectCount {
		level++
	}
	if currentStreak >= bonusStreakDays {
		level++
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return level, Levels[level-1].Name
}

// NextThreshold returns the threshold above the given level, or nil at the
// top of the ladder.
func NextThreshold(level int) *Threshold {
	if level >= MaxLevel {
		return nil
	}
	next := Levels[level]
	return &next
}

// ProgressToNext reports how far solvedCount has advanced from the given
// level toward the next one. Returns progress, needed and a percentage
// clamped to [0, 100]. At MaxLevel needed is 0 and percentage 100.
func ProgressToNext(level, solvedCount int) (progress, needed, percentage int) {
	next := NextThreshold(level)
	if next == nil {
		return 0, 0, 100
	}

	current := Levels[level-1]
	progress = solvedCount - current.MinSolved
	if progress < 0 {
		// A bonus level can outrun the solved count; show a fresh bar.
		progress = 0
	}
	needed = next.MinSolved - current.MinSolved
	percentage = int(float64(progress)/float64(needed)*100 + 0.5)
	if percentage > 100 {
		percentage = 100
	}
	return progress, needed, percentage
}
