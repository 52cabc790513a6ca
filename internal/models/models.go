package models

import (
	"fmt"
	"strings"
	"time"
)

// PlayerKey is the opaque identifier every progression row is keyed by.
// It is either "session:<token>" for anonymous visitors or "account:<id>"
// for authenticated players.
type PlayerKey string

const (
	playerKeySessionPrefix = "session:"
	playerKeyAccountPrefix = "account:"
)

// SessionKey builds a PlayerKey for an anonymous session token.
func SessionKey(token string) PlayerKey {
	return PlayerKey(playerKeySessionPrefix + token)
}

// AccountKey builds a PlayerKey for an authenticated account.
func AccountKey(accountID string) PlayerKey {
	return PlayerKey(playerKeyAccountPrefix + accountID)
}

// IsSession reports whether the key identifies an anonymous session.
func (k PlayerKey) IsSession() bool {
	return strings.HasPrefix(string(k), playerKeySessionPrefix)
}

// SessionToken returns the raw session token, or "" for account keys.
func (k PlayerKey) SessionToken() string {
	if !k.IsSession() {
		return ""
	}
	return strings.TrimPrefix(string(k), playerKeySessionPrefix)
}

func (k PlayerKey) String() string {
	return string(k)
}

// Difficulty levels a puzzle can carry.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Puzzle is the minimal slice of puzzle content the engine reads. Content
// authoring lives elsewhere.
type Puzzle struct {
	ID         int64     `json:"id"`
	Difficulty string    `json:"difficulty"`
	PuzzleDate string    `json:"puzzle_date"`
	Title      string    `json:"title"`
	Report     string    `json:"report"`
	CreatedAt  time.Time `json:"created_at"`
}

// Statement is one line of a case file. Exactly one statement per puzzle
// contradicts the report.
type Statement struct {
	ID              int64  `json:"id"`
	PuzzleID        int64  `json:"puzzle_id"`
	Position        int    `json:"position"`
	Text            string `json:"text"`
	IsContradiction bool   `json:"-"`
}

// Attempt is an immutable record of one guess. AttemptNumber is a 1-based
// sequence assigned by the recorder, never by the caller.
type Attempt struct {
	ID            int64     `json:"id"`
	PlayerKey     PlayerKey `json:"player_key"`
	PuzzleID      int64     `json:"puzzle_id"`
	StatementID   int64     `json:"statement_id"`
	AttemptNumber int       `json:"attempt_number"`
	IsCorrect     bool      `json:"is_correct"`
	CreatedAt     time.Time `json:"created_at"`
}

// AttemptResult is what a guess submission returns.
type AttemptResult struct {
	IsCorrect         bool `json:"is_correct"`
	AttemptNumber     int  `json:"attempt_number"`
	AttemptsRemaining int  `json:"attempts_remaining"`
}

// Score tiers derived from (solved, attempts used).
const (
	TierPerfect    = "perfect"     // solved on attempt 1
	TierClose      = "close"       // solved on attempt 2
	TierLucky      = "lucky"       // solved on attempt 3 or later
	TierCaseClosed = "case_closed" // attempts exhausted without a solve
)

// Completion is the single authoritative outcome for one (player, puzzle)
// pair. Later writes update in place, never insert a second row.
type Completion struct {
	ID           int64     `json:"id"`
	PlayerKey    PlayerKey `json:"player_key"`
	PuzzleID     int64     `json:"puzzle_id"`
	AttemptsUsed int       `json:"attempts_used"`
	Solved       bool      `json:"solved"`
	ScoreTier    string    `json:"score_tier"`
	CompletedAt  time.Time `json:"completed_at"`
}

// RankRecord caches the player's progression standing. It is always
// derivable from the completion history and is fully overwritten on every
// recompute.
type RankRecord struct {
	PlayerKey        PlayerKey `json:"player_key"`
	RankLevel        int       `json:"rank_level"`
	RankName         string    `json:"rank_name"`
	TotalCompletions int       `json:"total_completions"`
	EasyCount        int       `json:"easy_count"`
	MediumCount      int       `json:"medium_count"`
	HardCount        int       `json:"hard_count"`
	PerfectCount     int       `json:"perfect_count"`
	SolvedCount      int       `json:"solved_count"`
	TotalAttempts    int       `json:"total_attempts"`
	CurrentStreak    int       `json:"current_streak"`
	BestStreak       int       `json:"best_streak"`
	LastActivityDate string    `json:"last_activity_date"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RankProgress describes how far the player is from the next rank level.
// NextRank is nil at the top level.
type RankProgress struct {
	CurrentRank int     `json:"current_rank"`
	RankName    string  `json:"rank_name"`
	NextRank    *int    `json:"next_rank,omitempty"`
	NextName    string  `json:"next_name,omitempty"`
	Progress    int     `json:"progress"`
	Needed      int     `json:"needed"`
	Percentage  int     `json:"percentage"`
}

// MigrationRecord marks that a session's progress was folded into an
// account, making the fold-in at-most-once per pair.
type MigrationRecord struct {
	SessionToken string    `json:"session_token"`
	AccountID    string    `json:"account_id"`
	MigratedAt   time.Time `json:"migrated_at"`
}

// MigrationResult reports what an identity migration actually moved.
type MigrationResult struct {
	AlreadyMigrated   bool `json:"already_migrated"`
	AttemptsMoved     int  `json:"attempts_moved"`
	CompletionsMoved  int  `json:"completions_moved"`
	DuplicatesSkipped int  `json:"duplicates_skipped"`
}

// PuzzleStats holds per-puzzle aggregate counters across all players.
type PuzzleStats struct {
	PuzzleID         int64     `json:"puzzle_id"`
	TotalAttempts    int       `json:"total_attempts"`
	TotalCompletions int       `json:"total_completions"`
	SolvedCount      int       `json:"solved_count"`
	AvgAttempts      float64   `json:"avg_attempts"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SolveRate returns the fraction of completions that were solved.
func (s PuzzleStats) SolveRate() float64 {
	if s.TotalCompletions == 0 {
		return 0
	}
	return float64(s.SolvedCount) / float64(s.TotalCompletions)
}

// AttemptFilter narrows attempt history queries.
type AttemptFilter struct {
	PlayerKey PlayerKey
	PuzzleID  int64
	Limit     int
	Offset    int
}

// Validate rejects filters that would scan every player's history.
func (f AttemptFilter) Validate() error {
	if f.PlayerKey == "" {
		return fmt.Errorf("attempt filter requires a player key")
	}
	return nil
}
