package rating

import (
	"context"
	"time"
)

// Format is the match format a rating applies to.
type Format string

const (
	Singles Format = "SINGLES"
	Doubles Format = "DOUBLES"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f == Singles || f == Doubles
}

// Side identifies one of the two sides of a match. NoWinner is used for voided outcomes.
type Side int

const (
	NoWinner Side = 0
	Side1    Side = 1
	Side2    Side = 2
)

// StreakChange describes what happens to a player's win streak after a match.
type StreakChange string

const (
	StreakIncrement StreakChange = "INCREMENT"
	StreakReset     StreakChange = "RESET"
)

// EntryKind distinguishes the reason an EloLogEntry was written.
type EntryKind string

const (
	KindMatch        EntryKind = "MATCH"
	KindCompensation EntryKind = "COMPENSATION"
	KindPenalty      EntryKind = "PENALTY"
)

// Update is the output of a single ELO computation.
type Update struct {
	NewRating1 int
	NewRating2 int
	Streak1    StreakChange
	Streak2    StreakChange
}

// UserStats is the materialized rating state of a user. It must always equal
// the fold of the user's EloLogEntry rows.
type UserStats struct {
	UserID            string    `json:"user_id"`
	SinglesRating     int       `json:"singles_rating"`
	DoublesRating     int       `json:"doubles_rating"`
	SinglesStreak     int       `json:"singles_streak"`
	DoublesStreak     int       `json:"doubles_streak"`
	BestSinglesStreak int       `json:"best_singles_streak"`
	BestDoublesStreak int       `json:"best_doubles_streak"`
	TotalMatches      int       `json:"total_matches"`
	TotalWins         int       `json:"total_wins"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Rating returns the rating for the given format.
func (s *UserStats) Rating(f Format) int {
	if f == Doubles {
		return s.DoublesRating
	}
	return s.SinglesRating
}

// Streak returns the current win streak for the given format.
func (s *UserStats) Streak(f Format) int {
	if f == Doubles {
		return s.DoublesStreak
	}
	return s.SinglesStreak
}

func (s *UserStats) setRating(f Format, r int) {
	if f == Doubles {
		s.DoublesRating = r
		return
	}
	s.SinglesRating = r
}

func (s *UserStats) setStreak(f Format, streak int) {
	if f == Doubles {
		s.DoublesStreak = streak
		s.BestDoublesStreak = max(s.BestDoublesStreak, streak)
		return
	}
	s.SinglesStreak = streak
	s.BestSinglesStreak = max(s.BestSinglesStreak, streak)
}

// EloLogEntry is an immutable record of one rating change.
type EloLogEntry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	MatchID        string    `json:"match_id"`
	Format         Format    `json:"format"`
	Kind           EntryKind `json:"kind"`
	Side           Side      `json:"side"`
	OpponentIDs    []string  `json:"opponent_ids"`
	OpponentRating int       `json:"opponent_rating"`
	RatingBefore   int       `json:"rating_before"`
	RatingAfter    int       `json:"rating_after"`
	StreakBefore   int       `json:"streak_before"`
	StreakAfter    int       `json:"streak_after"`
	MatchesDelta   int       `json:"matches_delta"`
	WinsDelta      int       `json:"wins_delta"`
	CreatedAt      time.Time `json:"created_at"`
}

// Delta is the rating change carried by the entry.
func (e EloLogEntry) Delta() int {
	return e.RatingAfter - e.RatingBefore
}

// LedgerTx is the transactional persistence the Ledger needs.
type LedgerTx interface {
	EnsureStats(ctx context.Context, stats *UserStats) error
	GetStats(ctx context.Context, userID string) (*UserStats, error)
	UpsertStats(ctx context.Context, stats *UserStats) error
	AppendEloLog(ctx context.Context, entry *EloLogEntry) error
	ListEloLog(ctx context.Context, userID string) ([]EloLogEntry, error)
	ListMatchEloLog(ctx context.Context, matchID string) ([]EloLogEntry, error)
}
