package rating

// Fold replays entries from zero and returns the resulting stats. Entries must be
// in the order they were appended.
func Fold(userID string, initialRating int, entries []EloLogEntry) UserStats {
	stats := UserStats{
		UserID:        userID,
		SinglesRating: initialRating,
		DoublesRating: initialRating,
	}
	for _, e := range entries {
		stats.setRating(e.Format, stats.Rating(e.Format)+e.Delta())
		stats.setStreak(e.Format, e.StreakAfter)
		stats.TotalMatches += e.MatchesDelta
		stats.TotalWins += e.WinsDelta
		if e.CreatedAt.After(stats.UpdatedAt) {
			stats.UpdatedAt = e.CreatedAt
		}
	}
	return stats
}

// Matches reports whether the projection agrees with the replayed fold on every
// counter. UpdatedAt is ignored.
func Matches(projection, replayed UserStats) bool {
	projection.UpdatedAt = replayed.UpdatedAt
	return projection == replayed
}
