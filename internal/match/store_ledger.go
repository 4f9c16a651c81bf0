package match

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mauv0809/courtmatch/internal/rating"
)

const statsColumns = `user_id, singles_rating, doubles_rating, singles_streak, doubles_streak, best_singles_streak, best_doubles_streak, total_matches, total_wins, updated_at`

const eloColumns = `id, user_id, match_id, format, kind, side, opponent_ids_json, opponent_rating, rating_before, rating_after, streak_before, streak_after, matches_delta, wins_delta, created_at`

// EnsureStats creates the stats row if the user has none. Existing rows are left untouched.
func (t *txStore) EnsureStats(ctx context.Context, s *rating.UserStats) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO user_stats (`+statsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		s.UserID, s.SinglesRating, s.DoublesRating, s.SinglesStreak, s.DoublesStreak,
		s.BestSinglesStreak, s.BestDoublesStreak, s.TotalMatches, s.TotalWins, toMillis(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to ensure stats for %s: %w", s.UserID, err)
	}
	return nil
}

func (t *txStore) GetStats(ctx context.Context, userID string) (*rating.UserStats, error) {
	var s rating.UserStats
	var updatedAt int64
	err := t.tx.QueryRowContext(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = ?`, userID).Scan(
		&s.UserID, &s.SinglesRating, &s.DoublesRating, &s.SinglesStreak, &s.DoublesStreak,
		&s.BestSinglesStreak, &s.BestDoublesStreak, &s.TotalMatches, &s.TotalWins, &updatedAt)
	if err != nil {
		return nil, notFound("stats for user", userID, err)
	}
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

func (t *txStore) UpsertStats(ctx context.Context, s *rating.UserStats) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO user_stats (`+statsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			singles_rating = excluded.singles_rating,
			doubles_rating = excluded.doubles_rating,
			singles_streak = excluded.singles_streak,
			doubles_streak = excluded.doubles_streak,
			best_singles_streak = excluded.best_singles_streak,
			best_doubles_streak = excluded.best_doubles_streak,
			total_matches = excluded.total_matches,
			total_wins = excluded.total_wins,
			updated_at = excluded.updated_at`,
		s.UserID, s.SinglesRating, s.DoublesRating, s.SinglesStreak, s.DoublesStreak,
		s.BestSinglesStreak, s.BestDoublesStreak, s.TotalMatches, s.TotalWins, toMillis(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert stats for %s: %w", s.UserID, err)
	}
	return nil
}

// AppendEloLog fails with ErrConflict when a MATCH entry already exists for the (match, user) pair.
func (t *txStore) AppendEloLog(ctx context.Context, e *rating.EloLogEntry) error {
	opponents, err := json.Marshal(e.OpponentIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal opponent ids: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO elo_log (`+eloColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.MatchID, e.Format, e.Kind, int(e.Side), string(opponents), e.OpponentRating,
		e.RatingBefore, e.RatingAfter, e.StreakBefore, e.StreakAfter, e.MatchesDelta, e.WinsDelta, toMillis(e.CreatedAt))
	return wrapWriteErr("append elo log", err)
}

func (t *txStore) ListEloLog(ctx context.Context, userID string) ([]rating.EloLogEntry, error) {
	return t.queryEloLog(ctx, `SELECT `+eloColumns+` FROM elo_log WHERE user_id = ? ORDER BY seq`, userID)
}

func (t *txStore) ListMatchEloLog(ctx context.Context, matchID string) ([]rating.EloLogEntry, error) {
	return t.queryEloLog(ctx, `SELECT `+eloColumns+` FROM elo_log WHERE match_id = ? ORDER BY seq`, matchID)
}

func (t *txStore) queryEloLog(ctx context.Context, query string, args ...any) ([]rating.EloLogEntry, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query elo log: %w", err)
	}
	defer rows.Close()

	var entries []rating.EloLogEntry
	for rows.Next() {
		var e rating.EloLogEntry
		var format, kind, opponents string
		var side int
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.MatchID, &format, &kind, &side, &opponents, &e.OpponentRating,
			&e.RatingBefore, &e.RatingAfter, &e.StreakBefore, &e.StreakAfter, &e.MatchesDelta, &e.WinsDelta, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan elo log row: %w", err)
		}
		if err := json.Unmarshal([]byte(opponents), &e.OpponentIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal opponent_ids_json: %w", err)
		}
		e.Format = rating.Format(format)
		e.Kind = rating.EntryKind(kind)
		e.Side = rating.Side(side)
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
