package rating

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/clock"
	"github.com/mauv0809/courtmatch/internal/ids"
)

// Outcome is a completed match as seen by the rating ledger. Side1 and Side2 hold
// the rated (non-guest) user ids of each side.
type Outcome struct {
	MatchID string
	Format  Format
	Side1   []string
	Side2   []string
	Winner  Side
}

// Ledger applies engine output to the persisted projection and the append-only log.
type Ledger struct {
	engine *Engine
	clock  clock.Clock
	ids    ids.Generator
}

// NewLedger creates a new Ledger.
func NewLedger(engine *Engine, clk clock.Clock, gen ids.Generator) *Ledger {
	return &Ledger{engine: engine, clock: clk, ids: gen}
}

// Engine returns the underlying rating engine.
func (l *Ledger) Engine() *Engine {
	return l.engine
}

// EnsureStats creates a stats record at the initial rating if userID has none.
func (l *Ledger) EnsureStats(ctx context.Context, tx LedgerTx, userID string) error {
	stats := &UserStats{
		UserID:        userID,
		SinglesRating: l.engine.InitialRating(),
		DoublesRating: l.engine.InitialRating(),
		UpdatedAt:     l.clock.Now(),
	}
	if err := tx.EnsureStats(ctx, stats); err != nil {
		return fmt.Errorf("failed to ensure stats for %s: %w", userID, err)
	}
	return nil
}

// ApplyMatch rates every player of o and returns the appended log entries. Each
// player of a side is rated against the mean rating of the opposing side.
func (l *Ledger) ApplyMatch(ctx context.Context, tx LedgerTx, o Outcome) ([]EloLogEntry, error) {
	if o.Winner != Side1 && o.Winner != Side2 {
		return nil, fmt.Errorf("invalid winner %d for match %s", o.Winner, o.MatchID)
	}
	side1, err := l.load(ctx, tx, o.Side1)
	if err != nil {
		return nil, err
	}
	side2, err := l.load(ctx, tx, o.Side2)
	if err != nil {
		return nil, err
	}
	mean1 := Mean(ratings(side1, o.Format), l.engine.InitialRating())
	mean2 := Mean(ratings(side2, o.Format), l.engine.InitialRating())

	var entries []EloLogEntry
	for _, s := range side1 {
		upd, err := l.engine.ComputeUpdate(o.Format, s.Rating(o.Format), mean2, o.Winner)
		if err != nil {
			return nil, err
		}
		entry, err := l.write(ctx, tx, s, EloLogEntry{
			MatchID:        o.MatchID,
			Format:         o.Format,
			Kind:           KindMatch,
			Side:           Side1,
			OpponentIDs:    o.Side2,
			OpponentRating: mean2,
			RatingAfter:    upd.NewRating1,
			StreakAfter:    ApplyStreak(s.Streak(o.Format), upd.Streak1),
			MatchesDelta:   1,
			WinsDelta:      won(o.Winner, Side1),
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	for _, s := range side2 {
		upd, err := l.engine.ComputeUpdate(o.Format, mean1, s.Rating(o.Format), o.Winner)
		if err != nil {
			return nil, err
		}
		entry, err := l.write(ctx, tx, s, EloLogEntry{
			MatchID:        o.MatchID,
			Format:         o.Format,
			Kind:           KindMatch,
			Side:           Side2,
			OpponentIDs:    o.Side1,
			OpponentRating: mean1,
			RatingAfter:    upd.NewRating2,
			StreakAfter:    ApplyStreak(s.Streak(o.Format), upd.Streak2),
			MatchesDelta:   1,
			WinsDelta:      won(o.Winner, Side2),
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	log.Info("Applied match rating", "matchID", o.MatchID, "format", o.Format, "winner", o.Winner, "entries", len(entries))
	return entries, nil
}

// Compensate moves the ratings of a match from the currently applied outcome to
// target by appending compensating entries. Match and win totals are adjusted by
// the difference only, so the match is never counted twice. A target of NoWinner
// voids the match.
func (l *Ledger) Compensate(ctx context.Context, tx LedgerTx, matchID string, current, target Side) ([]EloLogEntry, error) {
	if current == target {
		return nil, nil
	}
	logEntries, err := tx.ListMatchEloLog(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rating log for match %s: %w", matchID, err)
	}

	var entries []EloLogEntry
	for _, orig := range logEntries {
		if orig.Kind != KindMatch {
			continue
		}
		cur, err := l.effective(orig, current)
		if err != nil {
			return nil, err
		}
		tgt, err := l.effective(orig, target)
		if err != nil {
			return nil, err
		}
		stats, err := tx.GetStats(ctx, orig.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get stats for %s: %w", orig.UserID, err)
		}
		latest, err := l.isLatest(ctx, tx, orig)
		if err != nil {
			return nil, err
		}
		streakAfter := stats.Streak(orig.Format)
		if latest {
			streakAfter = tgt.streak
		}
		entry, err := l.write(ctx, tx, stats, EloLogEntry{
			MatchID:        matchID,
			Format:         orig.Format,
			Kind:           KindCompensation,
			Side:           orig.Side,
			OpponentIDs:    orig.OpponentIDs,
			OpponentRating: orig.OpponentRating,
			RatingAfter:    stats.Rating(orig.Format) + tgt.rating - cur.rating,
			StreakAfter:    streakAfter,
			MatchesDelta:   tgt.played - cur.played,
			WinsDelta:      tgt.won - cur.won,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	log.Info("Compensated match rating", "matchID", matchID, "from", current, "to", target, "entries", len(entries))
	return entries, nil
}

// ApplyPenalty deducts points from the user's rating in format.
func (l *Ledger) ApplyPenalty(ctx context.Context, tx LedgerTx, userID, matchID string, format Format, points int) (*EloLogEntry, error) {
	stats, err := tx.GetStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for %s: %w", userID, err)
	}
	entry, err := l.write(ctx, tx, stats, EloLogEntry{
		MatchID:     matchID,
		Format:      format,
		Kind:        KindPenalty,
		RatingAfter: stats.Rating(format) - points,
		StreakAfter: stats.Streak(format),
	})
	if err != nil {
		return nil, err
	}
	log.Info("Applied cancellation penalty", "userID", userID, "matchID", matchID, "points", points)
	return &entry, nil
}

type effectiveState struct {
	rating int
	streak int
	played int
	won    int
}

// effective returns what orig's player would look like if the match had ended with outcome.
func (l *Ledger) effective(orig EloLogEntry, outcome Side) (effectiveState, error) {
	if outcome == NoWinner {
		return effectiveState{rating: orig.RatingBefore, streak: orig.StreakBefore}, nil
	}
	r1, r2 := orig.RatingBefore, orig.OpponentRating
	if orig.Side == Side2 {
		r1, r2 = orig.OpponentRating, orig.RatingBefore
	}
	upd, err := l.engine.ComputeUpdate(orig.Format, r1, r2, outcome)
	if err != nil {
		return effectiveState{}, err
	}
	rating, change := upd.NewRating1, upd.Streak1
	if orig.Side == Side2 {
		rating, change = upd.NewRating2, upd.Streak2
	}
	return effectiveState{
		rating: rating,
		streak: ApplyStreak(orig.StreakBefore, change),
		played: 1,
		won:    won(outcome, orig.Side),
	}, nil
}

// isLatest reports whether the user's newest entry in orig's format belongs to orig's match.
func (l *Ledger) isLatest(ctx context.Context, tx LedgerTx, orig EloLogEntry) (bool, error) {
	history, err := tx.ListEloLog(ctx, orig.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to list rating log for %s: %w", orig.UserID, err)
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Format == orig.Format {
			return history[i].MatchID == orig.MatchID, nil
		}
	}
	return false, nil
}

func (l *Ledger) load(ctx context.Context, tx LedgerTx, userIDs []string) ([]*UserStats, error) {
	out := make([]*UserStats, 0, len(userIDs))
	for _, id := range userIDs {
		stats, err := tx.GetStats(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get stats for %s: %w", id, err)
		}
		out = append(out, stats)
	}
	return out, nil
}

// write appends e for stats' user and folds it into the projection.
func (l *Ledger) write(ctx context.Context, tx LedgerTx, stats *UserStats, e EloLogEntry) (EloLogEntry, error) {
	now := l.clock.Now()
	e.ID = l.ids.NewID()
	e.UserID = stats.UserID
	e.RatingBefore = stats.Rating(e.Format)
	e.StreakBefore = stats.Streak(e.Format)
	e.CreatedAt = now
	if err := tx.AppendEloLog(ctx, &e); err != nil {
		return EloLogEntry{}, fmt.Errorf("failed to append rating log for %s: %w", stats.UserID, err)
	}

	stats.setRating(e.Format, e.RatingAfter)
	stats.setStreak(e.Format, e.StreakAfter)
	stats.TotalMatches += e.MatchesDelta
	stats.TotalWins += e.WinsDelta
	stats.UpdatedAt = now
	if err := tx.UpsertStats(ctx, stats); err != nil {
		return EloLogEntry{}, fmt.Errorf("failed to update stats for %s: %w", stats.UserID, err)
	}
	return e, nil
}

func ratings(stats []*UserStats, f Format) []int {
	out := make([]int, 0, len(stats))
	for _, s := range stats {
		out = append(out, s.Rating(f))
	}
	return out
}

func won(winner, side Side) int {
	if winner == side {
		return 1
	}
	return 0
}
