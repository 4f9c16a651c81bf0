package lifecycle

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/cache"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/rating"
)

// GetStats returns the user's rating projection.
func (s *Service) GetStats(ctx context.Context, userID string) (*rating.UserStats, error) {
	key := cache.StatsKey(userID)
	if v, ok := s.cache.Get(key); ok {
		if stats, ok := v.(*rating.UserStats); ok {
			return stats, nil
		}
	}
	version := s.cache.Version(key)
	var stats *rating.UserStats
	err := s.store.WithTx(ctx, func(tx match.Tx) error {
		var err error
		stats, err = tx.GetStats(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, stats, version)
	return stats, nil
}

// EloHistory returns the user's rating log, oldest first.
func (s *Service) EloHistory(ctx context.Context, userID string) ([]rating.EloLogEntry, error) {
	var entries []rating.EloLogEntry
	err := s.store.WithTx(ctx, func(tx match.Tx) error {
		if _, err := tx.GetStats(ctx, userID); err != nil {
			return err
		}
		var err error
		entries, err = tx.ListEloLog(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// VerifyStats replays the user's rating log from the initial rating and compares the
// result with the stored projection.
func (s *Service) VerifyStats(ctx context.Context, userID string) (*StatsVerification, error) {
	var v StatsVerification
	err := s.store.WithTx(ctx, func(tx match.Tx) error {
		stats, err := tx.GetStats(ctx, userID)
		if err != nil {
			return err
		}
		entries, err := tx.ListEloLog(ctx, userID)
		if err != nil {
			return err
		}
		v = StatsVerification{
			UserID:     userID,
			Projection: *stats,
			Replayed:   rating.Fold(userID, s.ledger.Engine().InitialRating(), entries),
			Entries:    len(entries),
		}
		v.Consistent = rating.Matches(v.Projection, v.Replayed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !v.Consistent {
		log.Error("Stats projection diverges from rating log", "userID", userID, "projection", v.Projection, "replayed", v.Replayed)
	}
	return &v, nil
}
