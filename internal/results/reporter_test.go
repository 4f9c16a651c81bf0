package results_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/courtmatch/internal/database"
	"github.com/mauv0809/courtmatch/internal/ids"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/metrics"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/rating"
	"github.com/mauv0809/courtmatch/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// failingStore fails GetStats for one user to simulate a missing rating record.
type failingStore struct {
	match.Store
	failUser string
}

func (s failingStore) WithTx(ctx context.Context, fn func(tx match.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx match.Tx) error {
		return fn(failingTx{Tx: tx, failUser: s.failUser})
	})
}

type failingTx struct {
	match.Tx
	failUser string
}

func (t failingTx) GetStats(ctx context.Context, userID string) (*rating.UserStats, error) {
	if userID == t.failUser {
		return nil, errors.New("stats unavailable")
	}
	return t.Tx.GetStats(ctx, userID)
}

type fixture struct {
	store    match.Store
	clock    *clockwork.FakeClock
	ledger   *rating.Ledger
	reporter *results.Reporter
	notifier *notifier.Mock
	metrics  *metrics.Mock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	clk := clockwork.NewFakeClockAt(base)
	gen := ids.NewULID(clk)
	f := &fixture{
		store:    match.New(db),
		clock:    clk,
		ledger:   rating.NewLedger(rating.NewEngine(rating.Config{}), clk, gen),
		notifier: notifier.NewMock(),
		metrics:  metrics.NewMock(),
	}
	f.reporter = results.NewReporter(f.store, clk, gen, f.ledger, match.NewPrivileged([]string{"admin"}), f.notifier, f.metrics)
	return f
}

type seat struct {
	side      rating.Side
	applicant string
	guest     *string
}

// seed stores a CONFIRMED match played two hours ago with one confirmed seat per entry.
func (f *fixture) seed(t *testing.T, format rating.Format, seats ...seat) {
	t.Helper()
	ctx := context.Background()
	played := base.Add(-2 * time.Hour)
	require.NoError(t, f.store.WithTx(ctx, func(tx match.Tx) error {
		if err := tx.InsertMatch(ctx, &match.Match{ID: "m1", CreatorID: "creator", CourtID: "court-1", Date: played,
			Format: format, Status: match.StatusConfirmed, CreatedAt: base, UpdatedAt: base}); err != nil {
			return err
		}
		if err := f.ledger.EnsureStats(ctx, tx, "creator"); err != nil {
			return err
		}
		for i, s := range seats {
			slotID := "s" + string(rune('1'+i))
			appID := "a" + string(rune('1'+i))
			if err := tx.InsertSlot(ctx, &match.Slot{ID: slotID, MatchID: "m1", Position: i, Side: s.side,
				Start: played, End: played.Add(time.Hour), Status: match.SlotConfirmed, ConfirmedApplicationID: &appID}); err != nil {
				return err
			}
			if err := tx.InsertApplication(ctx, &match.Application{ID: appID, SlotID: slotID, MatchID: "m1", ApplicantID: s.applicant,
				GuestName: s.guest, Status: match.ApplicationConfirmed, CreatedAt: base, UpdatedAt: base}); err != nil {
				return err
			}
			if err := f.ledger.EnsureStats(ctx, tx, s.applicant); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (f *fixture) stats(t *testing.T, userID string) *rating.UserStats {
	t.Helper()
	var stats *rating.UserStats
	require.NoError(t, f.store.WithTx(context.Background(), func(tx match.Tx) error {
		var err error
		stats, err = tx.GetStats(context.Background(), userID)
		return err
	}))
	return stats
}

func (f *fixture) matchStatus(t *testing.T) match.Status {
	t.Helper()
	var status match.Status
	require.NoError(t, f.store.WithTx(context.Background(), func(tx match.Tx) error {
		m, err := tx.GetMatch(context.Background(), "m1")
		if err != nil {
			return err
		}
		status = m.Status
		return nil
	}))
	return status
}

func (f *fixture) matchLog(t *testing.T) []rating.EloLogEntry {
	t.Helper()
	var entries []rating.EloLogEntry
	require.NoError(t, f.store.WithTx(context.Background(), func(tx match.Tx) error {
		var err error
		entries, err = tx.ListMatchEloLog(context.Background(), "m1")
		return err
	}))
	return entries
}

func TestReport(t *testing.T) {
	ctx := context.Background()

	t.Run("undisputed result rates the players and completes the match", func(t *testing.T) {
		f := setup(t)
		f.seed(t, rating.Singles, seat{side: rating.Side2, applicant: "bob"})

		r, err := f.reporter.Report(ctx, "m1", "6-4 6-2", "creator", false)
		require.NoError(t, err)
		assert.True(t, r.Rated)
		assert.Equal(t, rating.Side1, r.Winner)
		assert.Equal(t, []match.Participant{{UserID: "creator"}}, r.Side1)
		assert.Equal(t, []match.Participant{{UserID: "bob"}}, r.Side2)
		assert.Equal(t, match.StatusCompleted, f.matchStatus(t))

		assert.Equal(t, 1016, f.stats(t, "creator").SinglesRating)
		assert.Equal(t, 984, f.stats(t, "bob").SinglesRating)
		assert.Equal(t, 2, f.metrics.RatingUpdates())
		assert.Len(t, f.notifier.EventsOfType(notifier.EventResultReported), 2)

		t.Run("reporting the same score again is a no-op", func(t *testing.T) {
			again, err := f.reporter.Report(ctx, "m1", "6-4  6-2", "bob", false)
			require.NoError(t, err)
			assert.Equal(t, r.ID, again.ID)
			assert.Len(t, f.matchLog(t), 2)
			assert.Equal(t, 1016, f.stats(t, "creator").SinglesRating)
		})
	})

	t.Run("only participants or privileged actors may report", func(t *testing.T) {
		f := setup(t)
		f.seed(t, rating.Singles, seat{side: rating.Side2, applicant: "bob"})

		_, err := f.reporter.Report(ctx, "m1", "6-4", "mallory", false)
		assert.ErrorIs(t, err, match.ErrForbidden)
		_, err = f.reporter.Report(ctx, "m1", "6-4", "admin", false)
		assert.NoError(t, err)
	})

	t.Run("input and state checks", func(t *testing.T) {
		f := setup(t)
		f.seed(t, rating.Singles, seat{side: rating.Side2, applicant: "bob"})

		_, err := f.reporter.Report(ctx, "m1", "6-4 4-6", "creator", false)
		assert.ErrorIs(t, err, match.ErrValidation)
		_, err = f.reporter.Report(ctx, "missing", "6-4", "creator", false)
		assert.ErrorIs(t, err, match.ErrNotFound)

		update := func(fn func(m *match.Match)) {
			require.NoError(t, f.store.WithTx(ctx, func(tx match.Tx) error {
				m, err := tx.GetMatch(ctx, "m1")
				if err != nil {
					return err
				}
				fn(m)
				return tx.UpdateMatch(ctx, m)
			}))
		}

		update(func(m *match.Match) { m.Date = base.Add(time.Hour) })
		_, err = f.reporter.Report(ctx, "m1", "6-4", "creator", false)
		assert.ErrorIs(t, err, match.ErrInvalidState, "match date is in the future")

		update(func(m *match.Match) { m.Date = base.Add(-time.Hour); m.Status = match.StatusPending })
		_, err = f.reporter.Report(ctx, "m1", "6-4", "creator", false)
		assert.ErrorIs(t, err, match.ErrInvalidState)
	})

	t.Run("rating failure rolls the whole report back", func(t *testing.T) {
		f := setup(t)
		f.seed(t, rating.Singles, seat{side: rating.Side2, applicant: "bob"})
		reporter := results.NewReporter(failingStore{Store: f.store, failUser: "bob"}, f.clock, ids.NewULID(f.clock),
			f.ledger, match.NewPrivileged(nil), f.notifier, f.metrics)

		_, err := reporter.Report(ctx, "m1", "6-4", "creator", false)
		require.Error(t, err)
		assert.Equal(t, match.StatusConfirmed, f.matchStatus(t))
		assert.Empty(t, f.matchLog(t))
		assert.Equal(t, 1000, f.stats(t, "creator").SinglesRating)
		require.NoError(t, f.store.WithTx(ctx, func(tx match.Tx) error {
			_, err := tx.GetResultByMatch(ctx, "m1")
			assert.ErrorIs(t, err, match.ErrNotFound)
			return nil
		}))
		assert.Empty(t, f.notifier.Events())
	})

	t.Run("doubles sides include guests who are not rated", func(t *testing.T) {
		f := setup(t)
		guest := "Uncle Ted"
		f.seed(t, rating.Doubles,
			seat{side: rating.Side1, applicant: "alice"},
			seat{side: rating.Side2, applicant: "bob", guest: &guest},
		)

		r, err := f.reporter.Report(ctx, "m1", "4-6 4-6", "bob", false)
		require.NoError(t, err)
		assert.Equal(t, []match.Participant{{UserID: "creator"}, {UserID: "alice"}}, r.Side1)
		assert.Equal(t, []match.Participant{{UserID: "bob"}, {GuestName: "Uncle Ted"}}, r.Side2)
		assert.Len(t, f.matchLog(t), 3)
		assert.Equal(t, 1016, f.stats(t, "bob").DoublesRating)
		assert.Equal(t, 984, f.stats(t, "alice").DoublesRating)
	})
}

func TestDisputes(t *testing.T) {
	ctx := context.Background()

	t.Run("a contested score is flagged and overturned with compensation", func(t *testing.T) {
		f := setup(t)
		f.seed(t, rating.Singles, seat{side: rating.Side2, applicant: "bob"})
		_, err := f.reporter.Report(ctx, "m1", "6-4 6-4", "creator", false)
		require.NoError(t, err)

		_, err = f.reporter.Report(ctx, "m1", "6-3 6-3", "creator", false)
		assert.ErrorIs(t, err, match.ErrInvalidState, "submitter cannot contest own result")

		r, err := f.reporter.Report(ctx, "m1", "4-6 4-6", "bob", false)
		require.NoError(t, err)
		assert.True(t, r.Disputed)
		require.NotNil(t, r.DisputedScore)
		assert.Equal(t, "4-6 4-6", *r.DisputedScore)
		assert.Len(t, f.notifier.EventsOfType(notifier.EventResultDisputed), 1)

		_, err = f.reporter.Resolve(ctx, r.ID, match.ResolutionOverturn, "", "creator")
		assert.ErrorIs(t, err, match.ErrForbidden)

		resolved, err := f.reporter.Resolve(ctx, r.ID, match.ResolutionOverturn, "", "admin")
		require.NoError(t, err)
		assert.Equal(t, "4-6 4-6", resolved.Score)
		assert.Equal(t, rating.Side2, resolved.RatedWinner)
		assert.False(t, resolved.Disputed)

		creator := f.stats(t, "creator")
		bob := f.stats(t, "bob")
		assert.Equal(t, 984, creator.SinglesRating)
		assert.Equal(t, 1016, bob.SinglesRating)
		assert.Equal(t, 1, creator.TotalMatches)
		assert.Equal(t, 0, creator.TotalWins)
		assert.Equal(t, 1, bob.TotalWins)
		assert.Len(t, f.notifier.EventsOfType(notifier.EventDisputeResolved), 2)

		_, err = f.reporter.Resolve(ctx, r.ID, match.ResolutionVoid, "", "admin")
		assert.ErrorIs(t, err, match.ErrInvalidState)
		_, err = f.reporter.Report(ctx, "m1", "6-0 6-0", "bob", false)
		assert.ErrorIs(t, err, match.ErrInvalidState)
	})

	t.Run("disputed reports are rated only once confirmed", func(t *testing.T) {
		f := setup(t)
		f.seed(t, rating.Singles, seat{side: rating.Side2, applicant: "bob"})

		r, err := f.reporter.Report(ctx, "m1", "6-4", "bob", true)
		require.NoError(t, err)
		assert.True(t, r.Disputed)
		assert.False(t, r.Rated)
		assert.Equal(t, match.StatusCompleted, f.matchStatus(t))
		assert.Empty(t, f.matchLog(t))

		resolved, err := f.reporter.Resolve(ctx, r.ID, match.ResolutionConfirm, "", "admin")
		require.NoError(t, err)
		assert.True(t, resolved.Rated)
		assert.Equal(t, 1016, f.stats(t, "creator").SinglesRating)
	})

	t.Run("void restores the pre-match ratings", func(t *testing.T) {
		f := setup(t)
		f.seed(t, rating.Singles, seat{side: rating.Side2, applicant: "bob"})
		_, err := f.reporter.Report(ctx, "m1", "6-4", "creator", false)
		require.NoError(t, err)
		r, err := f.reporter.Report(ctx, "m1", "6-4", "bob", true)
		require.NoError(t, err)
		assert.Nil(t, r.DisputedScore)

		resolved, err := f.reporter.Resolve(ctx, r.ID, match.ResolutionVoid, "", "admin")
		require.NoError(t, err)
		assert.Equal(t, rating.NoWinner, resolved.RatedWinner)

		creator := f.stats(t, "creator")
		assert.Equal(t, 1000, creator.SinglesRating)
		assert.Equal(t, 0, creator.TotalMatches)
		assert.Equal(t, match.StatusCompleted, f.matchStatus(t))
	})

	t.Run("resolving an undisputed result is an invalid state", func(t *testing.T) {
		f := setup(t)
		f.seed(t, rating.Singles, seat{side: rating.Side2, applicant: "bob"})
		r, err := f.reporter.Report(ctx, "m1", "6-4", "creator", false)
		require.NoError(t, err)

		_, err = f.reporter.Resolve(ctx, r.ID, match.ResolutionConfirm, "", "admin")
		assert.ErrorIs(t, err, match.ErrInvalidState)
		_, err = f.reporter.Resolve(ctx, r.ID, match.Resolution("MAYBE"), "", "admin")
		assert.ErrorIs(t, err, match.ErrValidation)
	})
}
