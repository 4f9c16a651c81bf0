package match_test

import (
	"context"
	"testing"
	"time"

	"github.com/mauv0809/courtmatch/internal/database"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) match.Store {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	return match.New(db)
}

func seedMatch(t *testing.T, store match.Store) (*match.Match, []match.Slot) {
	t.Helper()
	m := &match.Match{
		ID: "m1", CreatorID: "creator", CourtID: "court-1", Date: base.Add(48 * time.Hour),
		Format: rating.Singles, Status: match.StatusPending, CreatedAt: base, UpdatedAt: base,
	}
	slots := []match.Slot{
		{ID: "s1", MatchID: "m1", Position: 0, Side: rating.Side2, Start: base.Add(48 * time.Hour), End: base.Add(49 * time.Hour), Status: match.SlotAvailable},
		{ID: "s2", MatchID: "m1", Position: 1, Side: rating.Side2, Start: base.Add(50 * time.Hour), End: base.Add(51 * time.Hour), Status: match.SlotAvailable},
	}
	err := store.WithTx(context.Background(), func(tx match.Tx) error {
		if err := tx.InsertMatch(context.Background(), m); err != nil {
			return err
		}
		for i := range slots {
			if err := tx.InsertSlot(context.Background(), &slots[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return m, slots
}

func TestMatchRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	minSkill := 2.5
	surface := "clay"

	m, _ := seedMatch(t, store)
	m.Filters = match.Filters{MinSkill: &minSkill, Surface: &surface}
	m.Status = match.StatusConfirmed

	err := store.WithTx(ctx, func(tx match.Tx) error {
		return tx.UpdateMatch(ctx, m)
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(tx match.Tx) error {
		got, err := tx.GetMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, match.StatusConfirmed, got.Status)
		assert.Equal(t, rating.Singles, got.Format)
		assert.True(t, got.Date.Equal(m.Date))
		require.NotNil(t, got.Filters.MinSkill)
		assert.Equal(t, 2.5, *got.Filters.MinSkill)
		assert.Equal(t, "clay", *got.Filters.Surface)
		assert.Nil(t, got.Filters.Gender)

		slots, err := tx.ListSlots(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, slots, 2)
		assert.Equal(t, "s1", slots[0].ID)
		assert.Equal(t, rating.Side2, slots[0].Side)
		return nil
	})
	require.NoError(t, err)

	t.Run("missing match is not found", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx match.Tx) error {
			_, err := tx.GetMatch(ctx, "nope")
			return err
		})
		assert.ErrorIs(t, err, match.ErrNotFound)
	})
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedMatch(t, store)

	err := store.WithTx(ctx, func(tx match.Tx) error {
		app := &match.Application{ID: "a1", SlotID: "s1", MatchID: "m1", ApplicantID: "u1", Status: match.ApplicationPending, CreatedAt: base, UpdatedAt: base}
		require.NoError(t, tx.InsertApplication(ctx, app))
		return match.ErrInvalidState
	})
	require.ErrorIs(t, err, match.ErrInvalidState)

	err = store.WithTx(ctx, func(tx match.Tx) error {
		_, err := tx.GetApplication(ctx, "a1")
		return err
	})
	assert.ErrorIs(t, err, match.ErrNotFound, "the application insert must have been rolled back")
}

func TestSlotLocking(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedMatch(t, store)

	run := func(fn func(tx match.Tx)) {
		require.NoError(t, store.WithTx(ctx, func(tx match.Tx) error { fn(tx); return nil }))
	}

	run(func(tx match.Tx) {
		ok, err := tx.LockSlot(ctx, "s1", "tok-a", "creator", base.Add(30*time.Second), base)
		require.NoError(t, err)
		assert.True(t, ok, "available slot can be locked")

		ok, err = tx.LockSlot(ctx, "s1", "tok-b", "other", base.Add(40*time.Second), base.Add(10*time.Second))
		require.NoError(t, err)
		assert.False(t, ok, "a live lock held by someone else cannot be taken")

		ok, err = tx.LockSlot(ctx, "s1", "tok-c", "other", base.Add(90*time.Second), base.Add(30*time.Second))
		require.NoError(t, err)
		assert.True(t, ok, "an expired lock can be taken over")

		ok, err = tx.ConfirmSlot(ctx, "s1", "tok-a", "a1")
		require.NoError(t, err)
		assert.False(t, ok, "a stale token cannot confirm")

		ok, err = tx.ConfirmSlot(ctx, "s1", "tok-c", "a1")
		require.NoError(t, err)
		assert.True(t, ok)

		slot, err := tx.GetSlot(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, match.SlotConfirmed, slot.Status)
		require.NotNil(t, slot.ConfirmedApplicationID)
		assert.Equal(t, "a1", *slot.ConfirmedApplicationID)
		assert.Nil(t, slot.LockToken)

		ok, err = tx.LockSlot(ctx, "s1", "tok-d", "creator", base.Add(time.Hour), base.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, ok, "confirmed slots cannot be locked")

		require.NoError(t, tx.ReopenSlot(ctx, "s1"))
		slot, err = tx.GetSlot(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, match.SlotAvailable, slot.Status)
		assert.Nil(t, slot.ConfirmedApplicationID)
	})

	t.Run("expired locks are swept", func(t *testing.T) {
		run(func(tx match.Tx) {
			_, err := tx.LockSlot(ctx, "s1", "t1", "creator", base.Add(time.Minute), base)
			require.NoError(t, err)
			_, err = tx.LockSlot(ctx, "s2", "t2", "creator", base.Add(time.Hour), base)
			require.NoError(t, err)

			released, err := tx.ReleaseExpiredLocks(ctx, base.Add(2*time.Minute))
			require.NoError(t, err)
			require.Len(t, released, 1)
			assert.Equal(t, "s1", released[0].ID)
			assert.Equal(t, "m1", released[0].MatchID)

			s1, _ := tx.GetSlot(ctx, "s1")
			s2, _ := tx.GetSlot(ctx, "s2")
			assert.Equal(t, match.SlotAvailable, s1.Status)
			assert.Equal(t, match.SlotLocked, s2.Status)

			ok, err := tx.ReleaseSlot(ctx, "s2", "t2")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	})
}

func TestApplications(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedMatch(t, store)

	err := store.WithTx(ctx, func(tx match.Tx) error {
		guest := "Guest Partner"
		for i, id := range []string{"a2", "a1", "a3"} {
			app := &match.Application{ID: id, SlotID: "s1", MatchID: "m1", ApplicantID: "u-" + id, Status: match.ApplicationPending,
				CreatedAt: base.Add(time.Duration(i) * time.Second), UpdatedAt: base}
			if id == "a3" {
				app.SlotID = "s2"
				app.GuestName = &guest
			}
			require.NoError(t, tx.InsertApplication(ctx, app))
		}

		dup := &match.Application{ID: "a4", SlotID: "s1", MatchID: "m1", ApplicantID: "u-a1", Status: match.ApplicationPending, CreatedAt: base, UpdatedAt: base}
		assert.ErrorIs(t, tx.InsertApplication(ctx, dup), match.ErrConflict)

		apps, err := tx.ListApplications(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, apps, 2)
		assert.Equal(t, "a2", apps[0].ID, "applications are ordered by creation time")
		assert.Equal(t, "a1", apps[1].ID)

		all, err := tx.ListMatchApplications(ctx, "m1")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		a3, err := tx.GetApplication(ctx, "a3")
		require.NoError(t, err)
		require.NotNil(t, a3.GuestName)
		assert.Equal(t, "Guest Partner", *a3.GuestName)

		require.NoError(t, tx.UpdateApplicationStatus(ctx, "a2", match.ApplicationConfirmed, base))
		assert.ErrorIs(t, tx.UpdateApplicationStatus(ctx, "a1", match.ApplicationConfirmed, base), match.ErrConflict,
			"only one confirmed application per slot")
		assert.ErrorIs(t, tx.UpdateApplicationStatus(ctx, "ghost", match.ApplicationRejected, base), match.ErrNotFound)

		expirable, err := tx.ListExpirableApplications(ctx, base.Add(49*time.Hour))
		require.NoError(t, err)
		require.Len(t, expirable, 1)
		assert.Equal(t, "a1", expirable[0].ID)

		require.NoError(t, tx.DeleteApplication(ctx, "a1"))
		_, err = tx.GetApplication(ctx, "a1")
		assert.ErrorIs(t, err, match.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestResultsAndCancellations(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	seedMatch(t, store)

	err := store.WithTx(ctx, func(tx match.Tx) error {
		r := &match.Result{
			ID: "r1", MatchID: "m1", Score: "6-4 6-3", Winner: rating.Side1, SubmitterID: "creator",
			Side1: []match.Participant{{UserID: "creator"}}, Side2: []match.Participant{{UserID: "u1"}, {GuestName: "Guest"}},
			CreatedAt: base, UpdatedAt: base,
		}
		require.NoError(t, tx.InsertResult(ctx, r))
		assert.ErrorIs(t, tx.InsertResult(ctx, &match.Result{ID: "r2", MatchID: "m1", CreatedAt: base, UpdatedAt: base}), match.ErrConflict)

		resolution := match.ResolutionOverturn
		r.Rated = true
		r.RatedWinner = rating.Side2
		r.Resolution = &resolution
		require.NoError(t, tx.UpdateResult(ctx, r))

		got, err := tx.GetResultByMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "r1", got.ID)
		assert.True(t, got.Rated)
		assert.Equal(t, rating.Side2, got.RatedWinner)
		require.NotNil(t, got.Resolution)
		assert.Equal(t, match.ResolutionOverturn, *got.Resolution)
		assert.Equal(t, "Guest", got.Side2[1].GuestName)

		for i, c := range []match.Cancellation{
			{ID: "c1", MatchID: "m1", UserID: "creator", WasConfirmed: true, CreatedAt: base.Add(-100 * 24 * time.Hour)},
			{ID: "c2", MatchID: "m2", UserID: "creator", WasConfirmed: true, CreatedAt: base.Add(-time.Hour)},
			{ID: "c3", MatchID: "m3", UserID: "creator", WasConfirmed: false, CreatedAt: base.Add(-time.Hour)},
			{ID: "c4", MatchID: "m4", UserID: "creator", WasConfirmed: true, Forced: true, CreatedAt: base.Add(-time.Hour)},
		} {
			require.NoError(t, tx.InsertCancellation(ctx, &c), "cancellation %d", i)
		}
		n, err := tx.CountCancellations(ctx, "creator", base.Add(-90*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n, "only recent, non-forced cancellations of confirmed matches count")
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerPersistence(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx match.Tx) error {
		require.NoError(t, tx.EnsureStats(ctx, &rating.UserStats{UserID: "alice", SinglesRating: 1000, DoublesRating: 1000, UpdatedAt: base}))
		require.NoError(t, tx.EnsureStats(ctx, &rating.UserStats{UserID: "alice", SinglesRating: 1500, DoublesRating: 1500, UpdatedAt: base}))

		stats, err := tx.GetStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1000, stats.SinglesRating, "EnsureStats never overwrites")

		entry := &rating.EloLogEntry{ID: "e1", UserID: "alice", MatchID: "m1", Format: rating.Singles, Kind: rating.KindMatch,
			Side: rating.Side1, OpponentIDs: []string{"bob"}, OpponentRating: 1000, RatingBefore: 1000, RatingAfter: 1016,
			StreakAfter: 1, MatchesDelta: 1, WinsDelta: 1, CreatedAt: base}
		require.NoError(t, tx.AppendEloLog(ctx, entry))

		dup := *entry
		dup.ID = "e2"
		assert.ErrorIs(t, tx.AppendEloLog(ctx, &dup), match.ErrConflict)

		comp := dup
		comp.Kind = rating.KindCompensation
		require.NoError(t, tx.AppendEloLog(ctx, &comp), "compensations may share the match id")

		entries, err := tx.ListEloLog(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "e1", entries[0].ID)
		assert.Equal(t, []string{"bob"}, entries[0].OpponentIDs)
		assert.Equal(t, rating.KindCompensation, entries[1].Kind)

		_, err = tx.GetStats(ctx, "ghost")
		assert.ErrorIs(t, err, match.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}
