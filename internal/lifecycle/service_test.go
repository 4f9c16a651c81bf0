package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/courtmatch/internal/cache"
	"github.com/mauv0809/courtmatch/internal/cancellation"
	"github.com/mauv0809/courtmatch/internal/confirmation"
	"github.com/mauv0809/courtmatch/internal/database"
	"github.com/mauv0809/courtmatch/internal/ids"
	"github.com/mauv0809/courtmatch/internal/lifecycle"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/metrics"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupService(t *testing.T) (*lifecycle.Service, *clockwork.FakeClock, *notifier.Mock) {
	t.Helper()
	return setupServiceWithCache(t, cache.New(time.Hour))
}

func setupServiceWithCache(t *testing.T, c cache.Cache) (*lifecycle.Service, *clockwork.FakeClock, *notifier.Mock) {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	clk := clockwork.NewFakeClockAt(base)
	n := notifier.NewMock()
	svc := lifecycle.New(match.New(db), n, metrics.NewMock(), c, clk, ids.NewULID(clk), lifecycle.Config{
		Rating:       rating.Config{KFactors: map[rating.Format]float64{rating.Singles: 32, rating.Doubles: 32}},
		Confirmation: confirmation.Config{LockTTL: 30 * time.Second, RequiredSlotsSingles: 1, RequiredSlotsDoubles: 2},
		Cancellation: cancellation.Config{Window: 90 * 24 * time.Hour, FreeCancellations: 1},
		Privileged:   []string{"admin"},
	})
	return svc, clk, n
}

func singles(creator string) lifecycle.NewMatch {
	start := base.Add(48 * time.Hour)
	return lifecycle.NewMatch{
		CreatorID: creator,
		CourtID:   "court-1",
		Date:      start,
		Format:    rating.Singles,
		Slots:     []lifecycle.NewSlot{{Start: start, End: start.Add(90 * time.Minute)}},
	}
}

func TestCreateMatch(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	view, err := svc.CreateMatch(ctx, singles("creator"))
	require.NoError(t, err)
	assert.Equal(t, match.StatusPending, view.Status)
	require.Len(t, view.Slots, 1)
	assert.Equal(t, rating.Side2, view.Slots[0].Side)
	assert.Equal(t, match.SlotAvailable, view.Slots[0].Status)

	stats, err := svc.GetStats(ctx, "creator")
	require.NoError(t, err)
	assert.Equal(t, 1000, stats.SinglesRating)

	t.Run("validation", func(t *testing.T) {
		bad := []func(m *lifecycle.NewMatch){
			func(m *lifecycle.NewMatch) { m.CourtID = "" },
			func(m *lifecycle.NewMatch) { m.Format = "TRIPLES" },
			func(m *lifecycle.NewMatch) { m.Slots = nil },
			func(m *lifecycle.NewMatch) { m.Slots[0].End = m.Slots[0].Start },
			func(m *lifecycle.NewMatch) { m.Slots[0].Side = rating.Side1 },
			func(m *lifecycle.NewMatch) {
				lo, hi := 5.0, 3.0
				m.Filters = match.Filters{MinSkill: &lo, MaxSkill: &hi}
			},
		}
		for _, mutate := range bad {
			req := singles("creator")
			mutate(&req)
			_, err := svc.CreateMatch(ctx, req)
			assert.ErrorIs(t, err, match.ErrValidation)
		}
	})
}

func TestMatchLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, clk, n := setupService(t)

	view, err := svc.CreateMatch(ctx, singles("creator"))
	require.NoError(t, err)
	slotID := view.Slots[0].ID

	cached, err := svc.GetMatch(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusPending, cached.Status)

	appA, err := svc.Apply(ctx, slotID, "alice", nil)
	require.NoError(t, err)
	clk.Advance(time.Second)
	appB, err := svc.Apply(ctx, slotID, "bob", nil)
	require.NoError(t, err)

	apps, err := svc.ListApplications(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, []string{appA.ID, appB.ID}, []string{apps[0].ID, apps[1].ID})

	m, err := svc.Confirm(ctx, slotID, appA.ID, "creator")
	require.NoError(t, err)
	assert.Equal(t, match.StatusConfirmed, m.Status)

	got, err := svc.GetMatch(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusConfirmed, got.Status, "confirmation invalidates the cached view")
	assert.Equal(t, match.SlotConfirmed, got.Slots[0].Status)

	t.Run("cached stats are refreshed after rating", func(t *testing.T) {
		before, err := svc.GetStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1000, before.SinglesRating)

		clk.Advance(50 * time.Hour)
		r, err := svc.ReportResult(ctx, view.ID, "3-6 2-6", "alice", false)
		require.NoError(t, err)
		assert.Equal(t, rating.Side2, r.Winner)

		after, err := svc.GetStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1016, after.SinglesRating)

		got, err := svc.GetMatch(ctx, view.ID)
		require.NoError(t, err)
		assert.Equal(t, match.StatusCompleted, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, "3-6 2-6", got.Result.Score)
	})

	t.Run("history and verification", func(t *testing.T) {
		history, err := svc.EloHistory(ctx, "creator")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, -16, history[0].Delta())

		v, err := svc.VerifyStats(ctx, "creator")
		require.NoError(t, err)
		assert.True(t, v.Consistent)
		assert.Equal(t, 1, v.Entries)

		_, err = svc.VerifyStats(ctx, "nobody")
		assert.ErrorIs(t, err, match.ErrNotFound)
		_, err = svc.EloHistory(ctx, "nobody")
		assert.ErrorIs(t, err, match.ErrNotFound)
	})

	t.Run("completed matches cannot be cancelled or withdrawn from", func(t *testing.T) {
		_, err := svc.CancelMatch(ctx, view.ID, "creator", "")
		assert.ErrorIs(t, err, match.ErrInvalidState)
		assert.ErrorIs(t, svc.Withdraw(ctx, appA.ID, "alice"), match.ErrInvalidState)
	})

	assert.NotEmpty(t, n.EventsOfType(notifier.EventResultReported))
}

func TestUpdateMatch(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)
	view, err := svc.CreateMatch(ctx, singles("creator"))
	require.NoError(t, err)
	_, err = svc.GetMatch(ctx, view.ID)
	require.NoError(t, err)

	newDate := base.Add(72 * time.Hour)
	surface := "clay"
	updated, err := svc.UpdateMatch(ctx, view.ID, "creator", lifecycle.MatchPatch{Date: &newDate, Filters: &match.Filters{Surface: &surface}})
	require.NoError(t, err)
	assert.True(t, updated.Date.Equal(newDate))
	require.NotNil(t, updated.Filters.Surface)
	assert.Equal(t, "clay", *updated.Filters.Surface)

	court := "court-9"
	_, err = svc.UpdateMatch(ctx, view.ID, "creator", lifecycle.MatchPatch{CourtID: &court})
	assert.ErrorIs(t, err, match.ErrForbidden, "only privileged actors move matches")
	_, err = svc.UpdateMatch(ctx, view.ID, "alice", lifecycle.MatchPatch{Date: &newDate})
	assert.ErrorIs(t, err, match.ErrForbidden)
	_, err = svc.UpdateMatch(ctx, view.ID, "creator", lifecycle.MatchPatch{})
	assert.ErrorIs(t, err, match.ErrValidation)

	moved, err := svc.UpdateMatch(ctx, view.ID, "admin", lifecycle.MatchPatch{CourtID: &court})
	require.NoError(t, err)
	assert.Equal(t, "court-9", moved.CourtID)

	_, err = svc.CancelMatch(ctx, view.ID, "creator", "")
	require.NoError(t, err)
	_, err = svc.UpdateMatch(ctx, view.ID, "creator", lifecycle.MatchPatch{Date: &newDate})
	assert.ErrorIs(t, err, match.ErrInvalidState)
}

func TestDeleteAndSweep(t *testing.T) {
	ctx := context.Background()
	svc, clk, _ := setupService(t)
	view, err := svc.CreateMatch(ctx, singles("creator"))
	require.NoError(t, err)
	slotID := view.Slots[0].ID

	_, err = svc.Hold(ctx, slotID, "creator")
	require.NoError(t, err)
	got, err := svc.GetMatch(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, match.SlotLocked, got.Slots[0].Status)

	clk.Advance(time.Minute)
	require.NoError(t, svc.Sweep(ctx))
	got, err = svc.GetMatch(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, match.SlotAvailable, got.Slots[0].Status, "sweep invalidates the cached view")

	require.NoError(t, svc.DeleteMatch(ctx, view.ID, "creator"))
	_, err = svc.GetMatch(ctx, view.ID)
	assert.ErrorIs(t, err, match.ErrNotFound)
}

// gatedCache parks the first Set for an armed key until released.
type gatedCache struct {
	cache.Cache

	mu      sync.Mutex
	key     string
	paused  chan struct{}
	release chan struct{}
}

func (g *gatedCache) hold(key string) (paused, release chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.key = key
	g.paused = make(chan struct{})
	g.release = make(chan struct{})
	return g.paused, g.release
}

func (g *gatedCache) Set(key string, value any, version uint64) {
	g.mu.Lock()
	armed := g.key != "" && key == g.key
	if armed {
		g.key = ""
	}
	paused, release := g.paused, g.release
	g.mu.Unlock()
	if armed {
		close(paused)
		<-release
	}
	g.Cache.Set(key, value, version)
}

func TestGetMatch_ConcurrentConfirm(t *testing.T) {
	ctx := context.Background()
	gated := &gatedCache{Cache: cache.New(time.Hour)}
	svc, _, _ := setupServiceWithCache(t, gated)

	view, err := svc.CreateMatch(ctx, singles("creator"))
	require.NoError(t, err)
	slotID := view.Slots[0].ID
	app, err := svc.Apply(ctx, slotID, "alice", nil)
	require.NoError(t, err)

	paused, release := gated.hold(cache.MatchKey(view.ID))
	type result struct {
		view *lifecycle.MatchView
		err  error
	}
	done := make(chan result, 1)
	go func() {
		v, err := svc.GetMatch(ctx, view.ID)
		done <- result{v, err}
	}()

	select {
	case <-paused:
	case <-time.After(5 * time.Second):
		t.Fatal("reader never reached the cache")
	}

	// The reader loaded a PENDING view and is about to store it.
	_, err = svc.Confirm(ctx, slotID, app.ID, "creator")
	require.NoError(t, err)
	close(release)

	var r result
	select {
	case r = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not finish")
	}
	require.NoError(t, r.err)
	assert.Equal(t, match.StatusPending, r.view.Status)

	got, err := svc.GetMatch(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusConfirmed, got.Status, "stale view must not survive the confirm")
	assert.Equal(t, match.SlotConfirmed, got.Slots[0].Status)
}

func TestWithdraw_DoublesStaysConfirmed(t *testing.T) {
	ctx := context.Background()
	svc, _, n := setupService(t)

	start := base.Add(48 * time.Hour)
	end := start.Add(90 * time.Minute)
	view, err := svc.CreateMatch(ctx, lifecycle.NewMatch{
		CreatorID: "creator",
		CourtID:   "court-1",
		Date:      start,
		Format:    rating.Doubles,
		Slots: []lifecycle.NewSlot{
			{Start: start, End: end, Side: rating.Side2},
			{Start: start, End: end, Side: rating.Side2},
			{Start: start, End: end, Side: rating.Side1},
		},
	})
	require.NoError(t, err)
	require.Len(t, view.Slots, 3)
	s1, s2, s3 := view.Slots[0].ID, view.Slots[1].ID, view.Slots[2].ID

	alice, err := svc.Apply(ctx, s1, "alice", nil)
	require.NoError(t, err)
	bob, err := svc.Apply(ctx, s2, "bob", nil)
	require.NoError(t, err)
	wendy, err := svc.Apply(ctx, s2, "wendy", nil)
	require.NoError(t, err)
	carol, err := svc.Apply(ctx, s3, "carol", nil)
	require.NoError(t, err)

	for _, c := range []struct{ slot, app string }{{s1, alice.ID}, {s2, bob.ID}, {s3, carol.ID}} {
		_, err := svc.Confirm(ctx, c.slot, c.app, "creator")
		require.NoError(t, err)
	}
	got, err := svc.GetMatch(ctx, view.ID)
	require.NoError(t, err)
	require.Equal(t, match.StatusConfirmed, got.Status)

	n.Reset()
	require.NoError(t, svc.Withdraw(ctx, bob.ID, "bob"))

	got, err = svc.GetMatch(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusConfirmed, got.Status)
	assert.Equal(t, match.SlotAvailable, got.Slots[1].Status)
	assert.Empty(t, n.EventsOfType(notifier.EventMatchReopened))

	apps, err := svc.ListApplications(ctx, s2)
	require.NoError(t, err)
	var promoted *match.Application
	for i := range apps {
		if apps[i].ID == wendy.ID {
			promoted = &apps[i]
		}
	}
	require.NotNil(t, promoted)
	assert.Equal(t, match.ApplicationPending, promoted.Status)

	_, err = svc.Confirm(ctx, s2, wendy.ID, "creator")
	require.NoError(t, err)
	got, err = svc.GetMatch(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusConfirmed, got.Status)
	assert.Equal(t, match.SlotConfirmed, got.Slots[1].Status)
}
