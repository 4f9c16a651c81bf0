package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/courtmatch/internal/cache"
	"github.com/mauv0809/courtmatch/internal/config"
	"github.com/mauv0809/courtmatch/internal/confirmation"
	"github.com/mauv0809/courtmatch/internal/database"
	"github.com/mauv0809/courtmatch/internal/ids"
	"github.com/mauv0809/courtmatch/internal/lifecycle"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/metrics"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/rating"
)

const numMatches = 500

var scores = []string{"6-4 6-4", "6-3 4-6 10-8", "4-6 3-6", "7-6 6-7 6-4", "2-6 6-4 8-10"}

// The seeder plays singles matches between a few dummy players through the lifecycle
// service, on a clock that starts a year ago, and checks every rating afterwards.
func main() {
	log.Info("Starting database seeder...")
	cfg := config.Load()

	db, teardown, err := database.InitDB(cfg.DBName, cfg.TursoPrimaryURL, cfg.TursoAuthToken)
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer teardown()

	clk := clockwork.NewFakeClockAt(time.Now().AddDate(-1, 0, 0))
	svc := lifecycle.New(match.New(db), notifier.NewLogNotifier(), metrics.NewMock(), cache.Noop{}, clk, ids.NewULID(clk), lifecycle.Config{
		Rating: rating.Config{
			KFactors:      map[rating.Format]float64{rating.Singles: cfg.SinglesKFactor, rating.Doubles: cfg.DoublesKFactor},
			InitialRating: cfg.InitialRating,
		},
		Confirmation: confirmation.Config{LockTTL: cfg.LockTTL, RequiredSlotsSingles: 1, RequiredSlotsDoubles: cfg.RequiredSlotsDoubles},
	})

	players := []string{"seed-player-a", "seed-player-b", "seed-player-c", "seed-player-d"}
	ctx := context.Background()
	startTime := time.Now()
	for i := 0; i < numMatches; i++ {
		creator := players[rand.Intn(len(players))]
		opponent := players[rand.Intn(len(players))]
		for opponent == creator {
			opponent = players[rand.Intn(len(players))]
		}
		if err := playMatch(ctx, svc, clk, creator, opponent, scores[rand.Intn(len(scores))]); err != nil {
			log.Fatalf("Failed to seed match %d: %s", i, err)
		}
		if (i+1)%100 == 0 {
			log.Info("Seeded batch", "completed", i+1, "total", numMatches)
		}
	}
	log.Info("Successfully seeded all matches.", "duration", time.Since(startTime))

	for _, p := range players {
		v, err := svc.VerifyStats(ctx, p)
		if err != nil {
			log.Fatalf("Failed to verify stats for %s: %s", p, err)
		}
		log.Info("Verified player", "user", p, "singlesRating", v.Projection.SinglesRating, "matches", v.Projection.TotalMatches, "consistent", v.Consistent)
	}
}

func playMatch(ctx context.Context, svc *lifecycle.Service, clk *clockwork.FakeClock, creator, opponent, score string) error {
	start := clk.Now().Add(time.Hour)
	view, err := svc.CreateMatch(ctx, lifecycle.NewMatch{
		CreatorID: creator,
		CourtID:   "seeded-court",
		Date:      start,
		Format:    rating.Singles,
		Slots:     []lifecycle.NewSlot{{Start: start, End: start.Add(90 * time.Minute)}},
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	slotID := view.Slots[0].ID
	app, err := svc.Apply(ctx, slotID, opponent, nil)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	if _, err := svc.Confirm(ctx, slotID, app.ID, creator); err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	clk.Advance(3 * time.Hour)
	if _, err := svc.ReportResult(ctx, view.ID, score, opponent, false); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	clk.Advance(time.Duration(rand.Intn(12)) * time.Hour)
	return nil
}
