package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/cache"
	"github.com/mauv0809/courtmatch/internal/cancellation"
	"github.com/mauv0809/courtmatch/internal/clock"
	"github.com/mauv0809/courtmatch/internal/config"
	"github.com/mauv0809/courtmatch/internal/confirmation"
	"github.com/mauv0809/courtmatch/internal/database"
	server "github.com/mauv0809/courtmatch/internal/http"
	"github.com/mauv0809/courtmatch/internal/ids"
	"github.com/mauv0809/courtmatch/internal/lifecycle"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/metrics"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/notifier/pubsub"
	"github.com/mauv0809/courtmatch/internal/notifier/slack"
	"github.com/mauv0809/courtmatch/internal/rating"
	"github.com/mauv0809/courtmatch/internal/sweeper"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.TursoPrimaryURL, cfg.TursoAuthToken)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	clk := clock.New()
	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()

	backend, closeBackend := newBackend(ctx, cfg, clk)
	defer closeBackend()
	dispatcher := notifier.NewDispatcher(backend, metricsSvc, clk, cfg.NotifyQueueSize)
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(ctx)
	}()

	svc := lifecycle.New(match.New(db), dispatcher, metricsSvc, cache.New(cfg.CacheTTL), clk, ids.NewULID(clk), lifecycleConfig(cfg))
	go sweeper.New(svc, clk, cfg.SweepInterval).Run(ctx)

	s := server.NewServer(svc, metricsHandler)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	// Stop the sweeper and flush queued notifications.
	stop()
	<-dispatchDone
	log.Info("Server process shutting down")
}

// newBackend picks the notification backend named by NOTIFIER.
func newBackend(ctx context.Context, cfg config.Config, clk clock.Clock) (notifier.Notifier, func()) {
	switch cfg.Notifier {
	case "slack":
		return slack.NewNotifier(cfg.SlackToken, cfg.SlackChannelID, cfg.SlackDryRun), func() {}
	case "pubsub":
		n, err := pubsub.New(ctx, cfg.ProjectID, cfg.PubSubTopic, clk)
		if err != nil {
			log.Fatalf("Failed to initialize pubsub notifier: %s", err)
		}
		return n, n.Close
	default:
		return notifier.NewLogNotifier(), func() {}
	}
}

func lifecycleConfig(cfg config.Config) lifecycle.Config {
	var penalty cancellation.PenaltyPolicy = cancellation.NoPenalty
	if cfg.CancellationPenalty > 0 {
		penalty = cancellation.FixedPenalty(cfg.CancellationPenalty)
	}
	return lifecycle.Config{
		Rating: rating.Config{
			KFactors:      map[rating.Format]float64{rating.Singles: cfg.SinglesKFactor, rating.Doubles: cfg.DoublesKFactor},
			InitialRating: cfg.InitialRating,
		},
		Confirmation: confirmation.Config{
			LockTTL:                    cfg.LockTTL,
			RequiredSlotsSingles:       cfg.RequiredSlotsSingles,
			RequiredSlotsDoubles:       cfg.RequiredSlotsDoubles,
			AutoConfirmSinglesWaitlist: cfg.AutoConfirmSinglesWaitlist,
		},
		Cancellation: cancellation.Config{
			Window:            cfg.FreeCancellationWindow,
			FreeCancellations: cfg.FreeCancellations,
			Penalty:           penalty,
		},
		Privileged: cfg.PrivilegedActors,
	}
}
