package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/cache"
	"github.com/mauv0809/courtmatch/internal/cancellation"
	"github.com/mauv0809/courtmatch/internal/clock"
	"github.com/mauv0809/courtmatch/internal/confirmation"
	"github.com/mauv0809/courtmatch/internal/ids"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/metrics"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/rating"
	"github.com/mauv0809/courtmatch/internal/results"
	"github.com/mauv0809/courtmatch/internal/slots"
)

// Service is the facade over the match lifecycle. Every mutation invalidates the cached
// views it affects before returning.
type Service struct {
	store        match.Store
	clock        clock.Clock
	ids          ids.Generator
	cache        cache.Cache
	privileged   match.Privileged
	ledger       *rating.Ledger
	coordinator  *confirmation.Coordinator
	registry     *slots.Registry
	reporter     *results.Reporter
	cancellation *cancellation.Handler
}

// New builds the engine components on top of store.
func New(store match.Store, n notifier.Notifier, m metrics.Metrics, c cache.Cache, clk clock.Clock, gen ids.Generator, cfg Config) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	privileged := match.NewPrivileged(cfg.Privileged)
	ledger := rating.NewLedger(rating.NewEngine(cfg.Rating), clk, gen)
	coordinator := confirmation.New(store, clk, privileged, n, m, cfg.Confirmation)
	return &Service{
		store:        store,
		clock:        clk,
		ids:          gen,
		cache:        c,
		privileged:   privileged,
		ledger:       ledger,
		coordinator:  coordinator,
		registry:     slots.NewRegistry(store, clk, gen, ledger, coordinator, n),
		reporter:     results.NewReporter(store, clk, gen, ledger, privileged, n, m),
		cancellation: cancellation.New(store, clk, gen, ledger, privileged, n, m, cfg.Cancellation),
	}
}

// CreateMatch stores a PENDING match with its candidate slots.
func (s *Service) CreateMatch(ctx context.Context, req NewMatch) (*MatchView, error) {
	if err := validateNewMatch(req); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	view := &MatchView{
		Match: match.Match{
			ID:        s.ids.NewID(),
			CreatorID: req.CreatorID,
			CourtID:   req.CourtID,
			Date:      req.Date.UTC(),
			Format:    req.Format,
			Filters:   req.Filters,
			Status:    match.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for i, ns := range req.Slots {
		side := ns.Side
		if side == rating.NoWinner {
			side = rating.Side2
		}
		view.Slots = append(view.Slots, match.Slot{
			ID:       s.ids.NewID(),
			MatchID:  view.ID,
			Position: i,
			Side:     side,
			Start:    ns.Start.UTC(),
			End:      ns.End.UTC(),
			Status:   match.SlotAvailable,
		})
	}

	err := s.store.WithTx(ctx, func(tx match.Tx) error {
		if err := s.ledger.EnsureStats(ctx, tx, req.CreatorID); err != nil {
			return err
		}
		if err := tx.InsertMatch(ctx, &view.Match); err != nil {
			return err
		}
		for i := range view.Slots {
			if err := tx.InsertSlot(ctx, &view.Slots[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("Match created", "matchID", view.ID, "creator", req.CreatorID, "format", req.Format, "slots", len(view.Slots))
	return view, nil
}

func validateNewMatch(req NewMatch) error {
	switch {
	case req.CreatorID == "":
		return fmt.Errorf("creator is required: %w", match.ErrValidation)
	case req.CourtID == "":
		return fmt.Errorf("court is required: %w", match.ErrValidation)
	case req.Date.IsZero():
		return fmt.Errorf("date is required: %w", match.ErrValidation)
	case !req.Format.Valid():
		return fmt.Errorf("unknown format %q: %w", req.Format, match.ErrValidation)
	case len(req.Slots) == 0:
		return fmt.Errorf("at least one slot is required: %w", match.ErrValidation)
	}
	for i, ns := range req.Slots {
		if !ns.End.After(ns.Start) {
			return fmt.Errorf("slot %d ends before it starts: %w", i, match.ErrValidation)
		}
		switch ns.Side {
		case rating.NoWinner, rating.Side2:
		case rating.Side1:
			if req.Format != rating.Doubles {
				return fmt.Errorf("slot %d: partner slots are doubles only: %w", i, match.ErrValidation)
			}
		default:
			return fmt.Errorf("slot %d has unknown side %d: %w", i, ns.Side, match.ErrValidation)
		}
	}
	return validateFilters(req.Filters)
}

func validateFilters(f match.Filters) error {
	if f.MinSkill != nil && f.MaxSkill != nil && *f.MinSkill > *f.MaxSkill {
		return fmt.Errorf("min skill exceeds max skill: %w", match.ErrValidation)
	}
	if f.MaxDistanceKm != nil && *f.MaxDistanceKm <= 0 {
		return fmt.Errorf("max distance must be positive: %w", match.ErrValidation)
	}
	return nil
}

// UpdateMatch applies patch to the match. The creator may change the date and filters
// of a PENDING match. Privileged actors may also change the court, and may edit
// CONFIRMED matches.
func (s *Service) UpdateMatch(ctx context.Context, matchID, actorID string, patch MatchPatch) (*MatchView, error) {
	if patch.Date == nil && patch.Filters == nil && patch.CourtID == nil {
		return nil, fmt.Errorf("nothing to update: %w", match.ErrValidation)
	}
	if patch.CourtID != nil && *patch.CourtID == "" {
		return nil, fmt.Errorf("court cannot be empty: %w", match.ErrValidation)
	}
	if patch.Filters != nil {
		if err := validateFilters(*patch.Filters); err != nil {
			return nil, err
		}
	}
	privileged := s.privileged.Has(actorID)
	err := s.store.WithTx(ctx, func(tx match.Tx) error {
		m, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if !s.privileged.CanManage(m, actorID) {
			return fmt.Errorf("actor %s cannot edit match %s: %w", actorID, m.ID, match.ErrForbidden)
		}
		if patch.CourtID != nil && !privileged {
			return fmt.Errorf("only privileged actors may move match %s: %w", m.ID, match.ErrForbidden)
		}
		if m.Status != match.StatusPending && !(privileged && m.Status == match.StatusConfirmed) {
			return fmt.Errorf("match %s is %s: %w", m.ID, m.Status, match.ErrInvalidState)
		}
		if patch.Date != nil {
			m.Date = patch.Date.UTC()
		}
		if patch.Filters != nil {
			m.Filters = *patch.Filters
		}
		if patch.CourtID != nil {
			m.CourtID = *patch.CourtID
		}
		m.UpdatedAt = s.clock.Now()
		return tx.UpdateMatch(ctx, m)
	})
	s.cache.Invalidate(cache.MatchKey(matchID))
	if err != nil {
		return nil, err
	}
	log.Info("Match updated", "matchID", matchID, "actor", actorID)
	return s.GetMatch(ctx, matchID)
}

// GetMatch returns the match view, served from the cache when possible.
func (s *Service) GetMatch(ctx context.Context, matchID string) (*MatchView, error) {
	key := cache.MatchKey(matchID)
	if v, ok := s.cache.Get(key); ok {
		if view, ok := v.(*MatchView); ok {
			return view, nil
		}
	}
	version := s.cache.Version(key)
	view := &MatchView{}
	err := s.store.WithTx(ctx, func(tx match.Tx) error {
		m, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		view.Match = *m
		if view.Slots, err = tx.ListSlots(ctx, matchID); err != nil {
			return err
		}
		r, err := tx.GetResultByMatch(ctx, matchID)
		switch {
		case err == nil:
			view.Result = r
		case !errors.Is(err, match.ErrNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, view, version)
	return view, nil
}

// Apply submits an application for a slot.
func (s *Service) Apply(ctx context.Context, slotID, applicantID string, guestName *string) (*match.Application, error) {
	app, err := s.registry.Apply(ctx, slotID, applicantID, guestName)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.MatchKey(app.MatchID), cache.StatsKey(applicantID))
	return app, nil
}

// Withdraw removes the requester's application.
func (s *Service) Withdraw(ctx context.Context, applicationID, requesterID string) error {
	app, err := s.registry.Withdraw(ctx, applicationID, requesterID)
	if err != nil {
		return err
	}
	s.cache.Invalidate(cache.MatchKey(app.MatchID))
	return nil
}

// ListApplications returns the applications of a slot in submission order.
func (s *Service) ListApplications(ctx context.Context, slotID string) ([]match.Application, error) {
	return s.registry.ListApplications(ctx, slotID)
}

// Hold places a transient reservation on a slot for the actor.
func (s *Service) Hold(ctx context.Context, slotID, actorID string) (*match.Slot, error) {
	slot, err := s.coordinator.Hold(ctx, slotID, actorID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.MatchKey(slot.MatchID))
	return slot, nil
}

// Confirm elects applicationID for slotID.
func (s *Service) Confirm(ctx context.Context, slotID, applicationID, actorID string) (*match.Match, error) {
	m, err := s.coordinator.Confirm(ctx, slotID, applicationID, actorID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.MatchKey(m.ID))
	return m, nil
}

// Reject declines an application.
func (s *Service) Reject(ctx context.Context, applicationID, actorID string) (*match.Application, error) {
	app, err := s.coordinator.Reject(ctx, applicationID, actorID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.MatchKey(app.MatchID))
	return app, nil
}

// CancelMatch cancels a match on behalf of its creator or a privileged actor.
func (s *Service) CancelMatch(ctx context.Context, matchID, actorID, reason string) (*match.Cancellation, error) {
	c, err := s.cancellation.CancelMatch(ctx, matchID, actorID, reason)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.MatchKey(matchID), cache.StatsKey(c.UserID))
	return c, nil
}

// ForceCancel cancels a match as a moderation action.
func (s *Service) ForceCancel(ctx context.Context, matchID, actorID, reason string) (*match.Cancellation, error) {
	c, err := s.cancellation.ForceCancel(ctx, matchID, actorID, reason)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.MatchKey(matchID))
	return c, nil
}

// DeleteMatch cancels and hard-deletes a match.
func (s *Service) DeleteMatch(ctx context.Context, matchID, actorID string) error {
	if err := s.cancellation.DeleteMatch(ctx, matchID, actorID); err != nil {
		return err
	}
	s.cache.Invalidate(cache.MatchKey(matchID), cache.StatsKey(actorID))
	return nil
}

// ReportResult records the score of a played match.
func (s *Service) ReportResult(ctx context.Context, matchID, score, submitterID string, disputed bool) (*match.Result, error) {
	r, err := s.reporter.Report(ctx, matchID, score, submitterID, disputed)
	if err != nil {
		return nil, err
	}
	s.invalidateResult(r)
	return r, nil
}

// ResolveDispute settles a disputed result.
func (s *Service) ResolveDispute(ctx context.Context, resultID string, resolution match.Resolution, score, actorID string) (*match.Result, error) {
	r, err := s.reporter.Resolve(ctx, resultID, resolution, score, actorID)
	if err != nil {
		return nil, err
	}
	s.invalidateResult(r)
	return r, nil
}

func (s *Service) invalidateResult(r *match.Result) {
	keys := []string{cache.MatchKey(r.MatchID)}
	for _, side := range [][]match.Participant{r.Side1, r.Side2} {
		for _, p := range side {
			if p.UserID != "" {
				keys = append(keys, cache.StatsKey(p.UserID))
			}
		}
	}
	s.cache.Invalidate(keys...)
}

// Sweep releases expired slot holds and expires applications of started slots.
func (s *Service) Sweep(ctx context.Context) error {
	released, err := s.coordinator.SweepExpiredLocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to release expired holds: %w", err)
	}
	expired, err := s.coordinator.ExpireApplications(ctx)
	if err != nil {
		return fmt.Errorf("failed to expire applications: %w", err)
	}
	for _, id := range append(released, expired...) {
		s.cache.Invalidate(cache.MatchKey(id))
	}
	return nil
}
