package cancellation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/elliotchance/pie/v2"
	"github.com/mauv0809/courtmatch/internal/clock"
	"github.com/mauv0809/courtmatch/internal/ids"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/metrics"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/rating"
	"github.com/mauv0809/courtmatch/internal/slots"
)

// Config controls the free-cancellation quota.
type Config struct {
	// Window is the rolling period over which cancellations of confirmed matches count.
	Window time.Duration
	// FreeCancellations is the number of cancellations allowed within Window without penalty.
	FreeCancellations int
	Penalty           PenaltyPolicy
}

// Handler terminates matches.
type Handler struct {
	store      match.Store
	clock      clock.Clock
	ids        ids.Generator
	ledger     *rating.Ledger
	privileged match.Privileged
	notifier   notifier.Notifier
	metrics    metrics.Metrics
	cfg        Config
}

// New creates a new Handler.
func New(store match.Store, clk clock.Clock, gen ids.Generator, ledger *rating.Ledger, privileged match.Privileged, n notifier.Notifier, m metrics.Metrics, cfg Config) *Handler {
	if cfg.Window <= 0 {
		cfg.Window = 90 * 24 * time.Hour
	}
	if cfg.Penalty == nil {
		cfg.Penalty = NoPenalty
	}
	return &Handler{
		store:      store,
		clock:      clk,
		ids:        gen,
		ledger:     ledger,
		privileged: privileged,
		notifier:   n,
		metrics:    m,
		cfg:        cfg,
	}
}

// CancelMatch cancels a PENDING or CONFIRMED match. Only the creator or a privileged
// actor may cancel. Cancellations of confirmed matches by the creator count against
// the free quota; those over the quota are flagged and passed to the penalty policy.
func (h *Handler) CancelMatch(ctx context.Context, matchID, actorID, reason string) (*match.Cancellation, error) {
	return h.run(ctx, matchID, actorID, reason, false)
}

// ForceCancel cancels a match on behalf of a privileged actor regardless of ownership.
// The creator is always notified and the quota is not charged.
func (h *Handler) ForceCancel(ctx context.Context, matchID, actorID, reason string) (*match.Cancellation, error) {
	if !h.privileged.Has(actorID) {
		return nil, fmt.Errorf("actor %s may not force cancel: %w", actorID, match.ErrForbidden)
	}
	return h.run(ctx, matchID, actorID, reason, true)
}

func (h *Handler) run(ctx context.Context, matchID, actorID, reason string, force bool) (*match.Cancellation, error) {
	var c *match.Cancellation
	var batch notifier.Batch
	err := h.store.WithTx(ctx, func(tx match.Tx) error {
		m, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if !h.privileged.CanManage(m, actorID) {
			return fmt.Errorf("actor %s cannot cancel match %s: %w", actorID, m.ID, match.ErrForbidden)
		}
		c, err = h.cancel(ctx, tx, m, actorID, reason, force, &batch)
		return err
	})
	if err != nil {
		return nil, err
	}
	h.metrics.IncCancellations(c.OverQuota)
	log.Info("Match cancelled", "matchID", matchID, "actor", actorID, "forced", c.Forced, "overQuota", c.OverQuota, "penalty", c.Penalty)
	batch.Send(ctx, h.notifier)
	return c, nil
}

// DeleteMatch cancels the match if needed and hard-deletes it together with its
// applications, slots and result. Cancellation records are kept for the quota.
func (h *Handler) DeleteMatch(ctx context.Context, matchID, actorID string) error {
	var batch notifier.Batch
	var c *match.Cancellation
	err := h.store.WithTx(ctx, func(tx match.Tx) error {
		m, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if !h.privileged.CanManage(m, actorID) {
			return fmt.Errorf("actor %s cannot delete match %s: %w", actorID, m.ID, match.ErrForbidden)
		}
		if m.Status == match.StatusCompleted {
			return fmt.Errorf("match %s is completed: %w", m.ID, match.ErrInvalidState)
		}
		if m.Status != match.StatusCancelled {
			if c, err = h.cancel(ctx, tx, m, actorID, "deleted", false, &batch); err != nil {
				return err
			}
		}
		if err := tx.DeleteApplications(ctx, m.ID); err != nil {
			return err
		}
		if err := tx.DeleteSlots(ctx, m.ID); err != nil {
			return err
		}
		if err := tx.DeleteResult(ctx, m.ID); err != nil {
			return err
		}
		return tx.DeleteMatch(ctx, m.ID)
	})
	if err != nil {
		return err
	}
	if c != nil {
		h.metrics.IncCancellations(c.OverQuota)
	}
	log.Info("Match deleted", "matchID", matchID, "actor", actorID)
	batch.Send(ctx, h.notifier)
	return nil
}

// cancel moves m to CANCELLED inside tx. Confirmed applicants are notified, every
// application is removed and every slot is freed.
func (h *Handler) cancel(ctx context.Context, tx match.Tx, m *match.Match, actorID, reason string, force bool, batch *notifier.Batch) (*match.Cancellation, error) {
	if m.Status == match.StatusCompleted || m.Status == match.StatusCancelled {
		return nil, fmt.Errorf("match %s is %s: %w", m.ID, m.Status, match.ErrInvalidState)
	}
	matchSlots, err := tx.ListSlots(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	apps, err := tx.ListMatchApplications(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	now := h.clock.Now()
	forced := force || actorID != m.CreatorID
	wasConfirmed := m.Status == match.StatusConfirmed ||
		pie.Any(matchSlots, func(s match.Slot) bool { return s.Status == match.SlotConfirmed })
	c := &match.Cancellation{
		ID:           h.ids.NewID(),
		MatchID:      m.ID,
		UserID:       actorID,
		Reason:       reason,
		WasConfirmed: wasConfirmed,
		Forced:       forced,
		CreatedAt:    now,
	}

	if c.WasConfirmed && !forced {
		if err := h.charge(ctx, tx, m, c); err != nil {
			return nil, err
		}
	}

	payload := map[string]any{"match_id": m.ID, "court_id": m.CourtID, "date": m.Date, "reason": reason}
	for _, a := range slots.WithStatus(apps, match.ApplicationConfirmed) {
		batch.Add(a.ApplicantID, notifier.EventMatchCancelled, payload)
	}
	if force {
		batch.Add(m.CreatorID, notifier.EventMatchForceCancelled, payload)
	}

	if err := tx.DeleteApplications(ctx, m.ID); err != nil {
		return nil, err
	}
	for _, s := range matchSlots {
		if s.Status == match.SlotAvailable {
			continue
		}
		if err := tx.ReopenSlot(ctx, s.ID); err != nil {
			return nil, err
		}
	}
	m.Status = match.StatusCancelled
	m.UpdatedAt = now
	if err := tx.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}
	if err := tx.InsertCancellation(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// charge applies the free-cancellation quota to the creator's cancellation c.
func (h *Handler) charge(ctx context.Context, tx match.Tx, m *match.Match, c *match.Cancellation) error {
	since := c.CreatedAt.Add(-h.cfg.Window)
	count, err := tx.CountCancellations(ctx, c.UserID, since)
	if err != nil {
		return err
	}
	if count < h.cfg.FreeCancellations {
		return nil
	}
	c.OverQuota = true
	points := int(math.Round(h.cfg.Penalty(c.UserID, count-h.cfg.FreeCancellations+1)))
	if points <= 0 {
		log.Info("Cancellation over free quota", "userID", c.UserID, "matchID", m.ID, "count", count+1)
		return nil
	}
	if err := h.ledger.EnsureStats(ctx, tx, c.UserID); err != nil {
		return err
	}
	if _, err := h.ledger.ApplyPenalty(ctx, tx, c.UserID, m.ID, m.Format, points); err != nil {
		return fmt.Errorf("failed to apply cancellation penalty: %w", err)
	}
	c.Penalty = points
	return nil
}
