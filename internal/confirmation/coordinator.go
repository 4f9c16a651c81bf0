package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"github.com/mauv0809/courtmatch/internal/clock"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/metrics"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/rating"
	"github.com/mauv0809/courtmatch/internal/slots"
)

// systemHolder holds slot locks taken by automatic promotion.
const systemHolder = "system"

// Config controls when a match counts as confirmed and how vacated seats are refilled.
type Config struct {
	LockTTL              time.Duration
	RequiredSlotsSingles int
	RequiredSlotsDoubles int
	// AutoConfirmSinglesWaitlist confirms the head of the waitlist straight away when the
	// confirmed seat of a single-slot singles match is vacated.
	AutoConfirmSinglesWaitlist bool
}

// Coordinator elects the winning application per slot and advances match status.
type Coordinator struct {
	store      match.Store
	clock      clock.Clock
	privileged match.Privileged
	notifier   notifier.Notifier
	metrics    metrics.Metrics
	cfg        Config
}

var _ slots.Reopener = (*Coordinator)(nil)

// New creates a new Coordinator.
func New(store match.Store, clk clock.Clock, privileged match.Privileged, n notifier.Notifier, m metrics.Metrics, cfg Config) *Coordinator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.RequiredSlotsSingles < 1 {
		cfg.RequiredSlotsSingles = 1
	}
	if cfg.RequiredSlotsDoubles < 1 {
		cfg.RequiredSlotsDoubles = 1
	}
	return &Coordinator{
		store:      store,
		clock:      clk,
		privileged: privileged,
		notifier:   n,
		metrics:    m,
		cfg:        cfg,
	}
}

// Hold places the transient LOCKED reservation on a slot for actorID. A later Confirm
// by the same actor takes the hold over.
func (c *Coordinator) Hold(ctx context.Context, slotID, actorID string) (*match.Slot, error) {
	var slot *match.Slot
	err := c.store.WithTx(ctx, func(tx match.Tx) error {
		s, m, err := c.loadSlot(ctx, tx, slotID)
		if err != nil {
			return err
		}
		if !c.privileged.CanManage(m, actorID) {
			return fmt.Errorf("actor %s cannot manage match %s: %w", actorID, m.ID, match.ErrForbidden)
		}
		if err := c.checkLockable(s, actorID); err != nil {
			return err
		}
		if !acceptsSeats(m) {
			return fmt.Errorf("match %s is %s: %w", m.ID, m.Status, match.ErrInvalidState)
		}
		now := c.clock.Now()
		if _, err := c.lock(ctx, tx, s.ID, actorID, now); err != nil {
			return err
		}
		slot, err = tx.GetSlot(ctx, s.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info("Slot held", "slotID", slotID, "holder", actorID, "expiresAt", slot.LockExpiresAt)
	return slot, nil
}

// Confirm elects applicationID for slotID in two phases: a compare-and-swap hold on the
// slot, then a transaction that finalizes the hold, waitlists the competing
// applications and re-evaluates the match. Losing either phase yields ErrConflict.
func (c *Coordinator) Confirm(ctx context.Context, slotID, applicationID, actorID string) (*match.Match, error) {
	start := c.clock.Now()
	token, err := c.acquire(ctx, slotID, applicationID, actorID)
	if err != nil {
		c.observe(err)
		return nil, err
	}

	var confirmed *match.Match
	var batch notifier.Batch
	err = c.store.WithTx(ctx, func(tx match.Tx) error {
		var err error
		confirmed, err = c.finalize(ctx, tx, slotID, applicationID, token, &batch)
		return err
	})
	if err != nil {
		c.release(ctx, slotID, token)
		c.observe(err)
		return nil, err
	}

	c.metrics.IncConfirmations()
	c.metrics.ObserveConfirmDuration(c.clock.Now().Sub(start).Seconds())
	log.Info("Confirmed application", "slotID", slotID, "applicationID", applicationID, "matchStatus", confirmed.Status)
	batch.Send(ctx, c.notifier)
	return confirmed, nil
}

// acquire runs the first phase: validation and the slot hold.
func (c *Coordinator) acquire(ctx context.Context, slotID, applicationID, actorID string) (string, error) {
	var token string
	err := c.store.WithTx(ctx, func(tx match.Tx) error {
		s, m, err := c.loadSlot(ctx, tx, slotID)
		if err != nil {
			return err
		}
		app, err := tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if !c.privileged.CanManage(m, actorID) {
			return fmt.Errorf("actor %s cannot manage match %s: %w", actorID, m.ID, match.ErrForbidden)
		}
		if err := c.checkLockable(s, actorID); err != nil {
			return err
		}
		if !acceptsSeats(m) {
			return fmt.Errorf("match %s is %s: %w", m.ID, m.Status, match.ErrInvalidState)
		}
		if err := checkApplication(app, slotID); err != nil {
			return err
		}
		token, err = c.lock(ctx, tx, s.ID, actorID, c.clock.Now())
		return err
	})
	return token, err
}

// finalize runs the second phase inside tx.
func (c *Coordinator) finalize(ctx context.Context, tx match.Tx, slotID, applicationID, token string, batch *notifier.Batch) (*match.Match, error) {
	s, m, err := c.loadSlot(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if s.Status != match.SlotLocked || s.LockToken == nil || *s.LockToken != token {
		return nil, fmt.Errorf("hold on slot %s was lost: %w", slotID, match.ErrConflict)
	}
	if !acceptsSeats(m) {
		return nil, fmt.Errorf("match %s is %s: %w", m.ID, m.Status, match.ErrInvalidState)
	}
	app, err := tx.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := checkApplication(app, slotID); err != nil {
		return nil, err
	}
	if err := c.seatApplicant(ctx, tx, m, s, app, token, batch); err != nil {
		return nil, err
	}
	if err := c.evaluate(ctx, tx, m, batch); err != nil {
		return nil, err
	}
	return m, nil
}

// seatApplicant moves a LOCKED slot to CONFIRMED for app and waitlists the slot's other
// PENDING applications in submission order.
func (c *Coordinator) seatApplicant(ctx context.Context, tx match.Tx, m *match.Match, s *match.Slot, app *match.Application, token string, batch *notifier.Batch) error {
	all, err := tx.ListMatchApplications(ctx, m.ID)
	if err != nil {
		return err
	}
	seated := pie.FindFirstUsing(all, func(a match.Application) bool {
		return a.ApplicantID == app.ApplicantID && a.Status == match.ApplicationConfirmed && a.SlotID != s.ID
	})
	if seated >= 0 {
		return fmt.Errorf("applicant %s already holds a seat in match %s: %w", app.ApplicantID, m.ID, match.ErrConflict)
	}

	ok, err := tx.ConfirmSlot(ctx, s.ID, token, app.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("slot %s was confirmed concurrently: %w", s.ID, match.ErrConflict)
	}
	now := c.clock.Now()
	if err := tx.UpdateApplicationStatus(ctx, app.ID, match.ApplicationConfirmed, now); err != nil {
		return err
	}
	batch.Add(app.ApplicantID, notifier.EventApplicationConfirmed, map[string]any{
		"match_id": m.ID, "slot_id": s.ID, "application_id": app.ID, "start": s.Start,
	})

	onSlot := pie.Filter(all, func(a match.Application) bool { return a.SlotID == s.ID && a.ID != app.ID })
	for i, other := range slots.Ordered(slots.WithStatus(onSlot, match.ApplicationPending)) {
		if err := tx.UpdateApplicationStatus(ctx, other.ID, match.ApplicationWaitlisted, now); err != nil {
			return err
		}
		batch.Add(other.ApplicantID, notifier.EventApplicationWaitlisted, map[string]any{
			"match_id": m.ID, "slot_id": s.ID, "application_id": other.ID, "position": i + 1,
		})
	}
	return nil
}

// evaluate moves a PENDING match to CONFIRMED once enough slots are confirmed.
func (c *Coordinator) evaluate(ctx context.Context, tx match.Tx, m *match.Match, batch *notifier.Batch) error {
	if m.Status != match.StatusPending {
		return nil
	}
	matchSlots, err := tx.ListSlots(ctx, m.ID)
	if err != nil {
		return err
	}
	if !c.Satisfied(m.Format, matchSlots) {
		return nil
	}
	m.Status = match.StatusConfirmed
	m.UpdatedAt = c.clock.Now()
	if err := tx.UpdateMatch(ctx, m); err != nil {
		return err
	}
	payload := map[string]any{"match_id": m.ID, "court_id": m.CourtID, "date": m.Date}
	batch.Add(m.CreatorID, notifier.EventMatchConfirmed, payload)
	apps, err := tx.ListMatchApplications(ctx, m.ID)
	if err != nil {
		return err
	}
	for _, a := range slots.WithStatus(apps, match.ApplicationConfirmed) {
		batch.Add(a.ApplicantID, notifier.EventMatchConfirmed, payload)
	}
	log.Info("Match confirmed", "matchID", m.ID, "format", m.Format)
	return c.closeUnfilled(ctx, tx, m, matchSlots, apps, batch)
}

// closeUnfilled expires the open applications of slots left unconfirmed when m became
// CONFIRMED. Those slots can no longer be applied to or confirmed. Waitlists of
// confirmed slots are kept for seats vacated later.
func (c *Coordinator) closeUnfilled(ctx context.Context, tx match.Tx, m *match.Match, matchSlots []match.Slot, apps []match.Application, batch *notifier.Batch) error {
	filled := pie.Map(pie.Filter(matchSlots, func(s match.Slot) bool { return s.Status == match.SlotConfirmed }),
		func(s match.Slot) string { return s.ID })
	open := pie.Filter(apps, func(a match.Application) bool {
		return (a.Status == match.ApplicationPending || a.Status == match.ApplicationWaitlisted) && !pie.Contains(filled, a.SlotID)
	})
	if len(open) == 0 {
		return nil
	}
	now := c.clock.Now()
	for _, a := range open {
		if err := tx.UpdateApplicationStatus(ctx, a.ID, match.ApplicationExpired, now); err != nil {
			return err
		}
		batch.Add(a.ApplicantID, notifier.EventApplicationExpired, map[string]any{
			"match_id": m.ID, "slot_id": a.SlotID, "application_id": a.ID, "reason": "match_confirmed",
		})
	}
	c.metrics.AddApplicationsExpired(len(open))
	log.Info("Closed unfilled slots", "matchID", m.ID, "expired", len(open))
	return nil
}

// acceptsSeats reports whether seats of m may be held and confirmed: a PENDING match, or
// a CONFIRMED one refilling a seat vacated by a withdrawal. New applications are only
// accepted while PENDING, so a CONFIRMED match only has open applications on vacated
// slots.
func acceptsSeats(m *match.Match) bool {
	return m.Status == match.StatusPending || m.Status == match.StatusConfirmed
}

// Satisfied reports whether the confirmed slots meet the format's requirement. Singles
// needs RequiredSlotsSingles confirmed slots. Doubles needs RequiredSlotsDoubles
// confirmed slots and at least one confirmed slot on every side that offers slots.
// Requirements are capped at the number of slots the match offers.
func (c *Coordinator) Satisfied(format rating.Format, matchSlots []match.Slot) bool {
	confirmed := pie.Filter(matchSlots, func(s match.Slot) bool { return s.Status == match.SlotConfirmed })
	if format == rating.Singles {
		return len(confirmed) >= min(c.cfg.RequiredSlotsSingles, len(matchSlots))
	}
	if len(confirmed) < min(c.cfg.RequiredSlotsDoubles, len(matchSlots)) {
		return false
	}
	for _, side := range []rating.Side{rating.Side1, rating.Side2} {
		offered := pie.Any(matchSlots, func(s match.Slot) bool { return s.Side == side })
		filled := pie.Any(confirmed, func(s match.Slot) bool { return s.Side == side })
		if offered && !filled {
			return false
		}
	}
	return true
}

func (c *Coordinator) loadSlot(ctx context.Context, tx match.Tx, slotID string) (*match.Slot, *match.Match, error) {
	s, err := tx.GetSlot(ctx, slotID)
	if err != nil {
		return nil, nil, err
	}
	m, err := tx.GetMatch(ctx, s.MatchID)
	if err != nil {
		return nil, nil, err
	}
	return s, m, nil
}

// checkLockable fails with ErrConflict when the slot is confirmed or held by someone else.
func (c *Coordinator) checkLockable(s *match.Slot, actorID string) error {
	if s.Status == match.SlotConfirmed {
		return fmt.Errorf("slot %s is already confirmed: %w", s.ID, match.ErrConflict)
	}
	if s.Status == match.SlotLocked && s.LockHolder != nil && *s.LockHolder != actorID &&
		s.LockExpiresAt != nil && s.LockExpiresAt.After(c.clock.Now()) {
		return fmt.Errorf("slot %s is held by another actor: %w", s.ID, match.ErrConflict)
	}
	return nil
}

func checkApplication(app *match.Application, slotID string) error {
	if app.SlotID != slotID {
		return fmt.Errorf("application %s does not belong to slot %s: %w", app.ID, slotID, match.ErrInvalidState)
	}
	if app.Status != match.ApplicationPending {
		return fmt.Errorf("application %s is %s: %w", app.ID, app.Status, match.ErrInvalidState)
	}
	return nil
}

func (c *Coordinator) lock(ctx context.Context, tx match.Tx, slotID, holder string, now time.Time) (string, error) {
	token := uuid.NewString()
	ok, err := tx.LockSlot(ctx, slotID, token, holder, now.Add(c.cfg.LockTTL), now)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("slot %s could not be held: %w", slotID, match.ErrConflict)
	}
	return token, nil
}

// release gives a hold back after a failed second phase. A lost hold is a no-op.
func (c *Coordinator) release(ctx context.Context, slotID, token string) {
	err := c.store.WithTx(ctx, func(tx match.Tx) error {
		_, err := tx.ReleaseSlot(ctx, slotID, token)
		return err
	})
	if err != nil {
		log.Warn("Failed to release slot hold", "slotID", slotID, "error", err)
	}
}

func (c *Coordinator) observe(err error) {
	if errors.Is(err, match.ErrConflict) {
		c.metrics.IncConfirmConflicts()
	}
}
