package confirmation

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/rating"
	"github.com/mauv0809/courtmatch/internal/slots"
)

// Reopen frees a slot whose confirmed application was withdrawn. A CONFIRMED match that
// no longer meets its requirement returns to PENDING. Either way the head of the slot's
// waitlist is promoted, so a match that stays CONFIRMED can still refill the seat.
func (c *Coordinator) Reopen(ctx context.Context, tx match.Tx, m *match.Match, slot *match.Slot, batch *notifier.Batch) error {
	if err := tx.ReopenSlot(ctx, slot.ID); err != nil {
		return err
	}
	slot.Status = match.SlotAvailable
	slot.ConfirmedApplicationID = nil

	if m.Status == match.StatusConfirmed {
		matchSlots, err := tx.ListSlots(ctx, m.ID)
		if err != nil {
			return err
		}
		if !c.Satisfied(m.Format, matchSlots) {
			m.Status = match.StatusPending
			m.UpdatedAt = c.clock.Now()
			if err := tx.UpdateMatch(ctx, m); err != nil {
				return err
			}
			batch.Add(m.CreatorID, notifier.EventMatchReopened, map[string]any{"match_id": m.ID, "slot_id": slot.ID})
			log.Info("Match reopened", "matchID", m.ID, "slotID", slot.ID)
		}
	}
	return c.promote(ctx, tx, m, slot, batch)
}

// Refill promotes the head of the waitlist when an AVAILABLE slot of an open match has
// no PENDING application left.
func (c *Coordinator) Refill(ctx context.Context, tx match.Tx, m *match.Match, slot *match.Slot, batch *notifier.Batch) error {
	if !acceptsSeats(m) || slot.Status != match.SlotAvailable {
		return nil
	}
	apps, err := tx.ListApplications(ctx, slot.ID)
	if err != nil {
		return err
	}
	if len(slots.WithStatus(apps, match.ApplicationPending)) > 0 {
		return nil
	}
	return c.promote(ctx, tx, m, slot, batch)
}

// promote moves the longest-waiting WAITLISTED application of the slot to PENDING, or
// straight to CONFIRMED for single-slot singles matches when auto-confirm is enabled.
func (c *Coordinator) promote(ctx context.Context, tx match.Tx, m *match.Match, slot *match.Slot, batch *notifier.Batch) error {
	if !acceptsSeats(m) {
		return nil
	}
	apps, err := tx.ListApplications(ctx, slot.ID)
	if err != nil {
		return err
	}
	waitlist := slots.Waitlist(apps)
	if len(waitlist) == 0 {
		return nil
	}
	head := waitlist[0]
	now := c.clock.Now()
	if err := tx.UpdateApplicationStatus(ctx, head.ID, match.ApplicationPending, now); err != nil {
		return err
	}

	if !c.autoConfirms(ctx, tx, m) {
		batch.Add(head.ApplicantID, notifier.EventApplicationPromoted, map[string]any{
			"match_id": m.ID, "slot_id": slot.ID, "application_id": head.ID, "confirmed": false,
		})
		log.Info("Promoted waitlisted application", "slotID", slot.ID, "applicationID", head.ID)
		return nil
	}

	token, err := c.lock(ctx, tx, slot.ID, systemHolder, now)
	if err != nil {
		return fmt.Errorf("failed to hold slot %s for promotion: %w", slot.ID, err)
	}
	head.Status = match.ApplicationPending
	if err := c.seatApplicant(ctx, tx, m, slot, &head, token, batch); err != nil {
		return err
	}
	batch.Add(head.ApplicantID, notifier.EventApplicationPromoted, map[string]any{
		"match_id": m.ID, "slot_id": slot.ID, "application_id": head.ID, "confirmed": true,
		"message": "You're off the waitlist",
	})
	log.Info("Auto-confirmed waitlisted application", "slotID", slot.ID, "applicationID", head.ID)
	return c.evaluate(ctx, tx, m, batch)
}

func (c *Coordinator) autoConfirms(ctx context.Context, tx match.Tx, m *match.Match) bool {
	if !c.cfg.AutoConfirmSinglesWaitlist || m.Format != rating.Singles {
		return false
	}
	matchSlots, err := tx.ListSlots(ctx, m.ID)
	if err != nil {
		log.Warn("Failed to list slots for promotion", "matchID", m.ID, "error", err)
		return false
	}
	return len(matchSlots) == 1
}
