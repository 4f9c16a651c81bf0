package slots

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/clock"
	"github.com/mauv0809/courtmatch/internal/ids"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/rating"
)

// Reopener frees a slot whose confirmed application went away and refills slots
// from their waitlist. It runs inside the caller's transaction.
type Reopener interface {
	Reopen(ctx context.Context, tx match.Tx, m *match.Match, slot *match.Slot, batch *notifier.Batch) error
	Refill(ctx context.Context, tx match.Tx, m *match.Match, slot *match.Slot, batch *notifier.Batch) error
}

// Registry owns the applications of match slots.
type Registry struct {
	store    match.Store
	clock    clock.Clock
	ids      ids.Generator
	ledger   *rating.Ledger
	reopener Reopener
	notifier notifier.Notifier
}

// NewRegistry creates a new Registry.
func NewRegistry(store match.Store, clk clock.Clock, gen ids.Generator, ledger *rating.Ledger, reopener Reopener, n notifier.Notifier) *Registry {
	return &Registry{
		store:    store,
		clock:    clk,
		ids:      gen,
		ledger:   ledger,
		reopener: reopener,
		notifier: n,
	}
}

// Apply creates a PENDING application of applicantID for slotID. The slot itself is
// left untouched so that many applicants can compete for it.
func (r *Registry) Apply(ctx context.Context, slotID, applicantID string, guestName *string) (*match.Application, error) {
	if applicantID == "" {
		return nil, fmt.Errorf("applicant is required: %w", match.ErrValidation)
	}
	var app *match.Application
	var batch notifier.Batch
	err := r.store.WithTx(ctx, func(tx match.Tx) error {
		slot, err := tx.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		m, err := tx.GetMatch(ctx, slot.MatchID)
		if err != nil {
			return err
		}
		if guestName != nil && m.Format != rating.Doubles {
			return fmt.Errorf("guest partners are only allowed in doubles: %w", match.ErrValidation)
		}
		if m.CreatorID == applicantID {
			return fmt.Errorf("creator cannot apply to own match %s: %w", m.ID, match.ErrForbidden)
		}
		if m.Status != match.StatusPending {
			return fmt.Errorf("match %s is %s: %w", m.ID, m.Status, match.ErrInvalidState)
		}
		if slot.Status == match.SlotConfirmed {
			if err := r.checkConfirmedSeat(ctx, tx, slot, applicantID); err != nil {
				return err
			}
		}
		now := r.clock.Now()
		if !slot.Start.After(now) {
			return fmt.Errorf("slot %s already started: %w", slot.ID, match.ErrInvalidState)
		}
		if err := r.ledger.EnsureStats(ctx, tx, applicantID); err != nil {
			return err
		}

		app = &match.Application{
			ID:          r.ids.NewID(),
			SlotID:      slot.ID,
			MatchID:     m.ID,
			ApplicantID: applicantID,
			GuestName:   guestName,
			Status:      match.ApplicationPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertApplication(ctx, app); err != nil {
			return err
		}
		batch.Add(m.CreatorID, notifier.EventApplicationReceived, map[string]any{
			"match_id": m.ID, "slot_id": slot.ID, "application_id": app.ID, "applicant_id": applicantID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("Application submitted", "slotID", slotID, "applicationID", app.ID, "applicant", applicantID)
	batch.Send(ctx, r.notifier)
	return app, nil
}

// checkConfirmedSeat rejects applications to a slot confirmed for someone else. The
// confirmed applicant falls through to the uniqueness check.
func (r *Registry) checkConfirmedSeat(ctx context.Context, tx match.Tx, slot *match.Slot, applicantID string) error {
	if slot.ConfirmedApplicationID == nil {
		return fmt.Errorf("slot %s is confirmed: %w", slot.ID, match.ErrInvalidState)
	}
	confirmed, err := tx.GetApplication(ctx, *slot.ConfirmedApplicationID)
	if err != nil {
		return err
	}
	if confirmed.ApplicantID != applicantID {
		return fmt.Errorf("slot %s is confirmed for another applicant: %w", slot.ID, match.ErrInvalidState)
	}
	return nil
}

// Withdraw removes the application. Withdrawing a confirmed application reopens the slot.
// It returns the removed application.
func (r *Registry) Withdraw(ctx context.Context, applicationID, requesterID string) (*match.Application, error) {
	var app *match.Application
	var batch notifier.Batch
	err := r.store.WithTx(ctx, func(tx match.Tx) error {
		var err error
		app, err = tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.ApplicantID != requesterID {
			return fmt.Errorf("application %s belongs to another user: %w", applicationID, match.ErrForbidden)
		}
		m, err := tx.GetMatch(ctx, app.MatchID)
		if err != nil {
			return err
		}
		if m.Status == match.StatusCompleted {
			return fmt.Errorf("match %s is completed: %w", m.ID, match.ErrInvalidState)
		}
		slot, err := tx.GetSlot(ctx, app.SlotID)
		if err != nil {
			return err
		}
		if err := tx.DeleteApplication(ctx, app.ID); err != nil {
			return err
		}
		switch app.Status {
		case match.ApplicationConfirmed:
			return r.reopener.Reopen(ctx, tx, m, slot, &batch)
		case match.ApplicationPending:
			return r.reopener.Refill(ctx, tx, m, slot, &batch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("Application withdrawn", "applicationID", applicationID, "status", app.Status)
	batch.Send(ctx, r.notifier)
	return app, nil
}

// ListApplications returns the slot's applications in submission order.
func (r *Registry) ListApplications(ctx context.Context, slotID string) ([]match.Application, error) {
	var apps []match.Application
	err := r.store.WithTx(ctx, func(tx match.Tx) error {
		if _, err := tx.GetSlot(ctx, slotID); err != nil {
			return err
		}
		var err error
		apps, err = tx.ListApplications(ctx, slotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return Ordered(apps), nil
}
