package confirmation

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/notifier"
)

// Reject declines a PENDING or WAITLISTED application. Only the creator or a privileged
// actor may reject.
func (c *Coordinator) Reject(ctx context.Context, applicationID, actorID string) (*match.Application, error) {
	var app *match.Application
	var batch notifier.Batch
	err := c.store.WithTx(ctx, func(tx match.Tx) error {
		var err error
		app, err = tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		s, m, err := c.loadSlot(ctx, tx, app.SlotID)
		if err != nil {
			return err
		}
		if !c.privileged.CanManage(m, actorID) {
			return fmt.Errorf("actor %s cannot manage match %s: %w", actorID, m.ID, match.ErrForbidden)
		}
		if m.Status != match.StatusPending && m.Status != match.StatusConfirmed {
			return fmt.Errorf("match %s is %s: %w", m.ID, m.Status, match.ErrInvalidState)
		}
		if app.Status != match.ApplicationPending && app.Status != match.ApplicationWaitlisted {
			return fmt.Errorf("application %s is %s: %w", app.ID, app.Status, match.ErrInvalidState)
		}
		previous := app.Status
		now := c.clock.Now()
		if err := tx.UpdateApplicationStatus(ctx, app.ID, match.ApplicationRejected, now); err != nil {
			return err
		}
		app.Status = match.ApplicationRejected
		app.UpdatedAt = now
		batch.Add(app.ApplicantID, notifier.EventApplicationRejected, map[string]any{
			"match_id": m.ID, "slot_id": s.ID, "application_id": app.ID,
		})
		if previous == match.ApplicationPending {
			return c.Refill(ctx, tx, m, s, &batch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("Application rejected", "applicationID", applicationID, "actor", actorID)
	batch.Send(ctx, c.notifier)
	return app, nil
}
