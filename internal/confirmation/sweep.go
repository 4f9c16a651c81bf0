package confirmation

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/elliotchance/pie/v2"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/notifier"
)

// SweepExpiredLocks releases every LOCKED slot whose hold expired and returns the ids of
// the affected matches.
func (c *Coordinator) SweepExpiredLocks(ctx context.Context) ([]string, error) {
	var released []match.Slot
	err := c.store.WithTx(ctx, func(tx match.Tx) error {
		var err error
		released, err = tx.ReleaseExpiredLocks(ctx, c.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(released) > 0 {
		c.metrics.AddLocksReleased(len(released))
		log.Info("Released expired slot holds", "count", len(released))
	}
	return pie.Unique(pie.Map(released, func(s match.Slot) string { return s.MatchID })), nil
}

// ExpireApplications moves PENDING and WAITLISTED applications of slots that already
// started to EXPIRED and returns the ids of the affected matches.
func (c *Coordinator) ExpireApplications(ctx context.Context) ([]string, error) {
	var expired []match.Application
	var batch notifier.Batch
	err := c.store.WithTx(ctx, func(tx match.Tx) error {
		now := c.clock.Now()
		var err error
		expired, err = tx.ListExpirableApplications(ctx, now)
		if err != nil {
			return err
		}
		for _, a := range expired {
			if err := tx.UpdateApplicationStatus(ctx, a.ID, match.ApplicationExpired, now); err != nil {
				return err
			}
			batch.Add(a.ApplicantID, notifier.EventApplicationExpired, map[string]any{
				"match_id": a.MatchID, "slot_id": a.SlotID, "application_id": a.ID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		c.metrics.AddApplicationsExpired(len(expired))
		log.Info("Expired applications", "count", len(expired))
	}
	batch.Send(ctx, c.notifier)
	return pie.Unique(pie.Map(expired, func(a match.Application) string { return a.MatchID })), nil
}
