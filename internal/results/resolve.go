package results

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/mauv0809/courtmatch/internal/rating"
)

// Resolve settles a disputed result. CONFIRM keeps the stored score and rates it if it
// was never rated. OVERTURN replaces the score with newScore, or with the disputed score
// when newScore is empty, and compensates the ratings for the changed outcome. VOID
// compensates any applied rating back to the pre-match state. Only privileged actors
// may resolve disputes.
func (r *Reporter) Resolve(ctx context.Context, resultID string, resolution match.Resolution, newScore, actorID string) (*match.Result, error) {
	if !r.privileged.Has(actorID) {
		return nil, fmt.Errorf("actor %s may not resolve disputes: %w", actorID, match.ErrForbidden)
	}
	switch resolution {
	case match.ResolutionConfirm, match.ResolutionOverturn, match.ResolutionVoid:
	default:
		return nil, fmt.Errorf("unknown resolution %q: %w", resolution, match.ErrValidation)
	}

	var result *match.Result
	var batch notifier.Batch
	updates := 0
	err := r.store.WithTx(ctx, func(tx match.Tx) error {
		var err error
		result, err = tx.GetResult(ctx, resultID)
		if err != nil {
			return err
		}
		if !result.Disputed || result.Resolution != nil {
			return fmt.Errorf("result %s is not under dispute: %w", result.ID, match.ErrInvalidState)
		}
		m, err := tx.GetMatch(ctx, result.MatchID)
		if err != nil {
			return err
		}

		var entries []rating.EloLogEntry
		switch resolution {
		case match.ResolutionConfirm:
			if !result.Rated {
				entries, err = r.ledger.ApplyMatch(ctx, tx, outcome(m, result, result.Winner))
			}
			result.RatedWinner = result.Winner
		case match.ResolutionOverturn:
			raw := newScore
			if raw == "" && result.DisputedScore != nil {
				raw = *result.DisputedScore
			}
			score, perr := ParseScore(raw)
			if perr != nil {
				return perr
			}
			result.Score = score.String()
			result.Winner = score.Winner
			if result.Rated {
				entries, err = r.ledger.Compensate(ctx, tx, m.ID, result.RatedWinner, score.Winner)
			} else {
				entries, err = r.ledger.ApplyMatch(ctx, tx, outcome(m, result, score.Winner))
			}
			result.RatedWinner = score.Winner
		case match.ResolutionVoid:
			if result.Rated {
				entries, err = r.ledger.Compensate(ctx, tx, m.ID, result.RatedWinner, rating.NoWinner)
			}
			result.RatedWinner = rating.NoWinner
		}
		if err != nil {
			return fmt.Errorf("failed to settle rating of match %s: %w", m.ID, err)
		}
		updates = len(entries)

		now := r.clock.Now()
		result.Rated = result.Rated || resolution != match.ResolutionVoid
		result.Disputed = false
		result.Resolution = &resolution
		result.UpdatedAt = now
		if err := tx.UpdateResult(ctx, result); err != nil {
			return err
		}
		if m.Status != match.StatusCompleted {
			m.Status = match.StatusCompleted
			m.UpdatedAt = now
			if err := tx.UpdateMatch(ctx, m); err != nil {
				return err
			}
		}
		for _, userID := range ratedIDs(slices.Concat(result.Side1, result.Side2)) {
			batch.Add(userID, notifier.EventDisputeResolved, map[string]any{
				"match_id": m.ID, "result_id": result.ID, "resolution": string(resolution), "score": result.Score,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updates > 0 {
		r.metrics.IncRatingUpdates(updates)
	}
	log.Info("Dispute resolved", "resultID", resultID, "resolution", resolution, "actor", actorID)
	batch.Send(ctx, r.notifier)
	return result, nil
}
