package results

import (
	"context"
	"errors"
	"fmt"
	"slices"

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

// Reporter records match results and feeds undisputed ones to the rating ledger.
type Reporter struct {
	store      match.Store
	clock      clock.Clock
	ids        ids.Generator
	ledger     *rating.Ledger
	privileged match.Privileged
	notifier   notifier.Notifier
	metrics    metrics.Metrics
}

// NewReporter creates a new Reporter.
func NewReporter(store match.Store, clk clock.Clock, gen ids.Generator, ledger *rating.Ledger, privileged match.Privileged, n notifier.Notifier, m metrics.Metrics) *Reporter {
	return &Reporter{
		store:      store,
		clock:      clk,
		ids:        gen,
		ledger:     ledger,
		privileged: privileged,
		notifier:   n,
		metrics:    m,
	}
}

// Report records the score of a CONFIRMED match and completes it. Unless disputed, the
// rating ledger runs in the same transaction, so a rating failure leaves the match
// untouched. Reporting the same score again returns the stored result. A different
// score from another participant marks the stored result as disputed.
func (r *Reporter) Report(ctx context.Context, matchID, rawScore, submitterID string, disputed bool) (*match.Result, error) {
	score, err := ParseScore(rawScore)
	if err != nil {
		return nil, err
	}
	var result *match.Result
	var batch notifier.Batch
	updates := 0
	err = r.store.WithTx(ctx, func(tx match.Tx) error {
		m, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		side1, side2, err := Sides(ctx, tx, m)
		if err != nil {
			return err
		}
		if !isParticipant(submitterID, side1, side2) && !r.privileged.Has(submitterID) {
			return fmt.Errorf("user %s did not play match %s: %w", submitterID, m.ID, match.ErrForbidden)
		}

		existing, err := tx.GetResultByMatch(ctx, m.ID)
		switch {
		case err == nil:
			result, err = r.contest(ctx, tx, existing, score, submitterID, disputed, &batch)
			return err
		case !errors.Is(err, match.ErrNotFound):
			return err
		}

		if m.Status != match.StatusConfirmed {
			return fmt.Errorf("match %s is %s: %w", m.ID, m.Status, match.ErrInvalidState)
		}
		now := r.clock.Now()
		if m.Date.After(now) {
			return fmt.Errorf("match %s has not been played yet: %w", m.ID, match.ErrInvalidState)
		}
		if len(side2) == 0 {
			return fmt.Errorf("match %s has no opponents: %w", m.ID, match.ErrInvalidState)
		}

		result = &match.Result{
			ID:          r.ids.NewID(),
			MatchID:     m.ID,
			Side1:       side1,
			Side2:       side2,
			Score:       score.String(),
			Winner:      score.Winner,
			SubmitterID: submitterID,
			Disputed:    disputed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if disputed {
			result.DisputedBy = &submitterID
		} else {
			entries, err := r.ledger.ApplyMatch(ctx, tx, outcome(m, result, score.Winner))
			if err != nil {
				return fmt.Errorf("failed to rate match %s: %w", m.ID, err)
			}
			updates = len(entries)
			result.Rated = true
			result.RatedWinner = score.Winner
		}
		if err := tx.InsertResult(ctx, result); err != nil {
			return err
		}
		m.Status = match.StatusCompleted
		m.UpdatedAt = now
		if err := tx.UpdateMatch(ctx, m); err != nil {
			return err
		}
		for _, userID := range ratedIDs(slices.Concat(side1, side2)) {
			batch.Add(userID, notifier.EventResultReported, map[string]any{
				"match_id": m.ID, "score": result.Score, "winner": int(result.Winner), "disputed": disputed,
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
	log.Info("Result reported", "matchID", matchID, "score", result.Score, "disputed", result.Disputed, "rated", result.Rated)
	batch.Send(ctx, r.notifier)
	return result, nil
}

// contest handles a report for a match that already has a result.
func (r *Reporter) contest(ctx context.Context, tx match.Tx, existing *match.Result, score Score, submitterID string, disputed bool, batch *notifier.Batch) (*match.Result, error) {
	if existing.Score == score.String() && !disputed {
		return existing, nil
	}
	if existing.Resolution != nil {
		return nil, fmt.Errorf("result %s was already resolved: %w", existing.ID, match.ErrInvalidState)
	}
	if existing.Disputed {
		return nil, fmt.Errorf("result %s is already disputed: %w", existing.ID, match.ErrInvalidState)
	}
	if existing.SubmitterID == submitterID {
		return nil, fmt.Errorf("result %s was submitted by %s: %w", existing.ID, submitterID, match.ErrInvalidState)
	}

	existing.Disputed = true
	existing.DisputedBy = &submitterID
	if existing.Score != score.String() {
		s := score.String()
		existing.DisputedScore = &s
	}
	existing.UpdatedAt = r.clock.Now()
	if err := tx.UpdateResult(ctx, existing); err != nil {
		return nil, err
	}
	payload := map[string]any{"match_id": existing.MatchID, "result_id": existing.ID, "score": existing.Score, "disputed_by": submitterID}
	if existing.DisputedScore != nil {
		payload["disputed_score"] = *existing.DisputedScore
	}
	batch.Add(existing.SubmitterID, notifier.EventResultDisputed, payload)
	log.Info("Result disputed", "resultID", existing.ID, "by", submitterID)
	return existing, nil
}

// Sides returns the participants of m: the creator and the confirmed applicants of side
// one slots against the confirmed applicants of side two slots. Guest partners join
// their host's side.
func Sides(ctx context.Context, tx match.Tx, m *match.Match) ([]match.Participant, []match.Participant, error) {
	matchSlots, err := tx.ListSlots(ctx, m.ID)
	if err != nil {
		return nil, nil, err
	}
	apps, err := tx.ListMatchApplications(ctx, m.ID)
	if err != nil {
		return nil, nil, err
	}
	sideOf := make(map[string]rating.Side, len(matchSlots))
	for _, s := range matchSlots {
		sideOf[s.ID] = s.Side
	}

	side1 := []match.Participant{{UserID: m.CreatorID}}
	var side2 []match.Participant
	for _, a := range slots.Ordered(slots.WithStatus(apps, match.ApplicationConfirmed)) {
		players := []match.Participant{{UserID: a.ApplicantID}}
		if a.GuestName != nil {
			players = append(players, match.Participant{GuestName: *a.GuestName})
		}
		if sideOf[a.SlotID] == rating.Side1 {
			side1 = append(side1, players...)
		} else {
			side2 = append(side2, players...)
		}
	}
	return side1, side2, nil
}

func isParticipant(userID string, sides ...[]match.Participant) bool {
	for _, side := range sides {
		if pie.Any(side, func(p match.Participant) bool { return p.UserID == userID }) {
			return true
		}
	}
	return false
}

// ratedIDs returns the user ids of the non-guest participants.
func ratedIDs(players []match.Participant) []string {
	rated := pie.Filter(players, func(p match.Participant) bool { return p.UserID != "" })
	return pie.Map(rated, func(p match.Participant) string { return p.UserID })
}

func outcome(m *match.Match, r *match.Result, winner rating.Side) rating.Outcome {
	return rating.Outcome{
		MatchID: m.ID,
		Format:  m.Format,
		Side1:   ratedIDs(r.Side1),
		Side2:   ratedIDs(r.Side2),
		Winner:  winner,
	}
}
