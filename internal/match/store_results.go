package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mauv0809/courtmatch/internal/rating"
)

const resultColumns = `id, match_id, side1_json, side2_json, score, winner, submitter_id, disputed, disputed_by, disputed_score, rated, rated_winner, resolution, created_at, updated_at`

func (t *txStore) InsertResult(ctx context.Context, r *Result) error {
	side1, side2, err := marshalSides(r)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO results (`+resultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.MatchID, side1, side2, r.Score, int(r.Winner), r.SubmitterID, boolInt(r.Disputed),
		nullString(r.DisputedBy), nullString(r.DisputedScore), boolInt(r.Rated), int(r.RatedWinner),
		nullResolution(r.Resolution), toMillis(r.CreatedAt), toMillis(r.UpdatedAt))
	return wrapWriteErr("insert result", err)
}

func (t *txStore) GetResult(ctx context.Context, resultID string) (*Result, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE id = ?`, resultID)
	r, err := scanResult(row)
	if err != nil {
		return nil, notFound("result", resultID, err)
	}
	return r, nil
}

func (t *txStore) GetResultByMatch(ctx context.Context, matchID string) (*Result, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE match_id = ?`, matchID)
	r, err := scanResult(row)
	if err != nil {
		return nil, notFound("result for match", matchID, err)
	}
	return r, nil
}

func (t *txStore) UpdateResult(ctx context.Context, r *Result) error {
	side1, side2, err := marshalSides(r)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE results SET side1_json = ?, side2_json = ?, score = ?, winner = ?, disputed = ?, disputed_by = ?,
			disputed_score = ?, rated = ?, rated_winner = ?, resolution = ?, updated_at = ?
		WHERE id = ?`,
		side1, side2, r.Score, int(r.Winner), boolInt(r.Disputed), nullString(r.DisputedBy),
		nullString(r.DisputedScore), boolInt(r.Rated), int(r.RatedWinner), nullResolution(r.Resolution), toMillis(r.UpdatedAt),
		r.ID)
	if err != nil {
		return fmt.Errorf("failed to update result %s: %w", r.ID, err)
	}
	return nil
}

func (t *txStore) DeleteResult(ctx context.Context, matchID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM results WHERE match_id = ?`, matchID); err != nil {
		return fmt.Errorf("failed to delete result of match %s: %w", matchID, err)
	}
	return nil
}

func (t *txStore) InsertCancellation(ctx context.Context, c *Cancellation) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO cancellations (id, match_id, user_id, reason, was_confirmed, forced, over_quota, penalty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.MatchID, c.UserID, c.Reason, boolInt(c.WasConfirmed), boolInt(c.Forced), boolInt(c.OverQuota), c.Penalty, toMillis(c.CreatedAt))
	return wrapWriteErr("insert cancellation", err)
}

func (t *txStore) CountCancellations(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cancellations
		WHERE user_id = ? AND was_confirmed = 1 AND forced = 0 AND created_at >= ?`,
		userID, toMillis(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cancellations for %s: %w", userID, err)
	}
	return n, nil
}

func marshalSides(r *Result) (string, string, error) {
	side1, err := json.Marshal(r.Side1)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal side1: %w", err)
	}
	side2, err := json.Marshal(r.Side2)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal side2: %w", err)
	}
	return string(side1), string(side2), nil
}

func nullResolution(r *Resolution) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*r), Valid: true}
}

func scanResult(s scanner) (*Result, error) {
	var r Result
	var side1, side2 string
	var winner, ratedWinner, disputed, rated int
	var disputedBy, disputedScore, resolution sql.NullString
	var createdAt, updatedAt int64
	if err := s.Scan(&r.ID, &r.MatchID, &side1, &side2, &r.Score, &winner, &r.SubmitterID, &disputed, &disputedBy,
		&disputedScore, &rated, &ratedWinner, &resolution, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(side1), &r.Side1); err != nil {
		return nil, fmt.Errorf("failed to unmarshal side1_json: %w", err)
	}
	if err := json.Unmarshal([]byte(side2), &r.Side2); err != nil {
		return nil, fmt.Errorf("failed to unmarshal side2_json: %w", err)
	}
	r.Winner = rating.Side(winner)
	r.RatedWinner = rating.Side(ratedWinner)
	r.Disputed = disputed == 1
	r.Rated = rated == 1
	r.DisputedBy = stringPtr(disputedBy)
	r.DisputedScore = stringPtr(disputedScore)
	if resolution.Valid {
		res := Resolution(resolution.String)
		r.Resolution = &res
	}
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return &r, nil
}
