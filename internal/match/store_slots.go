package match

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mauv0809/courtmatch/internal/rating"
)

const slotColumns = `id, match_id, position, side, start_time, end_time, status, confirmed_application_id, lock_token, lock_holder, lock_expires_at`

func (t *txStore) InsertSlot(ctx context.Context, s *Slot) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO match_slots (`+slotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.MatchID, s.Position, int(s.Side), toMillis(s.Start), toMillis(s.End), s.Status,
		nullString(s.ConfirmedApplicationID), nullString(s.LockToken), nullString(s.LockHolder), nullMillis(s.LockExpiresAt))
	return wrapWriteErr("insert slot", err)
}

func (t *txStore) GetSlot(ctx context.Context, slotID string) (*Slot, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM match_slots WHERE id = ?`, slotID)
	s, err := scanSlot(row)
	if err != nil {
		return nil, notFound("slot", slotID, err)
	}
	return s, nil
}

func (t *txStore) ListSlots(ctx context.Context, matchID string) ([]Slot, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+slotColumns+` FROM match_slots WHERE match_id = ? ORDER BY position, id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots for match %s: %w", matchID, err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot row: %w", err)
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

func (t *txStore) LockSlot(ctx context.Context, slotID, token, holder string, expiresAt, now time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE match_slots
		SET status = ?, lock_token = ?, lock_holder = ?, lock_expires_at = ?
		WHERE id = ? AND (
			status = ?
			OR (status = ? AND (lock_expires_at <= ? OR lock_holder = ?))
		)`,
		SlotLocked, token, holder, toMillis(expiresAt),
		slotID, SlotAvailable, SlotLocked, toMillis(now), holder)
	if err != nil {
		return false, fmt.Errorf("failed to lock slot %s: %w", slotID, err)
	}
	return rowsAffected(res)
}

func (t *txStore) ConfirmSlot(ctx context.Context, slotID, token, applicationID string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE match_slots
		SET status = ?, confirmed_application_id = ?, lock_token = NULL, lock_holder = NULL, lock_expires_at = NULL
		WHERE id = ? AND status = ? AND lock_token = ?`,
		SlotConfirmed, applicationID, slotID, SlotLocked, token)
	if err != nil {
		return false, fmt.Errorf("failed to confirm slot %s: %w", slotID, err)
	}
	return rowsAffected(res)
}

func (t *txStore) ReleaseSlot(ctx context.Context, slotID, token string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE match_slots
		SET status = ?, lock_token = NULL, lock_holder = NULL, lock_expires_at = NULL
		WHERE id = ? AND status = ? AND lock_token = ?`,
		SlotAvailable, slotID, SlotLocked, token)
	if err != nil {
		return false, fmt.Errorf("failed to release slot %s: %w", slotID, err)
	}
	return rowsAffected(res)
}

func (t *txStore) ReopenSlot(ctx context.Context, slotID string) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE match_slots
		SET status = ?, confirmed_application_id = NULL, lock_token = NULL, lock_holder = NULL, lock_expires_at = NULL
		WHERE id = ?`,
		SlotAvailable, slotID)
	if err != nil {
		return fmt.Errorf("failed to reopen slot %s: %w", slotID, err)
	}
	return nil
}

func (t *txStore) ReleaseExpiredLocks(ctx context.Context, now time.Time) ([]Slot, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+slotColumns+` FROM match_slots WHERE status = ? AND lock_expires_at <= ? ORDER BY id`,
		SlotLocked, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired locks: %w", err)
	}
	var expired []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan slot row: %w", err)
		}
		expired = append(expired, *s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, s := range expired {
		if _, err := t.ReleaseSlot(ctx, s.ID, *s.LockToken); err != nil {
			return nil, err
		}
	}
	return expired, nil
}

func (t *txStore) DeleteSlots(ctx context.Context, matchID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM match_slots WHERE match_id = ?`, matchID); err != nil {
		return fmt.Errorf("failed to delete slots of match %s: %w", matchID, err)
	}
	return nil
}

func scanSlot(s scanner) (*Slot, error) {
	var slot Slot
	var side int
	var start, end int64
	var status string
	var confirmedID, token, holder sql.NullString
	var expiresAt sql.NullInt64
	if err := s.Scan(&slot.ID, &slot.MatchID, &slot.Position, &side, &start, &end, &status, &confirmedID, &token, &holder, &expiresAt); err != nil {
		return nil, err
	}
	slot.Side = rating.Side(side)
	slot.Start = fromMillis(start)
	slot.End = fromMillis(end)
	slot.Status = SlotStatus(status)
	slot.ConfirmedApplicationID = stringPtr(confirmedID)
	slot.LockToken = stringPtr(token)
	slot.LockHolder = stringPtr(holder)
	slot.LockExpiresAt = timePtr(expiresAt)
	return &slot, nil
}
