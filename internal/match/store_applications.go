package match

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const applicationColumns = `id, slot_id, match_id, applicant_id, guest_name, status, created_at, updated_at`

func (t *txStore) InsertApplication(ctx context.Context, a *Application) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SlotID, a.MatchID, a.ApplicantID, nullString(a.GuestName), a.Status, toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	return wrapWriteErr("insert application", err)
}

func (t *txStore) GetApplication(ctx context.Context, applicationID string) (*Application, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = ?`, applicationID)
	a, err := scanApplication(row)
	if err != nil {
		return nil, notFound("application", applicationID, err)
	}
	return a, nil
}

func (t *txStore) ListApplications(ctx context.Context, slotID string) ([]Application, error) {
	return t.queryApplications(ctx, `SELECT `+applicationColumns+` FROM applications WHERE slot_id = ? ORDER BY created_at, id`, slotID)
}

func (t *txStore) ListMatchApplications(ctx context.Context, matchID string) ([]Application, error) {
	return t.queryApplications(ctx, `SELECT `+applicationColumns+` FROM applications WHERE match_id = ? ORDER BY created_at, id`, matchID)
}

func (t *txStore) ListExpirableApplications(ctx context.Context, now time.Time) ([]Application, error) {
	return t.queryApplications(ctx, `
		SELECT a.id, a.slot_id, a.match_id, a.applicant_id, a.guest_name, a.status, a.created_at, a.updated_at
		FROM applications a
		JOIN match_slots s ON s.id = a.slot_id
		JOIN matches m ON m.id = a.match_id
		WHERE a.status IN (?, ?) AND m.status IN (?, ?) AND s.start_time <= ?
		ORDER BY a.created_at, a.id`,
		ApplicationPending, ApplicationWaitlisted, StatusPending, StatusConfirmed, toMillis(now))
}

func (t *txStore) UpdateApplicationStatus(ctx context.Context, applicationID string, status ApplicationStatus, now time.Time) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE applications SET status = ?, updated_at = ? WHERE id = ?`, status, toMillis(now), applicationID)
	if err != nil {
		return wrapWriteErr("update application "+applicationID, err)
	}
	if ok, err := rowsAffected(res); err != nil || !ok {
		return fmt.Errorf("application %s: %w", applicationID, ErrNotFound)
	}
	return nil
}

func (t *txStore) DeleteApplication(ctx context.Context, applicationID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, applicationID); err != nil {
		return fmt.Errorf("failed to delete application %s: %w", applicationID, err)
	}
	return nil
}

func (t *txStore) DeleteApplications(ctx context.Context, matchID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM applications WHERE match_id = ?`, matchID); err != nil {
		return fmt.Errorf("failed to delete applications of match %s: %w", matchID, err)
	}
	return nil
}

func (t *txStore) queryApplications(ctx context.Context, query string, args ...any) ([]Application, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application row: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

func scanApplication(s scanner) (*Application, error) {
	var a Application
	var guest sql.NullString
	var status string
	var createdAt, updatedAt int64
	if err := s.Scan(&a.ID, &a.SlotID, &a.MatchID, &a.ApplicantID, &guest, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.GuestName = stringPtr(guest)
	a.Status = ApplicationStatus(status)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}
