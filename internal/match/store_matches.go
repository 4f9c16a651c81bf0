package match

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mauv0809/courtmatch/internal/rating"
)

const matchColumns = `id, creator_id, court_id, match_date, format, filters_json, status, created_at, updated_at`

func (t *txStore) InsertMatch(ctx context.Context, m *Match) error {
	filtersJSON, err := json.Marshal(m.Filters)
	if err != nil {
		return fmt.Errorf("failed to marshal filters: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CreatorID, m.CourtID, toMillis(m.Date), m.Format, string(filtersJSON), m.Status, toMillis(m.CreatedAt), toMillis(m.UpdatedAt))
	return wrapWriteErr("insert match", err)
}

func (t *txStore) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, matchID)
	m, err := scanMatch(row)
	if err != nil {
		return nil, notFound("match", matchID, err)
	}
	return m, nil
}

func (t *txStore) UpdateMatch(ctx context.Context, m *Match) error {
	filtersJSON, err := json.Marshal(m.Filters)
	if err != nil {
		return fmt.Errorf("failed to marshal filters: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE matches SET court_id = ?, match_date = ?, filters_json = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		m.CourtID, toMillis(m.Date), string(filtersJSON), m.Status, toMillis(m.UpdatedAt), m.ID)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", m.ID, err)
	}
	if ok, err := rowsAffected(res); err != nil || !ok {
		return fmt.Errorf("match %s: %w", m.ID, ErrNotFound)
	}
	return nil
}

func (t *txStore) DeleteMatch(ctx context.Context, matchID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, matchID); err != nil {
		return fmt.Errorf("failed to delete match %s: %w", matchID, err)
	}
	return nil
}

func scanMatch(s scanner) (*Match, error) {
	var m Match
	var date, createdAt, updatedAt int64
	var format, status, filtersJSON string
	if err := s.Scan(&m.ID, &m.CreatorID, &m.CourtID, &date, &format, &filtersJSON, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.Date = fromMillis(date)
	m.Format = rating.Format(format)
	m.Status = Status(status)
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	if filtersJSON != "" {
		if err := json.Unmarshal([]byte(filtersJSON), &m.Filters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal filters_json: %w", err)
		}
	}
	return &m, nil
}
