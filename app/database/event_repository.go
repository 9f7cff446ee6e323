package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/heuristics"
)

const eventColumns = `id, source_platform, source_event_id, title, event_date, city, state,
	distances, price_text, price_min, reg_link, source_url`

type SQLEventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *SQLEventRepository {
	return &SQLEventRepository{db: db}
}

func (r *SQLEventRepository) FindByIdentityKey(ctx context.Context, key event.IdentityKey) (*event.CanonicalEvent, error) {
	var row *sql.Row
	if !key.Fallback() {
		row = r.db.QueryRowContext(ctx, `
			SELECT `+eventColumns+` FROM events
			WHERE source_platform = ? AND source_event_id = ?
		`, key.SourcePlatform, key.SourceEventID)
	} else {
		row = r.db.QueryRowContext(ctx, `
			SELECT `+eventColumns+` FROM events
			WHERE source_platform = ? AND source_event_id = '' AND title_key = ? AND event_date = ?
		`, key.SourcePlatform, key.TitleKey, key.Date.String())
	}

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event %s: %w", key, err)
	}
	return e, nil
}

func (r *SQLEventRepository) CreateEvent(ctx context.Context, e event.CanonicalEvent) (int64, error) {
	distances, err := json.Marshal(nonNil(e.Distances))
	if err != nil {
		return 0, fmt.Errorf("failed to encode distances: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO events (
			source_platform, source_event_id, title, title_key, event_date, city, state,
			distances, price_text, price_min, reg_link, source_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SourcePlatform, e.SourceEventID, e.Title, heuristics.NormalizeTitle(e.Title),
		e.Date.String(), e.City, e.State, string(distances), e.PriceText,
		nullFloat(e.PriceMin), e.RegLink, e.SourceURL)
	if err != nil {
		return 0, fmt.Errorf("failed to create event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read event id: %w", err)
	}
	return id, nil
}

func (r *SQLEventRepository) UpdateEvent(ctx context.Context, id int64, fields event.MutableFields) error {
	distances, err := json.Marshal(nonNil(fields.Distances))
	if err != nil {
		return fmt.Errorf("failed to encode distances: %w", err)
	}

	// title_key only changes for rows keyed by source id; fallback rows
	// match on the normalized title so it is unchanged there
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET title = ?,
			title_key = CASE WHEN source_event_id = '' THEN title_key ELSE ? END,
			price_text = ?, price_min = ?, distances = ?, reg_link = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, fields.Title, heuristics.NormalizeTitle(fields.Title), fields.PriceText,
		nullFloat(fields.PriceMin), string(distances), fields.RegLink, id)
	if err != nil {
		return fmt.Errorf("failed to update event %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update event %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("event %d not found", id)
	}
	return nil
}

func (r *SQLEventRepository) GetEvent(ctx context.Context, id int64) (*event.CanonicalEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLEventRepository) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *SQLEventRepository) CountEventsByPlatform(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_platform, COUNT(*) FROM events GROUP BY source_platform
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by platform: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("failed to scan platform count: %w", err)
		}
		counts[platform] = count
	}
	return counts, rows.Err()
}

func scanEvent(row *sql.Row) (*event.CanonicalEvent, error) {
	var (
		e         event.CanonicalEvent
		date      string
		distances string
		priceMin  sql.NullFloat64
	)

	err := row.Scan(&e.ID, &e.SourcePlatform, &e.SourceEventID, &e.Title, &date,
		&e.City, &e.State, &distances, &e.PriceText, &priceMin, &e.RegLink, &e.SourceURL)
	if err != nil {
		return nil, err
	}

	if err := e.Date.UnmarshalText([]byte(date)); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(distances), &e.Distances); err != nil {
		return nil, fmt.Errorf("failed to decode distances: %w", err)
	}
	if priceMin.Valid {
		v := priceMin.Float64
		e.PriceMin = &v
	}
	return &e, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nonNil(d event.Distances) event.Distances {
	if d == nil {
		return event.Distances{}
	}
	return d
}
