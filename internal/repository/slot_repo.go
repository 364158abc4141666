package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"evreserve/internal/models"
)

// SlotRepository persists slot configs, templates and availabilities.
type SlotRepository struct {
	db *sql.DB
}

// NewSlotRepository returns repository.
func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// GetConfig returns a slot config by id.
func (r *SlotRepository) GetConfig(ctx context.Context, id int64) (*models.SlotConfig, error) {
	const query = `
		SELECT id, station_id, slot_duration_min, active_from, active_expire, is_active, created_at
		FROM slot_configs
		WHERE id = $1
	`
	var c models.SlotConfig
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.StationID,
		&c.SlotDurationMin,
		&c.ActiveFrom,
		&c.ActiveExpire,
		&c.IsActive,
		&c.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetStation returns a station by id.
func (r *SlotRepository) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	const query = `
		SELECT id, name, open_minutes, close_minutes, created_at
		FROM stations
		WHERE id = $1
	`
	var s models.Station
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Name,
		&s.OpenMinutes,
		&s.CloseMinutes,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// UpsertTemplate inserts a template or resolves the existing row for the same
// (config, date, index), filling the id either way. Generation stays idempotent.
func (r *SlotRepository) UpsertTemplate(ctx context.Context, t *models.SlotTemplate) error {
	const query = `
		INSERT INTO slot_templates (config_id, slot_date, slot_index, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (config_id, slot_date, slot_index) DO UPDATE SET
			slot_index = EXCLUDED.slot_index
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		t.ConfigID,
		t.SlotDate,
		t.SlotIndex,
		t.StartTime,
		t.EndTime,
	).Scan(&t.ID)
}

// EnsureAvailability inserts an availability row unless one already exists for
// the (template, connector) pair. Returns whether a new row was created.
func (r *SlotRepository) EnsureAvailability(ctx context.Context, a *models.SlotAvailability) (bool, error) {
	const query = `
		INSERT INTO slot_availabilities (template_id, connector_type, slot_date, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (template_id, connector_type) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		a.TemplateID,
		a.ConnectorType,
		a.SlotDate,
		a.Status,
	).Scan(&a.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListOpen returns AVAILABLE slots of a station for one date and connector type.
func (r *SlotRepository) ListOpen(ctx context.Context, stationID int64, date time.Time, connectorType string) ([]models.OpenSlot, error) {
	const query = `
		SELECT s.id, s.connector_type, t.start_time, t.end_time
		FROM slot_availabilities s
		JOIN slot_templates t ON t.id = s.template_id
		JOIN slot_configs c ON c.id = t.config_id
		WHERE c.station_id = $1
		  AND s.slot_date = $2
		  AND s.connector_type = $3
		  AND s.status = $4
		ORDER BY t.start_time
	`
	rows, err := r.db.QueryContext(ctx, query, stationID, date, connectorType, models.SlotStatusAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []models.OpenSlot
	for rows.Next() {
		var s models.OpenSlot
		if err := rows.Scan(
			&s.SlotID,
			&s.ConnectorType,
			&s.StartTime,
			&s.EndTime,
		); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}
