package repository

import (
	"context"
	"database/sql"
	"errors"

	"evreserve/internal/models"
)

// DriverRepository handles driver and vehicle lookups.
type DriverRepository struct {
	db *sql.DB
}

// NewDriverRepository returns repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// GetDriver returns a driver by id.
func (r *DriverRepository) GetDriver(ctx context.Context, id int64) (*models.Driver, error) {
	const query = `
		SELECT id, full_name, status, created_at, updated_at
		FROM drivers
		WHERE id = $1
	`
	var d models.Driver
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.FullName,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetVehicle returns a vehicle by id.
func (r *DriverRepository) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	const query = `
		SELECT id, driver_id, plate, connector_type, created_at
		FROM vehicles
		WHERE id = $1
	`
	var v models.Vehicle
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID,
		&v.DriverID,
		&v.Plate,
		&v.ConnectorType,
		&v.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Ban flips the driver to BANNED status.
func (r *DriverRepository) Ban(ctx context.Context, driverID int64) error {
	const query = `
		UPDATE drivers
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, driverID, models.DriverStatusBanned)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}
