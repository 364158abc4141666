package repository

import (
	"context"
	"database/sql"
	"errors"

	"evreserve/internal/models"
)

// TariffRepository handles tariff lookups.
type TariffRepository struct {
	db *sql.DB
}

// NewTariffRepository returns repository.
func NewTariffRepository(db *sql.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

// GetActive returns currently active tariff (latest active row).
func (r *TariffRepository) GetActive(ctx context.Context) (*models.Tariff, error) {
	const query = `
		SELECT id, name, price_per_kwh, price_per_minute, currency, is_active, created_at, updated_at
		FROM tariffs
		WHERE is_active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var t models.Tariff
	if err := r.db.QueryRowContext(ctx, query).Scan(
		&t.ID,
		&t.Name,
		&t.PricePerKWh,
		&t.PricePerMinute,
		&t.Currency,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
