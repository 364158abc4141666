package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"evreserve/internal/models"
)

// SessionRepository handles persistence of charging sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, booking_id, connector_type, status, start_time, end_time, initial_soc, final_soc, energy_kwh, duration_min, cost, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*models.ChargingSession, error) {
	var s models.ChargingSession
	if err := row.Scan(
		&s.ID,
		&s.BookingID,
		&s.ConnectorType,
		&s.Status,
		&s.StartTime,
		&s.EndTime,
		&s.InitialSoc,
		&s.FinalSoc,
		&s.EnergyKWh,
		&s.DurationMin,
		&s.Cost,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// Start inserts a session for a CONFIRMED booking. The insert is guarded by the
// booking status check and the unique booking_id constraint, so concurrent
// start attempts on the same booking have exactly one winner.
func (r *SessionRepository) Start(ctx context.Context, bookingID int64, startTime time.Time, initialSoc float64) (*models.ChargingSession, error) {
	const query = `
		INSERT INTO charging_sessions (booking_id, connector_type, status, start_time, initial_soc, created_at, updated_at)
		SELECT b.id, v.connector_type, $2, $3, $4, NOW(), NOW()
		FROM bookings b
		JOIN vehicles v ON v.id = b.vehicle_id
		WHERE b.id = $1 AND b.status = $5
		ON CONFLICT (booking_id) DO NOTHING
		RETURNING ` + sessionColumns
	s, err := scanSession(r.db.QueryRowContext(ctx, query,
		bookingID,
		models.SessionStatusInProgress,
		startTime,
		initialSoc,
		models.BookingStatusConfirmed,
	))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		if isUniqueViolation(err) {
			return nil, models.ErrSessionAlreadyStarted
		}
		return nil, err
	}

	// No row inserted: either a session exists or the booking is not startable.
	existing, getErr := r.GetByBooking(ctx, bookingID)
	if getErr == nil && existing != nil {
		return nil, models.ErrSessionAlreadyStarted
	}
	if getErr != nil && !errors.Is(getErr, models.ErrNotFound) {
		return nil, getErr
	}
	return nil, models.ErrInvalidState
}

// Get returns a session by id.
func (r *SessionRepository) Get(ctx context.Context, id int64) (*models.ChargingSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM charging_sessions WHERE id = $1`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByBooking returns the session of a booking, if any.
func (r *SessionRepository) GetByBooking(ctx context.Context, bookingID int64) (*models.ChargingSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM charging_sessions WHERE booking_id = $1`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Finalize stamps the terminal metrics on an IN_PROGRESS session. Returns false
// when the session was already terminal, which callers treat as an idempotent
// retry rather than an error.
func (r *SessionRepository) Finalize(ctx context.Context, id int64, endTime time.Time, durationMin int, energyKWh, finalSoc, cost float64, status string) (bool, error) {
	const query = `
		UPDATE charging_sessions
		SET end_time = $2,
		    duration_min = $3,
		    energy_kwh = $4,
		    final_soc = $5,
		    cost = $6,
		    status = $7,
		    updated_at = NOW()
		WHERE id = $1 AND status = $8
	`
	result, err := r.db.ExecContext(ctx, query, id, endTime, durationMin, energyKWh, finalSoc, cost, status, models.SessionStatusInProgress)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
