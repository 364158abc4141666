package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"evreserve/internal/models"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// BookingRepository owns the reservation transaction and booking lifecycle rows.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository returns repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, driver_id, vehicle_id, station_id, status, scheduled_start, scheduled_end, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	if err := row.Scan(
		&b.ID,
		&b.DriverID,
		&b.VehicleID,
		&b.StationID,
		&b.Status,
		&b.ScheduledStart,
		&b.ScheduledEnd,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// ReserveSlots atomically claims the given availabilities for a new PENDING
// booking. Each slot is flipped AVAILABLE -> BOOKED with a conditional update,
// in ascending slot id order; any slot that is not AVAILABLE rolls the whole
// transaction back with ErrSlotConflict, so concurrent reservations over
// overlapping slot sets have exactly one winner. Fills the booking id, station
// and scheduled window on success.
func (r *BookingRepository) ReserveSlots(ctx context.Context, booking *models.Booking, slotIDs []int64) error {
	if len(slotIDs) == 0 {
		return models.ErrSlotConflict
	}

	ids := append([]int64(nil), slotIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const claimQuery = `
		UPDATE slot_availabilities
		SET status = $2
		WHERE id = $1 AND status = $3
	`
	const windowQuery = `
		SELECT t.start_time, t.end_time, c.station_id
		FROM slot_availabilities s
		JOIN slot_templates t ON t.id = s.template_id
		JOIN slot_configs c ON c.id = t.config_id
		WHERE s.id = $1
	`

	var start, end time.Time
	for _, slotID := range ids {
		result, err := tx.ExecContext(ctx, claimQuery, slotID, models.SlotStatusBooked, models.SlotStatusAvailable)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			return models.ErrSlotConflict
		}

		var slotStart, slotEnd time.Time
		var stationID int64
		if err := tx.QueryRowContext(ctx, windowQuery, slotID).Scan(&slotStart, &slotEnd, &stationID); err != nil {
			return err
		}
		if start.IsZero() || slotStart.Before(start) {
			start = slotStart
		}
		if slotEnd.After(end) {
			end = slotEnd
		}
		booking.StationID = stationID
	}

	const insertBookingQuery = `
		INSERT INTO bookings (driver_id, vehicle_id, station_id, status, scheduled_start, scheduled_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	booking.Status = models.BookingStatusPending
	booking.ScheduledStart = start
	booking.ScheduledEnd = end
	if err := tx.QueryRowContext(ctx, insertBookingQuery,
		booking.DriverID,
		booking.VehicleID,
		booking.StationID,
		booking.Status,
		booking.ScheduledStart,
		booking.ScheduledEnd,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	const insertSlotQuery = `
		INSERT INTO booking_slots (booking_id, slot_availability_id)
		VALUES ($1, $2)
	`
	for _, slotID := range ids {
		if _, err := tx.ExecContext(ctx, insertSlotQuery, booking.ID, slotID); err != nil {
			if isUniqueViolation(err) {
				return models.ErrSlotConflict
			}
			return err
		}
	}

	return tx.Commit()
}

// Get returns a booking by id.
func (r *BookingRepository) Get(ctx context.Context, id int64) (*models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListByDriver returns latest bookings of a driver.
func (r *BookingRepository) ListByDriver(ctx context.Context, driverID int64, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE driver_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, driverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ConfirmPending moves a booking PENDING -> CONFIRMED.
func (r *BookingRepository) ConfirmPending(ctx context.Context, id int64) (*models.Booking, error) {
	const query = `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + bookingColumns
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id, models.BookingStatusConfirmed, models.BookingStatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, models.ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CancelAndRelease cancels a PENDING or CONFIRMED booking that has no session
// yet, reverting its claimed slots to AVAILABLE and deleting the booking slot
// rows in the same transaction.
func (r *BookingRepository) CancelAndRelease(ctx context.Context, id int64) error {
	const cancelQuery = `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		  AND status IN ($3, $4)
		  AND NOT EXISTS (SELECT 1 FROM charging_sessions cs WHERE cs.booking_id = bookings.id)
	`
	return r.cancelWith(ctx, id, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, cancelQuery, id,
			models.BookingStatusCancelled,
			models.BookingStatusPending,
			models.BookingStatusConfirmed,
		)
	})
}

// CancelNoShow cancels a CONFIRMED booking whose scheduled start predates the
// cutoff and which never started a session. A concurrent session start makes
// the guarded update match zero rows, so whichever transition commits first wins.
func (r *BookingRepository) CancelNoShow(ctx context.Context, id int64, cutoff time.Time) error {
	const cancelQuery = `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		  AND status = $3
		  AND scheduled_start < $4
		  AND NOT EXISTS (SELECT 1 FROM charging_sessions cs WHERE cs.booking_id = bookings.id)
	`
	return r.cancelWith(ctx, id, func(tx *sql.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, cancelQuery, id,
			models.BookingStatusCancelled,
			models.BookingStatusConfirmed,
			cutoff,
		)
	})
}

func (r *BookingRepository) cancelWith(ctx context.Context, id int64, cancel func(*sql.Tx) (sql.Result, error)) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := cancel(tx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return models.ErrInvalidState
	}

	const releaseQuery = `
		UPDATE slot_availabilities
		SET status = $2
		WHERE id IN (SELECT slot_availability_id FROM booking_slots WHERE booking_id = $1)
	`
	if _, err := tx.ExecContext(ctx, releaseQuery, id, models.SlotStatusAvailable); err != nil {
		return err
	}

	const deleteSlotsQuery = `DELETE FROM booking_slots WHERE booking_id = $1`
	if _, err := tx.ExecContext(ctx, deleteSlotsQuery, id); err != nil {
		return err
	}

	return tx.Commit()
}

// CompleteFromSession moves a booking CONFIRMED -> COMPLETED when its session ends.
func (r *BookingRepository) CompleteFromSession(ctx context.Context, id int64) error {
	const query = `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, models.BookingStatusCompleted, models.BookingStatusConfirmed)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrInvalidState
	}
	return nil
}

// ListNoShowCandidates returns CONFIRMED bookings past the cutoff without a session.
func (r *BookingRepository) ListNoShowCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.status = $1
		  AND b.scheduled_start < $2
		  AND NOT EXISTS (SELECT 1 FROM charging_sessions cs WHERE cs.booking_id = b.id)
		ORDER BY b.scheduled_start
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, models.BookingStatusConfirmed, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
