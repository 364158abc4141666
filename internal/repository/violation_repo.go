package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"evreserve/internal/models"
)

// ViolationRepository persists driver violations and their triplets.
type ViolationRepository struct {
	db *sql.DB
}

// NewViolationRepository returns repository.
func NewViolationRepository(db *sql.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

const tripletColumns = `id, driver_id, count_in_group, total_penalty, status, window_start_at, window_end_at, closed_at, v1_id, v2_id, v3_id, created_at`

func scanTriplet(row interface{ Scan(...any) error }) (*models.ViolationTriplet, error) {
	var t models.ViolationTriplet
	if err := row.Scan(
		&t.ID,
		&t.DriverID,
		&t.CountInGroup,
		&t.TotalPenalty,
		&t.Status,
		&t.WindowStartAt,
		&t.WindowEndAt,
		&t.ClosedAt,
		&t.V1ID,
		&t.V2ID,
		&t.V3ID,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateViolation inserts a violation record.
func (r *ViolationRepository) CreateViolation(ctx context.Context, v *models.DriverViolation) error {
	const query = `
		INSERT INTO driver_violations (driver_id, occurred_at, status, description, penalty)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		v.DriverID,
		v.OccurredAt,
		v.Status,
		v.Description,
		v.Penalty,
	).Scan(&v.ID)
}

// OpenTriplet returns the driver's current OPEN triplet, or nil when none exists.
func (r *ViolationRepository) OpenTriplet(ctx context.Context, driverID int64) (*models.ViolationTriplet, error) {
	const query = `
		SELECT ` + tripletColumns + `
		FROM violation_triplets
		WHERE driver_id = $1 AND status = $2
		ORDER BY id DESC
		LIMIT 1
	`
	t, err := scanTriplet(r.db.QueryRowContext(ctx, query, driverID, models.TripletStatusOpen))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTriplet opens a new empty triplet for the driver.
func (r *ViolationRepository) CreateTriplet(ctx context.Context, driverID int64) (*models.ViolationTriplet, error) {
	const query = `
		INSERT INTO violation_triplets (driver_id, status, created_at)
		VALUES ($1, $2, NOW())
		RETURNING ` + tripletColumns
	return scanTriplet(r.db.QueryRowContext(ctx, query, driverID, models.TripletStatusOpen))
}

// Append adds a violation to an OPEN triplet with room left. The whole
// transition happens in one conditional update: the first member stamps the
// window start, the third stamps window end and closed_at and flips the status
// to CLOSED. Racing appends past capacity match zero rows and surface
// ErrTripletFull, so a triplet can never hold more than three violations.
func (r *ViolationRepository) Append(ctx context.Context, tripletID, violationID int64, penalty float64, occurredAt time.Time) (*models.ViolationTriplet, error) {
	const query = `
		UPDATE violation_triplets
		SET count_in_group = count_in_group + 1,
		    total_penalty = total_penalty + $2,
		    v1_id = CASE WHEN count_in_group = 0 THEN $3 ELSE v1_id END,
		    v2_id = CASE WHEN count_in_group = 1 THEN $3 ELSE v2_id END,
		    v3_id = CASE WHEN count_in_group = 2 THEN $3 ELSE v3_id END,
		    window_start_at = COALESCE(window_start_at, $4),
		    window_end_at = CASE WHEN count_in_group = 2 THEN $4 ELSE window_end_at END,
		    closed_at = CASE WHEN count_in_group = 2 THEN NOW() ELSE closed_at END,
		    status = CASE WHEN count_in_group = 2 THEN $5 ELSE status END
		WHERE id = $1 AND status = $6 AND count_in_group < $7
		RETURNING ` + tripletColumns
	t, err := scanTriplet(r.db.QueryRowContext(ctx, query,
		tripletID,
		penalty,
		violationID,
		occurredAt,
		models.TripletStatusClosed,
		models.TripletStatusOpen,
		models.TripletCapacity,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTripletFull
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTriplet returns a triplet by id.
func (r *ViolationRepository) GetTriplet(ctx context.Context, id int64) (*models.ViolationTriplet, error) {
	const query = `SELECT ` + tripletColumns + ` FROM violation_triplets WHERE id = $1`
	t, err := scanTriplet(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// SetTripletStatus applies an administrative override (PAID or CANCELED).
// Closed triplets keep their member slots; overrides never reopen them.
func (r *ViolationRepository) SetTripletStatus(ctx context.Context, id int64, status string) (*models.ViolationTriplet, error) {
	const query = `
		UPDATE violation_triplets
		SET status = $2
		WHERE id = $1 AND status IN ($3, $4)
		RETURNING ` + tripletColumns
	t, err := scanTriplet(r.db.QueryRowContext(ctx, query, id, status, models.TripletStatusOpen, models.TripletStatusClosed))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetTriplet(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, models.ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListByDriver returns the driver's violations, newest first.
func (r *ViolationRepository) ListByDriver(ctx context.Context, driverID int64, limit int) ([]models.DriverViolation, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, driver_id, occurred_at, status, description, penalty
		FROM driver_violations
		WHERE driver_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, driverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []models.DriverViolation
	for rows.Next() {
		var v models.DriverViolation
		if err := rows.Scan(
			&v.ID,
			&v.DriverID,
			&v.OccurredAt,
			&v.Status,
			&v.Description,
			&v.Penalty,
		); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return violations, nil
}

// ListTripletsByDriver returns the driver's triplets, newest first.
func (r *ViolationRepository) ListTripletsByDriver(ctx context.Context, driverID int64, limit int) ([]models.ViolationTriplet, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT ` + tripletColumns + `
		FROM violation_triplets
		WHERE driver_id = $1
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, driverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triplets []models.ViolationTriplet
	for rows.Next() {
		t, err := scanTriplet(rows)
		if err != nil {
			return nil, err
		}
		triplets = append(triplets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return triplets, nil
}
