package models

import "time"

// DriverViolation statuses.
const (
	ViolationStatusActive   = "ACTIVE"
	ViolationStatusResolved = "RESOLVED"
	ViolationStatusCanceled = "CANCELED"
)

// ViolationTriplet statuses.
const (
	TripletStatusOpen     = "OPEN"
	TripletStatusClosed   = "CLOSED"
	TripletStatusPaid     = "PAID"
	TripletStatusCanceled = "CANCELED"
)

// TripletCapacity is the number of violations that closes a triplet.
const TripletCapacity = 3

// DriverViolation is one infraction record.
type DriverViolation struct {
	ID          int64     `db:"id" json:"id"`
	DriverID    int64     `db:"driver_id" json:"driver_id"`
	OccurredAt  time.Time `db:"occurred_at" json:"occurred_at"`
	Status      string    `db:"status" json:"status"`
	Description string    `db:"description" json:"description"`
	Penalty     float64   `db:"penalty" json:"penalty"`
}

// ViolationTriplet groups up to three violations of one driver into a rolling
// penalty unit. Triplets are append-only: closing one (third member added)
// never mutates past groups, which keeps the ban trigger auditable.
type ViolationTriplet struct {
	ID            int64      `db:"id" json:"id"`
	DriverID      int64      `db:"driver_id" json:"driver_id"`
	CountInGroup  int        `db:"count_in_group" json:"count_in_group"`
	TotalPenalty  float64    `db:"total_penalty" json:"total_penalty"`
	Status        string     `db:"status" json:"status"`
	WindowStartAt *time.Time `db:"window_start_at" json:"window_start_at,omitempty"`
	WindowEndAt   *time.Time `db:"window_end_at" json:"window_end_at,omitempty"`
	ClosedAt      *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	V1ID          *int64     `db:"v1_id" json:"v1_id,omitempty"`
	V2ID          *int64     `db:"v2_id" json:"v2_id,omitempty"`
	V3ID          *int64     `db:"v3_id" json:"v3_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
