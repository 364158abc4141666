package models

import "time"

// Booking statuses.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusCompleted = "COMPLETED"
)

// Booking represents a driver's reservation over one or more slots.
type Booking struct {
	ID             int64     `db:"id" json:"id"`
	DriverID       int64     `db:"driver_id" json:"driver_id"`
	VehicleID      int64     `db:"vehicle_id" json:"vehicle_id"`
	StationID      int64     `db:"station_id" json:"station_id"`
	Status         string    `db:"status" json:"status"`
	ScheduledStart time.Time `db:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd   time.Time `db:"scheduled_end" json:"scheduled_end"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// BookingSlot is the exclusive join between a booking and a slot availability.
// The slot_availability_id column is unique, so a slot backs at most one booking.
type BookingSlot struct {
	ID                 int64 `db:"id" json:"id"`
	BookingID          int64 `db:"booking_id" json:"booking_id"`
	SlotAvailabilityID int64 `db:"slot_availability_id" json:"slot_availability_id"`
}
