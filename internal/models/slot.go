package models

import "time"

// SlotAvailability statuses.
const (
	SlotStatusAvailable = "AVAILABLE"
	SlotStatusBooked    = "BOOKED"
	SlotStatusBlocked   = "BLOCKED"
)

// SlotConfig is a station's recurring schedule definition.
// Only one config may be active per station at a time.
type SlotConfig struct {
	ID              int64     `db:"id" json:"id"`
	StationID       int64     `db:"station_id" json:"station_id"`
	SlotDurationMin int       `db:"slot_duration_min" json:"slot_duration_min"`
	ActiveFrom      time.Time `db:"active_from" json:"active_from"`
	ActiveExpire    time.Time `db:"active_expire" json:"active_expire"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// SlotTemplate is one concrete daily slot derived from a config.
// Immutable once generated; unique per (config, date, index).
type SlotTemplate struct {
	ID        int64     `db:"id" json:"id"`
	ConfigID  int64     `db:"config_id" json:"config_id"`
	SlotDate  time.Time `db:"slot_date" json:"slot_date"`
	SlotIndex int       `db:"slot_index" json:"slot_index"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
}

// SlotAvailability is the bookable unit: one (template, connector type) pair.
type SlotAvailability struct {
	ID            int64     `db:"id" json:"id"`
	TemplateID    int64     `db:"template_id" json:"template_id"`
	ConnectorType string    `db:"connector_type" json:"connector_type"`
	SlotDate      time.Time `db:"slot_date" json:"slot_date"`
	Status        string    `db:"status" json:"status"`
}

// OpenSlot is the driver-facing availability view with the template window joined in.
type OpenSlot struct {
	SlotID        int64     `json:"slot_id"`
	ConnectorType string    `json:"connector_type"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}
