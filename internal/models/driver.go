package models

import "time"

// Driver statuses.
const (
	DriverStatusActive = "ACTIVE"
	DriverStatusBanned = "BANNED"
)

// Connector types supported by the charge model.
const (
	ConnectorAC = "AC"
	ConnectorDC = "DC"
)

// Driver represents a registered driver account.
type Driver struct {
	ID        int64     `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Vehicle belongs to a driver and determines the connector type of its sessions.
type Vehicle struct {
	ID            int64     `db:"id" json:"id"`
	DriverID      int64     `db:"driver_id" json:"driver_id"`
	Plate         string    `db:"plate" json:"plate"`
	ConnectorType string    `db:"connector_type" json:"connector_type"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Station holds the operating window slot grids are derived from.
// Open/close are minutes since midnight local to the station.
type Station struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	OpenMinutes  int       `db:"open_minutes" json:"open_minutes"`
	CloseMinutes int       `db:"close_minutes" json:"close_minutes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
