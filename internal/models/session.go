package models

import "time"

// ChargingSession statuses. Completed and stopped are both terminal.
const (
	SessionStatusInProgress = "IN_PROGRESS"
	SessionStatusCompleted  = "COMPLETED"
	SessionStatusStopped    = "STOPPED"
)

// ChargingSession is one charging event tied 1:1 to a booking.
type ChargingSession struct {
	ID            int64      `db:"id" json:"id"`
	BookingID     int64      `db:"booking_id" json:"booking_id"`
	ConnectorType string     `db:"connector_type" json:"connector_type"`
	Status        string     `db:"status" json:"status"`
	StartTime     time.Time  `db:"start_time" json:"start_time"`
	EndTime       *time.Time `db:"end_time" json:"end_time,omitempty"`
	InitialSoc    float64    `db:"initial_soc" json:"initial_soc"`
	FinalSoc      *float64   `db:"final_soc" json:"final_soc,omitempty"`
	EnergyKWh     float64    `db:"energy_kwh" json:"energy_kwh"`
	DurationMin   int        `db:"duration_min" json:"duration_min"`
	Cost          float64    `db:"cost" json:"cost"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the session reached a final state.
func (s *ChargingSession) Terminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusStopped
}

// ChargingStatus is the simulated live view of an in-progress session.
type ChargingStatus struct {
	SessionID      int64     `json:"session_id"`
	Status         string    `json:"status"`
	Soc            float64   `json:"soc"`
	EnergyKWh      float64   `json:"energy_kwh"`
	ElapsedMinutes int       `json:"elapsed_minutes"`
	AsOf           time.Time `json:"as_of"`
}
