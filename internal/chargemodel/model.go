// Package chargemodel simulates charging progress from elapsed wall-clock time.
// The linear model is a placeholder for hardware telemetry; implementations
// must stay deterministic and monotonic in elapsed time.
package chargemodel

import (
	"time"

	"evreserve/internal/models"
)

// Model derives state of charge and delivered energy from elapsed time.
type Model interface {
	Soc(connectorType string, initialSoc float64, elapsed time.Duration) float64
	Energy(connectorType string, initialSoc float64, elapsed time.Duration) float64
	EnergyForSoc(initialSoc, finalSoc float64) float64
}

// Linear charges at a fixed percent-per-hour rate per connector type and
// converts SoC percent to energy with a constant kWh-per-percent factor.
type Linear struct {
	ratePerHour   map[string]float64
	kwhPerPercent float64
}

// Default simulation constants.
const (
	DefaultRateDC        = 25.0
	DefaultRateAC        = 10.0
	DefaultKWhPerPercent = 0.5
)

// NewLinear builds the linear model. Non-positive arguments fall back to defaults.
func NewLinear(rateDC, rateAC, kwhPerPercent float64) *Linear {
	if rateDC <= 0 {
		rateDC = DefaultRateDC
	}
	if rateAC <= 0 {
		rateAC = DefaultRateAC
	}
	if kwhPerPercent <= 0 {
		kwhPerPercent = DefaultKWhPerPercent
	}
	return &Linear{
		ratePerHour: map[string]float64{
			models.ConnectorDC: rateDC,
			models.ConnectorAC: rateAC,
		},
		kwhPerPercent: kwhPerPercent,
	}
}

// Soc returns min(100, initial + elapsedHours * rate).
func (l *Linear) Soc(connectorType string, initialSoc float64, elapsed time.Duration) float64 {
	if elapsed < 0 {
		elapsed = 0
	}
	rate, ok := l.ratePerHour[connectorType]
	if !ok {
		rate = l.ratePerHour[models.ConnectorAC]
	}
	soc := initialSoc + elapsed.Hours()*rate
	if soc > 100 {
		return 100
	}
	return soc
}

// Energy returns the kWh delivered for the SoC gained since start.
func (l *Linear) Energy(connectorType string, initialSoc float64, elapsed time.Duration) float64 {
	return (l.Soc(connectorType, initialSoc, elapsed) - initialSoc) * l.kwhPerPercent
}

// EnergyForSoc converts an externally supplied final SoC to delivered kWh.
func (l *Linear) EnergyForSoc(initialSoc, finalSoc float64) float64 {
	if finalSoc < initialSoc {
		return 0
	}
	return (finalSoc - initialSoc) * l.kwhPerPercent
}
