package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evreserve/internal/events"
	"evreserve/internal/metrics"
	"evreserve/internal/models"
)

// ViolationStore persists violations and triplets.
type ViolationStore interface {
	CreateViolation(ctx context.Context, v *models.DriverViolation) error
	OpenTriplet(ctx context.Context, driverID int64) (*models.ViolationTriplet, error)
	CreateTriplet(ctx context.Context, driverID int64) (*models.ViolationTriplet, error)
	Append(ctx context.Context, tripletID, violationID int64, penalty float64, occurredAt time.Time) (*models.ViolationTriplet, error)
	SetTripletStatus(ctx context.Context, id int64, status string) (*models.ViolationTriplet, error)
	ListByDriver(ctx context.Context, driverID int64, limit int) ([]models.DriverViolation, error)
	ListTripletsByDriver(ctx context.Context, driverID int64, limit int) ([]models.ViolationTriplet, error)
}

// DriverBanner bans drivers and resolves their current status.
type DriverBanner interface {
	GetDriver(ctx context.Context, id int64) (*models.Driver, error)
	Ban(ctx context.Context, driverID int64) error
}

// RecordResult is the outcome of recording one violation.
type RecordResult struct {
	Violation    *models.DriverViolation  `json:"violation"`
	Triplet      *models.ViolationTriplet `json:"triplet"`
	DriverBanned bool                     `json:"driver_banned"`
	Message      string                   `json:"message"`
}

// ViolationsService accumulates driver violations into triplets and applies
// the auto-ban policy on triplet closure.
type ViolationsService struct {
	store   ViolationStore
	drivers DriverBanner
	bus     EventPublisher
	logger  *zap.Logger
	now     func() time.Time
}

// NewViolationsService builds service.
func NewViolationsService(store ViolationStore, drivers DriverBanner, bus EventPublisher, logger *zap.Logger) *ViolationsService {
	return &ViolationsService{
		store:   store,
		drivers: drivers,
		bus:     bus,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record creates a violation and appends it to the driver's OPEN triplet,
// opening a fresh one when none exists or the current one closed under a
// concurrent append. Closing a triplet (third member) bans the driver.
func (s *ViolationsService) Record(ctx context.Context, driverID int64, description string, penalty float64) (*RecordResult, error) {
	if _, err := s.drivers.GetDriver(ctx, driverID); err != nil {
		return nil, err
	}

	violation := &models.DriverViolation{
		DriverID:    driverID,
		OccurredAt:  s.now(),
		Status:      models.ViolationStatusActive,
		Description: description,
		Penalty:     penalty,
	}
	if err := s.store.CreateViolation(ctx, violation); err != nil {
		return nil, err
	}
	metrics.IncViolation()

	triplet, err := s.appendWithRetry(ctx, driverID, violation)
	if err != nil {
		return nil, err
	}

	result := &RecordResult{
		Violation: violation,
		Triplet:   triplet,
		Message:   fmt.Sprintf("violation recorded (%d/%d in current group)", triplet.CountInGroup, models.TripletCapacity),
	}

	if triplet.Status == models.TripletStatusClosed {
		if err := s.drivers.Ban(ctx, driverID); err != nil {
			return nil, fmt.Errorf("violations: ban driver %d: %w", driverID, err)
		}
		result.DriverBanned = true
		result.Message = fmt.Sprintf("third violation in group %d: driver %d banned", triplet.ID, driverID)
		metrics.IncDriverBan()
		s.bus.Publish(events.TypeDriverBanned, triplet)
		s.logger.Info("driver auto-banned",
			zap.Int64("driver_id", driverID),
			zap.Int64("triplet_id", triplet.ID),
			zap.Float64("total_penalty", triplet.TotalPenalty),
		)
	}

	return result, nil
}

// appendWithRetry performs the fetch-or-create / append-if-room loop. The
// conditional append can lose to a concurrent recording that fills the
// triplet; one retry against a fresh triplet resolves that.
func (s *ViolationsService) appendWithRetry(ctx context.Context, driverID int64, violation *models.DriverViolation) (*models.ViolationTriplet, error) {
	for attempt := 0; attempt < 2; attempt++ {
		triplet, err := s.store.OpenTriplet(ctx, driverID)
		if err != nil {
			return nil, err
		}
		if triplet == nil {
			triplet, err = s.store.CreateTriplet(ctx, driverID)
			if err != nil {
				return nil, err
			}
		}

		updated, err := s.store.Append(ctx, triplet.ID, violation.ID, violation.Penalty, violation.OccurredAt)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, models.ErrTripletFull) {
			return nil, err
		}
	}
	s.logger.Error("violation triplet append exhausted retries",
		zap.Int64("driver_id", driverID),
		zap.Int64("violation_id", violation.ID),
	)
	return nil, models.ErrTripletFull
}

// MarkTripletPaid applies the administrative PAID override.
func (s *ViolationsService) MarkTripletPaid(ctx context.Context, tripletID int64) (*models.ViolationTriplet, error) {
	return s.store.SetTripletStatus(ctx, tripletID, models.TripletStatusPaid)
}

// MarkTripletCanceled applies the administrative CANCELED override.
func (s *ViolationsService) MarkTripletCanceled(ctx context.Context, tripletID int64) (*models.ViolationTriplet, error) {
	return s.store.SetTripletStatus(ctx, tripletID, models.TripletStatusCanceled)
}

// ListByDriver returns the driver's violations and triplets.
func (s *ViolationsService) ListByDriver(ctx context.Context, driverID int64, limit int) ([]models.DriverViolation, []models.ViolationTriplet, error) {
	violations, err := s.store.ListByDriver(ctx, driverID, limit)
	if err != nil {
		return nil, nil, err
	}
	triplets, err := s.store.ListTripletsByDriver(ctx, driverID, limit)
	if err != nil {
		return nil, nil, err
	}
	return violations, triplets, nil
}
