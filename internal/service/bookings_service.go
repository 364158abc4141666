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

// BookingStore owns booking rows and the slot reservation transaction.
type BookingStore interface {
	ReserveSlots(ctx context.Context, booking *models.Booking, slotIDs []int64) error
	Get(ctx context.Context, id int64) (*models.Booking, error)
	ListByDriver(ctx context.Context, driverID int64, limit int) ([]models.Booking, error)
	ConfirmPending(ctx context.Context, id int64) (*models.Booking, error)
	CancelAndRelease(ctx context.Context, id int64) error
	CancelNoShow(ctx context.Context, id int64, cutoff time.Time) error
	ListNoShowCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
}

// DriverStore provides driver and vehicle lookups.
type DriverStore interface {
	GetDriver(ctx context.Context, id int64) (*models.Driver, error)
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
}

// ConfirmationSigner produces the opaque QR payload for a confirmed booking.
type ConfirmationSigner interface {
	Encode(bookingID, driverID int64, slotStart, slotEnd time.Time) (string, error)
}

// ViolationRecorder feeds booking failures into the violation accumulator.
type ViolationRecorder interface {
	Record(ctx context.Context, driverID int64, description string, penalty float64) (*RecordResult, error)
}

// EventPublisher publishes after-commit events.
type EventPublisher interface {
	Publish(eventType string, payload any) bool
}

// BookingsService runs the reservation allocator and the booking state machine.
type BookingsService struct {
	store         BookingStore
	drivers       DriverStore
	signer        ConfirmationSigner
	violations    ViolationRecorder
	bus           EventPublisher
	logger        *zap.Logger
	noShowGrace   time.Duration
	noShowPenalty float64
}

// NewBookingsService builds service.
func NewBookingsService(
	store BookingStore,
	drivers DriverStore,
	signer ConfirmationSigner,
	violations ViolationRecorder,
	bus EventPublisher,
	logger *zap.Logger,
	noShowGrace time.Duration,
	noShowPenalty float64,
) *BookingsService {
	if noShowGrace <= 0 {
		noShowGrace = 15 * time.Minute
	}
	return &BookingsService{
		store:         store,
		drivers:       drivers,
		signer:        signer,
		violations:    violations,
		bus:           bus,
		logger:        logger,
		noShowGrace:   noShowGrace,
		noShowPenalty: noShowPenalty,
	}
}

// Reserve atomically claims the given slots for a new PENDING booking.
// Exactly one of any set of concurrent overlapping reservations succeeds;
// the rest fail with ErrSlotConflict and leave no partial writes behind.
func (s *BookingsService) Reserve(ctx context.Context, driverID, vehicleID int64, slotIDs []int64) (*models.Booking, error) {
	driver, err := s.drivers.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.Status == models.DriverStatusBanned {
		return nil, fmt.Errorf("driver %d is banned: %w", driverID, models.ErrForbidden)
	}

	vehicle, err := s.drivers.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.DriverID != driverID {
		return nil, fmt.Errorf("vehicle %d does not belong to driver %d: %w", vehicleID, driverID, models.ErrForbidden)
	}

	booking := &models.Booking{DriverID: driverID, VehicleID: vehicleID}
	if err := s.store.ReserveSlots(ctx, booking, slotIDs); err != nil {
		if errors.Is(err, models.ErrSlotConflict) {
			metrics.IncReservation("conflict")
		}
		return nil, err
	}
	metrics.IncReservation("success")

	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("driver_id", driverID),
		zap.Int("slots", len(slotIDs)),
		zap.Time("scheduled_start", booking.ScheduledStart),
		zap.Time("scheduled_end", booking.ScheduledEnd),
	)
	return booking, nil
}

// Confirm moves a PENDING booking to CONFIRMED and returns the signed QR payload.
func (s *BookingsService) Confirm(ctx context.Context, bookingID int64) (*models.Booking, string, error) {
	booking, err := s.store.ConfirmPending(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}

	payload, err := s.signer.Encode(booking.ID, booking.DriverID, booking.ScheduledStart, booking.ScheduledEnd)
	if err != nil {
		return nil, "", fmt.Errorf("bookings: sign confirmation: %w", err)
	}

	s.bus.Publish(events.TypeBookingConfirmed, booking)
	s.logger.Info("booking confirmed", zap.Int64("booking_id", booking.ID))
	return booking, payload, nil
}

// Cancel releases a PENDING or CONFIRMED booking that has no session yet.
// A driver actor must own the booking; staff pass actorDriverID = 0.
func (s *BookingsService) Cancel(ctx context.Context, bookingID, actorDriverID int64) error {
	if actorDriverID != 0 {
		booking, err := s.store.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.DriverID != actorDriverID {
			return models.ErrForbidden
		}
	}
	if err := s.store.CancelAndRelease(ctx, bookingID); err != nil {
		return err
	}
	s.logger.Info("booking cancelled", zap.Int64("booking_id", bookingID))
	return nil
}

// Get returns a booking by id.
func (s *BookingsService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.Get(ctx, id)
}

// ListByDriver returns the driver's bookings.
func (s *BookingsService) ListByDriver(ctx context.Context, driverID int64, limit int) ([]models.Booking, error) {
	return s.store.ListByDriver(ctx, driverID, limit)
}

// SweepNoShows auto-cancels CONFIRMED bookings whose scheduled start passed the
// grace threshold without a session, and records a no-show violation for each.
// Safe to run concurrently with session starts: the guarded cancel and the
// guarded session insert cannot both commit for one booking.
func (s *BookingsService) SweepNoShows(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.noShowGrace)
	candidates, err := s.store.ListNoShowCandidates(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, booking := range candidates {
		if err := s.store.CancelNoShow(ctx, booking.ID, cutoff); err != nil {
			if errors.Is(err, models.ErrInvalidState) {
				// A session start won the race; not a no-show anymore.
				continue
			}
			return cancelled, err
		}
		cancelled++
		metrics.IncNoShow()
		s.bus.Publish(events.TypeBookingNoShow, booking)

		description := fmt.Sprintf("no-show for booking %d scheduled at %s", booking.ID, booking.ScheduledStart.UTC().Format(time.RFC3339))
		result, err := s.violations.Record(ctx, booking.DriverID, description, s.noShowPenalty)
		if err != nil {
			s.logger.Error("failed to record no-show violation",
				zap.Int64("booking_id", booking.ID),
				zap.Int64("driver_id", booking.DriverID),
				zap.Error(err),
			)
			continue
		}
		if result.DriverBanned {
			s.logger.Info("driver auto-banned after no-show",
				zap.Int64("driver_id", booking.DriverID),
				zap.Int64("triplet_id", result.Triplet.ID),
			)
		}
	}
	if cancelled > 0 {
		s.logger.Info("no-show sweep finished", zap.Int("cancelled", cancelled))
	}
	return cancelled, nil
}
