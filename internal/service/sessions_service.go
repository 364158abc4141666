package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"evreserve/internal/cache"
	"evreserve/internal/chargemodel"
	"evreserve/internal/events"
	"evreserve/internal/metrics"
	"evreserve/internal/models"
)

// Actor identifies who requests a session operation.
type Actor struct {
	DriverID int64
	Staff    bool
}

// SessionStore persists charging sessions.
type SessionStore interface {
	Start(ctx context.Context, bookingID int64, startTime time.Time, initialSoc float64) (*models.ChargingSession, error)
	Get(ctx context.Context, id int64) (*models.ChargingSession, error)
	Finalize(ctx context.Context, id int64, endTime time.Time, durationMin int, energyKWh, finalSoc, cost float64, status string) (bool, error)
}

// BookingCompleter is the slice of the booking store the session engine needs.
type BookingCompleter interface {
	Get(ctx context.Context, id int64) (*models.Booking, error)
	CompleteFromSession(ctx context.Context, id int64) error
}

// TariffProvider resolves the tariff used to price a session.
type TariffProvider interface {
	ActiveTariff(ctx context.Context) (*models.Tariff, error)
}

// InvoiceIssuer creates the invoice when a session completes.
type InvoiceIssuer interface {
	IssueForSession(ctx context.Context, session *models.ChargingSession) (*models.Invoice, error)
}

// SessionsService runs the charging session lifecycle and the status simulation.
type SessionsService struct {
	store             SessionStore
	bookings          BookingCompleter
	tariffs           TariffProvider
	billing           InvoiceIssuer
	model             chargemodel.Model
	activeStore       *cache.ActiveSessionStore
	bus               EventPublisher
	logger            *zap.Logger
	defaultInitialSoc float64
	now               func() time.Time
}

// NewSessionsService builds service.
func NewSessionsService(
	store SessionStore,
	bookings BookingCompleter,
	tariffs TariffProvider,
	billing InvoiceIssuer,
	model chargemodel.Model,
	activeStore *cache.ActiveSessionStore,
	bus EventPublisher,
	logger *zap.Logger,
	defaultInitialSoc float64,
) *SessionsService {
	if defaultInitialSoc <= 0 || defaultInitialSoc >= 100 {
		defaultInitialSoc = 20
	}
	return &SessionsService{
		store:             store,
		bookings:          bookings,
		tariffs:           tariffs,
		billing:           billing,
		model:             model,
		activeStore:       activeStore,
		bus:               bus,
		logger:            logger,
		defaultInitialSoc: defaultInitialSoc,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Start begins charging on a CONFIRMED booking. The guarded insert ensures
// exactly one winner among concurrent start attempts on the same booking.
func (s *SessionsService) Start(ctx context.Context, bookingID int64, actor Actor, initialSoc float64) (*models.ChargingSession, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.Staff && booking.DriverID != actor.DriverID {
		return nil, models.ErrForbidden
	}

	if initialSoc <= 0 || initialSoc >= 100 {
		initialSoc = s.defaultInitialSoc
	}

	session, err := s.store.Start(ctx, bookingID, s.now(), initialSoc)
	if err != nil {
		return nil, err
	}
	metrics.IncSessionStarted()

	if s.activeStore != nil {
		cacheErr := s.activeStore.Save(ctx, cache.ActiveSession{
			SessionID:     session.ID,
			BookingID:     booking.ID,
			DriverID:      booking.DriverID,
			ConnectorType: session.ConnectorType,
			StartedAt:     session.StartTime,
		})
		if cacheErr != nil {
			s.logger.Warn("failed to cache active session", zap.Error(cacheErr))
		}
	}

	s.logger.Info("charging session started",
		zap.Int64("session_id", session.ID),
		zap.Int64("booking_id", bookingID),
		zap.String("connector_type", session.ConnectorType),
		zap.Float64("initial_soc", initialSoc),
	)
	return session, nil
}

// Status returns the simulated live view of a session. Terminal sessions
// report their stored finals; in-progress ones derive SoC and energy from
// elapsed time through the charge model.
func (s *SessionsService) Status(ctx context.Context, sessionID int64) (*models.ChargingStatus, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Terminal() {
		soc := session.InitialSoc
		if session.FinalSoc != nil {
			soc = *session.FinalSoc
		}
		return &models.ChargingStatus{
			SessionID:      session.ID,
			Status:         session.Status,
			Soc:            soc,
			EnergyKWh:      session.EnergyKWh,
			ElapsedMinutes: session.DurationMin,
			AsOf:           s.now(),
		}, nil
	}

	now := s.now()
	elapsed := now.Sub(session.StartTime)
	return &models.ChargingStatus{
		SessionID:      session.ID,
		Status:         session.Status,
		Soc:            s.model.Soc(session.ConnectorType, session.InitialSoc, elapsed),
		EnergyKWh:      s.model.Energy(session.ConnectorType, session.InitialSoc, elapsed),
		ElapsedMinutes: int(elapsed.Minutes()),
		AsOf:           now,
	}, nil
}

// Stop ends a session, prices it against the active tariff, completes the
// booking and issues the invoice. Stopping an already-terminal session is a
// no-op returning the stored result, so duplicate client retries are harmless.
func (s *SessionsService) Stop(ctx context.Context, sessionID int64, actor Actor, finalSoc *float64) (*models.ChargingSession, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Terminal() {
		return session, nil
	}

	booking, err := s.bookings.Get(ctx, session.BookingID)
	if err != nil {
		return nil, err
	}
	if !actor.Staff && booking.DriverID != actor.DriverID {
		return nil, models.ErrForbidden
	}

	now := s.now()
	elapsed := now.Sub(session.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	durationMin := int(elapsed.Minutes())

	var soc, energy float64
	if finalSoc != nil {
		soc = *finalSoc
		if soc > 100 {
			soc = 100
		}
		if soc < session.InitialSoc {
			soc = session.InitialSoc
		}
		energy = s.model.EnergyForSoc(session.InitialSoc, soc)
	} else {
		soc = s.model.Soc(session.ConnectorType, session.InitialSoc, elapsed)
		energy = s.model.Energy(session.ConnectorType, session.InitialSoc, elapsed)
	}

	tariff, err := s.tariffs.ActiveTariff(ctx)
	if err != nil {
		return nil, err
	}
	cost := roundMoney(tariff.PricePerKWh*energy + tariff.PricePerMinute*float64(durationMin))

	updated, err := s.store.Finalize(ctx, session.ID, now, durationMin, energy, soc, cost, models.SessionStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost a stop race; return whatever the winner stored.
		return s.store.Get(ctx, session.ID)
	}
	metrics.IncSessionStopped()

	session.Status = models.SessionStatusCompleted
	session.EndTime = &now
	session.DurationMin = durationMin
	session.EnergyKWh = energy
	session.FinalSoc = &soc
	session.Cost = cost

	if err := s.bookings.CompleteFromSession(ctx, booking.ID); err != nil && !errors.Is(err, models.ErrInvalidState) {
		s.logger.Warn("failed to complete booking from session",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err),
		)
	}

	invoice, err := s.billing.IssueForSession(ctx, session)
	if err != nil {
		s.logger.Error("failed to issue invoice for completed session",
			zap.Int64("session_id", session.ID),
			zap.Error(err),
		)
	} else {
		s.logger.Info("charging session stopped",
			zap.Int64("session_id", session.ID),
			zap.Float64("energy_kwh", energy),
			zap.Int("duration_min", durationMin),
			zap.Float64("cost", cost),
			zap.Int64("invoice_id", invoice.ID),
		)
	}

	if s.activeStore != nil {
		if err := s.activeStore.Delete(ctx, session.ID); err != nil {
			s.logger.Warn("failed to evict active session cache", zap.Error(err))
		}
	}

	s.bus.Publish(events.TypeSessionStopped, session)
	return session, nil
}

// Get returns a session by id.
func (s *SessionsService) Get(ctx context.Context, id int64) (*models.ChargingSession, error) {
	return s.store.Get(ctx, id)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
