package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evreserve/internal/chargemodel"
	"evreserve/internal/events"
	"evreserve/internal/models"
)

type fakeSessionStore struct {
	sessions map[int64]*models.ChargingSession
	nextID   int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[int64]*models.ChargingSession)}
}

func (s *fakeSessionStore) Start(ctx context.Context, bookingID int64, startTime time.Time, initialSoc float64) (*models.ChargingSession, error) {
	for _, existing := range s.sessions {
		if existing.BookingID == bookingID {
			return nil, models.ErrSessionAlreadyStarted
		}
	}
	s.nextID++
	session := &models.ChargingSession{
		ID:            s.nextID,
		BookingID:     bookingID,
		ConnectorType: models.ConnectorDC,
		Status:        models.SessionStatusInProgress,
		StartTime:     startTime,
		InitialSoc:    initialSoc,
	}
	clone := *session
	s.sessions[session.ID] = &clone
	return session, nil
}

func (s *fakeSessionStore) Get(ctx context.Context, id int64) (*models.ChargingSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (s *fakeSessionStore) Finalize(ctx context.Context, id int64, endTime time.Time, durationMin int, energyKWh, finalSoc, cost float64, status string) (bool, error) {
	session, ok := s.sessions[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if session.Status != models.SessionStatusInProgress {
		return false, nil
	}
	session.Status = status
	session.EndTime = &endTime
	session.DurationMin = durationMin
	session.EnergyKWh = energyKWh
	session.FinalSoc = &finalSoc
	session.Cost = cost
	return true, nil
}

type fakeTariffProvider struct {
	tariff models.Tariff
}

func (p *fakeTariffProvider) ActiveTariff(ctx context.Context) (*models.Tariff, error) {
	clone := p.tariff
	return &clone, nil
}

type fakeInvoiceIssuer struct {
	issued []int64
}

func (i *fakeInvoiceIssuer) IssueForSession(ctx context.Context, session *models.ChargingSession) (*models.Invoice, error) {
	i.issued = append(i.issued, session.ID)
	return &models.Invoice{
		ID:        int64(len(i.issued)),
		SessionID: session.ID,
		Amount:    session.Cost,
		Status:    models.InvoiceStatusUnpaid,
	}, nil
}

type sessionsFixture struct {
	svc      *SessionsService
	store    *fakeSessionStore
	bookings *fakeBookingStore
	issuer   *fakeInvoiceIssuer
	bus      *fakeBus
	start    time.Time
}

func newSessionsFixture(t *testing.T) *sessionsFixture {
	t.Helper()

	bookings := newFakeBookingStore()
	booking := &models.Booking{DriverID: 1, VehicleID: 5}
	require.NoError(t, bookings.ReserveSlots(context.Background(), booking, []int64{11}))
	bookings.bookings[booking.ID].Status = models.BookingStatusConfirmed

	store := newFakeSessionStore()
	issuer := &fakeInvoiceIssuer{}
	bus := &fakeBus{}
	tariffs := &fakeTariffProvider{tariff: models.Tariff{PricePerKWh: 3000, PricePerMinute: 0, Currency: "VND"}}
	model := chargemodel.NewLinear(25, 10, 0.5)

	svc := NewSessionsService(store, bookings, tariffs, issuer, model, nil, bus, testLogger, 20)

	start := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
	svc.now = fixedNow(start)

	return &sessionsFixture{svc: svc, store: store, bookings: bookings, issuer: issuer, bus: bus, start: start}
}

func TestStartSessionEnforcesOwnership(t *testing.T) {
	f := newSessionsFixture(t)

	_, err := f.svc.Start(context.Background(), 1, Actor{DriverID: 42}, 0)
	assert.ErrorIs(t, err, models.ErrForbidden)

	session, err := f.svc.Start(context.Background(), 1, Actor{DriverID: 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusInProgress, session.Status)
	assert.Equal(t, 20.0, session.InitialSoc)
}

func TestStartSessionTwiceFails(t *testing.T) {
	f := newSessionsFixture(t)

	_, err := f.svc.Start(context.Background(), 1, Actor{Staff: true}, 30)
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), 1, Actor{Staff: true}, 30)
	assert.ErrorIs(t, err, models.ErrSessionAlreadyStarted)
}

func TestStatusSimulatesCharge(t *testing.T) {
	f := newSessionsFixture(t)

	session, err := f.svc.Start(context.Background(), 1, Actor{DriverID: 1}, 20)
	require.NoError(t, err)

	// One hour of DC charging at 25 %/h.
	f.svc.now = fixedNow(f.start.Add(time.Hour))
	status, err := f.svc.Status(context.Background(), session.ID)
	require.NoError(t, err)
	assert.InDelta(t, 45.0, status.Soc, 0.001)
	assert.InDelta(t, 12.5, status.EnergyKWh, 0.001)
	assert.Equal(t, 60, status.ElapsedMinutes)
}

func TestStopPricesSessionAndIssuesInvoice(t *testing.T) {
	f := newSessionsFixture(t)

	session, err := f.svc.Start(context.Background(), 1, Actor{DriverID: 1}, 20)
	require.NoError(t, err)

	f.svc.now = fixedNow(f.start.Add(48 * time.Minute))
	finalSoc := 40.0
	stopped, err := f.svc.Stop(context.Background(), session.ID, Actor{DriverID: 1}, &finalSoc)
	require.NoError(t, err)

	// 20 percentage points at 0.5 kWh each is 10 kWh; 10 kWh at 3000 = 30000.
	assert.Equal(t, models.SessionStatusCompleted, stopped.Status)
	assert.InDelta(t, 10.0, stopped.EnergyKWh, 0.001)
	assert.InDelta(t, 30000.0, stopped.Cost, 0.001)
	assert.Equal(t, 48, stopped.DurationMin)

	require.Len(t, f.issuer.issued, 1)
	assert.Contains(t, f.bus.published(), events.TypeSessionStopped)

	booking, err := f.bookings.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, booking.Status)
}

func TestStopIsIdempotent(t *testing.T) {
	f := newSessionsFixture(t)

	session, err := f.svc.Start(context.Background(), 1, Actor{DriverID: 1}, 20)
	require.NoError(t, err)

	f.svc.now = fixedNow(f.start.Add(30 * time.Minute))
	first, err := f.svc.Stop(context.Background(), session.ID, Actor{DriverID: 1}, nil)
	require.NoError(t, err)

	second, err := f.svc.Stop(context.Background(), session.ID, Actor{DriverID: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Cost, second.Cost)
	assert.Equal(t, first.EnergyKWh, second.EnergyKWh)
	assert.Len(t, f.issuer.issued, 1)
}

func TestStopEnforcesOwnership(t *testing.T) {
	f := newSessionsFixture(t)

	session, err := f.svc.Start(context.Background(), 1, Actor{DriverID: 1}, 20)
	require.NoError(t, err)

	_, err = f.svc.Stop(context.Background(), session.ID, Actor{DriverID: 42}, nil)
	assert.ErrorIs(t, err, models.ErrForbidden)

	// Staff may stop any session.
	_, err = f.svc.Stop(context.Background(), session.ID, Actor{Staff: true}, nil)
	require.NoError(t, err)
}

func TestStopClampsFinalSocBelowInitial(t *testing.T) {
	f := newSessionsFixture(t)

	session, err := f.svc.Start(context.Background(), 1, Actor{DriverID: 1}, 50)
	require.NoError(t, err)

	f.svc.now = fixedNow(f.start.Add(5 * time.Minute))
	finalSoc := 30.0
	stopped, err := f.svc.Stop(context.Background(), session.ID, Actor{DriverID: 1}, &finalSoc)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stopped.EnergyKWh)
	require.NotNil(t, stopped.FinalSoc)
	assert.Equal(t, 50.0, *stopped.FinalSoc)
}
