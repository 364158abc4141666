package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evreserve/internal/events"
	"evreserve/internal/models"
)

type fakeDriverStore struct {
	drivers  map[int64]*models.Driver
	vehicles map[int64]*models.Vehicle
	banned   []int64
}

func newFakeDriverStore() *fakeDriverStore {
	return &fakeDriverStore{
		drivers:  make(map[int64]*models.Driver),
		vehicles: make(map[int64]*models.Vehicle),
	}
}

func (s *fakeDriverStore) GetDriver(ctx context.Context, id int64) (*models.Driver, error) {
	d, ok := s.drivers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return d, nil
}

func (s *fakeDriverStore) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return v, nil
}

func (s *fakeDriverStore) Ban(ctx context.Context, driverID int64) error {
	s.banned = append(s.banned, driverID)
	if d, ok := s.drivers[driverID]; ok {
		d.Status = models.DriverStatusBanned
	}
	return nil
}

type fakeBookingStore struct {
	bookings     map[int64]*models.Booking
	nextID       int64
	reserveErr   error
	cancelNoShow map[int64]error
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{
		bookings:     make(map[int64]*models.Booking),
		cancelNoShow: make(map[int64]error),
	}
}

func (s *fakeBookingStore) ReserveSlots(ctx context.Context, booking *models.Booking, slotIDs []int64) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.nextID++
	booking.ID = s.nextID
	booking.Status = models.BookingStatusPending
	booking.ScheduledStart = time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
	booking.ScheduledEnd = booking.ScheduledStart.Add(time.Duration(len(slotIDs)) * 30 * time.Minute)
	clone := *booking
	s.bookings[booking.ID] = &clone
	return nil
}

func (s *fakeBookingStore) Get(ctx context.Context, id int64) (*models.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (s *fakeBookingStore) ListByDriver(ctx context.Context, driverID int64, limit int) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.bookings {
		if b.DriverID == driverID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeBookingStore) ConfirmPending(ctx context.Context, id int64) (*models.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if b.Status != models.BookingStatusPending {
		return nil, models.ErrInvalidState
	}
	b.Status = models.BookingStatusConfirmed
	clone := *b
	return &clone, nil
}

func (s *fakeBookingStore) CancelAndRelease(ctx context.Context, id int64) error {
	b, ok := s.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	if b.Status != models.BookingStatusPending && b.Status != models.BookingStatusConfirmed {
		return models.ErrInvalidState
	}
	b.Status = models.BookingStatusCancelled
	return nil
}

func (s *fakeBookingStore) CancelNoShow(ctx context.Context, id int64, cutoff time.Time) error {
	if err, ok := s.cancelNoShow[id]; ok {
		return err
	}
	return s.CancelAndRelease(ctx, id)
}

func (s *fakeBookingStore) CompleteFromSession(ctx context.Context, id int64) error {
	b, ok := s.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	if b.Status != models.BookingStatusConfirmed {
		return models.ErrInvalidState
	}
	b.Status = models.BookingStatusCompleted
	return nil
}

func (s *fakeBookingStore) ListNoShowCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.bookings {
		if b.Status == models.BookingStatusConfirmed && b.ScheduledStart.Before(cutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakeViolationRecorder struct {
	records []string
	result  *RecordResult
}

func (r *fakeViolationRecorder) Record(ctx context.Context, driverID int64, description string, penalty float64) (*RecordResult, error) {
	r.records = append(r.records, description)
	if r.result != nil {
		return r.result, nil
	}
	return &RecordResult{
		Violation: &models.DriverViolation{DriverID: driverID, Penalty: penalty},
		Triplet:   &models.ViolationTriplet{DriverID: driverID, CountInGroup: 1, Status: models.TripletStatusOpen},
	}, nil
}

func newBookingsFixture() (*BookingsService, *fakeBookingStore, *fakeDriverStore, *fakeViolationRecorder, *fakeBus) {
	store := newFakeBookingStore()
	drivers := newFakeDriverStore()
	drivers.drivers[1] = &models.Driver{ID: 1, Status: models.DriverStatusActive}
	drivers.vehicles[5] = &models.Vehicle{ID: 5, DriverID: 1, ConnectorType: models.ConnectorDC}
	recorder := &fakeViolationRecorder{}
	bus := &fakeBus{}
	svc := NewBookingsService(store, drivers, staticSigner{}, recorder, bus, testLogger, 15*time.Minute, 500)
	return svc, store, drivers, recorder, bus
}

func TestReserveCreatesPendingBooking(t *testing.T) {
	svc, _, _, _, _ := newBookingsFixture()

	booking, err := svc.Reserve(context.Background(), 1, 5, []int64{11, 12})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, int64(1), booking.DriverID)
	assert.Equal(t, int64(5), booking.VehicleID)
}

func TestReserveRejectsBannedDriver(t *testing.T) {
	svc, _, drivers, _, _ := newBookingsFixture()
	drivers.drivers[1].Status = models.DriverStatusBanned

	_, err := svc.Reserve(context.Background(), 1, 5, []int64{11})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestReserveRejectsForeignVehicle(t *testing.T) {
	svc, _, drivers, _, _ := newBookingsFixture()
	drivers.vehicles[5].DriverID = 99

	_, err := svc.Reserve(context.Background(), 1, 5, []int64{11})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestReservePropagatesSlotConflict(t *testing.T) {
	svc, store, _, _, _ := newBookingsFixture()
	store.reserveErr = models.ErrSlotConflict

	_, err := svc.Reserve(context.Background(), 1, 5, []int64{11})
	assert.ErrorIs(t, err, models.ErrSlotConflict)
}

func TestConfirmReturnsQRPayload(t *testing.T) {
	svc, _, _, _, bus := newBookingsFixture()

	booking, err := svc.Reserve(context.Background(), 1, 5, []int64{11})
	require.NoError(t, err)

	confirmed, payload, err := svc.Confirm(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
	assert.Equal(t, "qr-1-1", payload)
	assert.Contains(t, bus.published(), events.TypeBookingConfirmed)
}

func TestConfirmTwiceFails(t *testing.T) {
	svc, _, _, _, _ := newBookingsFixture()

	booking, err := svc.Reserve(context.Background(), 1, 5, []int64{11})
	require.NoError(t, err)

	_, _, err = svc.Confirm(context.Background(), booking.ID)
	require.NoError(t, err)

	_, _, err = svc.Confirm(context.Background(), booking.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestCancelEnforcesOwnership(t *testing.T) {
	svc, _, _, _, _ := newBookingsFixture()

	booking, err := svc.Reserve(context.Background(), 1, 5, []int64{11})
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), booking.ID, 42)
	assert.ErrorIs(t, err, models.ErrForbidden)

	// Staff (actor id 0) may cancel anyone's booking.
	require.NoError(t, svc.Cancel(context.Background(), booking.ID, 0))
}

func TestSweepNoShowsCancelsAndRecordsViolation(t *testing.T) {
	svc, store, _, recorder, bus := newBookingsFixture()

	booking, err := svc.Reserve(context.Background(), 1, 5, []int64{11})
	require.NoError(t, err)
	_, _, err = svc.Confirm(context.Background(), booking.ID)
	require.NoError(t, err)

	now := booking.ScheduledStart.Add(time.Hour)
	cancelled, err := svc.SweepNoShows(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	stored, err := store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, stored.Status)
	require.Len(t, recorder.records, 1)
	assert.Contains(t, recorder.records[0], "no-show")
	assert.Contains(t, bus.published(), events.TypeBookingNoShow)
}

func TestSweepNoShowsSkipsWithinGrace(t *testing.T) {
	svc, _, _, recorder, _ := newBookingsFixture()

	booking, err := svc.Reserve(context.Background(), 1, 5, []int64{11})
	require.NoError(t, err)
	_, _, err = svc.Confirm(context.Background(), booking.ID)
	require.NoError(t, err)

	now := booking.ScheduledStart.Add(10 * time.Minute)
	cancelled, err := svc.SweepNoShows(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, cancelled)
	assert.Empty(t, recorder.records)
}

func TestSweepNoShowsSkipsLostRace(t *testing.T) {
	svc, store, _, recorder, _ := newBookingsFixture()

	booking, err := svc.Reserve(context.Background(), 1, 5, []int64{11})
	require.NoError(t, err)
	_, _, err = svc.Confirm(context.Background(), booking.ID)
	require.NoError(t, err)

	// Simulate a session start winning the race against the sweeper.
	store.cancelNoShow[booking.ID] = models.ErrInvalidState

	cancelled, err := svc.SweepNoShows(context.Background(), booking.ScheduledStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, cancelled)
	assert.Empty(t, recorder.records)
}
