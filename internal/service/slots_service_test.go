package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evreserve/internal/models"
)

type fakeSlotStore struct {
	configs        map[int64]*models.SlotConfig
	stations       map[int64]*models.Station
	templates      map[string]*models.SlotTemplate
	availabilities map[string]*models.SlotAvailability
	nextID         int64
}

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{
		configs:        make(map[int64]*models.SlotConfig),
		stations:       make(map[int64]*models.Station),
		templates:      make(map[string]*models.SlotTemplate),
		availabilities: make(map[string]*models.SlotAvailability),
	}
}

func (s *fakeSlotStore) GetConfig(ctx context.Context, id int64) (*models.SlotConfig, error) {
	cfg, ok := s.configs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cfg, nil
}

func (s *fakeSlotStore) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	station, ok := s.stations[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return station, nil
}

func (s *fakeSlotStore) UpsertTemplate(ctx context.Context, t *models.SlotTemplate) error {
	key := fmt.Sprintf("%d/%s/%d", t.ConfigID, t.SlotDate.Format("2006-01-02"), t.SlotIndex)
	if existing, ok := s.templates[key]; ok {
		t.ID = existing.ID
		return nil
	}
	s.nextID++
	t.ID = s.nextID
	clone := *t
	s.templates[key] = &clone
	return nil
}

func (s *fakeSlotStore) EnsureAvailability(ctx context.Context, a *models.SlotAvailability) (bool, error) {
	key := fmt.Sprintf("%d/%s", a.TemplateID, a.ConnectorType)
	if _, ok := s.availabilities[key]; ok {
		return false, nil
	}
	s.nextID++
	a.ID = s.nextID
	clone := *a
	s.availabilities[key] = &clone
	return true, nil
}

func (s *fakeSlotStore) ListOpen(ctx context.Context, stationID int64, date time.Time, connectorType string) ([]models.OpenSlot, error) {
	var out []models.OpenSlot
	for _, a := range s.availabilities {
		if a.ConnectorType == connectorType && a.SlotDate.Equal(date) && a.Status == models.SlotStatusAvailable {
			out = append(out, models.OpenSlot{SlotID: a.ID, ConnectorType: a.ConnectorType})
		}
	}
	return out, nil
}

func slotFixtures(store *fakeSlotStore) {
	store.stations[1] = &models.Station{
		ID:           1,
		Name:         "Central",
		OpenMinutes:  8 * 60,
		CloseMinutes: 10 * 60,
	}
	store.configs[10] = &models.SlotConfig{
		ID:              10,
		StationID:       1,
		SlotDurationMin: 30,
		ActiveFrom:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		ActiveExpire:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:        true,
	}
}

func TestGenerateBuildsSlotGrid(t *testing.T) {
	store := newFakeSlotStore()
	slotFixtures(store)
	svc := NewSlotsService(store, testLogger)

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	result, err := svc.Generate(context.Background(), 10, start, end, nil)
	require.NoError(t, err)

	// Two-hour window with 30-minute slots yields four templates per day,
	// each with one availability per connector type.
	assert.Equal(t, 4, result.Templates)
	assert.Equal(t, 8, result.NewAvailabilities)
	assert.Len(t, store.templates, 4)
	assert.Len(t, store.availabilities, 8)

	for _, tpl := range store.templates {
		assert.True(t, tpl.EndTime.Sub(tpl.StartTime) == 30*time.Minute)
		assert.False(t, tpl.StartTime.Before(start.Add(8*time.Hour)))
		assert.False(t, tpl.EndTime.After(start.Add(10*time.Hour)))
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	store := newFakeSlotStore()
	slotFixtures(store)
	svc := NewSlotsService(store, testLogger)

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	first, err := svc.Generate(context.Background(), 10, start, end, []string{models.ConnectorDC})
	require.NoError(t, err)
	assert.Equal(t, 8, first.Templates)
	assert.Equal(t, 8, first.NewAvailabilities)

	second, err := svc.Generate(context.Background(), 10, start, end, []string{models.ConnectorDC})
	require.NoError(t, err)
	assert.Equal(t, 8, second.Templates)
	assert.Equal(t, 0, second.NewAvailabilities)
	assert.Len(t, store.availabilities, 8)
}

func TestGenerateRejectsRangeOutsideConfigWindow(t *testing.T) {
	store := newFakeSlotStore()
	slotFixtures(store)
	svc := NewSlotsService(store, testLogger)

	start := time.Date(2027, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err := svc.Generate(context.Background(), 10, start, start.AddDate(0, 0, 1), nil)
	assert.ErrorIs(t, err, models.ErrConfigInactive)
}

func TestGenerateRejectsInactiveConfig(t *testing.T) {
	store := newFakeSlotStore()
	slotFixtures(store)
	store.configs[10].IsActive = false
	svc := NewSlotsService(store, testLogger)

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	_, err := svc.Generate(context.Background(), 10, start, start.AddDate(0, 0, 1), nil)
	assert.ErrorIs(t, err, models.ErrConfigInactive)
}

func TestGenerateRejectsEmptyRange(t *testing.T) {
	store := newFakeSlotStore()
	slotFixtures(store)
	svc := NewSlotsService(store, testLogger)

	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	_, err := svc.Generate(context.Background(), 10, day, day, nil)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestGenerateRejectsUnknownConnectorType(t *testing.T) {
	store := newFakeSlotStore()
	slotFixtures(store)
	svc := NewSlotsService(store, testLogger)

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	_, err := svc.Generate(context.Background(), 10, start, start.AddDate(0, 0, 1), []string{"CHADEMO-X"})
	assert.Error(t, err)
}
