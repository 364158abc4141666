package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evreserve/internal/models"
	"evreserve/internal/service"
)

func TestWriteDomainErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", models.ErrNotFound, http.StatusNotFound, "not_found"},
		{"forbidden", models.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"slot conflict", models.ErrSlotConflict, http.StatusConflict, "slot_conflict"},
		{"session already started", models.ErrSessionAlreadyStarted, http.StatusConflict, "session_already_started"},
		{"invalid state", models.ErrInvalidState, http.StatusConflict, "invalid_state"},
		{"config inactive", models.ErrConfigInactive, http.StatusUnprocessableEntity, "config_inactive"},
		{"amount mismatch", models.ErrAmountMismatch, http.StatusUnprocessableEntity, "amount_mismatch"},
		{"triplet breach is a server fault", models.ErrTripletFull, http.StatusInternalServerError, "internal"},
		{"wrapped sentinel", fmt.Errorf("wrapped: %w", models.ErrSlotConflict), http.StatusConflict, "slot_conflict"},
		{"unknown error", fmt.Errorf("database exploded"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantCode, body.Error)
			assert.NotEmpty(t, body.Timestamp)
		})
	}
}

func TestActorFromHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(driverIDHeader, "17")
	r.Header.Set(staffHeader, "true")

	actor := actorFrom(r)
	assert.Equal(t, int64(17), actor.DriverID)
	assert.True(t, actor.Staff)

	empty := actorFrom(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, int64(0), empty.DriverID)
	assert.False(t, empty.Staff)
}

type stubSlotStore struct {
	config  *models.SlotConfig
	station *models.Station
}

func (s *stubSlotStore) GetConfig(ctx context.Context, id int64) (*models.SlotConfig, error) {
	if s.config == nil || s.config.ID != id {
		return nil, models.ErrNotFound
	}
	return s.config, nil
}

func (s *stubSlotStore) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	if s.station == nil || s.station.ID != id {
		return nil, models.ErrNotFound
	}
	return s.station, nil
}

func (s *stubSlotStore) UpsertTemplate(ctx context.Context, tpl *models.SlotTemplate) error {
	tpl.ID = int64(tpl.SlotIndex + 1)
	return nil
}

func (s *stubSlotStore) EnsureAvailability(ctx context.Context, a *models.SlotAvailability) (bool, error) {
	return true, nil
}

func (s *stubSlotStore) ListOpen(ctx context.Context, stationID int64, date time.Time, connectorType string) ([]models.OpenSlot, error) {
	return []models.OpenSlot{{SlotID: 1, ConnectorType: connectorType}}, nil
}

func newSlotsTestHandler() *SlotsHandler {
	store := &stubSlotStore{
		config: &models.SlotConfig{
			ID:              10,
			StationID:       1,
			SlotDurationMin: 30,
			ActiveFrom:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			ActiveExpire:    time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			IsActive:        true,
		},
		station: &models.Station{ID: 1, OpenMinutes: 8 * 60, CloseMinutes: 10 * 60},
	}
	return NewSlotsHandler(service.NewSlotsService(store, zap.NewNop()), zap.NewNop())
}

func TestHandleGenerate(t *testing.T) {
	handler := newSlotsTestHandler()

	body := `{"start_date":"2026-09-07","end_date":"2026-09-08"}`
	r := httptest.NewRequest(http.MethodPost, "/v1/slot-configs/10/generate", strings.NewReader(body))
	r.SetPathValue("id", "10")
	rec := httptest.NewRecorder()

	handler.HandleGenerate(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var result service.GenerateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 4, result.Templates)
	assert.Equal(t, 8, result.NewAvailabilities)
}

func TestHandleGenerateRejectsBadDates(t *testing.T) {
	handler := newSlotsTestHandler()

	body := `{"start_date":"07.09.2026","end_date":"2026-09-08"}`
	r := httptest.NewRequest(http.MethodPost, "/v1/slot-configs/10/generate", strings.NewReader(body))
	r.SetPathValue("id", "10")
	rec := httptest.NewRecorder()

	handler.HandleGenerate(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGenerateUnknownConfig(t *testing.T) {
	handler := newSlotsTestHandler()

	body := `{"start_date":"2026-09-07","end_date":"2026-09-08"}`
	r := httptest.NewRequest(http.MethodPost, "/v1/slot-configs/99/generate", strings.NewReader(body))
	r.SetPathValue("id", "99")
	rec := httptest.NewRecorder()

	handler.HandleGenerate(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListRequiresConnectorType(t *testing.T) {
	handler := newSlotsTestHandler()

	r := httptest.NewRequest(http.MethodGet, "/v1/stations/1/slots?date=2026-09-07", nil)
	r.SetPathValue("id", "1")
	rec := httptest.NewRecorder()

	handler.HandleList(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleList(t *testing.T) {
	handler := newSlotsTestHandler()

	r := httptest.NewRequest(http.MethodGet, "/v1/stations/1/slots?date=2026-09-07&connector_type=DC", nil)
	r.SetPathValue("id", "1")
	rec := httptest.NewRecorder()

	handler.HandleList(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Slots []models.OpenSlot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Slots, 1)
	assert.Equal(t, "DC", body.Slots[0].ConnectorType)
}
