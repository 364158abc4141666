package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"evreserve/internal/service"
)

const dateLayout = "2006-01-02"

// SlotsHandler exposes slot generation and listing.
type SlotsHandler struct {
	svc    *service.SlotsService
	logger *zap.Logger
}

// NewSlotsHandler builds handler set.
func NewSlotsHandler(svc *service.SlotsService, logger *zap.Logger) *SlotsHandler {
	return &SlotsHandler{svc: svc, logger: logger}
}

type generateRequest struct {
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	ConnectorTypes []string `json:"connector_types,omitempty"`
}

// HandleGenerate handles POST /v1/slot-configs/{id}/generate.
func (h *SlotsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	configID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid config id")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "start_date must be YYYY-MM-DD")
		return
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "end_date must be YYYY-MM-DD")
		return
	}

	result, err := h.svc.Generate(r.Context(), configID, startDate, endDate, req.ConnectorTypes)
	if err != nil {
		h.logger.Error("slot generation failed", zap.Int64("config_id", configID), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleList handles GET /v1/stations/{id}/slots?date=...&connector_type=...
func (h *SlotsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid station id")
		return
	}

	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "date must be YYYY-MM-DD")
		return
	}
	connectorType := r.URL.Query().Get("connector_type")
	if connectorType == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "connector_type is required")
		return
	}

	slots, err := h.svc.ListOpen(r.Context(), stationID, date, connectorType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}
