package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"evreserve/internal/service"
)

// ViolationsHandler exposes violation recording and triplet administration.
type ViolationsHandler struct {
	svc    *service.ViolationsService
	logger *zap.Logger
}

// NewViolationsHandler builds handler set.
func NewViolationsHandler(svc *service.ViolationsService, logger *zap.Logger) *ViolationsHandler {
	return &ViolationsHandler{svc: svc, logger: logger}
}

type createViolationRequest struct {
	DriverID    int64   `json:"driver_id"`
	Description string  `json:"description"`
	Penalty     float64 `json:"penalty"`
}

// HandleCreate handles POST /v1/violations.
func (h *ViolationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createViolationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if req.DriverID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "driver_id is required")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "description is required")
		return
	}
	if req.Penalty < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "penalty must be non-negative")
		return
	}

	result, err := h.svc.Record(r.Context(), req.DriverID, req.Description, req.Penalty)
	if err != nil {
		h.logger.Error("violation recording failed", zap.Int64("driver_id", req.DriverID), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleListByDriver handles GET /v1/drivers/{id}/violations.
func (h *ViolationsHandler) HandleListByDriver(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid driver id")
		return
	}

	violations, triplets, err := h.svc.ListByDriver(r.Context(), driverID, 100)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"violations": violations,
		"triplets":   triplets,
	})
}

// HandleTripletPaid handles POST /v1/violation-triplets/{id}/pay.
func (h *ViolationsHandler) HandleTripletPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid triplet id")
		return
	}
	triplet, err := h.svc.MarkTripletPaid(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, triplet)
}

// HandleTripletCancel handles POST /v1/violation-triplets/{id}/cancel.
func (h *ViolationsHandler) HandleTripletCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid triplet id")
		return
	}
	triplet, err := h.svc.MarkTripletCanceled(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, triplet)
}
