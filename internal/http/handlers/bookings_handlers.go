package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"evreserve/internal/service"
)

// BookingsHandler exposes the reservation lifecycle.
type BookingsHandler struct {
	svc    *service.BookingsService
	logger *zap.Logger
}

// NewBookingsHandler builds handler set.
func NewBookingsHandler(svc *service.BookingsService, logger *zap.Logger) *BookingsHandler {
	return &BookingsHandler{svc: svc, logger: logger}
}

type createBookingRequest struct {
	DriverID  int64   `json:"driver_id"`
	VehicleID int64   `json:"vehicle_id"`
	SlotIDs   []int64 `json:"slot_ids"`
}

// HandleCreate handles POST /v1/bookings.
func (h *BookingsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if req.DriverID <= 0 || req.VehicleID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "driver_id and vehicle_id are required")
		return
	}
	if len(req.SlotIDs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "slot_ids must not be empty")
		return
	}

	booking, err := h.svc.Reserve(r.Context(), req.DriverID, req.VehicleID, req.SlotIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// HandleGet handles GET /v1/bookings/{id}.
func (h *BookingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid booking id")
		return
	}
	booking, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// HandleConfirm handles POST /v1/bookings/{id}/confirm.
func (h *BookingsHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid booking id")
		return
	}

	booking, qrPayload, err := h.svc.Confirm(r.Context(), id)
	if err != nil {
		h.logger.Error("booking confirmation failed", zap.Int64("booking_id", id), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"booking": booking,
		"qr_code": qrPayload,
	})
}

// HandleCancel handles POST /v1/bookings/{id}/cancel.
func (h *BookingsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid booking id")
		return
	}

	actor := actorFrom(r)
	actorDriverID := actor.DriverID
	if actor.Staff {
		actorDriverID = 0
	}
	if err := h.svc.Cancel(r.Context(), id, actorDriverID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// HandleListByDriver handles GET /v1/drivers/{id}/bookings.
func (h *BookingsHandler) HandleListByDriver(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid driver id")
		return
	}
	bookings, err := h.svc.ListByDriver(r.Context(), driverID, 50)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}
