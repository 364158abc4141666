package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"evreserve/internal/models"
	"evreserve/internal/service"
)

const (
	driverIDHeader = "X-Driver-ID"
	staffHeader    = "X-Staff"
)

type errorResponse struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Status:    status,
		Error:     code,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeDomainError maps sentinel errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, models.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, models.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, models.ErrSessionAlreadyStarted):
		writeError(w, http.StatusConflict, "session_already_started", err.Error())
	case errors.Is(err, models.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, models.ErrTripletFull):
		// Reaching a closed triplet through the fetch-or-create path is a
		// server-side invariant breach, not a client mistake.
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	case errors.Is(err, models.ErrConfigInactive):
		writeError(w, http.StatusUnprocessableEntity, "config_inactive", err.Error())
	case errors.Is(err, models.ErrAmountMismatch):
		writeError(w, http.StatusUnprocessableEntity, "amount_mismatch", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// actorFrom trusts the identity headers set by the fronting gateway.
func actorFrom(r *http.Request) service.Actor {
	actor := service.Actor{}
	if raw := r.Header.Get(driverIDHeader); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			actor.DriverID = id
		}
	}
	if raw := r.Header.Get(staffHeader); raw != "" {
		if staff, err := strconv.ParseBool(raw); err == nil {
			actor.Staff = staff
		}
	}
	return actor
}
