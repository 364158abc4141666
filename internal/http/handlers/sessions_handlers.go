package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"evreserve/internal/service"
)

// SessionsHandler exposes the charging session lifecycle.
type SessionsHandler struct {
	svc    *service.SessionsService
	logger *zap.Logger
}

// NewSessionsHandler builds handler set.
func NewSessionsHandler(svc *service.SessionsService, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{svc: svc, logger: logger}
}

type startSessionRequest struct {
	BookingID  int64   `json:"booking_id"`
	InitialSoc float64 `json:"initial_soc,omitempty"`
}

type stopSessionRequest struct {
	FinalSoc *float64 `json:"final_soc,omitempty"`
}

// HandleStart handles POST /v1/sessions/start.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if req.BookingID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "booking_id is required")
		return
	}

	session, err := h.svc.Start(r.Context(), req.BookingID, actorFrom(r), req.InitialSoc)
	if err != nil {
		h.logger.Error("session start failed", zap.Int64("booking_id", req.BookingID), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// HandleGet handles GET /v1/sessions/{id}. The payload carries the stored
// session plus the simulated live status.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid session id")
		return
	}

	session, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status, err := h.svc.Status(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"live":    status,
	})
}

// HandleStop handles POST /v1/sessions/{id}/stop.
func (h *SessionsHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid session id")
		return
	}

	var req stopSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
			return
		}
	}

	session, err := h.svc.Stop(r.Context(), id, actorFrom(r), req.FinalSoc)
	if err != nil {
		h.logger.Error("session stop failed", zap.Int64("session_id", id), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
