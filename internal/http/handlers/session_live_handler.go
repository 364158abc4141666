package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"evreserve/internal/models"
	"evreserve/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SessionLiveHandler streams the simulated charging status over a websocket.
type SessionLiveHandler struct {
	svc      *service.SessionsService
	interval time.Duration
	logger   *zap.Logger
}

// NewSessionLiveHandler builds handler.
func NewSessionLiveHandler(svc *service.SessionsService, interval time.Duration, logger *zap.Logger) *SessionLiveHandler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &SessionLiveHandler{svc: svc, interval: interval, logger: logger}
}

// Handle handles GET /v1/sessions/{id}/live. The stream pushes one status
// frame per tick and closes after the session reaches a terminal state.
func (h *SessionLiveHandler) Handle(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid session id")
		return
	}
	if _, err := h.svc.Get(r.Context(), sessionID); err != nil {
		writeDomainError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		status, err := h.svc.Status(r.Context(), sessionID)
		if err != nil {
			h.logger.Warn("live status fetch failed", zap.Int64("session_id", sessionID), zap.Error(err))
			return
		}
		if err := conn.WriteJSON(status); err != nil {
			return
		}
		if status.Status != models.SessionStatusInProgress {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finished"))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
