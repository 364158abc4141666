package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports backend liveness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler returns GET /healthz handler.
func NewHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
