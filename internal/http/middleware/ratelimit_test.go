package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rateLimitedOK(perSecond float64, burst int) http.Handler {
	return RateLimit(perSecond, burst)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(handler http.Handler, method, driverID string) int {
	r := httptest.NewRequest(method, "/v1/bookings", nil)
	r.RemoteAddr = "203.0.113.10:51234"
	if driverID != "" {
		r.Header.Set(rateLimitDriverHeader, driverID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec.Code
}

func TestRateLimitThrottlesClientPastBurst(t *testing.T) {
	handler := rateLimitedOK(1, 2)

	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "1"))
	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, http.MethodPost, "1"))
}

func TestRateLimitKeysPerClient(t *testing.T) {
	handler := rateLimitedOK(1, 1)

	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, http.MethodPost, "1"))

	// A different driver has its own budget.
	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, "2"))
}

func TestRateLimitSkipsReads(t *testing.T) {
	handler := rateLimitedOK(1, 1)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodGet, "1"))
	}
}

func TestRateLimitFallsBackToRemoteAddr(t *testing.T) {
	handler := rateLimitedOK(1, 1)

	assert.Equal(t, http.StatusOK, doRequest(handler, http.MethodPost, ""))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, http.MethodPost, ""))
}
