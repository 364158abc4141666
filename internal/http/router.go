package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	SlotsGenerate      http.HandlerFunc
	SlotsList          http.HandlerFunc
	BookingCreate      http.HandlerFunc
	BookingGet         http.HandlerFunc
	BookingConfirm     http.HandlerFunc
	BookingCancel      http.HandlerFunc
	BookingsByDriver   http.HandlerFunc
	SessionStart       http.HandlerFunc
	SessionGet         http.HandlerFunc
	SessionLive        http.HandlerFunc
	SessionStop        http.HandlerFunc
	InvoiceGet         http.HandlerFunc
	InvoicePay         http.HandlerFunc
	InvoicesUnpaid     http.HandlerFunc
	ViolationCreate    http.HandlerFunc
	ViolationsByDriver http.HandlerFunc
	TripletPaid        http.HandlerFunc
	TripletCancel      http.HandlerFunc
	Health             http.HandlerFunc
	Metrics            http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	register(mux, "POST /v1/slot-configs/{id}/generate", routes.SlotsGenerate)
	register(mux, "GET /v1/stations/{id}/slots", routes.SlotsList)
	register(mux, "POST /v1/bookings", routes.BookingCreate)
	register(mux, "GET /v1/bookings/{id}", routes.BookingGet)
	register(mux, "POST /v1/bookings/{id}/confirm", routes.BookingConfirm)
	register(mux, "POST /v1/bookings/{id}/cancel", routes.BookingCancel)
	register(mux, "GET /v1/drivers/{id}/bookings", routes.BookingsByDriver)
	register(mux, "POST /v1/sessions/start", routes.SessionStart)
	register(mux, "GET /v1/sessions/{id}", routes.SessionGet)
	register(mux, "GET /v1/sessions/{id}/live", routes.SessionLive)
	register(mux, "POST /v1/sessions/{id}/stop", routes.SessionStop)
	register(mux, "GET /v1/invoices/{id}", routes.InvoiceGet)
	register(mux, "POST /v1/invoices/{id}/pay", routes.InvoicePay)
	register(mux, "GET /v1/invoices/unpaid", routes.InvoicesUnpaid)
	register(mux, "POST /v1/violations", routes.ViolationCreate)
	register(mux, "GET /v1/drivers/{id}/violations", routes.ViolationsByDriver)
	register(mux, "POST /v1/violation-triplets/{id}/pay", routes.TripletPaid)
	register(mux, "POST /v1/violation-triplets/{id}/cancel", routes.TripletCancel)
	register(mux, "GET /healthz", routes.Health)
	if routes.Metrics != nil {
		mux.Handle("GET /metrics", routes.Metrics)
	}
	return mux
}

func register(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	if handler != nil {
		mux.Handle(pattern, handler)
	}
}
