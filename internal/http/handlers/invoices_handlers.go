package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"evreserve/internal/service"
)

// InvoicesHandler exposes invoice lookup and payment confirmation.
type InvoicesHandler struct {
	svc    *service.BillingService
	logger *zap.Logger
}

// NewInvoicesHandler builds handler set.
func NewInvoicesHandler(svc *service.BillingService, logger *zap.Logger) *InvoicesHandler {
	return &InvoicesHandler{svc: svc, logger: logger}
}

type payInvoiceRequest struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

// HandleGet handles GET /v1/invoices/{id}.
func (h *InvoicesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid invoice id")
		return
	}
	invoice, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

// HandlePay handles POST /v1/invoices/{id}/pay.
func (h *InvoicesHandler) HandlePay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid invoice id")
		return
	}

	var req payInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "method is required")
		return
	}

	transaction, err := h.svc.ConfirmPayment(r.Context(), id, req.Method, req.Amount)
	if err != nil {
		h.logger.Error("payment confirmation failed", zap.Int64("invoice_id", id), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transaction)
}

// HandleListUnpaid handles GET /v1/invoices/unpaid?older_than_hours=N.
func (h *InvoicesHandler) HandleListUnpaid(w http.ResponseWriter, r *http.Request) {
	olderThanHours := 24
	if raw := r.URL.Query().Get("older_than_hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "older_than_hours must be a non-negative integer")
			return
		}
		olderThanHours = parsed
	}

	invoices, err := h.svc.ListStaleUnpaid(r.Context(), time.Duration(olderThanHours)*time.Hour, 100)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invoices": invoices})
}
