package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"evreserve/internal/events"
	"evreserve/internal/metrics"
	"evreserve/internal/models"
)

// InvoiceStore persists invoices and payment transactions.
type InvoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, id int64) (*models.Invoice, error)
	GetBySession(ctx context.Context, sessionID int64) (*models.Invoice, error)
	ConfirmPayment(ctx context.Context, invoiceID int64, method string, amount float64, reference string) (*models.PaymentTransaction, bool, error)
	ListStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error)
}

// BillingService issues invoices and reconciles payment confirmations.
type BillingService struct {
	store   InvoiceStore
	tariffs TariffProvider
	bus     EventPublisher
	logger  *zap.Logger
	now     func() time.Time
}

// NewBillingService builds service.
func NewBillingService(store InvoiceStore, tariffs TariffProvider, bus EventPublisher, logger *zap.Logger) *BillingService {
	return &BillingService{
		store:   store,
		tariffs: tariffs,
		bus:     bus,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IssueForSession creates the UNPAID invoice for a completed session.
// Re-issuing for the same session returns the existing invoice.
func (s *BillingService) IssueForSession(ctx context.Context, session *models.ChargingSession) (*models.Invoice, error) {
	existing, err := s.store.GetBySession(ctx, session.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	tariff, err := s.tariffs.ActiveTariff(ctx)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		SessionID: session.ID,
		Amount:    roundMoney(session.Cost),
		Currency:  tariff.Currency,
		Status:    models.InvoiceStatusUnpaid,
		IssuedAt:  s.now(),
	}
	if err := s.store.Create(ctx, invoice); err != nil {
		return nil, err
	}

	s.bus.Publish(events.TypeInvoiceIssued, invoice)
	s.logger.Info("invoice issued",
		zap.Int64("invoice_id", invoice.ID),
		zap.Int64("session_id", session.ID),
		zap.Float64("amount", invoice.Amount),
		zap.String("currency", invoice.Currency),
	)
	return invoice, nil
}

// ConfirmPayment settles an invoice from an external gateway callback.
// The amount must match the invoice exactly; confirming an already-PAID
// invoice returns the recorded transaction instead of double-charging.
func (s *BillingService) ConfirmPayment(ctx context.Context, invoiceID int64, method string, amount float64) (*models.PaymentTransaction, error) {
	invoice, err := s.store.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if roundMoney(amount) != invoice.Amount {
		return nil, models.ErrAmountMismatch
	}

	transaction, alreadyPaid, err := s.store.ConfirmPayment(ctx, invoiceID, method, roundMoney(amount), uuid.NewString())
	if err != nil {
		return nil, err
	}
	if alreadyPaid {
		return transaction, nil
	}

	metrics.IncInvoicePaid()
	s.bus.Publish(events.TypeInvoicePaid, invoice)
	s.logger.Info("payment confirmed",
		zap.Int64("invoice_id", invoiceID),
		zap.String("method", method),
		zap.Float64("amount", amount),
		zap.String("reference", transaction.Reference),
	)
	return transaction, nil
}

// GetInvoice returns an invoice by id.
func (s *BillingService) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	return s.store.Get(ctx, id)
}

// ListStaleUnpaid returns UNPAID invoices older than the given age.
func (s *BillingService) ListStaleUnpaid(ctx context.Context, olderThan time.Duration, limit int) ([]models.Invoice, error) {
	return s.store.ListStaleUnpaid(ctx, s.now().Add(-olderThan), limit)
}
