package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"evreserve/internal/models"
)

// InvoiceRepository persists invoices and payment transactions.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository returns repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, session_id, amount, currency, status, issued_at, paid_at`

func scanInvoice(row interface{ Scan(...any) error }) (*models.Invoice, error) {
	var inv models.Invoice
	if err := row.Scan(
		&inv.ID,
		&inv.SessionID,
		&inv.Amount,
		&inv.Currency,
		&inv.Status,
		&inv.IssuedAt,
		&inv.PaidAt,
	); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create issues an invoice for a completed session.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	const query = `
		INSERT INTO invoices (session_id, amount, currency, status, issued_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		inv.SessionID,
		inv.Amount,
		inv.Currency,
		inv.Status,
		inv.IssuedAt,
	).Scan(&inv.ID)
}

// Get returns an invoice by id.
func (r *InvoiceRepository) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	const query = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetBySession returns the invoice of a session, if any.
func (r *InvoiceRepository) GetBySession(ctx context.Context, sessionID int64) (*models.Invoice, error) {
	const query = `SELECT ` + invoiceColumns + ` FROM invoices WHERE session_id = $1`
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ConfirmPayment flips an UNPAID invoice to PAID and records the payment
// transaction in the same database transaction. When the invoice is already
// PAID the existing transaction is returned with alreadyPaid = true, so
// duplicate gateway callbacks never double-charge.
func (r *InvoiceRepository) ConfirmPayment(ctx context.Context, invoiceID int64, method string, amount float64, reference string) (*models.PaymentTransaction, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	const flipQuery = `
		UPDATE invoices
		SET status = $2, paid_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := tx.ExecContext(ctx, flipQuery, invoiceID, models.InvoiceStatusPaid, models.InvoiceStatusUnpaid)
	if err != nil {
		return nil, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	if affected == 0 {
		inv, getErr := r.Get(ctx, invoiceID)
		if getErr != nil {
			return nil, false, getErr
		}
		if inv.Status != models.InvoiceStatusPaid {
			return nil, false, models.ErrInvalidState
		}
		existing, getErr := r.latestTransaction(ctx, invoiceID)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, true, nil
	}

	const insertQuery = `
		INSERT INTO payment_transactions (invoice_id, reference, method, amount, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`
	paymentTx := &models.PaymentTransaction{
		InvoiceID: invoiceID,
		Reference: reference,
		Method:    method,
		Amount:    amount,
	}
	if err := tx.QueryRowContext(ctx, insertQuery,
		paymentTx.InvoiceID,
		paymentTx.Reference,
		paymentTx.Method,
		paymentTx.Amount,
	).Scan(&paymentTx.ID, &paymentTx.CreatedAt); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return paymentTx, false, nil
}

func (r *InvoiceRepository) latestTransaction(ctx context.Context, invoiceID int64) (*models.PaymentTransaction, error) {
	const query = `
		SELECT id, invoice_id, reference, method, amount, created_at
		FROM payment_transactions
		WHERE invoice_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	var t models.PaymentTransaction
	if err := r.db.QueryRowContext(ctx, query, invoiceID).Scan(
		&t.ID,
		&t.InvoiceID,
		&t.Reference,
		&t.Method,
		&t.Amount,
		&t.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListStaleUnpaid returns UNPAID invoices issued before the cutoff.
func (r *InvoiceRepository) ListStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]models.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status = $1 AND issued_at < $2
		ORDER BY issued_at
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, models.InvoiceStatusUnpaid, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}
