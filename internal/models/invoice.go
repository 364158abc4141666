package models

import "time"

// Invoice statuses.
const (
	InvoiceStatusUnpaid = "UNPAID"
	InvoiceStatusPaid   = "PAID"
)

// Invoice is issued when a charging session completes; 1:1 with the session.
type Invoice struct {
	ID        int64      `db:"id" json:"id"`
	SessionID int64      `db:"session_id" json:"session_id"`
	Amount    float64    `db:"amount" json:"amount"`
	Currency  string     `db:"currency" json:"currency"`
	Status    string     `db:"status" json:"status"`
	IssuedAt  time.Time  `db:"issued_at" json:"issued_at"`
	PaidAt    *time.Time `db:"paid_at" json:"paid_at,omitempty"`
}

// PaymentTransaction records a confirmed payment for an invoice.
type PaymentTransaction struct {
	ID        int64     `db:"id" json:"id"`
	InvoiceID int64     `db:"invoice_id" json:"invoice_id"`
	Reference string    `db:"reference" json:"reference"`
	Method    string    `db:"method" json:"method"`
	Amount    float64   `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
