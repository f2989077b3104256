package models

import "time"

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// Installment is one scheduled partial payment (parcela) of a client's package.
type Installment struct {
	ID          int64             `json:"id"`
	ClientID    int64             `json:"client_id"`
	Sequence    int               `json:"sequence"`
	Count       int               `json:"count"`
	DueDate     Date              `json:"due_date"`
	AmountCents int64             `json:"amount_cents"`
	Status      InstallmentStatus `json:"status"`
	Method      string            `json:"method"`
	PaidAt      *time.Time        `json:"paid_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type Payment struct {
	ID            int64     `json:"id"`
	ClientID      int64     `json:"client_id"`
	InstallmentID *int64    `json:"installment_id,omitempty"`
	AmountCents   int64     `json:"amount_cents"`
	Method        string    `json:"method"`
	PaidAt        time.Time `json:"paid_at"`
	Note          string    `json:"note,omitempty"`
	RecordedBy    string    `json:"recorded_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Statement is a client's billing position.
type Statement struct {
	Client       *Client        `json:"client"`
	Installments []*Installment `json:"installments"`
	Payments     []*Payment     `json:"payments"`
	BalanceCents int64          `json:"balance_cents"`
}
