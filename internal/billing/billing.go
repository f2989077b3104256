package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"viagens/internal/models"
)

const (
	MinInstallments = 2
	MaxInstallments = 12
)

var (
	ErrInvalidInstallmentCount = fmt.Errorf("installment count must be between %d and %d", MinInstallments, MaxInstallments)
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrMissingDueDate          = errors.New("first due date is required")
	ErrInvalidOffset           = errors.New("settled installment count cannot be negative")
)

// Plan is the input of the installment generator.
type Plan struct {
	ClientID   int64
	TotalCents int64
	Count      int
	FirstDue   models.Date
	Method     string
	// Settled is how many installments of the schedule are already paid.
	// New installments are numbered after them.
	Settled int
}

func (p Plan) Validate() error {
	if p.Count < MinInstallments || p.Count > MaxInstallments {
		return ErrInvalidInstallmentCount
	}
	if p.TotalCents <= 0 {
		return ErrInvalidAmount
	}
	if p.FirstDue.IsZero() {
		return ErrMissingDueDate
	}
	if p.Settled < 0 {
		return ErrInvalidOffset
	}
	return nil
}

// Generate splits the plan total into Count monthly installments, all
// pending. Amounts are in cents; the remainder of the division is added to
// the last installment so the amounts always sum to the total.
func Generate(p Plan) ([]*models.Installment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	base := p.TotalCents / int64(p.Count)
	remainder := p.TotalCents - base*int64(p.Count)
	method := strings.TrimSpace(p.Method)

	out := make([]*models.Installment, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		amount := base
		if i == p.Count-1 {
			amount += remainder
		}
		out = append(out, &models.Installment{
			ClientID:    p.ClientID,
			Sequence:    p.Settled + i + 1,
			Count:       p.Settled + p.Count,
			DueDate:     p.FirstDue.AddMonths(i),
			AmountCents: amount,
			Status:      models.InstallmentPending,
			Method:      method,
		})
	}
	return out, nil
}

// Rollup derives a client's payment status from cumulative paid and the
// package total. A zero total counts as paid.
func Rollup(paidCents, totalCents int64) models.PaymentStatus {
	switch {
	case paidCents >= totalCents:
		return models.PaymentPaid
	case paidCents > 0:
		return models.PaymentPartial
	default:
		return models.PaymentPending
	}
}

// IsOverdue reports whether a pending installment is past due on day now.
func IsOverdue(inst *models.Installment, now time.Time) bool {
	if inst.Status != models.InstallmentPending {
		return false
	}
	return inst.DueDate.Before(models.DateOf(now))
}

// Sum adds up installment amounts.
func Sum(items []*models.Installment) int64 {
	var total int64
	for _, it := range items {
		total += it.AmountCents
	}
	return total
}
