package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"viagens/internal/models"
)

const installmentColumns = `id, client_id, sequence, count, due_date, amount, status, method, paid_at, created_at`

func (s *Store) CreateInstallments(ctx context.Context, items []*models.Installment) error {
	ts := now()
	for _, inst := range items {
		res, err := s.q.ExecContext(ctx,
			`INSERT INTO installments (client_id, sequence, count, due_date, amount, status, method, paid_at, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inst.ClientID, inst.Sequence, inst.Count, inst.DueDate, inst.AmountCents, inst.Status,
			inst.Method, inst.PaidAt, ts)
		if err != nil {
			return fmt.Errorf("failed to create installment: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		inst.ID = id
		inst.CreatedAt = ts
	}
	return nil
}

// DeleteOpenInstallments removes the unpaid schedule of a client so a new one
// can be generated. Paid installments are kept.
func (s *Store) DeleteOpenInstallments(ctx context.Context, clientID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM installments WHERE client_id = ? AND status <> ?`, clientID, models.InstallmentPaid)
	if err != nil {
		return 0, fmt.Errorf("failed to delete installments: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) ListInstallments(ctx context.Context, clientID int64) ([]*models.Installment, error) {
	return s.queryInstallments(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE client_id = ? ORDER BY sequence, id`, clientID)
}

// ListInstallmentsByStatus lists installments of every client in a status,
// oldest due date first. A zero tripID means all trips.
func (s *Store) ListInstallmentsByStatus(ctx context.Context, status models.InstallmentStatus, tripID int64) ([]*models.Installment, error) {
	query := `SELECT i.id, i.client_id, i.sequence, i.count, i.due_date, i.amount, i.status, i.method, i.paid_at, i.created_at
              FROM installments i JOIN clients c ON c.id = i.client_id
              WHERE i.status = ? AND (? = 0 OR c.trip_id = ?)
              ORDER BY i.due_date, i.id`
	return s.queryInstallments(ctx, query, status, tripID, tripID)
}

func (s *Store) GetInstallment(ctx context.Context, id int64) (*models.Installment, error) {
	items, err := s.queryInstallments(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

// MarkInstallmentPaid settles an unpaid installment. Paying an installment
// twice yields ErrDuplicate.
func (s *Store) MarkInstallmentPaid(ctx context.Context, id int64, method string, paidAt time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE installments SET status = ?, method = ?, paid_at = ? WHERE id = ? AND status <> ?`,
		models.InstallmentPaid, method, paidAt.UTC(), id, models.InstallmentPaid)
	if err != nil {
		return fmt.Errorf("failed to mark installment paid: %w", err)
	}
	if err := affectedOne(res, ErrDuplicate); err != nil {
		if _, getErr := s.GetInstallment(ctx, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// MarkOverdue flags pending installments due before today and returns the
// ids it touched.
func (s *Store) MarkOverdue(ctx context.Context, today models.Date) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id FROM installments WHERE status = ? AND due_date < ?`, models.InstallmentPending, today)
	if err != nil {
		return nil, fmt.Errorf("failed to find overdue installments: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan installment id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := s.q.ExecContext(ctx,
			`UPDATE installments SET status = ? WHERE id = ? AND status = ?`,
			models.InstallmentOverdue, id, models.InstallmentPending); err != nil {
			return nil, fmt.Errorf("failed to mark installment %d overdue: %w", id, err)
		}
	}
	return ids, nil
}

func (s *Store) queryInstallments(ctx context.Context, query string, args ...interface{}) ([]*models.Installment, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var items []*models.Installment
	for rows.Next() {
		var inst models.Installment
		if err := rows.Scan(&inst.ID, &inst.ClientID, &inst.Sequence, &inst.Count, &inst.DueDate,
			&inst.AmountCents, &inst.Status, &inst.Method, &inst.PaidAt, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		items = append(items, &inst)
	}
	return items, rows.Err()
}

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	ts := now()
	if p.PaidAt.IsZero() {
		p.PaidAt = ts
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO payments (client_id, installment_id, amount, method, paid_at, note, recorded_by, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ClientID, p.InstallmentID, p.AmountCents, p.Method, p.PaidAt.UTC(), p.Note, p.RecordedBy, ts)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt = ts
	return nil
}

const paymentColumns = `id, client_id, installment_id, amount, method, paid_at, note, recorded_by, created_at`

func (s *Store) ListPayments(ctx context.Context, clientID int64) ([]*models.Payment, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE client_id = ? ORDER BY paid_at, id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	p, err := scanPayment(s.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.ClientID, &p.InstallmentID, &p.AmountCents, &p.Method, &p.PaidAt,
		&p.Note, &p.RecordedBy, &p.CreatedAt)
	return &p, err
}

// SumPayments totals everything received from a client.
func (s *Store) SumPayments(ctx context.Context, clientID int64) (int64, error) {
	var total sql.NullInt64
	err := s.q.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM payments WHERE client_id = ?`, clientID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return total.Int64, nil
}
