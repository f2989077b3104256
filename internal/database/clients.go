package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"viagens/internal/models"
)

const clientColumns = `id, trip_id, principal_id, name, document, phone, email, birth_date, age,
                       age_bracket, lap_child, price_tier, custom_price, package_total, paid_total,
                       payment_status, seat_number, room_id, notes, created_at, updated_at`

func (s *Store) CreateClient(ctx context.Context, c *models.Client) error {
	query := `INSERT INTO clients (
				trip_id, principal_id, name, document, phone, email, birth_date, age,
				age_bracket, lap_child, price_tier, custom_price, package_total, paid_total,
				payment_status, seat_number, room_id, notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		c.TripID,
		c.PrincipalID,
		c.Name,
		c.Document,
		c.Phone,
		c.Email,
		c.BirthDate,
		c.Age,
		c.AgeBracket,
		c.LapChild,
		c.PriceTier,
		c.CustomPriceCents,
		c.PackageTotalCents,
		c.PaidCents,
		c.PaymentStatus,
		c.SeatNumber,
		c.RoomID,
		c.Notes,
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = ts
	c.UpdatedAt = ts
	return nil
}

func (s *Store) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context, filter models.ClientFilter) ([]*models.Client, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.TripID != 0 {
		where = append(where, "trip_id = ?")
		args = append(args, filter.TripID)
	}
	if filter.PrincipalID != 0 {
		where = append(where, "principal_id = ?")
		args = append(args, filter.PrincipalID)
	}
	if filter.PaymentStatus != "" {
		where = append(where, "payment_status = ?")
		args = append(args, filter.PaymentStatus)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		where = append(where, "(name LIKE ? OR document LIKE ? OR email LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}

	query := `SELECT ` + clientColumns + ` FROM clients`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY trip_id, COALESCE(principal_id, id), id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// UpdateClient saves personal data and the derived pricing fields.
// Payment totals, seat and room are changed through their own methods.
func (s *Store) UpdateClient(ctx context.Context, c *models.Client) error {
	query := `UPDATE clients SET principal_id = ?, name = ?, document = ?, phone = ?, email = ?,
                birth_date = ?, age = ?, age_bracket = ?, lap_child = ?, price_tier = ?,
                custom_price = ?, package_total = ?, payment_status = ?, notes = ?, updated_at = ?
              WHERE id = ?`
	ts := now()
	res, err := s.q.ExecContext(ctx, query,
		c.PrincipalID,
		c.Name,
		c.Document,
		c.Phone,
		c.Email,
		c.BirthDate,
		c.Age,
		c.AgeBracket,
		c.LapChild,
		c.PriceTier,
		c.CustomPriceCents,
		c.PackageTotalCents,
		c.PaymentStatus,
		c.Notes,
		ts,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if err := affectedOne(res, ErrNotFound); err != nil {
		return err
	}
	c.UpdatedAt = ts
	return nil
}

// SetClientPayment stores the cumulative paid amount and the derived status.
func (s *Store) SetClientPayment(ctx context.Context, id, paidCents int64, status models.PaymentStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE clients SET paid_total = ?, payment_status = ?, updated_at = ? WHERE id = ?`,
		paidCents, status, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update client payment: %w", err)
	}
	return affectedOne(res, ErrNotFound)
}

func (s *Store) SetClientSeat(ctx context.Context, id int64, seat *int) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE clients SET seat_number = ?, updated_at = ? WHERE id = ?`, seat, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update client seat: %w", err)
	}
	return affectedOne(res, ErrNotFound)
}

func (s *Store) SetClientRoom(ctx context.Context, id int64, roomID *int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE clients SET room_id = ?, updated_at = ? WHERE id = ?`, roomID, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update client room: %w", err)
	}
	return affectedOne(res, ErrNotFound)
}

// DetachCompanions clears the principal link of every companion of id.
func (s *Store) DetachCompanions(ctx context.Context, principalID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE clients SET principal_id = NULL, updated_at = ? WHERE principal_id = ?`, now(), principalID)
	if err != nil {
		return 0, fmt.Errorf("failed to detach companions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return affectedOne(res, ErrNotFound)
}

func scanClient(row rowScanner) (*models.Client, error) {
	var c models.Client
	err := row.Scan(
		&c.ID, &c.TripID, &c.PrincipalID, &c.Name, &c.Document, &c.Phone, &c.Email, &c.BirthDate, &c.Age,
		&c.AgeBracket, &c.LapChild, &c.PriceTier, &c.CustomPriceCents, &c.PackageTotalCents, &c.PaidCents,
		&c.PaymentStatus, &c.SeatNumber, &c.RoomID, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
