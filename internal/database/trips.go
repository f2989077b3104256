package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"viagens/internal/models"
)

const tripColumns = `id, title, destination, departure_date, return_date, bus_model, total_seats,
                     dynamic_pricing, price_tier1, price_tier2, price_tier3, occupied_seats,
                     published, notes, created_at, updated_at`

func (s *Store) CreateTrip(ctx context.Context, trip *models.Trip) error {
	query := `INSERT INTO trips (
				title, destination, departure_date, return_date, bus_model, total_seats,
				dynamic_pricing, price_tier1, price_tier2, price_tier3, occupied_seats,
				published, notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		trip.Title,
		trip.Destination,
		trip.DepartureDate,
		trip.ReturnDate,
		trip.BusModel,
		trip.TotalSeats,
		trip.DynamicPricing,
		trip.PriceTiers[0],
		trip.PriceTiers[1],
		trip.PriceTiers[2],
		trip.OccupiedSeats,
		trip.Published,
		trip.Notes,
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	trip.ID = id
	trip.CreatedAt = ts
	trip.UpdatedAt = ts
	return nil
}

func (s *Store) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id)
	trip, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

func (s *Store) ListTrips(ctx context.Context, filter models.TripFilter) ([]*models.Trip, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.PublishedOnly {
		where = append(where, "published = 1")
	}
	if filter.From != nil {
		where = append(where, "departure_date >= ?")
		args = append(args, filter.From)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		where = append(where, "(title LIKE ? OR destination LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like)
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY departure_date IS NULL, departure_date ASC, id ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// UpdateTrip saves the editable fields. Seat count and occupancy are owned by
// the allocator and the client workflows and are not touched here.
func (s *Store) UpdateTrip(ctx context.Context, trip *models.Trip) error {
	query := `UPDATE trips SET title = ?, destination = ?, departure_date = ?, return_date = ?,
                dynamic_pricing = ?, price_tier1 = ?, price_tier2 = ?, price_tier3 = ?,
                published = ?, notes = ?, updated_at = ?
              WHERE id = ?`
	ts := now()
	res, err := s.q.ExecContext(ctx, query,
		trip.Title,
		trip.Destination,
		trip.DepartureDate,
		trip.ReturnDate,
		trip.DynamicPricing,
		trip.PriceTiers[0],
		trip.PriceTiers[1],
		trip.PriceTiers[2],
		trip.Published,
		trip.Notes,
		ts,
		trip.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	if err := affectedOne(res, ErrNotFound); err != nil {
		return err
	}
	trip.UpdatedAt = ts
	return nil
}

func (s *Store) DeleteTrip(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return affectedOne(res, ErrNotFound)
}

// AdjustOccupancy moves the occupied-seat counter by delta. Growth beyond the
// trip's seat count fails with ErrCapacityExceeded; the counter never drops
// below zero.
func (s *Store) AdjustOccupancy(ctx context.Context, tripID int64, delta int) error {
	var (
		res sql.Result
		err error
	)
	if delta >= 0 {
		res, err = s.q.ExecContext(ctx,
			`UPDATE trips SET occupied_seats = occupied_seats + ?, updated_at = ?
             WHERE id = ? AND occupied_seats + ? <= total_seats`,
			delta, now(), tripID, delta)
	} else {
		res, err = s.q.ExecContext(ctx,
			`UPDATE trips SET occupied_seats = MAX(occupied_seats + ?, 0), updated_at = ? WHERE id = ?`,
			delta, now(), tripID)
	}
	if err != nil {
		return fmt.Errorf("failed to adjust occupancy: %w", err)
	}

	if err := affectedOne(res, ErrCapacityExceeded); err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			if _, getErr := s.GetTrip(ctx, tripID); errors.Is(getErr, ErrNotFound) {
				return ErrNotFound
			}
		}
		return err
	}
	return nil
}

// RecountOccupancy rebuilds the counter from the non-lap clients of a trip.
func (s *Store) RecountOccupancy(ctx context.Context, tripID int64) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE trip_id = ? AND lap_child = 0`, tripID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count occupants: %w", err)
	}
	if _, err := s.q.ExecContext(ctx,
		`UPDATE trips SET occupied_seats = ?, updated_at = ? WHERE id = ?`, count, now(), tripID); err != nil {
		return 0, fmt.Errorf("failed to store occupancy: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID, &t.Title, &t.Destination, &t.DepartureDate, &t.ReturnDate, &t.BusModel, &t.TotalSeats,
		&t.DynamicPricing, &t.PriceTiers[0], &t.PriceTiers[1], &t.PriceTiers[2], &t.OccupiedSeats,
		&t.Published, &t.Notes, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
