package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"viagens/internal/models"
)

// CreateSeats inserts the seat map of a trip in one statement per seat.
// Callers creating a trip run this inside InTx.
func (s *Store) CreateSeats(ctx context.Context, tripID int64, seats []*models.Seat) error {
	for _, seat := range seats {
		seat.TripID = tripID
		res, err := s.q.ExecContext(ctx,
			`INSERT INTO seats (trip_id, number, deck, position, status, client_id) VALUES (?, ?, ?, ?, ?, ?)`,
			tripID, seat.Number, seat.Deck, seat.Position, seat.Status, seat.ClientID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("seat %d: %w", seat.Number, ErrDuplicate)
			}
			return fmt.Errorf("failed to create seat %d: %w", seat.Number, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		seat.ID = id
	}
	return nil
}

func (s *Store) ListSeats(ctx context.Context, tripID int64) ([]*models.Seat, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, trip_id, number, deck, position, status, client_id FROM seats WHERE trip_id = ? ORDER BY number`,
		tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	defer rows.Close()

	var seats []*models.Seat
	for rows.Next() {
		var seat models.Seat
		if err := rows.Scan(&seat.ID, &seat.TripID, &seat.Number, &seat.Deck, &seat.Position,
			&seat.Status, &seat.ClientID); err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, &seat)
	}
	return seats, rows.Err()
}

func (s *Store) GetSeat(ctx context.Context, tripID int64, number int) (*models.Seat, error) {
	var seat models.Seat
	err := s.q.QueryRowContext(ctx,
		`SELECT id, trip_id, number, deck, position, status, client_id FROM seats WHERE trip_id = ? AND number = ?`,
		tripID, number).Scan(&seat.ID, &seat.TripID, &seat.Number, &seat.Deck, &seat.Position, &seat.Status, &seat.ClientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seat: %w", err)
	}
	return &seat, nil
}

// AssignSeat marks an available seat as occupied by clientID. A seat that is
// occupied or blocked yields ErrSeatTaken.
func (s *Store) AssignSeat(ctx context.Context, tripID int64, number int, clientID int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE seats SET status = ?, client_id = ? WHERE trip_id = ? AND number = ? AND status = ?`,
		models.SeatOccupied, clientID, tripID, number, models.SeatAvailable)
	if err != nil {
		return fmt.Errorf("failed to assign seat: %w", err)
	}
	if err := affectedOne(res, ErrSeatTaken); err != nil {
		if _, getErr := s.GetSeat(ctx, tripID, number); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ReleaseSeats frees every seat held by clientID and reports how many.
func (s *Store) ReleaseSeats(ctx context.Context, clientID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE seats SET status = ?, client_id = NULL WHERE client_id = ?`,
		models.SeatAvailable, clientID)
	if err != nil {
		return 0, fmt.Errorf("failed to release seat: %w", err)
	}
	return res.RowsAffected()
}

// SetSeatBlocked toggles a free seat between available and blocked.
func (s *Store) SetSeatBlocked(ctx context.Context, tripID int64, number int, blocked bool) error {
	from, to := models.SeatAvailable, models.SeatBlocked
	if !blocked {
		from, to = to, from
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE seats SET status = ? WHERE trip_id = ? AND number = ? AND status = ?`,
		to, tripID, number, from)
	if err != nil {
		return fmt.Errorf("failed to block seat: %w", err)
	}
	return affectedOne(res, ErrSeatTaken)
}

func (s *Store) CreateRooms(ctx context.Context, tripID int64, rooms []*models.Room) error {
	for _, room := range rooms {
		room.TripID = tripID
		res, err := s.q.ExecContext(ctx,
			`INSERT INTO rooms (trip_id, label, capacity, bed_config) VALUES (?, ?, ?, ?)`,
			tripID, room.Label, room.Capacity, room.BedConfig)
		if err != nil {
			return fmt.Errorf("failed to create room %s: %w", room.Label, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		room.ID = id
	}
	return nil
}

const roomQuery = `SELECT r.id, r.trip_id, r.label, r.capacity, r.bed_config,
                          (SELECT COUNT(*) FROM clients c WHERE c.room_id = r.id AND c.lap_child = 0)
                   FROM rooms r`

// ListRooms returns the rooming list with occupancy counted from assigned
// clients. Lap children share a bed and do not count.
func (s *Store) ListRooms(ctx context.Context, tripID int64) ([]*models.Room, error) {
	rows, err := s.q.QueryContext(ctx, roomQuery+` WHERE r.trip_id = ? ORDER BY r.id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.TripID, &r.Label, &r.Capacity, &r.BedConfig, &r.Occupancy); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &r)
	}
	return rooms, rows.Err()
}

func (s *Store) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	var r models.Room
	err := s.q.QueryRowContext(ctx, roomQuery+` WHERE r.id = ?`, id).
		Scan(&r.ID, &r.TripID, &r.Label, &r.Capacity, &r.BedConfig, &r.Occupancy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &r, nil
}
