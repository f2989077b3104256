package allocation

import (
	"errors"
	"fmt"

	"viagens/internal/models"
)

// MaxVanSeats caps the seat count of a van.
const MaxVanSeats = 20

var (
	ErrInvalidSeatCount = errors.New("total seats must be positive")
	ErrUnknownBusModel  = errors.New("unknown bus model")
	ErrInvalidRooms     = errors.New("room count must not be negative and capacity must be positive")
)

// Seats numbers seats 1..total for a bus model. Odd seats are window, even
// seats aisle. A double deck puts seats 1..ceil(total/2) on deck 1 and the
// rest on deck 2; every other model is single level.
func Seats(total int, model models.BusModel) ([]*models.Seat, error) {
	if total <= 0 {
		return nil, ErrInvalidSeatCount
	}
	if !model.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBusModel, model)
	}
	if model == models.BusVan && total > MaxVanSeats {
		return nil, fmt.Errorf("van supports at most %d seats, got %d", MaxVanSeats, total)
	}

	firstDeck := total
	if model == models.BusDoubleDeck {
		firstDeck = (total + 1) / 2
	}

	seats := make([]*models.Seat, 0, total)
	for n := 1; n <= total; n++ {
		deck := 1
		if n > firstDeck {
			deck = 2
		}
		seats = append(seats, &models.Seat{
			Number:   n,
			Deck:     deck,
			Position: PositionOf(n),
			Status:   models.SeatAvailable,
		})
	}
	return seats, nil
}

func PositionOf(number int) models.SeatPosition {
	if number%2 == 1 {
		return models.SeatWindow
	}
	return models.SeatAisle
}

// Rooms builds the fixed rooming list of a trip. The count does not depend
// on the number of passengers.
func Rooms(count, capacity int, beds string) ([]*models.Room, error) {
	if count < 0 || capacity <= 0 {
		return nil, ErrInvalidRooms
	}
	rooms := make([]*models.Room, 0, count)
	for i := 1; i <= count; i++ {
		rooms = append(rooms, &models.Room{
			Label:     fmt.Sprintf("Quarto %02d", i),
			Capacity:  capacity,
			BedConfig: beds,
		})
	}
	return rooms, nil
}
