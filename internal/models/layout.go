package models

type SeatPosition string

const (
	SeatWindow SeatPosition = "window"
	SeatAisle  SeatPosition = "aisle"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatOccupied  SeatStatus = "occupied"
	SeatBlocked   SeatStatus = "blocked"
)

type Seat struct {
	ID       int64        `json:"id"`
	TripID   int64        `json:"trip_id"`
	Number   int          `json:"number"`
	Deck     int          `json:"deck"`
	Position SeatPosition `json:"position"`
	Status   SeatStatus   `json:"status"`
	ClientID *int64       `json:"client_id,omitempty"`
}

// Room is a hotel room reserved for a trip. Occupancy is derived from the
// clients assigned to it and is never stored.
type Room struct {
	ID        int64  `json:"id"`
	TripID    int64  `json:"trip_id"`
	Label     string `json:"label"`
	Capacity  int    `json:"capacity"`
	BedConfig string `json:"bed_config"`
	Occupancy int    `json:"occupancy"`
}

func (r *Room) Free() int {
	if free := r.Capacity - r.Occupancy; free > 0 {
		return free
	}
	return 0
}

// OccupancyView is the seat map and rooming list of a trip.
type OccupancyView struct {
	Trip  *Trip   `json:"trip"`
	Seats []*Seat `json:"seats"`
	Rooms []*Room `json:"rooms"`
}
