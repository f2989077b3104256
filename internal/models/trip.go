package models

import "time"

type BusModel string

const (
	BusSingleDeck BusModel = "single_deck"
	BusDoubleDeck BusModel = "double_deck"
	BusVan        BusModel = "van"
)

func (m BusModel) Valid() bool {
	switch m {
	case BusSingleDeck, BusDoubleDeck, BusVan:
		return true
	}
	return false
}

// Trip is a scheduled tour package (viagem).
type Trip struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Destination    string    `json:"destination"`
	DepartureDate  *Date     `json:"departure_date,omitempty"`
	ReturnDate     *Date     `json:"return_date,omitempty"`
	BusModel       BusModel  `json:"bus_model"`
	TotalSeats     int       `json:"total_seats"`
	DynamicPricing bool      `json:"dynamic_pricing"`
	PriceTiers     [3]int64  `json:"price_tiers_cents"`
	OccupiedSeats  int       `json:"occupied_seats"`
	Published      bool      `json:"published"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TierPrice returns the package price for a 1-based tier.
func (t *Trip) TierPrice(tier int) (int64, bool) {
	if tier < 1 || tier > len(t.PriceTiers) {
		return 0, false
	}
	return t.PriceTiers[tier-1], true
}

func (t *Trip) AvailableSeats() int {
	if free := t.TotalSeats - t.OccupiedSeats; free > 0 {
		return free
	}
	return 0
}

// ReferenceDate is the date ages are computed against: the departure date
// when known, otherwise now.
func (t *Trip) ReferenceDate(now time.Time) time.Time {
	if t != nil && t.DepartureDate != nil && !t.DepartureDate.IsZero() {
		return t.DepartureDate.Time
	}
	return now
}

// TripFilter narrows trip listings.
type TripFilter struct {
	PublishedOnly bool
	From          *Date
	Search        string
}
