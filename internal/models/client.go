package models

import "time"

type AgeBracket string

const (
	BracketExempt AgeBracket = "exempt"
	BracketChild  AgeBracket = "child"
	BracketAdult  AgeBracket = "adult"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPending PaymentStatus = "pending"
)

// Client is a passenger registered on a trip. Companions point at their
// principal client through PrincipalID.
type Client struct {
	ID                int64         `json:"id"`
	TripID            int64         `json:"trip_id"`
	PrincipalID       *int64        `json:"principal_id,omitempty"`
	Name              string        `json:"name"`
	Document          string        `json:"document,omitempty"`
	Phone             string        `json:"phone,omitempty"`
	Email             string        `json:"email,omitempty"`
	BirthDate         *Date         `json:"birth_date,omitempty"`
	Age               *int          `json:"age,omitempty"`
	AgeBracket        AgeBracket    `json:"age_bracket"`
	LapChild          bool          `json:"lap_child"`
	PriceTier         int           `json:"price_tier,omitempty"`
	CustomPriceCents  *int64        `json:"custom_price_cents,omitempty"`
	PackageTotalCents int64         `json:"package_total_cents"`
	PaidCents         int64         `json:"paid_cents"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	SeatNumber        *int          `json:"seat_number,omitempty"`
	RoomID            *int64        `json:"room_id,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// OccupiesSeat reports whether the client counts toward trip occupancy.
func (c *Client) OccupiesSeat() bool {
	return !c.LapChild
}

func (c *Client) BalanceCents() int64 {
	if rest := c.PackageTotalCents - c.PaidCents; rest > 0 {
		return rest
	}
	return 0
}

type ClientFilter struct {
	TripID        int64
	PrincipalID   int64
	PaymentStatus PaymentStatus
	Search        string
}
