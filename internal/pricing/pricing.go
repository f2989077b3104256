// Package pricing classifies passengers into age brackets and prices them.
//
// This is the only place the bracket boundaries live. Client intake, trip
// repricing and seat allocation all call into it.
package pricing

import (
	"errors"
	"time"

	"viagens/internal/models"
)

const (
	// ExemptMaxAge is the oldest age, inclusive, that travels free.
	ExemptMaxAge = 5
	// ChildMaxAge is the oldest age, inclusive, charged the child price.
	ChildMaxAge = 11
)

var (
	ErrInvalidTier       = errors.New("invalid price tier")
	ErrNegativeAmount    = errors.New("custom amount must not be negative")
	ErrLapChildTooOld    = errors.New("lap child must be at most 5 years old")
	ErrBirthDateInFuture = errors.New("birth date is after the reference date")
)

// Table holds the fixed bracket prices used under dynamic pricing.
type Table struct {
	ChildCents int64
	AdultCents int64
}

// Price returns the fixed price for a bracket.
func (t Table) Price(b models.AgeBracket) int64 {
	switch b {
	case models.BracketExempt:
		return 0
	case models.BracketChild:
		return t.ChildCents
	default:
		return t.AdultCents
	}
}

// AgeAt returns completed years between birth and ref.
func AgeAt(birth models.Date, ref time.Time) int {
	ry, rm, rd := ref.Date()
	by, bm, bd := birth.Date()
	age := ry - by
	if rm < bm || (rm == bm && rd < bd) {
		age--
	}
	return age
}

// Classify maps an optional birth date to a bracket. No birth date is Adult.
func Classify(birth *models.Date, ref time.Time) models.AgeBracket {
	if birth == nil || birth.IsZero() {
		return models.BracketAdult
	}
	return BracketForAge(AgeAt(*birth, ref))
}

func BracketForAge(age int) models.AgeBracket {
	switch {
	case age <= ExemptMaxAge:
		return models.BracketExempt
	case age <= ChildMaxAge:
		return models.BracketChild
	default:
		return models.BracketAdult
	}
}

// Selection is the manually chosen price for a passenger: a 1-based tier of
// the trip or a custom amount, which wins when set.
type Selection struct {
	Tier        int
	CustomCents *int64
}

// Quote is the outcome of pricing one passenger.
type Quote struct {
	Age        *int
	Bracket    models.AgeBracket
	PriceCents int64
	Dynamic    bool
}

// QuoteFor prices a passenger on a trip. With dynamic pricing the bracket
// decides the price; otherwise the selection does.
func QuoteFor(trip *models.Trip, birth *models.Date, sel Selection, table Table, now time.Time) (Quote, error) {
	ref := trip.ReferenceDate(now)

	q := Quote{Bracket: Classify(birth, ref), Dynamic: trip.DynamicPricing}
	if birth != nil && !birth.IsZero() {
		if birth.Time.After(ref) {
			return Quote{}, ErrBirthDateInFuture
		}
		age := AgeAt(*birth, ref)
		q.Age = &age
	}

	if trip.DynamicPricing {
		q.PriceCents = table.Price(q.Bracket)
		return q, nil
	}

	if sel.CustomCents != nil {
		if *sel.CustomCents < 0 {
			return Quote{}, ErrNegativeAmount
		}
		q.PriceCents = *sel.CustomCents
		return q, nil
	}

	tier := sel.Tier
	if tier == 0 {
		tier = 1
	}
	price, ok := trip.TierPrice(tier)
	if !ok {
		return Quote{}, ErrInvalidTier
	}
	q.PriceCents = price
	return q, nil
}

// CheckLapChild enforces that only exempt-age children travel on a lap.
// A lap child with no birth date is rejected.
func CheckLapChild(birth *models.Date, ref time.Time) error {
	if Classify(birth, ref) != models.BracketExempt {
		return ErrLapChildTooOld
	}
	return nil
}
