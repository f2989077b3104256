package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrTripFull         = errors.New("trip has no free seats")
	ErrRoomFull         = errors.New("room is full")
	ErrWrongTrip        = errors.New("belongs to another trip")
	ErrLapChildSeat     = errors.New("lap child does not take a seat")
	ErrAlreadyProcessed = errors.New("contract form already processed")
	ErrTermsNotAccepted = errors.New("terms must be accepted")
	ErrTripClosed       = errors.New("trip is not open for sign-up")
	ErrInactiveUser     = errors.New("user is inactive")
	ErrUnknownKind      = errors.New("unknown record kind")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// invalidErr tags a rule violation reported by a pure package (pricing,
// billing, allocation) as a validation failure, keeping the original error.
func invalidErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
