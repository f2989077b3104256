package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"viagens/internal/allocation"
	"viagens/internal/billing"
	"viagens/internal/config"
	"viagens/internal/database"
	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/models"
	"viagens/internal/pricing"
	"viagens/internal/worker"

	"github.com/rs/zerolog"
)

type TripService struct {
	notifier
	db     *database.DB
	layout config.LayoutConfig
	prices pricing.Table
	now    func() time.Time
}

func NewTripService(db *database.DB, layout config.LayoutConfig, prices pricing.Table, eventBus domain.EventPublisher, outbox domain.OutboxDispatcher, logger *zerolog.Logger) *TripService {
	return &TripService{
		notifier: newNotifier(eventBus, outbox, logger),
		db:       db,
		layout:   layout,
		prices:   prices,
		now:      time.Now,
	}
}

func validateTrip(trip *models.Trip) error {
	trip.Title = strings.TrimSpace(trip.Title)
	if trip.Title == "" {
		return invalid("title is required")
	}
	if trip.DepartureDate != nil && trip.ReturnDate != nil && trip.ReturnDate.Before(*trip.DepartureDate) {
		return invalid("return date is before departure date")
	}
	for i, p := range trip.PriceTiers {
		if p < 0 {
			return invalid("price tier %d is negative", i+1)
		}
	}
	return nil
}

// Create stores the trip together with its seat map and default rooms.
// Nothing is written unless all three succeed.
func (s *TripService) Create(ctx context.Context, trip *models.Trip) error {
	if err := validateTrip(trip); err != nil {
		return err
	}
	seats, err := allocation.Seats(trip.TotalSeats, trip.BusModel)
	if err != nil {
		return invalidErr(err)
	}
	rooms, err := allocation.Rooms(s.layout.RoomCount, s.layout.RoomCapacity, s.layout.BedConfig)
	if err != nil {
		return invalidErr(err)
	}

	trip.OccupiedSeats = 0
	err = s.db.InTx(ctx, func(tx *database.Store) error {
		if err := tx.CreateTrip(ctx, trip); err != nil {
			return err
		}
		if err := tx.CreateSeats(ctx, trip.ID, seats); err != nil {
			return err
		}
		return tx.CreateRooms(ctx, trip.ID, rooms)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("trip_id", trip.ID).Int("seats", len(seats)).Int("rooms", len(rooms)).Msg("trip created")
	s.publishEvent(ctx, events.EventTripCreated, events.Payload{
		Entity: "trip", EntityID: trip.ID, TripID: trip.ID, Count: len(seats), Detail: trip.Title,
	})
	return nil
}

func (s *TripService) Get(ctx context.Context, id int64) (*models.Trip, error) {
	return s.db.GetTrip(ctx, id)
}

func (s *TripService) List(ctx context.Context, filter models.TripFilter) ([]*models.Trip, error) {
	return s.db.ListTrips(ctx, filter)
}

// Update saves the editable fields and reprices every client of the trip,
// since dates, tiers and the pricing mode all feed into the quote.
func (s *TripService) Update(ctx context.Context, trip *models.Trip) error {
	if err := validateTrip(trip); err != nil {
		return err
	}

	var (
		repriced int
		task     *models.OutboxTask
	)
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		current, err := tx.GetTrip(ctx, trip.ID)
		if err != nil {
			return err
		}
		trip.BusModel = current.BusModel
		trip.TotalSeats = current.TotalSeats
		trip.OccupiedSeats = current.OccupiedSeats
		trip.CreatedAt = current.CreatedAt
		if err := tx.UpdateTrip(ctx, trip); err != nil {
			return err
		}
		repriced, err = s.reprice(ctx, tx, trip)
		if err != nil {
			return err
		}
		task, err = tx.EnqueueOutbox(ctx, worker.TaskSheetsRoster, trip.ID, rosterTask{TripID: trip.ID})
		return err
	})
	if err != nil {
		return err
	}

	s.dispatch(ctx, task)
	s.publishEvent(ctx, events.EventTripUpdated, events.Payload{
		Entity: "trip", EntityID: trip.ID, TripID: trip.ID, Count: repriced, Detail: trip.Title,
	})
	return nil
}

// SetDynamicPricing switches the trip between tier and age-bracket pricing
// and migrates every client's price and payment status in one transaction.
func (s *TripService) SetDynamicPricing(ctx context.Context, tripID int64, enabled bool) (int, error) {
	var (
		repriced int
		task     *models.OutboxTask
	)
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		trip, err := tx.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}
		trip.DynamicPricing = enabled
		if err := tx.UpdateTrip(ctx, trip); err != nil {
			return err
		}
		repriced, err = s.reprice(ctx, tx, trip)
		if err != nil {
			return err
		}
		task, err = tx.EnqueueOutbox(ctx, worker.TaskSheetsRoster, trip.ID, rosterTask{TripID: trip.ID})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.dispatch(ctx, task)
	s.logger.Info().Int64("trip_id", tripID).Bool("dynamic", enabled).Int("clients", repriced).Msg("trip repriced")
	s.publishEvent(ctx, events.EventTripRepriced, events.Payload{
		Entity: "trip", EntityID: tripID, TripID: tripID, Count: repriced,
	})
	return repriced, nil
}

// reprice recomputes age, bracket, package total and payment status for
// each client of trip and returns how many changed.
func (s *TripService) reprice(ctx context.Context, tx *database.Store, trip *models.Trip) (int, error) {
	clients, err := tx.ListClients(ctx, models.ClientFilter{TripID: trip.ID})
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, c := range clients {
		before := *c
		if err := applyQuote(c, trip, s.prices, s.now()); err != nil {
			return 0, invalidErr(err)
		}
		if sameQuote(&before, c) {
			continue
		}
		if err := tx.UpdateClient(ctx, c); err != nil {
			return 0, err
		}
		changed++
	}
	return changed, nil
}

func (s *TripService) Delete(ctx context.Context, id int64) error {
	if err := s.db.DeleteTrip(ctx, id); err != nil {
		return err
	}
	s.publishEvent(ctx, events.EventTripDeleted, events.Payload{Entity: "trip", EntityID: id, TripID: id})
	return nil
}

// Occupancy returns the seat map and rooming list of a trip.
func (s *TripService) Occupancy(ctx context.Context, tripID int64) (*models.OccupancyView, error) {
	trip, err := s.db.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	seats, err := s.db.ListSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}
	rooms, err := s.db.ListRooms(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return &models.OccupancyView{Trip: trip, Seats: seats, Rooms: rooms}, nil
}

// BlockSeat takes a free seat out of sale, or returns a blocked one.
func (s *TripService) BlockSeat(ctx context.Context, tripID int64, number int, blocked bool) error {
	return s.db.SetSeatBlocked(ctx, tripID, number, blocked)
}

// AddRoom reserves an extra room beyond the default ones.
func (s *TripService) AddRoom(ctx context.Context, tripID int64, room *models.Room) error {
	room.Label = strings.TrimSpace(room.Label)
	if room.Label == "" || room.Capacity <= 0 {
		return invalid("room needs a label and a positive capacity")
	}
	if _, err := s.db.GetTrip(ctx, tripID); err != nil {
		return err
	}
	return s.db.CreateRooms(ctx, tripID, []*models.Room{room})
}

// Recount rebuilds the occupied-seat counter from the stored clients.
func (s *TripService) Recount(ctx context.Context, tripID int64) (int, error) {
	if _, err := s.db.GetTrip(ctx, tripID); err != nil {
		return 0, err
	}
	count, err := s.db.RecountOccupancy(ctx, tripID)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("trip_id", tripID).Int("occupied", count).Msg("occupancy recounted")
	return count, nil
}

// applyQuote prices c on trip and refreshes the derived fields. Lap
// children pay nothing unless a custom amount was set for them.
func applyQuote(c *models.Client, trip *models.Trip, prices pricing.Table, now time.Time) error {
	if c.LapChild {
		if err := pricing.CheckLapChild(c.BirthDate, trip.ReferenceDate(now)); err != nil {
			return err
		}
	}
	q, err := pricing.QuoteFor(trip, c.BirthDate, pricing.Selection{Tier: c.PriceTier, CustomCents: c.CustomPriceCents}, prices, now)
	if err != nil {
		return err
	}
	c.Age = q.Age
	c.AgeBracket = q.Bracket
	c.PackageTotalCents = q.PriceCents
	if c.LapChild && c.CustomPriceCents == nil {
		c.PackageTotalCents = 0
	}
	c.PaymentStatus = billing.Rollup(c.PaidCents, c.PackageTotalCents)
	return nil
}

func sameQuote(a, b *models.Client) bool {
	sameAge := (a.Age == nil && b.Age == nil) || (a.Age != nil && b.Age != nil && *a.Age == *b.Age)
	return sameAge && a.AgeBracket == b.AgeBracket &&
		a.PackageTotalCents == b.PackageTotalCents && a.PaymentStatus == b.PaymentStatus
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
