package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"viagens/internal/config"
	"viagens/internal/database"
	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/models"
	"viagens/internal/pricing"
	"viagens/internal/worker"

	"github.com/rs/zerolog"
)

type ClientService struct {
	notifier
	db     *database.DB
	prices pricing.Table
	now    func() time.Time
}

func NewClientService(db *database.DB, prices pricing.Table, eventBus domain.EventPublisher, outbox domain.OutboxDispatcher, logger *zerolog.Logger) *ClientService {
	return &ClientService{
		notifier: newNotifier(eventBus, outbox, logger),
		db:       db,
		prices:   prices,
		now:      time.Now,
	}
}

// PricingTable builds the fixed age-bracket prices from configuration.
func PricingTable(cfg config.PricingConfig) pricing.Table {
	return pricing.Table{ChildCents: cfg.ChildPriceCents, AdultCents: cfg.AdultPriceCents}
}

func validateClient(c *models.Client) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if c.Name == "" {
		return invalid("client name is required")
	}
	if c.PriceTier < 0 || c.PriceTier > 3 {
		return invalidErr(pricing.ErrInvalidTier)
	}
	return nil
}

// Create registers a principal client and its companions on one trip. The
// whole party is priced, counted against the trip's seats and stored
// atomically: a full trip rejects everyone.
func (s *ClientService) Create(ctx context.Context, principal *models.Client, companions []*models.Client) error {
	var task *models.OutboxTask
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		var err error
		task, err = s.createParty(ctx, tx, principal, companions)
		return err
	})
	if err != nil {
		return err
	}
	s.partyCreated(ctx, task, principal, len(companions)+1)
	return nil
}

func (s *ClientService) createParty(ctx context.Context, tx *database.Store, principal *models.Client, companions []*models.Client) (*models.OutboxTask, error) {
	party := append([]*models.Client{principal}, companions...)
	for _, c := range party {
		if err := validateClient(c); err != nil {
			return nil, err
		}
		c.TripID = principal.TripID
		c.PaidCents = 0
		c.RoomID = nil
	}
	principal.PrincipalID = nil

	trip, err := tx.GetTrip(ctx, principal.TripID)
	if err != nil {
		return nil, err
	}

	occupants := 0
	for i, c := range party {
		if err := applyQuote(c, trip, s.prices, s.now()); err != nil {
			return nil, invalidErr(err)
		}
		if i > 0 {
			c.PrincipalID = &principal.ID
		}
		seat := c.SeatNumber
		c.SeatNumber = nil
		if err := tx.CreateClient(ctx, c); err != nil {
			return nil, err
		}
		if seat != nil {
			if err := assignSeat(ctx, tx, c, *seat); err != nil {
				return nil, err
			}
		}
		if c.OccupiesSeat() {
			occupants++
		}
	}

	if err := adjustOccupancy(ctx, tx, trip.ID, occupants); err != nil {
		return nil, err
	}
	return tx.EnqueueOutbox(ctx, worker.TaskSheetsRoster, trip.ID, rosterTask{TripID: trip.ID})
}

func (s *ClientService) partyCreated(ctx context.Context, task *models.OutboxTask, principal *models.Client, size int) {
	s.dispatch(ctx, task)
	s.logger.Info().Int64("client_id", principal.ID).Int64("trip_id", principal.TripID).Int("party", size).Msg("client created")
	s.publishEvent(ctx, events.EventClientCreated, events.Payload{
		Entity: "client", EntityID: principal.ID, TripID: principal.TripID, ClientID: principal.ID,
		AmountCents: principal.PackageTotalCents, Count: size, Detail: principal.Name,
	})
}

// AddCompanion registers one more traveller under an existing principal.
func (s *ClientService) AddCompanion(ctx context.Context, principalID int64, c *models.Client) error {
	principal, err := s.db.GetClient(ctx, principalID)
	if err != nil {
		return err
	}
	if principal.PrincipalID != nil {
		return invalid("client %d is itself a companion", principalID)
	}
	if err := validateClient(c); err != nil {
		return err
	}
	c.TripID = principal.TripID
	c.PrincipalID = &principal.ID
	c.PaidCents = 0
	c.RoomID = nil
	c.SeatNumber = nil

	var task *models.OutboxTask
	err = s.db.InTx(ctx, func(tx *database.Store) error {
		trip, err := tx.GetTrip(ctx, c.TripID)
		if err != nil {
			return err
		}
		if err := applyQuote(c, trip, s.prices, s.now()); err != nil {
			return invalidErr(err)
		}
		if err := tx.CreateClient(ctx, c); err != nil {
			return err
		}
		if c.OccupiesSeat() {
			if err := adjustOccupancy(ctx, tx, trip.ID, 1); err != nil {
				return err
			}
		}
		task, err = tx.EnqueueOutbox(ctx, worker.TaskSheetsRoster, trip.ID, rosterTask{TripID: trip.ID})
		return err
	})
	if err != nil {
		return err
	}

	s.dispatch(ctx, task)
	s.publishEvent(ctx, events.EventClientCreated, events.Payload{
		Entity: "client", EntityID: c.ID, TripID: c.TripID, ClientID: c.ID, Count: 1, Detail: c.Name,
	})
	return nil
}

func (s *ClientService) Get(ctx context.Context, id int64) (*models.Client, error) {
	return s.db.GetClient(ctx, id)
}

func (s *ClientService) List(ctx context.Context, filter models.ClientFilter) ([]*models.Client, error) {
	return s.db.ListClients(ctx, filter)
}

func (s *ClientService) ListByTrip(ctx context.Context, tripID int64) ([]*models.Client, error) {
	if _, err := s.db.GetTrip(ctx, tripID); err != nil {
		return nil, err
	}
	return s.db.ListClients(ctx, models.ClientFilter{TripID: tripID})
}

// Update saves personal data and recomputes age, bracket, price and payment
// status. Switching the lap-child flag moves the trip occupancy.
func (s *ClientService) Update(ctx context.Context, c *models.Client) error {
	if err := validateClient(c); err != nil {
		return err
	}

	var task *models.OutboxTask
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		current, err := tx.GetClient(ctx, c.ID)
		if err != nil {
			return err
		}
		c.TripID = current.TripID
		c.PaidCents = current.PaidCents
		c.SeatNumber = current.SeatNumber
		c.RoomID = current.RoomID
		c.CreatedAt = current.CreatedAt

		if c.PrincipalID != nil {
			if err := checkPrincipal(ctx, tx, c); err != nil {
				return err
			}
		}

		trip, err := tx.GetTrip(ctx, c.TripID)
		if err != nil {
			return err
		}
		if err := applyQuote(c, trip, s.prices, s.now()); err != nil {
			return invalidErr(err)
		}

		switch {
		case current.LapChild && !c.LapChild:
			if err := adjustOccupancy(ctx, tx, trip.ID, 1); err != nil {
				return err
			}
		case !current.LapChild && c.LapChild:
			if err := adjustOccupancy(ctx, tx, trip.ID, -1); err != nil {
				return err
			}
			if err := releaseSeat(ctx, tx, c.ID); err != nil {
				return err
			}
			c.SeatNumber = nil
		}

		if err := tx.UpdateClient(ctx, c); err != nil {
			return err
		}
		task, err = tx.EnqueueOutbox(ctx, worker.TaskSheetsRoster, trip.ID, rosterTask{TripID: trip.ID})
		return err
	})
	if err != nil {
		return err
	}

	s.dispatch(ctx, task)
	s.publishEvent(ctx, events.EventClientUpdated, events.Payload{
		Entity: "client", EntityID: c.ID, TripID: c.TripID, ClientID: c.ID, Detail: c.Name,
	})
	return nil
}

// Delete removes a client, frees its seat and occupancy and turns its
// companions into principals of their own.
func (s *ClientService) Delete(ctx context.Context, id int64) error {
	var (
		client *models.Client
		task   *models.OutboxTask
	)
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		var err error
		client, err = tx.GetClient(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ReleaseSeats(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DetachCompanions(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteClient(ctx, id); err != nil {
			return err
		}
		if client.OccupiesSeat() {
			if err := tx.AdjustOccupancy(ctx, client.TripID, -1); err != nil {
				return err
			}
		}
		task, err = tx.EnqueueOutbox(ctx, worker.TaskSheetsRoster, client.TripID, rosterTask{TripID: client.TripID})
		return err
	})
	if err != nil {
		return err
	}

	s.dispatch(ctx, task)
	s.logger.Info().Int64("client_id", id).Int64("trip_id", client.TripID).Msg("client deleted")
	s.publishEvent(ctx, events.EventClientDeleted, events.Payload{
		Entity: "client", EntityID: id, TripID: client.TripID, ClientID: id, Detail: client.Name,
	})
	return nil
}

// AssignSeat moves the client to seat number, releasing any seat it held.
func (s *ClientService) AssignSeat(ctx context.Context, clientID int64, number int) error {
	var client *models.Client
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		var err error
		client, err = tx.GetClient(ctx, clientID)
		if err != nil {
			return err
		}
		return assignSeat(ctx, tx, client, number)
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.EventSeatAssigned, events.Payload{
		Entity: "seat", EntityID: int64(number), TripID: client.TripID, ClientID: clientID,
	})
	return nil
}

func (s *ClientService) ReleaseSeat(ctx context.Context, clientID int64) error {
	var client *models.Client
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		var err error
		client, err = tx.GetClient(ctx, clientID)
		if err != nil {
			return err
		}
		return releaseSeat(ctx, tx, clientID)
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.EventSeatReleased, events.Payload{
		Entity: "seat", TripID: client.TripID, ClientID: clientID,
	})
	return nil
}

// AssignRoom puts the client in a room of its trip; a nil roomID clears the
// assignment. Lap children share a bed and fit in a full room.
func (s *ClientService) AssignRoom(ctx context.Context, clientID int64, roomID *int64) error {
	var client *models.Client
	err := s.db.InTx(ctx, func(tx *database.Store) error {
		var err error
		client, err = tx.GetClient(ctx, clientID)
		if err != nil {
			return err
		}
		if roomID == nil {
			return tx.SetClientRoom(ctx, clientID, nil)
		}

		room, err := tx.GetRoom(ctx, *roomID)
		if err != nil {
			return err
		}
		if room.TripID != client.TripID {
			return ErrWrongTrip
		}
		alreadyThere := client.RoomID != nil && *client.RoomID == room.ID
		if client.OccupiesSeat() && !alreadyThere && room.Free() == 0 {
			return ErrRoomFull
		}
		return tx.SetClientRoom(ctx, clientID, roomID)
	})
	if err != nil {
		return err
	}

	var entityID int64
	if roomID != nil {
		entityID = *roomID
	}
	s.publishEvent(ctx, events.EventRoomAssigned, events.Payload{
		Entity: "room", EntityID: entityID, TripID: client.TripID, ClientID: clientID,
	})
	return nil
}

func assignSeat(ctx context.Context, tx *database.Store, c *models.Client, number int) error {
	if !c.OccupiesSeat() {
		return ErrLapChildSeat
	}
	if c.SeatNumber != nil && *c.SeatNumber == number {
		return nil
	}
	if _, err := tx.ReleaseSeats(ctx, c.ID); err != nil {
		return err
	}
	if err := tx.AssignSeat(ctx, c.TripID, number, c.ID); err != nil {
		return err
	}
	if err := tx.SetClientSeat(ctx, c.ID, &number); err != nil {
		return err
	}
	c.SeatNumber = &number
	return nil
}

func releaseSeat(ctx context.Context, tx *database.Store, clientID int64) error {
	if _, err := tx.ReleaseSeats(ctx, clientID); err != nil {
		return err
	}
	return tx.SetClientSeat(ctx, clientID, nil)
}

func adjustOccupancy(ctx context.Context, tx *database.Store, tripID int64, delta int) error {
	if delta == 0 {
		return nil
	}
	err := tx.AdjustOccupancy(ctx, tripID, delta)
	if errors.Is(err, database.ErrCapacityExceeded) {
		return ErrTripFull
	}
	return err
}

func checkPrincipal(ctx context.Context, tx *database.Store, c *models.Client) error {
	if *c.PrincipalID == c.ID {
		return invalid("client cannot be its own principal")
	}
	principal, err := tx.GetClient(ctx, *c.PrincipalID)
	if err != nil {
		if isNotFound(err) {
			return invalid("principal client %d not found", *c.PrincipalID)
		}
		return err
	}
	if principal.TripID != c.TripID {
		return ErrWrongTrip
	}
	if principal.PrincipalID != nil {
		return invalid("client %d is itself a companion", principal.ID)
	}
	led, err := tx.ListClients(ctx, models.ClientFilter{PrincipalID: c.ID})
	if err != nil {
		return err
	}
	if len(led) > 0 {
		return invalid("client %d leads a party of %d and cannot join another", c.ID, len(led))
	}
	return nil
}
