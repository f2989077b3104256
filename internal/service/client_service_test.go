package service

import (
	"context"
	"testing"

	"viagens/internal/database"
	"viagens/internal/events"
	"viagens/internal/models"
	"viagens/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientService_CreateParty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 10, true)

	seat := 3
	principal := &models.Client{TripID: trip.ID, Name: " Ana ", PriceTier: 2, SeatNumber: &seat}
	companion := &models.Client{Name: "Beto", PriceTier: 3}
	baby := &models.Client{Name: "Caio", BirthDate: birth(2024, 1, 10), LapChild: true}
	require.NoError(t, env.clients.Create(ctx, principal, []*models.Client{companion, baby}))

	assert.Equal(t, "Ana", principal.Name)
	assert.Nil(t, principal.PrincipalID)
	assert.Equal(t, int64(135000), principal.PackageTotalCents)
	assert.Equal(t, models.PaymentPending, principal.PaymentStatus)
	require.NotNil(t, principal.SeatNumber)
	assert.Equal(t, 3, *principal.SeatNumber)

	require.NotNil(t, companion.PrincipalID)
	assert.Equal(t, principal.ID, *companion.PrincipalID)
	assert.Equal(t, trip.ID, companion.TripID)
	assert.Equal(t, int64(120000), companion.PackageTotalCents)

	assert.Equal(t, int64(0), baby.PackageTotalCents)
	assert.Equal(t, models.BracketExempt, baby.AgeBracket)
	// a zero total is already settled
	assert.Equal(t, models.PaymentPaid, baby.PaymentStatus)

	assert.Equal(t, 2, env.occupied(t, trip.ID))

	view, err := env.trips.Occupancy(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatOccupied, view.Seats[2].Status)
	require.NotNil(t, view.Seats[2].ClientID)
	assert.Equal(t, principal.ID, *view.Seats[2].ClientID)

	assert.Len(t, env.pendingTasks(t, "sheets_roster"), 1)
	assert.Contains(t, env.dispatcher.tasksOf(), "sheets_roster")
	assert.Contains(t, env.events.seen(), events.EventClientCreated)
}

func TestClientService_CreateRejectsFullTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 2, true)
	env.createClient(t, trip.ID, "Ana")

	principal := &models.Client{TripID: trip.ID, Name: "Beto"}
	companion := &models.Client{Name: "Carla"}
	err := env.clients.Create(ctx, principal, []*models.Client{companion})
	assert.ErrorIs(t, err, ErrTripFull)

	clients, err := env.clients.ListByTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Len(t, clients, 1)
	assert.Equal(t, 1, env.occupied(t, trip.ID))

	// a lap child still fits on a full trip
	require.NoError(t, env.clients.Create(ctx, &models.Client{TripID: trip.ID, Name: "Davi"}, nil))
	baby := &models.Client{Name: "Eva", BirthDate: birth(2023, 9, 1), LapChild: true}
	clients, err = env.clients.ListByTrip(ctx, trip.ID)
	require.NoError(t, err)
	require.NoError(t, env.clients.AddCompanion(ctx, clients[0].ID, baby))
	assert.Equal(t, 2, env.occupied(t, trip.ID))
}

func TestClientService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 10, true)

	tests := []struct {
		name   string
		client *models.Client
		target error
	}{
		{"NoName", &models.Client{TripID: trip.ID}, ErrValidation},
		{"BadTier", &models.Client{TripID: trip.ID, Name: "A", PriceTier: 4}, pricing.ErrInvalidTier},
		{"LapTooOld", &models.Client{TripID: trip.ID, Name: "A", BirthDate: birth(2015, 1, 1), LapChild: true}, pricing.ErrLapChildTooOld},
		{"LapWithoutBirth", &models.Client{TripID: trip.ID, Name: "A", LapChild: true}, pricing.ErrLapChildTooOld},
		{"BornAfterDeparture", &models.Client{TripID: trip.ID, Name: "A", BirthDate: birth(2025, 8, 1)}, pricing.ErrBirthDateInFuture},
		{"UnknownTrip", &models.Client{TripID: 9999, Name: "A"}, database.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.clients.Create(ctx, tt.client, nil)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	clients, err := env.clients.ListByTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Empty(t, clients)
	assert.Equal(t, 0, env.occupied(t, trip.ID))
}

func TestClientService_DeleteDetachesCompanions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 10, true)

	seat := 1
	principal := &models.Client{TripID: trip.ID, Name: "Ana", SeatNumber: &seat}
	companion := &models.Client{Name: "Beto"}
	require.NoError(t, env.clients.Create(ctx, principal, []*models.Client{companion}))
	require.Equal(t, 2, env.occupied(t, trip.ID))

	require.NoError(t, env.clients.Delete(ctx, principal.ID))
	assert.Equal(t, 1, env.occupied(t, trip.ID))

	got, err := env.clients.Get(ctx, companion.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PrincipalID)

	seatRow, err := env.db.GetSeat(ctx, trip.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SeatAvailable, seatRow.Status)
	assert.Nil(t, seatRow.ClientID)

	assert.ErrorIs(t, env.clients.Delete(ctx, principal.ID), database.ErrNotFound)
	assert.Contains(t, env.events.seen(), events.EventClientDeleted)
}

func TestClientService_AssignSeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 4, true)
	ana := env.createClient(t, trip.ID, "Ana")
	beto := env.createClient(t, trip.ID, "Beto")

	require.NoError(t, env.clients.AssignSeat(ctx, ana.ID, 1))
	assert.ErrorIs(t, env.clients.AssignSeat(ctx, beto.ID, 1), database.ErrSeatTaken)
	assert.ErrorIs(t, env.clients.AssignSeat(ctx, beto.ID, 9), database.ErrNotFound)

	// moving releases the previous seat
	require.NoError(t, env.clients.AssignSeat(ctx, ana.ID, 2))
	first, err := env.db.GetSeat(ctx, trip.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SeatAvailable, first.Status)
	got, err := env.clients.Get(ctx, ana.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SeatNumber)
	assert.Equal(t, 2, *got.SeatNumber)

	require.NoError(t, env.trips.BlockSeat(ctx, trip.ID, 3, true))
	assert.ErrorIs(t, env.clients.AssignSeat(ctx, beto.ID, 3), database.ErrSeatTaken)

	baby := &models.Client{Name: "Caio", BirthDate: birth(2023, 1, 1), LapChild: true}
	require.NoError(t, env.clients.AddCompanion(ctx, ana.ID, baby))
	assert.ErrorIs(t, env.clients.AssignSeat(ctx, baby.ID, 4), ErrLapChildSeat)

	require.NoError(t, env.clients.ReleaseSeat(ctx, ana.ID))
	got, err = env.clients.Get(ctx, ana.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SeatNumber)
	assert.Contains(t, env.events.seen(), events.EventSeatReleased)
}

func TestClientService_AssignRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 10, true)
	other := env.createTrip(t, 10, true)

	view, err := env.trips.Occupancy(ctx, trip.ID)
	require.NoError(t, err)
	roomID := view.Rooms[0].ID

	ana := env.createClient(t, trip.ID, "Ana")
	beto := env.createClient(t, trip.ID, "Beto")
	carla := env.createClient(t, trip.ID, "Carla")
	stranger := env.createClient(t, other.ID, "Davi")

	require.NoError(t, env.clients.AssignRoom(ctx, ana.ID, &roomID))
	require.NoError(t, env.clients.AssignRoom(ctx, beto.ID, &roomID))
	assert.ErrorIs(t, env.clients.AssignRoom(ctx, carla.ID, &roomID), ErrRoomFull)
	// reassigning an occupant to its own full room is a no-op
	require.NoError(t, env.clients.AssignRoom(ctx, beto.ID, &roomID))
	assert.ErrorIs(t, env.clients.AssignRoom(ctx, stranger.ID, &roomID), ErrWrongTrip)

	baby := &models.Client{Name: "Eva", BirthDate: birth(2024, 2, 1), LapChild: true}
	require.NoError(t, env.clients.AddCompanion(ctx, ana.ID, baby))
	require.NoError(t, env.clients.AssignRoom(ctx, baby.ID, &roomID))

	missing := int64(9999)
	assert.ErrorIs(t, env.clients.AssignRoom(ctx, carla.ID, &missing), database.ErrNotFound)

	require.NoError(t, env.clients.AssignRoom(ctx, beto.ID, nil))
	require.NoError(t, env.clients.AssignRoom(ctx, carla.ID, &roomID))
	got, err := env.clients.Get(ctx, carla.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RoomID)
	assert.Equal(t, roomID, *got.RoomID)
}

func TestClientService_UpdateLapFlagMovesOccupancy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 10, true)

	seat := 5
	kid := &models.Client{TripID: trip.ID, Name: "Caio", BirthDate: birth(2022, 6, 1), SeatNumber: &seat}
	require.NoError(t, env.clients.Create(ctx, kid, nil))
	require.Equal(t, 1, env.occupied(t, trip.ID))
	assert.Equal(t, int64(150000), kid.PackageTotalCents)

	update := *kid
	update.LapChild = true
	require.NoError(t, env.clients.Update(ctx, &update))
	assert.Equal(t, 0, env.occupied(t, trip.ID))
	assert.Nil(t, update.SeatNumber)
	assert.Equal(t, int64(0), update.PackageTotalCents)

	seatRow, err := env.db.GetSeat(ctx, trip.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, models.SeatAvailable, seatRow.Status)

	update.LapChild = false
	require.NoError(t, env.clients.Update(ctx, &update))
	assert.Equal(t, 1, env.occupied(t, trip.ID))
	assert.Equal(t, int64(150000), update.PackageTotalCents)
}

func TestClientService_UpdateKeepsPaidAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 10, true)
	ana := env.createClient(t, trip.ID, "Ana")

	require.NoError(t, env.billing.RecordPayment(ctx, &models.Payment{ClientID: ana.ID, AmountCents: 50000}))

	update := *ana
	update.PaidCents = 0
	update.PriceTier = 3
	require.NoError(t, env.clients.Update(ctx, &update))
	assert.Equal(t, int64(50000), update.PaidCents)
	assert.Equal(t, int64(120000), update.PackageTotalCents)
	assert.Equal(t, models.PaymentPartial, update.PaymentStatus)

	custom := int64(50000)
	update.CustomPriceCents = &custom
	require.NoError(t, env.clients.Update(ctx, &update))
	assert.Equal(t, models.PaymentPaid, update.PaymentStatus)
}

func TestClientService_UpdatePrincipalChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 10, true)
	other := env.createTrip(t, 10, true)
	ana := env.createClient(t, trip.ID, "Ana")
	beto := env.createClient(t, trip.ID, "Beto")
	stranger := env.createClient(t, other.ID, "Davi")

	self := *ana
	self.PrincipalID = &ana.ID
	assert.ErrorIs(t, env.clients.Update(ctx, &self), ErrValidation)

	cross := *beto
	cross.PrincipalID = &stranger.ID
	assert.ErrorIs(t, env.clients.Update(ctx, &cross), ErrWrongTrip)

	ok := *beto
	ok.PrincipalID = &ana.ID
	require.NoError(t, env.clients.Update(ctx, &ok))

	companions, err := env.clients.List(ctx, models.ClientFilter{PrincipalID: ana.ID})
	require.NoError(t, err)
	require.Len(t, companions, 1)
	assert.Equal(t, beto.ID, companions[0].ID)

	// a companion cannot lead another party
	assert.ErrorIs(t, env.clients.AddCompanion(ctx, beto.ID, &models.Client{Name: "Eva"}), ErrValidation)
	nested := *ana
	nested.PrincipalID = &beto.ID
	assert.ErrorIs(t, env.clients.Update(ctx, &nested), ErrValidation)

	// nor can a party leader join someone else's party
	carla := env.createClient(t, trip.ID, "Carla")
	leader := *ana
	leader.PrincipalID = &carla.ID
	assert.ErrorIs(t, env.clients.Update(ctx, &leader), ErrValidation)

	got, err := env.clients.Get(ctx, ana.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PrincipalID)
	companions, err = env.clients.List(ctx, models.ClientFilter{PrincipalID: carla.ID})
	require.NoError(t, err)
	assert.Empty(t, companions)
}
