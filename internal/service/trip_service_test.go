package service

import (
	"context"
	"testing"

	"viagens/internal/allocation"
	"viagens/internal/database"
	"viagens/internal/events"
	"viagens/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripService_CreateAllocatesSeatsAndRooms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	trip := &models.Trip{Title: " Gramado ", BusModel: models.BusDoubleDeck, TotalSeats: 10}
	require.NoError(t, env.trips.Create(ctx, trip))
	assert.Equal(t, "Gramado", trip.Title)

	view, err := env.trips.Occupancy(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, view.Seats, 10)
	for _, seat := range view.Seats {
		wantDeck := 1
		if seat.Number > 5 {
			wantDeck = 2
		}
		assert.Equal(t, wantDeck, seat.Deck, "seat %d", seat.Number)
		assert.Equal(t, allocation.PositionOf(seat.Number), seat.Position)
		assert.Equal(t, models.SeatAvailable, seat.Status)
	}
	require.Len(t, view.Rooms, 3)
	assert.Equal(t, 2, view.Rooms[0].Capacity)
	assert.Equal(t, "casal", view.Rooms[0].BedConfig)

	assert.Contains(t, env.events.seen(), events.EventTripCreated)
}

func TestTripService_CreateRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		trip *models.Trip
	}{
		{"NoTitle", &models.Trip{BusModel: models.BusSingleDeck, TotalSeats: 10}},
		{"VanTooLarge", &models.Trip{Title: "Van", BusModel: models.BusVan, TotalSeats: 25}},
		{"UnknownModel", &models.Trip{Title: "X", BusModel: "train", TotalSeats: 10}},
		{"NoSeats", &models.Trip{Title: "X", BusModel: models.BusSingleDeck}},
		{"NegativeTier", &models.Trip{Title: "X", BusModel: models.BusSingleDeck, TotalSeats: 4, PriceTiers: [3]int64{-1, 0, 0}}},
		{"ReturnBeforeDeparture", &models.Trip{
			Title: "X", BusModel: models.BusSingleDeck, TotalSeats: 4,
			DepartureDate: birth(2025, 7, 10), ReturnDate: birth(2025, 7, 1),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.trips.Create(ctx, tt.trip)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	trips, err := env.trips.List(ctx, models.TripFilter{})
	require.NoError(t, err)
	assert.Empty(t, trips)
}

func TestTripService_SetDynamicPricingMigratesClients(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 10, true)

	adult := &models.Client{Name: "Ana", TripID: trip.ID, BirthDate: birth(1990, 3, 10), PriceTier: 1}
	child := &models.Client{Name: "Bia", BirthDate: birth(2016, 1, 1)}
	baby := &models.Client{Name: "Caio", BirthDate: birth(2023, 5, 1), LapChild: true}
	require.NoError(t, env.clients.Create(ctx, adult, []*models.Client{child, baby}))

	assert.Equal(t, int64(150000), adult.PackageTotalCents)
	assert.Equal(t, int64(150000), child.PackageTotalCents)
	assert.Equal(t, int64(0), baby.PackageTotalCents)
	assert.Equal(t, models.BracketChild, child.AgeBracket)
	require.NotNil(t, child.Age)
	assert.Equal(t, 9, *child.Age)

	n, err := env.trips.SetDynamicPricing(ctx, trip.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := env.clients.Get(ctx, adult.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120000), got.PackageTotalCents)
	got, err = env.clients.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), got.PackageTotalCents)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)

	stored, err := env.trips.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.True(t, stored.DynamicPricing)

	// switching back restores the tier prices
	n, err = env.trips.SetDynamicPricing(ctx, trip.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err = env.clients.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), got.PackageTotalCents)

	assert.NotEmpty(t, env.pendingTasks(t, "sheets_roster"))
	assert.Contains(t, env.events.seen(), events.EventTripRepriced)

	_, err = env.trips.SetDynamicPricing(ctx, 9999, true)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestTripService_UpdateRecomputesAges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 10, false)

	// turns 12 on 2025-07-01, before the original departure
	teen := &models.Client{TripID: trip.ID, Name: "Davi", BirthDate: birth(2013, 7, 1)}
	require.NoError(t, env.clients.Create(ctx, teen, nil))
	assert.Equal(t, models.BracketAdult, teen.AgeBracket)

	dep := models.NewDate(2025, 6, 1)
	ret := models.NewDate(2025, 6, 8)
	update := *trip
	update.DepartureDate = &dep
	update.ReturnDate = &ret
	update.TotalSeats = 99
	update.DynamicPricing = true
	require.NoError(t, env.trips.Update(ctx, &update))
	assert.Equal(t, 10, update.TotalSeats)

	got, err := env.clients.Get(ctx, teen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BracketChild, got.AgeBracket)
	assert.Equal(t, 11, *got.Age)
	assert.Equal(t, int64(60000), got.PackageTotalCents)

	err = env.trips.Update(ctx, &models.Trip{ID: 9999, Title: "x"})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestTripService_SeatsRoomsAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.createTrip(t, 4, true)

	require.NoError(t, env.trips.BlockSeat(ctx, trip.ID, 2, true))
	assert.ErrorIs(t, env.trips.BlockSeat(ctx, trip.ID, 2, true), database.ErrSeatTaken)

	room := &models.Room{Label: "Suíte", Capacity: 4, BedConfig: "familia"}
	require.NoError(t, env.trips.AddRoom(ctx, trip.ID, room))
	assert.NotZero(t, room.ID)
	assert.ErrorIs(t, env.trips.AddRoom(ctx, trip.ID, &models.Room{Label: "", Capacity: 1}), ErrValidation)

	view, err := env.trips.Occupancy(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatBlocked, view.Seats[1].Status)
	assert.Len(t, view.Rooms, 4)

	env.createClient(t, trip.ID, "Ana")
	_, err = env.db.Exec(`UPDATE trips SET occupied_seats = 3 WHERE id = ?`, trip.ID)
	require.NoError(t, err)
	count, err := env.trips.Recount(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, env.trips.Delete(ctx, trip.ID))
	_, err = env.trips.Get(ctx, trip.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.ErrorIs(t, env.trips.Delete(ctx, trip.ID), database.ErrNotFound)
	_, err = env.trips.Occupancy(ctx, trip.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestTripService_CreateIsAllOrNothing(t *testing.T) {
	for _, table := range []string{"seats", "rooms"} {
		t.Run(table, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			env.failInserts(t, table)

			dep := models.NewDate(2025, 7, 15)
			trip := &models.Trip{
				Title: "Porto Seguro", DepartureDate: &dep, BusModel: models.BusDoubleDeck,
				TotalSeats: 40, PriceTiers: [3]int64{150000, 135000, 120000},
			}
			err := env.trips.Create(ctx, trip)
			require.Error(t, err)
			assert.Contains(t, err.Error(), table+" unavailable")

			trips, err := env.trips.List(ctx, models.TripFilter{})
			require.NoError(t, err)
			assert.Empty(t, trips)
			assert.Zero(t, env.count(t, "seats"))
			assert.Zero(t, env.count(t, "rooms"))
			assert.NotContains(t, env.events.seen(), events.EventTripCreated)
		})
	}
}
