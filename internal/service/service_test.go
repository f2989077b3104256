package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"viagens/internal/config"
	"viagens/internal/database"
	"viagens/internal/docs"
	"viagens/internal/events"
	"viagens/internal/models"
	"viagens/internal/notify"
	"viagens/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, task *models.OutboxTask) {
	m.Called(ctx, task)
}

// tasksOf returns the dispatched task types in order.
func (m *mockDispatcher) tasksOf() []string {
	var types []string
	for _, call := range m.Calls {
		types = append(types, call.Arguments.Get(1).(*models.OutboxTask).TaskType)
	}
	return types
}

type eventLog struct {
	mu    sync.Mutex
	types []string
}

func (l *eventLog) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.types...)
}

var testPrices = pricing.Table{ChildCents: 60000, AdultCents: 120000}

// testNow is before every departure used in the tests.
var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	db         *database.DB
	bus        *events.EventBus
	events     *eventLog
	dispatcher *mockDispatcher
	render     *notify.Renderer
	docs       *docs.Generator
	trips      *TripService
	clients    *ClientService
	billing    *BillingService
	company    *CompanyService
	intake     *IntakeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:         db,
		bus:        events.NewEventBus(),
		events:     &eventLog{},
		dispatcher: &mockDispatcher{},
		render:     notify.NewRenderer("pt-BR"),
	}
	env.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()
	env.bus.Subscribe(events.All, func(e *events.Event) error {
		env.events.mu.Lock()
		env.events.types = append(env.events.types, e.Type)
		env.events.mu.Unlock()
		return nil
	})
	env.docs = docs.NewGenerator(env.render, "test-secret")

	layout := config.LayoutConfig{RoomCount: 3, RoomCapacity: 2, BedConfig: "casal"}
	env.trips = NewTripService(db, layout, testPrices, env.bus, env.dispatcher, &logger)
	env.trips.now = func() time.Time { return testNow }
	env.clients = NewClientService(db, testPrices, env.bus, env.dispatcher, &logger)
	env.clients.now = func() time.Time { return testNow }
	env.company = NewCompanyService(db, config.CompanyConfig{FetchRetries: 1, FetchRetryDelay: time.Millisecond}, env.bus, &logger)
	env.billing = NewBillingService(db, config.BillingConfig{DefaultMethod: "pix"}, env.company, env.render, env.docs, env.bus, env.dispatcher, &logger)
	env.billing.now = func() time.Time { return testNow }
	env.intake = NewIntakeService(db, env.clients, env.render, env.bus, env.dispatcher, &logger)
	env.intake.now = func() time.Time { return testNow }
	return env
}

func (e *testEnv) createTrip(t *testing.T, seats int, published bool) *models.Trip {
	t.Helper()
	dep := models.NewDate(2025, 7, 15)
	ret := models.NewDate(2025, 7, 22)
	trip := &models.Trip{
		Title:         "Porto Seguro",
		Destination:   "Porto Seguro - BA",
		DepartureDate: &dep,
		ReturnDate:    &ret,
		BusModel:      models.BusSingleDeck,
		TotalSeats:    seats,
		PriceTiers:    [3]int64{150000, 135000, 120000},
		Published:     published,
	}
	require.NoError(t, e.trips.Create(context.Background(), trip))
	return trip
}

func (e *testEnv) createClient(t *testing.T, tripID int64, name string) *models.Client {
	t.Helper()
	c := &models.Client{TripID: tripID, Name: name, Email: "cliente@example.com", PriceTier: 1}
	require.NoError(t, e.clients.Create(context.Background(), c, nil))
	return c
}

func birth(y int, m time.Month, d int) *models.Date {
	date := models.NewDate(y, m, d)
	return &date
}

func (e *testEnv) occupied(t *testing.T, tripID int64) int {
	t.Helper()
	trip, err := e.db.GetTrip(context.Background(), tripID)
	require.NoError(t, err)
	return trip.OccupiedSeats
}

func (e *testEnv) pendingTasks(t *testing.T, taskType string) []models.OutboxTask {
	t.Helper()
	tasks, err := e.db.GetPendingOutboxTasks(context.Background(), 100)
	require.NoError(t, err)
	var out []models.OutboxTask
	for _, task := range tasks {
		if task.TaskType == taskType {
			out = append(out, task)
		}
	}
	return out
}

// failInserts makes every insert into table abort until the test ends.
func (e *testEnv) failInserts(t *testing.T, table string) {
	t.Helper()
	ctx := context.Background()
	name := "fail_" + table
	_, err := e.db.ExecContext(ctx, `CREATE TRIGGER `+name+` BEFORE INSERT ON `+table+`
        BEGIN SELECT RAISE(ABORT, '`+table+` unavailable'); END`)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = e.db.ExecContext(ctx, `DROP TRIGGER IF EXISTS `+name) })
}

func (e *testEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
