package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"viagens/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()

	t.Run("CreateTrip_Error", func(t *testing.T) {
		assert.Error(t, db.CreateTrip(ctx, &models.Trip{}))
	})

	t.Run("ListClients_Error", func(t *testing.T) {
		_, err := db.ListClients(ctx, models.ClientFilter{})
		assert.Error(t, err)
	})

	t.Run("CreateOutboxTask_Error", func(t *testing.T) {
		assert.Error(t, db.CreateOutboxTask(ctx, &models.OutboxTask{}))
	})

	t.Run("InTx_Error", func(t *testing.T) {
		err := db.InTx(ctx, func(*Store) error { return nil })
		assert.Error(t, err)
	})
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &Store{q: sqlDB}, mock
}

func TestStore_DriverErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	t.Run("GetTripWrapsError", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT .* FROM trips WHERE id = ?").WithArgs(int64(1)).WillReturnError(boom)

		_, err := s.GetTrip(ctx, 1)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AdjustOccupancyFull", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE trips SET occupied_seats").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT .* FROM trips WHERE id = ?").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "title", "destination", "departure_date", "return_date", "bus_model", "total_seats",
				"dynamic_pricing", "price_tier1", "price_tier2", "price_tier3", "occupied_seats",
				"published", "notes", "created_at", "updated_at",
			}).AddRow(1, "t", "", nil, nil, "van", 2, false, 0, 0, 0, 2, false, "", time.Now(), time.Now()))

		err := s.AdjustOccupancy(ctx, 1, 1)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RowsAffectedError", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("DELETE FROM clients").WillReturnResult(sqlmock.NewErrorResult(boom))

		err := s.DeleteClient(ctx, 1)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("CreateUserUniqueViolation", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO users").
			WillReturnError(errors.New("UNIQUE constraint failed: users.email"))

		err := s.CreateUser(ctx, &models.User{Email: "a@b.com"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("MarkOverdueUpdateFails", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id FROM installments").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
		mock.ExpectExec("UPDATE installments SET status").WillReturnError(boom)

		_, err := s.MarkOverdue(ctx, models.NewDate(2024, 1, 1))
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CorruptRecord", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id, data, created_at, updated_at FROM records").
			WillReturnRows(sqlmock.NewRows([]string{"id", "data", "created_at", "updated_at"}).
				AddRow(int64(1), "{not json", time.Now(), time.Now()))

		_, err := Records[models.Contact](s).List(ctx)
		assert.Error(t, err)
	})
}
