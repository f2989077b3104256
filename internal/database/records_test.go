package database

import (
	"context"
	"testing"

	"viagens/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	suppliers := Records[models.Supplier](db.Store)
	assert.Equal(t, models.KindSupplier, suppliers.Kind())

	hotel := &models.Supplier{Name: "Hotel Mar Azul", Category: "hotel", City: "Porto Seguro", Active: true}
	require.NoError(t, suppliers.Create(ctx, hotel))
	assert.NotZero(t, hotel.ID)
	assert.False(t, hotel.CreatedAt.IsZero())

	bus := &models.Supplier{Name: "Viação Sol", Category: "transporte"}
	require.NoError(t, suppliers.Create(ctx, bus))

	t.Run("Get", func(t *testing.T) {
		got, err := suppliers.Get(ctx, hotel.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hotel Mar Azul", got.Name)
		assert.Equal(t, hotel.ID, got.ID)

		_, err = suppliers.Get(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Filter", func(t *testing.T) {
		got, err := suppliers.Filter(ctx, "category", "hotel")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, hotel.ID, got[0].ID)

		active, err := suppliers.Filter(ctx, "active", true)
		require.NoError(t, err)
		assert.Len(t, active, 1)

		_, err = suppliers.Filter(ctx, "name') OR 1=1 --", "x")
		assert.ErrorIs(t, err, ErrInvalidField)
	})

	t.Run("Update", func(t *testing.T) {
		bus.Active = true
		require.NoError(t, suppliers.Update(ctx, bus))
		got, err := suppliers.Get(ctx, bus.ID)
		require.NoError(t, err)
		assert.True(t, got.Active)

		ghost := &models.Supplier{RecordMeta: models.RecordMeta{ID: 999}}
		assert.ErrorIs(t, suppliers.Update(ctx, ghost), ErrNotFound)
	})

	t.Run("KindsAreIsolated", func(t *testing.T) {
		staff := Records[models.StaffMember](db.Store)
		_, err := staff.Get(ctx, hotel.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		list, err := staff.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("BulkCreateInTx", func(t *testing.T) {
		expenses := []*models.CompanyExpense{
			{Description: "Combustível", Category: "transporte", AmountCents: 80000, Date: models.NewDate(2025, 7, 1)},
			{Description: "Guia", Category: "pessoal", AmountCents: 30000, Date: models.NewDate(2025, 7, 2)},
		}
		err := db.InTx(ctx, func(tx *Store) error {
			return Records[models.CompanyExpense](tx).BulkCreate(ctx, expenses)
		})
		require.NoError(t, err)

		list, err := Records[models.CompanyExpense](db.Store).List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "2025-07-02", list[1].Date.String())
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, suppliers.Delete(ctx, hotel.ID))
		assert.ErrorIs(t, suppliers.Delete(ctx, hotel.ID), ErrNotFound)
		list, err := suppliers.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
