package service

import (
	"context"
	"testing"

	"viagens/internal/database"
	"viagens/internal/events"
	"viagens/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordService_SupplierLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logger := zerolog.Nop()
	suppliers := NewRecordService[models.Supplier](env.db, ValidateSupplier, env.bus, &logger)
	assert.Equal(t, models.KindSupplier, suppliers.Kind())

	hotel := &models.Supplier{Name: " Hotel Mar Azul ", Category: "hotel", City: "Porto Seguro", Active: true}
	require.NoError(t, suppliers.Create(ctx, hotel))
	assert.NotZero(t, hotel.ID)
	assert.Equal(t, "Hotel Mar Azul", hotel.Name)

	assert.ErrorIs(t, suppliers.Create(ctx, &models.Supplier{Name: " "}), ErrValidation)
	assert.ErrorIs(t, suppliers.Create(ctx, nil), ErrValidation)

	require.NoError(t, suppliers.BulkCreate(ctx, []*models.Supplier{
		{Name: "Viação Real", Category: "transporte", Active: true},
		{Name: "Guia Local", Category: "guia"},
	}))

	all, err := suppliers.List(ctx, "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	transport, err := suppliers.List(ctx, "category", "transporte")
	require.NoError(t, err)
	require.Len(t, transport, 1)
	assert.Equal(t, "Viação Real", transport[0].Name)

	_, err = suppliers.List(ctx, "name'); DROP TABLE records; --", "x")
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, database.ErrInvalidField)

	created := hotel.CreatedAt
	update := &models.Supplier{Name: "Hotel Mar Azul Resort", Category: "hotel"}
	require.NoError(t, suppliers.Update(ctx, hotel.ID, update))
	got, err := suppliers.Get(ctx, hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hotel Mar Azul Resort", got.Name)
	assert.False(t, got.Active)
	assert.True(t, created.Equal(got.CreatedAt))

	assert.ErrorIs(t, suppliers.Update(ctx, 9999, update), database.ErrNotFound)

	require.NoError(t, suppliers.Delete(ctx, hotel.ID))
	_, err = suppliers.Get(ctx, hotel.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.ErrorIs(t, suppliers.Delete(ctx, hotel.ID), database.ErrNotFound)

	assert.Contains(t, env.events.seen(), events.EventRecordChanged)
}

func TestRecordService_BulkCreateIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	staff := NewRecordService[models.StaffMember](env.db, ValidateStaffMember, env.bus, nil)

	err := staff.BulkCreate(ctx, []*models.StaffMember{
		{Name: "Carlos", Role: "motorista", DailyRateCents: 25000},
		{Name: "Débora", Role: "guia", DailyRateCents: -1},
	})
	assert.ErrorIs(t, err, ErrValidation)

	all, err := staff.List(ctx, "", nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecordValidators(t *testing.T) {
	tripID := int64(1)
	tests := []struct {
		name  string
		check func() error
		valid bool
	}{
		{"ExpenseOK", func() error {
			return ValidateExpense(&models.CompanyExpense{Description: "Pedágio", Category: " Transporte ", AmountCents: 4500, Date: models.NewDate(2025, 7, 15), TripID: &tripID})
		}, true},
		{"ExpenseZeroAmount", func() error {
			return ValidateExpense(&models.CompanyExpense{Description: "x", AmountCents: 0, Date: models.NewDate(2025, 7, 15)})
		}, false},
		{"ExpenseNoDate", func() error {
			return ValidateExpense(&models.CompanyExpense{Description: "x", AmountCents: 10})
		}, false},
		{"ContactDefaultsToNew", func() error {
			return ValidateContact(&models.Contact{Name: "Ana"})
		}, true},
		{"ContactUnknownStatus", func() error {
			return ValidateContact(&models.Contact{Name: "Ana", Status: "spam"})
		}, false},
		{"ContractFormUnknownStatus", func() error {
			f := contractForm(1)
			f.Status = "lost"
			return ValidateContractForm(f)
		}, false},
		{"ContractFormOK", func() error {
			return ValidateContractForm(contractForm(1))
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}

	e := &models.CompanyExpense{Description: "Pedágio", Category: " Transporte ", AmountCents: 4500, Date: models.NewDate(2025, 7, 15)}
	require.NoError(t, ValidateExpense(e))
	assert.Equal(t, "transporte", e.Category)
}
