package billing

import (
	"testing"
	"time"

	"viagens/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_WorkedExample(t *testing.T) {
	items, err := Generate(Plan{
		ClientID:   7,
		TotalCents: 120000,
		Count:      3,
		FirstDue:   models.NewDate(2024, 1, 10),
		Method:     " boleto ",
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	wantDue := []string{"2024-01-10", "2024-02-10", "2024-03-10"}
	for i, it := range items {
		assert.Equal(t, int64(40000), it.AmountCents)
		assert.Equal(t, wantDue[i], it.DueDate.String())
		assert.Equal(t, i+1, it.Sequence)
		assert.Equal(t, 3, it.Count)
		assert.Equal(t, models.InstallmentPending, it.Status)
		assert.Equal(t, int64(7), it.ClientID)
		assert.Equal(t, "boleto", it.Method)
	}
}

func TestGenerate_SumAndOrdering(t *testing.T) {
	for count := MinInstallments; count <= MaxInstallments; count++ {
		for _, total := range []int64{100001, 99999, 1, 2, 120000, 777777} {
			items, err := Generate(Plan{TotalCents: total, Count: count, FirstDue: models.NewDate(2024, 1, 31)})
			require.NoError(t, err)
			require.Len(t, items, count)
			assert.Equal(t, total, Sum(items), "count=%d total=%d", count, total)

			for i := 1; i < len(items); i++ {
				assert.True(t, items[i-1].DueDate.Before(items[i].DueDate), "due dates must increase")
				assert.LessOrEqual(t, items[i-1].AmountCents, items[i].AmountCents)
			}
		}
	}
}

func TestGenerate_MonthEndClamp(t *testing.T) {
	items, err := Generate(Plan{TotalCents: 400, Count: 4, FirstDue: models.NewDate(2024, 1, 31)})
	require.NoError(t, err)

	got := make([]string, 0, len(items))
	for _, it := range items {
		got = append(got, it.DueDate.String())
	}
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}, got)
}

func TestGenerate_Rejects(t *testing.T) {
	due := models.NewDate(2024, 1, 10)

	for _, count := range []int{-1, 0, 1, 13, 24} {
		_, err := Generate(Plan{TotalCents: 1000, Count: count, FirstDue: due})
		assert.ErrorIs(t, err, ErrInvalidInstallmentCount, "count=%d", count)
	}

	_, err := Generate(Plan{TotalCents: 0, Count: 3, FirstDue: due})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Generate(Plan{TotalCents: 1000, Count: 3})
	assert.ErrorIs(t, err, ErrMissingDueDate)

	_, err = Generate(Plan{TotalCents: 1000, Count: 3, FirstDue: due, Settled: -1})
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestGenerate_NumbersAfterSettled(t *testing.T) {
	items, err := Generate(Plan{TotalCents: 100000, Count: 2, FirstDue: models.NewDate(2024, 5, 10), Settled: 1})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 2, items[0].Sequence)
	assert.Equal(t, 3, items[1].Sequence)
	for _, it := range items {
		assert.Equal(t, 3, it.Count)
	}
	assert.Equal(t, int64(100000), Sum(items))
}

func TestRollup(t *testing.T) {
	tests := []struct {
		paid, total int64
		want        models.PaymentStatus
	}{
		{0, 1000, models.PaymentPending},
		{1, 1000, models.PaymentPartial},
		{999, 1000, models.PaymentPartial},
		{1000, 1000, models.PaymentPaid},
		{1500, 1000, models.PaymentPaid},
		{0, 0, models.PaymentPaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rollup(tt.paid, tt.total), "paid=%d total=%d", tt.paid, tt.total)
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

	inst := &models.Installment{DueDate: models.NewDate(2024, 3, 9), Status: models.InstallmentPending}
	assert.True(t, IsOverdue(inst, now))

	inst.DueDate = models.NewDate(2024, 3, 10)
	assert.False(t, IsOverdue(inst, now), "due today is not overdue")

	inst.DueDate = models.NewDate(2024, 1, 1)
	inst.Status = models.InstallmentPaid
	assert.False(t, IsOverdue(inst, now))
}
