package audit

import (
	"context"
	"testing"
	"time"

	"viagens/internal/events"
	"viagens/internal/models"
	"viagens/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(max int) (*Recorder, *repository.MemoryKVStore) {
	kv := repository.NewMemoryKVStore()
	logger := zerolog.Nop()
	return NewRecorder(kv, max, &logger), kv
}

func TestRecorder_RecordAndRecent(t *testing.T) {
	r, _ := newTestRecorder(3)
	ctx := context.Background()

	for i, action := range []string{"a", "b", "c", "d"} {
		require.NoError(t, r.Record(ctx, models.AuditEntry{Action: action, EntityID: int64(i)}))
	}

	entries, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3, "capped at max entries")
	assert.Equal(t, "d", entries[0].Action)
	assert.Equal(t, "b", entries[2].Action)
	assert.False(t, entries[0].At.IsZero())

	two, err := r.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c"}, []string{two[0].Action, two[1].Action})

	none, err := r.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecorder_Prune(t *testing.T) {
	r, kv := newTestRecorder(100)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for _, age := range []time.Duration{100 * 24 * time.Hour, 95 * 24 * time.Hour, 10 * 24 * time.Hour, time.Hour} {
		require.NoError(t, r.Record(ctx, models.AuditEntry{At: now.Add(-age), Action: "x"}))
	}

	removed, err := r.Prune(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, err := kv.Range(ctx, Key, 0, -1)
	require.NoError(t, err)
	assert.Len(t, left, 2)

	removed, err = r.Prune(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = r.Prune(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestRecorder_Subscribe(t *testing.T) {
	r, _ := newTestRecorder(10)
	bus := events.NewEventBus()
	r.Subscribe(bus)

	require.NoError(t, bus.PublishJSON(events.EventTripCreated, events.Payload{
		Actor: "admin@agencia.com", Entity: "trip", EntityID: 4, Detail: "Porto Seguro",
	}))

	entries, err := r.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, events.EventTripCreated, entries[0].Action)
	assert.Equal(t, "admin@agencia.com", entries[0].Actor)
	assert.Equal(t, int64(4), entries[0].EntityID)
}
