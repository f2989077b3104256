package repository

import (
	"context"
	"testing"
	"time"

	"viagens/internal/config"
	"viagens/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKVStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	store := NewRedisKVStore(client, "viagens:")
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "backup:last", "2024-03-01T10:00:00Z", 0))

		got, err := store.Get(ctx, "backup:last")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-01T10:00:00Z", got)
		assert.True(t, s.Exists("viagens:backup:last"))
	})

	t.Run("TTL", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "tmp", "v", time.Minute))
		assert.Equal(t, time.Minute, s.TTL("viagens:tmp"))

		s.FastForward(2 * time.Minute)
		_, err := store.Get(ctx, "tmp")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "backup:last"))
		_, err := store.Get(ctx, "backup:last")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("AppendAndRange", func(t *testing.T) {
		for _, v := range []string{"a", "b", "c", "d"} {
			require.NoError(t, store.Append(ctx, "audit", v, 3))
		}
		got, err := store.Range(ctx, "audit", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "d"}, got)

		require.NoError(t, store.Trim(ctx, "audit", -1, -1))
		got, err = store.Range(ctx, "audit", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"d"}, got)
	})

	t.Run("ConnectionError", func(t *testing.T) {
		broken := NewRedisKVStore(redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			MaxRetries:  -1,
			DialTimeout: 100 * time.Millisecond,
		}), "")
		_, err := broken.Get(ctx, "x")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("NilClient", func(t *testing.T) {
		empty := NewRedisKVStore(nil, "")
		_, err := empty.Get(ctx, "x")
		assert.Error(t, err)
		assert.Error(t, empty.Set(ctx, "x", "y", 0))
		assert.Error(t, empty.Append(ctx, "x", "y", 1))
	})
}
