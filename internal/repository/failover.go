package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"viagens/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverKVStore writes to the primary store and switches to the fallback
// while the primary is failing. Recovery is retried once a minute.
type FailoverKVStore struct {
	primary  domain.KVStore
	fallback domain.KVStore
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverKVStore(primary, fallback domain.KVStore, logger *zerolog.Logger) *FailoverKVStore {
	return &FailoverKVStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the primary should be tried for this call.
func (r *FailoverKVStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > time.Minute {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

// observe records the outcome of a primary call. Missing keys are not failures.
func (r *FailoverKVStore) observe(err error) bool {
	if err == nil || errors.Is(err, domain.ErrKeyNotFound) {
		if r.isDown.Swap(false) {
			r.logger.Info().Msg("Primary KV store recovered")
		}
		return true
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary KV store failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
	return false
}

func (r *FailoverKVStore) Get(ctx context.Context, key string) (string, error) {
	if r.usePrimary() {
		val, err := r.primary.Get(ctx, key)
		if r.observe(err) {
			return val, err
		}
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverKVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if r.usePrimary() {
		if err := r.primary.Set(ctx, key, value, ttl); r.observe(err) {
			return nil
		}
	}
	return r.fallback.Set(ctx, key, value, ttl)
}

func (r *FailoverKVStore) Delete(ctx context.Context, key string) error {
	if r.usePrimary() {
		if err := r.primary.Delete(ctx, key); r.observe(err) {
			return nil
		}
	}
	return r.fallback.Delete(ctx, key)
}

func (r *FailoverKVStore) Append(ctx context.Context, key, value string, max int64) error {
	if r.usePrimary() {
		if err := r.primary.Append(ctx, key, value, max); r.observe(err) {
			return nil
		}
	}
	return r.fallback.Append(ctx, key, value, max)
}

func (r *FailoverKVStore) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if r.usePrimary() {
		vals, err := r.primary.Range(ctx, key, start, stop)
		if r.observe(err) {
			return vals, nil
		}
	}
	return r.fallback.Range(ctx, key, start, stop)
}

func (r *FailoverKVStore) Trim(ctx context.Context, key string, start, stop int64) error {
	if r.usePrimary() {
		if err := r.primary.Trim(ctx, key, start, stop); r.observe(err) {
			return nil
		}
	}
	return r.fallback.Trim(ctx, key, start, stop)
}
