package repository

import (
	"context"
	"sync"
	"time"

	"viagens/internal/domain"
)

type memoryValue struct {
	value     string
	expiresAt time.Time
}

// MemoryKVStore is the in-process KVStore used when Redis is unavailable.
type MemoryKVStore struct {
	mu     sync.Mutex
	values map[string]memoryValue
	lists  map[string][]string
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{
		values: make(map[string]memoryValue),
		lists:  make(map[string][]string),
	}
}

func (m *MemoryKVStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	if !v.expiresAt.IsZero() && time.Now().After(v.expiresAt) {
		delete(m.values, key)
		return "", domain.ErrKeyNotFound
	}
	return v.value, nil
}

func (m *MemoryKVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := memoryValue{value: value}
	if ttl > 0 {
		v.expiresAt = time.Now().Add(ttl)
	}
	m.values[key] = v
	return nil
}

func (m *MemoryKVStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	delete(m.lists, key)
	return nil
}

func (m *MemoryKVStore) Append(ctx context.Context, key, value string, max int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.lists[key], value)
	if max > 0 && int64(len(list)) > max {
		list = append([]string(nil), list[int64(len(list))-max:]...)
	}
	m.lists[key] = list
	return nil
}

func (m *MemoryKVStore) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.lists[key]
	from, to, ok := listBounds(int64(len(list)), start, stop)
	if !ok {
		return []string{}, nil
	}
	return append([]string(nil), list[from:to+1]...), nil
}

func (m *MemoryKVStore) Trim(ctx context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.lists[key]
	from, to, ok := listBounds(int64(len(list)), start, stop)
	if !ok {
		delete(m.lists, key)
		return nil
	}
	m.lists[key] = append([]string(nil), list[from:to+1]...)
	return nil
}

// listBounds resolves Redis-style inclusive indexes against a list length.
func listBounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
