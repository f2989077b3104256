// Package audit keeps an append-only, capped log of domain events in the
// key-value store.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/models"

	"github.com/rs/zerolog"
)

const Key = "audit:log"

type Recorder struct {
	kv         domain.KVStore
	maxEntries int64
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewRecorder(kv domain.KVStore, maxEntries int, logger *zerolog.Logger) *Recorder {
	return &Recorder{
		kv:         kv,
		maxEntries: int64(maxEntries),
		logger:     logger,
		now:        time.Now,
	}
}

// Record appends an entry, dropping the oldest ones beyond the cap.
func (r *Recorder) Record(ctx context.Context, entry models.AuditEntry) error {
	if entry.At.IsZero() {
		entry.At = r.now().UTC()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}
	return r.kv.Append(ctx, Key, string(raw), r.maxEntries)
}

// Recent returns up to limit entries, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		return []models.AuditEntry{}, nil
	}
	raw, err := r.kv.Range(ctx, Key, -int64(limit), -1)
	if err != nil {
		return nil, err
	}
	entries := make([]models.AuditEntry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var e models.AuditEntry
		if err := json.Unmarshal([]byte(raw[i]), &e); err != nil {
			r.logger.Warn().Err(err).Msg("Skipping unreadable audit entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Prune drops entries older than maxAge and reports how many were removed.
func (r *Recorder) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	raw, err := r.kv.Range(ctx, Key, 0, -1)
	if err != nil {
		return 0, err
	}
	cutoff := r.now().Add(-maxAge)

	keep := len(raw)
	for i, item := range raw {
		var e models.AuditEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		if !e.At.Before(cutoff) {
			keep = i
			break
		}
	}
	if keep == 0 {
		return 0, nil
	}
	if err := r.kv.Trim(ctx, Key, int64(keep), -1); err != nil {
		return 0, err
	}
	return keep, nil
}

// Subscribe audits every event published on the bus.
func (r *Recorder) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.All, func(e *events.Event) error {
		p, err := e.Decode()
		if err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
		}
		return r.Record(context.Background(), models.AuditEntry{
			At:       e.CreatedAt.UTC(),
			Actor:    p.Actor,
			Action:   e.Type,
			Entity:   p.Entity,
			EntityID: p.EntityID,
			Detail:   p.Detail,
		})
	})
}
