package domain

import (
	"context"
	"errors"
	"time"

	"viagens/internal/models"
)

var ErrKeyNotFound = errors.New("key not found")

// KVStore keeps small pieces of operational state (last backup time, audit
// log) outside the main database. Lists are append-only with a cap.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Append pushes value to the tail of the list at key and keeps at most
	// max newest entries. A max of zero keeps everything.
	Append(ctx context.Context, key, value string, max int64) error
	// Range returns list entries start..stop inclusive; negative indexes
	// count from the tail.
	Range(ctx context.Context, key string, start, stop int64) ([]string, error)
	// Trim keeps list entries start..stop inclusive.
	Trim(ctx context.Context, key string, start, stop int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Mailer delivers one email message.
type Mailer interface {
	Send(ctx context.Context, msg *models.EmailMessage) error
}

// StaffNotifier pushes short alerts to the agency staff.
type StaffNotifier interface {
	Notify(ctx context.Context, text string) error
}

// RosterWriter mirrors a trip's passenger list to an external sheet.
type RosterWriter interface {
	ReplaceRoster(ctx context.Context, trip *models.Trip, clients []*models.Client) error
}

// OutboxDispatcher is handed outbox tasks once the transaction that
// created them has committed.
type OutboxDispatcher interface {
	Dispatch(ctx context.Context, task *models.OutboxTask)
}
