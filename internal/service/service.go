package service

import (
	"context"

	"viagens/internal/domain"
	"viagens/internal/events"
	"viagens/internal/models"

	"github.com/rs/zerolog"
)

type actorKey struct{}

// WithActor tags ctx with the user performing the operation.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// notifier is embedded by services that emit domain events and outbox tasks.
type notifier struct {
	eventBus domain.EventPublisher
	outbox   domain.OutboxDispatcher
	logger   *zerolog.Logger
}

func newNotifier(eventBus domain.EventPublisher, outbox domain.OutboxDispatcher, logger *zerolog.Logger) notifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return notifier{eventBus: eventBus, outbox: outbox, logger: logger}
}

func (n notifier) publishEvent(ctx context.Context, eventType string, payload events.Payload) {
	if n.eventBus == nil {
		return
	}
	if payload.Actor == "" {
		payload.Actor = ActorFrom(ctx)
	}
	if err := n.eventBus.PublishJSON(eventType, payload); err != nil {
		n.logger.Error().Err(err).Str("event_type", eventType).Int64("entity_id", payload.EntityID).Msg("publish event error")
	}
}

// dispatch hands committed outbox tasks to the worker. Tasks that are not
// dispatched here are still picked up by the worker's polling loop.
func (n notifier) dispatch(ctx context.Context, tasks ...*models.OutboxTask) {
	if n.outbox == nil {
		return
	}
	for _, task := range tasks {
		if task != nil {
			n.outbox.Dispatch(ctx, task)
		}
	}
}
