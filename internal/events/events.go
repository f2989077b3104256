package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventTripCreated           = "trip_created"
	EventTripUpdated           = "trip_updated"
	EventTripDeleted           = "trip_deleted"
	EventTripRepriced          = "trip_repriced"
	EventClientCreated         = "client_created"
	EventClientUpdated         = "client_updated"
	EventClientDeleted         = "client_deleted"
	EventSeatAssigned          = "seat_assigned"
	EventSeatReleased          = "seat_released"
	EventRoomAssigned          = "room_assigned"
	EventInstallmentsGenerated = "installments_generated"
	EventInstallmentsOverdue   = "installments_overdue"
	EventPaymentRecorded       = "payment_recorded"
	EventContactReceived       = "contact_received"
	EventContractReceived      = "contract_form_received"
	EventContractConverted     = "contract_form_converted"
	EventRecordChanged         = "record_changed"
	EventConfigUpdated         = "company_config_updated"
	EventUserCreated           = "user_created"
	EventDocumentUploaded      = "document_uploaded"
	EventDocumentDeleted       = "document_deleted"
)

// All subscribes a handler to every event type.
const All = "*"

// Payload is the common body of domain events. Only the fields that apply
// to an event are set.
type Payload struct {
	Actor       string `json:"actor,omitempty"`
	Entity      string `json:"entity"`
	EntityID    int64  `json:"entity_id,omitempty"`
	TripID      int64  `json:"trip_id,omitempty"`
	ClientID    int64  `json:"client_id,omitempty"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	Count       int    `json:"count,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the event body into a Payload.
func (e *Event) Decode() (Payload, error) {
	var p Payload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	onError     func(event *Event, err error)
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError installs a callback for handler failures.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers a handler for a given event type, or All.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type, then the All subscribers.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[All]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// Handlers run synchronously; caller decides concurrency model.
	for _, handler := range handlers {
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
