package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topic identifies an event stream.
type Topic string

// Topics published by the services after successful writes.
const (
	TopicAttendanceUpdated Topic = "attendance.updated"
	TopicJournalUpdated    Topic = "journal.updated"
	TopicUsersUpdated      Topic = "users.updated"
	TopicSettingsUpdated   Topic = "settings.updated"
)

// Event carries the topic payload to subscribers.
type Event struct {
	Topic      Topic
	Payload    interface{}
	OccurredAt time.Time
}

// Handler consumes a published event.
type Handler func(Event)

// Bus is an in-process pub-sub dispatcher. Publish runs handlers
// synchronously after the write that triggered them, so subscribers observe
// a consistent store.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
	logger   *zap.Logger
}

// NewBus constructs an event bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: map[Topic][]Handler{}, logger: logger}
}

// Subscribe registers a handler for the topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish dispatches the event to every subscriber in registration order.
// Panicking handlers are recovered and logged so one subscriber cannot break
// the write path.
func (b *Bus) Publish(topic Topic, payload interface{}) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	event := Event{Topic: topic, Payload: payload, OccurredAt: time.Now()}
	for _, handler := range handlers {
		b.dispatch(handler, event)
	}
}

func (b *Bus) dispatch(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", string(event.Topic)),
				zap.Any("panic", r),
			)
		}
	}()
	handler(event)
}
