package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBusPublishDispatchesInOrder(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var seen []string
	bus.Subscribe(TopicAttendanceUpdated, func(e Event) {
		seen = append(seen, "first")
	})
	bus.Subscribe(TopicAttendanceUpdated, func(e Event) {
		seen = append(seen, "second")
		assert.Equal(t, "rec-1", e.Payload)
	})

	bus.Publish(TopicAttendanceUpdated, "rec-1")
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestBusTopicsAreIsolated(t *testing.T) {
	bus := NewBus(nil)
	fired := 0
	bus.Subscribe(TopicUsersUpdated, func(Event) { fired++ })

	bus.Publish(TopicJournalUpdated, nil)
	assert.Equal(t, 0, fired)

	bus.Publish(TopicUsersUpdated, nil)
	assert.Equal(t, 1, fired)
}

func TestBusRecoversPanickingHandler(t *testing.T) {
	bus := NewBus(zap.NewNop())
	fired := false
	bus.Subscribe(TopicSettingsUpdated, func(Event) { panic("boom") })
	bus.Subscribe(TopicSettingsUpdated, func(Event) { fired = true })

	assert.NotPanics(t, func() { bus.Publish(TopicSettingsUpdated, nil) })
	assert.True(t, fired)
}
