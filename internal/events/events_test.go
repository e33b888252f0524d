package events

import (
	"errors"
	"testing"

	"jobtracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(func(event *Event) error {
		received = event
		callCount++
		return nil
	}, EventJobCreated)

	require.NoError(t, bus.PublishJSON(EventJobCreated, JobEventPayload{JobID: "j1", Title: "Rig A"}))

	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventJobCreated, received.Type)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded JobEventPayload
	require.NoError(t, received.Decode(&decoded))
	assert.Equal(t, "j1", decoded.JobID)
	assert.Equal(t, "Rig A", decoded.Title)
}

func TestEventBusMultipleTypes(t *testing.T) {
	bus := NewEventBus()
	var seen []string

	bus.Subscribe(func(e *Event) error { seen = append(seen, e.Type); return nil }, EventJobCreated, EventJobDeleted)

	require.NoError(t, bus.Publish(&Event{Type: EventJobCreated}))
	require.NoError(t, bus.Publish(&Event{Type: EventJobDeleted}))
	require.NoError(t, bus.Publish(&Event{Type: EventEquipmentAdded}))

	assert.Equal(t, []string{EventJobCreated, EventJobDeleted}, seen)
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	errA := errors.New("a failed")
	called := 0

	bus.Subscribe(func(_ *Event) error { called++; return errA }, EventJobDeleted)
	bus.Subscribe(func(_ *Event) error { called++; return nil }, EventJobDeleted)

	err := bus.Publish(&Event{Type: EventJobDeleted})
	assert.ErrorIs(t, err, errA)
	assert.Equal(t, 2, called)
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventJobCreated, nil))
}

func TestPublishJSON_MarshalError(t *testing.T) {
	bus := NewEventBus()
	assert.Error(t, bus.PublishJSON(EventJobCreated, make(chan int)))
}

func TestNewJobPayload(t *testing.T) {
	date, err := models.ParseDate("2024-05-01")
	require.NoError(t, err)

	p := NewJobPayload(&models.Job{ID: "j1", Title: "Rig A", Client: "Acme", Date: date, Status: models.JobStatusPending, EquipmentCount: 2}, "api")
	assert.Equal(t, "2024-05-01", p.Date)
	assert.Equal(t, "pending", p.Status)
	assert.Equal(t, 2, p.EquipmentCount)
	assert.Equal(t, "api", p.ChangedBy)
}
