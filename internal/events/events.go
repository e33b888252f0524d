package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"jobtracker/internal/models"
)

const (
	EventJobCreated     = "job_created"
	EventJobDeleted     = "job_deleted"
	EventEquipmentAdded = "equipment_added"
)

// JobEventPayload is the job snapshot delivered to subscribers.
type JobEventPayload struct {
	JobID          string `json:"job_id"`
	Title          string `json:"title,omitempty"`
	Client         string `json:"client,omitempty"`
	Date           string `json:"date,omitempty"`
	Status         string `json:"status,omitempty"`
	EquipmentCount int    `json:"equipment_count"`
	ChangedBy      string `json:"changed_by,omitempty"`
}

// NewJobPayload builds a payload from a stored job.
func NewJobPayload(job *models.Job, changedBy string) JobEventPayload {
	return JobEventPayload{
		JobID:          job.ID,
		Title:          job.Title,
		Client:         job.Client,
		Date:           job.Date.String(),
		Status:         string(job.Status),
		EquipmentCount: job.EquipmentCount,
		ChangedBy:      changedBy,
	}
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type EventHandler func(event *Event) error

// EventBus is an in-process pub/sub.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers handler for each of the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish вызывает обработчики синхронно и возвращает их ошибки одной пачкой.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
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

	return b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
}
