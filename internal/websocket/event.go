package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeCreated   EventType = "created"
	EventTypeUpdated   EventType = "updated"
	EventTypeDeleted   EventType = "deleted"
	EventTypeStarted   EventType = "started"
	EventTypeProgress  EventType = "progress"
	EventTypeCompleted EventType = "completed"
	EventTypeFailed    EventType = "failed"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeImport      EntityType = "import"
	EntityTypeTransaction EntityType = "transaction"
	EntityTypeAccount     EntityType = "account"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "import.progress"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "import"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ImportProgressPayload is the payload for import lifecycle events.
type ImportProgressPayload struct {
	ImportID  string `json:"importId"`
	AccountID int64  `json:"accountId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// ImportStarted creates an import.started event
func ImportStarted(payload interface{}) Event {
	return NewEvent(EventTypeStarted, EntityTypeImport, payload)
}

// ImportProgress creates an import.progress event
func ImportProgress(payload interface{}) Event {
	return NewEvent(EventTypeProgress, EntityTypeImport, payload)
}

// ImportCompleted creates an import.completed event
func ImportCompleted(payload interface{}) Event {
	return NewEvent(EventTypeCompleted, EntityTypeImport, payload)
}

// ImportFailed creates an import.failed event
func ImportFailed(payload interface{}) Event {
	return NewEvent(EventTypeFailed, EntityTypeImport, payload)
}

// TransactionCreated creates a transaction.created event
func TransactionCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeTransaction, payload)
}

// TransactionUpdated creates a transaction.updated event
func TransactionUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeTransaction, payload)
}

// TransactionDeleted creates a transaction.deleted event
func TransactionDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeTransaction, payload)
}

// AccountUpdated creates an account.updated event
func AccountUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeAccount, payload)
}
