// Package sse pushes change notifications to connected clients so other
// tabs and devices can re-hydrate after a write.
package sse

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventRecordSaved is sent after a record was created or replaced.
	EventRecordSaved EventType = "record.saved"
	// EventRecordDeleted is sent after a record was removed.
	EventRecordDeleted EventType = "record.deleted"
	// EventCollectionReplaced is sent after a whole collection was rewritten.
	EventCollectionReplaced EventType = "collection.replaced"
	// EventDrawingChanged is sent after any drawing sub-key changed.
	EventDrawingChanged EventType = "drawing.changed"
	// EventSettingChanged is sent after a UI setting changed.
	EventSettingChanged EventType = "setting.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	ID        string    `json:"id"`
	Type      EventType `json:"type"`

	// Topic limits delivery to clients subscribed to it (a collection key
	// or "drawings"). Empty means broadcast to all.
	Topic string `json:"topic,omitempty"`
}

// RecordEventData is the payload for record and collection events.
type RecordEventData struct {
	Collection string `json:"collection"`
	RecordID   string `json:"record_id,omitempty"`
	Count      int    `json:"count,omitempty"`
}

// DrawingEventData is the payload for drawing events.
type DrawingEventData struct {
	Key    string   `json:"key"`
	Fields []string `json:"fields"`
}

// SettingEventData is the payload for setting events.
type SettingEventData struct {
	Value any    `json:"value"`
	Key   string `json:"key"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(t EventType, topic string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Topic:     topic,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewRecordSavedEvent creates a record.saved event.
func NewRecordSavedEvent(collection, recordID string) Event {
	return newEvent(EventRecordSaved, collection, RecordEventData{Collection: collection, RecordID: recordID})
}

// NewRecordDeletedEvent creates a record.deleted event.
func NewRecordDeletedEvent(collection, recordID string) Event {
	return newEvent(EventRecordDeleted, collection, RecordEventData{Collection: collection, RecordID: recordID})
}

// NewCollectionReplacedEvent creates a collection.replaced event.
func NewCollectionReplacedEvent(collection string, count int) Event {
	return newEvent(EventCollectionReplaced, collection, RecordEventData{Collection: collection, Count: count})
}

// DrawingsTopic is the topic for all drawing events.
const DrawingsTopic = "drawings"

// NewDrawingChangedEvent creates a drawing.changed event.
func NewDrawingChangedEvent(key string, fields ...string) Event {
	return newEvent(EventDrawingChanged, DrawingsTopic, DrawingEventData{Key: key, Fields: fields})
}

// NewSettingChangedEvent creates a setting.changed event.
func NewSettingChangedEvent(key string, value any) Event {
	return newEvent(EventSettingChanged, "", SettingEventData{Key: key, Value: value})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, "", HeartbeatEventData{ServerTime: time.Now()})
}
