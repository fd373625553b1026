package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by the scheduling engine. Consumers (the
// notification layer) subscribe to these, the engine never sends outbound
// email or calendar invites itself.
const (
	TypeMeetingScheduled   = "meeting.scheduled"
	TypeMeetingRescheduled = "meeting.rescheduled"
	TypeMeetingCancelled   = "meeting.cancelled"
	TypePollCreated        = "poll.created"
	TypePollClosed         = "poll.closed"
	TypePollFinalized      = "poll.finalized"
	TypeRoomBooked         = "room.booked"
)

// Header keys attached to every published message.
const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
)

const SchemaVersion = "1"

// Event is the unit handed to a Publisher. Key selects the Kafka partition:
// events for one meeting use the meeting id so consumers observe them in
// order.
type Event struct {
	ID        string
	Type      string
	Key       string
	Payload   []byte
	Headers   map[string]string
	Timestamp time.Time
}

// New builds an event with a JSON payload. A marshal failure returns the
// error immediately; an event with no payload is never published.
func New(eventType, key string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	id := uuid.New().String()
	return Event{
		ID:      id,
		Type:    eventType,
		Key:     key,
		Payload: data,
		Headers: map[string]string{
			HeaderEventID:       id,
			HeaderEventType:     eventType,
			HeaderSchemaVersion: SchemaVersion,
			HeaderSource:        "convene-scheduler",
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

func (e Event) WithCorrelationID(correlationID string) Event {
	e.Headers[HeaderCorrelationID] = correlationID
	return e
}
