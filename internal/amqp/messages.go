package amqp

import (
	"encoding/json"
	"fmt"

	"fintrack/internal/events"
)

const contentTypeJSON = "application/json"

// EncodeEvent serializes an event for publishing.
func EncodeEvent(ev events.Event) ([]byte, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(ev)
}

// DecodeEvent parses and validates a delivery body.
func DecodeEvent(data []byte) (events.Event, error) {
	var ev events.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return events.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return events.Event{}, err
	}
	return ev, nil
}
