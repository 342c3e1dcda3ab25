package portal

import (
	"encoding/json"
	"fmt"
)

// EventType tags a push frame. Unknown tags are rejected at the socket
// boundary before listeners ever see them.
type EventType string

const (
	EventNewRequest     EventType = "new_request"
	EventUpdatedRequest EventType = "updated_request"
	EventDeletedRequest EventType = "deleted_request"
	EventCounterUpdate  EventType = "counter_update"
)

// Event is the envelope carried on the live-update channel
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CounterUpdate is the payload of a counter_update event and of the
// /counter/last endpoint
type CounterUpdate struct {
	RequestID   int `json:"request_id"`
	LastCounter int `json:"last_counter"`
}

// DecodeEvent parses and validates a raw text frame into an Event
func DecodeEvent(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	switch ev.Type {
	case EventNewRequest, EventUpdatedRequest, EventDeletedRequest, EventCounterUpdate:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if len(ev.Data) == 0 {
		return Event{}, fmt.Errorf("event %q has no data", ev.Type)
	}
	return ev, nil
}

// Request decodes the event payload as a request record. Valid for
// new_request, updated_request and deleted_request events.
func (e Event) Request() (Request, error) {
	var req Request
	if err := json.Unmarshal(e.Data, &req); err != nil {
		return Request{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return req, nil
}

// Counter decodes the event payload as a counter update
func (e Event) Counter() (CounterUpdate, error) {
	var cu CounterUpdate
	if err := json.Unmarshal(e.Data, &cu); err != nil {
		return CounterUpdate{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return cu, nil
}

// EncodeEvent marshals a payload into the wire envelope. The server side
// uses this to build broadcast frames.
func EncodeEvent(t EventType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: t, Data: data})
}
