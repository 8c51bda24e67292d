package domain

import (
	"encoding/json"
	"time"

	"github.com/iancoleman/strcase"
)

// OccurredAtLayout is RFC 3339 with millisecond precision.
const OccurredAtLayout = "2006-01-02T15:04:05.000Z07:00"

// routingKeys maps known event types to their broker routing keys.
var routingKeys = map[string]string{
	"order.created": "order.created",
	"OrderCreated":  "order.created",
}

// RoutingKey returns the routing key for an event type. Unknown types are normalized to
// dot-separated lower case ("OrderShipped" and "order_shipped" become "order.shipped").
func RoutingKey(eventType string) string {
	if key, ok := routingKeys[eventType]; ok {
		return key
	}
	return strcase.ToDelimited(eventType, '.')
}

// WirePayload returns the message body: the stored payload plus event_id and occurred_at.
func (e *OutboxEvent) WirePayload() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(e.Payload), &fields); err != nil {
		return nil, ErrInvalidPayload
	}
	if fields == nil {
		return nil, ErrInvalidPayload
	}

	eventID, err := json.Marshal(e.ID.String())
	if err != nil {
		return nil, err
	}
	occurredAt, err := json.Marshal(e.CreatedAt.UTC().Format(OccurredAtLayout))
	if err != nil {
		return nil, err
	}

	fields["event_id"] = eventID
	fields["occurred_at"] = occurredAt

	return json.Marshal(fields)
}

// OccurredAt parses an occurred_at value produced by WirePayload.
func OccurredAt(value string) (time.Time, error) {
	return time.Parse(OccurredAtLayout, value)
}
