// Package realtime carries row-level change events for orders and payments
// from the API to subscribed clients, and folds them back into local state.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the kind of row mutation an event describes
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Tables with a change feed
const (
	TableOrders   = "orders"
	TablePayments = "payments"
)

// Event is one row-level change
type Event struct {
	Table   string          `json:"table"`
	Type    EventType       `json:"eventType"`
	ID      string          `json:"id"`
	Key     string          `json:"key,omitempty"` // owning customer id, used for filtered feeds
	Version time.Time       `json:"version"`
	Old     json.RawMessage `json:"old,omitempty"`
	New     json.RawMessage `json:"new,omitempty"`
}

// NewEvent marshals the old/new rows into an event; either row may be nil
func NewEvent(table string, typ EventType, id, key string, version time.Time, oldRow, newRow interface{}) (Event, error) {
	ev := Event{Table: table, Type: typ, ID: id, Key: key, Version: version}

	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			return Event{}, fmt.Errorf("encode old row: %w", err)
		}
		ev.Old = b
	}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return Event{}, fmt.Errorf("encode new row: %w", err)
		}
		ev.New = b
	}

	return ev, ev.Validate()
}

// Validate checks the event carries the row its type requires
func (e Event) Validate() error {
	switch e.Type {
	case EventInsert, EventUpdate:
		if len(e.New) == 0 {
			return fmt.Errorf("%s event for %s/%s has no new row", e.Type, e.Table, e.ID)
		}
	case EventDelete:
		if len(e.Old) == 0 {
			return fmt.Errorf("DELETE event for %s/%s has no old row", e.Table, e.ID)
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.Table == "" {
		return fmt.Errorf("event has no table")
	}
	return nil
}

// Channel names the broker channel for a table, optionally filtered by key
func Channel(table, key string) string {
	if key == "" {
		return table
	}
	return table + ":" + key
}
