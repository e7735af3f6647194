package amqp

import (
	"encoding/json"
	"time"
)

// Entity and operation names carried on ledger events.
const (
	EntityMember       = "member"
	EntityContribution = "contribution"

	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// LedgerEvent is a lightweight change notification: which document changed
// and how. Consumers re-read the store for the actual data, so a lost or
// reordered event costs nothing but freshness.
type LedgerEvent struct {
	Entity    string    `json:"entity"`
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps an event with the current time.
func NewLedgerEvent(entity, op, id string) *LedgerEvent {
	return &LedgerEvent{
		Entity:    entity,
		Op:        op,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
