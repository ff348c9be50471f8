package model

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated        = "order.created"
	EventOrderStatusChanged  = "order.status_changed"
	EventReturnCreated       = "return.created"
	EventReturnStatusChanged = "return.status_changed"
	EventInventoryAdjusted   = "inventory.adjusted"
)

// 外部へ流すイベントの封筒。Keyは集約ID（順序保証用）。
type Event struct {
	ID          string          `json:"event_id"`
	Type        string          `json:"event_type"`
	Version     int             `json:"event_version"`
	OccurredAt  time.Time       `json:"occurred_at"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
}

func NewEvent(typ, aggregateID string, at time.Time, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:        typ,
		Version:     1,
		OccurredAt:  at,
		AggregateID: aggregateID,
		Payload:     b,
	}, nil
}
