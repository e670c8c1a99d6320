// Package queue defines the domain events exchanged over the message broker
// and the consumer that keeps an audit trail of them.
package queue

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys of the events published on the topic exchange.
const (
	OrderCreated       = "order.created"
	OrderCancelled     = "order.cancelled"
	OrderStatusChanged = "order.status_changed"
	ReturnProcessed    = "return.processed"
	DeliveryUpdated    = "delivery.updated"
)

// Event is the envelope of every message.  Payload holds one of the
// typed events below, encoded as JSON.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	ActorID    *uint64         `json:"actor_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent wraps payload in an envelope of the given type.
func NewEvent(typ string, at time.Time, actorID *uint64, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, OccurredAt: at.UTC(), ActorID: actorID, Payload: body}, nil
}

// OrderLineEvent is one line of an order event.
type OrderLineEvent struct {
	ProductID uint64          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderEvent is published when an order is created, cancelled or moves
// to another status.
type OrderEvent struct {
	OrderID     uint64           `json:"order_id"`
	UserID      uint64           `json:"user_id"`
	OldStatus   string           `json:"old_status,omitempty"`
	Status      string           `json:"status"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Lines       []OrderLineEvent `json:"lines,omitempty"`
}

// ReturnEvent is published once a return request is approved, rejected or
// refunded.
type ReturnEvent struct {
	ReturnID    uint64 `json:"return_id"`
	OrderItemID uint64 `json:"order_item_id"`
	ProductID   uint64 `json:"product_id"`
	Quantity    int    `json:"quantity"`
	Status      string `json:"status"`
}

// DeliveryEvent is published when a delivery is created or its status
// changes.
type DeliveryEvent struct {
	DeliveryID     uint64 `json:"delivery_id"`
	OrderID        uint64 `json:"order_id"`
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
}
