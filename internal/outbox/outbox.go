// Package outbox carries order lifecycle events from the placement and
// transition transactions to Kafka. Events are appended to an outbox table
// inside the same transaction as the state change and relayed afterwards,
// so a published event always reflects a committed order.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-orders/internal/domain"
)

const (
	EventOrderPlaced    = "order.placed"
	EventOrderConfirmed = "order.confirmed"
	EventOrderPreparing = "order.preparing"
	EventOrderReady     = "order.ready"
	EventOrderCompleted = "order.completed"
	EventOrderCancelled = "order.cancelled"
	EventOrderPaid      = "order.paid"
	EventOrderRefunded  = "order.refunded"
)

// TypeForStatus maps a reached order status to its event type.
func TypeForStatus(s domain.OrderStatus) string {
	return "order." + string(s)
}

// Event is one undelivered (or delivered) outbox row. Seq is assigned by
// the database and preserves append order during relay.
type Event struct {
	Seq       int64
	ID        string
	OrderID   string
	Type      string
	Key       string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    *time.Time
}

type orderPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	Total       string    `json:"total"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewOrderEvent builds an event for order, keyed by order number so all
// events for one order land on the same partition.
func NewOrderEvent(eventType string, order domain.Order, now time.Time) (Event, error) {
	payload, err := json.Marshal(orderPayload{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Total:       order.Total.StringFixed(2),
		OccurredAt:  now,
	})
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Type:      eventType,
		Key:       order.Number,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}
