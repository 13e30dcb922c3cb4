package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions is the forward-only status graph. Terminal states
// (completed, cancelled) have no outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusCompleted},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the graph permits moving from s to target.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusFailed            PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusUnpaid: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed: {PaymentStatusUnpaid, PaymentStatusPaid},
	PaymentStatusPaid:   {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded,
		PaymentStatusPartiallyRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransition(target PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeout, OrderTypeDelivery:
		return true
	}
	return false
}

// MaxLineQuantity bounds a single line item to keep one request from
// inflating totals past what a café order can plausibly be.
const MaxLineQuantity = 20

// MaxTableNumber is the highest table a dine-in order may reference.
const MaxTableNumber = 100

// CustomerInfo is the contact snapshot captured at placement time.
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// OrderItem is one priced line of an order. Name and unit price are copied
// from the catalog at placement time and never re-read afterwards.
type OrderItem struct {
	ID                  string
	MenuItemID          string
	Name                string
	UnitPrice           decimal.Decimal
	Quantity            int
	Total               decimal.Decimal
	SpecialInstructions string
}

// NewOrderItem prices one line from a catalog snapshot. It is pure: the
// returned item carries total = unit price * quantity and nothing else
// is touched.
func NewOrderItem(snap ItemSnapshot, quantity int) (OrderItem, error) {
	if quantity < 1 || quantity > MaxLineQuantity {
		return OrderItem{}, &ValidationError{Field: "quantity", Reason: "must be between 1 and 20"}
	}
	if snap.UnitPrice.IsNegative() {
		return OrderItem{}, &ValidationError{Field: "unit_price", Reason: "must not be negative"}
	}
	return OrderItem{
		MenuItemID: snap.MenuItemID,
		Name:       snap.Name,
		UnitPrice:  snap.UnitPrice,
		Quantity:   quantity,
		Total:      snap.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// Order is the aggregate root. Items are owned exclusively by the order;
// Version backs the optimistic check that serializes concurrent updates.
type Order struct {
	ID            string
	Number        string
	UserID        string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	PaymentMethod string
	TransactionID string
	Type          OrderType
	TableNumber   *int
	Customer      CustomerInfo
	Items         []OrderItem
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Version       int
	PlacedAt      time.Time
	ConfirmedAt   *time.Time
	PreparedAt    *time.Time
	ReadyAt       *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
}

// RecomputeTotals rebuilds subtotal, tax, and total from the current item
// set. Subtotal is the exact sum of line totals; tax is bankers-rounded to
// two decimal places. The three fields are only ever written together.
func (o *Order) RecomputeTotals(taxRate decimal.Decimal) {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Total)
	}
	o.Subtotal = subtotal
	o.Tax = subtotal.Mul(taxRate).RoundBank(2)
	o.Total = subtotal.Add(o.Tax).RoundBank(2)
}

// Transition moves the order to target and stamps the matching timestamp.
// Re-applying the current status is a no-op success (changed=false) so
// retried requests cannot overwrite a timestamp.
func (o *Order) Transition(target OrderStatus, now time.Time) (changed bool, err error) {
	if target == o.Status {
		return false, nil
	}
	if !o.Status.CanTransition(target) {
		return false, &InvalidTransitionError{From: o.Status, To: target}
	}

	o.Status = target
	switch target {
	case OrderStatusConfirmed:
		o.ConfirmedAt = &now
	case OrderStatusPreparing:
		o.PreparedAt = &now
	case OrderStatusReady:
		o.ReadyAt = &now
	case OrderStatusCompleted:
		o.CompletedAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
	}
	return true, nil
}

// TransitionPayment moves the payment status. Like Transition, re-applying
// the current status is a no-op success.
func (o *Order) TransitionPayment(target PaymentStatus) (changed bool, err error) {
	if target == o.PaymentStatus {
		return false, nil
	}
	if !o.PaymentStatus.CanTransition(target) {
		return false, &InvalidPaymentTransitionError{From: o.PaymentStatus, To: target}
	}
	o.PaymentStatus = target
	return true, nil
}
