package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyOrder           = errors.New("no available items in order")
	ErrConflict             = errors.New("concurrent modification conflict")
	ErrOrderNumberTaken     = errors.New("order number already taken")
	ErrOrderNumberExhausted = errors.New("order number generation exhausted retries")
	ErrInvalidID            = errors.New("invalid id")
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports a status change the order state machine
// does not permit.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}

// InvalidPaymentTransitionError reports a payment status change that is
// not permitted.
type InvalidPaymentTransitionError struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e *InvalidPaymentTransitionError) Error() string {
	return fmt.Sprintf("invalid payment transition %s -> %s", e.From, e.To)
}
