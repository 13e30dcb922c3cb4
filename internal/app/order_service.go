package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/brewhouse/cafe-orders/internal/clock"
	"github.com/brewhouse/cafe-orders/internal/domain"
	"github.com/brewhouse/cafe-orders/internal/metrics"
	"github.com/brewhouse/cafe-orders/internal/outbox"
)

// Catalog is the read-only lookup the order core needs from the menu.
type Catalog interface {
	GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error)
}

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	// UpdateOrderStatus applies the status, timestamps, and payment fields of
	// order if the stored version still matches order.Version, returning
	// domain.ErrConflict otherwise.
	UpdateOrderStatus(ctx context.Context, order domain.Order) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

// OrderFilter narrows ListOrders. Zero values mean no filtering.
type OrderFilter struct {
	Status domain.OrderStatus
	UserID string
}

const defaultTaxRate = "0.08"

// numberAttempts bounds order number regeneration when the repository
// reports a duplicate.
const numberAttempts = 5

type OrderService struct {
	repo    OrderRepository
	catalog Catalog
	clock   clock.Clock
	numbers domain.NumberGenerator
	taxRate decimal.Decimal
	metrics *metrics.Metrics
}

type OrderServiceOption func(*OrderService)

// WithTaxRate overrides the default 8% tax rate.
func WithTaxRate(rate decimal.Decimal) OrderServiceOption {
	return func(s *OrderService) {
		if rate.Sign() >= 0 {
			s.taxRate = rate
		}
	}
}

// WithNumberGenerator injects a deterministic generator (useful for tests).
func WithNumberGenerator(gen domain.NumberGenerator) OrderServiceOption {
	return func(s *OrderService) {
		s.numbers = gen
	}
}

func WithMetrics(m *metrics.Metrics) OrderServiceOption {
	return func(s *OrderService) {
		s.metrics = m
	}
}

func NewOrderService(repo OrderRepository, catalog Catalog, clk clock.Clock, opts ...OrderServiceOption) *OrderService {
	svc := &OrderService{
		repo:    repo,
		catalog: catalog,
		clock:   clk,
		numbers: domain.NewNumberGenerator(),
		taxRate: decimal.RequireFromString(defaultTaxRate),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RequestedItem is one (menu item, quantity) pair from the caller.
type RequestedItem struct {
	MenuItemID          string
	Quantity            int
	SpecialInstructions string
}

type PlaceOrderInput struct {
	UserID      string
	Type        domain.OrderType
	TableNumber *int
	Customer    domain.CustomerInfo
	Items       []RequestedItem
}

// PlaceOrder validates the request, prices the available items, and
// persists the order with all its items in one transaction. Items that are
// unavailable or missing from the catalog are dropped, not rejected:
// catalog edits race with ordering and the rest of the basket should still
// go through. An order that would end up empty is never persisted.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.Order, error) {
	if err := validatePlaceOrder(in); err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()

	var items []domain.OrderItem
	for _, req := range in.Items {
		menuItem, err := s.catalog.GetMenuItem(ctx, req.MenuItemID)
		if err != nil {
			if errors.Is(err, domain.ErrMenuItemNotFound) {
				continue
			}
			return domain.Order{}, err
		}
		if !menuItem.Available {
			continue
		}

		item, err := domain.NewOrderItem(menuItem.Snapshot(), req.Quantity)
		if err != nil {
			return domain.Order{}, err
		}
		item.ID = newID()
		item.SpecialInstructions = req.SpecialInstructions
		items = append(items, item)
	}
	if len(items) == 0 {
		return domain.Order{}, domain.ErrEmptyOrder
	}

	var tableNumber *int
	if in.Type == domain.OrderTypeDineIn {
		n := *in.TableNumber
		tableNumber = &n
	}

	order := domain.Order{
		ID:            newID(),
		UserID:        in.UserID,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Type:          in.Type,
		TableNumber:   tableNumber,
		Customer:      in.Customer,
		Items:         items,
		Version:       1,
		PlacedAt:      now,
	}
	order.RecomputeTotals(s.taxRate)

	for attempt := 0; attempt < numberAttempts; attempt++ {
		order.Number = s.numbers.Generate(now)

		err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.repo.CreateOrder(txCtx, order); err != nil {
				return err
			}
			evt, err := outbox.NewOrderEvent(outbox.EventOrderPlaced, order, now)
			if err != nil {
				return err
			}
			return s.repo.AppendEvent(txCtx, evt)
		})
		if err != nil {
			if errors.Is(err, domain.ErrOrderNumberTaken) {
				continue
			}
			return domain.Order{}, err
		}

		s.metrics.OrderPlaced()
		return order, nil
	}
	return domain.Order{}, domain.ErrOrderNumberExhausted
}

type TransitionInput struct {
	OrderID string
	Target  domain.OrderStatus
}

type TransitionResult struct {
	Order   domain.Order
	Changed bool
}

// Transition moves an order along the status graph. The read-modify-write
// runs under an optimistic version check: of two concurrent calls against
// the same order, exactly one commits and the other gets
// domain.ErrConflict. Re-applying the order's current status succeeds
// without writing anything.
func (s *OrderService) Transition(ctx context.Context, in TransitionInput) (TransitionResult, error) {
	if !in.Target.Valid() {
		return TransitionResult{}, &domain.ValidationError{Field: "status", Reason: "unknown status"}
	}

	now := s.clock.Now()
	var result TransitionResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrder(txCtx, in.OrderID)
		if err != nil {
			return err
		}

		changed, err := order.Transition(in.Target, now)
		if err != nil {
			return err
		}
		if !changed {
			result = TransitionResult{Order: order, Changed: false}
			return nil
		}

		if err := s.repo.UpdateOrderStatus(txCtx, order); err != nil {
			return err
		}
		evt, err := outbox.NewOrderEvent(outbox.TypeForStatus(in.Target), order, now)
		if err != nil {
			return err
		}
		if err := s.repo.AppendEvent(txCtx, evt); err != nil {
			return err
		}

		order.Version++
		result = TransitionResult{Order: order, Changed: true}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	if result.Changed {
		s.metrics.OrderTransitioned(string(in.Target))
	}
	return result, nil
}

type PaymentInput struct {
	OrderID       string
	Target        domain.PaymentStatus
	PaymentMethod string
	TransactionID string
}

// UpdatePayment moves the payment status, recording method and transaction
// id when the order becomes paid. It uses the same optimistic version check
// as Transition.
func (s *OrderService) UpdatePayment(ctx context.Context, in PaymentInput) (domain.Order, error) {
	if !in.Target.Valid() {
		return domain.Order{}, &domain.ValidationError{Field: "payment_status", Reason: "unknown payment status"}
	}

	now := s.clock.Now()
	var result domain.Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrder(txCtx, in.OrderID)
		if err != nil {
			return err
		}

		changed, err := order.TransitionPayment(in.Target)
		if err != nil {
			return err
		}
		if !changed {
			result = order
			return nil
		}

		if in.Target == domain.PaymentStatusPaid {
			order.PaymentMethod = in.PaymentMethod
			order.TransactionID = in.TransactionID
		}

		if err := s.repo.UpdateOrderStatus(txCtx, order); err != nil {
			return err
		}

		if eventType, ok := paymentEventType(in.Target); ok {
			evt, err := outbox.NewOrderEvent(eventType, order, now)
			if err != nil {
				return err
			}
			if err := s.repo.AppendEvent(txCtx, evt); err != nil {
				return err
			}
		}

		order.Version++
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func paymentEventType(s domain.PaymentStatus) (string, bool) {
	switch s {
	case domain.PaymentStatusPaid:
		return outbox.EventOrderPaid, true
	case domain.PaymentStatusRefunded, domain.PaymentStatusPartiallyRefunded:
		return outbox.EventOrderRefunded, true
	}
	return "", false
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if id == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	return s.repo.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: "unknown status"}
	}
	return s.repo.ListOrders(ctx, filter)
}
