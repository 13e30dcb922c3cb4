package app

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brewhouse/cafe-orders/internal/clock"
	"github.com/brewhouse/cafe-orders/internal/domain"
	"github.com/brewhouse/cafe-orders/internal/outbox"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{6}-\d{4}$`)

func intPtr(n int) *int { return &n }

func testCatalog() *fakeCatalog {
	return &fakeCatalog{items: map[string]domain.MenuItem{
		"item-1": {ID: "item-1", Name: "Flat White", Price: decimal.RequireFromString("3.50"), Available: true},
		"item-2": {ID: "item-2", Name: "Croissant", Price: decimal.RequireFromString("2.75"), Available: true},
		"item-3": {ID: "item-3", Name: "Seasonal Special", Price: decimal.RequireFromString("6.00"), Available: false},
	}}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("places order with computed totals", func(t *testing.T) {
		repo := newFakeOrderRepo()
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		order, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID:      "user-1",
			Type:        domain.OrderTypeTakeout,
			Customer:    domain.CustomerInfo{Name: "Ada", Email: "ada@example.com"},
			Items: []RequestedItem{
				{MenuItemID: "item-1", Quantity: 2},
				{MenuItemID: "item-2", Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.Status != domain.OrderStatusPending {
			t.Fatalf("expected pending, got %s", order.Status)
		}
		if order.PaymentStatus != domain.PaymentStatusUnpaid {
			t.Fatalf("expected unpaid, got %s", order.PaymentStatus)
		}
		if !orderNumberPattern.MatchString(order.Number) {
			t.Fatalf("expected order number pattern, got %q", order.Number)
		}
		if !order.Subtotal.Equal(decimal.RequireFromString("9.75")) {
			t.Fatalf("expected subtotal 9.75, got %s", order.Subtotal)
		}
		if !order.Tax.Equal(decimal.RequireFromString("0.78")) {
			t.Fatalf("expected tax 0.78, got %s", order.Tax)
		}
		if !order.Total.Equal(decimal.RequireFromString("10.53")) {
			t.Fatalf("expected total 10.53, got %s", order.Total)
		}
		if len(order.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(order.Items))
		}
		if order.Items[0].Name != "Flat White" || !order.Items[0].Total.Equal(decimal.RequireFromString("7.00")) {
			t.Fatalf("expected priced snapshot line, got %+v", order.Items[0])
		}

		stored, ok := repo.orders[order.ID]
		if !ok {
			t.Fatalf("expected order persisted")
		}
		if len(stored.Items) != 2 {
			t.Fatalf("expected items persisted with order, got %d", len(stored.Items))
		}
		if len(repo.events) != 1 || repo.events[0].Type != outbox.EventOrderPlaced {
			t.Fatalf("expected one order.placed event, got %+v", repo.events)
		}
	})

	t.Run("drops unavailable and unknown items", func(t *testing.T) {
		repo := newFakeOrderRepo()
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		order, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID: "user-1",
			Type:   domain.OrderTypeTakeout,
			Items: []RequestedItem{
				{MenuItemID: "item-1", Quantity: 1},
				{MenuItemID: "item-3", Quantity: 1},
				{MenuItemID: "missing", Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(order.Items) != 1 || order.Items[0].MenuItemID != "item-1" {
			t.Fatalf("expected only available item kept, got %+v", order.Items)
		}
	})

	t.Run("all items unavailable returns ErrEmptyOrder without persisting", func(t *testing.T) {
		repo := newFakeOrderRepo()
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID: "user-1",
			Type:   domain.OrderTypeTakeout,
			Items: []RequestedItem{
				{MenuItemID: "item-3", Quantity: 1},
				{MenuItemID: "missing", Quantity: 2},
			},
		})
		if !errors.Is(err, domain.ErrEmptyOrder) {
			t.Fatalf("expected ErrEmptyOrder, got %v", err)
		}
		if len(repo.orders) != 0 || len(repo.events) != 0 {
			t.Fatalf("expected nothing persisted")
		}
	})

	t.Run("dine_in requires table number", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), testCatalog(), clock.NewFixed(now))

		_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID: "user-1",
			Type:   domain.OrderTypeDineIn,
			Items:  []RequestedItem{{MenuItemID: "item-1", Quantity: 1}},
		})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "table_number" {
			t.Fatalf("expected table_number validation error, got %v", err)
		}
	})

	t.Run("table number out of range rejected", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), testCatalog(), clock.NewFixed(now))

		_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID:      "user-1",
			Type:        domain.OrderTypeDineIn,
			TableNumber: intPtr(101),
			Items:       []RequestedItem{{MenuItemID: "item-1", Quantity: 1}},
		})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "table_number" {
			t.Fatalf("expected table_number validation error, got %v", err)
		}
	})

	t.Run("table number rejected for takeout", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), testCatalog(), clock.NewFixed(now))

		_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID:      "user-1",
			Type:        domain.OrderTypeTakeout,
			TableNumber: intPtr(5),
			Items:       []RequestedItem{{MenuItemID: "item-1", Quantity: 1}},
		})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "table_number" {
			t.Fatalf("expected table_number validation error, got %v", err)
		}
	})

	t.Run("unknown order type rejected", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), testCatalog(), clock.NewFixed(now))

		_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID: "user-1",
			Type:   "drive_through",
			Items:  []RequestedItem{{MenuItemID: "item-1", Quantity: 1}},
		})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "order_type" {
			t.Fatalf("expected order_type validation error, got %v", err)
		}
	})

	t.Run("excessive quantity rejected", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), testCatalog(), clock.NewFixed(now))

		_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID: "user-1",
			Type:   domain.OrderTypeTakeout,
			Items:  []RequestedItem{{MenuItemID: "item-1", Quantity: 21}},
		})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "quantity" {
			t.Fatalf("expected quantity validation error, got %v", err)
		}
	})

	t.Run("retries generation on duplicate order number", func(t *testing.T) {
		repo := newFakeOrderRepo()
		repo.takenNumbers["ORD-250314-1000"] = true

		seq := []int{0, 500}
		var calls int
		gen := domain.NewNumberGeneratorFromSource(func(int) int {
			n := seq[calls%len(seq)]
			calls++
			return n
		})
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now), WithNumberGenerator(gen))

		order, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID: "user-1",
			Type:   domain.OrderTypeTakeout,
			Items:  []RequestedItem{{MenuItemID: "item-1", Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.Number != "ORD-250314-1500" {
			t.Fatalf("expected second candidate ORD-250314-1500, got %q", order.Number)
		}
		if calls != 2 {
			t.Fatalf("expected exactly one retry, got %d generations", calls)
		}
		if len(repo.events) != 1 {
			t.Fatalf("expected single event after retry, got %d", len(repo.events))
		}
	})

	t.Run("exhausts retries on persistent collisions", func(t *testing.T) {
		repo := newFakeOrderRepo()
		repo.takenNumbers["ORD-250314-1000"] = true

		gen := domain.NewNumberGeneratorFromSource(func(int) int { return 0 })
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now), WithNumberGenerator(gen))

		_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID: "user-1",
			Type:   domain.OrderTypeTakeout,
			Items:  []RequestedItem{{MenuItemID: "item-1", Quantity: 1}},
		})
		if !errors.Is(err, domain.ErrOrderNumberExhausted) {
			t.Fatalf("expected ErrOrderNumberExhausted, got %v", err)
		}
		if len(repo.orders) != 0 || len(repo.events) != 0 {
			t.Fatalf("expected nothing persisted after exhaustion")
		}
	})

	t.Run("custom tax rate applies", func(t *testing.T) {
		repo := newFakeOrderRepo()
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now),
			WithTaxRate(decimal.RequireFromString("0.10")))

		order, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID: "user-1",
			Type:   domain.OrderTypeTakeout,
			Items:  []RequestedItem{{MenuItemID: "item-1", Quantity: 2}},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !order.Tax.Equal(decimal.RequireFromString("0.70")) {
			t.Fatalf("expected tax 0.70, got %s", order.Tax)
		}
	})
}

func TestOrderService_Transition(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	seed := func(repo *fakeOrderRepo, status domain.OrderStatus) domain.Order {
		order := domain.Order{
			ID:       "order-1",
			Number:   "ORD-250314-1234",
			UserID:   "user-1",
			Status:   status,
			Type:     domain.OrderTypeTakeout,
			Version:  1,
			PlacedAt: now.Add(-30 * time.Minute),
		}
		repo.orders[order.ID] = order
		return order
	}

	t.Run("valid transition stamps timestamp and bumps version", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo, domain.OrderStatusPending)
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		res, err := svc.Transition(context.Background(), TransitionInput{OrderID: "order-1", Target: domain.OrderStatusConfirmed})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Changed {
			t.Fatalf("expected Changed=true")
		}
		if res.Order.Status != domain.OrderStatusConfirmed {
			t.Fatalf("expected confirmed, got %s", res.Order.Status)
		}
		if res.Order.ConfirmedAt == nil || !res.Order.ConfirmedAt.Equal(now) {
			t.Fatalf("expected confirmed_at %v, got %v", now, res.Order.ConfirmedAt)
		}

		stored := repo.orders["order-1"]
		if stored.Version != 2 {
			t.Fatalf("expected version 2, got %d", stored.Version)
		}
		if len(repo.events) != 1 || repo.events[0].Type != outbox.EventOrderConfirmed {
			t.Fatalf("expected order.confirmed event, got %+v", repo.events)
		}
	})

	t.Run("invalid transition rejected", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo, domain.OrderStatusCompleted)
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		_, err := svc.Transition(context.Background(), TransitionInput{OrderID: "order-1", Target: domain.OrderStatusPreparing})
		var tErr *domain.InvalidTransitionError
		if !errors.As(err, &tErr) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		if len(repo.events) != 0 {
			t.Fatalf("expected no events on rejected transition")
		}
	})

	t.Run("same status is a no-op success", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo, domain.OrderStatusConfirmed)
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		res, err := svc.Transition(context.Background(), TransitionInput{OrderID: "order-1", Target: domain.OrderStatusConfirmed})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Changed {
			t.Fatalf("expected Changed=false")
		}
		if repo.orders["order-1"].Version != 1 {
			t.Fatalf("expected no write, version is %d", repo.orders["order-1"].Version)
		}
		if len(repo.events) != 0 {
			t.Fatalf("expected no events on no-op")
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		repo := newFakeOrderRepo()
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		_, err := svc.Transition(context.Background(), TransitionInput{OrderID: "order-1", Target: "shipped"})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "status" {
			t.Fatalf("expected status validation error, got %v", err)
		}
	})

	t.Run("missing order returns not found", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), testCatalog(), clock.NewFixed(now))

		_, err := svc.Transition(context.Background(), TransitionInput{OrderID: "missing", Target: domain.OrderStatusConfirmed})
		if !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("concurrent transitions: one wins, loser conflicts", func(t *testing.T) {
		repo := &staleReadOrderRepo{
			inner: newFakeOrderRepo(),
			snapshot: domain.Order{
				ID:      "order-1",
				Status:  domain.OrderStatusReady,
				Version: 1,
			},
		}
		repo.inner.orders["order-1"] = repo.snapshot
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		first, err := svc.Transition(context.Background(), TransitionInput{OrderID: "order-1", Target: domain.OrderStatusCompleted})
		if err != nil {
			t.Fatalf("expected first transition to win, got %v", err)
		}
		if !first.Changed || first.Order.CompletedAt == nil {
			t.Fatalf("expected completed with timestamp")
		}

		// Second caller read the same version-1 snapshot before the first
		// committed; its write must lose the optimistic check.
		_, err = svc.Transition(context.Background(), TransitionInput{OrderID: "order-1", Target: domain.OrderStatusCompleted})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		stored := repo.inner.orders["order-1"]
		if stored.Version != 2 {
			t.Fatalf("expected exactly one committed write, version is %d", stored.Version)
		}
		if stored.CompletedAt == nil || !stored.CompletedAt.Equal(now) {
			t.Fatalf("expected completed_at stamped exactly once")
		}
	})
}

func TestOrderService_UpdatePayment(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	seed := func(repo *fakeOrderRepo, status domain.PaymentStatus) {
		repo.orders["order-1"] = domain.Order{
			ID:            "order-1",
			Number:        "ORD-250314-1234",
			Status:        domain.OrderStatusConfirmed,
			PaymentStatus: status,
			Version:       1,
		}
	}

	t.Run("marks order paid with method and transaction", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo, domain.PaymentStatusUnpaid)
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		order, err := svc.UpdatePayment(context.Background(), PaymentInput{
			OrderID:       "order-1",
			Target:        domain.PaymentStatusPaid,
			PaymentMethod: "card",
			TransactionID: "tx-99",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.PaymentStatus != domain.PaymentStatusPaid {
			t.Fatalf("expected paid, got %s", order.PaymentStatus)
		}
		if order.PaymentMethod != "card" || order.TransactionID != "tx-99" {
			t.Fatalf("expected payment details recorded, got %+v", order)
		}
		if len(repo.events) != 1 || repo.events[0].Type != outbox.EventOrderPaid {
			t.Fatalf("expected order.paid event, got %+v", repo.events)
		}
	})

	t.Run("rejects refund of unpaid order", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo, domain.PaymentStatusUnpaid)
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		_, err := svc.UpdatePayment(context.Background(), PaymentInput{OrderID: "order-1", Target: domain.PaymentStatusRefunded})
		var pErr *domain.InvalidPaymentTransitionError
		if !errors.As(err, &pErr) {
			t.Fatalf("expected InvalidPaymentTransitionError, got %v", err)
		}
	})

	t.Run("same payment status is a no-op", func(t *testing.T) {
		repo := newFakeOrderRepo()
		seed(repo, domain.PaymentStatusPaid)
		svc := NewOrderService(repo, testCatalog(), clock.NewFixed(now))

		order, err := svc.UpdatePayment(context.Background(), PaymentInput{OrderID: "order-1", Target: domain.PaymentStatusPaid})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.Version != 1 || len(repo.events) != 0 {
			t.Fatalf("expected no write on no-op")
		}
	})
}

func TestOrderService_ListOrders(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	t.Run("rejects unknown status filter", func(t *testing.T) {
		svc := NewOrderService(newFakeOrderRepo(), testCatalog(), clock.NewFixed(now))

		_, err := svc.ListOrders(context.Background(), OrderFilter{Status: "shipped"})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "status" {
			t.Fatalf("expected status validation error, got %v", err)
		}
	})
}

type fakeCatalog struct {
	items map[string]domain.MenuItem
}

func (f *fakeCatalog) GetMenuItem(_ context.Context, id string) (domain.MenuItem, error) {
	item, ok := f.items[id]
	if !ok {
		return domain.MenuItem{}, domain.ErrMenuItemNotFound
	}
	return item, nil
}

type fakeOrderRepo struct {
	orders       map[string]domain.Order
	takenNumbers map[string]bool
	events       []outbox.Event
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:       make(map[string]domain.Order),
		takenNumbers: make(map[string]bool),
	}
}

func (f *fakeOrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Emulate rollback: restage state only on success.
	ordersBefore := make(map[string]domain.Order, len(f.orders))
	for k, v := range f.orders {
		ordersBefore[k] = v
	}
	eventsBefore := len(f.events)

	if err := fn(ctx); err != nil {
		f.orders = ordersBefore
		f.events = f.events[:eventsBefore]
		return err
	}
	return nil
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, order domain.Order) error {
	if f.takenNumbers[order.Number] {
		return domain.ErrOrderNumberTaken
	}
	for _, existing := range f.orders {
		if existing.Number == order.Number {
			return domain.ErrOrderNumberTaken
		}
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, id string) (domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) ListOrders(_ context.Context, filter OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, order := range f.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(_ context.Context, order domain.Order) error {
	stored, ok := f.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Version != order.Version {
		return domain.ErrConflict
	}
	order.Version++
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) AppendEvent(_ context.Context, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

// staleReadOrderRepo always serves the original snapshot from GetOrder,
// modeling two requests that both read before either wrote.
type staleReadOrderRepo struct {
	inner    *fakeOrderRepo
	snapshot domain.Order
}

func (r *staleReadOrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.inner.WithTx(ctx, fn)
}

func (r *staleReadOrderRepo) CreateOrder(ctx context.Context, order domain.Order) error {
	return r.inner.CreateOrder(ctx, order)
}

func (r *staleReadOrderRepo) GetOrder(_ context.Context, id string) (domain.Order, error) {
	if id == r.snapshot.ID {
		return r.snapshot, nil
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (r *staleReadOrderRepo) ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	return r.inner.ListOrders(ctx, filter)
}

func (r *staleReadOrderRepo) UpdateOrderStatus(ctx context.Context, order domain.Order) error {
	return r.inner.UpdateOrderStatus(ctx, order)
}

func (r *staleReadOrderRepo) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return r.inner.AppendEvent(ctx, evt)
}
