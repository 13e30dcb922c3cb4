package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brewhouse/cafe-orders/internal/app"
	"github.com/brewhouse/cafe-orders/internal/domain"
	"github.com/brewhouse/cafe-orders/internal/outbox"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const orderStmt = `
INSERT INTO orders (
	id, order_number, user_id, status, payment_status, payment_method,
	transaction_id, order_type, table_number, customer_name, customer_email,
	customer_phone, subtotal, tax, total, version, placed_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.exec(ctx, orderStmt,
		order.ID, order.Number, order.UserID, order.Status, order.PaymentStatus,
		order.PaymentMethod, order.TransactionID, order.Type, order.TableNumber,
		order.Customer.Name, order.Customer.Email, order.Customer.Phone,
		order.Subtotal, order.Tax, order.Total, order.Version, order.PlacedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderNumberTaken
		}
		return fmt.Errorf("create order: %w", err)
	}

	const itemStmt = `
INSERT INTO order_items (
	id, order_id, line_no, menu_item_id, item_name, unit_price, quantity,
	total_price, special_instructions
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i, item := range order.Items {
		_, err := r.exec(ctx, itemStmt,
			item.ID, order.ID, i, item.MenuItemID, item.Name, item.UnitPrice,
			item.Quantity, item.Total, item.SpecialInstructions,
		)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return nil
}

const orderColumns = `
id, order_number, user_id, status, payment_status, payment_method,
transaction_id, order_type, table_number, customer_name, customer_email,
customer_phone, subtotal, tax, total, version, placed_at, confirmed_at,
prepared_at, ready_at, completed_at, cancelled_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status, paymentStatus, orderType string
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &status, &paymentStatus, &o.PaymentMethod,
		&o.TransactionID, &orderType, &o.TableNumber, &o.Customer.Name,
		&o.Customer.Email, &o.Customer.Phone, &o.Subtotal, &o.Tax, &o.Total,
		&o.Version, &o.PlacedAt, &o.ConfirmedAt, &o.PreparedAt, &o.ReadyAt,
		&o.CompletedAt, &o.CancelledAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.Type = domain.OrderType(orderType)
	return o, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, []string{order.ID})
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter app.OrderFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY placed_at DESC"

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate orders: %w", rows.Err())
	}
	if len(orders) == 0 {
		return nil, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	const query = `
SELECT order_id, id, menu_item_id, item_name, unit_price, quantity,
	total_price, special_instructions
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, line_no`

	rows, err := r.query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ID, &item.MenuItemID, &item.Name,
			&item.UnitPrice, &item.Quantity, &item.Total, &item.SpecialInstructions); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate order items: %w", rows.Err())
	}
	return items, nil
}

// UpdateOrderStatus writes status, payment, and timestamp fields guarded by
// the version the caller read. Zero rows affected with the order still
// present means another writer got there first.
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, order domain.Order) error {
	const stmt = `
UPDATE orders
SET status = $2, payment_status = $3, payment_method = $4, transaction_id = $5,
	confirmed_at = $6, prepared_at = $7, ready_at = $8, completed_at = $9,
	cancelled_at = $10, version = version + 1
WHERE id = $1 AND version = $11`

	tag, err := r.exec(ctx, stmt,
		order.ID, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.TransactionID, order.ConfirmedAt, order.PreparedAt, order.ReadyAt,
		order.CompletedAt, order.CancelledAt, order.Version,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *OrderRepository) AppendEvent(ctx context.Context, evt outbox.Event) error {
	const stmt = `
INSERT INTO order_events (event_id, order_id, event_type, key, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, evt.ID, evt.OrderID, evt.Type, evt.Key, evt.Payload, evt.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (r *OrderRepository) PendingEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	const query = `
SELECT seq, event_id, order_id, event_type, key, payload, created_at, sent_at
FROM order_events
WHERE sent_at IS NULL
ORDER BY seq
LIMIT $1`

	rows, err := r.query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pending events: %w", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var evt outbox.Event
		if err := rows.Scan(&evt.Seq, &evt.ID, &evt.OrderID, &evt.Type,
			&evt.Key, &evt.Payload, &evt.CreatedAt, &evt.SentAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

func (r *OrderRepository) MarkEventSent(ctx context.Context, seq int64) error {
	const stmt = `UPDATE order_events SET sent_at = NOW() WHERE seq = $1`
	if _, err := r.exec(ctx, stmt, seq); err != nil {
		return fmt.Errorf("mark event sent: %w", err)
	}
	return nil
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
