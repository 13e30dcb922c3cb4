package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brewhouse/cafe-orders/internal/app"
	"github.com/brewhouse/cafe-orders/internal/domain"
)

type MenuRepository struct {
	pool *pgxpool.Pool
}

func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

func (r *MenuRepository) CreateMenuItem(ctx context.Context, item domain.MenuItem) error {
	const stmt = `
INSERT INTO menu_items (
	id, name, description, price, category, is_available, is_featured,
	is_vegetarian, is_vegan, is_gluten_free, display_order, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, stmt,
		item.ID, item.Name, item.Description, item.Price, item.Category,
		item.Available, item.Featured, item.Vegetarian, item.Vegan,
		item.GlutenFree, item.DisplayOrder, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create menu item: %w", err)
	}
	return nil
}

func (r *MenuRepository) UpdateMenuItem(ctx context.Context, item domain.MenuItem) error {
	const stmt = `
UPDATE menu_items
SET price = $2, is_available = $3, is_featured = $4, updated_at = $5
WHERE id = $1`

	tag, err := r.pool.Exec(ctx, stmt, item.ID, item.Price, item.Available, item.Featured, item.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMenuItemNotFound
	}
	return nil
}

const menuItemColumns = `
id, name, description, price, category, is_available, is_featured,
is_vegetarian, is_vegan, is_gluten_free, display_order, created_at, updated_at`

func scanMenuItem(row pgx.Row) (domain.MenuItem, error) {
	var m domain.MenuItem
	err := row.Scan(
		&m.ID, &m.Name, &m.Description, &m.Price, &m.Category, &m.Available,
		&m.Featured, &m.Vegetarian, &m.Vegan, &m.GlutenFree, &m.DisplayOrder,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.MenuItem{}, err
	}
	return m, nil
}

func (r *MenuRepository) GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error) {
	query := `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

	item, err := scanMenuItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.MenuItem{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.MenuItem{}, domain.ErrMenuItemNotFound
		}
		return domain.MenuItem{}, fmt.Errorf("get menu item: %w", err)
	}
	return item, nil
}

func (r *MenuRepository) ListMenuItems(ctx context.Context, filter app.MenuFilter) ([]domain.MenuItem, error) {
	query := `SELECT ` + menuItemColumns + ` FROM menu_items WHERE 1=1`
	var args []any
	if filter.AvailableOnly {
		query += " AND is_available"
	}
	if filter.FeaturedOnly {
		query += " AND is_featured"
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY display_order, name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate menu items: %w", rows.Err())
	}
	return items, nil
}

func (r *MenuRepository) ListCategories(ctx context.Context) ([]string, error) {
	const query = `
SELECT DISTINCT category
FROM menu_items
WHERE category <> ''
ORDER BY category`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate categories: %w", rows.Err())
	}
	return categories, nil
}
