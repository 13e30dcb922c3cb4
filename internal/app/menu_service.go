package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/brewhouse/cafe-orders/internal/clock"
	"github.com/brewhouse/cafe-orders/internal/domain"
)

type MenuRepository interface {
	CreateMenuItem(ctx context.Context, item domain.MenuItem) error
	UpdateMenuItem(ctx context.Context, item domain.MenuItem) error
	GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error)
	ListMenuItems(ctx context.Context, filter MenuFilter) ([]domain.MenuItem, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// MenuFilter narrows ListMenuItems. AvailableOnly is the browsing default;
// management listings pass false to see everything.
type MenuFilter struct {
	Category      string
	FeaturedOnly  bool
	AvailableOnly bool
}

// MenuService owns the catalog: browsing for customers and item management
// for staff. The order core only sees it through the Catalog interface.
type MenuService struct {
	repo  MenuRepository
	clock clock.Clock
}

func NewMenuService(repo MenuRepository, clk clock.Clock) *MenuService {
	return &MenuService{
		repo:  repo,
		clock: clk,
	}
}

type CreateMenuItemInput struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	Category     string
	Available    bool
	Featured     bool
	Vegetarian   bool
	Vegan        bool
	GlutenFree   bool
	DisplayOrder int
}

func (s *MenuService) CreateMenuItem(ctx context.Context, in CreateMenuItemInput) (domain.MenuItem, error) {
	if in.Name == "" {
		return domain.MenuItem{}, &domain.ValidationError{Field: "name", Reason: "required"}
	}
	if in.Price.IsNegative() {
		return domain.MenuItem{}, &domain.ValidationError{Field: "price", Reason: "must not be negative"}
	}

	now := s.clock.Now()
	item := domain.MenuItem{
		ID:           newID(),
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		Category:     in.Category,
		Available:    in.Available,
		Featured:     in.Featured,
		Vegetarian:   in.Vegetarian,
		Vegan:        in.Vegan,
		GlutenFree:   in.GlutenFree,
		DisplayOrder: in.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateMenuItem(ctx, item); err != nil {
		return domain.MenuItem{}, err
	}
	return item, nil
}

// UpdateMenuItemInput carries optional field updates; nil means unchanged.
type UpdateMenuItemInput struct {
	ID        string
	Price     *decimal.Decimal
	Available *bool
	Featured  *bool
}

func (s *MenuService) UpdateMenuItem(ctx context.Context, in UpdateMenuItemInput) (domain.MenuItem, error) {
	if in.ID == "" {
		return domain.MenuItem{}, domain.ErrInvalidID
	}
	if in.Price != nil && in.Price.IsNegative() {
		return domain.MenuItem{}, &domain.ValidationError{Field: "price", Reason: "must not be negative"}
	}

	item, err := s.repo.GetMenuItem(ctx, in.ID)
	if err != nil {
		return domain.MenuItem{}, err
	}

	if in.Price != nil {
		item.Price = *in.Price
	}
	if in.Available != nil {
		item.Available = *in.Available
	}
	if in.Featured != nil {
		item.Featured = *in.Featured
	}
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateMenuItem(ctx, item); err != nil {
		return domain.MenuItem{}, err
	}
	return item, nil
}

func (s *MenuService) GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error) {
	if id == "" {
		return domain.MenuItem{}, domain.ErrInvalidID
	}
	return s.repo.GetMenuItem(ctx, id)
}

func (s *MenuService) ListMenuItems(ctx context.Context, filter MenuFilter) ([]domain.MenuItem, error) {
	return s.repo.ListMenuItems(ctx, filter)
}

func (s *MenuService) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}
