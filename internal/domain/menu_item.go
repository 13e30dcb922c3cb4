package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is a sellable catalog entry. The order core only reads it;
// catalog management owns its lifecycle.
type MenuItem struct {
	ID           string
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
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Snapshot captures the fields an order copies at placement time so later
// catalog edits never rewrite order history.
func (m MenuItem) Snapshot() ItemSnapshot {
	return ItemSnapshot{
		MenuItemID: m.ID,
		Name:       m.Name,
		UnitPrice:  m.Price,
	}
}

// ItemSnapshot is the denormalized view of a menu item as of order time.
type ItemSnapshot struct {
	MenuItemID string
	Name       string
	UnitPrice  decimal.Decimal
}
