// Package catalog is the read-only menu: item id to name, code and unit price.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownItem is returned when an id is not on the menu.
var ErrUnknownItem = errors.New("unknown menu item")

// Item is a single menu entry.
type Item struct {
	ID    string
	Name  string
	Code  string
	Price decimal.Decimal
}

// Catalog is immutable once built.
type Catalog struct {
	items []Item
	byID  map[string]int
}

// New validates the entries and builds a catalog that keeps their order.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for _, item := range items {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			return nil, errors.New("menu item id is required")
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("duplicate menu item id %q", item.ID)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("menu item %q has negative price %s", item.ID, item.Price)
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (Item, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// Get is Lookup with an ErrUnknownItem error.
func (c *Catalog) Get(id string) (Item, error) {
	item, ok := c.Lookup(id)
	if !ok {
		return Item{}, fmt.Errorf("item %q: %w", id, ErrUnknownItem)
	}
	return item, nil
}

// Items returns the menu in load order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports the number of entries.
func (c *Catalog) Len() int { return len(c.items) }

// Default is the built-in menu used when no menu file is configured.
func Default() *Catalog {
	c, err := New([]Item{
		{ID: "1", Name: "Cheese", Code: "CHEE", Price: decimal.RequireFromString("16.00")},
		{ID: "2", Name: "Pepperoni", Code: "PEPP", Price: decimal.RequireFromString("21.00")},
		{ID: "3", Name: "Hawaiian", Code: "HAWA", Price: decimal.RequireFromString("19.50")},
		{ID: "4", Name: "Meat Lovers", Code: "MEAT", Price: decimal.RequireFromString("23.00")},
		{ID: "5", Name: "Vegetarian", Code: "VEGE", Price: decimal.RequireFromString("18.00")},
		{ID: "6", Name: "Margherita", Code: "MARG", Price: decimal.RequireFromString("18.50")},
		{ID: "7", Name: "Garlic Bread", Code: "GARL", Price: decimal.RequireFromString("6.50")},
		{ID: "8", Name: "Soft Drink", Code: "SODA", Price: decimal.RequireFromString("3.99")},
	})
	if err != nil {
		panic(err)
	}
	return c
}
