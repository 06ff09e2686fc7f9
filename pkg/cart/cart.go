// Package cart is the staging area for the order currently being rung up.
package cart

import (
	"fmt"
	"sync"
)

// MaxQuantity caps the quantity a single line may hold.
const MaxQuantity = 9999

// Line is one item id with its requested quantity.
type Line struct {
	ItemID string
	Qty    int
}

// Cart maps item ids to positive quantities and remembers the order in which
// items were first added. A zero quantity is never stored.
type Cart struct {
	mu    sync.Mutex
	qty   map[string]int
	order []string
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{qty: make(map[string]int)}
}

// Add increments the quantity of id by qty, which must be positive. The
// resulting line may not exceed MaxQuantity; a rejected add leaves the cart
// untouched.
func (c *Cart) Add(id string, qty int) error {
	if qty <= 0 || qty > MaxQuantity {
		return fmt.Errorf("add %d of %q: %w", qty, id, ErrInvalidQuantity)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if current := c.qty[id]; current > MaxQuantity-qty {
		return fmt.Errorf("add %d of %q to %d: %w", qty, id, current, ErrInvalidQuantity)
	}
	c.setLocked(id, c.qty[id]+qty)
	return nil
}

// SetQuantity overwrites the quantity of id. Zero removes the entry.
func (c *Cart) SetQuantity(id string, qty int) error {
	if qty < 0 || qty > MaxQuantity {
		return fmt.Errorf("set %q to %d: %w", id, qty, ErrInvalidQuantity)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if qty == 0 {
		c.removeLocked(id)
		return nil
	}
	c.setLocked(id, qty)
	return nil
}

// Remove drops id. Removing an absent id is a no-op.
func (c *Cart) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Snapshot copies the current lines in first-added order.
func (c *Cart) Snapshot() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Quantity returns the stored quantity for id, zero when absent.
func (c *Cart) Quantity(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qty[id]
}

// Len reports the number of distinct items.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Consume hands a snapshot to fn while holding the cart lock and clears the
// cart only if fn succeeds. The cart cannot change between the snapshot and
// the clear.
func (c *Cart) Consume(fn func([]Line) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(c.snapshotLocked()); err != nil {
		return err
	}
	c.clearLocked()
	return nil
}

func (c *Cart) setLocked(id string, qty int) {
	if _, ok := c.qty[id]; !ok {
		c.order = append(c.order, id)
	}
	c.qty[id] = qty
}

func (c *Cart) removeLocked(id string) {
	if _, ok := c.qty[id]; !ok {
		return
	}
	delete(c.qty, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) clearLocked() {
	c.qty = make(map[string]int)
	c.order = nil
}

func (c *Cart) snapshotLocked() []Line {
	lines := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		lines = append(lines, Line{ItemID: id, Qty: c.qty[id]})
	}
	return lines
}
