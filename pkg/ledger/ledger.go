// Package ledger owns committed orders, the running pre-tax revenue and the
// order id counter, and answers every sales summary query.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pizzapos/pkg/cart"
	"pizzapos/pkg/money"
)

// Ledger is an append-only log of orders. Commits serialize on a write lock;
// summary reads share a read lock and always see whole commits.
type Ledger struct {
	mu      sync.RWMutex
	orders  []Order
	revenue decimal.Decimal
	nextID  int64

	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns an empty ledger whose first order id is 1.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		revenue: decimal.Zero,
		nextID:  1,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Commit prices lines and appends the resulting order. On any pricing failure
// nothing changes: no id is consumed and the accumulator is untouched.
func (l *Ledger) Commit(lines []cart.Line, cat Catalog) (Order, error) {
	quote, err := Price(lines, cat)
	if err != nil {
		return Order{}, err
	}

	l.mu.Lock()
	order := Order{
		ID:        l.nextID,
		Lines:     quote.Lines,
		Subtotal:  quote.Subtotal,
		Tax:       quote.Tax,
		Total:     quote.Total,
		CreatedAt: l.now().UTC(),
	}
	l.orders = append(l.orders, order)
	l.revenue = l.revenue.Add(order.Subtotal)
	l.nextID++
	l.mu.Unlock()

	l.logger.Info("order committed",
		zap.Int64("order_id", order.ID),
		zap.Int("lines", len(order.Lines)),
		zap.String("subtotal", money.Format(order.Subtotal)),
		zap.String("total", money.Format(order.Total)),
	)
	return order.clone(), nil
}

// CommitCart commits the cart's contents and clears it, exactly once, only
// when the commit succeeds.
func (l *Ledger) CommitCart(c *cart.Cart, cat Catalog) (Order, error) {
	var order Order
	err := c.Consume(func(lines []cart.Line) error {
		var err error
		order, err = l.Commit(lines, cat)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// Orders returns every committed order in id order.
func (l *Ledger) Orders() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.clone()
	}
	return out
}

// Order looks up a committed order by id.
func (l *Ledger) Order(id int64) (Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	// ids are strictly increasing but not dense after a reset.
	idx := sort.Search(len(l.orders), func(i int) bool { return l.orders[i].ID >= id })
	if idx < len(l.orders) && l.orders[idx].ID == id {
		return l.orders[idx].clone(), nil
	}
	return Order{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
}

// Len is the number of committed orders.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}

// NextID is the id the next successful commit will receive.
func (l *Ledger) NextID() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextID
}

// Revenue is the raw pre-tax accumulator.
func (l *Ledger) Revenue() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.revenue
}

// Reset drops all orders and zeroes the revenue. The id counter keeps going,
// so an id is never handed out twice.
func (l *Ledger) Reset() {
	l.mu.Lock()
	dropped := len(l.orders)
	l.orders = nil
	l.revenue = decimal.Zero
	next := l.nextID
	l.mu.Unlock()
	l.logger.Warn("ledger reset", zap.Int("dropped_orders", dropped), zap.Int64("next_order_id", next))
}

// Verify recomputes revenue and ids from the order log and compares them with
// the running state.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sum := decimal.Zero
	prev := int64(0)
	for i, o := range l.orders {
		if o.ID <= prev {
			return fmt.Errorf("%w: order at position %d has id %d after %d", ErrLedgerInconsistent, i, o.ID, prev)
		}
		prev = o.ID
		sum = sum.Add(o.Subtotal)
	}
	if !sum.Equal(l.revenue) {
		return fmt.Errorf("%w: accumulator %s, orders sum %s", ErrLedgerInconsistent, l.revenue, sum)
	}
	if l.nextID <= prev {
		return fmt.Errorf("%w: next id %d not above last id %d", ErrLedgerInconsistent, l.nextID, prev)
	}
	return nil
}
