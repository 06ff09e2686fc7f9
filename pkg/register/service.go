// Package register runs the till: one current cart, the menu and the ledger,
// driven by a single goroutine so cart edits and commits never interleave.
package register

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pizzapos/pkg/cart"
	"pizzapos/pkg/catalog"
	"pizzapos/pkg/ledger"
	"pizzapos/pkg/money"
)

var (
	// ErrBusy is returned when a command could not be queued in time.
	ErrBusy = errors.New("register is busy processing other requests")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("register is closed")
)

// IsValidation reports whether err is a caller mistake rather than a fault.
func IsValidation(err error) bool {
	return errors.Is(err, cart.ErrInvalidQuantity) ||
		errors.Is(err, catalog.ErrUnknownItem) ||
		errors.Is(err, ledger.ErrEmptyOrder)
}

// Recorder receives register events. *metrics.Registry implements it.
type Recorder interface {
	ObserveCommit(units int, revenueExGST decimal.Decimal)
	ObserveCommitFailure(reason string)
	ObserveCartMutation(op string)
	ObserveReset()
}

type nopRecorder struct{}

func (nopRecorder) ObserveCommit(int, decimal.Decimal) {}
func (nopRecorder) ObserveCommitFailure(string)        {}
func (nopRecorder) ObserveCartMutation(string)         {}
func (nopRecorder) ObserveReset()                      {}

type action int

const (
	actionView action = iota
	actionAdd
	actionSet
	actionRemove
	actionClear
	actionCommit
	actionReset
)

var actionNames = map[action]string{
	actionView:   "view",
	actionAdd:    "add",
	actionSet:    "set",
	actionRemove: "remove",
	actionClear:  "clear",
	actionCommit: "commit",
	actionReset:  "reset",
}

// command envelopes the work the register goroutine must perform.
type command struct {
	action action
	itemID string
	qty    int
	reply  chan result
}

// result carries the cart quote or the committed order back to the caller.
type result struct {
	quote ledger.Quote
	order ledger.Order
	err   error
}

// Service owns the cart and serializes every change to it.
type Service struct {
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	cart     *cart.Cart
	recorder Recorder
	logger   *zap.Logger
	timeout  time.Duration

	commands  chan command
	quit      chan struct{}
	closeOnce sync.Once
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for cart and commit events; nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sends register activity to r, typically a metrics.Registry.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithQueueTimeout bounds how long a caller waits for the goroutine to accept
// a command.
func WithQueueTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService starts the register goroutine. A nil ledger gets a fresh one.
func NewService(cat *catalog.Catalog, l *ledger.Ledger, opts ...Option) *Service {
	if l == nil {
		l = ledger.New()
	}
	s := &Service{
		catalog:  cat,
		ledger:   l,
		cart:     cart.New(),
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		timeout:  2 * time.Second,
		commands: make(chan command),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

// loop is the only goroutine that touches the cart, so commands never interleave.
func (s *Service) loop() {
	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- s.apply(cmd)
		case <-s.quit:
			return
		}
	}
}

// apply runs one command and returns the fresh quote for cart mutations.
func (s *Service) apply(cmd command) result {
	switch cmd.action {
	case actionView:
	case actionAdd:
		if _, err := s.catalog.Get(cmd.itemID); err != nil {
			return result{err: err}
		}
		if err := s.cart.Add(cmd.itemID, cmd.qty); err != nil {
			return result{err: err}
		}
	case actionSet:
		if cmd.qty > 0 {
			if _, err := s.catalog.Get(cmd.itemID); err != nil {
				return result{err: err}
			}
		}
		if err := s.cart.SetQuantity(cmd.itemID, cmd.qty); err != nil {
			return result{err: err}
		}
	case actionRemove:
		s.cart.Remove(cmd.itemID)
	case actionClear:
		s.cart.Clear()
	case actionCommit:
		return s.commit()
	case actionReset:
		s.cart.Clear()
		s.ledger.Reset()
		s.recorder.ObserveReset()
		return result{quote: emptyQuote()}
	default:
		return result{err: errors.New("unknown register action")}
	}

	if cmd.action != actionView {
		s.recorder.ObserveCartMutation(actionNames[cmd.action])
		s.logger.Debug("cart updated",
			zap.String("op", actionNames[cmd.action]),
			zap.String("item_id", cmd.itemID),
			zap.Int("qty", cmd.qty),
		)
	}
	quote, err := s.quote()
	return result{quote: quote, err: err}
}

// commit records metrics for both outcomes so failed checkouts stay visible.
func (s *Service) commit() result {
	order, err := s.ledger.CommitCart(s.cart, s.catalog)
	if err != nil {
		s.recorder.ObserveCommitFailure(failureReason(err))
		s.logger.Warn("commit rejected", zap.Error(err))
		return result{err: err}
	}
	s.recorder.ObserveCommit(order.Units(), s.ledger.Revenue())
	return result{order: order, quote: emptyQuote()}
}

func (s *Service) quote() (ledger.Quote, error) {
	lines := s.cart.Snapshot()
	if len(lines) == 0 {
		return emptyQuote(), nil
	}
	return ledger.Price(lines, s.catalog)
}

func emptyQuote() ledger.Quote {
	return ledger.Quote{Lines: []ledger.LineItem{}, Subtotal: money.Zero, Tax: money.Zero, Total: money.Zero}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrEmptyOrder):
		return "empty_order"
	case errors.Is(err, catalog.ErrUnknownItem):
		return "unknown_item"
	case errors.Is(err, cart.ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return "other"
	}
}

// call hands cmd to the goroutine and waits for its reply. ctx and the queue
// timeout only bound the wait for acceptance. Once accepted a command runs to
// completion and its real outcome is returned, so a commit is never reported
// as failed after it was recorded.
func (s *Service) call(ctx context.Context, cmd command) (result, error) {
	cmd.reply = make(chan result, 1)

	select {
	case <-s.quit:
		return result{}, ErrClosed
	default:
	}

	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-s.quit:
		return result{}, ErrClosed
	case <-time.After(s.timeout):
		return result{}, ErrBusy
	}

	res := <-cmd.reply
	return res, res.err
}

// CurrentOrder prices the cart without changing it.
func (s *Service) CurrentOrder(ctx context.Context) (ledger.Quote, error) {
	res, err := s.call(ctx, command{action: actionView})
	return res.quote, err
}

// AddItem adds qty of a menu item to the cart.
func (s *Service) AddItem(ctx context.Context, itemID string, qty int) (ledger.Quote, error) {
	res, err := s.call(ctx, command{action: actionAdd, itemID: itemID, qty: qty})
	return res.quote, err
}

// SetQuantity overwrites the quantity of an item; zero removes it.
func (s *Service) SetQuantity(ctx context.Context, itemID string, qty int) (ledger.Quote, error) {
	res, err := s.call(ctx, command{action: actionSet, itemID: itemID, qty: qty})
	return res.quote, err
}

// RemoveItem drops an item from the cart.
func (s *Service) RemoveItem(ctx context.Context, itemID string) (ledger.Quote, error) {
	res, err := s.call(ctx, command{action: actionRemove, itemID: itemID})
	return res.quote, err
}

// ClearCart empties the cart.
func (s *Service) ClearCart(ctx context.Context) (ledger.Quote, error) {
	res, err := s.call(ctx, command{action: actionClear})
	return res.quote, err
}

// Commit turns the cart into an order and empties the cart.
func (s *Service) Commit(ctx context.Context) (ledger.Order, error) {
	res, err := s.call(ctx, command{action: actionCommit})
	return res.order, err
}

// Reset empties the cart and wipes the ledger.
func (s *Service) Reset(ctx context.Context) error {
	_, err := s.call(ctx, command{action: actionReset})
	return err
}

// Catalog returns the menu.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Ledger returns the ledger for read-only queries. Summary reads do not go
// through the register goroutine.
func (s *Service) Ledger() *ledger.Ledger { return s.ledger }

// PerItemSales reports sales per item enriched from the menu.
func (s *Service) PerItemSales() []ledger.ItemSales {
	return s.ledger.PerItemSales(s.catalog)
}

// Close stops the goroutine. It is safe to call more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}
