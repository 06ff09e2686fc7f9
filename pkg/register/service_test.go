package register

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzapos/pkg/cart"
	"pizzapos/pkg/catalog"
	"pizzapos/pkg/ledger"
	"pizzapos/pkg/money"
)

type fakeRecorder struct {
	mu        sync.Mutex
	commits   int
	units     int
	revenue   decimal.Decimal
	failures  []string
	mutations []string
	resets    int
}

func (f *fakeRecorder) ObserveCommit(units int, revenue decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	f.units += units
	f.revenue = revenue
}

func (f *fakeRecorder) ObserveCommitFailure(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, reason)
}

func (f *fakeRecorder) ObserveCartMutation(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = append(f.mutations, op)
}

func (f *fakeRecorder) ObserveReset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	cat, err := catalog.New([]catalog.Item{
		{ID: "A", Name: "Alpha", Code: "ALP", Price: decimal.RequireFromString("9.99")},
		{ID: "B", Name: "Beta", Code: "BET", Price: decimal.RequireFromString("12.50")},
	})
	require.NoError(t, err)
	svc := NewService(cat, ledger.New(), opts...)
	t.Cleanup(svc.Close)
	return svc
}

func TestCheckoutScenario(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newTestService(t, WithRecorder(rec))
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "A", 2)
	require.NoError(t, err)
	quote, err := svc.AddItem(ctx, "B", 1)
	require.NoError(t, err)
	assert.Equal(t, "32.48", money.Format(quote.Subtotal))
	assert.Equal(t, "3.25", money.Format(quote.Tax))
	assert.Equal(t, "35.73", money.Format(quote.Total))

	order, err := svc.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, "35.73", money.Format(order.Total))

	current, err := svc.CurrentOrder(ctx)
	require.NoError(t, err)
	assert.Empty(t, current.Lines)
	assert.Equal(t, "0.00", money.Format(current.Total))
	assert.Equal(t, int64(2), svc.Ledger().NextID())

	assert.Equal(t, 1, rec.commits)
	assert.Equal(t, 3, rec.units)
	assert.Equal(t, "32.48", money.Format(rec.revenue))
	assert.Equal(t, []string{"add", "add"}, rec.mutations)
}

func TestAddUnknownItemChangesNothing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "A", 1)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, "Z", 1)
	assert.True(t, errors.Is(err, catalog.ErrUnknownItem))
	assert.True(t, IsValidation(err))

	quote, err := svc.CurrentOrder(ctx)
	require.NoError(t, err)
	require.Len(t, quote.Lines, 1)
	assert.Equal(t, "A", quote.Lines[0].ItemID)
	assert.Equal(t, 0, svc.Ledger().Len())
}

func TestInvalidQuantities(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "A", 0)
	assert.True(t, errors.Is(err, cart.ErrInvalidQuantity))
	_, err = svc.SetQuantity(ctx, "A", -2)
	assert.True(t, errors.Is(err, cart.ErrInvalidQuantity))
	assert.True(t, IsValidation(err))

	_, err = svc.SetQuantity(ctx, "Z", 4)
	assert.True(t, errors.Is(err, catalog.ErrUnknownItem))
}

func TestSetThenZeroOnEmptyCart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	quote, err := svc.SetQuantity(ctx, "B", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, quote.Units())

	quote, err = svc.SetQuantity(ctx, "B", 0)
	require.NoError(t, err)
	assert.Empty(t, quote.Lines)

	_, err = svc.SetQuantity(ctx, "Z", 0)
	require.NoError(t, err, "zeroing an absent unknown item is a no-op")
	_, err = svc.RemoveItem(ctx, "Z")
	require.NoError(t, err)
}

func TestEmptyCommitLeavesStateUnchanged(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newTestService(t, WithRecorder(rec))
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "A", 1)
	require.NoError(t, err)
	_, err = svc.Commit(ctx)
	require.NoError(t, err)

	l := svc.Ledger()
	beforeLen, beforeNext, beforeRevenue := l.Len(), l.NextID(), l.Revenue()

	_, err = svc.Commit(ctx)
	assert.True(t, errors.Is(err, ledger.ErrEmptyOrder))
	assert.Equal(t, beforeLen, l.Len())
	assert.Equal(t, beforeNext, l.NextID())
	assert.True(t, beforeRevenue.Equal(l.Revenue()))
	assert.Equal(t, []string{"empty_order"}, rec.failures)
}

func TestClearAndReset(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newTestService(t, WithRecorder(rec))
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "A", 1)
	require.NoError(t, err)
	quote, err := svc.ClearCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, quote.Lines)

	_, err = svc.AddItem(ctx, "B", 1)
	require.NoError(t, err)
	_, err = svc.Commit(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "A", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx))
	assert.Equal(t, 0, svc.Ledger().Len())
	assert.Equal(t, int64(2), svc.Ledger().NextID())
	current, err := svc.CurrentOrder(ctx)
	require.NoError(t, err)
	assert.Empty(t, current.Lines)
	assert.Equal(t, 1, rec.resets)
}

func TestConcurrentCommits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, "A", 1); err != nil {
				return
			}
			if _, err := svc.Commit(ctx); err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	l := svc.Ledger()
	assert.Equal(t, committed, l.Len())
	assert.Equal(t, 20, l.Summary().CountsByItem["A"])
	require.NoError(t, l.Verify())
}

func TestCancelledContext(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AddItem(ctx, "A", 1)
	// The goroutine may still accept the command; either outcome is valid, but
	// a cancelled context must never surface as a validation error.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsValidation(err))
	}
}

// gatedRecorder holds the register goroutine inside ObserveCommit until
// released, after the order is already in the ledger.
type gatedRecorder struct {
	nopRecorder
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRecorder) ObserveCommit(int, decimal.Decimal) {
	close(g.entered)
	<-g.release
}

func TestCommitOutlivesCancelledCaller(t *testing.T) {
	rec := &gatedRecorder{entered: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(t, WithRecorder(rec))
	_, err := svc.AddItem(context.Background(), "A", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		order ledger.Order
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		order, err := svc.Commit(ctx)
		done <- outcome{order, err}
	}()

	<-rec.entered
	cancel()
	close(rec.release)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, int64(1), got.order.ID)
	assert.Equal(t, 1, svc.Ledger().Len())

	quote, err := svc.CurrentOrder(context.Background())
	require.NoError(t, err)
	assert.Empty(t, quote.Lines)
}

func TestClosedService(t *testing.T) {
	svc := newTestService(t, WithQueueTimeout(50*time.Millisecond))
	svc.Close()
	svc.Close()

	_, err := svc.CurrentOrder(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPerItemSalesUsesMenu(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "B", 2)
	require.NoError(t, err)
	_, err = svc.Commit(ctx)
	require.NoError(t, err)

	sales := svc.PerItemSales()
	require.Len(t, sales, 1)
	assert.Equal(t, "Beta", sales[0].Name)
	assert.Equal(t, "25.00", money.Format(sales[0].Revenue))
}
