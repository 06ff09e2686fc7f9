package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a priced snapshot of one cart line.
type LineItem struct {
	ItemID    string
	Code      string
	Name      string
	Qty       int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Quote is the priced form of a cart before it is committed.
type Quote struct {
	Lines    []LineItem
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Units sums the quantities of every line.
func (q Quote) Units() int {
	return units(q.Lines)
}

// Order is a committed, immutable sale.
type Order struct {
	ID        int64
	Lines     []LineItem
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
}

// Units sums the quantities of every line.
func (o Order) Units() int {
	return units(o.Lines)
}

func (o Order) clone() Order {
	lines := make([]LineItem, len(o.Lines))
	copy(lines, o.Lines)
	o.Lines = lines
	return o
}

func units(lines []LineItem) int {
	n := 0
	for _, li := range lines {
		n += li.Qty
	}
	return n
}
