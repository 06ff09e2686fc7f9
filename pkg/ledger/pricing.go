package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pizzapos/pkg/cart"
	"pizzapos/pkg/catalog"
	"pizzapos/pkg/money"
)

// Catalog is the lookup pricing needs. *catalog.Catalog satisfies it.
type Catalog interface {
	Lookup(id string) (catalog.Item, bool)
}

// Price turns cart lines into priced line items and totals. Unit prices and
// line totals are rounded to cents per line, then subtotal, tax and total are
// each rounded again. It has no side effects.
func Price(lines []cart.Line, cat Catalog) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, ErrEmptyOrder
	}
	items := make([]LineItem, 0, len(lines))
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Qty <= 0 || line.Qty > cart.MaxQuantity {
			return Quote{}, fmt.Errorf("price %q: %w", line.ItemID, cart.ErrInvalidQuantity)
		}
		entry, ok := cat.Lookup(line.ItemID)
		if !ok {
			return Quote{}, fmt.Errorf("price %q: %w", line.ItemID, catalog.ErrUnknownItem)
		}
		unit := money.Round(entry.Price)
		lineTotal := money.Round(unit.Mul(decimal.NewFromInt(int64(line.Qty))))
		items = append(items, LineItem{
			ItemID:    entry.ID,
			Code:      entry.Code,
			Name:      entry.Name,
			Qty:       line.Qty,
			UnitPrice: unit,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return totals(items, subtotal), nil
}

func totals(items []LineItem, lineSum decimal.Decimal) Quote {
	subtotal := money.Round(lineSum)
	tax := money.Tax(subtotal)
	return Quote{
		Lines:    items,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    money.Round(subtotal.Add(tax)),
	}
}
