package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"pizzapos/pkg/money"
)

// Summary is the all-time sales total.
type Summary struct {
	OrderCount    int
	RevenueExGST  decimal.Decimal
	GST           decimal.Decimal
	RevenueIncGST decimal.Decimal
	// CountsByItem is units sold per item id, recounted from every order.
	CountsByItem map[string]int
}

// DailySummary aggregates the orders of one UTC calendar day.
type DailySummary struct {
	Date          string
	RevenueIncGST decimal.Decimal
	GST           decimal.Decimal
	RevenueExGST  decimal.Decimal
	UnitsSold     int
	OrderCount    int
}

// ItemSales is the all-time quantity and pre-tax revenue of one item.
type ItemSales struct {
	ItemID  string
	Name    string
	Code    string
	Qty     int
	Revenue decimal.Decimal
}

const dayLayout = "2006-01-02"

// Summary reports order count, revenue with and without GST, and units sold
// per item.
func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	exGST := money.Round(l.revenue)
	gst := money.Tax(exGST)
	return Summary{
		OrderCount:    len(l.orders),
		RevenueExGST:  exGST,
		GST:           gst,
		RevenueIncGST: money.Round(exGST.Add(gst)),
		CountsByItem:  countsByItem(l.orders),
	}
}

// TotalRevenueExGST is Summary().RevenueExGST without the item recount.
func (l *Ledger) TotalRevenueExGST() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return money.Round(l.revenue)
}

// TotalGST is Summary().GST without the item recount.
func (l *Ledger) TotalGST() decimal.Decimal {
	return money.Tax(l.TotalRevenueExGST())
}

// TotalRevenueIncGST is Summary().RevenueIncGST without the item recount.
func (l *Ledger) TotalRevenueIncGST() decimal.Decimal {
	exGST := l.TotalRevenueExGST()
	return money.Round(exGST.Add(money.Tax(exGST)))
}

// DailySummary groups orders by the UTC date of their timestamp, oldest day
// first.
func (l *Ledger) DailySummary() []DailySummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byDate := make(map[string]*DailySummary)
	var dates []string
	for _, o := range l.orders {
		date := o.CreatedAt.UTC().Format(dayLayout)
		day, ok := byDate[date]
		if !ok {
			day = &DailySummary{Date: date, RevenueIncGST: decimal.Zero, GST: decimal.Zero}
			byDate[date] = day
			dates = append(dates, date)
		}
		day.RevenueIncGST = day.RevenueIncGST.Add(o.Total)
		day.GST = day.GST.Add(o.Tax)
		day.UnitsSold += o.Units()
		day.OrderCount++
	}
	sort.Strings(dates)

	out := make([]DailySummary, 0, len(dates))
	for _, date := range dates {
		day := byDate[date]
		day.RevenueIncGST = money.Round(day.RevenueIncGST)
		day.GST = money.Round(day.GST)
		day.RevenueExGST = money.Round(day.RevenueIncGST.Sub(day.GST))
		out = append(out, *day)
	}
	return out
}

// PerItemSales reports every item that appears in at least one order, sorted
// by item id. Names and codes come from cat when it knows the item, otherwise
// from the line snapshot.
func (l *Ledger) PerItemSales(cat Catalog) []ItemSales {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byID := make(map[string]*ItemSales)
	for _, o := range l.orders {
		for _, li := range o.Lines {
			sales, ok := byID[li.ItemID]
			if !ok {
				sales = &ItemSales{ItemID: li.ItemID, Name: li.Name, Code: li.Code, Revenue: decimal.Zero}
				byID[li.ItemID] = sales
			}
			sales.Qty += li.Qty
			sales.Revenue = sales.Revenue.Add(li.LineTotal)
		}
	}

	out := make([]ItemSales, 0, len(byID))
	for id, sales := range byID {
		if cat != nil {
			if entry, ok := cat.Lookup(id); ok {
				sales.Name = entry.Name
				sales.Code = entry.Code
			}
		}
		sales.Revenue = money.Round(sales.Revenue)
		out = append(out, *sales)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

func countsByItem(orders []Order) map[string]int {
	counts := make(map[string]int)
	for _, o := range orders {
		for _, li := range o.Lines {
			counts[li.ItemID] += li.Qty
		}
	}
	return counts
}
