package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pizzapos/pkg/catalog"
	"pizzapos/pkg/ledger"
	"pizzapos/pkg/money"
)

// itemRef accepts an item id sent either as a JSON string or a number.
type itemRef string

func (r *itemRef) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = itemRef(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number")
	}
	*r = itemRef(n.String())
	return nil
}

type addItemPayload struct {
	ID  itemRef `json:"id"`
	Qty *int    `json:"qty"`
}

// Validate defaults qty to 1 and requires an id.
func (p *addItemPayload) Validate() (string, int, error) {
	if p.ID == "" {
		return "", 0, errors.New("id is required")
	}
	qty := 1
	if p.Qty != nil {
		qty = *p.Qty
	}
	return string(p.ID), qty, nil
}

type setQuantityPayload struct {
	Qty *int `json:"qty"`
}

type menuItemResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type lineResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type quoteResponse struct {
	Items    []lineResponse `json:"items"`
	Units    int            `json:"units"`
	Subtotal string         `json:"subtotal"`
	GST      string         `json:"gst"`
	Total    string         `json:"total"`
}

type orderResponse struct {
	ID        int64          `json:"id"`
	Timestamp string         `json:"timestamp"`
	Subtotal  string         `json:"subtotal"`
	GST       string         `json:"gst"`
	Total     string         `json:"total"`
	Items     []lineResponse `json:"items"`
}

type commitResponse struct {
	OrderID int64         `json:"order_id"`
	Order   orderResponse `json:"order"`
}

type summaryResponse struct {
	Orders        int            `json:"orders"`
	RevenueExGST  string         `json:"revenue_ex_gst"`
	GST           string         `json:"gst"`
	RevenueIncGST string         `json:"revenue_inc_gst"`
	Counts        map[string]int `json:"counts"`
}

type dailyResponse struct {
	Date          string `json:"date"`
	Orders        int    `json:"orders"`
	RevenueIncGST string `json:"revenue_inc_gst"`
	GST           string `json:"gst"`
	RevenueExGST  string `json:"revenue_ex_gst"`
	PizzasSold    int    `json:"pizzas_sold"`
}

type itemSalesResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Qty          int    `json:"qty"`
	RevenueExGST string `json:"revenue_ex_gst"`
}

func toMenu(items []catalog.Item) []menuItemResponse {
	out := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, menuItemResponse{
			ID:    item.ID,
			Code:  item.Code,
			Name:  item.Name,
			Price: money.Format(item.Price),
		})
	}
	return out
}

func toLines(lines []ledger.LineItem) []lineResponse {
	out := make([]lineResponse, 0, len(lines))
	for _, li := range lines {
		out = append(out, lineResponse{
			ID:        li.ItemID,
			Code:      li.Code,
			Name:      li.Name,
			Qty:       li.Qty,
			UnitPrice: money.Format(li.UnitPrice),
			LineTotal: money.Format(li.LineTotal),
		})
	}
	return out
}

func toQuote(q ledger.Quote) quoteResponse {
	return quoteResponse{
		Items:    toLines(q.Lines),
		Units:    q.Units(),
		Subtotal: money.Format(q.Subtotal),
		GST:      money.Format(q.Tax),
		Total:    money.Format(q.Total),
	}
}

func toOrder(o ledger.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		Timestamp: o.CreatedAt.UTC().Format(time.RFC3339Nano),
		Subtotal:  money.Format(o.Subtotal),
		GST:       money.Format(o.Tax),
		Total:     money.Format(o.Total),
		Items:     toLines(o.Lines),
	}
}

func toOrders(orders []ledger.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrder(o))
	}
	return out
}

func toSummary(s ledger.Summary) summaryResponse {
	return summaryResponse{
		Orders:        s.OrderCount,
		RevenueExGST:  money.Format(s.RevenueExGST),
		GST:           money.Format(s.GST),
		RevenueIncGST: money.Format(s.RevenueIncGST),
		Counts:        s.CountsByItem,
	}
}

func toDaily(days []ledger.DailySummary) []dailyResponse {
	out := make([]dailyResponse, 0, len(days))
	for _, d := range days {
		out = append(out, dailyResponse{
			Date:          d.Date,
			Orders:        d.OrderCount,
			RevenueIncGST: money.Format(d.RevenueIncGST),
			GST:           money.Format(d.GST),
			RevenueExGST:  money.Format(d.RevenueExGST),
			PizzasSold:    d.UnitsSold,
		})
	}
	return out
}

func toItemSales(sales []ledger.ItemSales) []itemSalesResponse {
	out := make([]itemSalesResponse, 0, len(sales))
	for _, s := range sales {
		out = append(out, itemSalesResponse{
			ID:           s.ItemID,
			Code:         s.Code,
			Name:         s.Name,
			Qty:          s.Qty,
			RevenueExGST: money.Format(s.Revenue),
		})
	}
	return out
}
