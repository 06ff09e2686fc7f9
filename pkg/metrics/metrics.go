// Package metrics exposes register activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Registry owns a private Prometheus registry so tests and the server never
// share global collectors.
type Registry struct {
	reg *prometheus.Registry

	OrdersCommitted  prometheus.Counter
	CommitFailures   *prometheus.CounterVec
	UnitsSold        prometheus.Counter
	CartMutations    *prometheus.CounterVec
	RevenueExGSTCent prometheus.Gauge
	LedgerOrders     prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPLatencySec   *prometheus.HistogramVec
}

// NewRegistry builds and registers every collector.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	committed := prometheus.NewCounter(prometheus.CounterOpts{Name: "pos_orders_committed_total"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pos_commit_failures_total"}, []string{"reason"})
	units := prometheus.NewCounter(prometheus.CounterOpts{Name: "pos_units_sold_total"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pos_cart_mutations_total"}, []string{"op"})
	revenue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pos_revenue_ex_gst_cents",
		Help: "Pre-tax revenue since start, in whole cents.",
	})
	orders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pos_ledger_orders",
		Help: "Orders currently held in the ledger.",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pos_http_requests_total"}, []string{"route", "code"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_http_request_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	r.MustRegister(committed, failures, units, mutations, revenue, orders, requests, latency)
	return &Registry{
		reg:              r,
		OrdersCommitted:  committed,
		CommitFailures:   failures,
		UnitsSold:        units,
		CartMutations:    mutations,
		RevenueExGSTCent: revenue,
		LedgerOrders:     orders,
		HTTPRequests:     requests,
		HTTPLatencySec:   latency,
	}
}

// ObserveCommit records a successful commit and the new pre-tax revenue.
func (r *Registry) ObserveCommit(units int, revenueExGST decimal.Decimal) {
	r.OrdersCommitted.Inc()
	r.UnitsSold.Add(float64(units))
	r.LedgerOrders.Inc()
	r.RevenueExGSTCent.Set(float64(revenueExGST.Shift(2).Round(0).IntPart()))
}

// ObserveCommitFailure counts a rejected commit.
func (r *Registry) ObserveCommitFailure(reason string) {
	r.CommitFailures.WithLabelValues(reason).Inc()
}

// ObserveCartMutation counts an applied cart change.
func (r *Registry) ObserveCartMutation(op string) {
	r.CartMutations.WithLabelValues(op).Inc()
}

// ObserveReset zeroes the ledger gauges.
func (r *Registry) ObserveReset() {
	r.RevenueExGSTCent.Set(0)
	r.LedgerOrders.Set(0)
}

// ObserveRequest records one served HTTP request.
func (r *Registry) ObserveRequest(route string, code int, elapsed time.Duration) {
	r.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.HTTPLatencySec.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the exposition format for /metrics.
func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
