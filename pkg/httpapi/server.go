// Package httpapi is the JSON surface of the register: menu, current order,
// commit and sales summaries. Every amount leaves as a two-digit decimal string.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pizzapos/pkg/cart"
	"pizzapos/pkg/catalog"
	"pizzapos/pkg/ledger"
	"pizzapos/pkg/metrics"
	"pizzapos/pkg/money"
	"pizzapos/pkg/register"
)

const (
	requestTimeout = 5 * time.Second

	// unmatchedRoute labels requests no route claimed, so arbitrary paths
	// never become metric series.
	unmatchedRoute = "unmatched"
)

// Server wires HTTP endpoints to the register service.
type Server struct {
	register   *register.Service
	logger     *zap.Logger
	metrics    *metrics.Registry
	allowReset bool
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts /metrics and records per-route request metrics.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Server) { s.metrics = m }
}

// WithReset mounts POST /api/admin/reset.
func WithReset(enabled bool) Option {
	return func(s *Server) { s.allowReset = enabled }
}

// New builds the server. A nil logger discards output.
func New(svc *register.Service, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{register: svc, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with every route and middleware attached.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler())
	r.Use(s.accessLog)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("PizzaPOS backend running\n"))
	})
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/menu", s.menu)

	r.Route("/api/current-order", func(r chi.Router) {
		r.Get("/", s.currentOrder)
		r.Delete("/", s.clearCart)
		r.Post("/items", s.addItem)
		r.Put("/items/{id}", s.setQuantity)
		r.Delete("/items/{id}", s.removeItem)
		r.Post("/commit", s.commit)
	})

	r.Get("/api/orders", s.listOrders)
	r.Get("/api/orders/{id}", s.getOrder)

	r.Route("/api/summary", func(r chi.Router) {
		r.Get("/", s.summary)
		r.Get("/daily", s.dailySummary)
		r.Get("/items", s.itemSales)
		r.Get("/total-price-including-gst", s.totalIncGST)
		r.Get("/total-gst", s.totalGST)
		r.Get("/total-revenue-excluding-gst", s.totalExGST)
		r.Get("/orders-list", s.ordersList)
	})

	if s.allowReset {
		r.Post("/api/admin/reset", s.reset)
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

func (s *Server) menu(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, toMenu(s.register.Catalog().Items()))
}

func (s *Server) currentOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	quote, err := s.register.CurrentOrder(ctx)
	if err != nil {
		s.fail(w, r, "current order", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toQuote(quote))
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Info("add item rejected: unable to decode payload", zap.Error(err))
		s.respondError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	id, qty, err := payload.Validate()
	if err != nil {
		s.respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	quote, err := s.register.AddItem(ctx, id, qty)
	if err != nil {
		s.fail(w, r, "add item", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toQuote(quote))
}

func (s *Server) setQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload setQuantityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Info("set quantity rejected: unable to decode payload", zap.Error(err))
		s.respondError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if payload.Qty == nil {
		s.respondError(w, "qty is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	quote, err := s.register.SetQuantity(ctx, id, *payload.Qty)
	if err != nil {
		s.fail(w, r, "set quantity", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toQuote(quote))
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	quote, err := s.register.RemoveItem(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "remove item", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toQuote(quote))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	quote, err := s.register.ClearCart(ctx)
	if err != nil {
		s.fail(w, r, "clear cart", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toQuote(quote))
}

func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := s.register.Commit(ctx)
	if err != nil {
		s.fail(w, r, "commit", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, commitResponse{OrderID: order.ID, Order: toOrder(order)})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, toOrders(s.register.Ledger().Orders()))
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(w, "invalid order id", http.StatusBadRequest)
		return
	}
	order, err := s.register.Ledger().Order(id)
	if err != nil {
		s.fail(w, r, "get order", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toOrder(order))
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	l := s.register.Ledger()
	if err := l.Verify(); err != nil {
		s.logger.Error("ledger verification failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, toSummary(l.Summary()))
}

func (s *Server) dailySummary(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, toDaily(s.register.Ledger().DailySummary()))
}

func (s *Server) itemSales(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, toItemSales(s.register.PerItemSales()))
}

func (s *Server) totalIncGST(w http.ResponseWriter, r *http.Request) {
	total := s.register.Ledger().TotalRevenueIncGST()
	s.respondJSON(w, http.StatusOK, map[string]string{"total_price_including_gst": money.Format(total)})
}

func (s *Server) totalGST(w http.ResponseWriter, r *http.Request) {
	total := s.register.Ledger().TotalGST()
	s.respondJSON(w, http.StatusOK, map[string]string{"total_gst": money.Format(total)})
}

func (s *Server) totalExGST(w http.ResponseWriter, r *http.Request) {
	total := s.register.Ledger().TotalRevenueExGST()
	s.respondJSON(w, http.StatusOK, map[string]string{"total_revenue_excluding_gst": money.Format(total)})
}

func (s *Server) ordersList(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string][]orderResponse{"orders": toOrders(s.register.Ledger().Orders())})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.register.Reset(ctx); err != nil {
		s.fail(w, r, "reset", err)
		return
	}
	s.logger.Warn("ledger reset requested", zap.String("request_id", requestIDFrom(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps register and ledger errors onto HTTP status codes.
func statusFor(op string, err error) int {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, ledger.ErrEmptyOrder):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrUnknownItem):
		if op == "commit" {
			return http.StatusUnprocessableEntity
		}
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		errors.Is(err, register.ErrBusy), errors.Is(err, register.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail logs rejected requests at info and server faults at error, then writes the error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(op, err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Info("request rejected", fields...)
	}
	s.respondError(w, err.Error(), status)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("response encoding failed", zap.Error(err))
	}
}

// respondError keeps JSON formatting consistent across endpoints.
func (s *Server) respondError(w http.ResponseWriter, message string, status int) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// accessLog records per-route metrics and a debug line once the handler returns.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = strings.TrimSuffix(pattern, "/")
				if route == "" {
					route = "/"
				}
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, status, elapsed)
		}
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", requestIDFrom(r.Context())),
		)
	})
}
