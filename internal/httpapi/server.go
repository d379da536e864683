// internal/httpapi/server.go
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bookstore/internal/auth"
	"bookstore/internal/catalog"
	"bookstore/internal/ordering"
	"bookstore/pkg/eventlog"
	"bookstore/pkg/telemetry"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// Deps are the services the router exposes. Verifier may be nil, in which
// case mutating routes are open.
type Deps struct {
	Catalog  catalog.Service
	Orders   ordering.Service
	Journal  *eventlog.Journal
	Log      *zap.Logger
	Limiter  *rate.Limiter
	Verifier *auth.Verifier
	// Metrics backs GET /metrics; the route is absent when nil.
	Metrics *telemetry.Metrics
}

// NewRouter assembles the bookstore HTTP API.
func NewRouter(d Deps) http.Handler {
	books := catalog.NewHandler(d.Catalog, d.Log)
	orders := ordering.NewHandler(d.Orders, d.Log)
	events := &eventsHandler{journal: d.Journal}

	protect := func(h http.Handler) http.Handler { return h }
	if d.Verifier != nil {
		protect = d.Verifier.Middleware
	}

	r := chi.NewRouter()
	r.Use(recoverer(d.Log))
	r.Use(requestID)
	r.Use(tracing)
	r.Use(accessLog(d.Log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(rateLimit(d.Limiter))
		}

		r.Get("/books", books.HandleListBooks)
		r.Get("/books/search", books.HandleSearch)
		r.Get("/books/{id}", books.HandleGetBook)
		r.Get("/orders/pending", orders.HandleListPending)
		r.Get("/orders/processed", orders.HandleListProcessed)
		r.Get("/orders/stats", orders.HandleStats)
		r.Get("/events", events.HandleStream)
		r.Get("/events/{aggregate}", events.HandleAggregate)
		if d.Metrics != nil {
			r.Get("/metrics", metricsHandler(d.Metrics))
		}

		r.Group(func(r chi.Router) {
			r.Use(protect)
			r.Post("/books", books.HandleAddBook)
			r.Post("/books/sort", books.HandleSort)
			r.Post("/orders", orders.HandlePlaceOrder)
			r.Post("/orders/process", orders.HandleProcessNext)
		})
	})

	return r
}

func tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer("bookstore/httpapi")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "http "+r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type eventsHandler struct {
	journal *eventlog.Journal
}

// HandleStream serves /events?from=&limit=, the journal entries after the
// given event ID.
func (h *eventsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from", 0)
	if err != nil || from < 0 {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", defaultEventLimit)
	if err != nil || limit <= 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxEventLimit)

	events, err := h.journal.StreamEvents(r.Context(), int64(from), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleAggregate serves /events/{aggregate}?from=&to=, the history of one
// aggregate bounded by version. A zero or missing to reads to the latest.
func (h *eventsHandler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from", 0)
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := queryInt(r, "to", 0)
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}

	events, err := h.journal.LoadEvents(r.Context(), chi.URLParam(r, "aggregate"), from, to)
	if errors.Is(err, eventlog.ErrInvalidVersion) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []eventlog.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func metricsHandler(m *telemetry.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counters, err := m.Counters(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, counters)
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
