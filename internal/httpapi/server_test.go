package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bookstore/internal/auth"
	"bookstore/internal/catalog"
	"bookstore/internal/ordering"
	"bookstore/pkg/eventlog"
	"bookstore/pkg/telemetry"
)

type testServer struct {
	*httptest.Server
	journal *eventlog.Journal
}

func newTestServer(t *testing.T, configure func(*Deps)) *testServer {
	t.Helper()
	journal := eventlog.NewJournal()
	books := catalog.NewService(journal, zap.NewNop())
	require.NoError(t, catalog.Seed(context.Background(), books))

	orders, err := ordering.NewService(books, journal, zap.NewNop(), ordering.DefaultFirstOrderID)
	require.NoError(t, err)

	deps := Deps{Catalog: books, Orders: orders, Journal: journal, Log: zap.NewNop()}
	if configure != nil {
		configure(&deps)
	}

	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, journal: journal}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header http.Header) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestOrderFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	// Add a book
	resp := ts.do(t, http.MethodPost, "/books", map[string]any{
		"id": 106, "title": "The Go Programming Language", "author": "Donovan", "price": "44.99",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Place an order for it and a seeded book
	resp = ts.do(t, http.MethodPost, "/orders", map[string]any{
		"customer_name": "Alice",
		"address":       "1 Main St",
		"selections": []map[string]int{
			{"book_id": 106, "quantity": 1},
			{"book_id": 103, "quantity": 2},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var placed struct {
		Order struct {
			ID    int    `json:"id"`
			Total string `json:"total"`
		} `json:"order"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&placed))
	assert.Equal(t, "94.97", placed.Order.Total)

	// Process it
	resp = ts.do(t, http.MethodPost, "/orders/process", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var processed struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&processed))
	assert.Equal(t, placed.Order.ID, processed.ID)
	assert.Equal(t, "Processed", processed.Status)

	resp = ts.do(t, http.MethodPost, "/orders/process", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The journal saw the book, the order and its processing
	resp = ts.do(t, http.MethodGet, "/events?from=5", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []eventlog.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{"BookAdded", "OrderPlaced", "OrderProcessed"}, types)
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/books/sort", map[string]string{"key": "title"},
		http.Header{RequestIDHeader: {"req-123"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))

	events, err := ts.journal.LoadEvents(context.Background(), "catalog", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "req-123", events[0].Metadata["request_id"])

	resp = ts.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestEventsQueryValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/events?from=x", nil, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/events?limit=0", nil, nil).StatusCode)

	resp := ts.do(t, http.MethodGet, "/events?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []eventlog.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	assert.Len(t, events, 2)
}

func TestAggregateHistory(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, key := range []string{"price", "title"} {
		resp := ts.do(t, http.MethodPost, "/books/sort", map[string]string{"key": key}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := ts.do(t, http.MethodPost, "/orders", map[string]any{
		"customer_name": "Alice",
		"address":       "1 Main St",
		"selections":    []map[string]int{{"book_id": 101, "quantity": 1}},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	load := func(path string) []eventlog.Event {
		resp := ts.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var events []eventlog.Event
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
		return events
	}

	sorts := load("/events/catalog")
	require.Len(t, sorts, 2)
	assert.Equal(t, []int{1, 2}, []int{sorts[0].Version, sorts[1].Version})
	assert.Equal(t, "CatalogSorted", sorts[0].EventType)

	latest := load("/events/catalog?from=2")
	require.Len(t, latest, 1)
	assert.Equal(t, 2, latest[0].Version)

	first := load("/events/catalog?to=1")
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].Version)

	order := load("/events/order-1000")
	require.Len(t, order, 1)
	assert.Equal(t, "OrderPlaced", order[0].EventType)
	assert.Equal(t, "order-1000", order[0].AggregateID)

	assert.Empty(t, load("/events/order-9999"))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/events/catalog?from=-1", nil, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/events/catalog?to=x", nil, nil).StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	metrics, err := telemetry.InitMetrics(context.Background(), zap.NewNop(), telemetry.Config{ServiceName: "bookstore-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = metrics.Shutdown(context.Background()) })

	ts := newTestServer(t, func(d *Deps) {
		orders, err := ordering.NewService(d.Catalog, d.Journal, zap.NewNop(), ordering.DefaultFirstOrderID,
			ordering.WithMeterProvider(metrics.MeterProvider()))
		require.NoError(t, err)
		d.Orders = orders
		d.Metrics = metrics
	})

	resp := ts.do(t, http.MethodPost, "/orders", map[string]any{
		"customer_name": "Alice",
		"address":       "1 Main St",
		"selections": []map[string]int{
			{"book_id": 101, "quantity": 1},
			{"book_id": 999, "quantity": 1},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var counters map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&counters))
	assert.Equal(t, int64(1), counters["bookstore.orders.placed"])
	assert.Equal(t, int64(1), counters["bookstore.selections.rejected"])

	// without a provider the route is not mounted
	plain := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, plain.do(t, http.MethodGet, "/metrics", nil, nil).StatusCode)
}

func TestOperatorAuth(t *testing.T) {
	hash, salt, err := auth.HashToken("letmein")
	require.NoError(t, err)

	ts := newTestServer(t, func(d *Deps) {
		d.Verifier = auth.NewVerifier(hash, salt, zap.NewNop())
	})

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/books", nil, nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/orders/process", nil, nil).StatusCode)

	resp := ts.do(t, http.MethodPost, "/orders/process", nil, http.Header{"Authorization": {"Bearer letmein"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) {
		d.Limiter = rate.NewLimiter(rate.Every(time.Hour), 2)
	})

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/books", nil, nil).StatusCode)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/books", nil, nil).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, http.MethodGet, "/books", nil, nil).StatusCode)

	// health checks are not limited
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", nil, nil).StatusCode)
}
