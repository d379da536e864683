// internal/ordering/implementation.go
package ordering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"bookstore/internal/catalog"
	"bookstore/pkg/container"
	"bookstore/pkg/eventlog"
)

const aggregateOrder = "order"

// service implements the Service interface.
type service struct {
	// mu guards pending, processed and ids together so an order is always in
	// exactly one of the two containers.
	mu        sync.Mutex
	pending   *container.Queue[*Order]
	processed *container.Stack[*Order]
	ids       *Sequencer

	catalog catalog.Service
	journal *eventlog.Journal
	log     *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time

	placed    metric.Int64Counter
	completed metric.Int64Counter
	rejected  metric.Int64Counter
}

// Option customises a service built by NewService.
type Option func(*options)

type options struct {
	meterProvider metric.MeterProvider
}

// WithMeterProvider records the order counters on mp instead of the global
// provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// NewService creates a new order lifecycle over books. Order IDs start at
// firstOrderID.
func NewService(books catalog.Service, journal *eventlog.Journal, log *zap.Logger, firstOrderID int, opts ...Option) (Service, error) {
	o := options{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	meter := o.meterProvider.Meter("bookstore/ordering")

	placed, err := meter.Int64Counter("bookstore.orders.placed",
		metric.WithDescription("Orders accepted into the pending queue"))
	if err != nil {
		return nil, fmt.Errorf("failed to create placed counter: %w", err)
	}
	completed, err := meter.Int64Counter("bookstore.orders.processed",
		metric.WithDescription("Orders moved to the processed stack"))
	if err != nil {
		return nil, fmt.Errorf("failed to create processed counter: %w", err)
	}
	rejected, err := meter.Int64Counter("bookstore.selections.rejected",
		metric.WithDescription("Order selections that could not become lines"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected counter: %w", err)
	}

	return &service{
		pending:   container.NewQueue[*Order](),
		processed: container.NewStack[*Order](),
		ids:       NewSequencer(firstOrderID),
		catalog:   books,
		journal:   journal,
		log:       log,
		tracer:    otel.Tracer("bookstore/ordering"),
		now:       time.Now,
		placed:    placed,
		completed: completed,
		rejected:  rejected,
	}, nil
}

// PlaceOrder resolves each selection against the catalog and queues the
// resulting order. Selections that fail are reported in the placement and
// do not stop the rest. If nothing could be added the order is dropped and
// ErrNoItems is returned alongside the placement.
func (s *service) PlaceOrder(ctx context.Context, customerName, address string, selections []Selection) (*Placement, error) {
	ctx, span := s.tracer.Start(ctx, "ordering.place_order",
		trace.WithAttributes(
			attribute.String("order.customer", customerName),
			attribute.Int("order.selections", len(selections)),
		),
	)
	defer span.End()

	order := newOrder(customerName, address)
	placement := &Placement{Rejected: make([]Rejection, 0)}

	for _, sel := range selections {
		if err := s.addSelection(ctx, order, sel); err != nil {
			placement.Rejected = append(placement.Rejected, Rejection{Selection: sel, Err: err})
			s.log.Warn("selection rejected",
				zap.Int("book.id", sel.BookID),
				zap.Int("quantity", sel.Quantity),
				zap.String("reason", err.Error()),
			)
		}
	}

	if n := len(placement.Rejected); n > 0 {
		s.rejected.Add(ctx, int64(n))
		span.SetAttributes(attribute.Int("order.rejected", n))
	}

	if order.LineCount() == 0 {
		s.log.Info("order discarded", zap.String("customer", customerName), zap.String("reason", ErrNoItems.Error()))
		return placement, ErrNoItems
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order.ID = s.ids.Next()
	order.CreatedAt = s.now()
	span.SetAttributes(attribute.Int("order.id", order.ID))

	event := OrderPlacedEvent{
		OrderID:      order.ID,
		CustomerName: customerName,
		Lines:        order.LineCount(),
		Total:        order.Total(),
		Rejected:     len(placement.Rejected),
	}
	if err := s.journal.Record(ctx, orderAggregateID(order.ID), aggregateOrder, "OrderPlaced", event); err != nil {
		return nil, fmt.Errorf("failed to record order %d: %w", order.ID, err)
	}

	s.pending.Enqueue(order)
	s.placed.Add(ctx, 1)

	s.log.Info("order placed",
		zap.Int("order.id", order.ID),
		zap.String("customer", customerName),
		zap.Int("lines", order.LineCount()),
		zap.String("total", order.Total().StringFixed(2)),
	)

	placement.Order = order.snapshot()
	return placement, nil
}

func (s *service) addSelection(ctx context.Context, order *Order, sel Selection) error {
	if sel.Quantity <= 0 {
		return fmt.Errorf("book %d quantity %d: %w", sel.BookID, sel.Quantity, ErrInvalidQuantity)
	}
	book, err := s.catalog.FindByID(ctx, sel.BookID)
	if err != nil {
		return err
	}
	return order.AddLine(book, sel.Quantity)
}

// ProcessNextOrder moves the oldest pending order to the processed stack.
func (s *service) ProcessNextOrder(ctx context.Context) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "ordering.process_next")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.pending.Peek()
	if errors.Is(err, container.ErrEmpty) {
		return nil, ErrNoPendingOrders
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending queue: %w", err)
	}

	processedAt := s.now()
	event := OrderProcessedEvent{OrderID: order.ID, ProcessedAt: processedAt}
	if err := s.journal.Record(ctx, orderAggregateID(order.ID), aggregateOrder, "OrderProcessed", event); err != nil {
		return nil, fmt.Errorf("failed to record processing of order %d: %w", order.ID, err)
	}

	if _, err := s.pending.Dequeue(); err != nil {
		return nil, fmt.Errorf("failed to dequeue order %d: %w", order.ID, err)
	}
	order.Status = StatusProcessed
	order.ProcessedAt = processedAt
	s.processed.Push(order)
	s.completed.Add(ctx, 1)

	span.SetAttributes(attribute.Int("order.id", order.ID))
	s.log.Info("order processed", zap.Int("order.id", order.ID), zap.Int("pending", s.pending.Len()))
	return order.snapshot(), nil
}

// ListPending returns the pending orders, oldest first. The orders are
// copies; processing one later does not change what the caller holds.
func (s *service) ListPending(ctx context.Context) ([]*Order, error) {
	_, span := s.tracer.Start(ctx, "ordering.list_pending")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]*Order, 0, s.pending.Len())
	for order := range s.pending.All() {
		orders = append(orders, order.snapshot())
	}
	return orders, nil
}

// ListProcessed returns copies of the processed orders, most recent first.
func (s *service) ListProcessed(ctx context.Context) ([]*Order, error) {
	_, span := s.tracer.Start(ctx, "ordering.list_processed")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]*Order, 0, s.processed.Len())
	for order := range s.processed.All() {
		orders = append(orders, order.snapshot())
	}
	return orders, nil
}

func (s *service) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Pending: s.pending.Len(), Processed: s.processed.Len()}
}

func orderAggregateID(id int) string {
	return "order-" + strconv.Itoa(id)
}
