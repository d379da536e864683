// internal/ordering/domain.go
package ordering

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bookstore/internal/catalog"
	"bookstore/pkg/container"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrNilBook         = errors.New("order line needs a book")
	ErrNoItems         = errors.New("no items selected")
	ErrNoPendingOrders = fmt.Errorf("no pending orders: %w", container.ErrEmpty)
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusProcessed Status = "Processed"
)

// Line is one book and how many copies of it were ordered.
type Line struct {
	Book     *catalog.Book
	Quantity int
}

// Total is the book price times the quantity.
func (l Line) Total() decimal.Decimal {
	return l.Book.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Book     *catalog.Book   `json:"book"`
		Quantity int             `json:"quantity"`
		Total    decimal.Decimal `json:"total"`
	}{l.Book, l.Quantity, l.Total()})
}

// Order is a customer order. It starts Pending and is marked Processed once,
// when it leaves the pending queue.
type Order struct {
	ID           int
	CustomerName string
	Address      string
	Status       Status
	CreatedAt    time.Time
	ProcessedAt  time.Time

	lines container.Sequence[Line]
}

func newOrder(customerName, address string) *Order {
	return &Order{
		CustomerName: customerName,
		Address:      address,
		Status:       StatusPending,
	}
}

// snapshot copies the order header. Lines are shared; they are never
// modified once the order is queued.
func (o *Order) snapshot() *Order {
	cp := *o
	return &cp
}

// AddLine appends a line for quantity copies of book.
func (o *Order) AddLine(book *catalog.Book, quantity int) error {
	if book == nil {
		return ErrNilBook
	}
	if quantity <= 0 {
		return fmt.Errorf("quantity %d: %w", quantity, ErrInvalidQuantity)
	}
	o.lines.Append(Line{Book: book, Quantity: quantity})
	return nil
}

// Lines returns a copy of the order lines in the order they were added.
func (o *Order) Lines() []Line {
	return o.lines.Values()
}

func (o *Order) LineCount() int {
	return o.lines.Len()
}

// Total sums the line totals. It is recomputed on every call.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.lines.All() {
		total = total.Add(line.Total())
	}
	return total
}

func (o *Order) MarshalJSON() ([]byte, error) {
	var processedAt *time.Time
	if !o.ProcessedAt.IsZero() {
		processedAt = &o.ProcessedAt
	}
	return json.Marshal(struct {
		ID           int             `json:"id"`
		CustomerName string          `json:"customer_name"`
		Address      string          `json:"address"`
		Status       Status          `json:"status"`
		Lines        []Line          `json:"lines"`
		Total        decimal.Decimal `json:"total"`
		CreatedAt    time.Time       `json:"created_at"`
		ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	}{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		Address:      o.Address,
		Status:       o.Status,
		Lines:        o.Lines(),
		Total:        o.Total(),
		CreatedAt:    o.CreatedAt,
		ProcessedAt:  processedAt,
	})
}

// Selection is a requested book and quantity, before it is resolved
// against the catalog.
type Selection struct {
	BookID   int `json:"book_id"`
	Quantity int `json:"quantity"`
}

// Rejection is a selection that could not become an order line.
type Rejection struct {
	Selection
	Err error
}

func (r Rejection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		BookID   int    `json:"book_id"`
		Quantity int    `json:"quantity"`
		Reason   string `json:"reason"`
	}{r.BookID, r.Quantity, r.Err.Error()})
}

// Placement is the outcome of PlaceOrder. Order is nil when every selection
// was rejected.
type Placement struct {
	Order    *Order      `json:"order,omitempty"`
	Rejected []Rejection `json:"rejected"`
}

// Stats counts the orders in each lifecycle state.
type Stats struct {
	Pending   int `json:"pending"`
	Processed int `json:"processed"`
}

// OrderPlacedEvent is recorded when an order enters the pending queue.
type OrderPlacedEvent struct {
	OrderID      int             `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	Lines        int             `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	Rejected     int             `json:"rejected"`
}

// OrderProcessedEvent is recorded when an order moves to the processed stack.
type OrderProcessedEvent struct {
	OrderID     int       `json:"order_id"`
	ProcessedAt time.Time `json:"processed_at"`
}
