// internal/catalog/implementation.go
package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"bookstore/pkg/container"
	"bookstore/pkg/eventlog"
)

const (
	aggregateBook    = "book"
	aggregateCatalog = "catalog"
)

// service implements the Service interface.
type service struct {
	mu      sync.RWMutex
	books   *container.Sequence[*Book]
	byID    map[int]*Book
	journal *eventlog.Journal
	log     *zap.Logger
	tracer  trace.Tracer
}

// NewService creates a new, empty catalog service instance.
func NewService(journal *eventlog.Journal, log *zap.Logger) Service {
	return &service{
		books:   container.NewSequence[*Book](),
		byID:    make(map[int]*Book),
		journal: journal,
		log:     log,
		tracer:  otel.Tracer("bookstore/catalog"),
	}
}

// AddBook appends a new book to the catalog.
func (s *service) AddBook(ctx context.Context, id int, title, author string, price decimal.Decimal) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.add_book",
		trace.WithAttributes(
			attribute.Int("book.id", id),
			attribute.String("book.price", price.String()),
		),
	)
	defer span.End()

	if price.Sign() <= 0 {
		return nil, fmt.Errorf("book %d price %s: %w", id, price, ErrInvalidPrice)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; exists {
		return nil, fmt.Errorf("book %d: %w", id, ErrDuplicateID)
	}

	book := &Book{ID: id, Title: title, Author: author, Price: price}
	event := BookAddedEvent{ID: id, Title: title, Author: author, Price: price}
	if err := s.journal.Record(ctx, bookAggregateID(id), aggregateBook, "BookAdded", event); err != nil {
		return nil, fmt.Errorf("failed to record book %d: %w", id, err)
	}

	s.books.Append(book)
	s.byID[id] = book

	s.log.Info("book added",
		zap.Int("book.id", id),
		zap.String("book.title", title),
		zap.String("book.price", price.StringFixed(2)),
	)
	return book.clone(), nil
}

// FindByID looks a book up by its ID.
func (s *service) FindByID(ctx context.Context, id int) (*Book, error) {
	_, span := s.tracer.Start(ctx, "catalog.find_by_id",
		trace.WithAttributes(attribute.Int("book.id", id)),
	)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.byID[id]
	if !ok {
		span.SetAttributes(attribute.Bool("book.found", false))
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return book.clone(), nil
}

// FindByTitle returns the books whose title contains text, ignoring case.
func (s *service) FindByTitle(ctx context.Context, text string) ([]*Book, error) {
	_, span := s.tracer.Start(ctx, "catalog.find_by_title",
		trace.WithAttributes(attribute.String("search.text", text)),
	)
	defer span.End()

	needle := strings.ToLower(text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*Book, 0)
	for _, book := range s.books.All() {
		if strings.Contains(strings.ToLower(book.Title), needle) {
			matches = append(matches, book.clone())
		}
	}

	span.SetAttributes(attribute.Int("search.matches", len(matches)))
	return matches, nil
}

// SortBy reorders the catalog in place, ascending by key. Books with equal
// keys keep their relative order.
func (s *service) SortBy(ctx context.Context, key SortKey) error {
	ctx, span := s.tracer.Start(ctx, "catalog.sort",
		trace.WithAttributes(attribute.String("sort.key", key.String())),
	)
	defer span.End()

	compare, err := comparator(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	books := s.books.Values()
	slices.SortStableFunc(books, compare)
	for i, book := range books {
		if err := s.books.Set(i, book); err != nil {
			return fmt.Errorf("failed to reorder catalog: %w", err)
		}
	}

	event := CatalogSortedEvent{Key: key.String(), Books: len(books)}
	if err := s.journal.Record(ctx, aggregateCatalog, aggregateCatalog, "CatalogSorted", event); err != nil {
		return fmt.Errorf("failed to record sort: %w", err)
	}

	s.log.Debug("catalog sorted", zap.Stringer("sort.key", key), zap.Int("books", len(books)))
	return nil
}

// List returns copies of the books in their current catalog order.
func (s *service) List(ctx context.Context) ([]*Book, error) {
	_, span := s.tracer.Start(ctx, "catalog.list")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	books := make([]*Book, 0, s.books.Len())
	for _, book := range s.books.All() {
		books = append(books, book.clone())
	}
	return books, nil
}

func comparator(key SortKey) (func(a, b *Book) int, error) {
	switch key {
	case SortByID:
		return func(a, b *Book) int { return cmp.Compare(a.ID, b.ID) }, nil
	case SortByTitle:
		return func(a, b *Book) int { return strings.Compare(a.Title, b.Title) }, nil
	case SortByPrice:
		return func(a, b *Book) int { return a.Price.Cmp(b.Price) }, nil
	default:
		return nil, fmt.Errorf("sort key %d: %w", int(key), ErrInvalidSortKey)
	}
}

func bookAggregateID(id int) string {
	return "book-" + strconv.Itoa(id)
}
