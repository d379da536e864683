// internal/catalog/domain.go
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateID    = errors.New("a book with this ID already exists")
	ErrInvalidPrice   = errors.New("price must be positive")
	ErrNotFound       = errors.New("book not found")
	ErrInvalidSortKey = errors.New("invalid sort key")
)

// Book is a catalog entry. Books are never modified once added, and the
// catalog only hands out copies, so a caller changing a returned Book affects
// neither the catalog nor orders already placed.
type Book struct {
	ID     int             `json:"id"`
	Title  string          `json:"title"`
	Author string          `json:"author"`
	Price  decimal.Decimal `json:"price"`
}

func (b *Book) clone() *Book {
	cp := *b
	return &cp
}

func (b *Book) String() string {
	return fmt.Sprintf("ID: %d | Title: %s | Author: %s | Price: $%s", b.ID, b.Title, b.Author, b.Price.StringFixed(2))
}

// SortKey selects the field the catalog is ordered by.
type SortKey int

const (
	SortByID SortKey = iota + 1
	SortByTitle
	SortByPrice
)

func (k SortKey) String() string {
	switch k {
	case SortByID:
		return "id"
	case SortByTitle:
		return "title"
	case SortByPrice:
		return "price"
	default:
		return "unknown"
	}
}

// ParseSortKey maps "id", "title" or "price" (any case) to a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "id":
		return SortByID, nil
	case "title":
		return SortByTitle, nil
	case "price":
		return SortByPrice, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidSortKey)
	}
}

// BookAddedEvent is recorded when a new book enters the catalog.
type BookAddedEvent struct {
	ID     int             `json:"id"`
	Title  string          `json:"title"`
	Author string          `json:"author"`
	Price  decimal.Decimal `json:"price"`
}

// CatalogSortedEvent is recorded when the catalog is reordered.
type CatalogSortedEvent struct {
	Key   string `json:"key"`
	Books int    `json:"books"`
}
