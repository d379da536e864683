// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, id int, title, author string, price decimal.Decimal) (*Book, error)
	FindByID(ctx context.Context, id int) (*Book, error)
	FindByTitle(ctx context.Context, text string) ([]*Book, error)
	SortBy(ctx context.Context, key SortKey) error
	List(ctx context.Context) ([]*Book, error)
}
