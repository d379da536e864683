// internal/catalog/seed.go
package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// SampleBooks is the starter inventory a fresh store opens with.
func SampleBooks() []Book {
	return []Book{
		{ID: 101, Title: "Java Programming", Author: "John Smith", Price: decimal.RequireFromString("29.99")},
		{ID: 102, Title: "Data Structures", Author: "Jane Doe", Price: decimal.RequireFromString("34.99")},
		{ID: 103, Title: "Algorithms", Author: "Alan Turing", Price: decimal.RequireFromString("24.99")},
		{ID: 104, Title: "Database Design", Author: "Oracle Team", Price: decimal.RequireFromString("39.99")},
		{ID: 105, Title: "Web Development", Author: "Tim Lee", Price: decimal.RequireFromString("27.99")},
	}
}

// Seed adds the sample books to svc.
func Seed(ctx context.Context, svc Service) error {
	for _, b := range SampleBooks() {
		if _, err := svc.AddBook(ctx, b.ID, b.Title, b.Author, b.Price); err != nil {
			return fmt.Errorf("seed book %d: %w", b.ID, err)
		}
	}
	return nil
}
