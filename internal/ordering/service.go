// internal/ordering/service.go
package ordering

import "context"

// Service defines the interface for the order lifecycle.
type Service interface {
	PlaceOrder(ctx context.Context, customerName, address string, selections []Selection) (*Placement, error)
	ProcessNextOrder(ctx context.Context) (*Order, error)
	ListPending(ctx context.Context) ([]*Order, error)
	ListProcessed(ctx context.Context) ([]*Order, error)
	Stats(ctx context.Context) Stats
}
