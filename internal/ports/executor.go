package ports

import (
	"context"

	"github.com/polycopy/engine/internal/domain"
)

// Executor places replica orders. In paper mode the implementation
// simulates fills locally and returns a sentinel order id.
type Executor interface {
	// GetBalance returns the available USDC balance.
	GetBalance(ctx context.Context) (float64, error)

	// GetMarket resolves a market by slug, including its outcome tokens.
	GetMarket(ctx context.Context, slug string) (domain.Market, error)

	// PlaceOrder submits a single atomic order.
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error)
}
