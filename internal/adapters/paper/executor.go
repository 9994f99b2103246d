package paper

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/polycopy/engine/internal/domain"
	"github.com/polycopy/engine/internal/ports"
)

// Executor simula la ejecución de órdenes en memoria. Los datos de
// mercado son reales (vienen del adapter de Polymarket); solo el
// balance y los fills son simulados.
type Executor struct {
	markets ports.MarketData

	mu      sync.Mutex
	balance float64
}

// NewExecutor crea un Executor con el balance inicial dado.
func NewExecutor(markets ports.MarketData, startingBalance float64) *Executor {
	return &Executor{
		markets: markets,
		balance: startingBalance,
	}
}

// GetBalance devuelve el balance simulado.
func (e *Executor) GetBalance(ctx context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance, nil
}

// GetMarket delega en el adapter real de datos de mercado.
func (e *Executor) GetMarket(ctx context.Context, slug string) (domain.Market, error) {
	m, found, err := e.markets.GetMarketBySlug(ctx, slug)
	if err != nil {
		return domain.Market{}, err
	}
	if !found {
		return domain.Market{}, fmt.Errorf("market %q not found", slug)
	}
	return m, nil
}

// PlaceOrder simula un fill inmediato al precio pedido. Un BUY descuenta
// el notional del balance; un SELL lo añade.
func (e *Executor) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	notional := req.NotionalUSD()

	e.mu.Lock()
	defer e.mu.Unlock()

	switch req.Side {
	case domain.SideBuy:
		if notional > e.balance {
			return domain.PlacedOrder{}, fmt.Errorf("paper balance $%.2f insufficient for $%.2f order", e.balance, notional)
		}
		e.balance -= notional
	case domain.SideSell:
		e.balance += notional
	default:
		return domain.PlacedOrder{}, fmt.Errorf("unknown side %q", req.Side)
	}

	return domain.PlacedOrder{
		OrderID: "paper-" + uuid.NewString(),
		Paper:   true,
	}, nil
}
