package ports

import (
	"context"

	"github.com/polycopy/engine/internal/domain"
)

// MarketData obtiene metadata y estado de resolución de mercados por slug.
type MarketData interface {
	// GetMarketBySlug devuelve el mercado, o found=false si no existe.
	// Un error es siempre transitorio: el caller loguea y reintenta en
	// el siguiente ciclo, nunca aborta el loop.
	GetMarketBySlug(ctx context.Context, slug string) (domain.Market, bool, error)
}
