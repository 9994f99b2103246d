package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/polycopy/engine/internal/domain"
)

const gammaMarketsPath = "/markets"

// GetMarketBySlug implementa ports.MarketData: busca el mercado en Gamma
// y, si hay condition_id, completa los tokens (winner flag) desde el CLOB.
// found=false si Gamma no conoce el slug.
func (c *Client) GetMarketBySlug(ctx context.Context, slug string) (m domain.Market, found bool, err error) {
	u := fmt.Sprintf("%s%s?slug=%s", c.gammaBase, gammaMarketsPath, url.QueryEscape(slug))

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, u, &resp); err != nil {
		return m, false, fmt.Errorf("gamma.GetMarketBySlug %q: %w", slug, err)
	}
	if len(resp) == 0 {
		return m, false, nil
	}

	gm := resp[0]
	market := mapGammaMarket(gm)

	// El flag winner solo existe en el CLOB; fallo aquí no es fatal,
	// el resolver tiene otros dos métodos de fallback.
	if gm.ConditionID != "" {
		var cm clobMarket
		cu := fmt.Sprintf("%s/markets/%s", c.clobBase, gm.ConditionID)
		if err := c.get(ctx, c.clobLimiter, cu, &cm); err != nil {
			slog.Debug("clob market lookup failed, using gamma view only",
				"slug", slug, "err", err)
		} else {
			applyClobTokens(&market, cm)
		}
	}

	return market, true, nil
}
