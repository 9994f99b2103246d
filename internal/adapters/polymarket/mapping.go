package polymarket

import (
	"strconv"

	"github.com/polycopy/engine/internal/domain"
)

// mapGammaMarket convierte un gammaMarket DTO a domain.Market.
func mapGammaMarket(gm gammaMarket) domain.Market {
	m := domain.Market{
		Slug:     gm.Slug,
		Question: gm.Question,
		Active:   gm.Active,
		Closed:   gm.Closed,
		Resolved: gm.UMAResolutionStatus == "resolved",
	}

	m.OutcomeLabels = jsonStringArray(gm.Outcomes)
	for _, p := range jsonStringArray(gm.OutcomePrices) {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			// Precios malformados → sin array de precios; el resolver
			// caerá al siguiente método de resolución.
			m.OutcomePrices = nil
			break
		}
		m.OutcomePrices = append(m.OutcomePrices, v)
	}

	// Sin datos del CLOB los tokens solo llevan id + outcome.
	ids := jsonStringArray(gm.ClobTokenIDs)
	for i, id := range ids {
		t := domain.Token{TokenID: id}
		if i < len(m.OutcomeLabels) {
			t.Outcome = m.OutcomeLabels[i]
		}
		m.Tokens = append(m.Tokens, t)
	}

	return m
}

// applyClobTokens sobreescribe los tokens con la vista del CLOB, que
// incluye precio y el flag winner.
func applyClobTokens(m *domain.Market, cm clobMarket) {
	if len(cm.Tokens) == 0 {
		return
	}
	tokens := make([]domain.Token, 0, len(cm.Tokens))
	for _, t := range cm.Tokens {
		tokens = append(tokens, domain.Token{
			TokenID: t.TokenID,
			Outcome: t.Outcome,
			Price:   t.Price,
			Winner:  t.Winner,
		})
	}
	m.Tokens = tokens
	if cm.Closed {
		m.Closed = true
	}
}
