package polymarket

import "encoding/json"

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets?slug=...
type gammaMarketsResponse []gammaMarket

// gammaMarket contiene la metadata de un mercado según Gamma.
// Gamma devuelve varios campos como JSON serializado dentro de strings
// (outcomes, outcomePrices, clobTokenIds) — se decodifican en mapping.go.
type gammaMarket struct {
	ConditionID   string `json:"conditionId"`
	Slug          string `json:"slug"`
	Question      string `json:"question"`
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
	Outcomes      string `json:"outcomes"`      // p.ej. `["Yes","No"]`
	OutcomePrices string `json:"outcomePrices"` // p.ej. `["0.9995","0.0005"]`
	ClobTokenIDs  string `json:"clobTokenIds"`  // p.ej. `["123...","456..."]`

	UMAResolutionStatus string `json:"umaResolutionStatus"` // "resolved" cuando UMA liquidó
}

// --- CLOB API ---

// clobMarket es la respuesta de GET /markets/{condition_id}.
// Aporta los tokens con su flag winner, que Gamma no expone.
type clobMarket struct {
	ConditionID string      `json:"condition_id"`
	Question    string      `json:"question"`
	Active      bool        `json:"active"`
	Closed      bool        `json:"closed"`
	Tokens      []clobToken `json:"tokens"`
}

// clobToken representa un token (YES/NO) en el CLOB.
type clobToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// clobBalanceResponse es la respuesta de GET /balance-allowance.
// El balance viene en unidades base de USDC (6 decimales).
type clobBalanceResponse struct {
	Balance string `json:"balance"`
}

// clobOrderRequest es el body simplificado de POST /order.
type clobOrderRequest struct {
	TokenID string  `json:"tokenId"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Side    string  `json:"side"`
}

// clobOrderResponse es la respuesta de POST /order.
type clobOrderResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

// jsonStringArray decodifica un array JSON serializado dentro de un string.
// Devuelve nil si el campo está vacío o malformado.
func jsonStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
