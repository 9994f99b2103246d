package domain

import "strings"

// Market representa un mercado de predicción binario en Polymarket,
// visto desde Gamma. Solo llevamos lo que el pipeline necesita.
type Market struct {
	Slug     string
	Question string
	Active   bool
	Closed   bool
	Resolved bool

	// Outcome es el ganador explícito si Gamma ya lo publicó.
	Outcome string
	// OutcomeLabels y OutcomePrices van en paralelo ("Yes"/"No" y sus precios).
	OutcomeLabels []string
	OutcomePrices []float64

	Tokens []Token
}

// Token es uno de los dos lados del mercado (YES/NO).
type Token struct {
	TokenID string
	Outcome string // "Yes" | "No"
	Price   float64
	Winner  bool
}

// resolvedPriceThreshold: un outcome con precio >= 0.99 se considera ganador.
const resolvedPriceThreshold = 0.99

// EqualOutcome compara dos labels de outcome sin distinguir mayúsculas.
func EqualOutcome(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Terminal devuelve true si el mercado ya cerró o se resolvió.
// Un mercado terminal nunca cambia — es seguro cachearlo indefinidamente.
func (m Market) Terminal() bool {
	return m.Closed || m.Resolved
}

// WinningOutcome determina el outcome ganador con tres métodos en orden,
// el primero que funcione gana:
//  1. campo Outcome explícito del mercado
//  2. precios de outcome: el primero (o el segundo) >= 0.99 gana
//  3. lista de tokens con exactamente uno marcado winner
//
// Devuelve ok=false si ningún método da respuesta (aún no resuelto,
// precios ambiguos o datos malformados) — nunca adivina.
func (m Market) WinningOutcome() (string, bool) {
	if o := strings.TrimSpace(m.Outcome); o != "" {
		return o, true
	}

	if len(m.OutcomePrices) >= 2 && len(m.OutcomeLabels) >= 2 {
		if m.OutcomePrices[0] >= resolvedPriceThreshold {
			return m.OutcomeLabels[0], true
		}
		if m.OutcomePrices[1] >= resolvedPriceThreshold {
			return m.OutcomeLabels[1], true
		}
	}

	var winner string
	winners := 0
	for _, t := range m.Tokens {
		if t.Winner {
			winner = t.Outcome
			winners++
		}
	}
	if winners == 1 && winner != "" {
		return winner, true
	}

	return "", false
}

// TokenIDs devuelve los token ids de YES y NO.
// ok=false si falta alguno de los dos lados.
func (m Market) TokenIDs() (yes, no string, ok bool) {
	for _, t := range m.Tokens {
		switch {
		case EqualOutcome(t.Outcome, "Yes"):
			yes = t.TokenID
		case EqualOutcome(t.Outcome, "No"):
			no = t.TokenID
		}
	}
	return yes, no, yes != "" && no != ""
}

// TokenFor devuelve el token id correspondiente al outcome dado.
func (m Market) TokenFor(outcome string) (string, bool) {
	for _, t := range m.Tokens {
		if EqualOutcome(t.Outcome, outcome) {
			return t.TokenID, true
		}
	}
	return "", false
}
