package domain

import "time"

// Side es el lado de un trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// CopyStatus es el estado terminal de la decisión de copia.
type CopyStatus string

const (
	// StatusSkipped: descartado por filtro o por el risk gate. Nunca se revisita.
	StatusSkipped CopyStatus = "skipped"
	// StatusFailed: la ejecución falló. Nunca se reintenta ni se revisita.
	StatusFailed CopyStatus = "failed"
	// StatusPaper: orden simulada en paper mode. Elegible para resolución.
	StatusPaper CopyStatus = "paper"
	// StatusPending: orden real enviada al CLOB, pendiente de fill.
	StatusPending CopyStatus = "pending"
	// StatusFilled: orden real confirmada como llena.
	StatusFilled CopyStatus = "filled"
)

// Resolvable devuelve true si el estado es elegible para el tracker de resolución.
func (s CopyStatus) Resolvable() bool {
	return s == StatusPaper || s == StatusPending || s == StatusFilled
}

// WhaleTrade es un trade detectado por el watcher externo. Read-only para este core.
type WhaleTrade struct {
	ID             string
	Wallet         string // dirección del whale, lowercase
	MarketSlug     string
	MarketQuestion string
	Side           Side
	Outcome        string // "Yes" | "No" (case-insensitive en la API)
	SizeUSD        float64
	Price          float64 // (0, 1)
	Timestamp      time.Time
	CreatedAt      time.Time // cuándo lo persistió el watcher — watermark del copier
}

// ReplicaTrade es nuestro trade réplica. Creado por el copier,
// resuelto (una sola vez) por el resolver.
type ReplicaTrade struct {
	ID             string
	SourceTradeID  string
	SourceLabel    string
	SourceAddress  string
	MarketSlug     string
	MarketQuestion string
	Side           Side
	Outcome        string
	SizeUSD        float64
	Price          float64
	Status         CopyStatus
	ErrorMessage   string // razón de skip o error de ejecución
	OrderID        string

	// Campos de resolución: se escriben exactamente una vez.
	// ResolvedAt != nil marca la réplica como resuelta.
	ResolvedOutcome string
	PnL             float64
	ResolvedAt      *time.Time

	CreatedAt time.Time
	FilledAt  *time.Time
}

// Won devuelve true si la réplica acertó el outcome ganador.
func (r ReplicaTrade) Won() bool {
	return r.ResolvedAt != nil && EqualOutcome(r.Outcome, r.ResolvedOutcome)
}
