package domain

import "time"

// RiskLedger is the risk manager's daily book. All three counters reset
// together at the UTC day boundary, never mid-check.
type RiskLedger struct {
	DailyPnL        float64
	DailyTradeCount int
	// MarketExposure: slug → USD notional committed today. Never decremented
	// until the daily reset — exposure is not released intraday.
	MarketExposure map[string]float64
	LastResetDate  string // YYYY-MM-DD, UTC
}

// NewRiskLedger returns an empty ledger anchored on the given day.
func NewRiskLedger(day string) RiskLedger {
	return RiskLedger{
		MarketExposure: make(map[string]float64),
		LastResetDate:  day,
	}
}

// DailyAggregate es la fila persistida por día natural (UTC).
type DailyAggregate struct {
	Date        string // YYYY-MM-DD
	RealizedPnL float64
	TradesCount int
}

// DayKey formatea un instante como clave de día UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// RealizedPnL computes the exact settlement P&L for a replica.
//
//	BUY  won:  (size/price) * (1-price)  — profit per share times shares
//	BUY  lost: -size                     — stake fully lost
//	SELL won:  -(size/price) * (1-price) — payout obligation on the winner
//	SELL lost: +size                     — premium kept
//
// Any other side yields 0. No rounding — display formatting rounds.
func RealizedPnL(side Side, sizeUSD, price float64, won bool) float64 {
	switch side {
	case SideBuy:
		if won {
			return (sizeUSD / price) * (1 - price)
		}
		return -sizeUSD
	case SideSell:
		if won {
			return -(sizeUSD / price) * (1 - price)
		}
		return sizeUSD
	default:
		return 0
	}
}
