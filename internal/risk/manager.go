package risk

// Package risk gates every replica before execution and keeps the daily
// ledger: P&L, trade count and per-market exposure. Account-level checks
// (balance, daily loss) run before trade-specific ones so an account halt
// dominates regardless of the opportunity.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/polycopy/engine/internal/domain"
	"github.com/polycopy/engine/internal/ports"
)

// RuleCode identifies the gate rule that denied a trade.
type RuleCode string

const (
	RuleMinBalance          RuleCode = "MIN_BALANCE"
	RuleDailyLossLimit      RuleCode = "DAILY_LOSS_LIMIT"
	RuleMinWhaleSize        RuleCode = "MIN_WHALE_SIZE"
	RuleMaxMarketExposure   RuleCode = "MAX_MARKET_EXPOSURE"
	RuleInsufficientBalance RuleCode = "INSUFFICIENT_BALANCE"
)

// Limits are the static risk limits, all positive USD amounts.
type Limits struct {
	TradeSize            float64 // fixed stake per replica
	MinWhaleSize         float64 // ignore whale trades below this notional
	MaxPositionPerMarket float64 // cap on cumulative exposure per market per day
	MinBalanceToTrade    float64 // account-level floor
	DailyLossLimit       float64 // halt for the rest of the day past this loss
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	Rule    RuleCode
	Reason  string
}

// Manager holds the ledger and evaluates the gate. Safe for use from the
// copier and resolver loops concurrently.
type Manager struct {
	limits Limits
	store  ports.TradeStore

	mu     sync.Mutex
	ledger domain.RiskLedger

	// now is injectable so tests can cross day boundaries.
	now func() time.Time
}

// New creates a Manager with an empty ledger for today. store may be nil
// (state then lives only in memory).
func New(limits Limits, store ports.TradeStore) *Manager {
	m := &Manager{
		limits: limits,
		store:  store,
		now:    time.Now,
	}
	m.ledger = domain.NewRiskLedger(domain.DayKey(m.now()))
	return m
}

// SetClock replaces the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// CanTrade evaluates the gate rules in fixed priority order and returns
// the first failing rule. Account-level circuit breakers come first.
func (m *Manager) CanTrade(currentBalance float64, trade domain.WhaleTrade, marketSlug string) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDayLocked()

	if currentBalance < m.limits.MinBalanceToTrade {
		return deny(RuleMinBalance,
			fmt.Sprintf("balance $%.2f below minimum $%.2f", currentBalance, m.limits.MinBalanceToTrade))
	}
	if m.ledger.DailyPnL <= -m.limits.DailyLossLimit {
		return deny(RuleDailyLossLimit,
			fmt.Sprintf("daily pnl $%.2f hit loss limit $%.2f", m.ledger.DailyPnL, m.limits.DailyLossLimit))
	}
	if trade.SizeUSD < m.limits.MinWhaleSize {
		return deny(RuleMinWhaleSize,
			fmt.Sprintf("whale trade $%.2f below minimum $%.2f", trade.SizeUSD, m.limits.MinWhaleSize))
	}
	if m.ledger.MarketExposure[marketSlug]+m.limits.TradeSize > m.limits.MaxPositionPerMarket {
		return deny(RuleMaxMarketExposure,
			fmt.Sprintf("market exposure $%.2f + $%.2f exceeds cap $%.2f",
				m.ledger.MarketExposure[marketSlug], m.limits.TradeSize, m.limits.MaxPositionPerMarket))
	}
	if currentBalance < m.limits.TradeSize {
		return deny(RuleInsufficientBalance,
			fmt.Sprintf("balance $%.2f below trade size $%.2f", currentBalance, m.limits.TradeSize))
	}

	return Decision{Allowed: true}
}

// RecordTrade books an executed replica: bumps the market's exposure and
// the daily trade count. Exposure is never released until the daily reset.
func (m *Manager) RecordTrade(marketSlug string, sizeUSD float64, side domain.Side) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDayLocked()

	m.ledger.MarketExposure[marketSlug] += sizeUSD
	m.ledger.DailyTradeCount++

	slog.Debug("risk: trade recorded",
		"market", marketSlug,
		"side", side,
		"size", sizeUSD,
		"exposure", m.ledger.MarketExposure[marketSlug],
		"trades_today", m.ledger.DailyTradeCount,
	)
}

// RecordPnL adds realized P&L to the daily ledger. Settlement path only.
func (m *Manager) RecordPnL(amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDayLocked()

	m.ledger.DailyPnL += amount
}

// Ledger returns a copy of the current ledger, reset applied.
func (m *Manager) Ledger() domain.RiskLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDayLocked()

	cp := m.ledger
	cp.MarketExposure = make(map[string]float64, len(m.ledger.MarketExposure))
	for k, v := range m.ledger.MarketExposure {
		cp.MarketExposure[k] = v
	}
	return cp
}

// LoadState hydrates the ledger from the store after a restart: daily P&L
// and trade count from today's aggregate, exposure from today's live
// replicas. Best effort — failures are logged, never fatal.
func (m *Manager) LoadState(ctx context.Context) {
	if m.store == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDayLocked()
	today := m.ledger.LastResetDate

	if agg, found, err := m.store.DailyAggregate(ctx, today); err != nil {
		slog.Warn("risk: load daily aggregate failed", "err", err)
	} else if found {
		m.ledger.DailyPnL = agg.RealizedPnL
		m.ledger.DailyTradeCount = agg.TradesCount
	}

	exposure, err := m.store.OpenExposure(ctx, today)
	if err != nil {
		slog.Warn("risk: load exposure failed", "err", err)
		return
	}
	m.ledger.MarketExposure = exposure

	slog.Info("risk: state loaded",
		"date", today,
		"daily_pnl", m.ledger.DailyPnL,
		"trades_today", m.ledger.DailyTradeCount,
		"markets_with_exposure", len(exposure),
	)
}

// SaveState upserts today's aggregate. Best effort.
func (m *Manager) SaveState(ctx context.Context) {
	if m.store == nil {
		return
	}

	m.mu.Lock()
	agg := domain.DailyAggregate{
		Date:        m.ledger.LastResetDate,
		RealizedPnL: m.ledger.DailyPnL,
		TradesCount: m.ledger.DailyTradeCount,
	}
	m.mu.Unlock()

	if err := m.store.SaveDailyAggregate(ctx, agg); err != nil {
		slog.Warn("risk: save state failed", "err", err)
	}
}

// resetIfNewDayLocked lazily resets the ledger at the UTC day boundary.
// Idempotent within a day; all counters reset together, never mid-check.
func (m *Manager) resetIfNewDayLocked() {
	today := domain.DayKey(m.now())
	if today == m.ledger.LastResetDate {
		return
	}

	slog.Info("risk: daily reset",
		"previous", m.ledger.LastResetDate,
		"today", today,
		"final_pnl", m.ledger.DailyPnL,
		"trades", m.ledger.DailyTradeCount,
	)
	m.ledger = domain.NewRiskLedger(today)
}

func deny(rule RuleCode, reason string) Decision {
	return Decision{Allowed: false, Rule: rule, Reason: reason}
}
