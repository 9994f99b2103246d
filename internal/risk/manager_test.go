package risk_test

import (
	"testing"
	"time"

	"github.com/polycopy/engine/internal/domain"
	"github.com/polycopy/engine/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = risk.Limits{
	TradeSize:            1.50,
	MinWhaleSize:         10,
	MaxPositionPerMarket: 5,
	MinBalanceToTrade:    10,
	DailyLossLimit:       15,
}

func whaleTrade(sizeUSD float64) domain.WhaleTrade {
	return domain.WhaleTrade{
		ID:         "wt-1",
		Wallet:     "0xabc",
		MarketSlug: "btc-100k",
		Side:       domain.SideBuy,
		Outcome:    "Yes",
		SizeUSD:    sizeUSD,
		Price:      0.6,
	}
}

func TestCanTrade_AllowsWhenAllRulesPass(t *testing.T) {
	m := risk.New(testLimits, nil)

	d := m.CanTrade(100, whaleTrade(50), "btc-100k")
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Rule)
}

func TestCanTrade_MinBalanceDominates(t *testing.T) {
	m := risk.New(testLimits, nil)

	// La whale trade también es demasiado pequeña, pero el freno de cuenta
	// tiene prioridad sobre los checks del trade concreto.
	d := m.CanTrade(5, whaleTrade(1), "btc-100k")
	require.False(t, d.Allowed)
	assert.Equal(t, risk.RuleMinBalance, d.Rule)
}

func TestCanTrade_DailyLossLimitHalts(t *testing.T) {
	m := risk.New(testLimits, nil)
	m.RecordPnL(-15)

	d := m.CanTrade(100, whaleTrade(50), "btc-100k")
	require.False(t, d.Allowed)
	assert.Equal(t, risk.RuleDailyLossLimit, d.Rule)
}

func TestCanTrade_LossJustUnderLimitStillTrades(t *testing.T) {
	m := risk.New(testLimits, nil)
	m.RecordPnL(-14.99)

	d := m.CanTrade(100, whaleTrade(50), "btc-100k")
	assert.True(t, d.Allowed)
}

func TestCanTrade_MinWhaleSize(t *testing.T) {
	m := risk.New(testLimits, nil)

	d := m.CanTrade(100, whaleTrade(9.99), "btc-100k")
	require.False(t, d.Allowed)
	assert.Equal(t, risk.RuleMinWhaleSize, d.Rule)
}

func TestCanTrade_ExposureCap(t *testing.T) {
	m := risk.New(testLimits, nil)

	// Con stake 1.50 y cap 5.00 caben 3 trades por mercado (4.50);
	// el cuarto lo superaría (6.00).
	for i := 0; i < 3; i++ {
		d := m.CanTrade(100, whaleTrade(50), "btc-100k")
		require.True(t, d.Allowed, "trade %d", i+1)
		m.RecordTrade("btc-100k", testLimits.TradeSize, domain.SideBuy)
	}

	d := m.CanTrade(100, whaleTrade(50), "btc-100k")
	require.False(t, d.Allowed)
	assert.Equal(t, risk.RuleMaxMarketExposure, d.Rule)

	// Otro mercado no está afectado.
	assert.True(t, m.CanTrade(100, whaleTrade(50), "eth-5k").Allowed)
}

func TestCanTrade_InsufficientBalanceForStake(t *testing.T) {
	limits := testLimits
	limits.MinBalanceToTrade = 1 // dejar pasar el floor de cuenta
	m := risk.New(limits, nil)

	d := m.CanTrade(1.20, whaleTrade(50), "btc-100k")
	require.False(t, d.Allowed)
	assert.Equal(t, risk.RuleInsufficientBalance, d.Rule)
}

func TestDailyReset_ClearsAllCountersTogether(t *testing.T) {
	m := risk.New(testLimits, nil)

	day1 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return day1 })

	m.RecordPnL(-15)
	m.RecordTrade("btc-100k", 4.5, domain.SideBuy)
	require.False(t, m.CanTrade(100, whaleTrade(50), "btc-100k").Allowed)

	// Cruzar la medianoche UTC: todo el ledger se limpia a la vez.
	day2 := day1.Add(13 * time.Hour)
	m.SetClock(func() time.Time { return day2 })

	d := m.CanTrade(100, whaleTrade(50), "btc-100k")
	assert.True(t, d.Allowed)

	ledger := m.Ledger()
	assert.Zero(t, ledger.DailyPnL)
	assert.Zero(t, ledger.DailyTradeCount)
	assert.Empty(t, ledger.MarketExposure)
	assert.Equal(t, "2024-06-02", ledger.LastResetDate)
}

func TestLedger_ReturnsCopy(t *testing.T) {
	m := risk.New(testLimits, nil)
	m.RecordTrade("btc-100k", 1.5, domain.SideBuy)

	ledger := m.Ledger()
	ledger.MarketExposure["btc-100k"] = 999

	assert.InDelta(t, 1.5, m.Ledger().MarketExposure["btc-100k"], 1e-9)
}
