package copier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polycopy/engine/internal/adapters/storage"
	"github.com/polycopy/engine/internal/application/copier"
	"github.com/polycopy/engine/internal/domain"
	"github.com/polycopy/engine/internal/filter"
	"github.com/polycopy/engine/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor simulates the execution collaborator.
type fakeExecutor struct {
	balance    float64
	balanceErr error
	market     domain.Market
	marketErr  error
	placeErr   error
	placed     []domain.PlaceOrderRequest
}

func (f *fakeExecutor) GetBalance(context.Context) (float64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeExecutor) GetMarket(context.Context, string) (domain.Market, error) {
	return f.market, f.marketErr
}

func (f *fakeExecutor) PlaceOrder(_ context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	if f.placeErr != nil {
		return domain.PlacedOrder{}, f.placeErr
	}
	f.placed = append(f.placed, req)
	return domain.PlacedOrder{OrderID: "paper-1", Paper: true}, nil
}

// spyNotifier captures the last cycle's stats.
type spyNotifier struct {
	replicas []domain.ReplicaTrade
	stats    domain.CopyStats
	calls    int
}

func (s *spyNotifier) NotifyCopies(_ context.Context, replicas []domain.ReplicaTrade, stats domain.CopyStats) error {
	s.replicas = replicas
	s.stats = stats
	s.calls++
	return nil
}

func (s *spyNotifier) NotifyResolutions(context.Context, []domain.ReplicaTrade, domain.ResolveStats) error {
	return nil
}

type fixture struct {
	copier   *copier.Copier
	store    *storage.SQLiteStore
	exec     *fakeExecutor
	notifier *spyNotifier
	risk     *risk.Manager
	base     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f, err := filter.New(filter.Rules{"crypto": {"bitcoin", "btc"}})
	require.NoError(t, err)

	targets := domain.NewTargetSet([]domain.WhaleTarget{
		{Address: "0xwhale", Label: "whale-1", Categories: []string{"crypto"}},
	})

	riskMgr := risk.New(risk.Limits{
		TradeSize:            1.50,
		MinWhaleSize:         10,
		MaxPositionPerMarket: 5,
		MinBalanceToTrade:    10,
		DailyLossLimit:       15,
	}, store)

	exec := &fakeExecutor{
		balance: 100,
		market: domain.Market{
			Slug:   "btc-100k",
			Active: true,
			Tokens: []domain.Token{
				{TokenID: "tok-yes", Outcome: "Yes"},
				{TokenID: "tok-no", Outcome: "No"},
			},
		},
	}
	notifier := &spyNotifier{}

	c := copier.New(copier.Config{TradeSize: 1.50}, targets, f, riskMgr, exec, store, notifier)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return base })
	c.SetWatermark(base.Add(-time.Hour))

	return &fixture{copier: c, store: store, exec: exec, notifier: notifier, risk: riskMgr, base: base}
}

func (fx *fixture) feed(t *testing.T, trade domain.WhaleTrade) {
	t.Helper()
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = fx.base
	}
	if trade.Timestamp.IsZero() {
		trade.Timestamp = trade.CreatedAt
	}
	require.NoError(t, fx.store.SaveWhaleTrade(context.Background(), trade))
}

func whaleTrade(id string) domain.WhaleTrade {
	return domain.WhaleTrade{
		ID:             id,
		Wallet:         "0xwhale",
		MarketSlug:     "btc-100k",
		MarketQuestion: "Will Bitcoin hit $100k?",
		Side:           domain.SideBuy,
		Outcome:        "Yes",
		SizeUSD:        500,
		Price:          0.6,
	}
}

func TestTick_CopiesMatchingTrade(t *testing.T) {
	fx := newFixture(t)
	fx.feed(t, whaleTrade("wt-1"))

	require.NoError(t, fx.copier.Tick(context.Background()))

	assert.Equal(t, 1, fx.notifier.stats.Copied)
	require.Len(t, fx.notifier.replicas, 1)

	r := fx.notifier.replicas[0]
	assert.Equal(t, domain.StatusPaper, r.Status)
	assert.Equal(t, "wt-1", r.SourceTradeID)
	assert.Equal(t, "whale-1", r.SourceLabel)
	assert.InDelta(t, 1.50, r.SizeUSD, 1e-9) // nuestro stake, no los $500 del whale
	assert.InDelta(t, 0.6, r.Price, 1e-9)
	assert.Equal(t, "paper-1", r.OrderID)
	assert.NotNil(t, r.FilledAt)

	require.Len(t, fx.exec.placed, 1)
	order := fx.exec.placed[0]
	assert.Equal(t, "tok-yes", order.TokenID)
	assert.InDelta(t, 2.5, order.Shares, 1e-9) // 1.50 / 0.60
	assert.InDelta(t, 1.50, order.NotionalUSD(), 1e-9)

	assert.InDelta(t, 1.50, fx.risk.Ledger().MarketExposure["btc-100k"], 1e-9)
}

func TestTick_UntrackedWalletNotPersisted(t *testing.T) {
	fx := newFixture(t)
	trade := whaleTrade("wt-1")
	trade.Wallet = "0xstranger"
	fx.feed(t, trade)

	require.NoError(t, fx.copier.Tick(context.Background()))

	assert.Equal(t, 1, fx.notifier.stats.Untracked)
	assert.Empty(t, fx.notifier.replicas)

	stats, err := fx.store.LifetimeStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalReplicas)
}

func TestTick_NoCategoryMatchPersistsSkip(t *testing.T) {
	fx := newFixture(t)
	trade := whaleTrade("wt-1")
	trade.MarketQuestion = "Who wins the election?"
	fx.feed(t, trade)

	require.NoError(t, fx.copier.Tick(context.Background()))

	assert.Equal(t, 1, fx.notifier.stats.Skipped)
	require.Len(t, fx.notifier.replicas, 1)
	assert.Equal(t, domain.StatusSkipped, fx.notifier.replicas[0].Status)
	assert.Equal(t, "no category match", fx.notifier.replicas[0].ErrorMessage)
	assert.Empty(t, fx.exec.placed)
}

func TestTick_RiskDenialRecordsRule(t *testing.T) {
	fx := newFixture(t)
	trade := whaleTrade("wt-1")
	trade.SizeUSD = 5 // bajo el mínimo de $10
	fx.feed(t, trade)

	require.NoError(t, fx.copier.Tick(context.Background()))

	require.Len(t, fx.notifier.replicas, 1)
	r := fx.notifier.replicas[0]
	assert.Equal(t, domain.StatusSkipped, r.Status)
	assert.Contains(t, r.ErrorMessage, "MIN_WHALE_SIZE")
	assert.Empty(t, fx.exec.placed)
	assert.Empty(t, fx.risk.Ledger().MarketExposure)
}

func TestTick_ExecutionFailurePersistsFailed(t *testing.T) {
	fx := newFixture(t)
	fx.exec.placeErr = errors.New("order rejected")
	fx.feed(t, whaleTrade("wt-1"))

	require.NoError(t, fx.copier.Tick(context.Background()))

	assert.Equal(t, 1, fx.notifier.stats.Failed)
	require.Len(t, fx.notifier.replicas, 1)
	r := fx.notifier.replicas[0]
	assert.Equal(t, domain.StatusFailed, r.Status)
	assert.Contains(t, r.ErrorMessage, "order rejected")

	// Un fallo no consume exposición.
	assert.Empty(t, fx.risk.Ledger().MarketExposure)
}

func TestTick_MissingSlugDroppedWithoutRecord(t *testing.T) {
	fx := newFixture(t)
	trade := whaleTrade("wt-1")
	trade.MarketSlug = ""
	fx.feed(t, trade)

	require.NoError(t, fx.copier.Tick(context.Background()))

	assert.Equal(t, 1, fx.notifier.stats.Skipped)
	assert.Empty(t, fx.notifier.replicas)
	assert.Empty(t, fx.exec.placed)

	// Sin decisión que persistir sobre datos inválidos
	stats, err := fx.store.LifetimeStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalReplicas)
}

func TestTick_MissingOutcomeTokenFails(t *testing.T) {
	fx := newFixture(t)
	fx.exec.market.Tokens = []domain.Token{{TokenID: "tok-no", Outcome: "No"}}
	fx.feed(t, whaleTrade("wt-1"))

	require.NoError(t, fx.copier.Tick(context.Background()))

	require.Len(t, fx.notifier.replicas, 1)
	assert.Equal(t, domain.StatusFailed, fx.notifier.replicas[0].Status)
	assert.Contains(t, fx.notifier.replicas[0].ErrorMessage, "no token")
}

func TestTick_SameTradeNeverRevisited(t *testing.T) {
	fx := newFixture(t)
	fx.feed(t, whaleTrade("wt-1"))

	require.NoError(t, fx.copier.Tick(context.Background()))
	require.Equal(t, 1, fx.notifier.stats.Copied)

	// Rebobinar el watermark fuerza a releer el mismo trade: el dedup
	// en memoria lo corta antes de tocar el executor.
	fx.copier.SetWatermark(fx.base.Add(-time.Hour))
	require.NoError(t, fx.copier.Tick(context.Background()))

	assert.Equal(t, 1, fx.notifier.stats.Duplicates)
	assert.Zero(t, fx.notifier.stats.Copied)
	assert.Len(t, fx.exec.placed, 1)

	stats, err := fx.store.LifetimeStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalReplicas)
}

func TestTick_WatermarkAdvances(t *testing.T) {
	fx := newFixture(t)
	fx.feed(t, whaleTrade("wt-1"))

	require.NoError(t, fx.copier.Tick(context.Background()))
	require.Equal(t, 1, fx.notifier.stats.Copied)

	// El segundo tick no relee el trade: el watermark ya lo pasó,
	// así que el ciclo termina sin actividad y sin notificar.
	calls := fx.notifier.calls
	require.NoError(t, fx.copier.Tick(context.Background()))
	assert.Equal(t, calls, fx.notifier.calls)
}

func TestTick_BalanceErrorFailsReplica(t *testing.T) {
	fx := newFixture(t)
	fx.exec.balanceErr = errors.New("api down")
	fx.feed(t, whaleTrade("wt-1"))

	require.NoError(t, fx.copier.Tick(context.Background()))

	require.Len(t, fx.notifier.replicas, 1)
	assert.Equal(t, domain.StatusFailed, fx.notifier.replicas[0].Status)
	assert.Contains(t, fx.notifier.replicas[0].ErrorMessage, "balance check")
}
