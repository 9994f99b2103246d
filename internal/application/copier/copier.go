package copier

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/polycopy/engine/internal/domain"
	"github.com/polycopy/engine/internal/filter"
	"github.com/polycopy/engine/internal/ports"
	"github.com/polycopy/engine/internal/risk"
)

const (
	DefaultInterval  = 10 * time.Second
	defaultFeedLimit = 200
	defaultSeenCap   = 10_000
)

// Config holds the copier loop settings.
type Config struct {
	Interval  time.Duration
	TradeSize float64 // fixed stake per replica, USD
	FeedLimit int     // max whale trades consumed per cycle
	SeenCap   int     // bound on the in-memory dedup set
}

// Copier polls the whale trade feed and turns each new trade into exactly
// one replica decision: copied, skipped or failed. Decisions are final;
// a trade is never revisited.
type Copier struct {
	cfg      Config
	targets  domain.TargetSet
	filter   *filter.Filter
	risk     *risk.Manager
	exec     ports.Executor
	store    ports.TradeStore
	notifier ports.Notifier

	// running guards against overlapping cycles when a tick outlives the
	// interval (slow API, big backlog).
	running atomic.Bool

	// seen short-circuits trades already decided this process; the store's
	// UNIQUE constraint covers restarts and anything evicted from here.
	seen      *seenSet
	watermark time.Time

	now func() time.Time
}

// New creates a Copier. The watermark starts at construction time: trades
// the watcher recorded before we came up are history, not signals.
func New(cfg Config, targets domain.TargetSet, f *filter.Filter, riskMgr *risk.Manager,
	exec ports.Executor, store ports.TradeStore, notifier ports.Notifier) *Copier {

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FeedLimit <= 0 {
		cfg.FeedLimit = defaultFeedLimit
	}
	if cfg.SeenCap <= 0 {
		cfg.SeenCap = defaultSeenCap
	}

	c := &Copier{
		cfg:      cfg,
		targets:  targets,
		filter:   f,
		risk:     riskMgr,
		exec:     exec,
		store:    store,
		notifier: notifier,
		seen:     newSeenSet(cfg.SeenCap),
		now:      time.Now,
	}
	c.watermark = c.now()
	return c
}

// SetClock replaces the time source. Tests only.
func (c *Copier) SetClock(now func() time.Time) { c.now = now }

// SetWatermark rewinds the feed watermark. Tests only.
func (c *Copier) SetWatermark(t time.Time) { c.watermark = t }

// Run executes the copy loop until the context is cancelled. The first
// cycle fires immediately, then every Interval.
func (c *Copier) Run(ctx context.Context) {
	slog.Info("copier: started",
		"interval", c.cfg.Interval,
		"trade_size", c.cfg.TradeSize,
		"targets", c.targets.Len(),
	)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := c.Tick(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("copier: cycle failed", "err", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("copier: stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one copy cycle. If the previous cycle is still in flight the
// tick is dropped, never queued.
func (c *Copier) Tick(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		slog.Debug("copier: previous cycle still running, tick skipped")
		return nil
	}
	defer c.running.Store(false)

	trades, err := c.store.WhaleTradesSince(ctx, c.targets.Addresses(), c.watermark, c.cfg.FeedLimit)
	if err != nil {
		return fmt.Errorf("copier: read feed: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	var stats domain.CopyStats
	var decided []domain.ReplicaTrade

	for _, trade := range trades {
		if trade.CreatedAt.After(c.watermark) {
			c.watermark = trade.CreatedAt
		}

		replica, ok := c.process(ctx, trade, &stats)
		if ok {
			decided = append(decided, replica)
		}
	}

	if len(decided) > 0 {
		c.risk.SaveState(ctx)
	}
	if err := c.notifier.NotifyCopies(ctx, decided, stats); err != nil {
		slog.Warn("copier: notify failed", "err", err)
	}
	return nil
}

// process runs one whale trade through the pipeline:
// dedup → tracked lookup → validation → category filter → risk gate → execute.
// Every decision past the lookup is persisted; ok=false means nothing was
// recorded (duplicate or untracked wallet).
func (c *Copier) process(ctx context.Context, trade domain.WhaleTrade, stats *domain.CopyStats) (domain.ReplicaTrade, bool) {
	if c.seen.Contains(trade.ID) {
		stats.Duplicates++
		return domain.ReplicaTrade{}, false
	}

	target, tracked := c.targets.Lookup(trade.Wallet)
	if !tracked {
		stats.Untracked++
		c.seen.Add(trade.ID)
		return domain.ReplicaTrade{}, false
	}

	// Un trade malformado se descarta sin dejar registro: no hay decisión
	// de copia que persistir sobre datos inválidos.
	if trade.MarketSlug == "" {
		slog.Warn("copier: whale trade without market slug dropped",
			"trade", trade.ID, "wallet", trade.Wallet)
		stats.Skipped++
		c.seen.Add(trade.ID)
		return domain.ReplicaTrade{}, false
	}

	replica := c.newReplica(trade, target)

	if !c.filter.Matches(trade.MarketQuestion, target.Categories) {
		replica.Status = domain.StatusSkipped
		replica.ErrorMessage = "no category match"
	} else {
		c.decide(ctx, trade, &replica)
	}

	inserted, err := c.store.SaveReplica(ctx, replica)
	if err != nil {
		slog.Error("copier: persist replica failed",
			"source_trade", trade.ID, "market", trade.MarketSlug, "err", err)
		return domain.ReplicaTrade{}, false
	}
	c.seen.Add(trade.ID)

	if !inserted {
		// Another process (or a previous run) already decided this trade.
		stats.Duplicates++
		return domain.ReplicaTrade{}, false
	}

	switch replica.Status {
	case domain.StatusSkipped:
		stats.Skipped++
	case domain.StatusFailed:
		stats.Failed++
	default:
		stats.Copied++
		c.risk.RecordTrade(replica.MarketSlug, replica.SizeUSD, replica.Side)
	}

	return replica, true
}

// decide applies the risk gate and, if allowed, executes the replica.
// It mutates replica's status, error message and order fields in place.
func (c *Copier) decide(ctx context.Context, trade domain.WhaleTrade, replica *domain.ReplicaTrade) {
	balance, err := c.exec.GetBalance(ctx)
	if err != nil {
		replica.Status = domain.StatusFailed
		replica.ErrorMessage = fmt.Sprintf("balance check: %v", err)
		return
	}

	decision := c.risk.CanTrade(balance, trade, trade.MarketSlug)
	if !decision.Allowed {
		replica.Status = domain.StatusSkipped
		replica.ErrorMessage = fmt.Sprintf("%s: %s", decision.Rule, decision.Reason)
		return
	}

	c.execute(ctx, trade, replica)
}

// execute places the order for an approved replica.
func (c *Copier) execute(ctx context.Context, trade domain.WhaleTrade, replica *domain.ReplicaTrade) {
	if trade.Price <= 0 || trade.Price >= 1 {
		replica.Status = domain.StatusFailed
		replica.ErrorMessage = fmt.Sprintf("whale price %.4f outside (0,1)", trade.Price)
		return
	}

	market, err := c.exec.GetMarket(ctx, trade.MarketSlug)
	if err != nil {
		replica.Status = domain.StatusFailed
		replica.ErrorMessage = fmt.Sprintf("market lookup: %v", err)
		return
	}

	tokenID, ok := market.TokenFor(trade.Outcome)
	if !ok {
		replica.Status = domain.StatusFailed
		replica.ErrorMessage = fmt.Sprintf("no token for outcome %q", trade.Outcome)
		return
	}

	order, err := c.exec.PlaceOrder(ctx, domain.PlaceOrderRequest{
		TokenID: tokenID,
		Side:    trade.Side,
		Price:   trade.Price,
		Shares:  c.cfg.TradeSize / trade.Price,
	})
	if err != nil {
		replica.Status = domain.StatusFailed
		replica.ErrorMessage = fmt.Sprintf("place order: %v", err)
		return
	}

	replica.OrderID = order.OrderID
	if order.Paper {
		replica.Status = domain.StatusPaper
		now := c.now()
		replica.FilledAt = &now
	} else {
		replica.Status = domain.StatusPending
	}

	slog.Info("copier: replica placed",
		"market", trade.MarketSlug,
		"side", trade.Side,
		"outcome", trade.Outcome,
		"size", replica.SizeUSD,
		"price", trade.Price,
		"source", replica.SourceLabel,
		"order_id", order.OrderID,
		"paper", order.Paper,
	)
}

// newReplica builds the replica skeleton shared by every decision path.
// We copy the whale's direction at the whale's price, but with our own
// fixed stake — never the whale's size.
func (c *Copier) newReplica(trade domain.WhaleTrade, target domain.WhaleTarget) domain.ReplicaTrade {
	return domain.ReplicaTrade{
		ID:             uuid.NewString(),
		SourceTradeID:  trade.ID,
		SourceLabel:    target.Label,
		SourceAddress:  trade.Wallet,
		MarketSlug:     trade.MarketSlug,
		MarketQuestion: trade.MarketQuestion,
		Side:           trade.Side,
		Outcome:        trade.Outcome,
		SizeUSD:        c.cfg.TradeSize,
		Price:          trade.Price,
		CreatedAt:      c.now(),
	}
}
