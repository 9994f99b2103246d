package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/polycopy/engine/internal/domain"
	"github.com/polycopy/engine/internal/ports"
	"github.com/polycopy/engine/internal/risk"
)

const (
	DefaultInterval  = 60 * time.Second
	defaultBatchSize = 50
	defaultCacheCap  = 1_000
)

// Config holds the resolution loop settings.
type Config struct {
	Interval  time.Duration
	BatchSize int // unresolved replicas examined per cycle
	CacheCap  int // bound on the terminal-market cache
}

// Resolver settles live replicas once their markets reach a terminal
// state. Each replica is resolved exactly once; settlement P&L feeds the
// daily aggregate and the risk manager's ledger.
type Resolver struct {
	cfg      Config
	markets  ports.MarketData
	store    ports.TradeStore
	risk     *risk.Manager
	notifier ports.Notifier

	running atomic.Bool

	// cache holds terminal markets whose winner was already observed.
	// A settled resolution never changes, so entries are safe for the
	// life of the process.
	cache *marketCache

	now func() time.Time
}

// New creates a Resolver.
func New(cfg Config, markets ports.MarketData, store ports.TradeStore,
	riskMgr *risk.Manager, notifier ports.Notifier) *Resolver {

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.CacheCap <= 0 {
		cfg.CacheCap = defaultCacheCap
	}

	return &Resolver{
		cfg:      cfg,
		markets:  markets,
		store:    store,
		risk:     riskMgr,
		notifier: notifier,
		cache:    newMarketCache(cfg.CacheCap),
		now:      time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (r *Resolver) SetClock(now func() time.Time) { r.now = now }

// Run executes the resolution loop until the context is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	slog.Info("resolver: started", "interval", r.cfg.Interval, "batch", r.cfg.BatchSize)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := r.Tick(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("resolver: cycle failed", "err", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("resolver: stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one resolution cycle. Overlapping ticks are dropped.
func (r *Resolver) Tick(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		slog.Debug("resolver: previous cycle still running, tick skipped")
		return nil
	}
	defer r.running.Store(false)

	batch, err := r.store.UnresolvedReplicas(ctx, r.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("resolver: load unresolved: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	var stats domain.ResolveStats
	var settled []domain.ReplicaTrade

	// One market fetch per slug per cycle, even with many replicas on it.
	fetched := make(map[string]*domain.Market)

	for _, replica := range batch {
		market, ok := r.lookupMarket(ctx, replica.MarketSlug, fetched)
		if !ok || !market.Terminal() {
			continue
		}

		winner, ok := market.WinningOutcome()
		if !ok {
			// Closed but the winner is not yet determinable. Leave the
			// replica for a later cycle instead of guessing.
			slog.Debug("resolver: terminal market without determinable winner",
				"market", replica.MarketSlug)
			continue
		}

		won := domain.EqualOutcome(replica.Outcome, winner)
		pnl := domain.RealizedPnL(replica.Side, replica.SizeUSD, replica.Price, won)
		resolvedAt := r.now()

		updated, err := r.store.ResolveReplica(ctx, replica.ID, winner, pnl, resolvedAt)
		if err != nil {
			slog.Warn("resolver: persist failed", "replica", replica.ID, "err", err)
			continue
		}
		if !updated {
			// Already settled by a previous run. No double counting.
			continue
		}

		if err := r.store.AddDailyPnL(ctx, domain.DayKey(resolvedAt), pnl); err != nil {
			slog.Warn("resolver: daily pnl update failed", "replica", replica.ID, "err", err)
		}
		r.risk.RecordPnL(pnl)

		if won {
			stats.Wins++
		} else {
			stats.Losses++
		}
		stats.TotalPnL += pnl

		replica.ResolvedOutcome = winner
		replica.PnL = pnl
		replica.ResolvedAt = &resolvedAt
		settled = append(settled, replica)

		slog.Info("resolver: replica settled",
			"market", replica.MarketSlug,
			"picked", replica.Outcome,
			"winner", winner,
			"pnl", fmt.Sprintf("%+.2f", pnl),
		)
	}

	if err := r.notifier.NotifyResolutions(ctx, settled, stats); err != nil {
		slog.Warn("resolver: notify failed", "err", err)
	}
	return nil
}

// lookupMarket returns the market for a slug, serving terminal markets
// from the cache and fetching each slug at most once per cycle.
func (r *Resolver) lookupMarket(ctx context.Context, slug string, fetched map[string]*domain.Market) (domain.Market, bool) {
	if m, ok := r.cache.Get(slug); ok {
		return m, true
	}
	if m, ok := fetched[slug]; ok {
		if m == nil {
			return domain.Market{}, false
		}
		return *m, true
	}

	m, found, err := r.markets.GetMarketBySlug(ctx, slug)
	if err != nil {
		slog.Warn("resolver: market lookup failed", "market", slug, "err", err)
		fetched[slug] = nil
		return domain.Market{}, false
	}
	if !found {
		slog.Debug("resolver: market unknown upstream", "market", slug)
		fetched[slug] = nil
		return domain.Market{}, false
	}

	fetched[slug] = &m
	// Cachear solo cuando ya hay ganador observado: un mercado cerrado
	// pero aún sin outcome determinable tiene que refetchearse, o la
	// réplica quedaría congelada con el snapshot sin ganador.
	if m.Terminal() {
		if _, resolved := m.WinningOutcome(); resolved {
			r.cache.Put(slug, m)
		}
	}
	return m, true
}
