package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/polycopy/engine/config"
	"github.com/polycopy/engine/internal/adapters/notify"
	"github.com/polycopy/engine/internal/adapters/paper"
	"github.com/polycopy/engine/internal/adapters/polymarket"
	"github.com/polycopy/engine/internal/adapters/storage"
	"github.com/polycopy/engine/internal/application/copier"
	"github.com/polycopy/engine/internal/application/resolver"
	"github.com/polycopy/engine/internal/domain"
	"github.com/polycopy/engine/internal/filter"
	"github.com/polycopy/engine/internal/ports"
	"github.com/polycopy/engine/internal/risk"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one copy + resolve cycle and exit")
	live := flag.Bool("live", false, "trade with real money (overrides paper_mode)")
	report := flag.Bool("report", false, "print lifetime stats and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full tables (default: compact lines)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	paperMode := cfg.PaperMode() && !*live

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table)

	if *report {
		stats, err := store.LifetimeStats(context.Background())
		if err != nil {
			slog.Error("failed to read stats", "err", err)
			os.Exit(1)
		}
		notifier.PrintReport(stats)
		return
	}

	targets := make([]domain.WhaleTarget, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		targets = append(targets, domain.WhaleTarget{
			Address:    t.Address,
			Label:      t.Label,
			Categories: t.Categories,
		})
	}
	targetSet := domain.NewTargetSet(targets)
	if targetSet.Len() == 0 {
		slog.Error("no targets configured — nothing to copy")
		os.Exit(1)
	}

	marketFilter, err := filter.New(filter.Rules(cfg.Categories))
	if err != nil {
		slog.Error("invalid category rules", "err", err)
		os.Exit(1)
	}

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	var exec ports.Executor
	if paperMode {
		exec = paper.NewExecutor(client, cfg.Copier.PaperBalanceUSD)
	} else {
		creds := config.LoadCredentials()
		trader, err := polymarket.NewTrader(client, polymarket.Credentials{
			Address:    creds.Address,
			APIKey:     creds.APIKey,
			Secret:     creds.Secret,
			Passphrase: creds.Passphrase,
		})
		if err != nil {
			slog.Error("live mode requires CLOB credentials", "err", err)
			os.Exit(1)
		}
		exec = trader
	}

	riskMgr := risk.New(risk.Limits{
		TradeSize:            cfg.Copier.TradeSizeUSD,
		MinWhaleSize:         cfg.Risk.MinWhaleSizeUSD,
		MaxPositionPerMarket: cfg.Risk.MaxPositionPerMarket,
		MinBalanceToTrade:    cfg.Risk.MinBalanceToTrade,
		DailyLossLimit:       cfg.Risk.DailyLossLimit,
	}, store)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	riskMgr.LoadState(ctx)

	if err := store.SyncTrackedWallets(ctx, targets); err != nil {
		slog.Warn("failed to publish tracked wallets", "err", err)
	}

	cop := copier.New(copier.Config{
		Interval:  cfg.CopyInterval(),
		TradeSize: cfg.Copier.TradeSizeUSD,
		FeedLimit: cfg.Copier.FeedLimit,
	}, targetSet, marketFilter, riskMgr, exec, store, notifier)

	res := resolver.New(resolver.Config{
		Interval:  cfg.ResolveInterval(),
		BatchSize: cfg.Resolver.BatchSize,
	}, client, store, riskMgr, notifier)

	slog.Info("copytrader starting",
		"config", *configPath,
		"paper", paperMode,
		"targets", targetSet.Len(),
		"trade_size", cfg.Copier.TradeSizeUSD,
		"copy_interval", cfg.CopyInterval(),
		"resolve_interval", cfg.ResolveInterval(),
	)

	if *once {
		if err := cop.Tick(ctx); err != nil {
			slog.Error("copy cycle failed", "err", err)
			os.Exit(1)
		}
		if err := res.Tick(ctx); err != nil {
			slog.Error("resolve cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cop.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		res.Run(ctx)
	}()
	wg.Wait()

	riskMgr.SaveState(context.Background())
	slog.Info("copytrader stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
