package ports

import (
	"context"
	"time"

	"github.com/polycopy/engine/internal/domain"
)

// TradeStore persiste réplicas, agregados diarios y el feed de whale trades.
type TradeStore interface {
	// SaveReplica inserta una réplica. Devuelve inserted=false si ya existe
	// una réplica para el mismo source_trade_id (constraint UNIQUE).
	SaveReplica(ctx context.Context, r domain.ReplicaTrade) (inserted bool, err error)

	// ResolveReplica escribe outcome/pnl/resolved_at una sola vez.
	// Devuelve updated=false si la réplica ya estaba resuelta.
	ResolveReplica(ctx context.Context, id, resolvedOutcome string, pnl float64, resolvedAt time.Time) (updated bool, err error)

	// UnresolvedReplicas devuelve hasta limit réplicas paper/pending/filled
	// sin resolver, las más antiguas primero.
	UnresolvedReplicas(ctx context.Context, limit int) ([]domain.ReplicaTrade, error)

	// OpenExposure suma el notional de las réplicas vivas creadas el día dado,
	// agrupado por mercado. Hidrata la exposición del risk manager tras un restart.
	OpenExposure(ctx context.Context, day string) (map[string]float64, error)

	// DailyAggregate devuelve la fila del día, found=false si no existe.
	DailyAggregate(ctx context.Context, date string) (domain.DailyAggregate, bool, error)

	// SaveDailyAggregate hace upsert completo de la fila del día.
	SaveDailyAggregate(ctx context.Context, agg domain.DailyAggregate) error

	// AddDailyPnL suma pnl al realized_pnl del día (upsert aditivo).
	AddDailyPnL(ctx context.Context, date string, pnl float64) error

	// WhaleTradesSince devuelve trades del watcher para las wallets dadas,
	// creados después de since, en orden de creación ascendente.
	WhaleTradesSince(ctx context.Context, wallets []string, since time.Time, limit int) ([]domain.WhaleTrade, error)

	// SaveWhaleTrade persiste un trade del watcher (usado por fixtures y tests).
	SaveWhaleTrade(ctx context.Context, t domain.WhaleTrade) error

	// SyncTrackedWallets publica la lista de targets para el watcher externo.
	SyncTrackedWallets(ctx context.Context, targets []domain.WhaleTarget) error

	// LifetimeStats devuelve el resumen histórico para el reporte.
	LifetimeStats(ctx context.Context) (domain.LifetimeStats, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
