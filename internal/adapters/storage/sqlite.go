package storage

// sqlite.go — persistencia del copy trader.
//
// Estrategia:
//   - `replica_trades`: UNA fila por whale trade (UNIQUE sobre source_trade_id,
//     INSERT OR IGNORE). La decisión de copia se toma una sola vez, también
//     tras un reinicio o con dos procesos compitiendo.
//   - `daily_pnl`: una fila por día natural UTC. AddDailyPnL es aditivo para
//     que el resolver no pise el agregado del risk manager.
//   - `whale_trades` + `tracked_wallets`: el buzón compartido con el watcher
//     externo. El copier lee por watermark (created_at del watcher, no el
//     timestamp on-chain, que puede llegar tarde).
//   - Timestamps como TEXT UTC de ancho fijo (nanosegundos siempre a 9
//     dígitos): ordenan lexicográficamente y el parseo es determinista
//     entre drivers.
//   - Prune al arrancar: réplicas resueltas > 30d, whale trades > 7d.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/polycopy/engine/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por whale trade visto; el dedup vive aquí, no en memoria
CREATE TABLE IF NOT EXISTS replica_trades (
    id               TEXT PRIMARY KEY,
    source_trade_id  TEXT NOT NULL,
    source_label     TEXT NOT NULL DEFAULT '',
    source_address   TEXT NOT NULL,
    market_slug      TEXT NOT NULL,
    market_question  TEXT NOT NULL DEFAULT '',
    side             TEXT NOT NULL,
    outcome          TEXT NOT NULL,
    size_usd         REAL NOT NULL,
    price            REAL NOT NULL,
    status           TEXT NOT NULL,
    error_message    TEXT NOT NULL DEFAULT '',
    order_id         TEXT NOT NULL DEFAULT '',
    resolved_outcome TEXT NOT NULL DEFAULT '',
    pnl              REAL NOT NULL DEFAULT 0,
    resolved_at      TEXT,
    created_at       TEXT NOT NULL,
    filled_at        TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_replica_source ON replica_trades(source_trade_id);
CREATE INDEX IF NOT EXISTS idx_replica_open ON replica_trades(status, resolved_at);
CREATE INDEX IF NOT EXISTS idx_replica_created ON replica_trades(created_at);

-- Agregado por día natural UTC
CREATE TABLE IF NOT EXISTS daily_pnl (
    date         TEXT PRIMARY KEY,
    realized_pnl REAL    NOT NULL DEFAULT 0,
    trades_count INTEGER NOT NULL DEFAULT 0
);

-- Feed del watcher externo
CREATE TABLE IF NOT EXISTS whale_trades (
    id              TEXT PRIMARY KEY,
    wallet          TEXT NOT NULL,
    market_slug     TEXT NOT NULL,
    market_question TEXT NOT NULL DEFAULT '',
    side            TEXT NOT NULL,
    outcome         TEXT NOT NULL,
    size_usd        REAL NOT NULL,
    price           REAL NOT NULL,
    timestamp       TEXT NOT NULL,
    created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_whale_feed ON whale_trades(wallet, created_at);

-- Targets publicados para el watcher
CREATE TABLE IF NOT EXISTS tracked_wallets (
    address    TEXT PRIMARY KEY,
    label      TEXT NOT NULL DEFAULT '',
    categories TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL
);
`

const (
	retentionResolved = 30 * 24 * time.Hour // réplicas resueltas: 30 días
	retentionWhales   = 7 * 24 * time.Hour  // feed del watcher: 7 días
)

// SQLiteStore implementa ports.TradeStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveReplica inserta la réplica si su source_trade_id no existe todavía.
// inserted=false significa duplicado — no es un error.
func (s *SQLiteStore) SaveReplica(ctx context.Context, r domain.ReplicaTrade) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO replica_trades
			(id, source_trade_id, source_label, source_address, market_slug,
			 market_question, side, outcome, size_usd, price, status,
			 error_message, order_id, resolved_outcome, pnl, resolved_at,
			 created_at, filled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.SourceTradeID, r.SourceLabel, r.SourceAddress, r.MarketSlug,
		r.MarketQuestion, string(r.Side), r.Outcome, r.SizeUSD, r.Price,
		string(r.Status), r.ErrorMessage, r.OrderID, r.ResolvedOutcome,
		r.PnL, fmtNullTime(r.ResolvedAt), fmtTime(r.CreatedAt), fmtNullTime(r.FilledAt),
	)
	if err != nil {
		return false, fmt.Errorf("storage.SaveReplica %s: %w", r.SourceTradeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.SaveReplica %s: rows affected: %w", r.SourceTradeID, err)
	}
	return n > 0, nil
}

// ResolveReplica escribe los campos de resolución exactamente una vez.
// updated=false si la réplica no existe o ya estaba resuelta.
func (s *SQLiteStore) ResolveReplica(ctx context.Context, id, resolvedOutcome string, pnl float64, resolvedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE replica_trades
		SET resolved_outcome = ?, pnl = ?, resolved_at = ?
		WHERE id = ? AND resolved_at IS NULL
	`, resolvedOutcome, pnl, fmtTime(resolvedAt), id)
	if err != nil {
		return false, fmt.Errorf("storage.ResolveReplica %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.ResolveReplica %s: rows affected: %w", id, err)
	}
	return n > 0, nil
}

// UnresolvedReplicas devuelve hasta limit réplicas vivas sin resolver,
// las más antiguas primero.
func (s *SQLiteStore) UnresolvedReplicas(ctx context.Context, limit int) ([]domain.ReplicaTrade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_trade_id, source_label, source_address, market_slug,
		       market_question, side, outcome, size_usd, price, status,
		       error_message, order_id, resolved_outcome, pnl, resolved_at,
		       created_at, filled_at
		FROM replica_trades
		WHERE status IN ('paper', 'pending', 'filled') AND resolved_at IS NULL
		ORDER BY created_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.UnresolvedReplicas: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ReplicaTrade
	for rows.Next() {
		r, err := scanReplica(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.UnresolvedReplicas: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OpenExposure suma el notional de las réplicas vivas creadas el día dado,
// agrupado por mercado.
func (s *SQLiteStore) OpenExposure(ctx context.Context, day string) (map[string]float64, error) {
	start, err := time.Parse("2006-01-02", day)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenExposure: bad day %q: %w", day, err)
	}
	end := start.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT market_slug, SUM(size_usd)
		FROM replica_trades
		WHERE status IN ('paper', 'pending', 'filled')
		  AND created_at >= ? AND created_at < ?
		GROUP BY market_slug
	`, fmtTime(start), fmtTime(end))
	if err != nil {
		return nil, fmt.Errorf("storage.OpenExposure: query: %w", err)
	}
	defer rows.Close()

	exposure := make(map[string]float64)
	for rows.Next() {
		var slug string
		var total float64
		if err := rows.Scan(&slug, &total); err != nil {
			return nil, fmt.Errorf("storage.OpenExposure: scan: %w", err)
		}
		exposure[slug] = total
	}
	return exposure, rows.Err()
}

// DailyAggregate devuelve la fila del día. found=false si no existe.
func (s *SQLiteStore) DailyAggregate(ctx context.Context, date string) (domain.DailyAggregate, bool, error) {
	agg := domain.DailyAggregate{Date: date}
	err := s.db.QueryRowContext(ctx,
		`SELECT realized_pnl, trades_count FROM daily_pnl WHERE date = ?`, date,
	).Scan(&agg.RealizedPnL, &agg.TradesCount)
	if err == sql.ErrNoRows {
		return domain.DailyAggregate{}, false, nil
	}
	if err != nil {
		return domain.DailyAggregate{}, false, fmt.Errorf("storage.DailyAggregate %s: %w", date, err)
	}
	return agg, true, nil
}

// SaveDailyAggregate hace upsert completo de la fila del día.
func (s *SQLiteStore) SaveDailyAggregate(ctx context.Context, agg domain.DailyAggregate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_pnl (date, realized_pnl, trades_count)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			realized_pnl = excluded.realized_pnl,
			trades_count = excluded.trades_count
	`, agg.Date, agg.RealizedPnL, agg.TradesCount)
	if err != nil {
		return fmt.Errorf("storage.SaveDailyAggregate %s: %w", agg.Date, err)
	}
	return nil
}

// AddDailyPnL suma pnl al realized_pnl del día. Upsert aditivo: no pisa
// el trades_count que mantiene el copier.
func (s *SQLiteStore) AddDailyPnL(ctx context.Context, date string, pnl float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_pnl (date, realized_pnl, trades_count)
		VALUES (?, ?, 0)
		ON CONFLICT(date) DO UPDATE SET
			realized_pnl = realized_pnl + excluded.realized_pnl
	`, date, pnl)
	if err != nil {
		return fmt.Errorf("storage.AddDailyPnL %s: %w", date, err)
	}
	return nil
}

// WhaleTradesSince devuelve trades del watcher para las wallets dadas,
// con created_at posterior a since, en orden de llegada.
func (s *SQLiteStore) WhaleTradesSince(ctx context.Context, wallets []string, since time.Time, limit int) ([]domain.WhaleTrade, error) {
	if len(wallets) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(wallets))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(wallets)+2)
	for _, w := range wallets {
		args = append(args, strings.ToLower(strings.TrimSpace(w)))
	}
	args = append(args, fmtTime(since), limit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, wallet, market_slug, market_question, side, outcome,
		       size_usd, price, timestamp, created_at
		FROM whale_trades
		WHERE wallet IN (%s) AND created_at > ?
		ORDER BY created_at ASC
		LIMIT ?
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("storage.WhaleTradesSince: query: %w", err)
	}
	defer rows.Close()

	var out []domain.WhaleTrade
	for rows.Next() {
		var t domain.WhaleTrade
		var side, ts, created string
		if err := rows.Scan(&t.ID, &t.Wallet, &t.MarketSlug, &t.MarketQuestion,
			&side, &t.Outcome, &t.SizeUSD, &t.Price, &ts, &created); err != nil {
			return nil, fmt.Errorf("storage.WhaleTradesSince: scan: %w", err)
		}
		t.Side = domain.Side(side)
		t.Timestamp = parseTime(ts)
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveWhaleTrade persiste un trade del watcher. Idempotente por id.
func (s *SQLiteStore) SaveWhaleTrade(ctx context.Context, t domain.WhaleTrade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO whale_trades
			(id, wallet, market_slug, market_question, side, outcome,
			 size_usd, price, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, strings.ToLower(strings.TrimSpace(t.Wallet)), t.MarketSlug,
		t.MarketQuestion, string(t.Side), t.Outcome, t.SizeUSD, t.Price,
		fmtTime(t.Timestamp), fmtTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveWhaleTrade %s: %w", t.ID, err)
	}
	return nil
}

// SyncTrackedWallets reemplaza la lista completa de targets publicados.
func (s *SQLiteStore) SyncTrackedWallets(ctx context.Context, targets []domain.WhaleTarget) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SyncTrackedWallets: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_wallets`); err != nil {
		return fmt.Errorf("storage.SyncTrackedWallets: clear: %w", err)
	}

	now := fmtTime(time.Now())
	for _, t := range targets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tracked_wallets (address, label, categories, updated_at)
			VALUES (?, ?, ?, ?)
		`, strings.ToLower(strings.TrimSpace(t.Address)), t.Label,
			strings.Join(t.Categories, ","), now); err != nil {
			return fmt.Errorf("storage.SyncTrackedWallets: insert %s: %w", t.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SyncTrackedWallets: commit: %w", err)
	}
	return nil
}

// LifetimeStats calcula el resumen histórico para el reporte.
func (s *SQLiteStore) LifetimeStats(ctx context.Context) (domain.LifetimeStats, error) {
	stats := domain.LifetimeStats{ByStatus: make(map[domain.CopyStatus]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM replica_trades GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("storage.LifetimeStats: by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("storage.LifetimeStats: scan: %w", err)
		}
		stats.ByStatus[domain.CopyStatus(status)] = n
		stats.TotalReplicas += n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN LOWER(TRIM(outcome)) = LOWER(TRIM(resolved_outcome)) THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(pnl), 0)
		FROM replica_trades
		WHERE resolved_at IS NOT NULL
	`).Scan(&stats.Resolved, &stats.Wins, &stats.RealizedPnL)
	if err != nil {
		return stats, fmt.Errorf("storage.LifetimeStats: resolved: %w", err)
	}
	stats.Losses = stats.Resolved - stats.Wins

	return stats, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoffResolved := fmtTime(time.Now().Add(-retentionResolved))
	cutoffWhales := fmtTime(time.Now().Add(-retentionWhales))
	s.db.ExecContext(ctx, `DELETE FROM replica_trades WHERE resolved_at IS NOT NULL AND resolved_at < ?`, cutoffResolved)
	s.db.ExecContext(ctx, `DELETE FROM whale_trades WHERE created_at < ?`, cutoffWhales)
}

// scanReplica lee una fila completa de replica_trades.
func scanReplica(rows *sql.Rows) (domain.ReplicaTrade, error) {
	var r domain.ReplicaTrade
	var side, status, created string
	var resolvedAt, filledAt sql.NullString

	if err := rows.Scan(&r.ID, &r.SourceTradeID, &r.SourceLabel, &r.SourceAddress,
		&r.MarketSlug, &r.MarketQuestion, &side, &r.Outcome, &r.SizeUSD,
		&r.Price, &status, &r.ErrorMessage, &r.OrderID, &r.ResolvedOutcome,
		&r.PnL, &resolvedAt, &created, &filledAt); err != nil {
		return r, fmt.Errorf("scan replica: %w", err)
	}

	r.Side = domain.Side(side)
	r.Status = domain.CopyStatus(status)
	r.CreatedAt = parseTime(created)
	r.ResolvedAt = parseNullTime(resolvedAt)
	r.FilledAt = parseNullTime(filledAt)
	return r, nil
}

// Timestamps de ancho fijo: RFC3339Nano recorta ceros finales en la
// fracción, y con longitudes distintas el orden como texto se rompe
// ("...00.4Z" > "...00.45Z" porque 'Z' > '5'). Con los 9 dígitos
// siempre presentes, < y > funcionan directamente en SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}
