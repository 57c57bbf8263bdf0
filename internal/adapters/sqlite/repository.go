package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver

	"quantEngine/internal/domain"
	"quantEngine/internal/ports"
)

// Repository implements ports.RunRepository using SQLite. Money and price
// columns are stored as decimal strings so values round-trip exactly.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/backtests.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		starting_cash TEXT NOT NULL,
		final_equity TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS orders (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		order_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		type TEXT NOT NULL,
		price TEXT NOT NULL,
		time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		fee TEXT NOT NULL,
		tag TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, order_id)
	);

	CREATE TABLE IF NOT EXISTS trades (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		order_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		time TIMESTAMP NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price TEXT NOT NULL,
		exit_price TEXT NOT NULL,
		pnl TEXT NOT NULL,
		fee TEXT NOT NULL,
		profit_loss TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS equity (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		time TIMESTAMP NOT NULL,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS statistics (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		period TEXT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, period, name)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_run_time ON trades (run_id, time);
	CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity (run_id, time);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveRun stores the run header.
func (r *Repository) SaveRun(ctx context.Context, run ports.RunSummary) error {
	const query = `
	INSERT INTO runs (id, strategy, start_time, end_time, starting_cash, final_equity, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Strategy, run.StartTime.UTC(), run.EndTime.UTC(),
		run.StartingCash.String(), run.FinalEquity.String(), createdAt.UTC())
	if err != nil {
		return translate(err, fmt.Sprintf("insert run %s", run.ID))
	}
	r.logger.Debug(ctx, "Run saved", map[string]interface{}{"runID": run.ID, "strategy": run.Strategy})
	return nil
}

// SaveOrders stores the run's processed orders.
func (r *Repository) SaveOrders(ctx context.Context, runID string, orders []domain.Order) error {
	const query = `
	INSERT INTO orders (run_id, order_id, symbol, quantity, type, price, time, status, fee, tag)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return r.insertBatch(ctx, "orders", query, len(orders), func(i int) []interface{} {
		o := orders[i]
		return []interface{}{runID, o.ID, o.Symbol, o.Quantity, string(o.Type), o.Price.String(),
			o.Time.UTC(), string(o.Status), o.Fee.String(), o.Tag}
	})
}

// SaveTrades stores the run's realized trade records.
func (r *Repository) SaveTrades(ctx context.Context, runID string, trades []domain.TradeRecord) error {
	const query = `
	INSERT INTO trades (run_id, order_id, symbol, time, quantity, entry_price, exit_price, pnl, fee, profit_loss)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return r.insertBatch(ctx, "trades", query, len(trades), func(i int) []interface{} {
		t := trades[i]
		return []interface{}{runID, t.OrderID, t.Symbol, t.Time.UTC(), t.Quantity, t.EntryPrice.String(),
			t.ExitPrice.String(), t.PNL.String(), t.Fee.String(), t.ProfitLoss.String()}
	})
}

// SaveEquity stores the sampled equity curve.
func (r *Repository) SaveEquity(ctx context.Context, runID string, samples []ports.EquitySample) error {
	const query = `INSERT INTO equity (run_id, time, value) VALUES (?, ?, ?)`

	return r.insertBatch(ctx, "equity", query, len(samples), func(i int) []interface{} {
		return []interface{}{runID, samples[i].Time.UTC(), samples[i].Value.String()}
	})
}

// SaveStatistics stores the statistics table rows.
func (r *Repository) SaveStatistics(ctx context.Context, runID string, rows []ports.StatisticRow) error {
	const query = `INSERT INTO statistics (run_id, period, name, value) VALUES (?, ?, ?, ?)`

	return r.insertBatch(ctx, "statistics", query, len(rows), func(i int) []interface{} {
		return []interface{}{runID, rows[i].Period, rows[i].Name, rows[i].Value.String()}
	})
}

// insertBatch executes query once per row inside a single transaction.
func (r *Repository) insertBatch(ctx context.Context, table, query string, n int, args func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(err, "begin "+table+" batch")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return translate(err, "prepare "+table+" insert")
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return translate(err, fmt.Sprintf("insert %s row %d", table, i))
		}
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "commit "+table+" batch")
	}
	r.logger.Debug(ctx, "Batch saved", map[string]interface{}{"table": table, "rows": n})
	return nil
}

// FindRun retrieves a run header by ID.
func (r *Repository) FindRun(ctx context.Context, runID string) (*ports.RunSummary, error) {
	const query = `
	SELECT id, strategy, start_time, end_time, starting_cash, final_equity, created_at
	FROM runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ports.ErrNotFound)
		}
		return nil, translate(err, "query run "+runID)
	}
	return run, nil
}

// ListRuns retrieves run headers, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	const query = `
	SELECT id, strategy, start_time, end_time, starting_cash, final_equity, created_at
	FROM runs ORDER BY created_at DESC, id LIMIT ?`

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, translate(err, "list runs")
	}
	defer rows.Close()

	runs := make([]ports.RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, translate(err, "scan run")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "iterate runs")
	}
	return runs, nil
}

// LoadStatistics retrieves the statistics rows of a run.
func (r *Repository) LoadStatistics(ctx context.Context, runID string) ([]ports.StatisticRow, error) {
	const query = `SELECT period, name, value FROM statistics WHERE run_id = ? ORDER BY period, name`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, translate(err, "query statistics")
	}
	defer rows.Close()

	stats := make([]ports.StatisticRow, 0)
	for rows.Next() {
		var row ports.StatisticRow
		if err := rows.Scan(&row.Period, &row.Name, &row.Value); err != nil {
			return nil, translate(err, "scan statistic")
		}
		stats = append(stats, row)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "iterate statistics")
	}
	return stats, nil
}

// LoadTrades retrieves the trade records of a run ordered by time.
func (r *Repository) LoadTrades(ctx context.Context, runID string) ([]domain.TradeRecord, error) {
	const query = `
	SELECT order_id, symbol, time, quantity, entry_price, exit_price, pnl, fee, profit_loss
	FROM trades WHERE run_id = ? ORDER BY time, order_id`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, translate(err, "query trades")
	}
	defer rows.Close()

	trades := make([]domain.TradeRecord, 0)
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(&t.OrderID, &t.Symbol, &t.Time, &t.Quantity, &t.EntryPrice,
			&t.ExitPrice, &t.PNL, &t.Fee, &t.ProfitLoss); err != nil {
			return nil, translate(err, "scan trade")
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "iterate trades")
	}
	return trades, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*ports.RunSummary, error) {
	run := &ports.RunSummary{}
	err := s.Scan(&run.ID, &run.Strategy, &run.StartTime, &run.EndTime,
		&run.StartingCash, &run.FinalEquity, &run.CreatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	return run, nil
}

// translate maps driver errors onto port errors.
func translate(err error, op string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %s: %v", ports.ErrDuplicateEntry, op, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s: unknown run: %v", ports.ErrNotFound, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ports.ErrQueryFailed, op, err)
}

var _ ports.RunRepository = (*Repository)(nil)
