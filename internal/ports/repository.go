package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"quantEngine/internal/domain"
)

// RunSummary identifies a stored backtest run.
type RunSummary struct {
	ID           string
	Strategy     string
	StartTime    time.Time
	EndTime      time.Time
	StartingCash decimal.Decimal
	FinalEquity  decimal.Decimal
	CreatedAt    time.Time
}

// EquitySample is one point of a stored equity curve.
type EquitySample struct {
	Time  time.Time
	Value decimal.Decimal
}

// StatisticRow is one stored statistic; Period is a year or "Overall".
type StatisticRow struct {
	Period string
	Name   string
	Value  decimal.Decimal
}

// RunRepository persists completed backtest runs.
type RunRepository interface {
	// SaveRun stores the run header. The ID must be unique.
	SaveRun(ctx context.Context, run RunSummary) error
	// SaveOrders stores the run's processed orders.
	SaveOrders(ctx context.Context, runID string, orders []domain.Order) error
	// SaveTrades stores the run's realized trade records.
	SaveTrades(ctx context.Context, runID string, trades []domain.TradeRecord) error
	// SaveEquity stores the sampled equity curve.
	SaveEquity(ctx context.Context, runID string, samples []EquitySample) error
	// SaveStatistics stores the statistics table rows.
	SaveStatistics(ctx context.Context, runID string, rows []StatisticRow) error
	// FindRun retrieves a run header. Returns ErrNotFound if missing.
	FindRun(ctx context.Context, runID string) (*RunSummary, error)
	// ListRuns retrieves run headers, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	// LoadStatistics retrieves the statistics rows of a run.
	LoadStatistics(ctx context.Context, runID string) ([]StatisticRow, error)
	// LoadTrades retrieves the trade records of a run ordered by time.
	LoadTrades(ctx context.Context, runID string) ([]domain.TradeRecord, error)
}
