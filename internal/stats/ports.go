// Package stats fetches the dashboard's five datasets for a filter state
// and keeps a consistent snapshot per user session. Fetches run
// concurrently; a newer filter state supersedes any batch still in flight.
package stats

import (
	"context"
	"time"

	"fatture/internal/core"
)

// Datasets is one coherent batch: all five datasets computed from the same
// filter state. It is replaced wholesale, never merged.
type Datasets struct {
	Overview   core.OverviewStats
	Trends     []core.MonthlyTrend
	Categories []core.CategoryStat
	Hierarchy  []core.HierarchicalStat
	Invoices   []core.Invoice
}

// DataSource produces the five datasets. Every call carries the caller's
// principal explicitly; implementations must scope results to that user.
type DataSource interface {
	Overview(ctx context.Context, p core.Principal, f core.FilterState) (core.OverviewStats, error)
	MonthlyTrends(ctx context.Context, p core.Principal, f core.FilterState) ([]core.MonthlyTrend, error)
	CategoryStats(ctx context.Context, p core.Principal, f core.FilterState) ([]core.CategoryStat, error)
	HierarchicalStats(ctx context.Context, p core.Principal, f core.FilterState) ([]core.HierarchicalStat, error)
	Invoices(ctx context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error)
}

// Snapshot is what the dashboard renders: the latest complete batch plus
// loading and error state. A failed refresh keeps the previous datasets so
// the page never goes blank.
type Snapshot struct {
	Filters    core.FilterState
	Data       Datasets
	Loading    bool
	Err        error
	Generation uint64
	UpdatedAt  time.Time
}
