package core

import "time"

// OverviewStats is the aggregate snapshot for the current filter state.
// It is produced by the external source per request and replaced wholesale
// on every fetch; UpdatedAt marks freshness.
type OverviewStats struct {
	InvoiceCount     int64
	TotalCents       int64
	PaidCents        int64
	OutstandingCents int64
	OverdueCount     int64
	AverageCents     int64
	UpdatedAt        time.Time
}

// MonthlyTrend is one chronological point of the time series, with
// Period formatted as "2006-01".
type MonthlyTrend struct {
	Period     string
	Count      int64
	TotalCents int64
	PaidCents  int64
}

// CategoryStat is the flat per-category breakdown. Share is the fraction
// of the filtered total, in [0,1].
type CategoryStat struct {
	Category   string
	Count      int64
	TotalCents int64
	Share      float64
}

// HierarchicalStat groups subcategory stats under their parent category.
type HierarchicalStat struct {
	Category   string
	Count      int64
	TotalCents int64
	Children   []CategoryStat
}
