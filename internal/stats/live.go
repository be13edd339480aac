package stats

import (
	"context"
	"fmt"
	"time"

	"fatture/internal/core"
	"fatture/internal/invoices"
	"fatture/internal/supabase"
)

const dateLayout = "2006-01-02"

// LiveSource computes aggregates server-side through the platform's RPC
// functions and loads the detailed rows through the repository. The four
// aggregate functions share a parameter shape so the platform can reuse a
// single filtered CTE.
type LiveSource struct {
	db   *supabase.DatabaseClient
	repo *invoices.Repository
	now  func() time.Time
}

func NewLiveSource(client *supabase.Client) *LiveSource {
	return &LiveSource{
		db:   client.Database(),
		repo: invoices.NewRepository(client),
		now:  time.Now,
	}
}

// rpcParams mirrors the arguments of the invoice_stats_* functions. Nil
// means "no restriction"; the functions treat empty arrays the same way.
type rpcParams struct {
	UserID     string   `json:"p_user_id"`
	StartDate  *string  `json:"p_start_date"`
	EndDate    *string  `json:"p_end_date"`
	Categories []string `json:"p_categories"`
	Types      []string `json:"p_types"`
	Statuses   []string `json:"p_statuses"`
	MinCents   *int64   `json:"p_min_cents"`
	MaxCents   *int64   `json:"p_max_cents"`
}

func (s *LiveSource) params(p core.Principal, f core.FilterState) rpcParams {
	start, end := f.DateRange.Bounds(s.now())

	out := rpcParams{
		UserID:     p.UserID,
		Categories: f.Categories,
		Types:      f.InvoiceTypes,
		Statuses:   f.Status,
		MinCents:   f.AmountRange.MinCents,
		MaxCents:   f.AmountRange.MaxCents,
	}
	if start != nil {
		v := start.Format(dateLayout)
		out.StartDate = &v
	}
	if end != nil {
		v := end.Format(dateLayout)
		out.EndDate = &v
	}
	return out
}

type overviewRow struct {
	InvoiceCount     int64 `json:"invoice_count"`
	TotalCents       int64 `json:"total_cents"`
	PaidCents        int64 `json:"paid_cents"`
	OutstandingCents int64 `json:"outstanding_cents"`
	OverdueCount     int64 `json:"overdue_count"`
	AverageCents     int64 `json:"average_cents"`
}

func (s *LiveSource) Overview(ctx context.Context, p core.Principal, f core.FilterState) (core.OverviewStats, error) {
	if err := p.Validate(); err != nil {
		return core.OverviewStats{}, err
	}

	var rows []overviewRow
	if err := s.db.RPC(ctx, "invoice_stats_overview", s.params(p, f), p.AccessToken, &rows); err != nil {
		return core.OverviewStats{}, fmt.Errorf("overview stats: %w", err)
	}
	if len(rows) == 0 {
		return core.OverviewStats{UpdatedAt: s.now()}, nil
	}

	r := rows[0]
	return core.OverviewStats{
		InvoiceCount:     r.InvoiceCount,
		TotalCents:       r.TotalCents,
		PaidCents:        r.PaidCents,
		OutstandingCents: r.OutstandingCents,
		OverdueCount:     r.OverdueCount,
		AverageCents:     r.AverageCents,
		UpdatedAt:        s.now(),
	}, nil
}

type trendRow struct {
	Period     string `json:"period"`
	Count      int64  `json:"invoice_count"`
	TotalCents int64  `json:"total_cents"`
	PaidCents  int64  `json:"paid_cents"`
}

func (s *LiveSource) MonthlyTrends(ctx context.Context, p core.Principal, f core.FilterState) ([]core.MonthlyTrend, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var rows []trendRow
	if err := s.db.RPC(ctx, "invoice_stats_monthly", s.params(p, f), p.AccessToken, &rows); err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}

	trends := make([]core.MonthlyTrend, 0, len(rows))
	for _, r := range rows {
		if len(r.Period) < 7 {
			continue
		}
		trends = append(trends, core.MonthlyTrend{
			Period:     r.Period[:7],
			Count:      r.Count,
			TotalCents: r.TotalCents,
			PaidCents:  r.PaidCents,
		})
	}
	return trends, nil
}

type categoryRow struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Count       int64  `json:"invoice_count"`
	TotalCents  int64  `json:"total_cents"`
}

func (s *LiveSource) CategoryStats(ctx context.Context, p core.Principal, f core.FilterState) ([]core.CategoryStat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var rows []categoryRow
	if err := s.db.RPC(ctx, "invoice_stats_categories", s.params(p, f), p.AccessToken, &rows); err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}

	var grandTotal int64
	for _, r := range rows {
		grandTotal += r.TotalCents
	}

	cats := make([]core.CategoryStat, 0, len(rows))
	for _, r := range rows {
		stat := core.CategoryStat{
			Category:   r.Category,
			Count:      r.Count,
			TotalCents: r.TotalCents,
		}
		if grandTotal > 0 {
			stat.Share = float64(r.TotalCents) / float64(grandTotal)
		}
		cats = append(cats, stat)
	}
	return cats, nil
}

func (s *LiveSource) HierarchicalStats(ctx context.Context, p core.Principal, f core.FilterState) ([]core.HierarchicalStat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var rows []categoryRow
	if err := s.db.RPC(ctx, "invoice_stats_hierarchy", s.params(p, f), p.AccessToken, &rows); err != nil {
		return nil, fmt.Errorf("hierarchical stats: %w", err)
	}
	return buildHierarchy(rows), nil
}

// buildHierarchy groups per-subcategory rows under their parent category,
// preserving the server's ordering. Child shares are relative to the parent.
func buildHierarchy(rows []categoryRow) []core.HierarchicalStat {
	var out []core.HierarchicalStat
	index := make(map[string]int)

	for _, r := range rows {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, core.HierarchicalStat{Category: r.Category})
		}
		out[i].Count += r.Count
		out[i].TotalCents += r.TotalCents
		if r.Subcategory != "" {
			out[i].Children = append(out[i].Children, core.CategoryStat{
				Category:   r.Subcategory,
				Count:      r.Count,
				TotalCents: r.TotalCents,
			})
		}
	}

	for i := range out {
		if out[i].TotalCents <= 0 {
			continue
		}
		for j := range out[i].Children {
			out[i].Children[j].Share = float64(out[i].Children[j].TotalCents) / float64(out[i].TotalCents)
		}
	}
	return out
}

func (s *LiveSource) Invoices(ctx context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error) {
	return s.repo.List(ctx, p, f)
}
