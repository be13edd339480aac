package storage

import (
	"context"
	"fmt"
	"time"

	"fatture/internal/core"
)

// MirrorSource computes the dashboard datasets from the local mirror
// instead of the platform. Aggregates run as SQL over the mirrored rows,
// so the dashboard stays usable when the platform is slow or unreachable.
// Row-level security does not apply locally; every query is scoped by the
// principal's user id.
type MirrorSource struct {
	repo *SQLiteRepository
	now  func() time.Time
}

func NewMirrorSource(repo *SQLiteRepository) *MirrorSource {
	return &MirrorSource{repo: repo, now: time.Now}
}

func (m *MirrorSource) Overview(ctx context.Context, p core.Principal, f core.FilterState) (core.OverviewStats, error) {
	if err := p.Validate(); err != nil {
		return core.OverviewStats{}, err
	}
	now := m.now()
	where, args := filterClause(p.UserID, f, now)

	query := `SELECT
			COUNT(*),
			COALESCE(SUM(amount_cents), 0),
			COALESCE(SUM(CASE WHEN status = 'paid' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status NOT IN ('paid', 'cancelled') THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN due_date < ? AND status NOT IN ('paid', 'cancelled', 'draft') THEN 1 ELSE 0 END), 0)
		FROM invoices WHERE ` + where

	queryArgs := append([]any{now.Format(dateLayout)}, args...)

	var stats core.OverviewStats
	err := m.repo.db.QueryRowContext(ctx, query, queryArgs...).Scan(
		&stats.InvoiceCount, &stats.TotalCents, &stats.PaidCents,
		&stats.OutstandingCents, &stats.OverdueCount)
	if err != nil {
		return core.OverviewStats{}, fmt.Errorf("mirror overview: %w", err)
	}

	if stats.InvoiceCount > 0 {
		stats.AverageCents = stats.TotalCents / stats.InvoiceCount
	}
	stats.UpdatedAt = now
	return stats, nil
}

func (m *MirrorSource) MonthlyTrends(ctx context.Context, p core.Principal, f core.FilterState) ([]core.MonthlyTrend, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	where, args := filterClause(p.UserID, f, m.now())

	query := `SELECT
			substr(issue_date, 1, 7),
			COUNT(*),
			COALESCE(SUM(amount_cents), 0),
			COALESCE(SUM(CASE WHEN status = 'paid' THEN amount_cents ELSE 0 END), 0)
		FROM invoices WHERE ` + where + `
		GROUP BY substr(issue_date, 1, 7)
		ORDER BY substr(issue_date, 1, 7)`

	rows, err := m.repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mirror monthly trends: %w", err)
	}
	defer rows.Close()

	var trends []core.MonthlyTrend
	for rows.Next() {
		var t core.MonthlyTrend
		if err := rows.Scan(&t.Period, &t.Count, &t.TotalCents, &t.PaidCents); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

func (m *MirrorSource) CategoryStats(ctx context.Context, p core.Principal, f core.FilterState) ([]core.CategoryStat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	where, args := filterClause(p.UserID, f, m.now())

	query := `SELECT category, COUNT(*), COALESCE(SUM(amount_cents), 0)
		FROM invoices WHERE ` + where + `
		GROUP BY category
		ORDER BY SUM(amount_cents) DESC`

	rows, err := m.repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mirror category stats: %w", err)
	}
	defer rows.Close()

	var cats []core.CategoryStat
	var grandTotal int64
	for rows.Next() {
		var c core.CategoryStat
		if err := rows.Scan(&c.Category, &c.Count, &c.TotalCents); err != nil {
			return nil, fmt.Errorf("scan category stat: %w", err)
		}
		grandTotal += c.TotalCents
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if grandTotal > 0 {
		for i := range cats {
			cats[i].Share = float64(cats[i].TotalCents) / float64(grandTotal)
		}
	}
	return cats, nil
}

func (m *MirrorSource) HierarchicalStats(ctx context.Context, p core.Principal, f core.FilterState) ([]core.HierarchicalStat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	where, args := filterClause(p.UserID, f, m.now())

	query := `SELECT category, subcategory, COUNT(*), COALESCE(SUM(amount_cents), 0)
		FROM invoices WHERE ` + where + `
		GROUP BY category, subcategory
		ORDER BY category, SUM(amount_cents) DESC`

	rows, err := m.repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mirror hierarchical stats: %w", err)
	}
	defer rows.Close()

	var out []core.HierarchicalStat
	index := make(map[string]int)
	for rows.Next() {
		var category, subcategory string
		var count, total int64
		if err := rows.Scan(&category, &subcategory, &count, &total); err != nil {
			return nil, fmt.Errorf("scan hierarchical stat: %w", err)
		}

		i, ok := index[category]
		if !ok {
			i = len(out)
			index[category] = i
			out = append(out, core.HierarchicalStat{Category: category})
		}
		out[i].Count += count
		out[i].TotalCents += total
		if subcategory != "" {
			out[i].Children = append(out[i].Children, core.CategoryStat{
				Category:   subcategory,
				Count:      count,
				TotalCents: total,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].TotalCents <= 0 {
			continue
		}
		for j := range out[i].Children {
			out[i].Children[j].Share = float64(out[i].Children[j].TotalCents) / float64(out[i].TotalCents)
		}
	}
	return out, nil
}

func (m *MirrorSource) Invoices(ctx context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return m.repo.ListInvoices(ctx, p.UserID, f, m.now())
}
