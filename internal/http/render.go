package http

import (
	"bytes"
	"fmt"

	"fatture/internal/stats"
)

// Template data for the dataset partials. Money is pre-formatted so the
// templates stay purely presentational.
type (
	overviewData struct {
		InvoiceCount int64
		Total        string
		Paid         string
		Outstanding  string
		OverdueCount int64
		Average      string
		UpdatedAt    string
		Stale        bool
	}

	trendRow struct {
		Period string
		Count  int64
		Total  string
		Paid   string
		Width  int
	}

	categoryRowView struct {
		Name   string
		Count  int64
		Amount string
		Share  string
		Width  int
	}

	hierarchyView struct {
		Category string
		Count    int64
		Amount   string
		Children []categoryRowView
	}

	invoiceRowView struct {
		ID          string
		Number      string
		Counterpart string
		Category    string
		Subcategory string
		Type        string
		Status      string
		Amount      string
		IssueDate   string
		DueDate     string
	}
)

// renderPartialHTML renders one dataset section to a string so the
// result can be cached.
func (s *Server) renderPartialHTML(name string, snap stats.Snapshot) (string, error) {
	if s.templates == nil {
		return "", fmt.Errorf("templates not loaded")
	}

	var data any
	switch name {
	case "overview":
		ov := snap.Data.Overview
		data = overviewData{
			InvoiceCount: ov.InvoiceCount,
			Total:        formatEuros(ov.TotalCents),
			Paid:         formatEuros(ov.PaidCents),
			Outstanding:  formatEuros(ov.OutstandingCents),
			OverdueCount: ov.OverdueCount,
			Average:      formatEuros(ov.AverageCents),
			UpdatedAt:    formatUpdatedAt(snap.UpdatedAt),
			Stale:        snap.Err != nil,
		}

	case "trends":
		var maxCents int64
		for _, t := range snap.Data.Trends {
			if t.TotalCents > maxCents {
				maxCents = t.TotalCents
			}
		}
		rows := make([]trendRow, 0, len(snap.Data.Trends))
		for _, t := range snap.Data.Trends {
			rows = append(rows, trendRow{
				Period: t.Period,
				Count:  t.Count,
				Total:  formatEuros(t.TotalCents),
				Paid:   formatEuros(t.PaidCents),
				Width:  barWidth(t.TotalCents, maxCents),
			})
		}
		data = struct{ Rows []trendRow }{rows}

	case "categories":
		var maxCents int64
		for _, c := range snap.Data.Categories {
			if c.TotalCents > maxCents {
				maxCents = c.TotalCents
			}
		}
		rows := make([]categoryRowView, 0, len(snap.Data.Categories))
		for _, c := range snap.Data.Categories {
			rows = append(rows, categoryRowView{
				Name:   c.Category,
				Count:  c.Count,
				Amount: formatEuros(c.TotalCents),
				Share:  formatShare(c.Share),
				Width:  barWidth(c.TotalCents, maxCents),
			})
		}
		data = struct{ Rows []categoryRowView }{rows}

	case "hierarchy":
		groups := make([]hierarchyView, 0, len(snap.Data.Hierarchy))
		for _, h := range snap.Data.Hierarchy {
			g := hierarchyView{
				Category: h.Category,
				Count:    h.Count,
				Amount:   formatEuros(h.TotalCents),
			}
			for _, c := range h.Children {
				g.Children = append(g.Children, categoryRowView{
					Name:   c.Category,
					Count:  c.Count,
					Amount: formatEuros(c.TotalCents),
					Share:  formatShare(c.Share),
					Width:  barWidth(c.TotalCents, h.TotalCents),
				})
			}
			groups = append(groups, g)
		}
		data = struct{ Groups []hierarchyView }{groups}

	case "invoices":
		rows := make([]invoiceRowView, 0, len(snap.Data.Invoices))
		for _, inv := range snap.Data.Invoices {
			rows = append(rows, invoiceRowView{
				ID:          inv.ID,
				Number:      inv.Number,
				Counterpart: inv.Counterpart,
				Category:    inv.Category,
				Subcategory: inv.Subcategory,
				Type:        string(inv.Type),
				Status:      string(inv.Status),
				Amount:      formatEuros(inv.Amount.Cents),
				IssueDate:   inv.IssueDate.Format("02/01/2006"),
				DueDate:     inv.DueDate.Format("02/01/2006"),
			})
		}
		data = struct{ Rows []invoiceRowView }{rows}

	default:
		return "", fmt.Errorf("unknown partial %q", name)
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("execute %s.html: %w", name, err)
	}
	return buf.String(), nil
}

// barWidth scales a value against the row maximum as a rounded percent,
// clamped so tiny values stay visible.
func barWidth(cents, maxCents int64) int {
	if maxCents <= 0 || cents <= 0 {
		return 0
	}
	width := int((cents*100 + maxCents/2) / maxCents)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
