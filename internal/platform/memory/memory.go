// Package memory is an in-process platform used by the demo backend and
// in tests. It holds invoices and e-mail configurations per user and
// computes the dashboard datasets over them with the same semantics as
// the real sources.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fatture/internal/core"
)

type Store struct {
	mu       sync.Mutex
	invoices []core.Invoice
	configs  []core.EmailConfig
	seq      int
	now      func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewFromFiles loads seed invoices from base/seed_invoices.json when the
// file exists, otherwise seeds a small demo dataset for the given user.
func NewFromFiles(base, userID string) *Store {
	s := New()
	if seeded := s.loadSeedFile(filepath.Join(base, "seed_invoices.json"), userID); !seeded {
		s.invoices = demoInvoices(userID, s.now())
		s.seq = len(s.invoices)
	}
	return s
}

type seedInvoice struct {
	Number      string `json:"number"`
	Counterpart string `json:"counterpart"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Type        string `json:"invoice_type"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
	IssueDate   string `json:"issue_date"`
	DueDate     string `json:"due_date"`
}

func (s *Store) loadSeedFile(path, userID string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var seeds []seedInvoice
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return false
	}
	now := s.now()
	for _, sd := range seeds {
		issue, err1 := time.Parse("2006-01-02", sd.IssueDate)
		due, err2 := time.Parse("2006-01-02", sd.DueDate)
		if err1 != nil || err2 != nil {
			continue
		}
		s.seq++
		s.invoices = append(s.invoices, core.Invoice{
			ID:          fmt.Sprintf("mem-%d", s.seq),
			UserID:      userID,
			Number:      sd.Number,
			Counterpart: sd.Counterpart,
			Category:    sd.Category,
			Subcategory: sd.Subcategory,
			Type:        core.InvoiceType(sd.Type),
			Status:      core.InvoiceStatus(sd.Status),
			Amount:      core.Money{Cents: sd.AmountCents},
			IssueDate:   issue,
			DueDate:     due,
			UpdatedAt:   now,
		})
	}
	return len(s.invoices) > 0
}

// demoInvoices spreads a handful of invoices over the last six months so
// the dashboard has something to show out of the box.
func demoInvoices(userID string, now time.Time) []core.Invoice {
	type row struct {
		number, counterpart, category, subcategory string
		typ                                        core.InvoiceType
		status                                     core.InvoiceStatus
		cents                                      int64
		monthsAgo                                  int
	}
	rows := []row{
		{"2026-001", "Rossi SRL", "consulting", "development", core.TypeIssued, core.StatusPaid, 250000, 5},
		{"2026-002", "Bianchi & Co", "consulting", "training", core.TypeIssued, core.StatusPaid, 120000, 4},
		{"2026-003", "Verdi SPA", "products", "licenses", core.TypeIssued, core.StatusSent, 90000, 3},
		{"2026-004", "Rossi SRL", "consulting", "development", core.TypeIssued, core.StatusSent, 180000, 2},
		{"2026-005", "Hosting SRL", "services", "hosting", core.TypeReceived, core.StatusPaid, 4500, 1},
		{"2026-006", "Neri SNC", "products", "hardware", core.TypeIssued, core.StatusDraft, 60000, 0},
	}

	out := make([]core.Invoice, 0, len(rows))
	for i, r := range rows {
		issue := now.AddDate(0, -r.monthsAgo, 0)
		out = append(out, core.Invoice{
			ID:          fmt.Sprintf("mem-%d", i+1),
			UserID:      userID,
			Number:      r.number,
			Counterpart: r.counterpart,
			Category:    r.category,
			Subcategory: r.subcategory,
			Type:        r.typ,
			Status:      r.status,
			Amount:      core.Money{Cents: r.cents},
			IssueDate:   issue,
			DueDate:     issue.AddDate(0, 1, 0),
			UpdatedAt:   now,
		})
	}
	return out
}

func (s *Store) List(_ context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filtered(p.UserID, f), nil
}

func (s *Store) Create(_ context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error) {
	if err := p.Validate(); err != nil {
		return core.Invoice{}, err
	}
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	inv.ID = fmt.Sprintf("mem-%d", s.seq)
	inv.UserID = p.UserID
	inv.UpdatedAt = s.now()
	s.invoices = append(s.invoices, inv)
	return inv, nil
}

func (s *Store) Update(_ context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error) {
	if err := p.Validate(); err != nil {
		return core.Invoice{}, err
	}
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invoices {
		if s.invoices[i].ID == inv.ID && s.invoices[i].UserID == p.UserID {
			inv.UserID = p.UserID
			inv.UpdatedAt = s.now()
			s.invoices[i] = inv
			return inv, nil
		}
	}
	return core.Invoice{}, fmt.Errorf("invoice %s not found", inv.ID)
}

func (s *Store) Delete(_ context.Context, p core.Principal, id string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invoices {
		if s.invoices[i].ID == id && s.invoices[i].UserID == p.UserID {
			s.invoices = append(s.invoices[:i], s.invoices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("invoice %s not found", id)
}

func (s *Store) ListEmailConfigs(_ context.Context, p core.Principal) ([]core.EmailConfig, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.EmailConfig
	for _, c := range s.configs {
		if c.UserID == p.UserID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateEmailConfig(_ context.Context, p core.Principal, cfg core.EmailConfig) (core.EmailConfig, error) {
	if err := p.Validate(); err != nil {
		return core.EmailConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return core.EmailConfig{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cfg.ID = fmt.Sprintf("mem-%d", s.seq)
	cfg.UserID = p.UserID
	cfg.UpdatedAt = s.now()
	s.configs = append(s.configs, cfg)
	return cfg, nil
}

func (s *Store) UpdateEmailConfig(_ context.Context, p core.Principal, cfg core.EmailConfig) (core.EmailConfig, error) {
	if err := p.Validate(); err != nil {
		return core.EmailConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return core.EmailConfig{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.configs {
		if s.configs[i].ID == cfg.ID && s.configs[i].UserID == p.UserID {
			cfg.UserID = p.UserID
			cfg.UpdatedAt = s.now()
			s.configs[i] = cfg
			return cfg, nil
		}
	}
	return core.EmailConfig{}, fmt.Errorf("email config %s not found", cfg.ID)
}

func (s *Store) DeleteEmailConfig(_ context.Context, p core.Principal, id string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.configs {
		if s.configs[i].ID == id && s.configs[i].UserID == p.UserID {
			s.configs = append(s.configs[:i], s.configs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("email config %s not found", id)
}

func (s *Store) Overview(_ context.Context, p core.Principal, f core.FilterState) (core.OverviewStats, error) {
	if err := p.Validate(); err != nil {
		return core.OverviewStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var stats core.OverviewStats
	for _, inv := range s.filtered(p.UserID, f) {
		stats.InvoiceCount++
		stats.TotalCents += inv.Amount.Cents
		switch inv.Status {
		case core.StatusPaid:
			stats.PaidCents += inv.Amount.Cents
		case core.StatusCancelled:
		default:
			stats.OutstandingCents += inv.Amount.Cents
		}
		if inv.Overdue(now) {
			stats.OverdueCount++
		}
	}
	if stats.InvoiceCount > 0 {
		stats.AverageCents = stats.TotalCents / stats.InvoiceCount
	}
	stats.UpdatedAt = now
	return stats, nil
}

func (s *Store) MonthlyTrends(_ context.Context, p core.Principal, f core.FilterState) ([]core.MonthlyTrend, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byPeriod := map[string]*core.MonthlyTrend{}
	for _, inv := range s.filtered(p.UserID, f) {
		period := inv.IssueDate.Format("2006-01")
		t, ok := byPeriod[period]
		if !ok {
			t = &core.MonthlyTrend{Period: period}
			byPeriod[period] = t
		}
		t.Count++
		t.TotalCents += inv.Amount.Cents
		if inv.Status == core.StatusPaid {
			t.PaidCents += inv.Amount.Cents
		}
	}

	trends := make([]core.MonthlyTrend, 0, len(byPeriod))
	for _, t := range byPeriod {
		trends = append(trends, *t)
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Period < trends[j].Period })
	return trends, nil
}

func (s *Store) CategoryStats(_ context.Context, p core.Principal, f core.FilterState) ([]core.CategoryStat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byCategory := map[string]*core.CategoryStat{}
	var grandTotal int64
	for _, inv := range s.filtered(p.UserID, f) {
		c, ok := byCategory[inv.Category]
		if !ok {
			c = &core.CategoryStat{Category: inv.Category}
			byCategory[inv.Category] = c
		}
		c.Count++
		c.TotalCents += inv.Amount.Cents
		grandTotal += inv.Amount.Cents
	}

	cats := make([]core.CategoryStat, 0, len(byCategory))
	for _, c := range byCategory {
		if grandTotal > 0 {
			c.Share = float64(c.TotalCents) / float64(grandTotal)
		}
		cats = append(cats, *c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].TotalCents > cats[j].TotalCents })
	return cats, nil
}

func (s *Store) HierarchicalStats(_ context.Context, p core.Principal, f core.FilterState) ([]core.HierarchicalStat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	index := map[string]int{}
	var out []core.HierarchicalStat
	for _, inv := range s.filtered(p.UserID, f) {
		i, ok := index[inv.Category]
		if !ok {
			i = len(out)
			index[inv.Category] = i
			out = append(out, core.HierarchicalStat{Category: inv.Category})
		}
		out[i].Count++
		out[i].TotalCents += inv.Amount.Cents
		if inv.Subcategory == "" {
			continue
		}
		found := false
		for j := range out[i].Children {
			if out[i].Children[j].Category == inv.Subcategory {
				out[i].Children[j].Count++
				out[i].Children[j].TotalCents += inv.Amount.Cents
				found = true
				break
			}
		}
		if !found {
			out[i].Children = append(out[i].Children, core.CategoryStat{
				Category:   inv.Subcategory,
				Count:      1,
				TotalCents: inv.Amount.Cents,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	for i := range out {
		sort.Slice(out[i].Children, func(a, b int) bool {
			return out[i].Children[a].TotalCents > out[i].Children[b].TotalCents
		})
		if out[i].TotalCents <= 0 {
			continue
		}
		for j := range out[i].Children {
			out[i].Children[j].Share = float64(out[i].Children[j].TotalCents) / float64(out[i].TotalCents)
		}
	}
	return out, nil
}

func (s *Store) Invoices(ctx context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error) {
	return s.List(ctx, p, f)
}

// filtered applies the filter state to the user's invoices. Caller holds
// the lock. Results are sorted by issue date, newest first.
func (s *Store) filtered(userID string, f core.FilterState) []core.Invoice {
	start, end := f.DateRange.Bounds(s.now())

	var out []core.Invoice
	for _, inv := range s.invoices {
		if inv.UserID != userID {
			continue
		}
		if start != nil && inv.IssueDate.Before(truncateDay(*start)) {
			continue
		}
		if end != nil && inv.IssueDate.After(endOfDay(*end)) {
			continue
		}
		if !matchSet(f.Categories, inv.Category) {
			continue
		}
		if !matchSet(f.InvoiceTypes, string(inv.Type)) {
			continue
		}
		if !matchSet(f.Status, string(inv.Status)) {
			continue
		}
		if f.AmountRange.MinCents != nil && inv.Amount.Cents < *f.AmountRange.MinCents {
			continue
		}
		if f.AmountRange.MaxCents != nil && inv.Amount.Cents > *f.AmountRange.MaxCents {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.After(out[j].IssueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// matchSet treats an empty set as no restriction.
func matchSet(set []string, value string) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range set {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
