package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fatture/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedInvoices() []core.Invoice {
	paid := time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC)
	return []core.Invoice{
		{
			ID: "inv-1", UserID: "u1", Number: "2026/001", Counterpart: "ACME",
			Category: "consulting", Subcategory: "development",
			Type: core.TypeIssued, Status: core.StatusPaid,
			Amount: core.Money{Cents: 60000},
			IssueDate: date(2026, 6, 1), DueDate: date(2026, 7, 1),
			PaidAt: &paid, UpdatedAt: paid,
		},
		{
			ID: "inv-2", UserID: "u1", Number: "2026/002", Counterpart: "Beta Srl",
			Category: "consulting", Subcategory: "training",
			Type: core.TypeIssued, Status: core.StatusSent,
			Amount: core.Money{Cents: 20000},
			IssueDate: date(2026, 7, 15), DueDate: date(2026, 8, 15),
			UpdatedAt: date(2026, 7, 15),
		},
		{
			ID: "inv-3", UserID: "u1", Number: "2026/003", Counterpart: "Gamma",
			Category: "products", Type: core.TypeIssued, Status: core.StatusSent,
			Amount: core.Money{Cents: 20000},
			IssueDate: date(2026, 2, 1), DueDate: date(2026, 3, 1),
			UpdatedAt: date(2026, 2, 1),
		},
	}
}

func TestReplaceUserInvoicesIsWholesale(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := date(2026, 8, 28)
	all := core.FilterState{DateRange: core.DateRange{Preset: core.PresetAll}}

	if err := repo.ReplaceUserInvoices(ctx, "u1", seedInvoices()); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	// A second replace with fewer rows must drop the old ones.
	if err := repo.ReplaceUserInvoices(ctx, "u1", seedInvoices()[:1]); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := repo.ListInvoices(ctx, "u1", all, now)
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(got) != 1 || got[0].ID != "inv-1" {
		t.Errorf("got %d invoices, want 1 (inv-1)", len(got))
	}
	if got[0].PaidAt == nil {
		t.Error("paid_at not round-tripped")
	}

	syncedAt, err := repo.LastSyncedAt(ctx, "u1")
	if err != nil {
		t.Fatalf("LastSyncedAt: %v", err)
	}
	if syncedAt.IsZero() {
		t.Error("sync state not recorded")
	}
}

func TestListInvoicesAppliesFilters(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := date(2026, 8, 28)

	if err := repo.ReplaceUserInvoices(ctx, "u1", seedInvoices()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	min := int64(30000)

	tests := []struct {
		name    string
		filters core.FilterState
		wantIDs []string
	}{
		{
			name:    "six month preset drops february invoice",
			filters: core.DefaultFilters(),
			wantIDs: []string{"inv-2", "inv-1"},
		},
		{
			name: "category filter",
			filters: core.FilterState{
				DateRange:  core.DateRange{Preset: core.PresetAll},
				Categories: []string{"products"},
			},
			wantIDs: []string{"inv-3"},
		},
		{
			name: "status and amount filter",
			filters: core.FilterState{
				DateRange:   core.DateRange{Preset: core.PresetAll},
				Status:      []string{"paid"},
				AmountRange: core.AmountRange{MinCents: &min},
			},
			wantIDs: []string{"inv-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListInvoices(ctx, "u1", tt.filters, now)
			if err != nil {
				t.Fatalf("ListInvoices: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d invoices, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("invoice[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestListInvoicesScopedByUser(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	all := core.FilterState{DateRange: core.DateRange{Preset: core.PresetAll}}

	if err := repo.ReplaceUserInvoices(ctx, "u1", seedInvoices()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := repo.ListInvoices(ctx, "u2", all, date(2026, 8, 28))
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("user u2 sees %d of u1's invoices", len(got))
	}
}

func TestListOverdueInvoices(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceUserInvoices(ctx, "u1", seedInvoices()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	// inv-1 is paid, inv-2 is due in the future, inv-3 is overdue.
	got, err := repo.ListOverdueInvoices(ctx, date(2026, 8, 1))
	if err != nil {
		t.Fatalf("ListOverdueInvoices: %v", err)
	}
	if len(got) != 1 || got[0].ID != "inv-3" {
		t.Errorf("overdue = %+v, want only inv-3", got)
	}
}

func TestReminderLogRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	last, err := repo.LastReminder(ctx, "inv-1", "cfg-1")
	if err != nil {
		t.Fatalf("LastReminder: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("expected zero time before any reminder, got %v", last)
	}

	first := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	second := time.Date(2026, 8, 8, 8, 0, 0, 0, time.UTC)
	if err := repo.RecordReminder(ctx, "inv-1", "cfg-1", first); err != nil {
		t.Fatalf("RecordReminder: %v", err)
	}
	if err := repo.RecordReminder(ctx, "inv-1", "cfg-1", second); err != nil {
		t.Fatalf("RecordReminder: %v", err)
	}

	last, err = repo.LastReminder(ctx, "inv-1", "cfg-1")
	if err != nil {
		t.Fatalf("LastReminder: %v", err)
	}
	if !last.Equal(second) {
		t.Errorf("last reminder = %v, want %v", last, second)
	}
}

func TestEmailConfigMirrorRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	configs := []core.EmailConfig{{
		ID: "cfg-1", UserID: "u1", Name: "Solleciti",
		FromAddress: "billing@example.com", Subject: "Sollecito",
		Body: "La fattura risulta scaduta.", Cadence: core.CadenceWeekly,
		Active: true, UpdatedAt: date(2026, 8, 1),
	}}
	if err := repo.ReplaceUserEmailConfigs(ctx, "u1", configs); err != nil {
		t.Fatalf("ReplaceUserEmailConfigs: %v", err)
	}

	got, err := repo.ListEmailConfigs(ctx, "u1")
	if err != nil {
		t.Fatalf("ListEmailConfigs: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d configs, want 1", len(got))
	}
	if got[0].Cadence != core.CadenceWeekly || !got[0].Active {
		t.Errorf("config = %+v", got[0])
	}
}
