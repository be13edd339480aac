package http

import (
	"net/url"
	"testing"
	"time"

	"fatture/internal/core"
)

func TestParseFilterForm(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		wantErr bool
		check   func(t *testing.T, f core.FilterState)
	}{
		{
			name: "empty form keeps defaults",
			form: url.Values{},
			check: func(t *testing.T, f core.FilterState) {
				if f.DateRange.Preset != core.PresetLast6Months {
					t.Errorf("preset = %q, want default", f.DateRange.Preset)
				}
				if len(f.Categories) != 0 || len(f.InvoiceTypes) != 0 || len(f.Status) != 0 {
					t.Error("empty form should impose no set restrictions")
				}
			},
		},
		{
			name: "full form",
			form: url.Values{
				"preset":     {"lastyear"},
				"start_date": {"2026-01-01"},
				"end_date":   {"2026-06-30"},
				"categories": {"Sviluppo", "Consulenza"},
				"types":      {"issued"},
				"statuses":   {"sent", "overdue"},
				"min_amount": {"100,50"},
				"max_amount": {"5000"},
			},
			check: func(t *testing.T, f core.FilterState) {
				if f.DateRange.Preset != core.PresetLastYear {
					t.Errorf("preset = %q", f.DateRange.Preset)
				}
				if f.DateRange.StartDate == nil || !f.DateRange.StartDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("start date = %v", f.DateRange.StartDate)
				}
				if len(f.Categories) != 2 {
					t.Errorf("categories = %v", f.Categories)
				}
				if f.AmountRange.MinCents == nil || *f.AmountRange.MinCents != 10050 {
					t.Errorf("min cents = %v", f.AmountRange.MinCents)
				}
				if f.AmountRange.MaxCents == nil || *f.AmountRange.MaxCents != 500000 {
					t.Errorf("max cents = %v", f.AmountRange.MaxCents)
				}
			},
		},
		{
			name: "blank multi-select entries are dropped",
			form: url.Values{"categories": {"  ", "Sviluppo", ""}},
			check: func(t *testing.T, f core.FilterState) {
				if len(f.Categories) != 1 || f.Categories[0] != "Sviluppo" {
					t.Errorf("categories = %v", f.Categories)
				}
			},
		},
		{
			name:    "invalid preset",
			form:    url.Values{"preset": {"yesterday"}},
			wantErr: true,
		},
		{
			name:    "invalid type",
			form:    url.Values{"types": {"proforma"}},
			wantErr: true,
		},
		{
			name:    "invalid status",
			form:    url.Values{"statuses": {"archived"}},
			wantErr: true,
		},
		{
			name:    "malformed start date",
			form:    url.Values{"start_date": {"01/01/2026"}},
			wantErr: true,
		},
		{
			name:    "end before start",
			form:    url.Values{"start_date": {"2026-06-01"}, "end_date": {"2026-01-01"}},
			wantErr: true,
		},
		{
			name:    "negative amount",
			form:    url.Values{"min_amount": {"-5"}},
			wantErr: true,
		},
		{
			name:    "max below min",
			form:    url.Values{"min_amount": {"100"}, "max_amount": {"50"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilterForm(tt.form)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, f)
			}
		})
	}
}

func TestParseInvoiceForm(t *testing.T) {
	form := url.Values{
		"number":       {" 2026/042 "},
		"counterpart":  {"Rossi SRL"},
		"category":     {"Consulenza"},
		"subcategory":  {"Fiscale"},
		"invoice_type": {"issued"},
		"status":       {"paid"},
		"amount":       {"1.234,56"},
		"issue_date":   {"2026-08-01"},
		"due_date":     {"2026-08-31"},
		"paid_at":      {"2026-08-20"},
	}

	// The form uses the Italian decimal comma; a thousands dot makes the
	// amount ambiguous and must be rejected.
	if _, err := ParseInvoiceForm(form); err == nil {
		t.Error("expected error for amount with thousands separator")
	}

	form.Set("amount", "1234,56")
	inv, err := ParseInvoiceForm(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inv.Number != "2026/042" {
		t.Errorf("number = %q, want trimmed", inv.Number)
	}
	if inv.Amount.Cents != 123456 {
		t.Errorf("cents = %d, want 123456", inv.Amount.Cents)
	}
	if inv.Type != core.TypeIssued || inv.Status != core.StatusPaid {
		t.Errorf("type/status = %q/%q", inv.Type, inv.Status)
	}
	if inv.PaidAt == nil || inv.PaidAt.Day() != 20 {
		t.Errorf("paid at = %v", inv.PaidAt)
	}
}

func TestParseInvoiceFormErrors(t *testing.T) {
	base := url.Values{
		"number":     {"1"},
		"amount":     {"10"},
		"issue_date": {"2026-08-01"},
		"due_date":   {"2026-08-31"},
	}

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad amount", "amount", "dieci"},
		{"bad issue date", "issue_date", "2026-13-01"},
		{"bad due date", "due_date", "domani"},
		{"bad paid date", "paid_at", "ieri"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			for k, v := range base {
				form[k] = v
			}
			form.Set(tt.key, tt.value)
			if _, err := ParseInvoiceForm(form); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseConfigForm(t *testing.T) {
	form := url.Values{
		"name":         {"Sollecito standard"},
		"from_address": {"fatture@example.com"},
		"reply_to":     {"amministrazione@example.com"},
		"subject":      {"Sollecito fattura"},
		"body":         {"Gentile cliente,\nla fattura risulta scaduta."},
		"cadence":      {"weekly"},
		"active":       {"on"},
	}

	cfg := ParseConfigForm(form)
	if cfg.Name != "Sollecito standard" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Cadence != core.CadenceWeekly {
		t.Errorf("cadence = %q", cfg.Cadence)
	}
	if !cfg.Active {
		t.Error("active should be true for checkbox value on")
	}

	form.Del("active")
	if ParseConfigForm(form).Active {
		t.Error("active should be false when the checkbox is absent")
	}
}
