package invoices

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fatture/internal/core"
	"fatture/internal/supabase"
)

func testClient(t *testing.T, baseURL string) *supabase.Client {
	t.Helper()
	client, err := supabase.New(supabase.Config{
		ProjectURL: baseURL,
		AnonKey:    "anon-key",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func testPrincipal() core.Principal {
	return core.Principal{UserID: "u1", Email: "mario@example.com", AccessToken: "user-token"}
}

func TestApplyFiltersTranslation(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	min := int64(1000)
	max := int64(50000)

	tests := []struct {
		name    string
		filters core.FilterState
		want    string
	}{
		{
			name:    "default six month preset",
			filters: core.DefaultFilters(),
			want:    "/rest/v1/invoices?select=%2A&user_id=eq.u1&issue_date=gte.2026-02-28&order=issue_date.desc",
		},
		{
			name: "all dates adds no bounds",
			filters: core.FilterState{
				DateRange: core.DateRange{Preset: core.PresetAll},
			},
			want: "/rest/v1/invoices?select=%2A&user_id=eq.u1&order=issue_date.desc",
		},
		{
			name: "sets and amount range",
			filters: core.FilterState{
				DateRange:    core.DateRange{Preset: core.PresetAll},
				Categories:   []string{"consulting"},
				InvoiceTypes: []string{"issued"},
				Status:       []string{"paid", "sent"},
				AmountRange:  core.AmountRange{MinCents: &min, MaxCents: &max},
			},
			want: "/rest/v1/invoices?select=%2A&user_id=eq.u1&category=in.(consulting)&invoice_type=in.(issued)&status=in.(paid,sent)&amount_cents=gte.1000&amount_cents=lte.50000&order=issue_date.desc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path + "?" + r.URL.RawQuery
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte("[]"))
			}))
			defer srv.Close()

			repo := NewRepository(testClient(t, srv.URL))
			repo.now = func() time.Time { return now }

			if _, err := repo.List(context.Background(), testPrincipal(), tt.filters); err != nil {
				t.Fatalf("List: %v", err)
			}
			if gotPath != tt.want {
				t.Errorf("request URL = %q, want %q", gotPath, tt.want)
			}
		})
	}
}

func TestListDropsMalformedRows(t *testing.T) {
	rows := []map[string]any{
		{
			"id": "inv-1", "user_id": "u1", "number": "2026/001",
			"counterpart": "ACME", "category": "consulting",
			"invoice_type": "issued", "status": "sent",
			"amount_cents": 150000, "issue_date": "2026-07-01",
			"due_date": "2026-08-01", "updated_at": "2026-07-01T10:00:00Z",
		},
		{
			// Missing id, should be dropped.
			"user_id": "u1", "number": "2026/002",
			"invoice_type": "issued", "status": "sent",
			"amount_cents": 1000, "issue_date": "2026-07-02",
			"due_date": "2026-08-02", "updated_at": "2026-07-02T10:00:00Z",
		},
		{
			// Unparseable issue date, dropped.
			"id": "inv-3", "user_id": "u1", "number": "2026/003",
			"invoice_type": "issued", "status": "sent",
			"amount_cents": 1000, "issue_date": "not-a-date",
			"due_date": "2026-08-03", "updated_at": "2026-07-03T10:00:00Z",
		},
		{
			// Negative amount, dropped.
			"id": "inv-4", "user_id": "u1", "number": "2026/004",
			"invoice_type": "issued", "status": "sent",
			"amount_cents": -500, "issue_date": "2026-07-04",
			"due_date": "2026-08-04", "updated_at": "2026-07-04T10:00:00Z",
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	repo := NewRepository(testClient(t, srv.URL))

	got, err := repo.List(context.Background(), testPrincipal(), core.FilterState{DateRange: core.DateRange{Preset: core.PresetAll}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d invoices, want 1 (malformed rows dropped)", len(got))
	}
	if got[0].ID != "inv-1" {
		t.Errorf("kept invoice id = %q, want inv-1", got[0].ID)
	}
	if got[0].Amount.Cents != 150000 {
		t.Errorf("amount = %d, want 150000", got[0].Amount.Cents)
	}
	if got[0].IssueDate != time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("issue date = %v", got[0].IssueDate)
	}
}

func TestListRejectsMissingPrincipal(t *testing.T) {
	repo := NewRepository(testClient(t, "https://proj.example.com"))
	if _, err := repo.List(context.Background(), core.Principal{}, core.DefaultFilters()); err == nil {
		t.Fatal("expected error for empty principal")
	}
}

func TestCreateInvoiceRoundTrip(t *testing.T) {
	var gotMethod, gotPrefer string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPrefer = r.Header.Get("Prefer")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{{
			"id": "inv-new", "user_id": "u1", "number": "2026/010",
			"counterpart": "ACME", "category": "consulting",
			"invoice_type": "issued", "status": "draft",
			"amount_cents": 250000, "issue_date": "2026-08-20",
			"due_date": "2026-09-20", "updated_at": "2026-08-20T09:00:00Z",
		}})
	}))
	defer srv.Close()

	repo := NewRepository(testClient(t, srv.URL))

	inv := core.Invoice{
		Number:      "2026/010",
		Counterpart: "ACME",
		Category:    "consulting",
		Type:        core.TypeIssued,
		Status:      core.StatusDraft,
		Amount:      core.Money{Cents: 250000},
		IssueDate:   time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
	}

	created, err := repo.Create(context.Background(), testPrincipal(), inv)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPrefer != "return=representation" {
		t.Errorf("Prefer header = %q", gotPrefer)
	}
	if gotBody["user_id"] != "u1" {
		t.Errorf("body user_id = %v, want principal's user id", gotBody["user_id"])
	}
	if gotBody["issue_date"] != "2026-08-20" {
		t.Errorf("body issue_date = %v", gotBody["issue_date"])
	}
	if created.ID != "inv-new" {
		t.Errorf("created id = %q", created.ID)
	}
}

func TestUpdateInvoiceNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	repo := NewRepository(testClient(t, srv.URL))

	inv := core.Invoice{
		ID:        "missing",
		Number:    "2026/099",
		Category:  "consulting",
		Type:      core.TypeIssued,
		Status:    core.StatusSent,
		Amount:    core.Money{Cents: 100},
		IssueDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	if _, err := repo.Update(context.Background(), testPrincipal(), inv); err == nil {
		t.Fatal("expected error when update matches no row")
	}
}

func TestEmailConfigRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{{
			"id": "cfg-1", "user_id": "u1", "name": "Solleciti",
			"from_address": "billing@example.com", "subject": "Sollecito fattura",
			"body": "La fattura risulta scaduta.", "cadence": "weekly",
			"active": true, "updated_at": "2026-08-01T08:00:00Z",
		}})
	}))
	defer srv.Close()

	repo := NewRepository(testClient(t, srv.URL))

	configs, err := repo.ListEmailConfigs(context.Background(), testPrincipal())
	if err != nil {
		t.Fatalf("ListEmailConfigs: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("got %d configs, want 1", len(configs))
	}
	if configs[0].Cadence != core.CadenceWeekly {
		t.Errorf("cadence = %q, want weekly", configs[0].Cadence)
	}
	if !configs[0].Active {
		t.Error("config should be active")
	}
}
