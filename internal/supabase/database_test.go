package supabase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Config{ProjectURL: url, AnonKey: "anon-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestQueryBuildURL(t *testing.T) {
	c := newTestClient(t, "https://proj.example.com")

	tests := []struct {
		name  string
		build func() *Query
		want  string
	}{
		{
			"plain select",
			func() *Query { return c.Database().From("invoices") },
			"https://proj.example.com/rest/v1/invoices?select=%2A",
		},
		{
			"filters in insertion order",
			func() *Query {
				return c.Database().From("invoices").
					Eq("user_id", "u1").
					Gte("issue_date", "2026-02-28").
					Lte("amount_cents", 50000)
			},
			"https://proj.example.com/rest/v1/invoices?select=%2A&user_id=eq.u1&issue_date=gte.2026-02-28&amount_cents=lte.50000",
		},
		{
			"in filter",
			func() *Query {
				return c.Database().From("invoices").In("status", []string{"paid", "sent"})
			},
			"https://proj.example.com/rest/v1/invoices?select=%2A&status=in.(paid,sent)",
		},
		{
			"empty in imposes nothing",
			func() *Query {
				return c.Database().From("invoices").In("status", nil)
			},
			"https://proj.example.com/rest/v1/invoices?select=%2A",
		},
		{
			"eq escapes caller-supplied values",
			func() *Query {
				return c.Database().From("invoices").Eq("id", "abc&user_id=eq.other")
			},
			"https://proj.example.com/rest/v1/invoices?select=%2A&id=eq.abc%26user_id%3Deq.other",
		},
		{
			"order limit offset",
			func() *Query {
				return c.Database().From("invoices").
					Order("issue_date", OrderDesc).
					Limit(100).
					Offset(200)
			},
			"https://proj.example.com/rest/v1/invoices?select=%2A&order=issue_date.desc&limit=100&offset=200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build().buildURL()
			if got != tt.want {
				t.Errorf("buildURL:\n got %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestQueryExecute_SendsHeaders(t *testing.T) {
	var gotAPIKey, gotAuth, gotPrefer string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		gotPrefer = r.Header.Get("Prefer")
		w.Write([]byte(`[{"id":"inv-1"}]`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	var rows []struct {
		ID string `json:"id"`
	}
	err := c.Database().From("invoices").
		Insert(map[string]string{"id": "inv-1"}).
		WithToken("user-token").
		ExecuteInto(context.Background(), &rows)
	if err != nil {
		t.Fatalf("ExecuteInto: %v", err)
	}

	if gotAPIKey != "anon-key" {
		t.Errorf("expected apikey header, got %q", gotAPIKey)
	}
	if gotAuth != "Bearer user-token" {
		t.Errorf("expected user bearer, got %q", gotAuth)
	}
	if !strings.Contains(gotPrefer, "return=representation") {
		t.Errorf("expected representation prefer, got %q", gotPrefer)
	}
	if len(rows) != 1 || rows[0].ID != "inv-1" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestQueryExecute_PlatformError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"22P02","message":"invalid input syntax","details":"value out of range"}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Database().From("invoices").Eq("amount_cents", "boom").Execute(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	perr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if perr.Code != "22P02" || perr.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected error fields: %+v", perr)
	}
	if !strings.Contains(perr.Error(), "invalid input syntax") {
		t.Errorf("error message should be human readable, got %q", perr.Error())
	}
}
