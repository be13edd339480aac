package stats

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fatture/internal/core"
)

type fakeSource struct {
	calls atomic.Int64

	overview  core.OverviewStats
	trends    []core.MonthlyTrend
	cats      []core.CategoryStat
	hierarchy []core.HierarchicalStat
	invoices  []core.Invoice

	overviewErr error
	delay       time.Duration
	blockUntil  chan struct{}
}

func (f *fakeSource) wait(ctx context.Context) error {
	f.calls.Add(1)
	if f.blockUntil != nil {
		select {
		case <-f.blockUntil:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeSource) Overview(ctx context.Context, _ core.Principal, _ core.FilterState) (core.OverviewStats, error) {
	if err := f.wait(ctx); err != nil {
		return core.OverviewStats{}, err
	}
	if f.overviewErr != nil {
		return core.OverviewStats{}, f.overviewErr
	}
	return f.overview, nil
}

func (f *fakeSource) MonthlyTrends(ctx context.Context, _ core.Principal, _ core.FilterState) ([]core.MonthlyTrend, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.trends, nil
}

func (f *fakeSource) CategoryStats(ctx context.Context, _ core.Principal, _ core.FilterState) ([]core.CategoryStat, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.cats, nil
}

func (f *fakeSource) HierarchicalStats(ctx context.Context, _ core.Principal, _ core.FilterState) ([]core.HierarchicalStat, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.hierarchy, nil
}

func (f *fakeSource) Invoices(ctx context.Context, _ core.Principal, _ core.FilterState) ([]core.Invoice, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.invoices, nil
}

func statsPrincipal() core.Principal {
	return core.Principal{UserID: "u1", Email: "mario@example.com", AccessToken: "tok"}
}

func TestFetchReturnsCompleteBatch(t *testing.T) {
	src := &fakeSource{
		overview: core.OverviewStats{InvoiceCount: 3, TotalCents: 90000},
		trends:   []core.MonthlyTrend{{Period: "2026-07", Count: 3, TotalCents: 90000}},
		cats:     []core.CategoryStat{{Category: "consulting", Count: 3, TotalCents: 90000, Share: 1}},
		invoices: []core.Invoice{{ID: "inv-1"}},
	}
	svc := NewService(src)

	data, err := svc.Fetch(context.Background(), statsPrincipal(), core.DefaultFilters())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if data.Overview.InvoiceCount != 3 {
		t.Errorf("overview count = %d, want 3", data.Overview.InvoiceCount)
	}
	if len(data.Trends) != 1 || len(data.Categories) != 1 || len(data.Invoices) != 1 {
		t.Errorf("incomplete batch: %+v", data)
	}
	if got := src.calls.Load(); got != 5 {
		t.Errorf("source calls = %d, want 5", got)
	}
}

func TestFetchFailsWholeBatchOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{
		overviewErr: boom,
		invoices:    []core.Invoice{{ID: "inv-1"}},
	}
	svc := NewService(src)

	data, err := svc.Fetch(context.Background(), statsPrincipal(), core.DefaultFilters())
	if !errors.Is(err, boom) {
		t.Fatalf("Fetch error = %v, want wrapped boom", err)
	}
	if len(data.Invoices) != 0 {
		t.Error("partial batch returned after error")
	}
}

func TestFetchRejectsMissingPrincipal(t *testing.T) {
	svc := NewService(&fakeSource{})
	if _, err := svc.Fetch(context.Background(), core.Principal{}, core.DefaultFilters()); err == nil {
		t.Fatal("expected error for empty principal")
	}
}

func TestFetchRunsRequestsConcurrently(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{blockUntil: release}
	svc := NewService(src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Fetch(context.Background(), statsPrincipal(), core.DefaultFilters())
	}()

	// All five requests must start without waiting on each other.
	deadline := time.After(2 * time.Second)
	for src.calls.Load() < 5 {
		select {
		case <-deadline:
			t.Fatalf("only %d requests started, want 5", src.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(release)
	<-done
}
