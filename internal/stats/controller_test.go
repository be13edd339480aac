package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"fatture/internal/core"
)

func TestControllerStartsWithDefaultFilters(t *testing.T) {
	c := NewController(NewService(&fakeSource{}), statsPrincipal())

	snap := c.Current()
	if !snap.Filters.IsDefault() {
		t.Errorf("initial filters = %+v, want defaults", snap.Filters)
	}
	if snap.Generation != 0 {
		t.Errorf("generation = %d before any fetch", snap.Generation)
	}
}

func TestControllerSetFiltersFetches(t *testing.T) {
	src := &fakeSource{overview: core.OverviewStats{InvoiceCount: 7}}
	c := NewController(NewService(src), statsPrincipal())

	snap := c.SetFilters(context.Background(), core.FilterState{
		DateRange:  core.DateRange{Preset: core.PresetAll},
		Categories: []string{"consulting"},
	})

	if snap.Err != nil {
		t.Fatalf("snapshot error: %v", snap.Err)
	}
	if snap.Data.Overview.InvoiceCount != 7 {
		t.Errorf("overview count = %d, want 7", snap.Data.Overview.InvoiceCount)
	}
	if snap.Generation != 1 {
		t.Errorf("generation = %d, want 1", snap.Generation)
	}
	if snap.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set after successful fetch")
	}
}

func TestControllerEqualFiltersIsNoOp(t *testing.T) {
	src := &fakeSource{}
	c := NewController(NewService(src), statsPrincipal())

	first := c.SetFilters(context.Background(), core.DefaultFilters())
	second := c.SetFilters(context.Background(), core.DefaultFilters())

	if second.Generation != first.Generation {
		t.Errorf("generation advanced on equal filters: %d -> %d", first.Generation, second.Generation)
	}
	if got := src.calls.Load(); got != 5 {
		t.Errorf("source calls = %d, want 5 (single batch)", got)
	}
}

func TestControllerKeepsLastKnownDataOnError(t *testing.T) {
	src := &fakeSource{overview: core.OverviewStats{InvoiceCount: 4}}
	c := NewController(NewService(src), statsPrincipal())

	good := c.Refresh(context.Background())
	if good.Err != nil {
		t.Fatalf("first refresh: %v", good.Err)
	}

	boom := errors.New("platform down")
	src.overviewErr = boom

	bad := c.Refresh(context.Background())
	if !errors.Is(bad.Err, boom) {
		t.Fatalf("snapshot error = %v, want wrapped boom", bad.Err)
	}
	if bad.Data.Overview.InvoiceCount != 4 {
		t.Error("failed refresh discarded last known datasets")
	}
	if !bad.UpdatedAt.Equal(good.UpdatedAt) {
		t.Error("UpdatedAt advanced on failed refresh")
	}

	// A later successful refresh clears the error.
	src.overviewErr = nil
	ok := c.Refresh(context.Background())
	if ok.Err != nil {
		t.Errorf("error not cleared: %v", ok.Err)
	}
}

func TestControllerDiscardsSupersededBatch(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{
		overview:   core.OverviewStats{InvoiceCount: 1},
		blockUntil: release,
	}
	c := NewController(NewService(src), statsPrincipal())

	slow := make(chan Snapshot, 1)
	go func() {
		slow <- c.SetFilters(context.Background(), core.FilterState{
			DateRange: core.DateRange{Preset: core.PresetLastYear},
		})
	}()

	// Wait for the slow batch to be in flight, then supersede it. The
	// newer batch cancels the old one, so the old requests return
	// context.Canceled while the new ones wait for release.
	deadline := time.After(2 * time.Second)
	for src.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("slow batch never started")
		case <-time.After(time.Millisecond):
		}
	}

	fast := make(chan Snapshot, 1)
	go func() {
		fast <- c.SetFilters(context.Background(), core.FilterState{
			DateRange: core.DateRange{Preset: core.PresetAll},
		})
	}()

	stale := <-slow
	close(release)
	snap := <-fast

	if snap.Err != nil {
		t.Fatalf("newer batch failed: %v", snap.Err)
	}
	if stale.Generation != snap.Generation {
		t.Errorf("stale snapshot generation = %d, want latest %d", stale.Generation, snap.Generation)
	}
	latest := c.Current()
	if latest.Filters.DateRange.Preset != core.PresetAll {
		t.Errorf("filters = %+v, want the newer state", latest.Filters)
	}
}
