package stats

import (
	"context"
	"sync"
	"time"

	"fatture/internal/core"
)

// Controller holds the filter state and the latest snapshot for one user
// session. Every filter change bumps a generation counter and cancels the
// previous in-flight batch; a batch whose generation is stale by the time
// it completes is discarded, so a slow old response can never overwrite a
// newer one.
type Controller struct {
	service   *Service
	principal core.Principal
	now       func() time.Time

	mu         sync.Mutex
	filters    core.FilterState
	data       Datasets
	err        error
	loading    bool
	generation uint64
	updatedAt  time.Time
	cancel     context.CancelFunc
}

func NewController(service *Service, p core.Principal) *Controller {
	return &Controller{
		service:   service,
		principal: p,
		now:       time.Now,
		filters:   core.DefaultFilters(),
	}
}

// SetFilters replaces the filter state wholesale and fetches a fresh batch.
// Setting an equal state is a no-op unless nothing has loaded yet.
func (c *Controller) SetFilters(ctx context.Context, f core.FilterState) Snapshot {
	c.mu.Lock()
	if f.Equal(c.filters) && c.generation > 0 {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	c.filters = f
	c.mu.Unlock()

	return c.refresh(ctx)
}

// ResetFilters restores the default filter state and refetches.
func (c *Controller) ResetFilters(ctx context.Context) Snapshot {
	return c.SetFilters(ctx, core.DefaultFilters())
}

// Refresh refetches the current filter state.
func (c *Controller) Refresh(ctx context.Context) Snapshot {
	return c.refresh(ctx)
}

// Current returns the latest snapshot without fetching.
func (c *Controller) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) refresh(ctx context.Context) Snapshot {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.generation++
	gen := c.generation
	filters := c.filters
	c.loading = true
	c.mu.Unlock()

	data, err := c.service.Fetch(fetchCtx, c.principal, filters)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		// A newer filter state superseded this batch while it was in
		// flight. Its results must not overwrite the newer ones.
		return c.snapshotLocked()
	}

	c.loading = false
	if err != nil {
		// Keep the last known datasets so the dashboard degrades to
		// stale data instead of going blank.
		c.err = err
	} else {
		c.data = data
		c.err = nil
		c.updatedAt = c.now()
	}
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Filters:    c.filters,
		Data:       c.data,
		Loading:    c.loading,
		Err:        c.err,
		Generation: c.generation,
		UpdatedAt:  c.updatedAt,
	}
}
