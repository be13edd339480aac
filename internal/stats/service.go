package stats

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fatture/internal/core"
)

// Service fetches one coherent batch of all five datasets.
type Service struct {
	source DataSource
}

func NewService(source DataSource) *Service {
	return &Service{source: source}
}

// Fetch runs the five dataset requests concurrently against the same
// filter state. The first error cancels the remaining requests and fails
// the whole batch; partial batches are never returned.
func (s *Service) Fetch(ctx context.Context, p core.Principal, f core.FilterState) (Datasets, error) {
	if err := p.Validate(); err != nil {
		return Datasets{}, err
	}

	var data Datasets
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		overview, err := s.source.Overview(ctx, p, f)
		if err != nil {
			return fmt.Errorf("overview: %w", err)
		}
		data.Overview = overview
		return nil
	})

	g.Go(func() error {
		trends, err := s.source.MonthlyTrends(ctx, p, f)
		if err != nil {
			return fmt.Errorf("trends: %w", err)
		}
		data.Trends = trends
		return nil
	})

	g.Go(func() error {
		cats, err := s.source.CategoryStats(ctx, p, f)
		if err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		data.Categories = cats
		return nil
	})

	g.Go(func() error {
		hier, err := s.source.HierarchicalStats(ctx, p, f)
		if err != nil {
			return fmt.Errorf("hierarchy: %w", err)
		}
		data.Hierarchy = hier
		return nil
	})

	g.Go(func() error {
		invs, err := s.source.Invoices(ctx, p, f)
		if err != nil {
			return fmt.Errorf("invoices: %w", err)
		}
		data.Invoices = invs
		return nil
	})

	if err := g.Wait(); err != nil {
		return Datasets{}, err
	}
	return data, nil
}
