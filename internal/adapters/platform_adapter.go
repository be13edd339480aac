// Package adapters composes repositories, services and dataset sources
// into the single backend surface the HTTP handlers consume.
package adapters

import (
	"context"

	"fatture/internal/core"
	"fatture/internal/invoices"
	"fatture/internal/services"
	"fatture/internal/stats"
	"fatture/internal/storage"
)

// LiveAdapter serves datasets straight from the platform and routes
// mutations through the invoice service so mirror syncs are requested.
type LiveAdapter struct {
	stats.DataSource
	repo    *invoices.Repository
	service *services.InvoiceService
}

func NewLiveAdapter(source stats.DataSource, repo *invoices.Repository, service *services.InvoiceService) *LiveAdapter {
	return &LiveAdapter{
		DataSource: source,
		repo:       repo,
		service:    service,
	}
}

// List implements platform.InvoiceStore.
func (a *LiveAdapter) List(ctx context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error) {
	return a.repo.List(ctx, p, f)
}

// Create implements platform.InvoiceStore.
func (a *LiveAdapter) Create(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error) {
	return a.service.CreateInvoice(ctx, p, inv)
}

// Update implements platform.InvoiceStore.
func (a *LiveAdapter) Update(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error) {
	return a.service.UpdateInvoice(ctx, p, inv)
}

// Delete implements platform.InvoiceStore.
func (a *LiveAdapter) Delete(ctx context.Context, p core.Principal, id string) error {
	return a.service.DeleteInvoice(ctx, p, id)
}

// ListEmailConfigs implements platform.ConfigStore.
func (a *LiveAdapter) ListEmailConfigs(ctx context.Context, p core.Principal) ([]core.EmailConfig, error) {
	return a.repo.ListEmailConfigs(ctx, p)
}

// CreateEmailConfig implements platform.ConfigStore.
func (a *LiveAdapter) CreateEmailConfig(ctx context.Context, p core.Principal, cfg core.EmailConfig) (core.EmailConfig, error) {
	return a.repo.CreateEmailConfig(ctx, p, cfg)
}

// UpdateEmailConfig implements platform.ConfigStore.
func (a *LiveAdapter) UpdateEmailConfig(ctx context.Context, p core.Principal, cfg core.EmailConfig) (core.EmailConfig, error) {
	return a.repo.UpdateEmailConfig(ctx, p, cfg)
}

// DeleteEmailConfig implements platform.ConfigStore.
func (a *LiveAdapter) DeleteEmailConfig(ctx context.Context, p core.Principal, id string) error {
	return a.repo.DeleteEmailConfig(ctx, p, id)
}

// MirrorAdapter reads datasets from the local SQLite mirror. Mutations
// still go to the platform first; the sync message the invoice service
// publishes brings the mirror up to date.
type MirrorAdapter struct {
	*LiveAdapter
	mirror *storage.MirrorSource
}

func NewMirrorAdapter(live *LiveAdapter, mirror *storage.MirrorSource) *MirrorAdapter {
	return &MirrorAdapter{
		LiveAdapter: live,
		mirror:      mirror,
	}
}

func (a *MirrorAdapter) Overview(ctx context.Context, p core.Principal, f core.FilterState) (core.OverviewStats, error) {
	return a.mirror.Overview(ctx, p, f)
}

func (a *MirrorAdapter) MonthlyTrends(ctx context.Context, p core.Principal, f core.FilterState) ([]core.MonthlyTrend, error) {
	return a.mirror.MonthlyTrends(ctx, p, f)
}

func (a *MirrorAdapter) CategoryStats(ctx context.Context, p core.Principal, f core.FilterState) ([]core.CategoryStat, error) {
	return a.mirror.CategoryStats(ctx, p, f)
}

func (a *MirrorAdapter) HierarchicalStats(ctx context.Context, p core.Principal, f core.FilterState) ([]core.HierarchicalStat, error) {
	return a.mirror.HierarchicalStats(ctx, p, f)
}

func (a *MirrorAdapter) Invoices(ctx context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error) {
	return a.mirror.Invoices(ctx, p, f)
}
