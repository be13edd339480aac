// Package invoices implements the data access layer for invoice and e-mail
// configuration rows stored in the platform's managed database. Every call
// takes the caller's principal explicitly: the access token drives row-level
// security and the user_id predicate narrows the query server-side.
package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fatture/internal/core"
	"fatture/internal/supabase"
)

const dateLayout = "2006-01-02"

// Repository issues CRUD operations against the invoices and email_configs
// tables.
type Repository struct {
	db  *supabase.DatabaseClient
	now func() time.Time
}

func NewRepository(client *supabase.Client) *Repository {
	return &Repository{
		db:  client.Database(),
		now: time.Now,
	}
}

// ApplyFilters translates a filter state into PostgREST predicates on an
// invoices query. Empty sets add no predicate; explicit dates win over the
// preset; amount bounds are inclusive.
func ApplyFilters(q *supabase.Query, f core.FilterState, now time.Time) *supabase.Query {
	start, end := f.DateRange.Bounds(now)
	if start != nil {
		q = q.Gte("issue_date", start.Format(dateLayout))
	}
	if end != nil {
		q = q.Lte("issue_date", end.Format(dateLayout))
	}
	q = q.In("category", f.Categories)
	q = q.In("invoice_type", f.InvoiceTypes)
	q = q.In("status", f.Status)
	if f.AmountRange.MinCents != nil {
		q = q.Gte("amount_cents", *f.AmountRange.MinCents)
	}
	if f.AmountRange.MaxCents != nil {
		q = q.Lte("amount_cents", *f.AmountRange.MaxCents)
	}
	return q
}

// List returns the invoices matching the filter state, newest first.
func (r *Repository) List(ctx context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	q := r.db.From("invoices").
		Select("*").
		Eq("user_id", p.UserID)
	q = ApplyFilters(q, f, r.now())
	q = q.Order("issue_date", supabase.OrderDesc).WithToken(p.AccessToken)

	var rows []invoiceRow
	if err := q.ExecuteInto(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return decodeInvoices(ctx, rows)
}

// Create inserts a new invoice for the principal.
func (r *Repository) Create(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error) {
	if err := p.Validate(); err != nil {
		return core.Invoice{}, err
	}
	inv.UserID = p.UserID
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}

	var rows []invoiceRow
	err := r.db.From("invoices").
		Insert(encodeInvoice(inv)).
		WithToken(p.AccessToken).
		ExecuteInto(ctx, &rows)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	if len(rows) != 1 {
		return core.Invoice{}, fmt.Errorf("create invoice: expected 1 row back, got %d", len(rows))
	}
	return rows[0].toDomain()
}

// Update replaces the mutable fields of an existing invoice.
func (r *Repository) Update(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error) {
	if err := p.Validate(); err != nil {
		return core.Invoice{}, err
	}
	if inv.ID == "" {
		return core.Invoice{}, fmt.Errorf("update invoice: missing id")
	}
	inv.UserID = p.UserID
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}

	var rows []invoiceRow
	err := r.db.From("invoices").
		Update(encodeInvoice(inv)).
		Eq("id", inv.ID).
		Eq("user_id", p.UserID).
		WithToken(p.AccessToken).
		ExecuteInto(ctx, &rows)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	if len(rows) != 1 {
		return core.Invoice{}, fmt.Errorf("update invoice: no matching row")
	}
	return rows[0].toDomain()
}

// Delete removes an invoice owned by the principal.
func (r *Repository) Delete(ctx context.Context, p core.Principal, id string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.From("invoices").
		Delete().
		Eq("id", id).
		Eq("user_id", p.UserID).
		WithToken(p.AccessToken).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// ListEmailConfigs returns the principal's e-mail configurations.
func (r *Repository) ListEmailConfigs(ctx context.Context, p core.Principal) ([]core.EmailConfig, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var rows []emailConfigRow
	err := r.db.From("email_configs").
		Select("*").
		Eq("user_id", p.UserID).
		Order("name", supabase.OrderAsc).
		WithToken(p.AccessToken).
		ExecuteInto(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list email configs: %w", err)
	}

	configs := make([]core.EmailConfig, 0, len(rows))
	for _, row := range rows {
		cfg, err := row.toDomain()
		if err != nil {
			slog.WarnContext(ctx, "Dropping malformed email config row", "id", row.ID, "error", err)
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// CreateEmailConfig inserts a configuration for the principal.
func (r *Repository) CreateEmailConfig(ctx context.Context, p core.Principal, cfg core.EmailConfig) (core.EmailConfig, error) {
	if err := p.Validate(); err != nil {
		return core.EmailConfig{}, err
	}
	cfg.UserID = p.UserID
	if err := cfg.Validate(); err != nil {
		return core.EmailConfig{}, err
	}

	var rows []emailConfigRow
	err := r.db.From("email_configs").
		Insert(encodeEmailConfig(cfg)).
		WithToken(p.AccessToken).
		ExecuteInto(ctx, &rows)
	if err != nil {
		return core.EmailConfig{}, fmt.Errorf("create email config: %w", err)
	}
	if len(rows) != 1 {
		return core.EmailConfig{}, fmt.Errorf("create email config: expected 1 row back, got %d", len(rows))
	}
	return rows[0].toDomain()
}

// UpdateEmailConfig replaces an existing configuration.
func (r *Repository) UpdateEmailConfig(ctx context.Context, p core.Principal, cfg core.EmailConfig) (core.EmailConfig, error) {
	if err := p.Validate(); err != nil {
		return core.EmailConfig{}, err
	}
	if cfg.ID == "" {
		return core.EmailConfig{}, fmt.Errorf("update email config: missing id")
	}
	cfg.UserID = p.UserID
	if err := cfg.Validate(); err != nil {
		return core.EmailConfig{}, err
	}

	var rows []emailConfigRow
	err := r.db.From("email_configs").
		Update(encodeEmailConfig(cfg)).
		Eq("id", cfg.ID).
		Eq("user_id", p.UserID).
		WithToken(p.AccessToken).
		ExecuteInto(ctx, &rows)
	if err != nil {
		return core.EmailConfig{}, fmt.Errorf("update email config: %w", err)
	}
	if len(rows) != 1 {
		return core.EmailConfig{}, fmt.Errorf("update email config: no matching row")
	}
	return rows[0].toDomain()
}

// DeleteEmailConfig removes a configuration owned by the principal.
func (r *Repository) DeleteEmailConfig(ctx context.Context, p core.Principal, id string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.From("email_configs").
		Delete().
		Eq("id", id).
		Eq("user_id", p.UserID).
		WithToken(p.AccessToken).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("delete email config: %w", err)
	}
	return nil
}

func decodeInvoices(ctx context.Context, rows []invoiceRow) ([]core.Invoice, error) {
	invoices := make([]core.Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := row.toDomain()
		if err != nil {
			// Malformed rows from the platform are dropped, not trusted.
			slog.WarnContext(ctx, "Dropping malformed invoice row", "id", row.ID, "error", err)
			continue
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func trimLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
