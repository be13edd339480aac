// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: the filter form driving the dashboard and the invoice and
// reminder-configuration forms.

package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fatture/internal/core"
)

// ParseFilterForm builds the filter state from the dashboard filter form.
// Missing fields fall back to the default state's values; empty
// multi-selects impose no restriction.
func ParseFilterForm(form url.Values) (core.FilterState, error) {
	f := core.FilterState{
		DateRange: core.DateRange{Preset: core.PresetLast6Months},
	}

	if v := strings.TrimSpace(form.Get("preset")); v != "" {
		preset := core.DatePreset(v)
		if !preset.Valid() {
			return core.FilterState{}, fmt.Errorf("invalid date preset %q", v)
		}
		f.DateRange.Preset = preset
	}

	start, err := parseDateField(form.Get("start_date"))
	if err != nil {
		return core.FilterState{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := parseDateField(form.Get("end_date"))
	if err != nil {
		return core.FilterState{}, fmt.Errorf("invalid end date: %w", err)
	}
	if start != nil && end != nil && end.Before(*start) {
		return core.FilterState{}, fmt.Errorf("end date before start date")
	}
	f.DateRange.StartDate = start
	f.DateRange.EndDate = end

	f.Categories = cleanSet(form["categories"])
	f.InvoiceTypes = cleanSet(form["types"])
	for _, t := range f.InvoiceTypes {
		if !core.InvoiceType(t).Valid() {
			return core.FilterState{}, fmt.Errorf("invalid invoice type %q", t)
		}
	}
	f.Status = cleanSet(form["statuses"])
	for _, st := range f.Status {
		if !core.InvoiceStatus(st).Valid() {
			return core.FilterState{}, fmt.Errorf("invalid status %q", st)
		}
	}

	if v := strings.TrimSpace(form.Get("min_amount")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return core.FilterState{}, fmt.Errorf("invalid minimum amount: %w", err)
		}
		f.AmountRange.MinCents = &cents
	}
	if v := strings.TrimSpace(form.Get("max_amount")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return core.FilterState{}, fmt.Errorf("invalid maximum amount: %w", err)
		}
		f.AmountRange.MaxCents = &cents
	}
	if f.AmountRange.MinCents != nil && f.AmountRange.MaxCents != nil &&
		*f.AmountRange.MaxCents < *f.AmountRange.MinCents {
		return core.FilterState{}, fmt.Errorf("maximum amount below minimum")
	}

	return f, nil
}

// ParseInvoiceForm builds an invoice from the create/update form. The
// returned invoice still needs Validate and the caller sets ID/UserID.
func ParseInvoiceForm(form url.Values) (core.Invoice, error) {
	inv := core.Invoice{
		Number:      sanitizeInput(form.Get("number")),
		Counterpart: sanitizeInput(form.Get("counterpart")),
		Category:    sanitizeInput(form.Get("category")),
		Subcategory: sanitizeInput(form.Get("subcategory")),
		Type:        core.InvoiceType(strings.TrimSpace(form.Get("invoice_type"))),
		Status:      core.InvoiceStatus(strings.TrimSpace(form.Get("status"))),
	}

	cents, err := core.ParseDecimalToCents(form.Get("amount"))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invalid amount: %w", err)
	}
	inv.Amount = core.Money{Cents: cents}

	issue, err := parseDateField(form.Get("issue_date"))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invalid issue date: %w", err)
	}
	if issue != nil {
		inv.IssueDate = *issue
	}
	due, err := parseDateField(form.Get("due_date"))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invalid due date: %w", err)
	}
	if due != nil {
		inv.DueDate = *due
	}

	if v := strings.TrimSpace(form.Get("paid_at")); v != "" {
		paid, err := time.Parse("2006-01-02", v)
		if err != nil {
			return core.Invoice{}, fmt.Errorf("invalid payment date: %w", err)
		}
		inv.PaidAt = &paid
	}

	return inv, nil
}

// ParseConfigForm builds a reminder e-mail configuration from its form.
func ParseConfigForm(form url.Values) core.EmailConfig {
	return core.EmailConfig{
		Name:        sanitizeInput(form.Get("name")),
		FromAddress: sanitizeInput(form.Get("from_address")),
		ReplyTo:     sanitizeInput(form.Get("reply_to")),
		Subject:     sanitizeInput(form.Get("subject")),
		Body:        strings.TrimSpace(form.Get("body")),
		Cadence:     core.ReminderCadence(strings.TrimSpace(form.Get("cadence"))),
		Active:      form.Get("active") == "on" || form.Get("active") == "true",
	}
}

// cleanSet trims entries and drops empties so an untouched multi-select
// means no restriction.
func cleanSet(values []string) []string {
	var out []string
	for _, v := range values {
		v = sanitizeInput(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato richiesta non valido")
	}
	return nil
}
