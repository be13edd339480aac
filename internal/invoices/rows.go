package invoices

import (
	"fmt"
	"time"

	"fatture/internal/core"
)

// The platform returns loosely typed JSON; these row types pin the expected
// shape and toDomain validates each row before it is treated as trusted
// internal data.

type invoiceRow struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Number      string     `json:"number"`
	Counterpart string     `json:"counterpart"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory,omitempty"`
	Type        string     `json:"invoice_type"`
	Status      string     `json:"status"`
	AmountCents int64      `json:"amount_cents"`
	IssueDate   string     `json:"issue_date"`
	DueDate     string     `json:"due_date"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r invoiceRow) toDomain() (core.Invoice, error) {
	if r.ID == "" {
		return core.Invoice{}, fmt.Errorf("invoice row without id")
	}
	if r.AmountCents < 0 {
		return core.Invoice{}, fmt.Errorf("invoice %s: negative amount", r.ID)
	}
	issue, err := time.Parse(dateLayout, r.IssueDate)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invoice %s: bad issue date %q", r.ID, r.IssueDate)
	}
	due, err := time.Parse(dateLayout, r.DueDate)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invoice %s: bad due date %q", r.ID, r.DueDate)
	}
	typ := core.InvoiceType(trimLower(r.Type))
	if !typ.Valid() {
		return core.Invoice{}, fmt.Errorf("invoice %s: unknown type %q", r.ID, r.Type)
	}
	status := core.InvoiceStatus(trimLower(r.Status))
	if !status.Valid() {
		return core.Invoice{}, fmt.Errorf("invoice %s: unknown status %q", r.ID, r.Status)
	}

	return core.Invoice{
		ID:          r.ID,
		UserID:      r.UserID,
		Number:      r.Number,
		Counterpart: r.Counterpart,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Type:        typ,
		Status:      status,
		Amount:      core.Money{Cents: r.AmountCents},
		IssueDate:   issue,
		DueDate:     due,
		PaidAt:      r.PaidAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func encodeInvoice(inv core.Invoice) map[string]any {
	m := map[string]any{
		"user_id":      inv.UserID,
		"number":       inv.Number,
		"counterpart":  inv.Counterpart,
		"category":     inv.Category,
		"subcategory":  inv.Subcategory,
		"invoice_type": string(inv.Type),
		"status":       string(inv.Status),
		"amount_cents": inv.Amount.Cents,
		"issue_date":   inv.IssueDate.Format(dateLayout),
		"due_date":     inv.DueDate.Format(dateLayout),
	}
	if inv.PaidAt != nil {
		m["paid_at"] = inv.PaidAt.Format(time.RFC3339)
	}
	return m
}

type emailConfigRow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	FromAddress string    `json:"from_address"`
	ReplyTo     string    `json:"reply_to,omitempty"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Cadence     string    `json:"cadence"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r emailConfigRow) toDomain() (core.EmailConfig, error) {
	if r.ID == "" {
		return core.EmailConfig{}, fmt.Errorf("email config row without id")
	}
	cadence := core.ReminderCadence(trimLower(r.Cadence))
	if !cadence.Valid() {
		return core.EmailConfig{}, fmt.Errorf("email config %s: unknown cadence %q", r.ID, r.Cadence)
	}

	return core.EmailConfig{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		FromAddress: r.FromAddress,
		ReplyTo:     r.ReplyTo,
		Subject:     r.Subject,
		Body:        r.Body,
		Cadence:     cadence,
		Active:      r.Active,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func encodeEmailConfig(cfg core.EmailConfig) map[string]any {
	return map[string]any{
		"user_id":      cfg.UserID,
		"name":         cfg.Name,
		"from_address": cfg.FromAddress,
		"reply_to":     cfg.ReplyTo,
		"subject":      cfg.Subject,
		"body":         cfg.Body,
		"cadence":      string(cfg.Cadence),
		"active":       cfg.Active,
	}
}
