package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"fatture/internal/core"
	"fatture/internal/mail"
)

// DispatcherStore is the slice of the mirror the dispatcher reads.
type DispatcherStore interface {
	GetInvoice(ctx context.Context, id string) (core.Invoice, error)
	GetEmailConfig(ctx context.Context, id string) (core.EmailConfig, error)
}

// ReminderDispatcher turns queued reminder messages into e-mail. The
// subject and body of the user's configuration are text/template strings
// rendered with the invoice's fields.
type ReminderDispatcher struct {
	store  DispatcherStore
	sender mail.Sender
	now    func() time.Time
}

func NewReminderDispatcher(store DispatcherStore, sender mail.Sender) *ReminderDispatcher {
	return &ReminderDispatcher{
		store:  store,
		sender: sender,
		now:    time.Now,
	}
}

// reminderData is what configuration templates can reference.
type reminderData struct {
	Number      string
	Counterpart string
	Category    string
	Amount      string
	IssueDate   string
	DueDate     string
	DaysOverdue int
}

// Dispatch loads the invoice and configuration behind one reminder
// message, renders the templates, and sends the e-mail.
func (d *ReminderDispatcher) Dispatch(ctx context.Context, invoiceID, configID string) error {
	inv, err := d.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}
	cfg, err := d.store.GetEmailConfig(ctx, configID)
	if err != nil {
		return fmt.Errorf("load email config: %w", err)
	}

	if !cfg.Active {
		slog.WarnContext(ctx, "Reminder config deactivated since scan, skipping",
			"invoice_id", invoiceID, "config_id", configID)
		return nil
	}

	data := reminderData{
		Number:      inv.Number,
		Counterpart: inv.Counterpart,
		Category:    inv.Category,
		Amount:      formatEuros(inv.Amount),
		IssueDate:   inv.IssueDate.Format("02/01/2006"),
		DueDate:     inv.DueDate.Format("02/01/2006"),
		DaysOverdue: int(d.now().Sub(inv.DueDate).Hours() / 24),
	}

	subject, err := renderTemplate("subject", cfg.Subject, data)
	if err != nil {
		return fmt.Errorf("render subject: %w", err)
	}
	body, err := renderTemplate("body", cfg.Body, data)
	if err != nil {
		return fmt.Errorf("render body: %w", err)
	}

	// Reminders notify the configuration's own mailbox; reply-to wins
	// when set.
	to := cfg.ReplyTo
	if to == "" {
		to = cfg.FromAddress
	}

	msg := mail.Message{
		From:    cfg.FromAddress,
		To:      to,
		ReplyTo: cfg.ReplyTo,
		Subject: subject,
		Body:    body,
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	slog.InfoContext(ctx, "Reminder dispatched",
		"invoice_id", invoiceID,
		"config_id", configID,
		"number", inv.Number)
	return nil
}

func renderTemplate(name, text string, data reminderData) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func formatEuros(m core.Money) string {
	sign := ""
	cents := m.Cents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d,%02d", sign, cents/100, cents%100)
}
