package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fatture/internal/core"
)

// ReminderStore is the slice of the mirror the reminder scan needs.
type ReminderStore interface {
	ListOverdueInvoices(ctx context.Context, now time.Time) ([]core.Invoice, error)
	ListEmailConfigs(ctx context.Context, userID string) ([]core.EmailConfig, error)
	LastReminder(ctx context.Context, invoiceID, configID string) (time.Time, error)
	RecordReminder(ctx context.Context, invoiceID, configID string, sentAt time.Time) error
}

// ReminderPublisher enqueues reminder dispatch requests for the worker.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, invoiceID, configID, userID string) error
}

// ReminderService scans the mirror for overdue invoices and enqueues one
// reminder per matching active configuration, honoring each
// configuration's cadence. Publishing and logging happen together so a
// rescan before the worker drains the queue cannot duplicate reminders.
type ReminderService struct {
	store     ReminderStore
	publisher ReminderPublisher
	now       func() time.Time
}

func NewReminderService(store ReminderStore, publisher ReminderPublisher) *ReminderService {
	return &ReminderService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// ScanResult summarizes one reminder scan.
type ScanResult struct {
	Overdue   int
	Published int
	Skipped   int
	Failed    int
}

// ScanOverdue walks all overdue invoices and publishes the due reminders.
// Individual failures are logged and counted, not fatal to the scan.
func (s *ReminderService) ScanOverdue(ctx context.Context) (ScanResult, error) {
	now := s.now()

	overdue, err := s.store.ListOverdueInvoices(ctx, now)
	if err != nil {
		return ScanResult{}, fmt.Errorf("list overdue invoices: %w", err)
	}

	result := ScanResult{Overdue: len(overdue)}
	configsByUser := make(map[string][]core.EmailConfig)

	for _, inv := range overdue {
		configs, ok := configsByUser[inv.UserID]
		if !ok {
			configs, err = s.store.ListEmailConfigs(ctx, inv.UserID)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to load email configs",
					"user_id", inv.UserID, "error", err)
				result.Failed++
				continue
			}
			configsByUser[inv.UserID] = configs
		}

		for _, cfg := range configs {
			if !cfg.Active {
				continue
			}

			due, err := s.reminderDue(ctx, inv, cfg, now)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to check reminder dueness",
					"invoice_id", inv.ID, "config_id", cfg.ID, "error", err)
				result.Failed++
				continue
			}
			if !due {
				result.Skipped++
				continue
			}

			if err := s.publisher.PublishReminder(ctx, inv.ID, cfg.ID, inv.UserID); err != nil {
				slog.ErrorContext(ctx, "Failed to publish reminder",
					"invoice_id", inv.ID, "config_id", cfg.ID, "error", err)
				result.Failed++
				continue
			}
			if err := s.store.RecordReminder(ctx, inv.ID, cfg.ID, now); err != nil {
				slog.ErrorContext(ctx, "Failed to record reminder",
					"invoice_id", inv.ID, "config_id", cfg.ID, "error", err)
			}
			result.Published++
		}
	}

	slog.InfoContext(ctx, "Reminder scan completed",
		"overdue", result.Overdue,
		"published", result.Published,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, nil
}

func (s *ReminderService) reminderDue(ctx context.Context, inv core.Invoice, cfg core.EmailConfig, now time.Time) (bool, error) {
	checker, err := GetDuenessChecker(cfg.Cadence)
	if err != nil {
		return false, err
	}

	lastSent, err := s.store.LastReminder(ctx, inv.ID, cfg.ID)
	if err != nil {
		return false, err
	}

	return checker.IsDue(lastSent, now, inv.DueDate), nil
}
