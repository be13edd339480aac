// Package storage keeps a local SQLite mirror of the platform's invoice
// and e-mail configuration tables. The mirror serves fast local reads for
// the dashboard's mirror backend and the reminder worker's overdue scan,
// and is replaced wholesale per user by the sync worker.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fatture/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceUserInvoices swaps the user's mirrored invoices for a fresh set
// in one transaction. The mirror is a copy of the platform's truth, so a
// wholesale replace is simpler and safer than row diffing.
func (r *SQLiteRepository) ReplaceUserInvoices(ctx context.Context, userID string, invoices []core.Invoice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear user invoices: %w", err)
	}

	const insert = `INSERT INTO invoices
		(id, user_id, number, counterpart, category, subcategory, invoice_type, status, amount_cents, issue_date, due_date, paid_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, inv := range invoices {
		var paidAt any
		if inv.PaidAt != nil {
			paidAt = inv.PaidAt.UTC().Format(time.RFC3339)
		}
		_, err := tx.ExecContext(ctx, insert,
			inv.ID, userID, inv.Number, inv.Counterpart,
			inv.Category, inv.Subcategory, string(inv.Type), string(inv.Status),
			inv.Amount.Cents,
			inv.IssueDate.Format(dateLayout), inv.DueDate.Format(dateLayout),
			paidAt, inv.UpdatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert invoice %s: %w", inv.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_state (user_id, synced_at) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET synced_at = excluded.synced_at`,
		userID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("update sync state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Mirror invoices replaced",
		"user_id", userID, "count", len(invoices))
	return nil
}

// ReplaceUserEmailConfigs swaps the user's mirrored e-mail configurations.
func (r *SQLiteRepository) ReplaceUserEmailConfigs(ctx context.Context, userID string, configs []core.EmailConfig) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM email_configs WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear user email configs: %w", err)
	}

	const insert = `INSERT INTO email_configs
		(id, user_id, name, from_address, reply_to, subject, body, cadence, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, cfg := range configs {
		active := 0
		if cfg.Active {
			active = 1
		}
		_, err := tx.ExecContext(ctx, insert,
			cfg.ID, userID, cfg.Name, cfg.FromAddress, cfg.ReplyTo,
			cfg.Subject, cfg.Body, string(cfg.Cadence), active,
			cfg.UpdatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert email config %s: %w", cfg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Mirror email configs replaced",
		"user_id", userID, "count", len(configs))
	return nil
}

// filterClause builds the WHERE fragment for a filter state. The first
// argument is always the user id; empty sets add no condition.
func filterClause(userID string, f core.FilterState, now time.Time) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{userID}

	start, end := f.DateRange.Bounds(now)
	if start != nil {
		conds = append(conds, "issue_date >= ?")
		args = append(args, start.Format(dateLayout))
	}
	if end != nil {
		conds = append(conds, "issue_date <= ?")
		args = append(args, end.Format(dateLayout))
	}

	addSet := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := strings.Repeat("?,", len(values))
		conds = append(conds, fmt.Sprintf("%s IN (%s)", column, placeholders[:len(placeholders)-1]))
		for _, v := range values {
			args = append(args, v)
		}
	}
	addSet("category", f.Categories)
	addSet("invoice_type", f.InvoiceTypes)
	addSet("status", f.Status)

	if f.AmountRange.MinCents != nil {
		conds = append(conds, "amount_cents >= ?")
		args = append(args, *f.AmountRange.MinCents)
	}
	if f.AmountRange.MaxCents != nil {
		conds = append(conds, "amount_cents <= ?")
		args = append(args, *f.AmountRange.MaxCents)
	}

	return strings.Join(conds, " AND "), args
}

// ListInvoices returns the user's mirrored invoices matching the filter
// state, newest first.
func (r *SQLiteRepository) ListInvoices(ctx context.Context, userID string, f core.FilterState, now time.Time) ([]core.Invoice, error) {
	where, args := filterClause(userID, f, now)
	query := `SELECT id, user_id, number, counterpart, category, subcategory, invoice_type, status, amount_cents, issue_date, due_date, paid_at, updated_at
		FROM invoices WHERE ` + where + ` ORDER BY issue_date DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

// ListEmailConfigs returns the user's mirrored e-mail configurations.
func (r *SQLiteRepository) ListEmailConfigs(ctx context.Context, userID string) ([]core.EmailConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, from_address, reply_to, subject, body, cadence, active, updated_at
		 FROM email_configs WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list email configs: %w", err)
	}
	defer rows.Close()

	var configs []core.EmailConfig
	for rows.Next() {
		var cfg core.EmailConfig
		var cadence, updatedAt string
		var active int
		if err := rows.Scan(&cfg.ID, &cfg.UserID, &cfg.Name, &cfg.FromAddress, &cfg.ReplyTo,
			&cfg.Subject, &cfg.Body, &cadence, &active, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan email config: %w", err)
		}
		cfg.Cadence = core.ReminderCadence(cadence)
		cfg.Active = active != 0
		cfg.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// ListOverdueInvoices returns unpaid invoices whose due date has passed,
// across all mirrored users.
func (r *SQLiteRepository) ListOverdueInvoices(ctx context.Context, now time.Time) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, number, counterpart, category, subcategory, invoice_type, status, amount_cents, issue_date, due_date, paid_at, updated_at
		 FROM invoices
		 WHERE due_date < ? AND status NOT IN ('paid', 'cancelled', 'draft')
		 ORDER BY user_id, due_date`,
		now.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list overdue invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

// GetInvoice returns one mirrored invoice by id.
func (r *SQLiteRepository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, number, counterpart, category, subcategory, invoice_type, status, amount_cents, issue_date, due_date, paid_at, updated_at
		 FROM invoices WHERE id = ?`, id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	defer rows.Close()

	invoices, err := scanInvoices(rows)
	if err != nil {
		return core.Invoice{}, err
	}
	if len(invoices) == 0 {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, sql.ErrNoRows)
	}
	return invoices[0], nil
}

// GetEmailConfig returns one mirrored e-mail configuration by id.
func (r *SQLiteRepository) GetEmailConfig(ctx context.Context, id string) (core.EmailConfig, error) {
	var cfg core.EmailConfig
	var cadence, updatedAt string
	var active int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, from_address, reply_to, subject, body, cadence, active, updated_at
		 FROM email_configs WHERE id = ?`, id).
		Scan(&cfg.ID, &cfg.UserID, &cfg.Name, &cfg.FromAddress, &cfg.ReplyTo,
			&cfg.Subject, &cfg.Body, &cadence, &active, &updatedAt)
	if err != nil {
		return core.EmailConfig{}, fmt.Errorf("get email config: %w", err)
	}
	cfg.Cadence = core.ReminderCadence(cadence)
	cfg.Active = active != 0
	cfg.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return cfg, nil
}

// LastReminder returns when a reminder was last sent for the invoice and
// configuration pair, or the zero time if none was ever sent.
func (r *SQLiteRepository) LastReminder(ctx context.Context, invoiceID, configID string) (time.Time, error) {
	var sentAt sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(sent_at) FROM reminder_log WHERE invoice_id = ? AND config_id = ?`,
		invoiceID, configID).Scan(&sentAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("last reminder: %w", err)
	}
	if !sentAt.Valid || sentAt.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, sentAt.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse reminder timestamp: %w", err)
	}
	return t, nil
}

// RecordReminder logs a sent reminder.
func (r *SQLiteRepository) RecordReminder(ctx context.Context, invoiceID, configID string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminder_log (invoice_id, config_id, sent_at) VALUES (?, ?, ?)`,
		invoiceID, configID, sentAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record reminder: %w", err)
	}
	return nil
}

// LastSyncedAt returns when the user's mirror was last replaced, or the
// zero time if the user was never synced.
func (r *SQLiteRepository) LastSyncedAt(ctx context.Context, userID string) (time.Time, error) {
	var syncedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT synced_at FROM sync_state WHERE user_id = ?`, userID).Scan(&syncedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last synced at: %w", err)
	}
	t, err := time.Parse(time.RFC3339, syncedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sync timestamp: %w", err)
	}
	return t, nil
}

func scanInvoices(rows *sql.Rows) ([]core.Invoice, error) {
	var invoices []core.Invoice
	for rows.Next() {
		var inv core.Invoice
		var typ, status, issueDate, dueDate, updatedAt string
		var paidAt sql.NullString
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.Number, &inv.Counterpart,
			&inv.Category, &inv.Subcategory, &typ, &status,
			&inv.Amount.Cents, &issueDate, &dueDate, &paidAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		inv.Type = core.InvoiceType(typ)
		inv.Status = core.InvoiceStatus(status)
		inv.IssueDate, _ = time.Parse(dateLayout, issueDate)
		inv.DueDate, _ = time.Parse(dateLayout, dueDate)
		if paidAt.Valid && paidAt.String != "" {
			if t, err := time.Parse(time.RFC3339, paidAt.String); err == nil {
				inv.PaidAt = &t
			}
		}
		inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
