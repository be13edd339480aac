package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	TypeIssued     InvoiceType = "issued"
	TypeReceived   InvoiceType = "received"
	TypeCreditNote InvoiceType = "credit_note"
)

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
)

const (
	CadenceOnce    ReminderCadence = "once"
	CadenceDaily   ReminderCadence = "daily"
	CadenceWeekly  ReminderCadence = "weekly"
	CadenceMonthly ReminderCadence = "monthly"
)

type (
	InvoiceType     string
	InvoiceStatus   string
	ReminderCadence string

	Money struct {
		Cents int64
	}

	// Invoice is a single invoice row as stored in the platform's
	// invoices table, scoped to the owning user.
	Invoice struct {
		ID          string
		UserID      string
		Number      string
		Counterpart string // customer or supplier name
		Category    string
		Subcategory string
		Type        InvoiceType
		Status      InvoiceStatus
		Amount      Money
		IssueDate   time.Time
		DueDate     time.Time
		PaidAt      *time.Time
		UpdatedAt   time.Time
	}

	// EmailConfig describes how reminder e-mails are sent for one user.
	EmailConfig struct {
		ID          string
		UserID      string
		Name        string
		FromAddress string
		ReplyTo     string
		Subject     string
		Body        string
		Cadence     ReminderCadence
		Active      bool
		UpdatedAt   time.Time
	}

	// Principal identifies the signed-in user on every data-access call.
	// It is built once when the session is established and rebuilt when the
	// platform rotates the access token; nothing reads auth state ambiently.
	Principal struct {
		UserID      string
		Email       string
		AccessToken string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid invoice type")
	ErrInvalidStatus   = errors.New("invalid invoice status")
	ErrInvalidCadence  = errors.New("invalid reminder cadence")
	ErrEmptyNumber     = errors.New("empty invoice number")
	ErrEmptyCategory   = errors.New("empty category")
	ErrMissingDueDate  = errors.New("missing due date")
	ErrEmptyConfigName = errors.New("empty configuration name")
	ErrInvalidAddress  = errors.New("invalid e-mail address")
	ErrNoPrincipal     = errors.New("missing user principal")
)

func (t InvoiceType) Valid() bool {
	switch t {
	case TypeIssued, TypeReceived, TypeCreditNote:
		return true
	}
	return false
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

func (c ReminderCadence) Valid() bool {
	switch c {
	case CadenceOnce, CadenceDaily, CadenceWeekly, CadenceMonthly:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i Invoice) Validate() error {
	if strings.TrimSpace(i.Number) == "" {
		return ErrEmptyNumber
	}
	if len(i.Number) > 64 {
		return errors.New("invoice number too long (max 64 characters)")
	}
	if !i.Type.Valid() {
		return ErrInvalidType
	}
	if !i.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Category) == "" {
		return ErrEmptyCategory
	}
	if i.IssueDate.IsZero() {
		return errors.New("missing issue date")
	}
	if i.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	if i.DueDate.Before(i.IssueDate) {
		return errors.New("due date before issue date")
	}
	return nil
}

// Overdue reports whether the invoice is unpaid past its due date.
func (i Invoice) Overdue(now time.Time) bool {
	switch i.Status {
	case StatusPaid, StatusCancelled, StatusDraft:
		return false
	}
	return now.After(i.DueDate)
}

func (c EmailConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyConfigName
	}
	if len(c.Name) > 100 {
		return errors.New("configuration name too long (max 100 characters)")
	}
	if _, err := mail.ParseAddress(c.FromAddress); err != nil {
		return ErrInvalidAddress
	}
	if c.ReplyTo != "" {
		if _, err := mail.ParseAddress(c.ReplyTo); err != nil {
			return ErrInvalidAddress
		}
	}
	if strings.TrimSpace(c.Subject) == "" {
		return errors.New("empty subject template")
	}
	if !c.Cadence.Valid() {
		return ErrInvalidCadence
	}
	return nil
}

func (p Principal) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrNoPrincipal
	}
	return nil
}
