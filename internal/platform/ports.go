package platform

import (
	"context"

	"fatture/internal/core"
)

// Ports for outbound adapters.
type (
	// InvoiceStore is the authoritative store for invoices. Every call is
	// scoped to the principal's user.
	InvoiceStore interface {
		List(ctx context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error)
		Create(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error)
		Update(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error)
		Delete(ctx context.Context, p core.Principal, id string) error
	}

	// ConfigStore manages reminder e-mail configurations.
	ConfigStore interface {
		ListEmailConfigs(ctx context.Context, p core.Principal) ([]core.EmailConfig, error)
		CreateEmailConfig(ctx context.Context, p core.Principal, cfg core.EmailConfig) (core.EmailConfig, error)
		UpdateEmailConfig(ctx context.Context, p core.Principal, cfg core.EmailConfig) (core.EmailConfig, error)
		DeleteEmailConfig(ctx context.Context, p core.Principal, id string) error
	}
)
