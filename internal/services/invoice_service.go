package services

import (
	"context"
	"fmt"
	"log/slog"

	"fatture/internal/core"
)

// PlatformWriter is the slice of the platform repository the invoice
// service mutates through.
type PlatformWriter interface {
	Create(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error)
	Update(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error)
	Delete(ctx context.Context, p core.Principal, id string) error
}

// SyncPublisher enqueues mirror refresh requests.
type SyncPublisher interface {
	PublishInvoiceSync(ctx context.Context, userID, reason string) error
}

// retryingSyncPublisher is implemented by publishers that can retry
// transient broker failures themselves. Preferred when available.
type retryingSyncPublisher interface {
	PublishInvoiceSyncWithRetry(ctx context.Context, userID, reason string, maxAttempts int) error
}

const syncPublishAttempts = 3

// InvoiceService orchestrates invoice mutations: the platform write is
// authoritative, then a sync message asks the worker to refresh the local
// mirror. A publish failure never fails the request, the mirror catches
// up on the next periodic refresh.
type InvoiceService struct {
	platform  PlatformWriter
	publisher SyncPublisher
}

func NewInvoiceService(platform PlatformWriter, publisher SyncPublisher) *InvoiceService {
	return &InvoiceService{
		platform:  platform,
		publisher: publisher,
	}
}

// CreateInvoice writes the invoice to the platform and requests a mirror
// refresh.
func (s *InvoiceService) CreateInvoice(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error) {
	created, err := s.platform.Create(ctx, p, inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	s.publishSync(ctx, p.UserID, "invoice_created")
	return created, nil
}

// UpdateInvoice updates the invoice on the platform and requests a
// mirror refresh.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, p core.Principal, inv core.Invoice) (core.Invoice, error) {
	updated, err := s.platform.Update(ctx, p, inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}

	s.publishSync(ctx, p.UserID, "invoice_updated")
	return updated, nil
}

// DeleteInvoice removes the invoice from the platform and requests a
// mirror refresh.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, p core.Principal, id string) error {
	if err := s.platform.Delete(ctx, p, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}

	s.publishSync(ctx, p.UserID, "invoice_deleted")
	return nil
}

func (s *InvoiceService) publishSync(ctx context.Context, userID, reason string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	publish := s.publisher.PublishInvoiceSync
	if retrier, ok := s.publisher.(retryingSyncPublisher); ok {
		publish = func(ctx context.Context, userID, reason string) error {
			return retrier.PublishInvoiceSyncWithRetry(ctx, userID, reason, syncPublishAttempts)
		}
	}
	if err := publish(ctx, userID, reason); err != nil {
		// Don't fail the request - the platform write succeeded
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"user_id", userID, "reason", reason, "error", err)
	}
}
