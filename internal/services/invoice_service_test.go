package services

import (
	"context"
	"errors"
	"testing"

	"fatture/internal/core"
)

type fakePlatformWriter struct {
	err     error
	deleted []string
}

func (f *fakePlatformWriter) Create(_ context.Context, _ core.Principal, inv core.Invoice) (core.Invoice, error) {
	if f.err != nil {
		return core.Invoice{}, f.err
	}
	inv.ID = "inv-new"
	return inv, nil
}

func (f *fakePlatformWriter) Update(_ context.Context, _ core.Principal, inv core.Invoice) (core.Invoice, error) {
	if f.err != nil {
		return core.Invoice{}, f.err
	}
	return inv, nil
}

func (f *fakePlatformWriter) Delete(_ context.Context, _ core.Principal, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSyncPublisher struct {
	reasons []string
	err     error
}

func (f *fakeSyncPublisher) PublishInvoiceSync(_ context.Context, _, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.reasons = append(f.reasons, reason)
	return nil
}

type fakeRetryingPublisher struct {
	fakeSyncPublisher
	retryCalls int
	attempts   int
}

func (f *fakeRetryingPublisher) PublishInvoiceSyncWithRetry(ctx context.Context, userID, reason string, maxAttempts int) error {
	f.retryCalls++
	f.attempts = maxAttempts
	return f.PublishInvoiceSync(ctx, userID, reason)
}

func servicePrincipal() core.Principal {
	return core.Principal{UserID: "u1", AccessToken: "tok"}
}

func TestCreateInvoicePublishesSync(t *testing.T) {
	pub := &fakeSyncPublisher{}
	svc := NewInvoiceService(&fakePlatformWriter{}, pub)

	created, err := svc.CreateInvoice(context.Background(), servicePrincipal(), core.Invoice{Number: "2026/001"})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if created.ID != "inv-new" {
		t.Errorf("created id = %q", created.ID)
	}
	if len(pub.reasons) != 1 || pub.reasons[0] != "invoice_created" {
		t.Errorf("sync reasons = %v", pub.reasons)
	}
}

func TestCreateInvoiceFailsWithoutPublishing(t *testing.T) {
	pub := &fakeSyncPublisher{}
	svc := NewInvoiceService(&fakePlatformWriter{err: errors.New("platform down")}, pub)

	if _, err := svc.CreateInvoice(context.Background(), servicePrincipal(), core.Invoice{}); err == nil {
		t.Fatal("expected platform error")
	}
	if len(pub.reasons) != 0 {
		t.Error("sync published despite failed write")
	}
}

func TestDeleteInvoiceSurvivesPublishFailure(t *testing.T) {
	platform := &fakePlatformWriter{}
	svc := NewInvoiceService(platform, &fakeSyncPublisher{err: errors.New("broker down")})

	if err := svc.DeleteInvoice(context.Background(), servicePrincipal(), "inv-1"); err != nil {
		t.Fatalf("DeleteInvoice: %v", err)
	}
	if len(platform.deleted) != 1 {
		t.Error("platform delete not performed")
	}
}

func TestCreateInvoicePrefersRetryingPublisher(t *testing.T) {
	pub := &fakeRetryingPublisher{}
	svc := NewInvoiceService(&fakePlatformWriter{}, pub)

	if _, err := svc.CreateInvoice(context.Background(), servicePrincipal(), core.Invoice{}); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if pub.retryCalls != 1 {
		t.Errorf("retrying publish called %d times, want 1", pub.retryCalls)
	}
	if pub.attempts != syncPublishAttempts {
		t.Errorf("retry attempts = %d, want %d", pub.attempts, syncPublishAttempts)
	}
}

func TestInvoiceServiceWithoutPublisher(t *testing.T) {
	svc := NewInvoiceService(&fakePlatformWriter{}, nil)
	if _, err := svc.CreateInvoice(context.Background(), servicePrincipal(), core.Invoice{}); err != nil {
		t.Fatalf("CreateInvoice without publisher: %v", err)
	}
}
