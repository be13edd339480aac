package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fatture/internal/core"
)

// PlatformReader is the slice of the platform repository the sync
// processor needs.
type PlatformReader interface {
	List(ctx context.Context, p core.Principal, f core.FilterState) ([]core.Invoice, error)
	ListEmailConfigs(ctx context.Context, p core.Principal) ([]core.EmailConfig, error)
}

// MirrorWriter is the slice of the local mirror the sync processor writes.
type MirrorWriter interface {
	ReplaceUserInvoices(ctx context.Context, userID string, invoices []core.Invoice) error
	ReplaceUserEmailConfigs(ctx context.Context, userID string, configs []core.EmailConfig) error
	LastSyncedAt(ctx context.Context, userID string) (time.Time, error)
}

// SyncProcessorConfig holds configuration for the sync processor.
type SyncProcessorConfig struct {
	// ServiceToken authenticates the worker against the platform with a
	// service role, bypassing row-level security for the pull.
	ServiceToken string

	// MinInterval skips a refresh when the user's mirror is newer than
	// this (default: 30s). Protects against message storms.
	MinInterval time.Duration

	// RefreshInterval is how often every known user is refreshed even
	// without messages (default: 1h). Zero disables periodic refresh.
	RefreshInterval time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults.
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		MinInterval:     30 * time.Second,
		RefreshInterval: 1 * time.Hour,
	}
}

// SyncProcessor refreshes users' local mirrors from the platform. The
// pull replaces the user's rows wholesale, matching the replace-not-merge
// semantics of the mirror.
type SyncProcessor struct {
	platform PlatformReader
	mirror   MirrorWriter
	config   SyncProcessorConfig
	now      func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	users   map[string]struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(platform PlatformReader, mirror MirrorWriter, config SyncProcessorConfig) *SyncProcessor {
	if config.MinInterval == 0 {
		config.MinInterval = 30 * time.Second
	}
	return &SyncProcessor{
		platform: platform,
		mirror:   mirror,
		config:   config,
		now:      time.Now,
		users:    make(map[string]struct{}),
	}
}

// RefreshUser pulls one user's invoices and e-mail configurations from
// the platform and replaces the mirror. A refresh within MinInterval of
// the previous one is skipped.
func (p *SyncProcessor) RefreshUser(ctx context.Context, userID string) error {
	syncedAt, err := p.mirror.LastSyncedAt(ctx, userID)
	if err != nil {
		return fmt.Errorf("check sync state: %w", err)
	}
	if !syncedAt.IsZero() && p.now().Sub(syncedAt) < p.config.MinInterval {
		slog.DebugContext(ctx, "Mirror still fresh, skipping refresh",
			"user_id", userID, "synced_at", syncedAt)
		return nil
	}

	principal := core.Principal{UserID: userID, AccessToken: p.config.ServiceToken}
	all := core.FilterState{DateRange: core.DateRange{Preset: core.PresetAll}}

	invoices, err := p.platform.List(ctx, principal, all)
	if err != nil {
		return fmt.Errorf("pull invoices for %s: %w", userID, err)
	}
	configs, err := p.platform.ListEmailConfigs(ctx, principal)
	if err != nil {
		return fmt.Errorf("pull email configs for %s: %w", userID, err)
	}

	if err := p.mirror.ReplaceUserInvoices(ctx, userID, invoices); err != nil {
		return fmt.Errorf("replace mirrored invoices: %w", err)
	}
	if err := p.mirror.ReplaceUserEmailConfigs(ctx, userID, configs); err != nil {
		return fmt.Errorf("replace mirrored email configs: %w", err)
	}

	p.mu.Lock()
	p.users[userID] = struct{}{}
	p.mu.Unlock()

	slog.InfoContext(ctx, "Mirror refreshed",
		"user_id", userID,
		"invoices", len(invoices),
		"email_configs", len(configs))
	return nil
}

// Start begins the periodic refresh loop. Returns an error if already
// running. Message-driven refreshes via RefreshUser work regardless.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"refresh_interval", p.config.RefreshInterval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the periodic loop is currently running.
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	if p.config.RefreshInterval <= 0 {
		<-p.stopCh
		return
	}

	ticker := time.NewTicker(p.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshKnownUsers(ctx)
		}
	}
}

func (p *SyncProcessor) refreshKnownUsers(ctx context.Context) {
	p.mu.Lock()
	users := make([]string, 0, len(p.users))
	for u := range p.users {
		users = append(users, u)
	}
	p.mu.Unlock()

	for _, userID := range users {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.RefreshUser(ctx, userID); err != nil {
			slog.ErrorContext(ctx, "Periodic mirror refresh failed",
				"user_id", userID, "error", err)
		}
	}
}
