package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fatture/internal/adapters"
	"fatture/internal/amqp"
	"fatture/internal/invoices"
	"fatture/internal/platform/memory"
	"fatture/internal/services"
	"fatture/internal/stats"
	"fatture/internal/storage"
	"fatture/internal/supabase"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case LiveBackend:
		return f.createLiveBackend(config)
	case MirrorBackend:
		return f.createMirrorBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// createLiveAdapter wires the platform client, repository and invoice
// service shared by the live and mirror backends.
func (f *DefaultFactory) createLiveAdapter(config Config) (*adapters.LiveAdapter, CleanupFunc, error) {
	client, err := supabase.New(supabase.Config{
		ProjectURL: config.SupabaseURL,
		AnonKey:    config.SupabaseAnonKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize platform client: %w", err)
	}

	repo := invoices.NewRepository(client)

	// AMQP is optional for the dashboard, mutations fall back to the
	// periodic mirror refresh when no broker is configured.
	var amqpClient *amqp.Client
	var cleanup CleanupFunc
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPSyncQueue, config.AMQPReminderQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			cleanup = amqpClient.Close
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"sync_queue", config.AMQPSyncQueue)
		}
	}

	var publisher services.SyncPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	service := services.NewInvoiceService(repo, publisher)

	return adapters.NewLiveAdapter(stats.NewLiveSource(client), repo, service), cleanup, nil
}

func (f *DefaultFactory) createLiveBackend(config Config) (*BackendResult, error) {
	adapter, cleanup, err := f.createLiveAdapter(config)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Initialized live backend", "platform_url", config.SupabaseURL)

	return &BackendResult{
		Backend: adapter,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createMirrorBackend(config Config) (*BackendResult, error) {
	live, amqpCleanup, err := f.createLiveAdapter(config)
	if err != nil {
		return nil, err
	}

	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite mirror: %w", err)
	}

	cleanup := func() error {
		err := sqliteRepo.Close()
		if amqpCleanup != nil {
			if cerr := amqpCleanup(); err == nil {
				err = cerr
			}
		}
		return err
	}

	f.logger.Info("Initialized mirror backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpCleanup != nil)

	return &BackendResult{
		Backend: adapters.NewMirrorAdapter(live, storage.NewMirrorSource(sqliteRepo)),
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}
	userID := config.DemoUserID
	if userID == "" {
		userID = "demo"
	}

	store := memory.NewFromFiles(dataDir, userID)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir, "demo_user", userID)

	return &BackendResult{
		Backend: store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}
