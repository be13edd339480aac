package backend

import (
	"context"

	"fatture/internal/platform"
	"fatture/internal/stats"
)

// Backend is the unified surface the HTTP handlers consume: the five
// dashboard datasets plus invoice and e-mail configuration CRUD.
type Backend interface {
	stats.DataSource
	platform.InvoiceStore
	platform.ConfigStore
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Supabase platform, used by live and mirror
	SupabaseURL     string
	SupabaseAnonKey string

	// Local mirror, used by mirror
	SQLiteDBPath      string
	AMQPURL           string
	AMQPExchange      string
	AMQPSyncQueue     string
	AMQPReminderQueue string

	// Memory backend seeds from this directory
	DataDirectory string
	DemoUserID    string
}

// BackendType selects where dashboard reads come from.
type BackendType string

const (
	// LiveBackend reads straight from the platform.
	LiveBackend BackendType = "live"
	// MirrorBackend reads from the local SQLite mirror, writes to the
	// platform and requests a sync.
	MirrorBackend BackendType = "mirror"
	// MemoryBackend is a self-contained demo store.
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case LiveBackend, MirrorBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
