package backend

import (
	"fmt"

	"fatture/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SupabaseURL:     appConfig.SupabaseURL,
		SupabaseAnonKey: appConfig.SupabaseAnonKey,

		SQLiteDBPath:      appConfig.SQLiteDBPath,
		AMQPURL:           appConfig.AMQPURL,
		AMQPExchange:      appConfig.AMQPExchange,
		AMQPSyncQueue:     appConfig.AMQPSyncQueue,
		AMQPReminderQueue: appConfig.AMQPReminderQueue,

		// Memory backend uses the default data directory
		DataDirectory: "data",
		DemoUserID:    "demo",
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case LiveBackend:
		if c.SupabaseURL == "" {
			return fmt.Errorf("Supabase URL is required for live backend")
		}
		if c.SupabaseAnonKey == "" {
			return fmt.Errorf("Supabase anon key is required for live backend")
		}

	case MirrorBackend:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("Supabase URL and anon key are required for mirror backend, writes go to the platform")
		}
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for mirror backend")
		}
		// AMQP is optional, the mirror catches up on periodic refresh

	case MemoryBackend:
		// Memory backend doesn't require additional validation
		// DataDirectory will default to "data" if empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{LiveBackend, MirrorBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
