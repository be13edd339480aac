package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"fatture/internal/backend"
	"fatture/internal/cli"
	apphttp "fatture/internal/http"
	"fatture/internal/log"
	"fatture/internal/supabase"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	logger.Info("Starting fatture server")

	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", backendConfig.Type)
		os.Exit(1)
	}

	// The memory backend runs without the platform; every request is the
	// demo user and no login is needed. Live and mirror authenticate
	// against the platform's auth endpoints.
	var auth *supabase.AuthClient
	if backendConfig.Type != backend.MemoryBackend {
		client, err := supabase.New(supabase.Config{
			ProjectURL: cfg.SupabaseURL,
			AnonKey:    cfg.SupabaseAnonKey,
		})
		if err != nil {
			logger.Error("Failed to create platform client", "error", err)
			os.Exit(1)
		}
		auth = client.Auth()
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Backend:      result.Backend,
		Auth:         auth,
		DemoUserID:   backendConfig.DemoUserID,
		BaseURL:      cfg.BaseURL,
		CookieSecret: cfg.CookieSecret,
		CookieSecure: cfg.CookieSecure,
		Logger:       logger,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting fatture server",
		"port", cfg.Port,
		"backend", backendConfig.Type,
		"base_url", cfg.BaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
