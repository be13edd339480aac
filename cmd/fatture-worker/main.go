package main

import (
	"context"
	"os"
	"time"

	"fatture/internal/amqp"
	"fatture/internal/cli"
	"fatture/internal/invoices"
	"fatture/internal/log"
	gmail "fatture/internal/mail/google"
	"fatture/internal/services"
	"fatture/internal/supabase"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)

	logger.Info("Starting fatture-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The worker always needs the platform: sync messages mean "pull this
	// user's rows again".
	client, err := supabase.New(supabase.Config{
		ProjectURL: cfg.SupabaseURL,
		AnonKey:    cfg.SupabaseAnonKey,
	})
	if err != nil {
		logger.Error("Failed to create platform client", "error", err)
		os.Exit(1)
	}
	repo := invoices.NewRepository(client)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPReminderQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	processorConfig := services.DefaultSyncProcessorConfig()
	processorConfig.ServiceToken = cfg.SupabaseServiceKey
	processorConfig.RefreshInterval = cfg.MirrorRefreshInterval
	processor := services.NewSyncProcessor(repo, sqliteRepo, processorConfig)

	// Reminder dispatch needs a Gmail sender. Without OAuth credentials
	// the worker still keeps the mirror fresh, it just leaves the
	// reminder queue alone.
	var dispatcher *services.ReminderDispatcher
	if sender, err := gmail.NewFromEnv(context.Background()); err != nil {
		logger.Warn("Gmail sender unavailable, reminder dispatch disabled", "error", err)
	} else {
		dispatcher = services.NewReminderDispatcher(sqliteRepo, sender)
		logger.Info("Gmail sender initialized")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := processor.Stop(stopCtx); err != nil {
			logger.Error("Sync processor stop error", "error", err)
		}
	})

	// Catch up on anything published while the worker was down, then
	// start the periodic full refresh.
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeInvoiceSync(ctx, func(msg *amqp.InvoiceSyncMessage) error {
			return processor.RefreshUser(ctx, msg.UserID)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Invoice sync consumption failed", "error", err)
		}
	}()

	if dispatcher != nil {
		go func() {
			err := amqpClient.ConsumeReminders(ctx, func(msg *amqp.ReminderMessage) error {
				return dispatcher.Dispatch(ctx, msg.InvoiceID, msg.ConfigID)
			})
			if err != nil && err != context.Canceled {
				logger.Error("Reminder consumption failed", "error", err)
			}
		}()
	}

	logger.Info("Worker running",
		"sync_queue", cfg.AMQPSyncQueue,
		"reminder_queue", cfg.AMQPReminderQueue,
		"refresh_interval", cfg.MirrorRefreshInterval,
		"reminders_enabled", dispatcher != nil)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
