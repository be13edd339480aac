package main

import (
	"os"
	"time"

	"fatture/internal/amqp"
	"fatture/internal/cli"
	"fatture/internal/log"
	"fatture/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentReminder)

	logger.Info("Starting reminder-scan")

	cfg := cli.LoadAndValidateConfig(logger)

	// The scan reads the mirror, never the platform: overdue state was
	// already pulled by the worker.
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPReminderQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reminderService := services.NewReminderService(sqliteRepo, amqpClient)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	scanInterval := cfg.ReminderScanInterval
	logger.Info("Reminder scanner configured",
		"interval", scanInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	scan := func() {
		result, err := reminderService.ScanOverdue(ctx)
		if err != nil {
			logger.Error("Reminder scan failed", "error", err)
			return
		}
		logger.Info("Reminder scan complete",
			"overdue", result.Overdue,
			"published", result.Published,
			"skipped", result.Skipped,
			"failed", result.Failed)
	}

	logger.Info("Running initial reminder scan...")
	scan()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				scan()
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reminder-scan stopped gracefully")
}
