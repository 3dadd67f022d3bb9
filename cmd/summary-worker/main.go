package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ahorro/internal/amqp"
	"ahorro/internal/cli"
	"ahorro/internal/config"
	"ahorro/internal/log"
	gsheet "ahorro/internal/sheets/google"
	"ahorro/internal/storage"
	"ahorro/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting summary-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	// Summaries are written by the API into the shared SQLite file.
	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	exporter, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewSummaryExportWorker(store, exporter)
	logger.Info("Consuming summary updates", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeSummaryUpdates(ctx, w.HandleSummaryUpdated); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Summary worker stopped")
}
