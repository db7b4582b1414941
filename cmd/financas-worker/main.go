package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/naramuhl/finance-friend-central/internal/amqp"
	"github.com/naramuhl/finance-friend-central/internal/cli"
	"github.com/naramuhl/finance-friend-central/internal/config"
	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting financas-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != config.BackendSQLite {
		logger.Error("The snapshot worker needs the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled, running periodic snapshots only")
	}

	snapshots := worker.NewSnapshotWorker(repo)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on the snapshots missed while the worker was down.
	if err := snapshots.RecordDailySnapshots(ctx); err != nil {
		logger.Error("Startup snapshot pass failed", log.FieldError, err)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeSnapshots(ctx, snapshots.HandleSnapshotMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	go snapshots.Run(ctx, cfg.SnapshotInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
