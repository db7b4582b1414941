package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/naramuhl/finance-friend-central/internal/cli"
	apphttp "github.com/naramuhl/finance-friend-central/internal/http"
	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendResult := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := backendResult.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	sessions := services.NewSessionManager(backendResult.Store, backendResult.Snapshots, services.SessionManagerConfig{
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.SessionMax,
	}, logger.WithComponent(log.ComponentSession))

	var ready apphttp.ReadinessCheck
	if p, ok := backendResult.Store.(pinger); ok {
		ready = p.Ping
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              ready,
		Logger:             logger,
	}, sessions)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		sessions.Close()
	})

	logger.Info("Starting financas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", backendResult.AMQPEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
