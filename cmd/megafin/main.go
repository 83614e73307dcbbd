package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"megafin/internal/amqp"
	"megafin/internal/backend"
	"megafin/internal/cache"
	"megafin/internal/cli"
	"megafin/internal/crm"
	apphttp "megafin/internal/http"
	"megafin/internal/service"
	"megafin/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	result, err := backend.NewFactory(logger).CreateStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize row store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Store cleanup failed", "error", err)
			}
		}()
	}

	// Ledger snapshots expire on their own; the janitor only sweeps
	// entries nobody reads anymore.
	snapshots := cache.New[[][]string](256, cfg.CacheTTL)
	janitor := cache.NewJanitor()
	janitor.Register(snapshots)
	janitor.Start(5 * time.Minute)
	defer janitor.Stop()

	// Mirroring to the archive is optional; without AMQP the server
	// simply skips publishing.
	var mirror service.MirrorPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		mirror = amqpClient
		logger.Info("Mirror publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Mirror publishing disabled - no AMQP_URL provided")
	}

	guard := session.Guard{
		AdminTTL:    cfg.AdminSessionTTL,
		EmployeeTTL: cfg.EmployeeSessionTTL,
	}
	ledgers := service.NewLedgerService(result.Store, snapshots, guard, mirror)
	sessions := service.NewSessionService(guard, service.Secrets{
		BranchMB: cfg.BranchPassword("MB"),
		BranchBZ: cfg.BranchPassword("BZ"),
		Admin:    cfg.AdminPassword,
	})
	directory := crm.NewDirectory(result.Store)

	srv := apphttp.NewServer(cfg.HTTPAddr(), ledgers, sessions, directory)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting megafin server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
