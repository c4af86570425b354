package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowsplit/flowsplit/internal/config"
	"github.com/flowsplit/flowsplit/internal/events"
	"github.com/flowsplit/flowsplit/internal/infra"
	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/metrics"
	"github.com/flowsplit/flowsplit/internal/paystack"
	"github.com/flowsplit/flowsplit/internal/routes"
	"github.com/flowsplit/flowsplit/internal/server"
	"github.com/flowsplit/flowsplit/internal/split"
	"github.com/flowsplit/flowsplit/internal/storage/postgres"
	"github.com/flowsplit/flowsplit/internal/system"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.AppName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	store := postgres.New(pool)

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}()

	bus, err := events.DialAMQP(cfg.AMQPURL, logger)
	if err != nil {
		logger.Error("connect rabbitmq", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Warn("close rabbitmq", "error", err)
		}
	}()

	engine := ledger.NewEngine(logger)

	provisioner := system.NewProvisioner(store, logger)
	if err := provisioner.EnsureAll(ctx); err != nil {
		logger.Error("provision system wallets", "error", err)
		os.Exit(1)
	}

	provider, err := paystack.NewClient(cfg.PaystackSecretKey, logger)
	if err != nil {
		logger.Error("build paystack client", "error", err)
		os.Exit(1)
	}

	splitEngine := split.NewEngine(store, engine, logger)
	go func() {
		if err := bus.Consume(ctx, splitEngine.EventHandler()); err != nil && ctx.Err() == nil {
			logger.Error("deposit consumer stopped", "error", err)
		}
	}()

	go func() {
		if err := metrics.Serve(cfg.MetricsAddress()); err != nil {
			logger.Error("metrics listener stopped", "error", err)
		}
	}()

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		Store:    store,
		Cache:    cache,
		Bus:      bus,
		Provider: provider,
		Engine:   engine,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
