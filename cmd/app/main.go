package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"probuy-bot/internal/cache"
	"probuy-bot/internal/config"
	"probuy-bot/internal/convo"
	"probuy-bot/internal/httpserver"
	"probuy-bot/internal/logging"
	"probuy-bot/internal/metrics"
	"probuy-bot/internal/reminder"
	"probuy-bot/internal/repo"
	"probuy-bot/internal/wa"
	"probuy-bot/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.AppEnv)
	logger.Info("starting probuy-bot", "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	var store repo.Store
	if cfg.DevMode {
		logger.Warn("dev mode: using in-memory store, nothing is persisted")
		store = repo.NewMemory(cfg.ClientCodePrefix)
	} else {
		pgStore, err := repo.NewPostgres(ctx, cfg.DatabaseURL, cfg.ClientCodePrefix, logger)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		if err := pgStore.RunMigrations(ctx, migrations.Files); err != nil {
			pgStore.Close()
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrated")
		store = pgStore
	}
	defer store.Close()

	redisClient := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx); err != nil {
		logger.Warn("redis ping failed", "error", err)
	}

	waClient, err := wa.New(ctx, wa.Config{
		StorePath: cfg.WhatsAppStorePath,
		LogLevel:  cfg.WhatsAppLogLevel,
		Metrics:   metricRegistry,
	}, logger)
	if err != nil {
		return fmt.Errorf("init whatsapp client: %w", err)
	}
	defer waClient.Close()

	sessions := convo.NewSessionStore(redisClient, "session", cfg.SessionTTL)
	staffSessions := convo.NewSessionStore(redisClient, "staffsession", cfg.SessionTTL)
	batches := convo.NewBatchBuffer(redisClient, cfg.SessionTTL)

	engine := convo.NewEngine(store, sessions, staffSessions, batches, waClient, metricRegistry, logger, convo.Config{
		ManagerID:   cfg.ManagerID,
		WarehouseID: cfg.WarehouseID,
		StaffIDs:    cfg.StaffIDs(),
	})
	waClient.SetHandler(engine)

	scheduler := reminder.New(store, waClient, metricRegistry, logger, reminder.Config{
		Interval:       cfg.ReminderInterval,
		AddressAfter:   cfg.AddressReminderAfter,
		SendCargoAfter: cfg.SendCargoReminderAfter,
		InactiveAfter:  cfg.InactiveReminderAfter,
	})
	go scheduler.Run(ctx)

	waCtx, waCancel := context.WithCancel(ctx)
	defer waCancel()
	go func() {
		if err := waClient.Start(waCtx); err != nil {
			logger.Error("whatsapp client stopped", "error", err)
			stop()
		}
	}()

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, httpserver.Dependencies{
		Store:     store,
		Redis:     redisClient,
		Reminders: scheduler,
	}, cfg.HTTPBasePath)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}
