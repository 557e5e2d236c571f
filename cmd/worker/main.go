package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"cleanhub/internal/cache"
	"cleanhub/internal/config"
	"cleanhub/internal/database"
	"cleanhub/internal/log"
	"cleanhub/internal/queue"
	"cleanhub/internal/repository"
	"cleanhub/internal/service"
	"cleanhub/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel).With().Str("component", "worker").Logger()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Fatal().Err(err).Msg("refusing to start")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres, "cleanhub-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis, "cleanhub-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	processor := tasks.NewProcessor(
		service.NewNotificationService(repository.NewNotificationRepository(dbPool)),
		repository.NewUserRepository(dbPool),
		repository.NewProfileRepository(dbPool),
		repository.NewDeviceTokenRepository(dbPool),
		cfg.Jobs,
		logger,
	)
	consumer := queue.NewConsumer(client, cfg.Events.Stream, cfg.Worker, logger, processor)

	logger.Info().Str("stream", cfg.Events.Stream).Str("group", cfg.Worker.Group).Msg("worker started")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited")
}
