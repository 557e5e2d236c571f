package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cleanhub/internal/cache"
	"cleanhub/internal/config"
	"cleanhub/internal/database"
	"cleanhub/internal/events"
	"cleanhub/internal/handlers"
	"cleanhub/internal/jobs"
	"cleanhub/internal/log"
	"cleanhub/internal/repository"
	"cleanhub/internal/security"
	"cleanhub/internal/server"
	"cleanhub/internal/service"
	"cleanhub/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("refusing to start")
	}

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres, "cleanhub-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if cfg.Postgres.Migrate {
		if err := database.Migrate(ctx, dbPool, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, "cleanhub-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure avatar bucket failed")
	}

	tokens, err := security.NewTokenService(cfg.Security)
	if err != nil {
		logger.Fatal().Err(err).Msg("token service")
	}

	publisher, closePublisher := newPublisher(cfg.Events, redisClient, logger)

	users := repository.NewUserRepository(dbPool)
	devices := repository.NewDeviceTokenRepository(dbPool)
	profiles := repository.NewProfileRepository(dbPool)
	bookings := repository.NewBookingRepository(dbPool)
	notifications := repository.NewNotificationRepository(dbPool)
	tracking := cache.NewTrackingStore(redisClient, cfg.Tracking.CacheTTL, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Services{
		Accounts:      service.NewAuthService(users, devices, tokens, security.NewPasswordHasher(cfg.Security.BcryptCost), logger),
		Avatars:       service.NewAvatarService(users, objectStore, cfg.Storage.MaxAvatarSize, logger),
		Profiles:      service.NewProfileService(profiles, publisher, logger),
		Approvals:     service.NewApprovalService(profiles, publisher, logger),
		Bookings:      service.NewBookingService(bookings, profiles, tracking, publisher, logger),
		Notifications: service.NewNotificationService(notifications),
		Health: map[string]handlers.HealthCheck{
			"database": dbPool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Jobs, publisher, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient, closePublisher)
}

// newPublisher writes events to the redis stream and mirrors them to Kafka
// when brokers are configured.
func newPublisher(cfg config.EventsConfig, client *redis.Client, logger zerolog.Logger) (events.Publisher, func() error) {
	stream := events.NewStreamPublisher(client, cfg.Stream, cfg.StreamMaxLen)
	if len(cfg.KafkaBrokers) == 0 {
		return stream, func() error { return nil }
	}

	kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("mirroring events to kafka")
	return events.Fanout{stream, kafka}, kafka.Close
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	db *pgxpool.Pool,
	redisClient *redis.Client,
	closePublisher func() error,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	if err := closePublisher(); err != nil {
		logger.Error().Err(err).Msg("close event publisher")
	}
	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
