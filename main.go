// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"transit-booking/cmd"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/usecase"
	"transit-booking/internal/wire"
	"transit-booking/pkg/broker"
	"transit-booking/pkg/cache"
	"transit-booking/pkg/database"
	"transit-booking/pkg/gateway"
	"transit-booking/pkg/telemetry"
	"transit-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, config.Telemetry.ServiceName, config.Telemetry.Endpoint)
		if err != nil {
			logger.Fatal("Failed to init tracer", zap.Error(err))
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("Tracer shutdown failed", zap.Error(err))
			}
		}()
		logger.Info("Tracing enabled", zap.String("endpoint", config.Telemetry.Endpoint))
	}

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	if config.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
		logger.Info("Database schema applied")
	}

	var deps usecase.Dependencies

	if config.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, config.Redis.Addr, config.Redis.Password, config.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		deps.Idempotency = cache.NewIdempotencyStore(rdb, config.Redis.IdempotencyTTL)
		logger.Info("Redis idempotency store enabled", zap.String("addr", config.Redis.Addr))
	}

	if len(config.Kafka.Brokers) > 0 {
		publisher := broker.NewNotificationPublisher(config.Kafka.Brokers, config.Kafka.NotificationTopic, logger)
		defer publisher.Close()
		deps.Notifier = publisher
		logger.Info("Kafka notifications enabled", zap.Strings("brokers", config.Kafka.Brokers))
	}

	if config.Gateway.BaseURL != "" {
		deps.Gateway = gateway.NewMoMoClient(config.Gateway, logger)
	} else {
		logger.Warn("GATEWAY_BASE_URL not set, mobile money payments disabled")
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app, err := wire.Wiring(repos, config, deps, logger)
	if err != nil {
		logger.Fatal("Failed to wire application", zap.Error(err))
	}

	expiry := usecase.NewExpiryJob(app.Service.Booking, config.Booking.SweepInterval, logger)
	expiry.Start(ctx)
	defer expiry.Stop()

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, config.App.ShutdownTimeout, logger); err != nil {
		logger.Error("HTTP server stopped with error", zap.Error(err))
	}
	logger.Info("Application stopped")
}
