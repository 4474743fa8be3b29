package main

import (
	"context"
	"expvar"
	"log"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/emberchat/ember/internal/domain"
	"github.com/emberchat/ember/internal/infrastructure/configs"
	"github.com/emberchat/ember/internal/infrastructure/events"
	"github.com/emberchat/ember/internal/infrastructure/logging"
	"github.com/emberchat/ember/internal/infrastructure/messaging"
	"github.com/emberchat/ember/internal/infrastructure/metrics"
	"github.com/emberchat/ember/internal/infrastructure/ratelimiter"
	"github.com/emberchat/ember/internal/infrastructure/registry"
	"github.com/emberchat/ember/internal/infrastructure/store"
	"github.com/emberchat/ember/internal/infrastructure/tracing"
	"github.com/emberchat/ember/internal/infrastructure/ws"
	"github.com/emberchat/ember/internal/persistence/db"
	persistenceRepository "github.com/emberchat/ember/internal/persistence/repository"
	"github.com/emberchat/ember/internal/presentation/api"
	healthHandler "github.com/emberchat/ember/internal/presentation/handler/health"
	roomHandler "github.com/emberchat/ember/internal/presentation/handler/rooms"
	socketHandler "github.com/emberchat/ember/internal/presentation/handler/socket"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	zapLogger := zap.Must(zap.NewProduction()).Sugar()
	defer zapLogger.Sync()

	shutdownTracer, err := tracing.InitTracer(tracing.NewDefaultConfig("ember"))
	if err != nil {
		zapLogger.Warnw("tracing disabled", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(logging.NewDefaultConfig())
	logger.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileStore := store.NewFileStore(cfg.RoomStore.Path, cfg.RoomStore.FlushDebounce, logger)
	go fileStore.Run(ctx)

	hub := ws.NewHub()

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	var auditRepository domain.RoomAuditRepository
	if cfg.Audit.Enabled {
		mongoClient, err := db.NewMongoClient(ctx, &db.MongoConfig{
			URI:               cfg.Audit.URI,
			Database:          cfg.Audit.Database,
			ConnectionTimeout: 10 * time.Second,
		})
		if err != nil {
			logger.Warn(logging.Mongo, logging.ExternalService, "audit log disabled", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		} else {
			defer mongoClient.Disconnect(context.Background())
			auditRepository = persistenceRepository.NewRoomAuditLogRepository(mongoClient.Database(cfg.Audit.Database))
		}
	}

	var publisher registry.EventPublisher
	if cfg.Messaging.Enabled {
		rabbit, err := messaging.NewRabbitMQ(cfg.Messaging.URI)
		if err != nil {
			logger.Warn(logging.RabbitMQ, logging.ExternalService, "room event publishing disabled", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		} else {
			defer rabbit.Close()
			publisher = events.NewRoomPublisher(rabbit)
		}
	}

	reg := registry.New(registry.Options{
		Hub:       hub,
		Store:     fileStore,
		Logger:    logger,
		Metrics:   m,
		Audit:     auditRepository,
		Publisher: publisher,
	})

	rooms, err := fileStore.Load(ctx)
	if err != nil {
		logger.Warn(logging.Persistence, logging.Snapshot, "room snapshot unreadable, starting empty", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	reg.Restore(rooms)

	rateLimiter := ratelimiter.NewFixedWindowRateLimiter(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame)
	defer rateLimiter.Close()

	app := api.NewApplication(
		cfg,
		socketHandler.NewHandler(hub, reg, m, logger),
		roomHandler.NewHandler(reg),
		healthHandler.NewHandler(),
		logger,
		rateLimiter,
		promRegistry,
	)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatal(logging.General, logging.Startup, "server exited", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
