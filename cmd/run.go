package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"pyquest/api"
	"pyquest/application"
	"pyquest/config"
	"pyquest/database"
	"pyquest/events"
	"pyquest/infrastructure"
	"pyquest/infrastructure/observability"
	"pyquest/ratelimit"
	"pyquest/repository"
	"pyquest/service"
)

// services is the wired service layer shared by serve and grant
type services struct {
	rewards  service.RewardService
	ledger   service.LedgerService
	quests   service.QuestService
	badges   service.BadgeService
	logins   service.LoginService
	location *time.Location
}

func newServices(cfg *config.Config, db *database.DB, eventBus *events.Bus) (*services, error) {
	loc, err := cfg.QuestLocation()
	if err != nil {
		return nil, err
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	dispatcher := service.NewRewardDispatcher(cfg.ExperiencePerLevel)

	catalog, err := service.NewBadgeCatalog(repository.NewBadgeRepository(db), cfg.BadgeCacheSize, cfg.BadgeCacheTTL)
	if err != nil {
		return nil, err
	}

	return &services{
		rewards:  service.NewRewardService(uowFactory, dispatcher),
		ledger:   service.NewLedgerService(uowFactory),
		quests:   service.NewQuestService(uowFactory, dispatcher, loc, nil),
		badges:   service.NewBadgeService(uowFactory, dispatcher, catalog),
		logins:   service.NewLoginService(uowFactory, dispatcher, loc, cfg.LoginStreakBonus),
		location: loc,
	}, nil
}

// connectNATS wires the event forwarder when NATS is configured. The returned client may be nil.
func connectNATS(ctx context.Context, cfg *config.Config, eventBus *events.Bus, metrics *observability.MetricsProvider) (*infrastructure.NATSClient, error) {
	if cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, event forwarding disabled")
		return nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := client.Connect(connectCtx); err != nil {
		return nil, err
	}
	if err := client.EnsureStream(infrastructure.EventStreamName, infrastructure.Subjects()); err != nil {
		client.Close()
		return nil, err
	}

	infrastructure.NewNATSEventForwarder(client, metrics).Register(eventBus)
	return client, nil
}

// Run initializes and starts the HTTP service
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting pyquest rewards service...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	application.RegisterMetricsSubscriptions(eventBus, metrics)
	application.RegisterProgressionLogging(eventBus)

	natsClient, err := connectNATS(ctx, cfg, eventBus, metrics)
	if err != nil {
		return fmt.Errorf("failed to set up NATS: %w", err)
	}

	svc, err := newServices(cfg, db, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	log.Info("Services initialized successfully")

	redisClient, err := ratelimit.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	limiter := ratelimit.New(redisClient, cfg.RateLimitPerMinute)
	limiter.OnReject(metrics.RecordRateLimited)

	stopRollover := application.NewQuestRolloverWorker(svc.quests, svc.location, metrics).Start(ctx)

	handler := api.NewHandler(svc.rewards, svc.ledger, svc.quests, svc.badges, svc.logins)
	router := api.NewRouter(handler, api.RouterOptions{
		Admins:         cfg,
		Limiter:        limiter,
		Metrics:        metrics,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	server := api.NewServer(cfg.HTTPAddr, router)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	stopRollover()
	closeRedis(redisClient)
	if natsClient != nil {
		natsClient.Close()
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}

func closeRedis(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.WithError(err).Warn("Error closing redis client")
	}
}
