package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "club-recruitment-service/internal/api/grpc"
	httpapi "club-recruitment-service/internal/api/http"
	"club-recruitment-service/internal/broker"
	"club-recruitment-service/internal/config"
	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/events"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/repository/postgres"
	"club-recruitment-service/internal/security"
	"club-recruitment-service/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrate := flag.Bool("migrate", false, "Create the schema before serving")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Club Recruitment Service...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "health_address", cfg.GetHealthAddress())
	logger.Info("Database configuration", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "database", cfg.Database.Database, "path", cfg.Database.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if *migrate || cfg.Database.Driver == postgres.DriverSQLite {
		if err := postgres.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Database schema applied")
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Broker and event publishing
	brokerClient := broker.NewClient(cfg.Broker.URL, broker.DialAMQP(cfg.Broker.DialTimeout()))
	defer func() {
		if err := brokerClient.Close(); err != nil {
			logger.Error("Failed to close broker connection", "error", err)
		}
	}()
	publisher := events.NewPublisher(brokerClient, cfg.Broker.Exchange, events.Envelope{
		Source:   cfg.Events.Source,
		Metadata: domain.EventMetadata{Version: cfg.Events.Version, Environment: cfg.Events.Environment},
	})
	defer publisher.Close()

	// Initialize Services
	gate := service.NewPermissionGate(store.ApplicationRepository)
	stats := service.NewStatisticsAggregator(store.CampaignRepository, store.ApplicationRepository)
	campaignSvc := service.NewCampaignService(
		store.CampaignRepository,
		store.ApplicationRepository,
		store.ClubRepository,
		gate,
		publisher,
	)
	applicationSvc := service.NewApplicationService(
		store.ApplicationRepository,
		store.CampaignRepository,
		gate,
		stats,
		publisher,
	)
	identitySvc := service.NewIdentityService(store.ApplicationRepository, stats)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Set up gRPC health server
	healthServer := grpcapi.NewHealthServer()
	lis, err := net.Listen("tcp", cfg.GetHealthAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetHealthAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		if err := healthServer.Serve(lis); err != nil {
			logger.Error("gRPC health server error", "error", err)
		}
	}()

	// Start identity consumer
	consumer := events.NewConsumer(brokerClient, events.Topology{
		Exchange:           cfg.Broker.IdentityExchange,
		Queue:              cfg.Broker.IdentityQueue,
		DeadLetterExchange: cfg.Broker.DeadLetterExchange,
		MessageTTL:         cfg.Broker.MessageTTL(),
		Prefetch:           cfg.Broker.Prefetch,
		RoutingKeys:        events.IdentityTypes,
	}, events.Reconnect{
		InitialDelay: cfg.Broker.Reconnect.InitialDelay(),
		MaxDelay:     cfg.Broker.Reconnect.MaxDelay(),
		MaxAttempts:  uint(cfg.Broker.Reconnect.MaxAttempts),
	}, events.NewIdentityHandler(identitySvc))
	consumer.OnHealthChange(healthServer.SetIdentitySync)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil {
			logger.Error("Identity consumer exited", "error", err)
		}
	}()

	// Set up HTTP API
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(campaignSvc, applicationSvc, tokenManager),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP API listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	<-consumerDone
	healthServer.Stop()
	logger.Info("Club Recruitment Service stopped. Goodbye!")
}
