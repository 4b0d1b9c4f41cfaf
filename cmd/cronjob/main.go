package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"club-recruitment-service/internal/broker"
	"club-recruitment-service/internal/config"
	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/events"
	"club-recruitment-service/internal/jobs"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/repository/postgres"
	"club-recruitment-service/internal/scheduler"
	"club-recruitment-service/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit ('complete-expired-campaigns', 'reconcile-statistics', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Club Recruitment Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Open(context.Background(), cfg.Database.Driver, cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Completing campaigns emits status events
	brokerClient := broker.NewClient(cfg.Broker.URL, broker.DialAMQP(cfg.Broker.DialTimeout()))
	defer brokerClient.Close()
	publisher := events.NewPublisher(brokerClient, cfg.Broker.Exchange, events.Envelope{
		Source:   cfg.Events.Source,
		Metadata: domain.EventMetadata{Version: cfg.Events.Version, Environment: cfg.Events.Environment},
	})
	defer publisher.Close()

	// Initialize Services
	gate := service.NewPermissionGate(store.ApplicationRepository)
	jobServices := &jobs.Services{
		Campaigns: service.NewCampaignService(
			store.CampaignRepository,
			store.ApplicationRepository,
			store.ClubRepository,
			gate,
			publisher,
		),
		Statistics: service.NewStatisticsAggregator(store.CampaignRepository, store.ApplicationRepository),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !jobRunner.RunOnce(*runOnce) {
			logger.Error("Unknown job name", "job", *runOnce)
			fmt.Printf("Available jobs:\n")
			fmt.Printf("  - %s\n", jobs.JobCompleteExpiredCampaigns)
			fmt.Printf("  - %s\n", jobs.JobReconcileStatistics)
			fmt.Printf("  - %s\n", jobs.JobAll)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
